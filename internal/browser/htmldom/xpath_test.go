package htmldom_test

import (
	"strings"
	"testing"

	"github.com/antchfx/htmlquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/repairfill/internal/browser/htmldom"
)

const xpathHTML = `
	<html>
	<body>
		<div id="header">
			<h1>Parts</h1>
		</div>
		<div class="content">
			<p>P1</p><p>P2</p>
			<table>
				<tr><td>Compressor</td></tr>
				<tr><td>Control Board</td></tr>
				<tr id="sieve"><td>Sieve Tank</td></tr>
			</table>
		</div>
		<div class="content"><p>P3</p></div>
		<div id="it's"><span>quoted</span></div>
	</body>
	</html>
	`

func TestXPathOf(t *testing.T) {
	doc := htmldom.MustParse(xpathHTML)
	root, err := htmlquery.Parse(strings.NewReader(doc.HTML()))
	require.NoError(t, err)

	tests := []struct {
		name          string
		targetXPath   string
		expectedXPath string
	}{
		{"Body", "//body", "/html[1]/body[1]"},
		{"Element with ID", "//div[@id='header']", `//*[@id='header']`},
		{"Child of ID element", "//h1", `//*[@id='header']/h1[1]`},
		{"Specific index", "(//p)[2]", "/html[1]/body[1]/div[2]/p[2]"},
		{"Ambiguous classes", "(//div[@class='content'])[2]/p", "/html[1]/body[1]/div[3]/p[1]"},
		{"Row inside implied tbody", "(//tr)[2]", "/html[1]/body[1]/div[2]/table[1]/tbody[1]/tr[2]"},
		{"Row with ID", "//tr[@id='sieve']", `//*[@id='sieve']`},
		{"ID with apostrophe", `//span`, `//*[@id="it's"]/span[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := htmlquery.FindOne(root, tt.targetXPath)
			require.NotNil(t, target, "Test setup error: target node not found with %s", tt.targetXPath)

			generated := htmldom.XPathOf(target)
			assert.Equal(t, tt.expectedXPath, generated)
			assert.Equal(t, target, htmlquery.FindOne(root, generated), "Generated XPath did not select the original node")
		})
	}

	assert.Equal(t, "", htmldom.XPathOf(nil))
}

func TestControls(t *testing.T) {
	doc := htmldom.MustParse(`<form>
		<input id="hours" name="hours" value="12">
		<input type="checkbox" id="ok" checked>
		<select id="diag"><option value="">Select</option><option value="INV4|1" selected>INV4 - Saturated</option></select>
		<input type="hidden" name="token" value="abc">
	</form>`)

	controls := doc.Controls()
	require.Len(t, controls, 4)

	assert.Equal(t, htmldom.Control{XPath: `//*[@id='hours']`, Tag: "input", Type: "text", ID: "hours", Name: "hours", Value: "12", Visible: true}, controls[0])
	assert.True(t, controls[1].Checked)
	assert.Equal(t, "INV4 - Saturated", controls[2].Value)
	assert.False(t, controls[3].Visible, "hidden inputs are never rendered")
}
