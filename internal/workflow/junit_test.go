package workflow

import (
	"bytes"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/repairfill/internal/protocol"
)

func TestWriteJUnit(t *testing.T) {
	r := &Report{
		RunID:     "run-7",
		Kind:      KindFull,
		StartedAt: time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		Status:    "serial input not found",
		Stages: []StageReport{
			{Action: protocol.ActionFillHoursAndPurity, OK: true, Attempts: 1, Duration: 1500 * time.Millisecond},
			{Action: protocol.ActionRunPartsTable, OK: true, Attempts: 2, Duration: 250 * time.Millisecond},
			{Action: protocol.ActionRunSerialPopup, OK: false, Attempts: 1, Error: "serial input not found"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, r.WriteJUnit(&buf))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(buf.Bytes()))

	suite := doc.FindElement("/testsuites/testsuite")
	require.NotNil(t, suite)
	assert.Equal(t, "run-7", suite.SelectAttrValue("id", ""))
	assert.Equal(t, "3", suite.SelectAttrValue("tests", ""))
	assert.Equal(t, "1", suite.SelectAttrValue("failures", ""))
	assert.Equal(t, "1.750", suite.SelectAttrValue("time", ""))
	assert.Equal(t, "2024-03-01T08:00:00", suite.SelectAttrValue("timestamp", ""))

	cases := suite.SelectElements("testcase")
	require.Len(t, cases, 3)
	assert.Equal(t, string(protocol.ActionRunPartsTable), cases[1].SelectAttrValue("name", ""))
	attempts := cases[1].FindElement("properties/property[@name='attempts']")
	require.NotNil(t, attempts)
	assert.Equal(t, "2", attempts.SelectAttrValue("value", ""))

	assert.Nil(t, cases[0].SelectElement("failure"))
	failure := cases[2].SelectElement("failure")
	require.NotNil(t, failure)
	assert.Equal(t, "serial input not found", failure.SelectAttrValue("message", ""))
}
