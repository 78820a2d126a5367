package workflow

import (
	"fmt"
	"io"
	"strconv"

	"github.com/beevik/etree"
)

// WriteJUnit renders the report as a JUnit XML test suite with one test case
// per stage, for shop dashboards that already ingest CI results.
func (r *Report) WriteJUnit(w io.Writer) error {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	failures := 0
	var total float64
	for _, st := range r.Stages {
		if !st.OK {
			failures++
		}
		total += st.Duration.Seconds()
	}

	suites := doc.CreateElement("testsuites")
	suite := suites.CreateElement("testsuite")
	suite.CreateAttr("name", "repairfill."+r.Kind)
	suite.CreateAttr("id", r.RunID)
	suite.CreateAttr("tests", strconv.Itoa(len(r.Stages)))
	suite.CreateAttr("failures", strconv.Itoa(failures))
	suite.CreateAttr("time", seconds(total))
	if !r.StartedAt.IsZero() {
		suite.CreateAttr("timestamp", r.StartedAt.UTC().Format("2006-01-02T15:04:05"))
	}

	for _, st := range r.Stages {
		tc := suite.CreateElement("testcase")
		tc.CreateAttr("classname", "repairfill."+r.Kind)
		tc.CreateAttr("name", string(st.Action))
		tc.CreateAttr("time", seconds(st.Duration.Seconds()))
		if !st.OK {
			f := tc.CreateElement("failure")
			f.CreateAttr("message", st.Error)
			f.SetText(st.Error)
		}
		if st.Attempts > 1 {
			props := tc.CreateElement("properties")
			p := props.CreateElement("property")
			p.CreateAttr("name", "attempts")
			p.CreateAttr("value", strconv.Itoa(st.Attempts))
		}
	}
	if r.Status != "" {
		suite.CreateElement("system-out").SetText(r.Status)
	}

	doc.Indent(2)
	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write junit report: %w", err)
	}
	return nil
}

func seconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
