// File: cmd/output.go
package cmd

import (
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/repairfill/internal/workflow"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// writeJUnitFile saves report as JUnit XML at path. An empty path or a nil
// report is a no-op.
func writeJUnitFile(path string, report *workflow.Report) error {
	if path == "" || report == nil {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create junit file: %w", err)
	}
	if err := report.WriteJUnit(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
