// File: internal/observability/tail.go
package observability

import (
	"context"
	"fmt"

	"github.com/hpcloud/tail"
)

// TailLogFile hands every line of the JSON log file to fn. With follow set it
// keeps reading across lumberjack rotations until ctx ends; otherwise it stops
// at the end of the file.
func TailLogFile(ctx context.Context, path string, follow bool, fn func(line string)) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			return t.Stop()
		case line, ok := <-t.Lines:
			if !ok {
				return t.Wait()
			}
			if line.Err != nil {
				return fmt.Errorf("failed to read log file: %w", line.Err)
			}
			fn(line.Text)
		}
	}
}
