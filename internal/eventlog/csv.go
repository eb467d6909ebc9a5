// internal/eventlog/csv.go
package eventlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/golang/glog"
)

// CSV appends events as CSV records to an arbitrary byte stream.
type CSV struct {
	Out io.Writer
}

func (c *CSV) Write(ctx context.Context, events <-chan Event) error {
	w := csv.NewWriter(c.Out)
	if err := w.Write([]string{
		"RunID",
		"Length",
		"OffsetSec",
		"DetectedAtUnixMilli",
	}); err != nil {
		return fmt.Errorf("unable to write CSV header: %w", err)
	}

	for event := range events {
		if err := w.Write([]string{
			event.RunID,
			fmt.Sprintf("%d", event.Length),
			fmt.Sprintf("%d", int64(event.Offset.Seconds())),
			fmt.Sprintf("%d", event.DetectedAt.UnixMilli()),
		}); err != nil {
			glog.Warningf("error while writing CSV line: %s", err)
		}

		w.Flush()
		if err := w.Error(); err != nil {
			glog.Warningf("error flushing CSV: %s", err)
		}
	}
	return nil
}
