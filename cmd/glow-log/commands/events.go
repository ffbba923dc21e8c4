package commands

import (
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/glowkit/glow-go/pkg/log"
)

// openEvents opens a capture file and returns its matching events. The
// sequence yields a non-nil error at most once, as its last element.
func openEvents(path string, filter log.Filter) (iter.Seq2[log.Event, error], func() error, error) {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	seq := func(yield func(log.Event, error) bool) {
		for {
			event, err := reader.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(log.Event{}, fmt.Errorf("failed to read event: %w", err))
				return
			}
			if !yield(event, nil) {
				return
			}
		}
	}
	return seq, reader.Close, nil
}
