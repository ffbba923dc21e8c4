package commands

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/glowkit/glow-go/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
// Empty fields match everything.
type FilterOptions struct {
	Output    string
	Observer  string
	Entity    string
	TimeStart string
	TimeEnd   string
	Layer     string
	Direction string
	Category  string
}

// build converts the textual options into a log.Filter.
func (o FilterOptions) build() (log.Filter, error) {
	f := log.Filter{ObserverID: o.Observer}

	if o.Entity != "" {
		id, err := strconv.ParseInt(o.Entity, 10, 32)
		if err != nil {
			return f, fmt.Errorf("invalid entity id: %w", err)
		}
		entity := int32(id)
		f.EntityID = &entity
	}

	parseTime := func(name, s string) (*time.Time, error) {
		if s == "" {
			return nil, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s format: %w", name, err)
		}
		return &t, nil
	}
	var err error
	if f.TimeStart, err = parseTime("time-start", o.TimeStart); err != nil {
		return f, err
	}
	if f.TimeEnd, err = parseTime("time-end", o.TimeEnd); err != nil {
		return f, err
	}

	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return f, err
		}
		f.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return f, err
		}
		f.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return f, err
		}
		f.Category = &c
	}
	return f, nil
}

// RunFilter copies the matching events of a capture file into a new file.
// An output path ending in .zst is compressed.
func RunFilter(path string, opts FilterOptions, w io.Writer) error {
	filter, err := opts.build()
	if err != nil {
		return err
	}

	events, closeFn, err := openEvents(path, filter)
	if err != nil {
		return err
	}
	defer closeFn()

	out, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output logger: %w", err)
	}

	count := 0
	for event, err := range events {
		if err != nil {
			_ = out.Close()
			return err
		}
		out.Log(event)
		count++
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", opts.Output, err)
	}
	if n := out.Dropped(); n > 0 {
		return fmt.Errorf("%d events could not be encoded", n)
	}

	fmt.Fprintf(w, "Filtered %d events to %s\n", count, opts.Output)
	return nil
}
