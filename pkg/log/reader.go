package log

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// Filter specifies criteria for filtering capture events.
// Empty/nil fields match all events for that criterion.
type Filter struct {
	// ObserverID filters by exact observer ID match.
	ObserverID string

	// Direction filters by packet direction.
	Direction *Direction

	// Layer filters by capturing component.
	Layer *Layer

	// Category filters by event category.
	Category *Category

	// EntityID filters rewrite events by entity. Events without a rewrite
	// payload never match.
	EntityID *int32

	// TimeStart filters events at or after this time.
	TimeStart *time.Time

	// TimeEnd filters events before this time.
	TimeEnd *time.Time
}

// Matches reports whether the event matches all filter criteria.
func (f *Filter) Matches(event Event) bool {
	if f.ObserverID != "" && event.ObserverID != f.ObserverID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Layer != nil && event.Layer != *f.Layer {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.EntityID != nil && (event.Rewrite == nil || event.Rewrite.EntityID != *f.EntityID) {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader streams capture events from a file written by FileLogger.
// Compressed files are detected by content, not by name.
type Reader struct {
	file    *os.File
	zdec    *zstd.Decoder
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader creates a Reader over all events in path.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader returning only events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(f)
	r := &Reader{file: f, filter: filter}

	head, err := br.Peek(len(zstdMagic))
	if err != nil && !errors.Is(err, io.EOF) {
		_ = f.Close()
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	if bytes.Equal(head, zstdMagic) {
		r.zdec, err = zstd.NewReader(br)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating zstd reader: %w", err)
		}
		r.decoder = NewDecoder(r.zdec)
	} else {
		r.decoder = NewDecoder(br)
	}
	return r, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, err
		}
		if r.filter.Matches(event) {
			return event, nil
		}
	}
}

// Close releases the file.
func (r *Reader) Close() error {
	if r.zdec != nil {
		r.zdec.Close()
	}
	return r.file.Close()
}
