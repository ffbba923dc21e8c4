package log

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// FileLogger writes capture events to a file as a CBOR stream.
// Paths ending in .zst are zstd-compressed. It is safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	zenc    *zstd.Encoder
	buf     *bufio.Writer
	encoder *cbor.Encoder
	closed  bool
	dropped int
}

// NewFileLogger creates a FileLogger writing to path. An existing file is
// appended to; for compressed files each session adds a new zstd frame,
// which readers decode transparently.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	l := &FileLogger{file: f}
	if strings.HasSuffix(path, ".zst") {
		l.zenc, err = zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("creating zstd writer: %w", err)
		}
		l.buf = bufio.NewWriterSize(l.zenc, 64*1024)
	} else {
		l.buf = bufio.NewWriterSize(f, 64*1024)
	}
	l.encoder = NewEncoder(l.buf)
	return l, nil
}

// Log appends an event. Encoding failures are counted, never returned:
// capture must not disturb the packet path.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.dropped++
	}
}

// Flush writes buffered events to the file.
func (l *FileLogger) Flush() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if err := l.buf.Flush(); err != nil {
		return err
	}
	if l.zenc != nil {
		return l.zenc.Flush()
	}
	return nil
}

// Dropped returns the number of events that could not be encoded.
func (l *FileLogger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close flushes and closes the file. It is safe to call Close multiple
// times; later Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	err := l.buf.Flush()
	if l.zenc != nil {
		if cerr := l.zenc.Close(); err == nil {
			err = cerr
		}
	}
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	return err
}

var _ Logger = (*FileLogger)(nil)
