package transport

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/klauspost/compress/zlib"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/wire"
)

// Framing constants.
const (
	// MaxFrameSize is the largest frame length a 3-byte VarInt can carry.
	MaxFrameSize = 1<<21 - 1

	// CompressionDisabled is the threshold value meaning frames are never
	// compressed and carry no data-length field.
	CompressionDisabled = -1

	// MaxLogFrameDataSize is the maximum packet body size to include in
	// capture events. Larger bodies are truncated.
	MaxLogFrameDataSize = 4096
)

// Framing errors.
var (
	// ErrFrameTooLarge indicates the frame exceeds MaxFrameSize.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrFrameEmpty indicates a zero-length frame.
	ErrFrameEmpty = errors.New("frame is empty")

	// ErrFrameTruncated indicates the stream ended inside a frame.
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrBadCompression indicates a compressed frame whose declared size
	// does not match its contents or is below the threshold.
	ErrBadCompression = errors.New("bad compressed frame")
)

// FrameWriter writes packets as length-prefixed frames, compressing bodies
// at or above the compression threshold with zlib.
type FrameWriter struct {
	w         io.Writer
	mu        sync.Mutex
	threshold int
	zw        *zlib.Writer
	zbuf      bytes.Buffer
	frame     []byte

	// Capture support (optional)
	logger   log.Logger
	observer string
}

// NewFrameWriter creates a frame writer with compression disabled.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w, threshold: CompressionDisabled}
}

// SetCompression sets the compression threshold. Negative disables
// compression.
func (fw *FrameWriter) SetCompression(threshold int) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if threshold < 0 {
		threshold = CompressionDisabled
	}
	fw.threshold = threshold
}

// SetLogger configures capture for this writer.
// Pass nil to disable capture.
func (fw *FrameWriter) SetLogger(logger log.Logger, observer string) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	fw.logger = logger
	fw.observer = observer
}

// WritePacket writes one packet as a frame.
// Thread-safe: can be called from multiple goroutines.
func (fw *FrameWriter) WritePacket(p wire.Packet) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	payload := p.Encode(nil)
	compressed := false

	var body []byte
	switch {
	case fw.threshold < 0:
		body = payload
	case len(payload) < fw.threshold:
		body = wire.AppendVarInt(nil, 0)
		body = append(body, payload...)
	default:
		z, err := fw.deflate(payload)
		if err != nil {
			return err
		}
		body = wire.AppendVarInt(nil, int32(len(payload)))
		body = append(body, z...)
		compressed = true
	}

	if len(body) > MaxFrameSize {
		return fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, len(body), MaxFrameSize)
	}

	fw.frame = wire.AppendVarInt(fw.frame[:0], int32(len(body)))
	fw.frame = append(fw.frame, body...)
	if _, err := fw.w.Write(fw.frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}

	if fw.logger != nil {
		fw.logger.Log(makeFrameEvent(fw.observer, log.DirectionOut, p, len(fw.frame), compressed))
	}
	return nil
}

func (fw *FrameWriter) deflate(payload []byte) ([]byte, error) {
	fw.zbuf.Reset()
	if fw.zw == nil {
		fw.zw = zlib.NewWriter(&fw.zbuf)
	} else {
		fw.zw.Reset(&fw.zbuf)
	}
	if _, err := fw.zw.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to compress frame: %w", err)
	}
	if err := fw.zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize frame compression: %w", err)
	}
	return fw.zbuf.Bytes(), nil
}

// makeFrameEvent creates a capture event for a frame.
func makeFrameEvent(observer string, direction log.Direction, p wire.Packet, size int, compressed bool) log.Event {
	data := p.Data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		data = data[:MaxLogFrameDataSize]
		truncated = true
	}
	return log.Event{
		Timestamp:  time.Now(),
		ObserverID: observer,
		Direction:  direction,
		Layer:      log.LayerTransport,
		Category:   log.CategoryPacket,
		Frame: &log.FrameEvent{
			PacketID:   p.ID,
			Size:       size,
			Data:       bytes.Clone(data),
			Truncated:  truncated,
			Compressed: compressed,
		},
	}
}

// FrameReader reads frames written by FrameWriter.
type FrameReader struct {
	r         *bufio.Reader
	threshold int
	zr        io.ReadCloser

	// Capture support (optional)
	logger   log.Logger
	observer string
}

// NewFrameReader creates a frame reader with compression disabled.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: bufio.NewReader(r), threshold: CompressionDisabled}
}

// SetCompression sets the compression threshold. It must match the writer's.
func (fr *FrameReader) SetCompression(threshold int) {
	if threshold < 0 {
		threshold = CompressionDisabled
	}
	fr.threshold = threshold
}

// SetLogger configures capture for this reader.
// Pass nil to disable capture.
func (fr *FrameReader) SetLogger(logger log.Logger, observer string) {
	fr.logger = logger
	fr.observer = observer
}

// ReadPacket reads one frame and decodes its packet.
// Returns io.EOF when the stream ends cleanly between frames.
func (fr *FrameReader) ReadPacket() (wire.Packet, error) {
	length, err := wire.ReadVarInt(fr.r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return wire.Packet{}, io.EOF
		}
		return wire.Packet{}, fmt.Errorf("failed to read frame length: %w", err)
	}
	if length == 0 {
		return wire.Packet{}, ErrFrameEmpty
	}
	if length < 0 || length > MaxFrameSize {
		return wire.Packet{}, fmt.Errorf("%w: %d > %d", ErrFrameTooLarge, length, MaxFrameSize)
	}

	frame := make([]byte, length)
	if _, err := io.ReadFull(fr.r, frame); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return wire.Packet{}, ErrFrameTruncated
		}
		return wire.Packet{}, fmt.Errorf("failed to read frame: %w", err)
	}

	payload, compressed, err := fr.inflate(frame)
	if err != nil {
		return wire.Packet{}, err
	}
	p, err := wire.DecodePacket(payload)
	if err != nil {
		return wire.Packet{}, err
	}

	if fr.logger != nil {
		fr.logger.Log(makeFrameEvent(fr.observer, log.DirectionIn, p, wire.VarIntSize(length)+len(frame), compressed))
	}
	return p, nil
}

func (fr *FrameReader) inflate(frame []byte) ([]byte, bool, error) {
	if fr.threshold < 0 {
		return frame, false, nil
	}

	r := wire.NewReader(frame)
	size := r.VarInt()
	if err := r.Err(); err != nil {
		return nil, false, fmt.Errorf("failed to read data length: %w", err)
	}
	rest := r.Rest()
	if size == 0 {
		return rest, false, nil
	}
	if size < int32(fr.threshold) || size > MaxFrameSize*4 {
		return nil, false, fmt.Errorf("%w: data length %d", ErrBadCompression, size)
	}

	var err error
	if fr.zr == nil {
		fr.zr, err = zlib.NewReader(bytes.NewReader(rest))
	} else {
		err = fr.zr.(zlib.Resetter).Reset(bytes.NewReader(rest), nil)
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrBadCompression, err)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(fr.zr, payload); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrBadCompression, err)
	}
	return payload, true, nil
}
