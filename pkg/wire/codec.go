package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

const (
	// MaxVarIntLen is the maximum encoded size of a VarInt.
	MaxVarIntLen = 5

	// MaxStringLength is the protocol limit for String fields, in bytes.
	MaxStringLength = 32767
)

// Codec errors.
var (
	// ErrVarIntTooBig indicates a VarInt longer than MaxVarIntLen bytes.
	ErrVarIntTooBig = errors.New("varint too big")

	// ErrShortBuffer indicates the body ended before a field was complete.
	ErrShortBuffer = errors.New("short buffer")

	// ErrStringTooLong indicates a String field above its length limit.
	ErrStringTooLong = errors.New("string too long")

	// ErrNegativeLength indicates a negative length prefix.
	ErrNegativeLength = errors.New("negative length")
)

// AppendVarInt appends v in the protocol's 7-bit little-endian encoding.
// Negative values always take MaxVarIntLen bytes.
func AppendVarInt(b []byte, v int32) []byte {
	u := uint32(v)
	for u >= 0x80 {
		b = append(b, byte(u)|0x80)
		u >>= 7
	}
	return append(b, byte(u))
}

// VarIntSize returns the encoded size of v.
func VarIntSize(v int32) int {
	u := uint32(v)
	n := 1
	for u >= 0x80 {
		u >>= 7
		n++
	}
	return n
}

// ReadVarInt reads a VarInt from a byte stream. It is used by the framing
// layer, where the body is not yet buffered.
func ReadVarInt(r io.ByteReader) (int32, error) {
	var result uint32
	for i := 0; i < MaxVarIntLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i > 0 && err == io.EOF {
				return 0, io.ErrUnexpectedEOF
			}
			return 0, err
		}
		result |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(result), nil
		}
	}
	return 0, ErrVarIntTooBig
}

// AppendString appends a VarInt length-prefixed UTF-8 string.
func AppendString(b []byte, s string) []byte {
	b = AppendVarInt(b, int32(len(s)))
	return append(b, s...)
}

// AppendUUID appends the 16 raw bytes of id.
func AppendUUID(b []byte, id uuid.UUID) []byte {
	return append(b, id[:]...)
}

// AppendInt16 appends a big-endian signed short.
func AppendInt16(b []byte, v int16) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(v))
}

// AppendInt32 appends a big-endian signed int.
func AppendInt32(b []byte, v int32) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(v))
}

// AppendFloat64 appends a big-endian IEEE 754 double.
func AppendFloat64(b []byte, v float64) []byte {
	return binary.BigEndian.AppendUint64(b, math.Float64bits(v))
}

// AppendAngle appends a rotation in degrees as a 1/256 turn byte.
func AppendAngle(b []byte, degrees float32) []byte {
	return append(b, byte(int32(degrees*256/360)))
}

// Reader decodes primitives from a packet body. The first failure is kept
// and every subsequent read returns a zero value.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader creates a Reader over b. The Reader never modifies b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

// Err returns the first decoding error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("at offset %d: %w", r.off, err)
	}
}

// take returns the next n bytes, or nil after recording ErrShortBuffer.
func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 {
		r.fail(ErrNegativeLength)
		return nil
	}
	if r.Remaining() < n {
		r.fail(ErrShortBuffer)
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// Skip discards n bytes.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Byte reads one unsigned byte.
func (r *Reader) Byte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// Bool reads a boolean byte.
func (r *Reader) Bool() bool {
	return r.Byte() != 0
}

// VarInt reads a VarInt.
func (r *Reader) VarInt() int32 {
	if r.err != nil {
		return 0
	}
	var result uint32
	for i := 0; i < MaxVarIntLen; i++ {
		if r.Remaining() == 0 {
			r.fail(ErrShortBuffer)
			return 0
		}
		b := r.buf[r.off]
		r.off++
		result |= uint32(b&0x7F) << (7 * i)
		if b&0x80 == 0 {
			return int32(result)
		}
	}
	r.fail(ErrVarIntTooBig)
	return 0
}

// String reads a VarInt length-prefixed string of at most max bytes.
func (r *Reader) String(max int) string {
	n := r.VarInt()
	if r.err != nil {
		return ""
	}
	if int(n) > max {
		r.fail(fmt.Errorf("%w: %d > %d", ErrStringTooLong, n, max))
		return ""
	}
	return string(r.take(int(n)))
}

// UUID reads 16 raw bytes.
func (r *Reader) UUID() uuid.UUID {
	var id uuid.UUID
	if b := r.take(16); b != nil {
		copy(id[:], b)
	}
	return id
}

// Uint16 reads a big-endian unsigned short.
func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// Int16 reads a big-endian signed short.
func (r *Reader) Int16() int16 {
	return int16(r.Uint16())
}

// Int32 reads a big-endian signed int.
func (r *Reader) Int32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

// Float64 reads a big-endian IEEE 754 double.
func (r *Reader) Float64() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

// Rest returns the unread bytes without copying.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.buf[r.off:]
	r.off = len(r.buf)
	return b
}
