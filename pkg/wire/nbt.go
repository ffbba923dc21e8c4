package wire

import (
	"errors"
	"fmt"
)

// NBT tag types used by network text components.
const (
	TagEnd       byte = 0
	TagByte      byte = 1
	TagShort     byte = 2
	TagInt       byte = 3
	TagLong      byte = 4
	TagFloat     byte = 5
	TagDouble    byte = 6
	TagByteArray byte = 7
	TagString    byte = 8
	TagList      byte = 9
	TagCompound  byte = 10
	TagIntArray  byte = 11
	TagLongArray byte = 12
)

// maxNBTDepth bounds nesting when skipping untrusted tags.
const maxNBTDepth = 512

// ErrInvalidNBT indicates a malformed or unsupported NBT tag.
var ErrInvalidNBT = errors.New("invalid nbt")

// AppendNBTString appends a nameless network NBT string tag, the encoding
// of a plain text component since text components moved to NBT.
// Only the ASCII subset of modified UTF-8 is produced, which is all the
// engine ever writes.
func AppendNBTString(b []byte, s string) []byte {
	b = append(b, TagString)
	b = append(b, byte(len(s)>>8), byte(len(s)))
	return append(b, s...)
}

// SkipNBT skips one nameless network NBT tag (type byte plus payload).
func (r *Reader) SkipNBT() {
	typ := r.Byte()
	if r.err != nil {
		return
	}
	r.skipNBTPayload(typ, 0)
}

func (r *Reader) skipNBTPayload(typ byte, depth int) {
	if r.err != nil {
		return
	}
	if depth > maxNBTDepth {
		r.fail(fmt.Errorf("%w: nesting deeper than %d", ErrInvalidNBT, maxNBTDepth))
		return
	}
	switch typ {
	case TagEnd:
	case TagByte:
		r.Skip(1)
	case TagShort:
		r.Skip(2)
	case TagInt, TagFloat:
		r.Skip(4)
	case TagLong, TagDouble:
		r.Skip(8)
	case TagByteArray:
		r.Skip(int(r.Int32()))
	case TagString:
		r.Skip(int(r.Uint16()))
	case TagList:
		elem := r.Byte()
		n := r.Int32()
		// Every element takes at least one byte except for TagEnd, which
		// is only valid in an empty list.
		if elem == TagEnd && n > 0 || int64(n) > int64(r.Remaining()) {
			r.fail(fmt.Errorf("%w: list of %d elements of type %d", ErrInvalidNBT, n, elem))
			return
		}
		for i := int32(0); i < n && r.err == nil; i++ {
			r.skipNBTPayload(elem, depth+1)
		}
	case TagCompound:
		for r.err == nil {
			child := r.Byte()
			if child == TagEnd {
				return
			}
			r.Skip(int(r.Uint16()))
			r.skipNBTPayload(child, depth+1)
		}
	case TagIntArray:
		r.Skip(4 * int(r.Int32()))
	case TagLongArray:
		r.Skip(8 * int(r.Int32()))
	default:
		r.fail(fmt.Errorf("%w: unknown tag type %d", ErrInvalidNBT, typ))
	}
}
