package wire

import (
	"errors"
	"fmt"
)

// MetadataEnd terminates an entity metadata list.
const MetadataEnd byte = 0xFF

// Shared flag bits carried by the flags entry of every entity.
const (
	FlagOnFire    byte = 0x01
	FlagCrouching byte = 0x02
	FlagSprinting byte = 0x08
	FlagSwimming  byte = 0x10
	FlagInvisible byte = 0x20
	FlagGlowing   byte = 0x40
	FlagGliding   byte = 0x80
)

// ErrUnexpectedMetadata indicates that the flags index carries a value type
// other than the one the layout expects.
var ErrUnexpectedMetadata = errors.New("unexpected metadata entry type")

// FlagsLayout locates the shared-flags entry in an entity metadata list.
type FlagsLayout struct {
	// Index is the metadata index of the flags entry.
	Index byte

	// Type is the serializer ID of the entry's Byte value.
	Type int32
}

// FlagsRef is the result of locating the flags entry in a set_entity_data body.
type FlagsRef struct {
	// EntityID is the entity the metadata belongs to.
	EntityID int32

	// Offset is the position of the flags byte in the body, or -1 when the
	// packet does not carry the flags entry.
	Offset int
}

// Present reports whether the flags entry was found.
func (f FlagsRef) Present() bool {
	return f.Offset >= 0
}

// Value returns the flags byte of body. Present must be true.
func (f FlagsRef) Value(body []byte) byte {
	return body[f.Offset]
}

// Find locates the flags entry in a set_entity_data body.
//
// Entries are written in ascending index order, so only the first entry is
// inspected: if it is not the flags index the packet does not change flags.
// This keeps the check O(1) regardless of how many entries follow.
func (l FlagsLayout) Find(body []byte) (FlagsRef, error) {
	r := NewReader(body)
	ref := FlagsRef{EntityID: r.VarInt(), Offset: -1}
	index := r.Byte()
	if err := r.Err(); err != nil {
		return ref, fmt.Errorf("failed to read entity metadata: %w", err)
	}
	if index == MetadataEnd || index != l.Index {
		return ref, nil
	}

	typ := r.VarInt()
	offset := r.Offset()
	r.Skip(1)
	if err := r.Err(); err != nil {
		return ref, fmt.Errorf("failed to read flags entry: %w", err)
	}
	if typ != l.Type {
		return ref, fmt.Errorf("%w: index %d has type %d, want %d", ErrUnexpectedMetadata, index, typ, l.Type)
	}
	ref.Offset = offset
	return ref, nil
}

// SetFlag returns a copy of body with mask set or cleared at offset.
// The input slice is never written.
func SetFlag(body []byte, offset int, mask byte, on bool) []byte {
	out := make([]byte, len(body))
	copy(out, body)
	if on {
		out[offset] |= mask
	} else {
		out[offset] &^= mask
	}
	return out
}

// AppendFlagsMetadata appends a set_entity_data body that carries only the
// flags entry.
func (l FlagsLayout) AppendFlagsMetadata(b []byte, entityID int32, flags byte) []byte {
	b = AppendVarInt(b, entityID)
	b = append(b, l.Index)
	b = AppendVarInt(b, l.Type)
	b = append(b, flags)
	return append(b, MetadataEnd)
}
