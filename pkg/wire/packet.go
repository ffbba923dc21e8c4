package wire

import (
	"fmt"
)

// Packet is a play-state packet: its ID and undecoded body.
type Packet struct {
	ID   int32
	Data []byte
}

// Encode appends the VarInt packet ID followed by the body.
func (p Packet) Encode(dst []byte) []byte {
	dst = AppendVarInt(dst, p.ID)
	return append(dst, p.Data...)
}

// Size returns the encoded size of the packet.
func (p Packet) Size() int {
	return VarIntSize(p.ID) + len(p.Data)
}

// Clone returns a copy of the packet that shares no memory with p.
func (p Packet) Clone() Packet {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return Packet{ID: p.ID, Data: data}
}

// String returns a short description for logs.
func (p Packet) String() string {
	return fmt.Sprintf("packet(0x%02X, %d bytes)", p.ID, len(p.Data))
}

// DecodePacket splits an uncompressed frame payload into ID and body.
// The returned body aliases b.
func DecodePacket(b []byte) (Packet, error) {
	r := NewReader(b)
	id := r.VarInt()
	if err := r.Err(); err != nil {
		return Packet{}, fmt.Errorf("failed to decode packet id: %w", err)
	}
	return Packet{ID: id, Data: r.Rest()}, nil
}
