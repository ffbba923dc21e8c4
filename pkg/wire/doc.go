// Package wire implements the binary primitives of the block-game play
// protocol that the highlight engine reads and writes.
//
// The engine never decodes whole packets. It only needs a handful of
// primitives (VarInt, String, UUID, big-endian numbers, network NBT) and
// the layout of the entity metadata list, which is enough to find and patch
// the shared-flags byte that carries the glowing bit.
//
// # Packets
//
// A Packet is a packet ID plus its undecoded body. Bodies may be shared by
// the host between several connections (one encode, many sends), so every
// rewrite in this package returns a fresh slice and never writes into the
// body it was given.
//
// # Decoding
//
// Reader records the first error and turns every later read into a no-op
// returning the zero value, so a structure can be decoded field by field
// and checked once:
//
//	r := wire.NewReader(p.Data)
//	id := r.VarInt()
//	name := r.String(wire.MaxStringLength)
//	if err := r.Err(); err != nil {
//	    return err
//	}
package wire
