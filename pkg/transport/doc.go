// Package transport provides the outbound side of an observer connection.
//
// A Conn is an ordered pipeline of named hooks in front of a PacketWriter.
// The host dispatches its packets through the pipeline; the highlight
// engine installs one hook per observer and sends its own packets below it.
//
// # Framing
//
//	┌────────────────────────────────────┐
//	│  VarInt packet ID + body           │
//	├────────────────────────────────────┤
//	│  VarInt data length + zlib         │  (only when compression is on)
//	├────────────────────────────────────┤
//	│  VarInt frame length               │
//	└────────────────────────────────────┘
//
// With compression enabled, bodies shorter than the threshold are sent with
// a data length of 0 and no zlib wrapping. Encryption is the host's concern
// and happens below this package.
package transport
