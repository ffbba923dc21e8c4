package transport

import (
	"sync"
	"time"

	"github.com/glowkit/glow-go/pkg/wire"
)

// nowFunc is replaced in tests.
var nowFunc = time.Now

// PacketWriter writes whole packets to the network.
// Implemented by FrameWriter.
type PacketWriter interface {
	WritePacket(p wire.Packet) error
}

// PacketReader reads whole packets from the network.
// Implemented by FrameReader.
type PacketReader interface {
	ReadPacket() (wire.Packet, error)
}

// Recorder is a PacketWriter that keeps every packet in memory.
// The simulator and tests use it in place of a network stream.
type Recorder struct {
	mu      sync.Mutex
	packets []wire.Packet
}

// WritePacket records a copy of p.
func (r *Recorder) WritePacket(p wire.Packet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.packets = append(r.packets, p.Clone())
	return nil
}

// Packets returns the recorded packets.
func (r *Recorder) Packets() []wire.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.Packet, len(r.packets))
	copy(out, r.packets)
	return out
}

// Take returns the recorded packets and clears the recorder.
func (r *Recorder) Take() []wire.Packet {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.packets
	r.packets = nil
	return out
}

// Compile-time interface satisfaction checks.
var (
	_ PacketWriter = (*FrameWriter)(nil)
	_ PacketWriter = (*Recorder)(nil)
	_ PacketReader = (*FrameReader)(nil)
)
