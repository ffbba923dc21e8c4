package glow

import (
	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/intercept"
	"github.com/glowkit/glow-go/pkg/registry"
	"github.com/glowkit/glow-go/pkg/transport"
	"github.com/glowkit/glow-go/pkg/wire"
)

// ObserverID identifies one observer connection.
type ObserverID = registry.ObserverID

// Entity identifies a highlightable entity.
type Entity struct {
	// ID is the network entity ID.
	ID int32

	// UUID is the entity's UUID.
	UUID uuid.UUID

	// PlayerName is set for players only.
	PlayerName string
}

// TeamEntry returns the string the entity is known by in team packets:
// the name for players, the UUID for everything else.
func (e Entity) TeamEntry() string {
	if e.PlayerName != "" {
		return e.PlayerName
	}
	return e.UUID.String()
}

// BlockPos is a block position in the observer's world.
type BlockPos struct {
	X, Y, Z int32
}

// Chunk returns the coordinates of the chunk containing p.
func (p BlockPos) Chunk() (x, z int32) {
	return p.X >> 4, p.Z >> 4
}

func hashBlockPos(p BlockPos) uint32 {
	return registry.HashInt32s(p.X, p.Y, p.Z)
}

// Host is what the engine needs to know about the host application.
type Host interface {
	// ProtocolVersion returns the protocol number the host speaks.
	ProtocolVersion() int32

	// SupportsBlockHighlight reports whether the host exposes the surface
	// the block extension needs.
	SupportsBlockHighlight() bool
}

// Conn is one observer connection. Implemented by *transport.Conn.
type Conn interface {
	intercept.Pipeline

	// Send writes packets below the hook pipeline, in order.
	Send(packets ...wire.Packet) error
}

var _ Conn = (*transport.Conn)(nil)
