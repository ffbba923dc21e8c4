package sim

import (
	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/wire"
)

// hostPackets builds the host's own clientbound packets. The engine never
// spawns ordinary entities, so these live with the host.
type hostPackets struct {
	ids        protocol.PacketIDs
	entityType int32
}

func newHostPackets(m *protocol.Manifest, entityType int32) hostPackets {
	return hostPackets{ids: m.Packets, entityType: entityType}
}

// spawn builds the spawn packet for an entity at (x, y, z). Players use the
// legacy player spawn packet where the protocol still has one.
func (h hostPackets) spawn(entityID int32, id uuid.UUID, player bool, x, y, z float64) wire.Packet {
	b := wire.AppendVarInt(nil, entityID)
	b = wire.AppendUUID(b, id)

	if player && h.ids.SpawnPlayer > 0 {
		b = wire.AppendFloat64(b, x)
		b = wire.AppendFloat64(b, y)
		b = wire.AppendFloat64(b, z)
		b = wire.AppendAngle(b, 0) // yaw
		b = wire.AppendAngle(b, 0) // pitch
		return wire.Packet{ID: h.ids.SpawnPlayer, Data: b}
	}

	b = wire.AppendVarInt(b, h.entityType)
	b = wire.AppendFloat64(b, x)
	b = wire.AppendFloat64(b, y)
	b = wire.AppendFloat64(b, z)
	b = wire.AppendAngle(b, 0) // pitch
	b = wire.AppendAngle(b, 0) // yaw
	b = wire.AppendAngle(b, 0) // head yaw
	b = wire.AppendVarInt(b, 0)
	b = wire.AppendInt16(b, 0)
	b = wire.AppendInt16(b, 0)
	b = wire.AppendInt16(b, 0)
	return wire.Packet{ID: h.ids.AddEntity, Data: b}
}

func (h hostPackets) remove(ids ...int32) wire.Packet {
	b := wire.AppendVarInt(nil, int32(len(ids)))
	for _, id := range ids {
		b = wire.AppendVarInt(b, id)
	}
	return wire.Packet{ID: h.ids.RemoveEntities, Data: b}
}

// chunkData stands in for a chunk payload: the client view ignores it and
// the engine only needs to hear that the region was sent.
func (h hostPackets) chunkData(cx, cz int32) wire.Packet {
	b := wire.AppendInt32(nil, cx)
	b = wire.AppendInt32(b, cz)
	return wire.Packet{ID: chunkPacketID, Data: b}
}

// chunkPacketID is outside every manifest's engine packet set.
const chunkPacketID = 0x7f
