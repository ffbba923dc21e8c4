package protocol

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/wire"
)

// Capability errors.
var (
	// ErrUnsupportedVersion is returned when no complete capability can be
	// built for the running protocol version.
	ErrUnsupportedVersion = errors.New("unsupported protocol version")

	// ErrProtocolAccess is returned when a packet cannot be decoded or built
	// with the resolved capability.
	ErrProtocolAccess = errors.New("protocol access failed")
)

// PacketKind classifies an outbound packet for the interceptor.
type PacketKind uint8

const (
	// KindOther is any packet the engine does not touch.
	KindOther PacketKind = iota
	// KindEntityData is set_entity_data.
	KindEntityData
	// KindTeam is set_player_team.
	KindTeam
	// KindAddEntity is add_entity.
	KindAddEntity
	// KindSpawnPlayer is the legacy player spawn packet.
	KindSpawnPlayer
	// KindRemoveEntities is remove_entities.
	KindRemoveEntities
)

// String returns the kind name.
func (k PacketKind) String() string {
	switch k {
	case KindOther:
		return "OTHER"
	case KindEntityData:
		return "ENTITY_DATA"
	case KindTeam:
		return "TEAM"
	case KindAddEntity:
		return "ADD_ENTITY"
	case KindSpawnPlayer:
		return "SPAWN_PLAYER"
	case KindRemoveEntities:
		return "REMOVE_ENTITIES"
	default:
		return "UNKNOWN"
	}
}

// Capability is the fixed protocol surface the engine is built on.
// Implementations are immutable and safe for concurrent use.
type Capability interface {
	// Version returns the protocol number.
	Version() int32

	// Release returns the game release name, for logs.
	Release() string

	// Kind classifies a packet ID.
	Kind(packetID int32) PacketKind

	// EntityFlags locates the flags entry of a set_entity_data body.
	EntityFlags(body []byte) (wire.FlagsRef, error)

	// WithGlowing returns p with the glowing bit set to glowing. p is not
	// modified; the returned packet has its own body.
	WithGlowing(p wire.Packet, ref wire.FlagsRef, glowing bool) wire.Packet

	// EntityData builds a set_entity_data packet carrying only flags.
	EntityData(entityID int32, flags byte) wire.Packet

	// TeamCreate builds a team creation packet with no entries.
	TeamCreate(name string, color Color) wire.Packet

	// TeamUpdate builds a team info update packet.
	TeamUpdate(name string, color Color) wire.Packet

	// TeamRemove builds a team removal packet.
	TeamRemove(name string) wire.Packet

	// TeamJoin builds an add-entries packet.
	TeamJoin(name string, entries ...string) wire.Packet

	// TeamLeave builds a remove-entries packet.
	TeamLeave(name string, entries ...string) wire.Packet

	// DecodeTeam decodes a set_player_team body.
	DecodeTeam(body []byte) (TeamPacket, error)

	// DecodeSpawn decodes the entity ID and UUID of add_entity or the
	// legacy player spawn packet.
	DecodeSpawn(body []byte) (Spawn, error)

	// DecodeRemove decodes the entity IDs of remove_entities.
	DecodeRemove(body []byte) ([]int32, error)

	// Blocks returns the block extension, if the manifest supports it.
	Blocks() (BlockCapability, bool)
}

// BlockCapability is the protocol surface of the block-highlight extension.
type BlockCapability interface {
	// SpawnMarker builds the add_entity packet of a marker entity occupying
	// the block at (x, y, z).
	SpawnMarker(entityID int32, id uuid.UUID, x, y, z int32) wire.Packet

	// MarkerFlags returns the shared flags a marker is shown with.
	MarkerFlags() byte

	// RemoveEntities builds a remove_entities packet.
	RemoveEntities(ids ...int32) wire.Packet
}

// Spawn is the decoded prefix of an entity spawn packet.
type Spawn struct {
	EntityID int32
	UUID     uuid.UUID
}

// ---------------------------------------------------------------------------
// Resolution cache
// ---------------------------------------------------------------------------

type resolution struct {
	cap Capability
	err error
}

var (
	cacheMu sync.Mutex
	cache   = make(map[int32]resolution)
)

// Resolve returns the capability for a protocol version. The first call for
// a version does the work; later calls return the cached outcome, including
// a cached failure.
func Resolve(version int32) (Capability, error) {
	cacheMu.Lock()
	defer cacheMu.Unlock()

	if res, ok := cache[version]; ok {
		return res.cap, res.err
	}

	var res resolution
	m, err := LoadManifest(version)
	if err != nil {
		res.err = fmt.Errorf("%w: %v", ErrUnsupportedVersion, err)
	} else {
		res.cap = newCapability(m)
	}
	cache[version] = res
	return res.cap, res.err
}

// ---------------------------------------------------------------------------
// Manifest-backed implementation
// ---------------------------------------------------------------------------

// manifestCapability implements Capability and BlockCapability from a Manifest.
type manifestCapability struct {
	m      Manifest
	kinds  map[int32]PacketKind
	flags  wire.FlagsLayout
	blocks bool
}

func newCapability(m *Manifest) *manifestCapability {
	c := &manifestCapability{
		m: *m,
		kinds: map[int32]PacketKind{
			m.Packets.AddEntity:      KindAddEntity,
			m.Packets.RemoveEntities: KindRemoveEntities,
			m.Packets.SetEntityData:  KindEntityData,
			m.Packets.SetPlayerTeam:  KindTeam,
		},
		flags: wire.FlagsLayout{
			Index: m.Metadata.FlagsIndex,
			Type:  m.Metadata.ByteType,
		},
		blocks: m.Entities.Shulker > 0,
	}
	if m.Packets.SpawnPlayer > 0 {
		c.kinds[m.Packets.SpawnPlayer] = KindSpawnPlayer
	}
	return c
}

func (c *manifestCapability) Version() int32 { return c.m.Protocol }

func (c *manifestCapability) Release() string { return c.m.Release }

func (c *manifestCapability) Kind(packetID int32) PacketKind {
	return c.kinds[packetID]
}

func (c *manifestCapability) EntityFlags(body []byte) (wire.FlagsRef, error) {
	return c.flags.Find(body)
}

func (c *manifestCapability) WithGlowing(p wire.Packet, ref wire.FlagsRef, glowing bool) wire.Packet {
	return wire.Packet{
		ID:   p.ID,
		Data: wire.SetFlag(p.Data, ref.Offset, wire.FlagGlowing, glowing),
	}
}

func (c *manifestCapability) EntityData(entityID int32, flags byte) wire.Packet {
	return wire.Packet{
		ID:   c.m.Packets.SetEntityData,
		Data: c.flags.AppendFlagsMetadata(nil, entityID, flags),
	}
}

func (c *manifestCapability) Blocks() (BlockCapability, bool) {
	if !c.blocks {
		return nil, false
	}
	return c, true
}

func (c *manifestCapability) SpawnMarker(entityID int32, id uuid.UUID, x, y, z int32) wire.Packet {
	return wire.Packet{
		ID:   c.m.Packets.AddEntity,
		Data: appendAddEntity(nil, entityID, id, c.m.Entities.Shulker, float64(x)+0.5, float64(y), float64(z)+0.5),
	}
}

func (c *manifestCapability) MarkerFlags() byte {
	return wire.FlagInvisible | wire.FlagGlowing
}

func (c *manifestCapability) RemoveEntities(ids ...int32) wire.Packet {
	b := wire.AppendVarInt(nil, int32(len(ids)))
	for _, id := range ids {
		b = wire.AppendVarInt(b, id)
	}
	return wire.Packet{ID: c.m.Packets.RemoveEntities, Data: b}
}

func (c *manifestCapability) DecodeSpawn(body []byte) (Spawn, error) {
	r := wire.NewReader(body)
	s := Spawn{EntityID: r.VarInt(), UUID: r.UUID()}
	if err := r.Err(); err != nil {
		return Spawn{}, fmt.Errorf("failed to decode spawn: %w", err)
	}
	return s, nil
}

func (c *manifestCapability) DecodeRemove(body []byte) ([]int32, error) {
	r := wire.NewReader(body)
	n := r.VarInt()
	if n < 0 || int(n) > r.Remaining() {
		return nil, fmt.Errorf("failed to decode remove_entities: bad count %d", n)
	}
	ids := make([]int32, 0, n)
	for i := int32(0); i < n; i++ {
		ids = append(ids, r.VarInt())
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode remove_entities: %w", err)
	}
	return ids, nil
}

// Compile-time interface satisfaction checks.
var (
	_ Capability      = (*manifestCapability)(nil)
	_ BlockCapability = (*manifestCapability)(nil)
)
