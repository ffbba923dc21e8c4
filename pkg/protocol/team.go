package protocol

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/wire"
)

// TeamMode is the operation of a set_player_team packet.
type TeamMode byte

const (
	TeamModeCreate TeamMode = 0
	TeamModeRemove TeamMode = 1
	TeamModeUpdate TeamMode = 2
	TeamModeJoin   TeamMode = 3
	TeamModeLeave  TeamMode = 4
)

// String returns the mode name.
func (m TeamMode) String() string {
	switch m {
	case TeamModeCreate:
		return "CREATE"
	case TeamModeRemove:
		return "REMOVE"
	case TeamModeUpdate:
		return "UPDATE"
	case TeamModeJoin:
		return "JOIN"
	case TeamModeLeave:
		return "LEAVE"
	default:
		return "UNKNOWN"
	}
}

// HasInfo reports whether packets of this mode carry team properties.
func (m TeamMode) HasInfo() bool {
	return m == TeamModeCreate || m == TeamModeUpdate
}

// HasEntries reports whether packets of this mode carry an entry list.
func (m TeamMode) HasEntries() bool {
	return m == TeamModeCreate || m == TeamModeJoin || m == TeamModeLeave
}

// TeamPacket is a decoded set_player_team packet. Only the fields the engine
// needs are kept.
type TeamPacket struct {
	Name string
	Mode TeamMode

	// Color is the team color ordinal (TeamColorReset for none).
	// Set only for modes with team info.
	Color int32

	// Entries are player names or entity UUID strings.
	Entries []string
}

// Team property values written for engine teams.
const (
	teamVisibilityAlways = "always"
	teamCollisionAlways  = "always"
	maxTeamRuleLength    = 40
	maxJSONTextLength    = 262144
)

func (c *manifestCapability) appendText(b []byte, s string) []byte {
	if c.m.TextComponents == TextNBT {
		return wire.AppendNBTString(b, s)
	}
	return wire.AppendString(b, fmt.Sprintf("{%q:%q}", "text", s))
}

func (c *manifestCapability) skipText(r *wire.Reader) {
	if c.m.TextComponents == TextNBT {
		r.SkipNBT()
		return
	}
	r.String(maxJSONTextLength)
}

func (c *manifestCapability) appendTeamInfo(b []byte, color Color) []byte {
	// display name, friendly flags
	b = c.appendText(b, "")
	b = append(b, 0)
	b = wire.AppendString(b, teamVisibilityAlways)
	b = wire.AppendString(b, teamCollisionAlways)
	b = wire.AppendVarInt(b, int32(color))
	// prefix, suffix
	b = c.appendText(b, "")
	return c.appendText(b, "")
}

func appendEntries(b []byte, entries []string) []byte {
	b = wire.AppendVarInt(b, int32(len(entries)))
	for _, e := range entries {
		b = wire.AppendString(b, e)
	}
	return b
}

func (c *manifestCapability) team(name string, mode TeamMode) []byte {
	b := wire.AppendString(nil, name)
	return append(b, byte(mode))
}

func (c *manifestCapability) TeamCreate(name string, color Color) wire.Packet {
	b := c.team(name, TeamModeCreate)
	b = c.appendTeamInfo(b, color)
	b = appendEntries(b, nil)
	return wire.Packet{ID: c.m.Packets.SetPlayerTeam, Data: b}
}

func (c *manifestCapability) TeamUpdate(name string, color Color) wire.Packet {
	b := c.team(name, TeamModeUpdate)
	b = c.appendTeamInfo(b, color)
	return wire.Packet{ID: c.m.Packets.SetPlayerTeam, Data: b}
}

func (c *manifestCapability) TeamRemove(name string) wire.Packet {
	return wire.Packet{ID: c.m.Packets.SetPlayerTeam, Data: c.team(name, TeamModeRemove)}
}

func (c *manifestCapability) TeamJoin(name string, entries ...string) wire.Packet {
	b := c.team(name, TeamModeJoin)
	return wire.Packet{ID: c.m.Packets.SetPlayerTeam, Data: appendEntries(b, entries)}
}

func (c *manifestCapability) TeamLeave(name string, entries ...string) wire.Packet {
	b := c.team(name, TeamModeLeave)
	return wire.Packet{ID: c.m.Packets.SetPlayerTeam, Data: appendEntries(b, entries)}
}

func (c *manifestCapability) DecodeTeam(body []byte) (TeamPacket, error) {
	r := wire.NewReader(body)
	t := TeamPacket{
		Name:  r.String(wire.MaxStringLength),
		Mode:  TeamMode(r.Byte()),
		Color: TeamColorReset,
	}
	if err := r.Err(); err != nil {
		return TeamPacket{}, fmt.Errorf("failed to decode team header: %w", err)
	}
	if t.Mode > TeamModeLeave {
		return TeamPacket{}, fmt.Errorf("failed to decode team %q: unknown mode %d", t.Name, t.Mode)
	}

	if t.Mode.HasInfo() {
		c.skipText(r) // display name
		r.Byte()      // friendly flags
		r.String(maxTeamRuleLength)
		r.String(maxTeamRuleLength)
		t.Color = r.VarInt()
		c.skipText(r) // prefix
		c.skipText(r) // suffix
	}
	if t.Mode.HasEntries() {
		n := r.VarInt()
		if r.Err() == nil && (n < 0 || int(n) > r.Remaining()) {
			return TeamPacket{}, fmt.Errorf("failed to decode team %q: bad entry count %d", t.Name, n)
		}
		t.Entries = make([]string, 0, n)
		for i := int32(0); i < n && r.Err() == nil; i++ {
			t.Entries = append(t.Entries, r.String(wire.MaxStringLength))
		}
	}
	if err := r.Err(); err != nil {
		return TeamPacket{}, fmt.Errorf("failed to decode team %q: %w", t.Name, err)
	}
	return t, nil
}

func appendAddEntity(b []byte, entityID int32, id uuid.UUID, typ int32, x, y, z float64) []byte {
	b = wire.AppendVarInt(b, entityID)
	b = wire.AppendUUID(b, id)
	b = wire.AppendVarInt(b, typ)
	b = wire.AppendFloat64(b, x)
	b = wire.AppendFloat64(b, y)
	b = wire.AppendFloat64(b, z)
	b = wire.AppendAngle(b, 0) // pitch
	b = wire.AppendAngle(b, 0) // yaw
	b = wire.AppendAngle(b, 0) // head yaw
	b = wire.AppendVarInt(b, 0)
	b = wire.AppendInt16(b, 0)
	b = wire.AppendInt16(b, 0)
	return wire.AppendInt16(b, 0)
}
