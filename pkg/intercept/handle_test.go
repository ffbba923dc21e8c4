package intercept

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/metrics"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/registry"
	"github.com/glowkit/glow-go/pkg/team"
	"github.com/glowkit/glow-go/pkg/transport"
	"github.com/glowkit/glow-go/pkg/wire"
)

type fixture struct {
	cap        protocol.Capability
	highlights *registry.Registry[int32, registry.Highlight]
	events     []log.Event
	deps       Deps
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := protocol.Resolve(767)
	require.NoError(t, err)

	f := &fixture{
		cap:        c,
		highlights: registry.New[int32, registry.Highlight](registry.HashInt32),
	}
	f.deps = Deps{
		Capability: c,
		Highlights: f.highlights,
		Capture:    log.LoggerFunc(func(e log.Event) { f.events = append(f.events, e) }),
		Metrics:    metrics.New(metrics.WithRegistry(prometheus.NewRegistry())),
	}
	return f
}

func (f *fixture) attach(t *testing.T) (*transport.Conn, *transport.Recorder, *Handle) {
	t.Helper()
	rec := &transport.Recorder{}
	conn := transport.NewConn(rec, transport.ConnConfig{})
	h, err := Attach(conn, f.deps)
	require.NoError(t, err)
	return conn, rec, h
}

func (f *fixture) eventsOf(category log.Category) []log.Event {
	var out []log.Event
	for _, e := range f.events {
		if e.Category == category {
			out = append(out, e)
		}
	}
	return out
}

func flagsOf(t *testing.T, c protocol.Capability, p wire.Packet) byte {
	t.Helper()
	ref, err := c.EntityFlags(p.Data)
	require.NoError(t, err)
	require.True(t, ref.Present())
	return ref.Value(p.Data)
}

// ---------------------------------------------------------------------------
// Entity data
// ---------------------------------------------------------------------------

func TestEntityData_PassthroughWithoutEntry(t *testing.T) {
	f := newFixture(t)
	conn, rec, _ := f.attach(t)

	p := f.cap.EntityData(10, wire.FlagOnFire)
	require.NoError(t, conn.Dispatch(p))

	got := rec.Take()
	require.Len(t, got, 1)
	assert.Equal(t, p.Data, got[0].Data)
	assert.Empty(t, f.eventsOf(log.CategoryRewrite))
}

func TestEntityData_ForcesGlowPerObserver(t *testing.T) {
	f := newFixture(t)
	connA, recA, _ := f.attach(t)
	connB, recB, _ := f.attach(t)

	f.highlights.Set(10, connA.ID(), registry.Highlight{Enabled: true})

	// The host sends one shared body to both observers.
	p := f.cap.EntityData(10, wire.FlagCrouching)
	orig := bytes.Clone(p.Data)
	require.NoError(t, connA.Dispatch(p))
	require.NoError(t, connB.Dispatch(p))

	assert.Equal(t, wire.FlagCrouching|wire.FlagGlowing, flagsOf(t, f.cap, recA.Take()[0]))
	assert.Equal(t, wire.FlagCrouching, flagsOf(t, f.cap, recB.Take()[0]))
	assert.Equal(t, orig, p.Data, "shared body must not be modified")

	rewrites := f.eventsOf(log.CategoryRewrite)
	require.Len(t, rewrites, 1)
	assert.Equal(t, connA.ID().String(), rewrites[0].ObserverID)
	assert.Equal(t, wire.FlagCrouching, rewrites[0].Rewrite.Natural)
	assert.Equal(t, wire.FlagCrouching|wire.FlagGlowing, rewrites[0].Rewrite.Sent)
}

func TestEntityData_SuppressesNaturalGlow(t *testing.T) {
	f := newFixture(t)
	conn, rec, _ := f.attach(t)
	f.highlights.Set(10, conn.ID(), registry.Highlight{Enabled: false})

	require.NoError(t, conn.Dispatch(f.cap.EntityData(10, wire.FlagGlowing|wire.FlagOnFire)))
	assert.Equal(t, wire.FlagOnFire, flagsOf(t, f.cap, rec.Take()[0]))
}

func TestEntityData_AlreadyMatchingIsUntouched(t *testing.T) {
	f := newFixture(t)
	conn, rec, _ := f.attach(t)
	f.highlights.Set(10, conn.ID(), registry.Highlight{Enabled: true})

	p := f.cap.EntityData(10, wire.FlagGlowing)
	require.NoError(t, conn.Dispatch(p))
	assert.Equal(t, p.Data, rec.Take()[0].Data)
	assert.Empty(t, f.eventsOf(log.CategoryRewrite))
}

func TestEntityData_WithoutFlagsEntry(t *testing.T) {
	f := newFixture(t)
	conn, rec, h := f.attach(t)
	f.highlights.Set(9, conn.ID(), registry.Highlight{Enabled: true})

	// Index 5 (no gravity) only.
	body := append(wire.AppendVarInt(nil, 9), 5, 8, 1, wire.MetadataEnd)
	p := wire.Packet{ID: f.cap.EntityData(0, 0).ID, Data: body}
	require.NoError(t, conn.Dispatch(p))

	assert.Equal(t, body, rec.Take()[0].Data)
	_, visible := h.Visible(9)
	assert.False(t, visible)
}

func TestEntityData_MalformedIsForwarded(t *testing.T) {
	f := newFixture(t)
	conn, rec, _ := f.attach(t)

	p := wire.Packet{ID: f.cap.EntityData(0, 0).ID, Data: []byte{0x09}}
	require.NoError(t, conn.Dispatch(p))

	got := rec.Take()
	require.Len(t, got, 1)
	assert.Equal(t, p.Data, got[0].Data)

	errs := f.eventsOf(log.CategoryError)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error.Message, protocol.ErrProtocolAccess.Error())
	assert.Equal(t, "ENTITY_DATA", errs[0].Error.Context)
}

// ---------------------------------------------------------------------------
// Visibility tracking
// ---------------------------------------------------------------------------

func TestVisibilityTracking(t *testing.T) {
	f := newFixture(t)
	conn, _, h := f.attach(t)
	blocks, ok := f.cap.Blocks()
	require.True(t, ok)

	_, visible := h.Visible(77)
	assert.False(t, visible)

	require.NoError(t, conn.Dispatch(blocks.SpawnMarker(77, uuid.New(), 0, 0, 0)))
	flags, visible := h.Visible(77)
	assert.True(t, visible)
	assert.Equal(t, byte(0), flags)

	require.NoError(t, conn.Dispatch(f.cap.EntityData(77, wire.FlagSprinting)))
	flags, _ = h.Visible(77)
	assert.Equal(t, wire.FlagSprinting, flags)

	require.NoError(t, conn.Dispatch(blocks.RemoveEntities(5, 77)))
	_, visible = h.Visible(77)
	assert.False(t, visible)
}

// ---------------------------------------------------------------------------
// Teams
// ---------------------------------------------------------------------------

func decodeTeams(t *testing.T, c protocol.Capability, packets []wire.Packet) []protocol.TeamPacket {
	t.Helper()
	var out []protocol.TeamPacket
	for _, p := range packets {
		tp, err := c.DecodeTeam(p.Data)
		require.NoError(t, err)
		out = append(out, tp)
	}
	return out
}

func TestTeam_HostMembershipTracked(t *testing.T) {
	f := newFixture(t)
	conn, rec, h := f.attach(t)

	require.NoError(t, conn.Dispatch(f.cap.TeamCreate("red", protocol.Red)))
	require.NoError(t, conn.Dispatch(f.cap.TeamJoin("red", "Steve", "Alex")))
	name, ok := h.HostTeam("Steve")
	assert.True(t, ok)
	assert.Equal(t, "red", name)

	require.NoError(t, conn.Dispatch(f.cap.TeamLeave("red", "Steve")))
	_, ok = h.HostTeam("Steve")
	assert.False(t, ok)

	require.NoError(t, conn.Dispatch(f.cap.TeamRemove("red")))
	_, ok = h.HostTeam("Alex")
	assert.False(t, ok)

	assert.Len(t, rec.Take(), 4, "host team packets pass through")
}

func TestTeam_RejoinAfterHostJoin(t *testing.T) {
	f := newFixture(t)
	conn, rec, h := f.attach(t)
	h.MarkColored("Steve", protocol.Aqua)

	require.NoError(t, conn.Dispatch(f.cap.TeamJoin("red", "Steve", "Alex")))

	got := decodeTeams(t, f.cap, rec.Take())
	require.Len(t, got, 2)
	assert.Equal(t, "red", got[0].Name)
	assert.Equal(t, []string{"Steve", "Alex"}, got[0].Entries)
	assert.Equal(t, team.Name(protocol.Aqua), got[1].Name)
	assert.Equal(t, protocol.TeamModeJoin, got[1].Mode)
	assert.Equal(t, []string{"Steve"}, got[1].Entries)

	name, _ := h.HostTeam("Steve")
	assert.Equal(t, "red", name, "host membership is still recorded for restore")

	rejoins := f.eventsOf(log.CategoryTeam)
	require.NotEmpty(t, rejoins)
	assert.Equal(t, log.TeamRejoined, rejoins[len(rejoins)-1].Team.Action)
}

func TestTeam_LeaveOfColoredEntryFiltered(t *testing.T) {
	f := newFixture(t)
	conn, rec, h := f.attach(t)
	require.NoError(t, conn.Dispatch(f.cap.TeamJoin("red", "Steve", "Alex")))
	rec.Take()
	h.MarkColored("Steve", protocol.Aqua)

	require.NoError(t, conn.Dispatch(f.cap.TeamLeave("red", "Steve", "Alex")))
	got := decodeTeams(t, f.cap, rec.Take())
	require.Len(t, got, 1)
	assert.Equal(t, protocol.TeamModeLeave, got[0].Mode)
	assert.Equal(t, []string{"Alex"}, got[0].Entries)

	_, ok := h.HostTeam("Steve")
	assert.False(t, ok)

	// Only colored entries: dropped entirely.
	require.NoError(t, conn.Dispatch(f.cap.TeamJoin("red", "Steve")))
	rec.Take()
	require.NoError(t, conn.Dispatch(f.cap.TeamLeave("red", "Steve")))
	assert.Empty(t, rec.Take())

	h.UnmarkColored("Steve")
	require.NoError(t, conn.Dispatch(f.cap.TeamJoin("red", "Steve")))
	assert.Len(t, rec.Take(), 1, "no rejoin once uncolored")
}

func TestTeam_ReservedNamePassesAndIsReported(t *testing.T) {
	f := newFixture(t)
	conn, rec, _ := f.attach(t)

	p := f.cap.TeamRemove(team.Name(protocol.Red))
	require.NoError(t, conn.Dispatch(p))
	assert.Equal(t, p.Data, rec.Take()[0].Data)

	teamEvents := f.eventsOf(log.CategoryTeam)
	require.Len(t, teamEvents, 1)
	assert.Equal(t, log.TeamForeign, teamEvents[0].Team.Action)
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

func TestAttachTwiceFails(t *testing.T) {
	f := newFixture(t)
	conn, _, _ := f.attach(t)

	_, err := Attach(conn, f.deps)
	assert.ErrorIs(t, err, ErrAlreadyAttached)
}

func TestAttachRequiresDeps(t *testing.T) {
	conn := transport.NewConn(&transport.Recorder{}, transport.ConnConfig{})
	_, err := Attach(conn, Deps{})
	assert.Error(t, err)
	assert.Empty(t, conn.Hooks())
}

func TestDetach(t *testing.T) {
	f := newFixture(t)
	conn, rec, h := f.attach(t)
	f.highlights.Set(10, conn.ID(), registry.Highlight{Enabled: true})

	assert.True(t, h.Detach())
	assert.False(t, h.Detach(), "second detach is a no-op")
	assert.True(t, h.Detached())
	assert.Empty(t, conn.Hooks())

	p := f.cap.EntityData(10, 0)
	require.NoError(t, conn.Dispatch(p))
	assert.Equal(t, p.Data, rec.Take()[0].Data)

	// A packet already inside the hook after detach passes through.
	out := h.HandleOutbound(p, nil)
	require.Len(t, out, 1)
	assert.Equal(t, p.Data, out[0].Data)
}

func TestOtherPacketsPassThrough(t *testing.T) {
	f := newFixture(t)
	conn, rec, _ := f.attach(t)

	p := wire.Packet{ID: 0x24, Data: []byte{1, 2, 3}}
	require.NoError(t, conn.Dispatch(p))
	got := rec.Take()
	require.Len(t, got, 1)
	assert.Equal(t, p, got[0])
}
