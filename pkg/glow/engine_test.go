package glow

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowkit/glow-go/pkg/glow/mocks"
	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/team"
	"github.com/glowkit/glow-go/pkg/transport"
	"github.com/glowkit/glow-go/pkg/wire"
)

const testProtocol = 767

type testHost struct {
	version int32
	blocks  bool
}

func (h testHost) ProtocolVersion() int32       { return h.version }
func (h testHost) SupportsBlockHighlight() bool { return h.blocks }

// client is one simulated observer connection.
type client struct {
	conn *transport.Conn
	rec  *transport.Recorder
}

func (c client) id() ObserverID { return c.conn.ID() }

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := Initialize(testHost{version: testProtocol, blocks: true}, DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown() })
	return e
}

func connect(t *testing.T, e *Engine) client {
	t.Helper()
	rec := &transport.Recorder{}
	c := client{conn: transport.NewConn(rec, transport.ConnConfig{}), rec: rec}
	require.NoError(t, e.OnObserverConnected(c.conn))
	return c
}

// spawn has the host show entity to c.
func spawn(t *testing.T, e *Engine, c client, entity Entity) {
	t.Helper()
	blocks, ok := e.cap.Blocks()
	require.True(t, ok)
	require.NoError(t, c.conn.Dispatch(blocks.SpawnMarker(entity.ID, entity.UUID, 0, 64, 0)))
}

// describe renders a packet for comparison in tests.
func describe(t *testing.T, c protocol.Capability, p wire.Packet) string {
	t.Helper()
	switch c.Kind(p.ID) {
	case protocol.KindTeam:
		tp, err := c.DecodeTeam(p.Data)
		require.NoError(t, err)
		if len(tp.Entries) > 0 {
			return fmt.Sprintf("team %s %q %v", tp.Mode, tp.Name, tp.Entries)
		}
		return fmt.Sprintf("team %s %q", tp.Mode, tp.Name)
	case protocol.KindEntityData:
		ref, err := c.EntityFlags(p.Data)
		require.NoError(t, err)
		require.True(t, ref.Present())
		return fmt.Sprintf("flags %d %#02x", ref.EntityID, ref.Value(p.Data))
	case protocol.KindAddEntity:
		s, err := c.DecodeSpawn(p.Data)
		require.NoError(t, err)
		return fmt.Sprintf("spawn %d", s.EntityID)
	case protocol.KindRemoveEntities:
		ids, err := c.DecodeRemove(p.Data)
		require.NoError(t, err)
		return fmt.Sprintf("remove %v", ids)
	default:
		return fmt.Sprintf("packet %#x", p.ID)
	}
}

// sent returns and clears what c's client received.
func sent(t *testing.T, e *Engine, c client) []string {
	t.Helper()
	var out []string
	for _, p := range c.rec.Take() {
		out = append(out, describe(t, e.cap, p))
	}
	return out
}

func teamCreate(color protocol.Color) string {
	return fmt.Sprintf("team CREATE %q", team.Name(color))
}

func teamRemove(color protocol.Color) string {
	return fmt.Sprintf("team REMOVE %q", team.Name(color))
}

func teamJoin(name string, entries ...string) string {
	return fmt.Sprintf("team JOIN %q %v", name, entries)
}

func teamLeave(name string, entries ...string) string {
	return fmt.Sprintf("team LEAVE %q %v", name, entries)
}

func flags(id int32, v byte) string {
	return fmt.Sprintf("flags %d %#02x", id, v)
}

func newEntity(id int32, player string) Entity {
	return Entity{ID: id, UUID: uuid.New(), PlayerName: player}
}

// ---------------------------------------------------------------------------
// Initialize
// ---------------------------------------------------------------------------

func TestInitialize(t *testing.T) {
	host := mocks.NewMockHost(t)
	host.EXPECT().ProtocolVersion().Return(int32(testProtocol))
	host.EXPECT().SupportsBlockHighlight().Return(true)

	e, err := Initialize(host, DefaultConfig())
	require.NoError(t, err)
	defer e.Shutdown()

	assert.True(t, e.Available())
	assert.True(t, e.BlockCapabilityAvailable())
	assert.Equal(t, int32(testProtocol), e.Capability().Version())
}

func TestInitializeUnsupportedVersion(t *testing.T) {
	host := mocks.NewMockHost(t)
	host.EXPECT().ProtocolVersion().Return(int32(47))

	e, err := Initialize(host, DefaultConfig())
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
	assert.Nil(t, e)
	assert.False(t, e.Available())
}

func TestInitializeWithoutBlockSupport(t *testing.T) {
	host := mocks.NewMockHost(t)
	host.EXPECT().ProtocolVersion().Return(int32(testProtocol))
	host.EXPECT().SupportsBlockHighlight().Return(false)

	e, err := Initialize(host, DefaultConfig())
	require.NoError(t, err)
	defer e.Shutdown()

	assert.True(t, e.Available())
	assert.False(t, e.BlockCapabilityAvailable())
}

func TestInitializeDisableBlocks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableBlocks = true
	e, err := Initialize(testHost{version: testProtocol, blocks: true}, cfg)
	require.NoError(t, err)
	defer e.Shutdown()

	assert.False(t, e.BlockCapabilityAvailable())
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())

	cfg.MarkerIDBase = 0
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	_, err := Initialize(testHost{version: testProtocol}, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

// ---------------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------------

func TestShutdown(t *testing.T) {
	var events []log.Event
	cfg := DefaultConfig()
	cfg.Capture = log.LoggerFunc(func(ev log.Event) { events = append(events, ev) })
	e, err := Initialize(testHost{version: testProtocol, blocks: true}, cfg)
	require.NoError(t, err)

	c := connect(t, e)
	steve := newEntity(10, "Steve")
	spawn(t, e, c, steve)
	require.NoError(t, e.SetHighlight(steve, c.id(), protocol.Red.Ptr()))
	require.NoError(t, e.SetBlockHighlight(BlockPos{1, 64, 1}, c.id(), protocol.Green))
	c.rec.Take()

	require.NoError(t, e.Shutdown())

	got := sent(t, e, c)
	require.Len(t, got, 4)
	assert.Equal(t, fmt.Sprintf("remove [%d]", int32(DefaultConfig().MarkerIDBase)), got[0])
	assert.Equal(t, teamRemove(protocol.Green), got[1])
	assert.Equal(t, teamRemove(protocol.Red), got[2])
	assert.Equal(t, flags(10, 0), got[3])

	assert.False(t, e.Available())
	assert.False(t, e.BlockCapabilityAvailable())
	assert.Empty(t, c.conn.Hooks())
	assert.Equal(t, 0, e.entities.Len())
	assert.Equal(t, 0, e.markers.Len())
	assert.Empty(t, e.teams.Observers())
	assert.Empty(t, e.Observers())

	// Idempotent.
	require.NoError(t, e.Shutdown())
	assert.Empty(t, c.rec.Take())

	assert.Equal(t, log.CategoryState, events[len(events)-1].Category)
	assert.Equal(t, "STOPPED", events[len(events)-1].StateChange.NewState)
}

func TestOperationsAfterShutdown(t *testing.T) {
	e, err := Initialize(testHost{version: testProtocol, blocks: true}, DefaultConfig())
	require.NoError(t, err)
	c := connect(t, e)
	require.NoError(t, e.Shutdown())

	steve := newEntity(10, "Steve")
	assert.ErrorIs(t, e.SetHighlight(steve, c.id(), nil), ErrEngineClosed)
	assert.ErrorIs(t, e.SuppressHighlight(steve, c.id()), ErrEngineClosed)
	assert.ErrorIs(t, e.ClearHighlight(10, c.id()), ErrEngineClosed)
	assert.ErrorIs(t, e.SetBlockHighlight(BlockPos{}, c.id(), protocol.Red), ErrEngineClosed)
	assert.ErrorIs(t, e.ClearBlockHighlight(BlockPos{}, c.id()), ErrEngineClosed)
	assert.ErrorIs(t, e.OnRegionSent(c.id(), 0, 0), ErrEngineClosed)
	assert.ErrorIs(t, e.OnObserverConnected(c.conn), ErrEngineClosed)
	assert.ErrorIs(t, e.OnObserverDisconnected(c.id()), ErrEngineClosed)
	assert.ErrorIs(t, e.OnEntityRemoved(10), ErrEngineClosed)
	assert.ErrorIs(t, e.OnBlockRemoved(BlockPos{}), ErrEngineClosed)

	_, err = e.Highlight(10, c.id())
	assert.ErrorIs(t, err, ErrEngineClosed)
	_, err = e.Highlights(c.id())
	assert.ErrorIs(t, err, ErrEngineClosed)
	_, err = e.BlockHighlight(BlockPos{}, c.id())
	assert.ErrorIs(t, err, ErrEngineClosed)

	assert.Equal(t, 0, e.entities.Len())
	assert.Empty(t, c.rec.Take())
}

func TestZeroEngineHasNoCapability(t *testing.T) {
	var e Engine
	assert.False(t, e.Available())
	assert.ErrorIs(t, e.ClearHighlight(1, uuid.New()), ErrProtocolAccess)
}
