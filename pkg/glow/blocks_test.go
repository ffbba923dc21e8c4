package glow

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/team"
)

func markerOf(t *testing.T, e *Engine, pos BlockPos, c client) marker {
	t.Helper()
	m, ok := e.markers.Get(pos, c.id())
	require.True(t, ok)
	return m
}

func TestBlockPosChunk(t *testing.T) {
	tests := []struct {
		pos    BlockPos
		cx, cz int32
	}{
		{BlockPos{0, 64, 0}, 0, 0},
		{BlockPos{15, 0, 15}, 0, 0},
		{BlockPos{16, 0, -1}, 1, -1},
		{BlockPos{-17, 0, 33}, -2, 2},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.pos), func(t *testing.T) {
			cx, cz := tt.pos.Chunk()
			assert.Equal(t, tt.cx, cx)
			assert.Equal(t, tt.cz, cz)
		})
	}
}

func TestSetBlockHighlight(t *testing.T) {
	e := newTestEngine(t)
	a := connect(t, e)
	b := connect(t, e)
	pos := BlockPos{17, 64, -3}

	require.NoError(t, e.SetBlockHighlight(pos, a.id(), protocol.Green))

	m := markerOf(t, e, pos, a)
	assert.Equal(t, DefaultConfig().MarkerIDBase, m.EntityID)
	assert.Equal(t, []string{
		teamCreate(protocol.Green),
		teamJoin(team.Name(protocol.Green), m.UUID.String()),
		fmt.Sprintf("spawn %d", m.EntityID),
		flags(m.EntityID, 0x60),
	}, sent(t, e, a))
	assert.Empty(t, b.rec.Take())

	color, err := e.BlockHighlight(pos, a.id())
	require.NoError(t, err)
	assert.Equal(t, protocol.Green, color)
	_, err = e.BlockHighlight(pos, b.id())
	assert.ErrorIs(t, err, ErrNoHighlight)

	// Setting the same color again changes nothing.
	require.NoError(t, e.SetBlockHighlight(pos, a.id(), protocol.Green))
	assert.Empty(t, a.rec.Take())
}

func TestBlockMarkerIDsCountDown(t *testing.T) {
	e := newTestEngine(t)
	a := connect(t, e)

	require.NoError(t, e.SetBlockHighlight(BlockPos{0, 0, 0}, a.id(), protocol.Red))
	require.NoError(t, e.SetBlockHighlight(BlockPos{1, 0, 0}, a.id(), protocol.Red))

	first := markerOf(t, e, BlockPos{0, 0, 0}, a)
	second := markerOf(t, e, BlockPos{1, 0, 0}, a)
	assert.Equal(t, first.EntityID-1, second.EntityID)
	assert.NotEqual(t, first.UUID, second.UUID)
	assert.Equal(t, 2, e.teams.Refs(a.id(), protocol.Red))
}

func TestBlockHighlightSurvivesRegionReload(t *testing.T) {
	e := newTestEngine(t)
	a := connect(t, e)
	pos := BlockPos{17, 64, -3}
	require.NoError(t, e.SetBlockHighlight(pos, a.id(), protocol.Green))
	m := markerOf(t, e, pos, a)
	a.rec.Take()

	require.NoError(t, e.OnRegionSent(a.id(), 1, -1))
	assert.Equal(t, []string{
		fmt.Sprintf("spawn %d", m.EntityID),
		flags(m.EntityID, 0x60),
	}, sent(t, e, a))

	require.NoError(t, e.OnRegionSent(a.id(), 0, 0))
	assert.Empty(t, a.rec.Take())

	// The team survives a reload, so no team traffic is repeated.
	assert.Equal(t, 1, e.teams.Refs(a.id(), protocol.Green))
}

func TestBlockRecolor(t *testing.T) {
	e := newTestEngine(t)
	a := connect(t, e)
	pos := BlockPos{1, 2, 3}
	require.NoError(t, e.SetBlockHighlight(pos, a.id(), protocol.Green))
	before := markerOf(t, e, pos, a)
	a.rec.Take()

	require.NoError(t, e.SetBlockHighlight(pos, a.id(), protocol.Yellow))
	after := markerOf(t, e, pos, a)
	assert.Equal(t, before.EntityID, after.EntityID)
	assert.Equal(t, protocol.Yellow, after.Color)
	assert.Equal(t, []string{
		teamRemove(protocol.Green),
		teamCreate(protocol.Yellow),
		teamJoin(team.Name(protocol.Yellow), after.UUID.String()),
	}, sent(t, e, a))
}

func TestClearBlockHighlight(t *testing.T) {
	e := newTestEngine(t)
	a := connect(t, e)
	pos := BlockPos{1, 2, 3}
	require.NoError(t, e.SetBlockHighlight(pos, a.id(), protocol.Green))
	m := markerOf(t, e, pos, a)
	a.rec.Take()

	require.NoError(t, e.ClearBlockHighlight(pos, a.id()))
	assert.Equal(t, []string{
		fmt.Sprintf("remove [%d]", m.EntityID),
		teamRemove(protocol.Green),
	}, sent(t, e, a))
	_, err := e.BlockHighlight(pos, a.id())
	assert.ErrorIs(t, err, ErrNoHighlight)

	require.NoError(t, e.ClearBlockHighlight(pos, a.id()))
	assert.Empty(t, a.rec.Take())

	// A cleared marker is not respawned.
	require.NoError(t, e.OnRegionSent(a.id(), 0, 0))
	assert.Empty(t, a.rec.Take())
}

func TestOnBlockRemoved(t *testing.T) {
	e := newTestEngine(t)
	a := connect(t, e)
	b := connect(t, e)
	pos := BlockPos{5, 5, 5}
	require.NoError(t, e.SetBlockHighlight(pos, a.id(), protocol.Red))
	require.NoError(t, e.SetBlockHighlight(pos, b.id(), protocol.Blue))
	ma, mb := markerOf(t, e, pos, a), markerOf(t, e, pos, b)
	a.rec.Take()
	b.rec.Take()

	require.NoError(t, e.OnBlockRemoved(pos))
	assert.Equal(t, []string{fmt.Sprintf("remove [%d]", ma.EntityID), teamRemove(protocol.Red)}, sent(t, e, a))
	assert.Equal(t, []string{fmt.Sprintf("remove [%d]", mb.EntityID), teamRemove(protocol.Blue)}, sent(t, e, b))
	assert.Equal(t, 0, e.markers.Len())
}

func TestBlockCapabilityUnavailable(t *testing.T) {
	e, err := Initialize(testHost{version: testProtocol, blocks: false}, DefaultConfig())
	require.NoError(t, err)
	defer e.Shutdown()
	a := connect(t, e)
	pos := BlockPos{1, 2, 3}

	assert.ErrorIs(t, e.SetBlockHighlight(pos, a.id(), protocol.Red), ErrCapabilityUnavailable)
	assert.ErrorIs(t, e.ClearBlockHighlight(pos, a.id()), ErrCapabilityUnavailable)
	assert.ErrorIs(t, e.OnRegionSent(a.id(), 0, 0), ErrCapabilityUnavailable)
	assert.ErrorIs(t, e.OnBlockRemoved(pos), ErrCapabilityUnavailable)

	assert.Equal(t, 0, e.markers.Len())
	assert.Empty(t, e.teams.Tokens(a.id()))
	assert.Empty(t, a.rec.Take())

	// Entity highlights still work.
	require.NoError(t, e.SetHighlight(newEntity(1, "Steve"), a.id(), protocol.Red.Ptr()))
}

func TestSetBlockHighlightErrors(t *testing.T) {
	e := newTestEngine(t)
	a := connect(t, e)

	assert.ErrorIs(t, e.SetBlockHighlight(BlockPos{}, a.id(), protocol.Color(16)), ErrInvalidColor)
	assert.ErrorIs(t, e.SetBlockHighlight(BlockPos{}, ObserverID{1}, protocol.Red), ErrUnknownObserver)
	assert.Equal(t, 0, e.markers.Len())
}
