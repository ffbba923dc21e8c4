package team

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/wire"
)

type sink struct {
	mu      sync.Mutex
	packets []wire.Packet
	err     error
}

func (s *sink) send(packets ...wire.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.packets = append(s.packets, packets...)
	return nil
}

func (s *sink) take() []wire.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.packets
	s.packets = nil
	return out
}

func newTestManager(t *testing.T) (*Manager, protocol.Capability) {
	t.Helper()
	capability, err := protocol.Resolve(767)
	require.NoError(t, err)
	return NewManager(capability, Config{}), capability
}

func decodeAll(t *testing.T, c protocol.Capability, packets []wire.Packet) []protocol.TeamPacket {
	t.Helper()
	out := make([]protocol.TeamPacket, 0, len(packets))
	for _, p := range packets {
		require.Equal(t, protocol.KindTeam, c.Kind(p.ID))
		tp, err := c.DecodeTeam(p.Data)
		require.NoError(t, err)
		out = append(out, tp)
	}
	return out
}

func TestNames(t *testing.T) {
	name := Name(protocol.DarkRed)
	assert.Equal(t, "\x00glow-4", name)
	assert.True(t, IsReserved(name))
	assert.False(t, IsReserved("red_team"))

	c, ok := ColorOf(name)
	assert.True(t, ok)
	assert.Equal(t, protocol.DarkRed, c)

	_, ok = ColorOf("red_team")
	assert.False(t, ok)
}

func TestValidateApplicationName(t *testing.T) {
	assert.NoError(t, ValidateApplicationName("blue"))
	assert.NoError(t, ValidateApplicationName("équipe"))
	assert.ErrorIs(t, ValidateApplicationName(Name(protocol.Red)), ErrReservedName)
	assert.ErrorIs(t, ValidateApplicationName("a\tb"), ErrReservedName)
}

func TestAcquireRelease_RefCounting(t *testing.T) {
	m, c := newTestManager(t)
	obs := uuid.New()
	s := &sink{}

	created, err := m.Acquire(obs, protocol.Red, "Steve", s.send)
	require.NoError(t, err)
	assert.True(t, created)

	got := decodeAll(t, c, s.take())
	require.Len(t, got, 2)
	assert.Equal(t, protocol.TeamModeCreate, got[0].Mode)
	assert.Equal(t, int32(protocol.Red), got[0].Color)
	assert.Equal(t, protocol.TeamModeJoin, got[1].Mode)
	assert.Equal(t, []string{"Steve"}, got[1].Entries)

	created, err = m.Acquire(obs, protocol.Red, "Alex", s.send)
	require.NoError(t, err)
	assert.False(t, created)
	got = decodeAll(t, c, s.take())
	require.Len(t, got, 1)
	assert.Equal(t, protocol.TeamModeJoin, got[0].Mode)
	assert.Equal(t, 2, m.Refs(obs, protocol.Red))

	removed, err := m.Release(obs, protocol.Red, "Steve", s.send)
	require.NoError(t, err)
	assert.False(t, removed)
	got = decodeAll(t, c, s.take())
	require.Len(t, got, 1)
	assert.Equal(t, protocol.TeamModeLeave, got[0].Mode)

	removed, err = m.Release(obs, protocol.Red, "Alex", s.send)
	require.NoError(t, err)
	assert.True(t, removed)
	got = decodeAll(t, c, s.take())
	require.Len(t, got, 1)
	assert.Equal(t, protocol.TeamModeRemove, got[0].Mode)
	assert.Equal(t, 0, m.Refs(obs, protocol.Red))
	assert.Empty(t, m.Tokens(obs))
}

func TestRelease_NotHeld(t *testing.T) {
	m, _ := newTestManager(t)
	obs := uuid.New()
	s := &sink{}

	_, err := m.Release(obs, protocol.Blue, "Steve", s.send)
	assert.True(t, errors.Is(err, ErrTokenNotHeld))

	_, err = m.Acquire(obs, protocol.Red, "Steve", s.send)
	require.NoError(t, err)
	_, err = m.Release(obs, protocol.Blue, "Steve", s.send)
	assert.True(t, errors.Is(err, ErrTokenNotHeld))
	assert.Equal(t, 1, m.Refs(obs, protocol.Red))
}

func TestAcquire_SendFailureTakesNoReference(t *testing.T) {
	m, _ := newTestManager(t)
	obs := uuid.New()
	s := &sink{err: errors.New("closed")}

	_, err := m.Acquire(obs, protocol.Gold, "Steve", s.send)
	assert.Error(t, err)
	assert.Equal(t, 0, m.Refs(obs, protocol.Gold))
}

func TestRelease_SendFailureStillFrees(t *testing.T) {
	m, _ := newTestManager(t)
	obs := uuid.New()
	s := &sink{}
	_, err := m.Acquire(obs, protocol.Gold, "Steve", s.send)
	require.NoError(t, err)

	s.err = errors.New("closed")
	removed, err := m.Release(obs, protocol.Gold, "Steve", s.send)
	assert.Error(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, m.Refs(obs, protocol.Gold))
}

func TestTokensAreScopedPerObserver(t *testing.T) {
	m, _ := newTestManager(t)
	a, b := uuid.New(), uuid.New()
	sa, sb := &sink{}, &sink{}

	_, err := m.Acquire(a, protocol.Red, "Steve", sa.send)
	require.NoError(t, err)

	assert.Empty(t, sb.take(), "observer b must receive nothing")
	assert.Equal(t, 0, m.Refs(b, protocol.Red))

	created, err := m.Acquire(b, protocol.Red, "Steve", sb.send)
	require.NoError(t, err)
	assert.True(t, created, "b gets its own token")

	tokens := m.Tokens(a)
	require.Len(t, tokens, 1)
	assert.Equal(t, Token{Name: Name(protocol.Red), Observer: a, Color: protocol.Red, Refs: 1}, tokens[0])
	assert.Len(t, m.Observers(), 2)
}

func TestDropObserver(t *testing.T) {
	m, _ := newTestManager(t)
	obs := uuid.New()
	s := &sink{}
	for _, c := range []protocol.Color{protocol.Red, protocol.Blue, protocol.Red} {
		_, err := m.Acquire(obs, c, "x", s.send)
		require.NoError(t, err)
	}
	s.take()

	assert.Equal(t, 2, m.DropObserver(obs))
	assert.Empty(t, s.take(), "dropping sends nothing")
	assert.Equal(t, 0, m.Refs(obs, protocol.Red))
	assert.Equal(t, 0, m.DropObserver(obs))
}

func TestAcquireRelease_Concurrent(t *testing.T) {
	m, c := newTestManager(t)
	obs := uuid.New()
	s := &sink{}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			entry := uuid.NewString()
			for j := 0; j < 25; j++ {
				if _, err := m.Acquire(obs, protocol.Aqua, entry, s.send); err != nil {
					t.Error(err)
					return
				}
				if _, err := m.Release(obs, protocol.Aqua, entry, s.send); err != nil {
					t.Error(err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 0, m.Refs(obs, protocol.Aqua))

	// Creates and removes alternate; a join never precedes its create.
	live := false
	for _, tp := range decodeAll(t, c, s.take()) {
		switch tp.Mode {
		case protocol.TeamModeCreate:
			assert.False(t, live, "team created twice")
			live = true
		case protocol.TeamModeRemove:
			assert.True(t, live, "team removed while absent")
			live = false
		case protocol.TeamModeJoin, protocol.TeamModeLeave:
			assert.True(t, live, "membership change on absent team")
		}
	}
	assert.False(t, live)
}

func TestAcquire_InvalidColor(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Acquire(uuid.New(), protocol.Color(16), "x", (&sink{}).send)
	assert.Error(t, err)
}
