// Package team manages the engine's per-observer color teams.
//
// The client renders a glowing entity's outline in the color of the team
// its entry belongs to. For each observer and color the engine creates one
// reserved team (a token) the first time an object is highlighted in that
// color, and removes it when the last such object is released. Tokens live
// only on the observer's client: other observers never see them.
package team

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/metrics"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/registry"
	"github.com/glowkit/glow-go/pkg/wire"
)

// reservedPrefix starts every engine team name. Host teams cannot contain
// control characters, so no host team can collide.
const reservedPrefix = "\x00glow-"

// Errors.
var (
	// ErrTokenNotHeld is returned when releasing a token with no references.
	ErrTokenNotHeld = errors.New("team token not held")

	// ErrReservedName is returned for application team names that could
	// collide with engine tokens.
	ErrReservedName = errors.New("team name is reserved")
)

// Name returns the reserved team name for color.
func Name(color protocol.Color) string {
	return reservedPrefix + string(color.Code())
}

// IsReserved reports whether name is an engine token name.
func IsReserved(name string) bool {
	return strings.HasPrefix(name, reservedPrefix)
}

// ColorOf returns the color of a reserved team name.
func ColorOf(name string) (protocol.Color, bool) {
	code, ok := strings.CutPrefix(name, reservedPrefix)
	if !ok || len(code) != 1 {
		return 0, false
	}
	c, err := protocol.ParseColor(code)
	if err != nil {
		return 0, false
	}
	return c, true
}

// ValidateApplicationName rejects host team names that contain control
// characters and therefore may overlap the reserved namespace.
func ValidateApplicationName(name string) error {
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q", ErrReservedName, name)
		}
	}
	return nil
}

// Sender delivers packets to one observer, bypassing its interceptor.
type Sender func(packets ...wire.Packet) error

// Token is a snapshot of one engine team on one observer.
type Token struct {
	Name     string
	Observer registry.ObserverID
	Color    protocol.Color
	Refs     int
}

type observerTokens struct {
	mu   sync.Mutex
	refs [protocol.NumColors]int
}

// Config configures a Manager.
type Config struct {
	// Capture receives team events. Nil disables capture.
	Capture log.Logger

	// Metrics receives token gauges. Nil disables metrics.
	Metrics *metrics.Metrics
}

// Manager reference-counts tokens per (observer, color).
//
// Packets for one observer are sent while that observer's lock is held, so
// a team is always created before any entry joins it and removed only after
// the last entry is released. Observers never share a lock.
type Manager struct {
	capability protocol.Capability
	capture    log.Logger
	metrics    *metrics.Metrics

	mu        sync.Mutex
	observers map[registry.ObserverID]*observerTokens
}

// NewManager creates a Manager that builds packets with capability.
func NewManager(capability protocol.Capability, cfg Config) *Manager {
	return &Manager{
		capability: capability,
		capture:    log.OrNoop(cfg.Capture),
		metrics:    cfg.Metrics,
		observers:  make(map[registry.ObserverID]*observerTokens),
	}
}

func (m *Manager) tokens(observer registry.ObserverID, create bool) *observerTokens {
	m.mu.Lock()
	defer m.mu.Unlock()

	ot := m.observers[observer]
	if ot == nil && create {
		ot = &observerTokens{}
		m.observers[observer] = ot
	}
	return ot
}

// Acquire takes a reference on the observer's token for color and joins
// entry to it. The create packet is sent first when this is the first
// reference; both go out in one send. If the send fails the reference is
// not taken. An empty entry takes the reference without joining.
func (m *Manager) Acquire(observer registry.ObserverID, color protocol.Color, entry string, send Sender) (created bool, err error) {
	if !color.Valid() {
		return false, fmt.Errorf("invalid color %d", color)
	}
	ot := m.tokens(observer, true)
	ot.mu.Lock()
	defer ot.mu.Unlock()

	name := Name(color)
	packets := make([]wire.Packet, 0, 2)
	if ot.refs[color] == 0 {
		packets = append(packets, m.capability.TeamCreate(name, color))
		created = true
	}
	if entry != "" {
		packets = append(packets, m.capability.TeamJoin(name, entry))
	}
	if len(packets) > 0 {
		if err := send(packets...); err != nil {
			return false, fmt.Errorf("joining team %s for %s: %w", color, observer, err)
		}
	}

	if created {
		m.logTeam(observer, log.TeamCreated, name, &color, nil)
		m.metrics.AddTokens(1)
	}
	if entry != "" {
		m.logTeam(observer, log.TeamJoined, name, &color, []string{entry})
	}
	ot.refs[color]++
	return created, nil
}

// Release drops a reference on the observer's token for color. When it
// was the last reference the team is removed, which also drops entry;
// otherwise entry leaves the team. The reference is released even if the
// send fails.
func (m *Manager) Release(observer registry.ObserverID, color protocol.Color, entry string, send Sender) (removed bool, err error) {
	if !color.Valid() {
		return false, fmt.Errorf("invalid color %d", color)
	}
	ot := m.tokens(observer, false)
	if ot == nil {
		return false, fmt.Errorf("%w: %s for %s", ErrTokenNotHeld, color, observer)
	}
	ot.mu.Lock()
	defer ot.mu.Unlock()

	if ot.refs[color] == 0 {
		return false, fmt.Errorf("%w: %s for %s", ErrTokenNotHeld, color, observer)
	}
	ot.refs[color]--

	name := Name(color)
	var p wire.Packet
	switch {
	case ot.refs[color] == 0:
		p = m.capability.TeamRemove(name)
		removed = true
		m.metrics.AddTokens(-1)
		m.logTeam(observer, log.TeamRemoved, name, &color, nil)
	case entry != "":
		p = m.capability.TeamLeave(name, entry)
		m.logTeam(observer, log.TeamLeft, name, &color, []string{entry})
	default:
		return false, nil
	}
	if err := send(p); err != nil {
		return removed, fmt.Errorf("leaving team %s for %s: %w", color, observer, err)
	}
	return removed, nil
}

// Refs returns the reference count of the observer's token for color.
func (m *Manager) Refs(observer registry.ObserverID, color protocol.Color) int {
	ot := m.tokens(observer, false)
	if ot == nil || !color.Valid() {
		return 0
	}
	ot.mu.Lock()
	defer ot.mu.Unlock()
	return ot.refs[color]
}

// Tokens returns the observer's live tokens in color order.
func (m *Manager) Tokens(observer registry.ObserverID) []Token {
	ot := m.tokens(observer, false)
	if ot == nil {
		return nil
	}
	ot.mu.Lock()
	defer ot.mu.Unlock()

	var out []Token
	for i, n := range ot.refs {
		if n > 0 {
			c := protocol.Color(i)
			out = append(out, Token{Name: Name(c), Observer: observer, Color: c, Refs: n})
		}
	}
	return out
}

// DropObserver forgets every token of observer without sending anything.
// Used when the connection is already gone. Returns the number of tokens
// dropped.
func (m *Manager) DropObserver(observer registry.ObserverID) int {
	m.mu.Lock()
	ot := m.observers[observer]
	delete(m.observers, observer)
	m.mu.Unlock()

	if ot == nil {
		return 0
	}
	ot.mu.Lock()
	defer ot.mu.Unlock()

	n := 0
	for i := range ot.refs {
		if ot.refs[i] > 0 {
			n++
			ot.refs[i] = 0
		}
	}
	m.metrics.AddTokens(-n)
	return n
}

// Observers returns the observers holding at least one token.
func (m *Manager) Observers() []registry.ObserverID {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]registry.ObserverID, 0, len(m.observers))
	for obs := range m.observers {
		out = append(out, obs)
	}
	return out
}

func (m *Manager) logTeam(observer registry.ObserverID, action log.TeamAction, name string, color *protocol.Color, entries []string) {
	var code *uint8
	if color != nil {
		v := uint8(*color)
		code = &v
	}
	m.capture.Log(log.Event{
		Timestamp:  time.Now(),
		ObserverID: observer.String(),
		Direction:  log.DirectionOut,
		Layer:      log.LayerEngine,
		Category:   log.CategoryTeam,
		Protocol:   m.capability.Version(),
		Team:       &log.TeamEvent{Action: action, Team: name, Color: code, Entries: entries},
	})
}
