package transport

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/wire"
)

// Connection errors.
var (
	ErrConnectionClosed = errors.New("connection closed")
	ErrHookExists       = errors.New("hook already installed")
)

// Hook is a stage in a connection's outbound pipeline. HandleOutbound
// appends the packets that replace p to out and returns the extended slice.
// Appending p unchanged passes it through; appending nothing drops it.
//
// Hooks must not modify p.Data: bodies may be shared between connections.
type Hook interface {
	HandleOutbound(p wire.Packet, out []wire.Packet) []wire.Packet
}

// HookFunc adapts a function to the Hook interface.
type HookFunc func(p wire.Packet, out []wire.Packet) []wire.Packet

// HandleOutbound calls f(p, out).
func (f HookFunc) HandleOutbound(p wire.Packet, out []wire.Packet) []wire.Packet {
	return f(p, out)
}

type namedHook struct {
	name string
	hook Hook
}

// ConnConfig configures a Conn.
type ConnConfig struct {
	// ID identifies the connection. A new UUID is generated when zero.
	ID uuid.UUID

	// Logger receives capture events for hook errors and lifecycle.
	// Frame capture is configured on the FrameWriter.
	Logger log.Logger
}

// Conn is the outbound side of one observer's connection: an ordered hook
// pipeline in front of a PacketWriter.
//
// Dispatch runs a packet through every hook, in installation order, before
// writing. Send writes directly below the pipeline; it is used for packets
// the hooks themselves produce.
type Conn struct {
	id     uuid.UUID
	w      PacketWriter
	logger log.Logger

	// hooks is replaced, never mutated, so Dispatch reads it without locking.
	hooks  atomic.Pointer[[]namedHook]
	hookMu sync.Mutex

	writeMu sync.Mutex
	closed  atomic.Bool
	sent    atomic.Uint64
}

// NewConn creates a connection writing to w.
func NewConn(w PacketWriter, cfg ConnConfig) *Conn {
	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	c := &Conn{
		id:     id,
		w:      w,
		logger: log.OrNoop(cfg.Logger),
	}
	empty := []namedHook{}
	c.hooks.Store(&empty)
	return c
}

// ID returns the connection's observer ID.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// AddHook appends a hook to the end of the pipeline.
func (c *Conn) AddHook(name string, h Hook) error {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	cur := *c.hooks.Load()
	for _, nh := range cur {
		if nh.name == name {
			return fmt.Errorf("%w: %q", ErrHookExists, name)
		}
	}
	next := make([]namedHook, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, namedHook{name: name, hook: h})
	c.hooks.Store(&next)
	return nil
}

// RemoveHook removes a hook by name. It reports whether the hook was present.
func (c *Conn) RemoveHook(name string) bool {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()

	cur := *c.hooks.Load()
	next := make([]namedHook, 0, len(cur))
	found := false
	for _, nh := range cur {
		if nh.name == name {
			found = true
			continue
		}
		next = append(next, nh)
	}
	if found {
		c.hooks.Store(&next)
	}
	return found
}

// Hooks returns the installed hook names in pipeline order.
func (c *Conn) Hooks() []string {
	cur := *c.hooks.Load()
	names := make([]string, len(cur))
	for i, nh := range cur {
		names[i] = nh.name
	}
	return names
}

// Dispatch sends a host packet through the pipeline and writes the result.
func (c *Conn) Dispatch(p wire.Packet) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}

	packets := []wire.Packet{p}
	for _, nh := range *c.hooks.Load() {
		next := make([]wire.Packet, 0, len(packets)+1)
		for _, q := range packets {
			next = nh.hook.HandleOutbound(q, next)
		}
		packets = next
	}
	return c.write(packets...)
}

// Send writes packets below the pipeline, in order.
func (c *Conn) Send(packets ...wire.Packet) error {
	if c.closed.Load() {
		return ErrConnectionClosed
	}
	return c.write(packets...)
}

func (c *Conn) write(packets ...wire.Packet) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	for _, p := range packets {
		if err := c.w.WritePacket(p); err != nil {
			return fmt.Errorf("observer %s: %w", c.id, err)
		}
		c.sent.Add(1)
	}
	return nil
}

// Sent returns the number of packets written.
func (c *Conn) Sent() uint64 {
	return c.sent.Load()
}

// Close marks the connection closed. Later sends fail with
// ErrConnectionClosed. Close is idempotent.
func (c *Conn) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.logger.Log(log.Event{
		Timestamp:  nowFunc(),
		ObserverID: c.id.String(),
		Layer:      log.LayerTransport,
		Category:   log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityConnection,
			OldState: "OPEN",
			NewState: "CLOSED",
		},
	})
	return nil
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}
