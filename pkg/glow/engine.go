package glow

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glowkit/glow-go/pkg/intercept"
	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/metrics"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/registry"
	"github.com/glowkit/glow-go/pkg/team"
	"github.com/glowkit/glow-go/pkg/wire"
)

// Engine is the highlight engine of one host.
//
// All methods are safe for concurrent use. Operations on different
// (object, observer) pairs never wait on each other; operations on the
// same pair are applied in order.
type Engine struct {
	cap     protocol.Capability
	blocks  protocol.BlockCapability
	logger  *slog.Logger
	capture log.Logger
	metrics *metrics.Metrics

	entities    *registry.Registry[int32, registry.Highlight]
	markers     *registry.Registry[BlockPos, marker]
	entityLocks *registry.KeyedMutex[registry.Key[int32]]
	blockLocks  *registry.KeyedMutex[registry.Key[BlockPos]]
	teams       *team.Manager
	nextMarker  atomic.Int32

	// stateMu is held shared by every operation and exclusively by
	// Shutdown, so no operation overlaps the final sweep.
	stateMu sync.RWMutex
	closed  bool

	obsMu     sync.RWMutex
	observers map[ObserverID]*observer
}

// observer is one connected observer. mu is held shared by operations on
// the observer and exclusively when it is swept, so nothing is written for
// an observer after its cleanup.
type observer struct {
	id     ObserverID
	conn   Conn
	handle *intercept.Handle

	mu   sync.RWMutex
	gone bool
}

// Initialize resolves the protocol capability for host and creates an
// engine. It fails with ErrUnsupportedVersion when the host's protocol
// cannot be served.
func Initialize(host Host, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	version := host.ProtocolVersion()
	c, err := protocol.Resolve(version)
	if err != nil {
		return nil, fmt.Errorf("initialize protocol %d: %w", version, err)
	}

	e := &Engine{
		cap:         c,
		logger:      cfg.Logger,
		capture:     log.OrNoop(cfg.Capture),
		metrics:     cfg.Metrics,
		entities:    registry.New[int32, registry.Highlight](registry.HashInt32),
		markers:     registry.New[BlockPos, marker](hashBlockPos),
		entityLocks: registry.NewKeyedMutex[registry.Key[int32]](),
		blockLocks:  registry.NewKeyedMutex[registry.Key[BlockPos]](),
		teams:       team.NewManager(c, team.Config{Capture: cfg.Capture, Metrics: cfg.Metrics}),
		observers:   make(map[ObserverID]*observer),
	}
	e.nextMarker.Store(cfg.MarkerIDBase)

	if !cfg.DisableBlocks && host.SupportsBlockHighlight() {
		if b, ok := c.Blocks(); ok {
			e.blocks = b
		}
	}

	e.debugLog("engine initialized",
		"protocol", version,
		"release", c.Release(),
		"blocks", e.blocks != nil)
	e.logState("", "RUNNING", "")
	return e, nil
}

// Available reports whether the engine is running.
func (e *Engine) Available() bool {
	if e == nil || e.cap == nil {
		return false
	}
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return !e.closed
}

// BlockCapabilityAvailable reports whether block highlights can be used.
func (e *Engine) BlockCapabilityAvailable() bool {
	return e.Available() && e.blocks != nil
}

// Capability returns the resolved protocol capability.
func (e *Engine) Capability() protocol.Capability {
	return e.cap
}

// Shutdown detaches every interceptor, removes the engine's teams and
// markers from live observers and clears all state. Packets are sent on a
// best-effort basis; their failures are returned joined. Shutdown is
// idempotent.
func (e *Engine) Shutdown() error {
	e.stateMu.Lock()
	if e.closed {
		e.stateMu.Unlock()
		return nil
	}
	e.closed = true
	e.stateMu.Unlock()

	e.obsMu.Lock()
	observers := e.observers
	e.observers = make(map[ObserverID]*observer)
	e.obsMu.Unlock()

	var errs []error
	for _, id := range slices.SortedFunc(maps.Keys(observers), compareObservers) {
		if err := e.sweep(observers[id], true); err != nil {
			errs = append(errs, err)
		}
	}
	e.entities.Clear()
	e.markers.Clear()

	e.debugLog("engine shut down", "observers", len(observers), "errors", len(errs))
	e.logState("RUNNING", "STOPPED", "shutdown")
	return errors.Join(errs...)
}

// enter holds the engine open until the returned function is called.
func (e *Engine) enter() (func(), error) {
	if e.cap == nil {
		return nil, fmt.Errorf("%w: no capability", ErrProtocolAccess)
	}
	e.stateMu.RLock()
	if e.closed {
		e.stateMu.RUnlock()
		return nil, ErrEngineClosed
	}
	return e.stateMu.RUnlock, nil
}

// observer returns a connected observer, held until the returned function
// is called.
func (e *Engine) observer(id ObserverID) (*observer, func(), error) {
	e.obsMu.RLock()
	o := e.observers[id]
	e.obsMu.RUnlock()
	if o == nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownObserver, id)
	}

	o.mu.RLock()
	if o.gone {
		o.mu.RUnlock()
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownObserver, id)
	}
	return o, o.mu.RUnlock, nil
}

// sweep removes every trace of o. With live set the client is told to drop
// the engine's teams and markers and to show natural flags again.
func (e *Engine) sweep(o *observer, live bool) error {
	o.mu.Lock()
	o.gone = true
	o.mu.Unlock()

	o.handle.Detach()

	var errs []error

	// Blocks first, then entities.
	markers := e.markers.RemoveObserver(o.id)
	e.metrics.AddHighlights(metrics.KindBlock, -len(markers))
	if live && len(markers) > 0 {
		ids := make([]int32, 0, len(markers))
		for _, pos := range slices.SortedFunc(maps.Keys(markers), compareBlockPos) {
			ids = append(ids, markers[pos].EntityID)
		}
		if err := o.conn.Send(e.blocks.RemoveEntities(ids...)); err != nil {
			errs = append(errs, fmt.Errorf("observer %s: remove markers: %w", o.id, err))
		}
		for pos, m := range markers {
			if _, err := e.teams.Release(o.id, m.Color, m.entry(), o.conn.Send); err != nil {
				errs = append(errs, fmt.Errorf("observer %s: block %v: %w", o.id, pos, err))
			}
		}
	}

	entities := e.entities.RemoveObserver(o.id)
	e.metrics.AddHighlights(metrics.KindEntity, -len(entities))
	if live {
		for _, id := range slices.Sorted(maps.Keys(entities)) {
			h := entities[id]
			if h.Color != nil {
				if err := e.uncolor(o, h); err != nil {
					errs = append(errs, fmt.Errorf("observer %s: entity %d: %w", o.id, id, err))
				}
			}
			if err := e.forceUpdate(o, id, &h, nil); err != nil {
				errs = append(errs, fmt.Errorf("observer %s: entity %d: %w", o.id, id, err))
			}
		}
	}

	if n := e.teams.DropObserver(o.id); n > 0 {
		e.debugLog("dropped teams", "observer", o.id, "count", n)
	}
	return errors.Join(errs...)
}

// applyGlow returns natural with the glowing bit h asks for. A nil h leaves
// natural unchanged.
func applyGlow(natural byte, h *registry.Highlight) byte {
	switch {
	case h == nil:
		return natural
	case h.Enabled:
		return natural | wire.FlagGlowing
	default:
		return natural &^ wire.FlagGlowing
	}
}

// forceUpdate sends the entity's flags to o when the client shows the
// entity and its glow changes from what from produced to what to produces.
func (e *Engine) forceUpdate(o *observer, entityID int32, from, to *registry.Highlight) error {
	natural, visible := o.handle.Visible(entityID)
	if !visible {
		return nil
	}
	shown, want := applyGlow(natural, from), applyGlow(natural, to)
	if shown == want {
		return nil
	}

	if err := o.conn.Send(e.cap.EntityData(entityID, want)); err != nil {
		return fmt.Errorf("forced update: %w", err)
	}
	e.metrics.ForcedUpdate()
	e.capture.Log(log.Event{
		Timestamp:  time.Now(),
		ObserverID: o.id.String(),
		Direction:  log.DirectionOut,
		Layer:      log.LayerEngine,
		Category:   log.CategoryRewrite,
		Protocol:   e.cap.Version(),
		Rewrite: &log.RewriteEvent{
			EntityID: entityID,
			Natural:  natural,
			Sent:     want,
			Forced:   true,
		},
	})
	return nil
}

// uncolor takes h's entry out of its engine team on o and puts it back in
// the host team the client last had it in.
func (e *Engine) uncolor(o *observer, h registry.Highlight) error {
	var errs []error
	if _, err := e.teams.Release(o.id, *h.Color, h.Entry, o.conn.Send); err != nil {
		errs = append(errs, err)
	}
	o.handle.UnmarkColored(h.Entry)
	if err := e.restoreHostTeam(o, h.Entry); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) restoreHostTeam(o *observer, entry string) error {
	name, ok := o.handle.HostTeam(entry)
	if !ok {
		return nil
	}
	if err := o.conn.Send(e.cap.TeamJoin(name, entry)); err != nil {
		return fmt.Errorf("restore host team %q: %w", name, err)
	}
	return nil
}

// debugLog logs a debug message if logging is enabled.
func (e *Engine) debugLog(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Engine) logState(oldState, newState, reason string) {
	e.capture.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerEngine,
		Category:  log.CategoryState,
		Protocol:  e.cap.Version(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityEngine,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

func compareObservers(a, b ObserverID) int {
	return slices.Compare(a[:], b[:])
}
