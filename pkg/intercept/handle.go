package intercept

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/metrics"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/registry"
	"github.com/glowkit/glow-go/pkg/team"
	"github.com/glowkit/glow-go/pkg/transport"
	"github.com/glowkit/glow-go/pkg/wire"
)

// HookName is the pipeline name of the interceptor hook.
const HookName = "glow-interceptor"

// ErrAlreadyAttached is returned when the pipeline already carries the hook.
var ErrAlreadyAttached = errors.New("interceptor already attached")

// Pipeline is the part of an observer connection the interceptor needs.
// Implemented by *transport.Conn.
type Pipeline interface {
	ID() registry.ObserverID
	AddHook(name string, h transport.Hook) error
	RemoveHook(name string) bool
}

// Deps are the shared engine components a Handle reads.
type Deps struct {
	Capability protocol.Capability
	Highlights *registry.Registry[int32, registry.Highlight]

	// Logger receives operational logs. Nil discards.
	Logger *slog.Logger

	// Capture receives rewrite and error events. Nil disables capture.
	Capture log.Logger

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Handle is the interceptor attached to one observer connection.
type Handle struct {
	observer registry.ObserverID
	pipeline Pipeline
	deps     Deps
	logger   *slog.Logger
	capture  log.Logger
	detached atomic.Bool

	mu sync.Mutex
	// natural holds the flags the host last sent for each entity the
	// observer can see.
	natural map[int32]byte
	// hostTeams maps an entry to the host team the observer's client
	// places it in.
	hostTeams map[string]string
	// colored maps an entry to the engine color team it is joined to.
	colored map[string]protocol.Color
}

// Attach installs a new Handle on pipeline.
func Attach(pipeline Pipeline, deps Deps) (*Handle, error) {
	if deps.Capability == nil || deps.Highlights == nil {
		return nil, errors.New("intercept: capability and registry are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	h := &Handle{
		observer:  pipeline.ID(),
		pipeline:  pipeline,
		deps:      deps,
		logger:    logger.With("observer", pipeline.ID()),
		capture:   log.OrNoop(deps.Capture),
		natural:   make(map[int32]byte),
		hostTeams: make(map[string]string),
		colored:   make(map[string]protocol.Color),
	}
	if err := pipeline.AddHook(HookName, h); err != nil {
		if errors.Is(err, transport.ErrHookExists) {
			return nil, fmt.Errorf("%w: observer %s", ErrAlreadyAttached, h.observer)
		}
		return nil, err
	}

	deps.Metrics.AddInterceptors(1)
	h.logState("", "ATTACHED")
	return h, nil
}

// Observer returns the observer the handle is attached to.
func (h *Handle) Observer() registry.ObserverID {
	return h.observer
}

// Detach removes the hook. It is idempotent and safe while packets are in
// flight: once detached, HandleOutbound is a pure passthrough. Reports
// whether this call detached the handle.
func (h *Handle) Detach() bool {
	if h.detached.Swap(true) {
		return false
	}
	h.pipeline.RemoveHook(HookName)
	h.deps.Metrics.AddInterceptors(-1)
	h.logState("ATTACHED", "DETACHED")
	return true
}

// Detached reports whether Detach has been called.
func (h *Handle) Detached() bool {
	return h.detached.Load()
}

// Visible reports whether the observer can currently see entity, and the
// flags the host last sent for it.
func (h *Handle) Visible(entityID int32) (flags byte, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	flags, ok = h.natural[entityID]
	return flags, ok
}

// HostTeam returns the host team the observer's client last placed entry in.
func (h *Handle) HostTeam(entry string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	name, ok := h.hostTeams[entry]
	return name, ok
}

// MarkColored records that entry has been joined to the engine team of
// color on this observer.
func (h *Handle) MarkColored(entry string, color protocol.Color) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.colored[entry] = color
}

// UnmarkColored records that entry has left the engine teams.
func (h *Handle) UnmarkColored(entry string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.colored, entry)
}

// HandleOutbound implements transport.Hook.
func (h *Handle) HandleOutbound(p wire.Packet, out []wire.Packet) []wire.Packet {
	if h.detached.Load() {
		return append(out, p)
	}

	switch kind := h.deps.Capability.Kind(p.ID); kind {
	case protocol.KindEntityData:
		return h.entityData(p, out)
	case protocol.KindAddEntity, protocol.KindSpawnPlayer:
		h.spawn(p, kind)
	case protocol.KindRemoveEntities:
		h.remove(p)
	case protocol.KindTeam:
		return h.team(p, out)
	}
	return append(out, p)
}

func (h *Handle) entityData(p wire.Packet, out []wire.Packet) []wire.Packet {
	c := h.deps.Capability
	ref, err := c.EntityFlags(p.Data)
	if err != nil {
		h.accessError(p, protocol.KindEntityData, err)
		return append(out, p)
	}
	if !ref.Present() {
		return append(out, p)
	}

	natural := ref.Value(p.Data)
	h.mu.Lock()
	h.natural[ref.EntityID] = natural
	h.mu.Unlock()

	hl, ok := h.deps.Highlights.Get(ref.EntityID, h.observer)
	if !ok {
		return append(out, p)
	}
	if (natural&wire.FlagGlowing != 0) == hl.Enabled {
		return append(out, p)
	}

	q := c.WithGlowing(p, ref, hl.Enabled)
	h.deps.Metrics.Rewrite(hl.Enabled)
	h.capture.Log(log.Event{
		Timestamp:  time.Now(),
		ObserverID: h.observer.String(),
		Direction:  log.DirectionOut,
		Layer:      log.LayerIntercept,
		Category:   log.CategoryRewrite,
		Protocol:   c.Version(),
		Rewrite: &log.RewriteEvent{
			EntityID: ref.EntityID,
			Natural:  natural,
			Sent:     ref.Value(q.Data),
		},
	})
	return append(out, q)
}

func (h *Handle) spawn(p wire.Packet, kind protocol.PacketKind) {
	s, err := h.deps.Capability.DecodeSpawn(p.Data)
	if err != nil {
		h.accessError(p, kind, err)
		return
	}
	h.mu.Lock()
	h.natural[s.EntityID] = 0
	h.mu.Unlock()
}

func (h *Handle) remove(p wire.Packet) {
	ids, err := h.deps.Capability.DecodeRemove(p.Data)
	if err != nil {
		h.accessError(p, protocol.KindRemoveEntities, err)
		return
	}
	h.mu.Lock()
	for _, id := range ids {
		delete(h.natural, id)
	}
	h.mu.Unlock()
}

func (h *Handle) team(p wire.Packet, out []wire.Packet) []wire.Packet {
	c := h.deps.Capability
	tp, err := c.DecodeTeam(p.Data)
	if err != nil {
		h.accessError(p, protocol.KindTeam, err)
		return append(out, p)
	}

	if team.IsReserved(tp.Name) {
		h.logger.Warn("host sent packet for reserved team", "team", tp.Name, "mode", tp.Mode)
		h.logTeam(log.TeamForeign, tp.Name, tp.Entries)
		return append(out, p)
	}

	var (
		rejoin  map[protocol.Color][]string
		keep    []string
		changed bool
	)

	h.mu.Lock()
	switch tp.Mode {
	case protocol.TeamModeCreate, protocol.TeamModeJoin:
		for _, e := range tp.Entries {
			h.hostTeams[e] = tp.Name
			if color, ok := h.colored[e]; ok {
				if rejoin == nil {
					rejoin = make(map[protocol.Color][]string)
				}
				rejoin[color] = append(rejoin[color], e)
			}
		}
	case protocol.TeamModeLeave:
		// Entries held in an engine team are no longer in the host team
		// on the client, so the leave must not reach it for them.
		for _, e := range tp.Entries {
			if h.hostTeams[e] == tp.Name {
				delete(h.hostTeams, e)
			}
			if _, ok := h.colored[e]; ok {
				changed = true
				continue
			}
			keep = append(keep, e)
		}
	case protocol.TeamModeRemove:
		for e, name := range h.hostTeams {
			if name == tp.Name {
				delete(h.hostTeams, e)
			}
		}
	}
	h.mu.Unlock()

	if changed {
		if len(keep) > 0 {
			out = append(out, c.TeamLeave(tp.Name, keep...))
		}
	} else {
		out = append(out, p)
	}

	for _, color := range protocol.Colors() {
		entries := rejoin[color]
		if len(entries) == 0 {
			continue
		}
		name := team.Name(color)
		out = append(out, c.TeamJoin(name, entries...))
		h.deps.Metrics.TeamRejoin()
		h.logTeam(log.TeamRejoined, name, entries)
	}
	return out
}

func (h *Handle) accessError(p wire.Packet, kind protocol.PacketKind, err error) {
	err = fmt.Errorf("%w: %v", protocol.ErrProtocolAccess, err)
	h.logger.Warn("forwarding undecodable packet", "packet", kind, "id", p.ID, "error", err)
	h.deps.Metrics.RewriteError(kind.String())

	id := p.ID
	h.capture.Log(log.Event{
		Timestamp:  time.Now(),
		ObserverID: h.observer.String(),
		Direction:  log.DirectionOut,
		Layer:      log.LayerIntercept,
		Category:   log.CategoryError,
		Protocol:   h.deps.Capability.Version(),
		Error: &log.ErrorEventData{
			Layer:    log.LayerIntercept,
			Message:  err.Error(),
			PacketID: &id,
			Context:  kind.String(),
		},
	})
}

func (h *Handle) logTeam(action log.TeamAction, name string, entries []string) {
	h.capture.Log(log.Event{
		Timestamp:  time.Now(),
		ObserverID: h.observer.String(),
		Direction:  log.DirectionOut,
		Layer:      log.LayerIntercept,
		Category:   log.CategoryTeam,
		Protocol:   h.deps.Capability.Version(),
		Team:       &log.TeamEvent{Action: action, Team: name, Entries: entries},
	})
}

func (h *Handle) logState(oldState, newState string) {
	h.logger.Debug("interceptor state", "state", newState)
	h.capture.Log(log.Event{
		Timestamp:  time.Now(),
		ObserverID: h.observer.String(),
		Layer:      log.LayerIntercept,
		Category:   log.CategoryState,
		Protocol:   h.deps.Capability.Version(),
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityInterceptor,
			OldState: oldState,
			NewState: newState,
		},
	})
}

var _ transport.Hook = (*Handle)(nil)
