// Package sim is a simulated game host for exercising the highlight engine
// without a game server: it owns entities and host teams, and delivers
// every packet through a real connection pipeline to simulated clients.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/glow"
	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/team"
)

// Simulation errors.
var (
	ErrUnknownClient = errors.New("unknown client")
	ErrUnknownEntity = errors.New("unknown entity")
	ErrClientExists  = errors.New("client already connected")
)

// Config configures a World.
type Config struct {
	// Protocol is the protocol version the host speaks.
	Protocol int32

	// Blocks reports host support for block highlights.
	Blocks bool

	// Compression is the frame compression threshold; negative disables.
	Compression int

	// EntityType is the entity type ID used to spawn non-player entities.
	EntityType int32

	// Engine configures the highlight engine. Logger, Capture and Metrics
	// are shared with the simulation.
	Engine glow.Config
}

// DefaultConfig returns a configuration for the newest supported release.
func DefaultConfig() Config {
	return Config{
		Protocol:    767,
		Blocks:      true,
		Compression: 256,
		Engine:      glow.DefaultConfig(),
	}
}

// Entity is a host entity.
type Entity struct {
	glow.Entity
	Flags byte
	Pos   glow.BlockPos
}

// hostTeam is a team the host itself created.
type hostTeam struct {
	color   protocol.Color
	entries map[string]struct{}
}

// World is the simulated host. It implements glow.Host.
type World struct {
	cfg     Config
	cap     protocol.Capability
	packets hostPackets
	engine  *glow.Engine
	logger  *slog.Logger
	capture log.Logger

	mu       sync.Mutex
	clients  map[string]*Client
	entities map[int32]*Entity
	teams    map[string]*hostTeam
	nextID   int32
}

// New starts a world and its highlight engine.
func New(cfg Config) (*World, error) {
	m, err := protocol.LoadManifest(cfg.Protocol)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", protocol.ErrUnsupportedVersion, err)
	}

	w := &World{
		cfg:      cfg,
		packets:  newHostPackets(m, cfg.EntityType),
		logger:   cfg.Engine.Logger,
		capture:  cfg.Engine.Capture,
		clients:  make(map[string]*Client),
		entities: make(map[int32]*Entity),
		teams:    make(map[string]*hostTeam),
		nextID:   1,
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}

	w.engine, err = glow.Initialize(w, cfg.Engine)
	if err != nil {
		return nil, err
	}
	w.cap = w.engine.Capability()
	return w, nil
}

// ProtocolVersion implements glow.Host.
func (w *World) ProtocolVersion() int32 { return w.cfg.Protocol }

// SupportsBlockHighlight implements glow.Host.
func (w *World) SupportsBlockHighlight() bool { return w.cfg.Blocks }

// Engine returns the highlight engine.
func (w *World) Engine() *glow.Engine {
	return w.engine
}

// Close shuts the engine down and closes every client.
func (w *World) Close() error {
	err := w.engine.Shutdown()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, c := range w.clients {
		_ = c.conn.Close()
	}
	return err
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

// Connect joins a new client. It receives every host team and entity.
func (w *World) Connect(name string) (*Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.clients[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrClientExists, name)
	}
	c := newClient(name, w.cap, w.cfg.Compression, w.capture)
	if err := w.engine.OnObserverConnected(c.conn); err != nil {
		return nil, err
	}
	w.clients[name] = c

	for _, teamName := range slices.Sorted(maps.Keys(w.teams)) {
		t := w.teams[teamName]
		if err := c.conn.Dispatch(w.cap.TeamCreate(teamName, t.color)); err != nil {
			return c, err
		}
		if len(t.entries) > 0 {
			entries := slices.Sorted(maps.Keys(t.entries))
			if err := c.conn.Dispatch(w.cap.TeamJoin(teamName, entries...)); err != nil {
				return c, err
			}
		}
	}
	for _, id := range slices.Sorted(maps.Keys(w.entities)) {
		if err := w.show(c, w.entities[id]); err != nil {
			return c, err
		}
	}

	w.logger.Info("client connected", "client", name, "observer", c.ID())
	return c, nil
}

// Disconnect closes a client's connection.
func (w *World) Disconnect(name string) error {
	w.mu.Lock()
	c, ok := w.clients[name]
	delete(w.clients, name)
	w.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClient, name)
	}

	_ = c.conn.Close()
	if err := w.engine.OnObserverDisconnected(c.ID()); err != nil {
		return err
	}
	w.logger.Info("client disconnected", "client", name)
	return nil
}

// Client returns a connected client by name.
func (w *World) Client(name string) (*Client, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c, ok := w.clients[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClient, name)
	}
	return c, nil
}

// Clients returns the connected clients sorted by name.
func (w *World) Clients() []*Client {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]*Client, 0, len(w.clients))
	for _, name := range slices.Sorted(maps.Keys(w.clients)) {
		out = append(out, w.clients[name])
	}
	return out
}

// broadcast runs send for every client; w.mu must be held.
func (w *World) broadcast(send func(c *Client) error) error {
	var errs []error
	for _, name := range slices.Sorted(maps.Keys(w.clients)) {
		if err := send(w.clients[name]); err != nil {
			errs = append(errs, fmt.Errorf("client %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ---------------------------------------------------------------------------
// Entities
// ---------------------------------------------------------------------------

// Spawn adds an entity at pos and shows it to every client. A non-empty
// player name spawns a player.
func (w *World) Spawn(player string, pos glow.BlockPos) (*Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := &Entity{
		Entity: glow.Entity{ID: w.nextID, UUID: uuid.New(), PlayerName: player},
		Pos:    pos,
	}
	w.nextID++
	w.entities[e.ID] = e

	return e, w.broadcast(func(c *Client) error { return w.show(c, e) })
}

func (w *World) show(c *Client, e *Entity) error {
	spawn := w.packets.spawn(e.ID, e.UUID, e.PlayerName != "",
		float64(e.Pos.X)+0.5, float64(e.Pos.Y), float64(e.Pos.Z)+0.5)
	if err := c.conn.Dispatch(spawn); err != nil {
		return err
	}
	return c.conn.Dispatch(w.cap.EntityData(e.ID, e.Flags))
}

// SetFlags changes an entity's shared flags and tells every client.
func (w *World) SetFlags(entityID int32, flags byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[entityID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, entityID)
	}
	e.Flags = flags
	p := w.cap.EntityData(entityID, flags)
	return w.broadcast(func(c *Client) error { return c.conn.Dispatch(p) })
}

// Despawn removes an entity from the world.
func (w *World) Despawn(entityID int32) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[entityID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, entityID)
	}
	delete(w.entities, entityID)
	for _, t := range w.teams {
		delete(t.entries, e.TeamEntry())
	}

	p := w.packets.remove(entityID)
	err := w.broadcast(func(c *Client) error { return c.conn.Dispatch(p) })
	return errors.Join(err, w.engine.OnEntityRemoved(entityID))
}

// Entity returns a host entity.
func (w *World) Entity(entityID int32) (Entity, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	e, ok := w.entities[entityID]
	if !ok {
		return Entity{}, fmt.Errorf("%w: %d", ErrUnknownEntity, entityID)
	}
	return *e, nil
}

// Entities returns all host entities sorted by ID.
func (w *World) Entities() []Entity {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]Entity, 0, len(w.entities))
	for _, id := range slices.Sorted(maps.Keys(w.entities)) {
		out = append(out, *w.entities[id])
	}
	return out
}

// ---------------------------------------------------------------------------
// Host teams
// ---------------------------------------------------------------------------

// JoinTeam puts an entity in a host team, creating the team on first use.
// Names that could collide with engine teams are rejected with
// team.ErrReservedName.
func (w *World) JoinTeam(name string, color protocol.Color, entityID int32) error {
	if err := team.ValidateApplicationName(name); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[entityID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, entityID)
	}
	entry := e.TeamEntry()

	t, ok := w.teams[name]
	if !ok {
		t = &hostTeam{color: color, entries: make(map[string]struct{})}
		w.teams[name] = t
		create := w.cap.TeamCreate(name, color)
		if err := w.broadcast(func(c *Client) error { return c.conn.Dispatch(create) }); err != nil {
			return err
		}
	}
	for _, other := range w.teams {
		delete(other.entries, entry)
	}
	t.entries[entry] = struct{}{}

	join := w.cap.TeamJoin(name, entry)
	return w.broadcast(func(c *Client) error { return c.conn.Dispatch(join) })
}

// LeaveTeam takes an entity out of a host team.
func (w *World) LeaveTeam(name string, entityID int32) error {
	if err := team.ValidateApplicationName(name); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	e, ok := w.entities[entityID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownEntity, entityID)
	}
	t, ok := w.teams[name]
	if !ok {
		return fmt.Errorf("unknown team %q", name)
	}
	entry := e.TeamEntry()
	delete(t.entries, entry)

	leave := w.cap.TeamLeave(name, entry)
	return w.broadcast(func(c *Client) error { return c.conn.Dispatch(leave) })
}

// ---------------------------------------------------------------------------
// Highlights
// ---------------------------------------------------------------------------

// Highlight makes an entity glow for one client. A nil color keeps the
// outline color the host gives it.
func (w *World) Highlight(client string, entityID int32, color *protocol.Color) error {
	c, e, err := w.lookup(client, entityID)
	if err != nil {
		return err
	}
	return w.engine.SetHighlight(e.Entity, c.ID(), color)
}

// Suppress hides an entity's glow from one client.
func (w *World) Suppress(client string, entityID int32) error {
	c, e, err := w.lookup(client, entityID)
	if err != nil {
		return err
	}
	return w.engine.SuppressHighlight(e.Entity, c.ID())
}

// Clear returns an entity to its natural glow for one client.
func (w *World) Clear(client string, entityID int32) error {
	c, err := w.Client(client)
	if err != nil {
		return err
	}
	return w.engine.ClearHighlight(entityID, c.ID())
}

// HighlightBlock outlines a block for one client.
func (w *World) HighlightBlock(client string, pos glow.BlockPos, color protocol.Color) error {
	c, err := w.Client(client)
	if err != nil {
		return err
	}
	return w.engine.SetBlockHighlight(pos, c.ID(), color)
}

// ClearBlock removes a block outline for one client.
func (w *World) ClearBlock(client string, pos glow.BlockPos) error {
	c, err := w.Client(client)
	if err != nil {
		return err
	}
	return w.engine.ClearBlockHighlight(pos, c.ID())
}

// SendChunk resends a chunk to one client, as the host does when the
// client moves back into range.
func (w *World) SendChunk(client string, cx, cz int32) error {
	c, err := w.Client(client)
	if err != nil {
		return err
	}
	if err := c.conn.Dispatch(w.packets.chunkData(cx, cz)); err != nil {
		return err
	}
	return w.engine.OnRegionSent(c.ID(), cx, cz)
}

// BreakBlock removes a block from the world.
func (w *World) BreakBlock(pos glow.BlockPos) error {
	return w.engine.OnBlockRemoved(pos)
}

func (w *World) lookup(client string, entityID int32) (*Client, Entity, error) {
	c, err := w.Client(client)
	if err != nil {
		return nil, Entity{}, err
	}
	e, err := w.Entity(entityID)
	if err != nil {
		return nil, Entity{}, err
	}
	return c, e, nil
}
