package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/protocol"
	"github.com/glowkit/glow-go/pkg/transport"
	"github.com/glowkit/glow-go/pkg/wire"
)

// pipe is an in-memory byte stream shared by a FrameWriter and a
// FrameReader.
type pipe struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (p *pipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Write(b)
}

func (p *pipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.buf.Read(b)
}

// Client is a simulated game client. Everything the host sends it travels
// through the connection pipeline, the frame codec and back into the
// client's view of the world.
type Client struct {
	Name string

	conn   *transport.Conn
	reader *transport.FrameReader
	cap    protocol.Capability

	mu   sync.Mutex
	view View
}

// View is what a client believes about the world.
type View struct {
	// Entities maps spawned entity IDs to their UUIDs.
	Entities map[int32]uuid.UUID

	// Flags holds the last shared flags received per entity.
	Flags map[int32]byte

	// Teams holds the client's scoreboard teams by name.
	Teams map[string]*ViewTeam
}

// ViewTeam is a scoreboard team as the client knows it.
type ViewTeam struct {
	Color   int32
	Entries map[string]struct{}
}

func newClient(name string, cap protocol.Capability, compression int, capture log.Logger) *Client {
	p := &pipe{}
	fw := transport.NewFrameWriter(p)
	fw.SetCompression(compression)
	fr := transport.NewFrameReader(p)
	fr.SetCompression(compression)

	conn := transport.NewConn(fw, transport.ConnConfig{Logger: capture})
	if capture != nil {
		fw.SetLogger(capture, conn.ID().String())
	}

	return &Client{
		Name:   name,
		conn:   conn,
		reader: fr,
		cap:    cap,
		view: View{
			Entities: make(map[int32]uuid.UUID),
			Flags:    make(map[int32]byte),
			Teams:    make(map[string]*ViewTeam),
		},
	}
}

// ID returns the client's observer ID.
func (c *Client) ID() uuid.UUID {
	return c.conn.ID()
}

// Conn returns the client's connection.
func (c *Client) Conn() *transport.Conn {
	return c.conn
}

// Sync reads every frame delivered so far, applies it to the view and
// returns a description of each packet.
func (c *Client) Sync() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []string
	for {
		p, err := c.reader.ReadPacket()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("client %s: %w", c.Name, err)
		}
		desc, err := c.apply(p)
		if err != nil {
			return out, fmt.Errorf("client %s: %w", c.Name, err)
		}
		out = append(out, desc)
	}
}

func (c *Client) apply(p wire.Packet) (string, error) {
	switch c.cap.Kind(p.ID) {
	case protocol.KindAddEntity, protocol.KindSpawnPlayer:
		s, err := c.cap.DecodeSpawn(p.Data)
		if err != nil {
			return "", err
		}
		c.view.Entities[s.EntityID] = s.UUID
		return fmt.Sprintf("spawn %d", s.EntityID), nil

	case protocol.KindRemoveEntities:
		ids, err := c.cap.DecodeRemove(p.Data)
		if err != nil {
			return "", err
		}
		for _, id := range ids {
			delete(c.view.Entities, id)
			delete(c.view.Flags, id)
		}
		return fmt.Sprintf("remove %v", ids), nil

	case protocol.KindEntityData:
		ref, err := c.cap.EntityFlags(p.Data)
		if err != nil {
			return "", err
		}
		if !ref.Present() {
			return "data (no flags)", nil
		}
		flags := ref.Value(p.Data)
		c.view.Flags[ref.EntityID] = flags
		return fmt.Sprintf("flags %d %#02x", ref.EntityID, flags), nil

	case protocol.KindTeam:
		t, err := c.cap.DecodeTeam(p.Data)
		if err != nil {
			return "", err
		}
		c.applyTeam(t)
		if len(t.Entries) > 0 {
			return fmt.Sprintf("team %s %q %v", t.Mode, t.Name, t.Entries), nil
		}
		return fmt.Sprintf("team %s %q", t.Mode, t.Name), nil

	default:
		return fmt.Sprintf("packet %#x", p.ID), nil
	}
}

// applyTeam follows the client rules: an entry belongs to at most one team,
// so joining moves it.
func (c *Client) applyTeam(t protocol.TeamPacket) {
	switch t.Mode {
	case protocol.TeamModeCreate:
		c.view.Teams[t.Name] = &ViewTeam{Color: t.Color, Entries: make(map[string]struct{})}
		c.join(t.Name, t.Entries)
	case protocol.TeamModeRemove:
		delete(c.view.Teams, t.Name)
	case protocol.TeamModeUpdate:
		if team, ok := c.view.Teams[t.Name]; ok {
			team.Color = t.Color
		}
	case protocol.TeamModeJoin:
		c.join(t.Name, t.Entries)
	case protocol.TeamModeLeave:
		if team, ok := c.view.Teams[t.Name]; ok {
			for _, e := range t.Entries {
				delete(team.Entries, e)
			}
		}
	}
}

func (c *Client) join(name string, entries []string) {
	team, ok := c.view.Teams[name]
	if !ok {
		return
	}
	for _, e := range entries {
		for _, other := range c.view.Teams {
			delete(other.Entries, e)
		}
		team.Entries[e] = struct{}{}
	}
}

// Appearance is how the client renders one entity.
type Appearance struct {
	Visible bool
	Glowing bool
	Team    string
	// Color is the outline color, or TeamColorReset when the entry is in
	// no team or its team has no color.
	Color int32
}

// Appearance returns how the client renders the entity with the given team
// entry.
func (c *Client) Appearance(entityID int32, entry string) Appearance {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := Appearance{Color: protocol.TeamColorReset}
	if _, ok := c.view.Entities[entityID]; !ok {
		return a
	}
	a.Visible = true
	a.Glowing = c.view.Flags[entityID]&wire.FlagGlowing != 0
	for _, name := range slices.Sorted(maps.Keys(c.view.Teams)) {
		team := c.view.Teams[name]
		if _, ok := team.Entries[entry]; ok {
			a.Team = name
			a.Color = team.Color
			break
		}
	}
	return a
}

// Teams returns the names of the client's teams.
func (c *Client) Teams() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Sorted(maps.Keys(c.view.Teams))
}
