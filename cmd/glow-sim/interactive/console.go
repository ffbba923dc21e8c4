// Package interactive provides the glow-sim command console.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/glowkit/glow-go/cmd/glow-sim/sim"
	"github.com/glowkit/glow-go/pkg/glow"
	"github.com/glowkit/glow-go/pkg/protocol"
)

// Console runs commands against a simulated world.
type Console struct {
	world *sim.World
	rl    *readline.Instance
	out   io.Writer
}

// New creates a console reading from the terminal.
func New(world *sim.World) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "glow> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{world: world, rl: rl, out: rl.Stdout()}, nil
}

// NewWithWriter creates a console without a terminal; commands are passed
// to Exec and output goes to w.
func NewWithWriter(world *sim.World, w io.Writer) *Console {
	return &Console{world: world, out: w}
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use this for log output to avoid interfering with the command line.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if quit := c.Exec(line); quit {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// Exec runs one command line. It reports whether the console should exit.
func (c *Console) Exec(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	var err error
	switch cmd {
	case "help", "?":
		c.printHelp()
	case "connect":
		err = c.cmdConnect(args)
	case "disconnect":
		err = c.cmdDisconnect(args)
	case "spawn":
		err = c.cmdSpawn(args)
	case "despawn":
		err = c.cmdDespawn(args)
	case "flags":
		err = c.cmdFlags(args)
	case "team":
		err = c.cmdTeam(args)
	case "leave":
		err = c.cmdLeave(args)
	case "glow", "set":
		err = c.cmdGlow(args)
	case "suppress":
		err = c.cmdSuppress(args)
	case "clear":
		err = c.cmdClear(args)
	case "block":
		err = c.cmdBlock(args)
	case "unblock":
		err = c.cmdUnblock(args)
	case "chunk":
		err = c.cmdChunk(args)
	case "break":
		err = c.cmdBreak(args)
	case "recv", "r":
		err = c.cmdRecv(args)
	case "view", "v":
		err = c.cmdView(args)
	case "status":
		c.cmdStatus()
	case "quit", "exit", "q":
		return true
	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	if err != nil {
		fmt.Fprintf(c.out, "Error: %v\n", err)
	}
	return false
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Glow Simulator Commands:
  Clients:
    connect <name>                 - Connect a client
    disconnect <name>              - Disconnect a client
    recv <name>                    - Show packets the client received
    view <name>                    - Show how the client sees every entity

  Host world:
    spawn [player] [x y z]         - Spawn an entity (a player when named)
    despawn <id>                   - Remove an entity
    flags <id> <hex>               - Set an entity's shared flags, e.g. 0x01
    team <team> <color> <id>       - Put an entity in a host team
    leave <team> <id>              - Take an entity out of a host team

  Highlights:
    glow <client> <id> [color]     - Make an entity glow for one client
    suppress <client> <id>         - Hide an entity's glow from one client
    clear <client> <id>            - Restore the entity's natural glow
    block <client> <x y z> <color> - Outline a block for one client
    unblock <client> <x y z>       - Remove a block outline
    chunk <client> <cx> <cz>       - Resend a chunk to one client
    break <x y z>                  - Remove a block from the world

  General:
    status                         - Show engine status
    help                           - Show this help
    quit                           - Exit simulator`)
}

func parseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return int32(v), nil
}

func parsePos(args []string) (glow.BlockPos, error) {
	if len(args) < 3 {
		return glow.BlockPos{}, errors.New("position needs x y z")
	}
	var v [3]int32
	for i := range v {
		n, err := parseInt32(args[i])
		if err != nil {
			return glow.BlockPos{}, err
		}
		v[i] = n
	}
	return glow.BlockPos{X: v[0], Y: v[1], Z: v[2]}, nil
}

func usage(format string) error {
	return fmt.Errorf("usage: %s", format)
}

func (c *Console) cmdConnect(args []string) error {
	if len(args) != 1 {
		return usage("connect <name>")
	}
	cl, err := c.world.Connect(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Connected %s (observer %s)\n", cl.Name, cl.ID())
	return nil
}

func (c *Console) cmdDisconnect(args []string) error {
	if len(args) != 1 {
		return usage("disconnect <name>")
	}
	return c.world.Disconnect(args[0])
}

func (c *Console) cmdSpawn(args []string) error {
	var player string
	if len(args) == 1 || len(args) == 4 {
		player, args = args[0], args[1:]
	}
	var pos glow.BlockPos
	if len(args) > 0 {
		var err error
		if pos, err = parsePos(args); err != nil {
			return err
		}
	}
	e, err := c.world.Spawn(player, pos)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "Spawned entity %d (%s)\n", e.ID, e.TeamEntry())
	return nil
}

func (c *Console) cmdDespawn(args []string) error {
	if len(args) != 1 {
		return usage("despawn <id>")
	}
	id, err := parseInt32(args[0])
	if err != nil {
		return err
	}
	return c.world.Despawn(id)
}

func (c *Console) cmdFlags(args []string) error {
	if len(args) != 2 {
		return usage("flags <id> <hex>")
	}
	id, err := parseInt32(args[0])
	if err != nil {
		return err
	}
	v, err := strconv.ParseUint(args[1], 0, 8)
	if err != nil {
		return fmt.Errorf("invalid flags %q", args[1])
	}
	return c.world.SetFlags(id, byte(v))
}

func (c *Console) cmdTeam(args []string) error {
	if len(args) != 3 {
		return usage("team <team> <color> <id>")
	}
	color, err := protocol.ParseColor(args[1])
	if err != nil {
		return err
	}
	id, err := parseInt32(args[2])
	if err != nil {
		return err
	}
	return c.world.JoinTeam(args[0], color, id)
}

func (c *Console) cmdLeave(args []string) error {
	if len(args) != 2 {
		return usage("leave <team> <id>")
	}
	id, err := parseInt32(args[1])
	if err != nil {
		return err
	}
	return c.world.LeaveTeam(args[0], id)
}

func (c *Console) cmdGlow(args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return usage("glow <client> <id> [color]")
	}
	id, err := parseInt32(args[1])
	if err != nil {
		return err
	}
	var color *protocol.Color
	if len(args) == 3 {
		col, err := protocol.ParseColor(args[2])
		if err != nil {
			return err
		}
		color = &col
	}
	return c.world.Highlight(args[0], id, color)
}

func (c *Console) cmdSuppress(args []string) error {
	if len(args) != 2 {
		return usage("suppress <client> <id>")
	}
	id, err := parseInt32(args[1])
	if err != nil {
		return err
	}
	return c.world.Suppress(args[0], id)
}

func (c *Console) cmdClear(args []string) error {
	if len(args) != 2 {
		return usage("clear <client> <id>")
	}
	id, err := parseInt32(args[1])
	if err != nil {
		return err
	}
	return c.world.Clear(args[0], id)
}

func (c *Console) cmdBlock(args []string) error {
	if len(args) != 5 {
		return usage("block <client> <x y z> <color>")
	}
	pos, err := parsePos(args[1:4])
	if err != nil {
		return err
	}
	color, err := protocol.ParseColor(args[4])
	if err != nil {
		return err
	}
	return c.world.HighlightBlock(args[0], pos, color)
}

func (c *Console) cmdUnblock(args []string) error {
	if len(args) != 4 {
		return usage("unblock <client> <x y z>")
	}
	pos, err := parsePos(args[1:])
	if err != nil {
		return err
	}
	return c.world.ClearBlock(args[0], pos)
}

func (c *Console) cmdChunk(args []string) error {
	if len(args) != 3 {
		return usage("chunk <client> <cx> <cz>")
	}
	cx, err := parseInt32(args[1])
	if err != nil {
		return err
	}
	cz, err := parseInt32(args[2])
	if err != nil {
		return err
	}
	return c.world.SendChunk(args[0], cx, cz)
}

func (c *Console) cmdBreak(args []string) error {
	pos, err := parsePos(args)
	if err != nil {
		return err
	}
	return c.world.BreakBlock(pos)
}

func (c *Console) cmdRecv(args []string) error {
	if len(args) != 1 {
		return usage("recv <name>")
	}
	cl, err := c.world.Client(args[0])
	if err != nil {
		return err
	}
	packets, err := cl.Sync()
	for _, p := range packets {
		fmt.Fprintf(c.out, "  %s\n", p)
	}
	if len(packets) == 0 && err == nil {
		fmt.Fprintln(c.out, "  (nothing received)")
	}
	return err
}

func (c *Console) cmdView(args []string) error {
	if len(args) != 1 {
		return usage("view <name>")
	}
	cl, err := c.world.Client(args[0])
	if err != nil {
		return err
	}
	if _, err := cl.Sync(); err != nil {
		return err
	}

	entities := c.world.Entities()
	if len(entities) == 0 {
		fmt.Fprintln(c.out, "  (no entities)")
	}
	for _, e := range entities {
		a := cl.Appearance(e.ID, e.TeamEntry())
		state := "hidden"
		switch {
		case a.Visible && a.Glowing:
			state = "glowing"
		case a.Visible:
			state = "visible"
		}
		color := "none"
		if a.Color >= 0 && a.Color < protocol.NumColors {
			color = protocol.Color(a.Color).String()
		}
		fmt.Fprintf(c.out, "  %-4d %-16s %-8s color=%s host_flags=%#02x\n", e.ID, e.TeamEntry(), state, color, e.Flags)
	}
	return nil
}

func (c *Console) cmdStatus() {
	e := c.world.Engine()
	fmt.Fprintf(c.out, "Engine available:   %v\n", e.Available())
	if pc := e.Capability(); pc != nil {
		fmt.Fprintf(c.out, "Protocol:           %d (%s)\n", pc.Version(), pc.Release())
	}
	fmt.Fprintf(c.out, "Block highlights:   %v\n", e.BlockCapabilityAvailable())
	for _, cl := range c.world.Clients() {
		hs, err := e.Highlights(cl.ID())
		if err != nil {
			fmt.Fprintf(c.out, "  %-12s %s  %v\n", cl.Name, cl.ID(), err)
			continue
		}
		fmt.Fprintf(c.out, "  %-12s %s  %d highlights\n", cl.Name, cl.ID(), len(hs))
	}
}
