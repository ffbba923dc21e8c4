// Package commands implements the glow-log CLI commands.
package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/protocol"
)

// ViewFilter specifies criteria for filtering events in the view command.
type ViewFilter struct {
	Observer  string
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
	EntityID  *int32
}

func (f ViewFilter) toFilter() log.Filter {
	return log.Filter{
		ObserverID: f.Observer,
		Layer:      f.Layer,
		Direction:  f.Direction,
		Category:   f.Category,
		EntityID:   f.EntityID,
	}
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [obs:id] DIRECTION LAYER Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	obs := shortenObserverID(event.ObserverID)

	var typeLabel string
	switch {
	case event.Frame != nil:
		typeLabel = fmt.Sprintf("Frame 0x%02x", event.Frame.PacketID)
	case event.Rewrite != nil:
		typeLabel = "Rewrite"
		if event.Rewrite.Forced {
			typeLabel = "Forced"
		}
	case event.Team != nil:
		typeLabel = "Team " + event.Team.Action.String()
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [obs:%s] %-3s %s %s\n", ts, obs, event.Direction.String(), event.Layer.String(), typeLabel)

	switch {
	case event.Frame != nil:
		formatFrameDetails(w, event.Frame)
	case event.Rewrite != nil:
		formatRewriteDetails(w, event.Rewrite)
	case event.Team != nil:
		formatTeamDetails(w, event.Team)
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}
	if event.Protocol != 0 {
		fmt.Fprintf(w, "  Protocol: %d\n", event.Protocol)
	}

	fmt.Fprintln(w) // Blank line between events
}

// shortenObserverID returns the first 8 characters of the observer ID.
func shortenObserverID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// formatFrameDetails writes frame-specific details.
func formatFrameDetails(w io.Writer, frame *log.FrameEvent) {
	fmt.Fprintf(w, "  Size: %d bytes", frame.Size)
	if frame.Compressed {
		fmt.Fprint(w, " (compressed)")
	}
	fmt.Fprintln(w)
	if len(frame.Data) > 0 {
		fmt.Fprintf(w, "  Data: %s", hex.EncodeToString(frame.Data))
		if frame.Truncated {
			fmt.Fprintf(w, " (truncated)")
		}
		fmt.Fprintln(w)
	}
}

// formatRewriteDetails writes the flags before and after a rewrite.
func formatRewriteDetails(w io.Writer, rw *log.RewriteEvent) {
	fmt.Fprintf(w, "  Entity: %d\n", rw.EntityID)
	fmt.Fprintf(w, "  Flags: %s -> %s\n", formatFlags(rw.Natural), formatFlags(rw.Sent))
}

// formatFlags renders a shared flags byte, e.g. "0x60 [invisible glowing]".
func formatFlags(b byte) string {
	names := []string{"on_fire", "crouching", "", "sprinting", "swimming", "invisible", "glowing", "gliding"}
	var set []string
	for i, name := range names {
		if name != "" && b&(1<<i) != 0 {
			set = append(set, name)
		}
	}
	return fmt.Sprintf("0x%02x [%s]", b, strings.Join(set, " "))
}

// formatTeamDetails writes team event details.
func formatTeamDetails(w io.Writer, tm *log.TeamEvent) {
	fmt.Fprintf(w, "  Team: %q\n", tm.Team)
	if tm.Color != nil {
		fmt.Fprintf(w, "  Color: %s\n", protocol.Color(*tm.Color))
	}
	if len(tm.Entries) > 0 {
		fmt.Fprintf(w, "  Entries: %s\n", strings.Join(tm.Entries, ", "))
	}
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	fmt.Fprintf(w, "  Entity: %s\n", sc.Entity.String())
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Layer: %s\n", err.Layer.String())
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.PacketID != nil {
		fmt.Fprintf(w, "  Packet: 0x%02x\n", *err.PacketID)
	}
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
}

// ParseLayerFlag parses a layer string from command-line flag (case-insensitive).
func ParseLayerFlag(s string) (log.Layer, error) {
	return parseLayer(s)
}

// parseLayer parses a layer string (case-insensitive).
func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "intercept":
		return log.LayerIntercept, nil
	case "engine":
		return log.LayerEngine, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, intercept, or engine)", s)
	}
}

// ParseDirectionFlag parses a direction string from command-line flag (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	return parseDirection(s)
}

// parseDirection parses a direction string (case-insensitive).
func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

// ParseCategoryFlag parses a category string from command-line flag (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	return parseCategory(s)
}

// parseCategory parses a category string (case-insensitive).
func parseCategory(s string) (log.Category, error) {
	c, ok := log.ParseCategory(strings.ToUpper(s))
	if !ok {
		return 0, fmt.Errorf("invalid category: %s (must be packet, rewrite, team, state, or error)", s)
	}
	return c, nil
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	events, closeFn, err := openEvents(path, filter.toFilter())
	if err != nil {
		return err
	}
	defer closeFn()

	for event, err := range events {
		if err != nil {
			return err
		}
		formatEvent(output, event)
	}
	return nil
}
