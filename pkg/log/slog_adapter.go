package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger at Debug level.
// Useful during development to see rewrites on the console.
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter creates a SlogAdapter writing to logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("observer", event.ObserverID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Protocol != 0 {
		attrs = append(attrs, slog.Int("protocol", int(event.Protocol)))
	}

	switch {
	case event.Frame != nil:
		attrs = append(attrs,
			slog.Int("packet_id", int(event.Frame.PacketID)),
			slog.Int("frame_size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		)
		if event.Frame.Compressed {
			attrs = append(attrs, slog.Bool("compressed", true))
		}
	case event.Rewrite != nil:
		attrs = append(attrs,
			slog.Int("entity", int(event.Rewrite.EntityID)),
			slog.Int("natural", int(event.Rewrite.Natural)),
			slog.Int("sent", int(event.Rewrite.Sent)),
			slog.Bool("forced", event.Rewrite.Forced),
		)
	case event.Team != nil:
		attrs = append(attrs,
			slog.String("action", event.Team.Action.String()),
			slog.String("team", event.Team.Team),
		)
		if event.Team.Color != nil {
			attrs = append(attrs, slog.Int("color", int(*event.Team.Color)))
		}
		if len(event.Team.Entries) > 0 {
			attrs = append(attrs, slog.Any("entries", event.Team.Entries))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("entity", event.StateChange.Entity.String()),
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.String("error_context", event.Error.Context),
		)
		if event.Error.PacketID != nil {
			attrs = append(attrs, slog.Int("packet_id", int(*event.Error.PacketID)))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "capture", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
