package registry

import "github.com/glowkit/glow-go/pkg/protocol"

// Highlight is the desired presentation of one object to one observer.
// A missing entry means the host's own flags pass through unchanged.
type Highlight struct {
	// Enabled is the glowing bit to force. False hides a natural glow.
	Enabled bool

	// Color selects the engine team the object's entry joins. Nil leaves
	// team membership to the host.
	Color *protocol.Color

	// Entry is the team entry of the object (player name or UUID string).
	Entry string
}

// SameColor reports whether h and other use the same team color.
func (h Highlight) SameColor(other Highlight) bool {
	switch {
	case h.Color == nil && other.Color == nil:
		return true
	case h.Color == nil || other.Color == nil:
		return false
	default:
		return *h.Color == *other.Color
	}
}
