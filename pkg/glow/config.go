package glow

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/glowkit/glow-go/pkg/log"
	"github.com/glowkit/glow-go/pkg/metrics"
)

// Config configures an Engine.
type Config struct {
	// DisableBlocks turns the block extension off even when the host
	// supports it.
	DisableBlocks bool

	// MarkerIDBase is the first entity ID handed to block markers. IDs
	// count down from it and must not collide with host entity IDs.
	MarkerIDBase int32

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// Capture receives protocol capture events.
	// If nil, capture is disabled.
	Capture log.Logger

	// Metrics receives engine metrics.
	// If nil, metrics are disabled.
	Metrics *metrics.Metrics
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MarkerIDBase: math.MaxInt32,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.MarkerIDBase <= 0 {
		return fmt.Errorf("%w: marker ID base %d", ErrInvalidConfig, c.MarkerIDBase)
	}
	return nil
}
