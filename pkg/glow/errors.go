package glow

import (
	"errors"

	"github.com/glowkit/glow-go/pkg/protocol"
)

// Engine errors.
var (
	// ErrUnsupportedVersion is returned by Initialize when the host's
	// protocol version has no usable capability.
	ErrUnsupportedVersion = protocol.ErrUnsupportedVersion

	// ErrProtocolAccess is returned when a packet could not be decoded or
	// built at runtime.
	ErrProtocolAccess = protocol.ErrProtocolAccess

	// ErrCapabilityUnavailable is returned by block operations when the
	// host or protocol lacks the block extension.
	ErrCapabilityUnavailable = errors.New("block highlight capability unavailable")

	// ErrEngineClosed is returned by every operation after Shutdown.
	ErrEngineClosed = errors.New("engine closed")

	// ErrUnknownObserver is returned for observers that are not connected.
	ErrUnknownObserver = errors.New("unknown observer")

	// ErrInvalidConfig is returned by Config.Validate.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNoHighlight is returned by queries when the observer has no
	// highlight of the object.
	ErrNoHighlight = errors.New("no highlight")

	// ErrInvalidColor is returned for colors outside the 16 chat colors.
	ErrInvalidColor = errors.New("invalid color")
)
