package log

import (
	"time"
)

// Event represents a capture event recorded by the transport or the engine.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ObserverID identifies the observer connection (UUID string).
	ObserverID string `cbor:"2,keyasint"`

	// Direction indicates packet flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Protocol is the protocol number in use (0 when unknown).
	Protocol int32 `cbor:"6,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Rewrite     *RewriteEvent     `cbor:"11,keyasint,omitempty"` // Flags rewrite or forced update
	Team        *TeamEvent        `cbor:"12,keyasint,omitempty"` // Engine team traffic
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // Engine/interceptor lifecycle
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of packet flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming packet.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing packet.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which component captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerIntercept is the per-observer outbound interceptor.
	LayerIntercept Layer = 1
	// LayerEngine is the highlight engine (set/clear, cleanup).
	LayerEngine Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerIntercept:
		return "INTERCEPT"
	case LayerEngine:
		return "ENGINE"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryPacket indicates a raw packet.
	CategoryPacket Category = 0
	// CategoryRewrite indicates a glowing-bit rewrite or forced update.
	CategoryRewrite Category = 1
	// CategoryTeam indicates engine team traffic.
	CategoryTeam Category = 2
	// CategoryState indicates a state change.
	CategoryState Category = 3
	// CategoryError indicates an error event.
	CategoryError Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryPacket:
		return "PACKET"
	case CategoryRewrite:
		return "REWRITE"
	case CategoryTeam:
		return "TEAM"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseCategory parses a category name as printed by String.
func ParseCategory(s string) (Category, bool) {
	for c := CategoryPacket; c <= CategoryError; c++ {
		if c.String() == s {
			return c, true
		}
	}
	return 0, false
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// PacketID is the packet ID of the frame.
	PacketID int32 `cbor:"1,keyasint"`

	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"2,keyasint"`

	// Data is the packet body (may be truncated for large frames).
	Data []byte `cbor:"3,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"4,keyasint,omitempty"`

	// Compressed indicates the frame was zlib-compressed on the wire.
	Compressed bool `cbor:"5,keyasint,omitempty"`
}

// RewriteEvent captures a change to an entity's shared flags as seen by one
// observer.
type RewriteEvent struct {
	// EntityID is the entity whose flags were written.
	EntityID int32 `cbor:"1,keyasint"`

	// Natural is the flags byte the host sent (or last sent).
	Natural uint8 `cbor:"2,keyasint"`

	// Sent is the flags byte the observer received.
	Sent uint8 `cbor:"3,keyasint"`

	// Forced is true for engine-generated updates, false for rewrites of
	// host packets.
	Forced bool `cbor:"4,keyasint,omitempty"`
}

// TeamEvent captures team packets the engine sends or reacts to.
type TeamEvent struct {
	// Action is what happened to the team.
	Action TeamAction `cbor:"1,keyasint"`

	// Team is the team name.
	Team string `cbor:"2,keyasint"`

	// Color is the team color ordinal, when relevant.
	Color *uint8 `cbor:"3,keyasint,omitempty"`

	// Entries are the member entries involved.
	Entries []string `cbor:"4,keyasint,omitempty"`
}

// TeamAction indicates the team operation.
type TeamAction uint8

const (
	// TeamCreated indicates an engine token was created for an observer.
	TeamCreated TeamAction = 0
	// TeamRemoved indicates an engine token was removed.
	TeamRemoved TeamAction = 1
	// TeamJoined indicates entries joined an engine token.
	TeamJoined TeamAction = 2
	// TeamLeft indicates entries left an engine token.
	TeamLeft TeamAction = 3
	// TeamRejoined indicates entries were re-added after a host team change.
	TeamRejoined TeamAction = 4
	// TeamForeign indicates the host sent a packet naming a reserved team.
	TeamForeign TeamAction = 5
)

// String returns the team action name.
func (a TeamAction) String() string {
	switch a {
	case TeamCreated:
		return "CREATED"
	case TeamRemoved:
		return "REMOVED"
	case TeamJoined:
		return "JOINED"
	case TeamLeft:
		return "LEFT"
	case TeamRejoined:
		return "REJOINED"
	case TeamForeign:
		return "FOREIGN"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures engine and interceptor lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what changed state.
type StateEntity uint8

const (
	// StateEntityEngine indicates an engine state change.
	StateEntityEngine StateEntity = 0
	// StateEntityInterceptor indicates an interceptor attach or detach.
	StateEntityInterceptor StateEntity = 1
	// StateEntityHighlight indicates a highlight state change.
	StateEntityHighlight StateEntity = 2
	// StateEntityConnection indicates an observer connection state change.
	StateEntityConnection StateEntity = 3
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityEngine:
		return "ENGINE"
	case StateEntityInterceptor:
		return "INTERCEPTOR"
	case StateEntityHighlight:
		return "HIGHLIGHT"
	case StateEntityConnection:
		return "CONNECTION"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// PacketID is the packet being processed (if applicable).
	PacketID *int32 `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
