package stream

import (
	"encoding/json"
	"errors"
	"time"
)

// Errors
var (
	ErrClosed = errors.New("stream client closed")
)

// State is the connection lifecycle state.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateOpen         State = "open"
	StateClosing      State = "closing"
	StateClosed       State = "closed"
)

// Outbound control message types.
const (
	MessageSubscribe   = "subscribe"
	MessageUnsubscribe = "unsubscribe"
	MessageJoin        = "join"
	MessageLeave       = "leave"
	MessagePing        = "ping"
)

// Inbound message types.
const (
	MessageTick = "tick"
)

// Message is an outbound control message.
type Message struct {
	Type            string `json:"type"`
	Symbol          string `json:"symbol,omitempty"`
	InstrumentToken int64  `json:"instrument_token,omitempty"`
	Data            any    `json:"data,omitempty"`
}

// RoomData is the payload of join/leave messages.
type RoomData struct {
	Room string `json:"room"`
}

// Envelope is the inbound message framing: a type discriminator plus payload.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Listener receives the raw payload of an inbound message.
type Listener func(data json.RawMessage)

// Config configures a stream client.
type Config struct {
	URL              string        // WebSocket base URL
	BaseDelay        time.Duration // First reconnect delay factor
	MaxDelay         time.Duration // Reconnect delay cap
	BackoffFactor    float64       // Per-attempt delay multiplier
	WriteTimeout     time.Duration // Write deadline for sends
	HandshakeTimeout time.Duration // Dial handshake timeout
	PingInterval     time.Duration // Keepalive ping cadence, 0 disables
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BaseDelay:        1 * time.Second,
		MaxDelay:         30 * time.Second,
		BackoffFactor:    1.5,
		WriteTimeout:     5 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}

// Stats provides a snapshot of client state for health reporting.
type Stats struct {
	State             State
	QueuedMessages    int
	Subscriptions     int
	ReconnectAttempts int
}
