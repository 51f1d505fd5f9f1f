package connection

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected = errors.New("not connected")
	ErrStopped      = errors.New("connection manager stopped")
)

// State is the connection lifecycle state. Exactly one value holds at
// a time; it is owned by the Manager and only observed elsewhere.
type State int

const (
	// StateDisconnected means no connection exists and none is pending.
	StateDisconnected State = iota

	// StateConnecting means a fresh, user-visible connect is in flight.
	StateConnecting

	// StateConnected means the socket is open and usable.
	StateConnected

	// StateReconnecting means the connection dropped and a retry is
	// pending or in flight.
	StateReconnecting

	// StateError means the attempt budget is exhausted; only an
	// explicit Connect leaves this state.
	StateError
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// StateChange is delivered to state subscribers on every transition.
type StateChange struct {
	Old State
	New State
	Err error // cause, when the transition was driven by a failure
}

// RawMessage is an inbound frame handed to the Message Dispatcher.
type RawMessage struct {
	Data       []byte    // Raw message bytes from the websocket
	ReceivedAt time.Time // Local timestamp when the frame was read
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	WSURL                string        // Server base URL (e.g. ws://localhost:8000)
	TableID              string        // Fixed table identifier
	HeartbeatInterval    time.Duration // Liveness ping interval while connected
	ReconnectBaseDelay   time.Duration // Backoff base; also the jitter bound
	ReconnectMaxDelay    time.Duration // Backoff cap
	MaxReconnectAttempts int           // Consecutive failures before StateError
	HandshakeTimeout     time.Duration // Websocket dial timeout
	WriteTimeout         time.Duration // Write deadline for sends
	MessageBufferSize    int           // Inbound frame channel buffer size
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		TableID:              "main",
		HeartbeatInterval:    30 * time.Second,
		ReconnectBaseDelay:   1 * time.Second,
		ReconnectMaxDelay:    30 * time.Second,
		MaxReconnectAttempts: 10,
		HandshakeTimeout:     10 * time.Second,
		WriteTimeout:         5 * time.Second,
		MessageBufferSize:    256,
	}
}

// ManagerStats provides a view of the manager for status surfaces.
type ManagerStats struct {
	State    State
	Attempts int
}
