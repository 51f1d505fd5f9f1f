package dispatch

import (
	"errors"

	"github.com/mmgame/tableclient/internal/protocol"
)

// Outbound validation errors.
var (
	ErrNameRequired = errors.New("player name is required")
	ErrNameTooLong  = errors.New("player name exceeds 20 characters")
	ErrBuyInRange   = errors.New("buy-in must be between 1 and 10000")
	ErrQuoteLevels  = errors.New("quote requires 0 < bid < ask")
	ErrTradeSide    = errors.New("trade side must be buy or sell")
	ErrTradePrice   = errors.New("trade price must be positive")
	ErrWidthRange   = errors.New("bid width must be positive")
	ErrMaxSpreads   = errors.New("max spreads must be positive")
)

// Outbound validation limits.
const (
	MaxNameLen = 20
	MinBuyIn   = 1
	MaxBuyIn   = 10000
)

// Conn is the slice of the connection manager the dispatcher needs.
type Conn interface {
	// Send encodes an action onto the socket.
	Send(action protocol.Action) error

	// ResetAttempts clears the reconnect budget after the server
	// confirms membership.
	ResetAttempts()
}

// DispatcherStats contains runtime counters.
type DispatcherStats struct {
	Received    int64
	Handled     int64
	ParseErrors int64
	Unknown     int64
}
