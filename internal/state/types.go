package state

import (
	"encoding/json"

	"github.com/mmgame/tableclient/internal/protocol"
)

// Snapshot is the client copy of the authoritative table state.
type Snapshot struct {
	Round      int
	Community  []string
	Players    []protocol.Player
	AllPlayers []protocol.Player
	Maker      string
	Quotes     []protocol.QuoteRecord
	Trades     []protocol.TradeRecord
	HandNumber int

	// Optional blocks the server includes on some frames.
	RecentHistory json.RawMessage
	SessionStats  json.RawMessage

	Auction Auction
	Options Options
}

// Auction is the client view of a running width auction.
type Auction struct {
	Active           bool
	Initiator        string
	SecondsRemaining int
	BidsReceived     int
	WinnerPID        string
	WinnerName       string
	Width            float64
}

// Options are the table options.
type Options struct {
	AuctionEnabled bool
	MaxSpreads     int
}

// Player looks up a roster entry by pid.
func (s *Snapshot) Player(pid string) (protocol.Player, bool) {
	for _, p := range s.Players {
		if p.PID == pid {
			return p, true
		}
	}
	return protocol.Player{}, false
}

// PlayerName resolves a pid to a display name, falling back to the
// leaderboard for players who already left.
func (s *Snapshot) PlayerName(pid string) string {
	if p, ok := s.Player(pid); ok {
		return p.Name
	}
	for _, p := range s.AllPlayers {
		if p.PID == pid {
			return p.Name
		}
	}
	return pid
}
