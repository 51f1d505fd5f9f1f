package protocol

import "encoding/json"

// Inbound message types.
const (
	TypeState               = "state"
	TypeRound               = "round"
	TypeTrade               = "trade"
	TypeQuote               = "quote"
	TypeHandComplete        = "hand_complete"
	TypeJoinSuccess         = "join_success"
	TypeJoinError           = "join_error"
	TypePlayerEvent         = "player_event"
	TypeError               = "error"
	TypeInfo                = "info"
	TypePong                = "pong"
	TypeOptionsUpdated      = "options_updated"
	TypeWidthAuctionStarted = "width_auction_started"
	TypeAuctionTimerUpdate  = "auction_timer_update"
	TypeWidthBidReceived    = "width_bid_received"
	TypeWidthAuctionDone    = "width_auction_complete"
	TypeWidthAuctionTimeout = "width_auction_timeout"
)

// player_event sub-events.
const (
	EventYouLeft         = "you_left"
	EventPlayerLeft      = "player_left"
	EventPlayerJoined    = "player_joined"
	EventPendingLeave    = "pending_leave"
	EventYouPendingLeave = "you_pending_leave"
)

// Player statuses the server reports.
const (
	StatusActive         = "active"
	StatusAway           = "away"
	StatusLeaving        = "leaving"
	StatusPendingAway    = "pending_away"
	StatusPendingLeaving = "pending_leaving"
	StatusLeft           = "left"
	StatusEliminated     = "eliminated"
)

// Envelope carries the discriminant of an inbound frame. Decode the
// full payload from the raw bytes once the type is known.
type Envelope struct {
	Type string `json:"type"`
}

// MessageType extracts the discriminant from a raw frame.
func MessageType(data []byte) (string, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", err
	}
	return env.Type, nil
}

// Player is the public view of one seat.
type Player struct {
	PID     string   `json:"pid"`
	Name    string   `json:"name"`
	Seat    int      `json:"seat"`
	Stack   int      `json:"stack"`
	BuyIn   int      `json:"buy_in"`
	PnL     float64  `json:"pnl"`
	Status  string   `json:"status"`
	Cards   []string `json:"cards,omitempty"`
	HasLeft bool     `json:"has_left,omitempty"`
}

// QuoteRecord is one maker quote.
type QuoteRecord struct {
	Bid   float64 `json:"bid"`
	Ask   float64 `json:"ask"`
	Round int     `json:"round"`
	Maker string  `json:"maker"`
}

// TradeRecord is one executed trade.
type TradeRecord struct {
	PID   string  `json:"pid"`
	Side  string  `json:"side"`
	Price float64 `json:"price"`
	Round int     `json:"round"`
}

// StateMsg is the authoritative full snapshot.
type StateMsg struct {
	Round         int             `json:"round"`
	Community     []string        `json:"community"`
	Players       []Player        `json:"players"`
	AllPlayers    []Player        `json:"all_players"`
	Maker         string          `json:"maker"`
	Quotes        []QuoteRecord   `json:"quotes"`
	Trades        []TradeRecord   `json:"trades"`
	HandNumber    int             `json:"hand_number"`
	RecentHistory json.RawMessage `json:"recent_history,omitempty"`
	SessionStats  json.RawMessage `json:"session_stats,omitempty"`
}

// HasPlayer reports whether the roster contains pid.
func (m *StateMsg) HasPlayer(pid string) bool {
	for _, p := range m.Players {
		if p.PID == pid {
			return true
		}
	}
	return false
}

// RoundMsg advances the round and reveals community cards.
type RoundMsg struct {
	Round     int      `json:"round"`
	Community []string `json:"community"`
}

// TradeMsg announces an executed trade.
type TradeMsg struct {
	PID   string  `json:"pid"`
	Side  string  `json:"side"`
	Price float64 `json:"price"`
}

// QuoteMsg announces a new maker quote.
type QuoteMsg struct {
	Maker string  `json:"maker"`
	Bid   float64 `json:"bid"`
	Ask   float64 `json:"ask"`
}

// HandCompleteMsg announces settlement of a hand.
type HandCompleteMsg struct {
	Message string `json:"message"`
}

// JoinSuccessMsg confirms membership and assigns the real player id.
type JoinSuccessMsg struct {
	PID     string `json:"pid"`
	TID     string `json:"tid"`
	Player  Player `json:"player"`
	Message string `json:"message"`
}

// JoinErrorMsg rejects a join attempt.
type JoinErrorMsg struct {
	Error string `json:"error"`
}

// PlayerEventMsg is the envelope for roster change events.
type PlayerEventMsg struct {
	Event           string `json:"event"`
	PlayerID        string `json:"player_id,omitempty"`
	PlayerName      string `json:"player_name,omitempty"`
	PlayerSeat      int    `json:"player_seat,omitempty"`
	Message         string `json:"message"`
	RedirectToLobby bool   `json:"redirect_to_lobby,omitempty"`
}

// ErrorMsg is a server-reported application error.
type ErrorMsg struct {
	Detail string `json:"detail"`
}

// InfoMsg is free-text informational chatter.
type InfoMsg struct {
	Detail string `json:"detail"`
}

// OptionsUpdatedMsg carries the current table options.
type OptionsUpdatedMsg struct {
	AuctionEnabled bool `json:"auction_enabled"`
	MaxSpreads     int  `json:"max_spreads"`
}

// WidthAuctionStartedMsg opens a width auction.
type WidthAuctionStartedMsg struct {
	Initiator       string `json:"initiator,omitempty"`
	DurationSeconds int    `json:"duration_seconds"`
	Message         string `json:"message"`
}

// AuctionTimerMsg ticks the auction countdown.
type AuctionTimerMsg struct {
	SecondsRemaining int `json:"seconds_remaining"`
}

// WidthBidReceivedMsg acknowledges a sealed bid. Bids are sealed, so
// the width itself is never echoed.
type WidthBidReceivedMsg struct {
	PID        string `json:"pid"`
	PlayerName string `json:"player_name"`
	Message    string `json:"message"`
}

// WidthAuctionCompleteMsg announces the winning width.
type WidthAuctionCompleteMsg struct {
	WinnerPID  string  `json:"winner_pid"`
	WinnerName string  `json:"winner_name"`
	Width      float64 `json:"width"`
	Message    string  `json:"message"`
}

// WidthAuctionTimeoutMsg closes an auction with no winner.
type WidthAuctionTimeoutMsg struct {
	Message string `json:"message"`
}
