package protocol

// Action names accepted by the server.
const (
	ActionJoin              = "join"
	ActionPing              = "ping"
	ActionQuote             = "quote"
	ActionTrade             = "trade"
	ActionStartHand         = "start_hand"
	ActionAway              = "away"
	ActionJoinBack          = "join_back"
	ActionLeave             = "leave"
	ActionStartWidthAuction = "start_width_auction"
	ActionSubmitWidthBid    = "submit_width_bid"
	ActionUpdateOptions     = "update_options"
)

// Trade sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Action is the outbound envelope. The server expects a flat object
// with the discriminant inline, so every per-action field lives here
// with omitempty. Numeric fields that may legitimately be zero are
// pointers so omitempty does not drop them.
type Action struct {
	Action string `json:"action"`

	// join
	Name  string `json:"name,omitempty"`
	BuyIn int    `json:"buy_in,omitempty"`

	// quote
	Bid *float64 `json:"bid,omitempty"`
	Ask *float64 `json:"ask,omitempty"`

	// trade
	Side  string   `json:"side,omitempty"`
	Price *float64 `json:"price,omitempty"`

	// submit_width_bid
	Width *float64 `json:"width,omitempty"`

	// update_options
	AuctionEnabled *bool `json:"auction_enabled,omitempty"`
	MaxSpreads     *int  `json:"max_spreads,omitempty"`
}

// Join builds a join action.
func Join(name string, buyIn int) Action {
	return Action{Action: ActionJoin, Name: name, BuyIn: buyIn}
}

// Ping builds a liveness ping.
func Ping() Action {
	return Action{Action: ActionPing}
}

// Quote builds a maker quote.
func Quote(bid, ask float64) Action {
	return Action{Action: ActionQuote, Bid: &bid, Ask: &ask}
}

// Trade builds a taker trade.
func Trade(side string, price float64) Action {
	return Action{Action: ActionTrade, Side: side, Price: &price}
}

// StartHand requests the next hand.
func StartHand() Action {
	return Action{Action: ActionStartHand}
}

// Away marks the player as sitting out.
func Away() Action {
	return Action{Action: ActionAway}
}

// JoinBack returns from away or cancels a pending status.
func JoinBack() Action {
	return Action{Action: ActionJoinBack}
}

// Leave requests to leave the table.
func Leave() Action {
	return Action{Action: ActionLeave}
}

// StartWidthAuction initiates a width auction.
func StartWidthAuction() Action {
	return Action{Action: ActionStartWidthAuction}
}

// SubmitWidthBid submits a sealed width bid.
func SubmitWidthBid(width float64) Action {
	return Action{Action: ActionSubmitWidthBid, Width: &width}
}

// UpdateOptions changes the table options.
func UpdateOptions(auctionEnabled bool, maxSpreads int) Action {
	return Action{Action: ActionUpdateOptions, AuctionEnabled: &auctionEnabled, MaxSpreads: &maxSpreads}
}
