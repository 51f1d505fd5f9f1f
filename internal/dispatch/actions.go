package dispatch

import (
	"github.com/mmgame/tableclient/internal/protocol"
)

// Join validates and sends a join request. The name and buy-in are
// staged locally first so a later silent rejoin can reuse them.
func (d *Dispatcher) Join(name string, buyIn int) error {
	if name == "" {
		return ErrNameRequired
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	if buyIn < MinBuyIn || buyIn > MaxBuyIn {
		return ErrBuyInRange
	}

	d.sess.StageJoin(name, buyIn)
	return d.conn.Send(protocol.Join(name, buyIn))
}

// Quote sends a maker quote. The server enforces width limits; the
// client only rejects levels that cannot form a market.
func (d *Dispatcher) Quote(bid, ask float64) error {
	if bid <= 0 || ask <= bid {
		return ErrQuoteLevels
	}
	return d.conn.Send(protocol.Quote(bid, ask))
}

// Trade sends a taker trade against the standing quote.
func (d *Dispatcher) Trade(side string, price float64) error {
	if side != protocol.SideBuy && side != protocol.SideSell {
		return ErrTradeSide
	}
	if price <= 0 {
		return ErrTradePrice
	}
	return d.conn.Send(protocol.Trade(side, price))
}

// StartHand requests the next hand.
func (d *Dispatcher) StartHand() error {
	return d.conn.Send(protocol.StartHand())
}

// Away marks the player as sitting out after the current hand.
func (d *Dispatcher) Away() error {
	return d.conn.Send(protocol.Away())
}

// JoinBack returns from away or cancels a pending away/leave.
func (d *Dispatcher) JoinBack() error {
	return d.conn.Send(protocol.JoinBack())
}

// Leave requests to leave the table. The session record is not touched
// here; it changes when the server confirms with a you_left event.
func (d *Dispatcher) Leave() error {
	return d.conn.Send(protocol.Leave())
}

// StartWidthAuction initiates a width auction.
func (d *Dispatcher) StartWidthAuction() error {
	return d.conn.Send(protocol.StartWidthAuction())
}

// SubmitWidthBid submits a sealed bid into the running auction.
func (d *Dispatcher) SubmitWidthBid(width float64) error {
	if width <= 0 {
		return ErrWidthRange
	}
	return d.conn.Send(protocol.SubmitWidthBid(width))
}

// UpdateOptions changes the table options.
func (d *Dispatcher) UpdateOptions(auctionEnabled bool, maxSpreads int) error {
	if maxSpreads <= 0 {
		return ErrMaxSpreads
	}
	return d.conn.Send(protocol.UpdateOptions(auctionEnabled, maxSpreads))
}

// Ping sends a liveness ping outside the heartbeat schedule.
func (d *Dispatcher) Ping() error {
	return d.conn.Send(protocol.Ping())
}
