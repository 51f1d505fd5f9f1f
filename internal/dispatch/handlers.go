package dispatch

import (
	"context"

	"github.com/mmgame/tableclient/internal/protocol"
	"github.com/mmgame/tableclient/internal/state"
)

// handleState applies a full snapshot, guarding first against the two
// ways a server restart can invalidate the local session. Both guards
// require a confirmed seat and a previously loaded snapshot: the first
// frame after startup or a resume is an initial load and is applied
// as-is.
func (d *Dispatcher) handleState(msg *protocol.StateMsg) {
	if d.sess.Joined() && d.snap.Loaded() {
		if len(msg.Players) == 0 {
			d.sessionLost("the table was reset")
			return
		}
		if !msg.HasPlayer(d.sess.PlayerID()) {
			d.rejoinSilently()
			return
		}
	}

	d.snap.Replace(msg)
}

// sessionLost erases the local session: the server no longer knows this
// table, so a stored identity would only mislead the next connect.
func (d *Dispatcher) sessionLost(reason string) {
	d.logger.Warn("session lost", "reason", reason)

	if err := d.sess.Clear(context.Background()); err != nil {
		d.logger.Error("failed to clear session", "error", err)
	}
	d.snap.Reset()
	d.notif.Show("Session ended: "+reason, 0)
}

// rejoinSilently re-sends the join for a seat the server forgot, using
// the staged name and buy-in. The frame that dropped us is discarded;
// the next one arrives after the server has seated us again.
func (d *Dispatcher) rejoinSilently() {
	rec := d.sess.Record()
	if rec.PlayerName == "" {
		// Nothing to rejoin as. Treat it like a lost session.
		d.sessionLost("this seat is gone")
		return
	}

	d.logger.Info("seat missing from roster, rejoining",
		"player", rec.PlayerName,
		"buy_in", rec.BuyIn,
	)

	d.snap.Reset()
	if err := d.conn.Send(protocol.Join(rec.PlayerName, rec.BuyIn)); err != nil {
		d.logger.Error("silent rejoin failed", "error", err)
	}
}

// Trade and quote frames are observational. The authoritative quote
// and trade lists arrive in the state broadcast that follows, so
// applying them here would double-count.
func (d *Dispatcher) handleTrade(msg *protocol.TradeMsg) {
	d.logger.Info("trade executed",
		"pid", msg.PID,
		"side", msg.Side,
		"price", msg.Price,
	)
}

func (d *Dispatcher) handleQuote(msg *protocol.QuoteMsg) {
	d.logger.Info("quote posted",
		"maker", msg.Maker,
		"bid", msg.Bid,
		"ask", msg.Ask,
	)
}

func (d *Dispatcher) handleJoinSuccess(msg *protocol.JoinSuccessMsg) {
	d.sess.ConfirmJoin(msg.PID)
	d.conn.ResetAttempts()

	if msg.Message != "" {
		d.notif.Show(msg.Message, 0)
	}

	d.logger.Info("join confirmed",
		"pid", msg.PID,
		"tid", msg.TID,
		"player", msg.Player.Name,
	)
}

func (d *Dispatcher) handleJoinError(msg *protocol.JoinErrorMsg) {
	d.logger.Warn("join rejected", "error", msg.Error)
	d.notif.Show(msg.Error, 0)
}

// handlePlayerEvent applies roster change events. Only you_left
// mutates local state; everything else is chatter for the user.
func (d *Dispatcher) handlePlayerEvent(msg *protocol.PlayerEventMsg) {
	switch msg.Event {
	case protocol.EventYouLeft:
		// The server vacated our seat. The identity is dead but the
		// socket stays open so the user can watch or rejoin.
		d.sess.MarkLeft()
		d.notif.Show(msg.Message, 0)

	case protocol.EventPlayerJoined, protocol.EventPlayerLeft,
		protocol.EventPendingLeave, protocol.EventYouPendingLeave:
		d.notif.Show(msg.Message, 0)

	default:
		d.logger.Debug("unhandled player event", "event", msg.Event)
		if msg.Message != "" {
			d.notif.Show(msg.Message, 0)
		}
	}
}

func (d *Dispatcher) handleError(msg *protocol.ErrorMsg) {
	d.logger.Warn("server error", "detail", msg.Detail)

	select {
	case d.errs <- msg.Detail:
	default:
		d.logger.Warn("error channel full, dropping", "detail", msg.Detail)
	}
	d.notif.Show(msg.Detail, 0)
}

func (d *Dispatcher) handleOptionsUpdated(msg *protocol.OptionsUpdatedMsg) {
	d.snap.Update(func(s *state.Snapshot) {
		s.Options.AuctionEnabled = msg.AuctionEnabled
		s.Options.MaxSpreads = msg.MaxSpreads
	})
	d.notif.Show("Table options updated", 0)
}

func (d *Dispatcher) handleAuctionStarted(msg *protocol.WidthAuctionStartedMsg) {
	d.snap.Update(func(s *state.Snapshot) {
		s.Auction = state.Auction{
			Active:           true,
			Initiator:        msg.Initiator,
			SecondsRemaining: msg.DurationSeconds,
		}
	})
	d.notif.Show(msg.Message, 0)
}

func (d *Dispatcher) handleBidReceived(msg *protocol.WidthBidReceivedMsg) {
	d.snap.Update(func(s *state.Snapshot) {
		s.Auction.BidsReceived++
	})
	if msg.Message != "" {
		d.notif.Show(msg.Message, 0)
	}
}

func (d *Dispatcher) handleAuctionComplete(msg *protocol.WidthAuctionCompleteMsg) {
	d.snap.Update(func(s *state.Snapshot) {
		s.Auction.Active = false
		s.Auction.SecondsRemaining = 0
		s.Auction.WinnerPID = msg.WinnerPID
		s.Auction.WinnerName = msg.WinnerName
		s.Auction.Width = msg.Width
	})
	d.notif.Show(msg.Message, 0)
}

func (d *Dispatcher) handleAuctionTimeout(msg *protocol.WidthAuctionTimeoutMsg) {
	d.snap.Update(func(s *state.Snapshot) {
		s.Auction.Active = false
		s.Auction.SecondsRemaining = 0
	})
	d.notif.Show(msg.Message, 0)
}
