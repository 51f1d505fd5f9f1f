package dispatch

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/mmgame/tableclient/internal/connection"
	"github.com/mmgame/tableclient/internal/notify"
	"github.com/mmgame/tableclient/internal/protocol"
	"github.com/mmgame/tableclient/internal/session"
	"github.com/mmgame/tableclient/internal/state"
)

// Dispatcher consumes frames from the Connection Manager and applies
// them.
type Dispatcher struct {
	conn   Conn
	sess   *session.Manager
	snap   *state.Store
	notif  *notify.Scheduler
	logger *slog.Logger

	input <-chan connection.RawMessage
	errs  chan string // server-reported errors for the UI surface

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	received    int64
	handled     int64
	parseErrors int64
	unknown     int64
}

// NewDispatcher creates a dispatcher reading from input.
func NewDispatcher(
	conn Conn,
	input <-chan connection.RawMessage,
	sess *session.Manager,
	snap *state.Store,
	notif *notify.Scheduler,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		conn:   conn,
		sess:   sess,
		snap:   snap,
		notif:  notif,
		logger: logger,
		input:  input,
		errs:   make(chan string, 16),
	}
}

// Start begins the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx, d.cancel = context.WithCancel(ctx)

	d.wg.Add(1)
	go d.loop()

	d.logger.Info("dispatcher started")
	return nil
}

// Stop shuts the dispatch loop down.
func (d *Dispatcher) Stop(ctx context.Context) error {
	if d.cancel != nil {
		d.cancel()
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher stopped")
	case <-ctx.Done():
		d.logger.Warn("dispatcher stop timed out")
	}
	return nil
}

// Errors returns server-reported application errors, e.g. a rejected
// trade.
func (d *Dispatcher) Errors() <-chan string {
	return d.errs
}

// Stats returns current counters.
func (d *Dispatcher) Stats() DispatcherStats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return DispatcherStats{
		Received:    d.received,
		Handled:     d.handled,
		ParseErrors: d.parseErrors,
		Unknown:     d.unknown,
	}
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return
		case raw, ok := <-d.input:
			if !ok {
				d.logger.Info("input channel closed")
				return
			}
			d.dispatch(raw.Data)
		}
	}
}

// dispatch decodes one frame and hands it to the handler for its type.
func (d *Dispatcher) dispatch(data []byte) {
	d.count(&d.received)

	msgType, err := protocol.MessageType(data)
	if err != nil {
		d.logger.Warn("failed to extract message type", "error", err)
		d.count(&d.parseErrors)
		return
	}

	switch msgType {
	case protocol.TypeState:
		var msg protocol.StateMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleState(&msg)

	case protocol.TypeRound:
		var msg protocol.RoundMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.snap.MergeRound(msg.Round, msg.Community)

	case protocol.TypeTrade:
		var msg protocol.TradeMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleTrade(&msg)

	case protocol.TypeQuote:
		var msg protocol.QuoteMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleQuote(&msg)

	case protocol.TypeHandComplete:
		var msg protocol.HandCompleteMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.notif.Show(msg.Message, 0)

	case protocol.TypeJoinSuccess:
		var msg protocol.JoinSuccessMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleJoinSuccess(&msg)

	case protocol.TypeJoinError:
		var msg protocol.JoinErrorMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleJoinError(&msg)

	case protocol.TypePlayerEvent:
		var msg protocol.PlayerEventMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handlePlayerEvent(&msg)

	case protocol.TypeError:
		var msg protocol.ErrorMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleError(&msg)

	case protocol.TypeInfo:
		var msg protocol.InfoMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.notif.Show(msg.Detail, 0)

	case protocol.TypePong:
		// Liveness reply, nothing to apply.

	case protocol.TypeOptionsUpdated:
		var msg protocol.OptionsUpdatedMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleOptionsUpdated(&msg)

	case protocol.TypeWidthAuctionStarted:
		var msg protocol.WidthAuctionStartedMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleAuctionStarted(&msg)

	case protocol.TypeAuctionTimerUpdate:
		var msg protocol.AuctionTimerMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.snap.Update(func(s *state.Snapshot) {
			s.Auction.SecondsRemaining = msg.SecondsRemaining
		})

	case protocol.TypeWidthBidReceived:
		var msg protocol.WidthBidReceivedMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleBidReceived(&msg)

	case protocol.TypeWidthAuctionDone:
		var msg protocol.WidthAuctionCompleteMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleAuctionComplete(&msg)

	case protocol.TypeWidthAuctionTimeout:
		var msg protocol.WidthAuctionTimeoutMsg
		if !d.decode(data, &msg, msgType) {
			return
		}
		d.handleAuctionTimeout(&msg)

	default:
		d.logger.Debug("skipping message type", "type", msgType)
		d.count(&d.unknown)
		return
	}

	d.count(&d.handled)
}

func (d *Dispatcher) decode(data []byte, v any, msgType string) bool {
	if err := json.Unmarshal(data, v); err != nil {
		d.logger.Warn("failed to parse message", "type", msgType, "error", err)
		d.count(&d.parseErrors)
		return false
	}
	return true
}

func (d *Dispatcher) count(field *int64) {
	d.mu.Lock()
	*field++
	d.mu.Unlock()
}
