package dispatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mmgame/tableclient/internal/connection"
	"github.com/mmgame/tableclient/internal/notify"
	"github.com/mmgame/tableclient/internal/protocol"
	"github.com/mmgame/tableclient/internal/session"
	"github.com/mmgame/tableclient/internal/state"
)

// fakeConn records sent actions.
type fakeConn struct {
	mu      sync.Mutex
	sent    []protocol.Action
	resets  int
	sendErr error
}

func (c *fakeConn) Send(action protocol.Action) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, action)
	return nil
}

func (c *fakeConn) ResetAttempts() {
	c.mu.Lock()
	c.resets++
	c.mu.Unlock()
}

func (c *fakeConn) actions() []protocol.Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]protocol.Action(nil), c.sent...)
}

func (c *fakeConn) resetCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

// memStore is an in-memory session store.
type memStore struct {
	mu     sync.Mutex
	rec    session.Record
	hasRec bool
	clears int
}

func (s *memStore) Save(_ context.Context, rec session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = rec
	s.hasRec = true
	return nil
}

func (s *memStore) Load(_ context.Context) (session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRec {
		return session.Record{}, session.ErrNoRecord
	}
	return s.rec, nil
}

func (s *memStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hasRec = false
	s.clears++
	return nil
}

func (s *memStore) saved() (session.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, s.hasRec
}

type fixture struct {
	d     *Dispatcher
	conn  *fakeConn
	store *memStore
	sess  *session.Manager
	snap  *state.Store
	notif *notify.Scheduler
	input chan connection.RawMessage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	conn := &fakeConn{}
	store := &memStore{}
	sess := session.NewManager(store, 10*time.Millisecond, logger)
	snap := state.NewStore(logger)
	notif := notify.NewScheduler(time.Second, logger)
	t.Cleanup(notif.Stop)

	input := make(chan connection.RawMessage, 16)
	d := NewDispatcher(conn, input, sess, snap, notif, logger)

	return &fixture{d: d, conn: conn, store: store, sess: sess, snap: snap, notif: notif, input: input}
}

const stateWithAnn = `{"type":"state","round":1,"community":["AH"],"players":[{"pid":"p1","name":"Ann","seat":0,"stack":990}],"maker":"p1","hand_number":3}`

func TestDispatchStateInitialLoad(t *testing.T) {
	f := newFixture(t)

	f.d.dispatch([]byte(stateWithAnn))

	if !f.snap.Loaded() {
		t.Fatal("snapshot not loaded")
	}
	snap := f.snap.Current()
	if snap.Round != 1 || snap.HandNumber != 3 || len(snap.Players) != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestStateGuardTableReset(t *testing.T) {
	f := newFixture(t)
	f.sess.StageJoin("Ann", 1000)
	f.sess.ConfirmJoin("p1")
	f.d.dispatch([]byte(stateWithAnn))

	// Server restarted: roster is empty even though we believe we are
	// seated.
	f.d.dispatch([]byte(`{"type":"state","players":[]}`))

	if f.sess.Joined() {
		t.Error("session must be cleared when the table resets")
	}
	if f.snap.Loaded() {
		t.Error("snapshot must reset so the next frame is an initial load")
	}
	if f.store.clears == 0 {
		t.Error("stored record must be erased")
	}
	if _, ok := f.notif.Current(); !ok {
		t.Error("user must be told the session ended")
	}
}

func TestStateGuardMissingSelfRejoins(t *testing.T) {
	f := newFixture(t)
	f.sess.StageJoin("Ann", 1000)
	f.sess.ConfirmJoin("p1")
	f.d.dispatch([]byte(stateWithAnn))

	// Server forgot our seat but other players remain.
	f.d.dispatch([]byte(`{"type":"state","players":[{"pid":"p2","name":"Bob"}]}`))

	actions := f.conn.actions()
	if len(actions) != 1 || actions[0].Action != protocol.ActionJoin {
		t.Fatalf("actions = %+v, want one join", actions)
	}
	if actions[0].Name != "Ann" || actions[0].BuyIn != 1000 {
		t.Errorf("join = %+v, want staged name and buy-in", actions[0])
	}
	if f.snap.Loaded() {
		t.Error("dropped frame must not be applied")
	}
}

func TestStateGuardsSkippedOnInitialLoad(t *testing.T) {
	f := newFixture(t)
	f.sess.StageJoin("Ann", 1000)
	f.sess.ConfirmJoin("p1")

	// First frame after startup: missing self is normal while the
	// server processes the rejoin, apply it as-is.
	f.d.dispatch([]byte(`{"type":"state","players":[{"pid":"p2","name":"Bob"}]}`))

	if len(f.conn.actions()) != 0 {
		t.Error("no rejoin before the first snapshot is loaded")
	}
	if !f.snap.Loaded() {
		t.Error("initial frame must be applied")
	}
}

func TestJoinSuccessConfirmsAndResetsBudget(t *testing.T) {
	f := newFixture(t)
	f.sess.StageJoin("Ann", 1000)

	f.d.dispatch([]byte(`{"type":"join_success","pid":"p7","tid":"main","player":{"pid":"p7","name":"Ann"},"message":"welcome"}`))

	if !f.sess.Joined() || f.sess.PlayerID() != "p7" {
		t.Errorf("session = joined:%v pid:%q", f.sess.Joined(), f.sess.PlayerID())
	}
	if f.conn.resetCount() != 1 {
		t.Errorf("resets = %d, want 1", f.conn.resetCount())
	}
	if msg, ok := f.notif.Current(); !ok || msg != "welcome" {
		t.Errorf("notice = %q, %v", msg, ok)
	}

	// The record reaches the store once the debounce window passes.
	time.Sleep(60 * time.Millisecond)
	rec, has := f.store.saved()
	if !has || rec.PlayerID != "p7" || !rec.Joined {
		t.Errorf("stored record = %+v has=%v", rec, has)
	}
}

func TestJoinErrorNotifies(t *testing.T) {
	f := newFixture(t)

	f.d.dispatch([]byte(`{"type":"join_error","error":"name taken"}`))

	if msg, ok := f.notif.Current(); !ok || msg != "name taken" {
		t.Errorf("notice = %q, %v", msg, ok)
	}
	if f.sess.Joined() {
		t.Error("join error must not mark the session joined")
	}
}

func TestPlayerEventYouLeft(t *testing.T) {
	f := newFixture(t)
	f.sess.StageJoin("Ann", 1000)
	f.sess.ConfirmJoin("p1")

	f.d.dispatch([]byte(`{"type":"player_event","event":"you_left","player_id":"p1","message":"you left the table","redirect_to_lobby":true}`))

	if f.sess.Joined() {
		t.Error("you_left must clear the joined flag")
	}
	if f.sess.PlayerID() != "" {
		t.Error("you_left must clear the confirmed id")
	}
	rec := f.sess.Record()
	if !rec.HasLeft {
		t.Error("you_left must set HasLeft")
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	f := newFixture(t)

	f.d.dispatch([]byte(`{"type":"error","detail":"not your turn"}`))

	select {
	case detail := <-f.d.Errors():
		if detail != "not your turn" {
			t.Errorf("detail = %q", detail)
		}
	default:
		t.Fatal("error not surfaced")
	}
}

func TestRoundMergesTradeAndQuoteDoNot(t *testing.T) {
	f := newFixture(t)
	f.d.dispatch([]byte(stateWithAnn))

	f.d.dispatch([]byte(`{"type":"round","round":2,"community":["AH","KD"]}`))
	f.d.dispatch([]byte(`{"type":"quote","maker":"p1","bid":10,"ask":12}`))
	f.d.dispatch([]byte(`{"type":"trade","pid":"p2","side":"buy","price":12}`))

	snap := f.snap.Current()
	if snap.Round != 2 || len(snap.Community) != 2 {
		t.Errorf("round merge failed: %+v", snap)
	}

	// Quote and trade lists come from the next state broadcast, never
	// from the event frames themselves.
	if len(snap.Quotes) != 0 {
		t.Errorf("quotes = %+v, want none from a quote frame", snap.Quotes)
	}
	if len(snap.Trades) != 0 {
		t.Errorf("trades = %+v, want none from a trade frame", snap.Trades)
	}
	if snap.Maker != "p1" {
		t.Errorf("maker = %q, must only change via state frames", snap.Maker)
	}

	if stats := f.d.Stats(); stats.Handled != 4 {
		t.Errorf("handled = %d, want 4", stats.Handled)
	}

	f.d.dispatch([]byte(`{"type":"state","round":2,"players":[{"pid":"p1","name":"Ann"}],"maker":"p1","quotes":[{"bid":10,"ask":12,"round":2,"maker":"p1"}],"trades":[{"pid":"p2","side":"buy","price":12,"round":2}]}`))

	snap = f.snap.Current()
	if len(snap.Quotes) != 1 || len(snap.Trades) != 1 {
		t.Errorf("state frame must carry the authoritative lists, got %+v / %+v", snap.Quotes, snap.Trades)
	}
}

func TestAuctionLifecycle(t *testing.T) {
	f := newFixture(t)
	f.d.dispatch([]byte(stateWithAnn))

	f.d.dispatch([]byte(`{"type":"width_auction_started","initiator":"Ann","duration_seconds":30,"message":"auction started"}`))
	f.d.dispatch([]byte(`{"type":"auction_timer_update","seconds_remaining":25}`))
	f.d.dispatch([]byte(`{"type":"width_bid_received","pid":"p1","player_name":"Ann","message":"bid received"}`))

	snap := f.snap.Current()
	if !snap.Auction.Active || snap.Auction.SecondsRemaining != 25 || snap.Auction.BidsReceived != 1 {
		t.Errorf("auction = %+v", snap.Auction)
	}

	f.d.dispatch([]byte(`{"type":"width_auction_complete","winner_pid":"p1","winner_name":"Ann","width":2.5,"message":"Ann won"}`))

	snap = f.snap.Current()
	if snap.Auction.Active || snap.Auction.WinnerName != "Ann" || snap.Auction.Width != 2.5 {
		t.Errorf("auction after complete = %+v", snap.Auction)
	}
}

func TestAuctionSurvivesStateFrame(t *testing.T) {
	f := newFixture(t)
	f.d.dispatch([]byte(stateWithAnn))
	f.d.dispatch([]byte(`{"type":"width_auction_started","duration_seconds":30,"message":"go"}`))

	// A full snapshot between auction messages must not wipe it.
	f.d.dispatch([]byte(stateWithAnn))

	if snap := f.snap.Current(); !snap.Auction.Active {
		t.Error("auction state lost across a state frame")
	}
}

func TestOptionsUpdated(t *testing.T) {
	f := newFixture(t)

	f.d.dispatch([]byte(`{"type":"options_updated","auction_enabled":true,"max_spreads":3}`))

	snap := f.snap.Current()
	if !snap.Options.AuctionEnabled || snap.Options.MaxSpreads != 3 {
		t.Errorf("options = %+v", snap.Options)
	}
}

func TestUnknownAndMalformedFrames(t *testing.T) {
	f := newFixture(t)

	f.d.dispatch([]byte(`{"type":"mystery"}`))
	f.d.dispatch([]byte(`not json`))

	stats := f.d.Stats()
	if stats.Unknown != 1 {
		t.Errorf("unknown = %d, want 1", stats.Unknown)
	}
	if stats.ParseErrors != 1 {
		t.Errorf("parse errors = %d, want 1", stats.ParseErrors)
	}
	if stats.Handled != 0 {
		t.Errorf("handled = %d, want 0", stats.Handled)
	}
}

func TestStartStopLoop(t *testing.T) {
	f := newFixture(t)

	if err := f.d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	f.input <- connection.RawMessage{Data: []byte(stateWithAnn), ReceivedAt: time.Now()}

	deadline := time.Now().Add(time.Second)
	for !f.snap.Loaded() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !f.snap.Loaded() {
		t.Fatal("frame not dispatched by the loop")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := f.d.Stop(ctx); err != nil {
		t.Errorf("Stop: %v", err)
	}
}

func TestActionValidation(t *testing.T) {
	tests := []struct {
		name    string
		call    func(d *Dispatcher) error
		wantErr error
	}{
		{"empty name", func(d *Dispatcher) error { return d.Join("", 1000) }, ErrNameRequired},
		{"long name", func(d *Dispatcher) error { return d.Join("abcdefghijklmnopqrstu", 1000) }, ErrNameTooLong},
		{"buy-in too low", func(d *Dispatcher) error { return d.Join("Ann", 0) }, ErrBuyInRange},
		{"buy-in too high", func(d *Dispatcher) error { return d.Join("Ann", 10001) }, ErrBuyInRange},
		{"inverted quote", func(d *Dispatcher) error { return d.Quote(12, 10) }, ErrQuoteLevels},
		{"zero bid quote", func(d *Dispatcher) error { return d.Quote(0, 10) }, ErrQuoteLevels},
		{"bad trade side", func(d *Dispatcher) error { return d.Trade("hold", 10) }, ErrTradeSide},
		{"bad trade price", func(d *Dispatcher) error { return d.Trade("buy", 0) }, ErrTradePrice},
		{"bad width", func(d *Dispatcher) error { return d.SubmitWidthBid(0) }, ErrWidthRange},
		{"bad max spreads", func(d *Dispatcher) error { return d.UpdateOptions(true, 0) }, ErrMaxSpreads},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if err := tt.call(f.d); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if n := len(f.conn.actions()); n != 0 {
				t.Errorf("%d actions sent despite invalid input", n)
			}
		})
	}
}

func TestJoinStagesAndSends(t *testing.T) {
	f := newFixture(t)

	if err := f.d.Join("Ann", 1500); err != nil {
		t.Fatalf("Join: %v", err)
	}

	rec := f.sess.Record()
	if rec.PlayerName != "Ann" || rec.BuyIn != 1500 {
		t.Errorf("staged record = %+v", rec)
	}

	actions := f.conn.actions()
	if len(actions) != 1 || actions[0].Action != protocol.ActionJoin {
		t.Fatalf("actions = %+v", actions)
	}
}
