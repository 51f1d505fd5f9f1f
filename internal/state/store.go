package state

import (
	"log/slog"
	"sync"

	"github.com/mmgame/tableclient/internal/protocol"
)

// Store is the observable holder for the snapshot. Mutations are
// routed through the dispatcher; other components read and subscribe.
type Store struct {
	logger *slog.Logger

	mu     sync.RWMutex
	snap   Snapshot
	loaded bool
	subs   []chan Snapshot
}

// NewStore creates an empty store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{logger: logger}
}

// Current returns a copy of the snapshot.
func (s *Store) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Loaded reports whether at least one full snapshot has been applied.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Subscribe returns a channel receiving a copy of the snapshot after
// every mutation. Slow subscribers miss intermediate versions rather
// than blocking the dispatcher.
func (s *Store) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Replace applies a full snapshot from a state frame. Auction and
// options survive the replace; the server announces changes to those
// through their own message types.
func (s *Store) Replace(msg *protocol.StateMsg) {
	s.mu.Lock()
	auction := s.snap.Auction
	options := s.snap.Options
	s.snap = Snapshot{
		Round:         msg.Round,
		Community:     msg.Community,
		Players:       msg.Players,
		AllPlayers:    msg.AllPlayers,
		Maker:         msg.Maker,
		Quotes:        msg.Quotes,
		Trades:        msg.Trades,
		HandNumber:    msg.HandNumber,
		RecentHistory: msg.RecentHistory,
		SessionStats:  msg.SessionStats,
		Auction:       auction,
		Options:       options,
	}
	s.loaded = true
	s.notifyLocked()
	s.mu.Unlock()
}

// MergeRound applies a round frame: round index and community reveal
// only, nothing else changes.
func (s *Store) MergeRound(round int, community []string) {
	s.mu.Lock()
	s.snap.Round = round
	s.snap.Community = community
	s.notifyLocked()
	s.mu.Unlock()
}

// Update applies an arbitrary partial merge under the store lock.
func (s *Store) Update(fn func(*Snapshot)) {
	s.mu.Lock()
	fn(&s.snap)
	s.notifyLocked()
	s.mu.Unlock()
}

// Reset drops the snapshot back to zero, e.g. after the server forgot
// the session. The next state frame counts as an initial load again.
func (s *Store) Reset() {
	s.mu.Lock()
	s.snap = Snapshot{}
	s.loaded = false
	s.notifyLocked()
	s.mu.Unlock()
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- s.snap:
		default:
		}
	}
}
