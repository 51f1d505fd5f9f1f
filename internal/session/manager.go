package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Manager owns the in-memory session record and writes it through to
// the store, debounced. Mutations come from the dispatcher; the
// connection manager reads Joined/PlayerID when deciding whether and
// how to reconnect.
type Manager struct {
	store    Store
	logger   *slog.Logger
	debounce time.Duration

	mu        sync.Mutex
	rec       Record
	saveTimer *time.Timer
}

// NewManager creates a session manager around a store.
func NewManager(store Store, debounce time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:    store,
		logger:   logger,
		debounce: debounce,
		rec:      defaultRecord(),
	}
}

// Load restores the session record at startup. A missing, corrupt, or
// stale record leaves the manager at defaults; stale records are
// erased from the store.
func (m *Manager) Load(ctx context.Context) error {
	rec, err := m.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrNoRecord) {
			return nil
		}
		return err
	}

	if !rec.Fresh(time.Now()) {
		m.logger.Info("discarding stale session record", "saved_at", rec.SavedAt)
		return m.store.Clear(ctx)
	}

	m.mu.Lock()
	m.rec = rec
	m.mu.Unlock()

	m.logger.Info("restored session",
		"player", rec.PlayerName,
		"pid", rec.PlayerID,
		"joined", rec.Joined,
	)
	return nil
}

// Record returns a copy of the current record.
func (m *Manager) Record() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

// Joined reports whether the server has confirmed membership.
func (m *Manager) Joined() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.Joined
}

// PlayerID returns the current player id, confirmed or provisional.
func (m *Manager) PlayerID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec.PlayerID
}

// StageJoin remembers the name and buy-in of a join attempt before the
// server confirms it. Needed for silent rejoin after session loss.
func (m *Manager) StageJoin(name string, buyIn int) {
	m.mu.Lock()
	m.rec.PlayerName = name
	m.rec.BuyIn = buyIn
	m.mu.Unlock()
}

// SetProvisionalID records a locally generated id. The id change is
// persisted like any other, but always with joined=false: membership
// under a provisional id does not exist.
func (m *Manager) SetProvisionalID(pid string) {
	m.mu.Lock()
	m.rec.PlayerID = pid
	m.rec.Joined = false
	m.scheduleSaveLocked()
	m.mu.Unlock()
}

// ConfirmJoin installs the server-assigned id and marks the session
// joined. A provisional id is refused: membership only comes from the
// server.
func (m *Manager) ConfirmJoin(pid string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if IsProvisionalID(pid) {
		m.logger.Warn("refusing to confirm provisional id", "pid", pid)
		return
	}

	m.rec.PlayerID = pid
	m.rec.Joined = true
	m.rec.HasLeft = false
	m.scheduleSaveLocked()
}

// MarkLeft records that the server removed this player's seat. The
// joined flag and confirmed id are cleared so a later connect cannot
// accidentally rejoin under the vacated identity.
func (m *Manager) MarkLeft() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rec.Joined = false
	m.rec.PlayerID = ""
	m.rec.HasLeft = true
	m.scheduleSaveLocked()
}

// Clear resets the session to defaults and erases the stored record.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	if m.saveTimer != nil {
		m.saveTimer.Stop()
		m.saveTimer = nil
	}
	m.rec = defaultRecord()
	m.mu.Unlock()

	return m.store.Clear(ctx)
}

// Flush writes any pending save immediately. Called on shutdown.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if m.saveTimer == nil {
		m.mu.Unlock()
		return nil
	}
	m.saveTimer.Stop()
	m.saveTimer = nil
	rec := m.rec
	rec.SavedAt = time.Now()
	m.mu.Unlock()

	return m.store.Save(ctx, rec)
}

// scheduleSaveLocked arms the debounce timer. Repeated mutations
// within the window coalesce: the record is read when the timer fires,
// so only the latest value is written.
func (m *Manager) scheduleSaveLocked() {
	if m.saveTimer != nil {
		return
	}
	m.saveTimer = time.AfterFunc(m.debounce, m.flushTimer)
}

func (m *Manager) flushTimer() {
	m.mu.Lock()
	m.saveTimer = nil
	rec := m.rec
	rec.SavedAt = time.Now()
	m.mu.Unlock()

	if err := m.store.Save(context.Background(), rec); err != nil {
		m.logger.Error("failed to save session record", "error", err)
	}
}
