package connection

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/jpillora/backoff"

	"github.com/mmgame/tableclient/internal/protocol"
)

// Manager owns the websocket to the table and its whole lifecycle:
// connecting, heartbeating, reconnecting with backoff, and giving up
// after the attempt budget. At most one socket exists at a time.
//
// Internally every mutation runs to completion under mu. Socket and
// timer callbacks carry the generation they were created under and are
// ignored once a newer socket supersedes them, so a late error from a
// dead socket can never disturb the current connection.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	out chan RawMessage // inbound frames, consumed by the dispatcher

	mu         sync.Mutex
	state      State
	cli        *client
	gen        uint64 // incremented per socket; guards stale callbacks
	attempts   int    // consecutive failed attempts in this outage
	joined     bool   // server has confirmed a seat on this identity
	playerID   string
	retryTimer *time.Timer
	stopped    bool
	subs       []chan StateChange

	bo *backoff.Backoff
	wg sync.WaitGroup

	pingFrame []byte
}

// NewManager creates a Connection Manager. It does not dial until
// Connect is called.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	ping, _ := json.Marshal(protocol.Ping())

	return &Manager{
		cfg:    cfg,
		logger: logger,
		out:    make(chan RawMessage, cfg.MessageBufferSize),
		state:  StateDisconnected,
		bo: &backoff.Backoff{
			Min:    cfg.ReconnectBaseDelay,
			Max:    cfg.ReconnectMaxDelay,
			Factor: 2,
			Jitter: false,
		},
		pingFrame: ping,
	}
}

// Connect starts a fresh, user-visible connection attempt for the
// given player id. It resets the attempt budget and supersedes any
// socket or pending retry. resume marks the identity as one the server
// already seated, so a later drop is worth reconnecting for even
// before the next join confirmation arrives.
func (m *Manager) Connect(playerID string, resume bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}

	m.playerID = playerID
	m.joined = resume
	m.attempts = 0
	m.supersedeLocked()

	// Resuming a seated identity is invisible to the user: the session
	// continues, so the manager re-enters the reconnect path rather
	// than showing a fresh connect.
	if resume {
		m.setStateLocked(StateReconnecting, nil)
	} else {
		m.setStateLocked(StateConnecting, nil)
	}

	m.dialLocked()
	return nil
}

// ResetAttempts clears the outage counter. The dispatcher calls this
// when the server confirms membership, so earlier failed attempts do
// not count against the next outage.
func (m *Manager) ResetAttempts() {
	m.mu.Lock()
	m.attempts = 0
	m.joined = true
	m.mu.Unlock()
}

// Send marshals an action and writes it to the socket. Returns
// ErrNotConnected unless the manager is in StateConnected.
func (m *Manager) Send(action protocol.Action) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}

	m.mu.Lock()
	if m.state != StateConnected || m.cli == nil {
		m.mu.Unlock()
		return ErrNotConnected
	}
	cli := m.cli
	gen := m.gen
	m.mu.Unlock()

	if err := cli.send(data); err != nil {
		// The read loop will surface the failure too; downgrading here
		// just makes the caller's error honest.
		m.handleSocketError(gen, err)
		return fmt.Errorf("send %s: %w", action.Action, err)
	}
	return nil
}

// Messages returns the channel of inbound frames. It stays open across
// reconnects and closes only on Stop.
func (m *Manager) Messages() <-chan RawMessage {
	return m.out
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns a snapshot for status surfaces.
func (m *Manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return ManagerStats{State: m.state, Attempts: m.attempts}
}

// Subscribe returns a channel of state transitions. Slow subscribers
// miss updates rather than block the manager.
func (m *Manager) Subscribe() <-chan StateChange {
	ch := make(chan StateChange, 16)
	m.mu.Lock()
	m.subs = append(m.subs, ch)
	m.mu.Unlock()
	return ch
}

// Stop closes the socket and waits for goroutines to finish, bounded
// by ctx. The Messages channel is closed on return.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return nil
	}
	m.stopped = true
	m.supersedeLocked()
	m.setStateLocked(StateDisconnected, nil)
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("shutdown timeout, abandoning connection goroutines")
	}

	close(m.out)
	m.logger.Info("connection manager stopped")
	return nil
}

// supersedeLocked invalidates the current socket and any pending
// retry. Callbacks created before this call see a stale gen and bail.
func (m *Manager) supersedeLocked() {
	m.gen++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.cli != nil {
		m.cli.close()
		m.cli = nil
	}
}

func (m *Manager) setStateLocked(next State, cause error) {
	if m.state == next {
		return
	}
	change := StateChange{Old: m.state, New: next, Err: cause}
	m.state = next

	m.logger.Info("connection state changed",
		"old", change.Old.String(),
		"new", change.New.String(),
		"attempts", m.attempts,
	)

	for _, ch := range m.subs {
		select {
		case ch <- change:
		default:
		}
	}
}

// dialLocked launches a dial for the current generation. Runs with mu
// held; the dial itself happens on a goroutine.
func (m *Manager) dialLocked() {
	gen := m.gen + 1
	m.gen = gen

	cli := newClient(m.endpoint(m.playerID), m.cfg, m.logger)
	m.cli = cli

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), m.cfg.HandshakeTimeout)
		defer cancel()

		err := cli.connect(ctx)

		m.mu.Lock()
		defer m.mu.Unlock()

		if m.gen != gen || m.stopped {
			cli.close()
			return
		}

		if err != nil {
			m.logger.Warn("dial failed", "error", err, "attempts", m.attempts)
			m.cli = nil
			if m.state == StateConnecting && m.attempts == 0 {
				// Fresh connect that never got off the ground: surface
				// the failure instead of silently retrying.
				m.setStateLocked(StateError, err)
				return
			}
			m.scheduleReconnectLocked(err)
			return
		}

		m.attempts = 0
		m.setStateLocked(StateConnected, nil)

		m.wg.Add(2)
		go m.forward(cli, gen)
		go m.heartbeat(cli)
	}()
}

// forward copies frames from one socket into the long-lived output
// channel and reports the socket's death.
func (m *Manager) forward(cli *client, gen uint64) {
	defer m.wg.Done()

	for msg := range cli.messages {
		select {
		case m.out <- msg:
		case <-cli.done:
			return
		}
	}

	// Read loop ended: pull the cause if one was recorded.
	var err error
	select {
	case err = <-cli.errs:
	default:
	}
	m.handleSocketError(gen, err)
}

// heartbeat sends the liveness ping while the socket is up.
func (m *Manager) heartbeat(cli *client) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-cli.done:
			return
		case <-ticker.C:
			if err := cli.send(m.pingFrame); err != nil {
				m.logger.Debug("heartbeat send failed", "error", err)
				return
			}
		}
	}
}

// handleSocketError reacts to a dead socket. Stale generations are
// ignored; a clean server close or a drop before the server ever
// seated us ends the session rather than retrying.
func (m *Manager) handleSocketError(gen uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.stopped {
		return
	}

	// One socket death can be reported twice: by a failed send and by
	// the read loop ending. Supersede the generation now so the second
	// report is stale.
	m.gen++

	if m.cli != nil {
		m.cli.close()
		m.cli = nil
	}

	if err == nil || isNormalClose(err) {
		m.setStateLocked(StateDisconnected, err)
		return
	}

	if !m.joined {
		m.logger.Info("connection lost before join confirmation, not retrying", "error", err)
		m.setStateLocked(StateDisconnected, err)
		return
	}

	m.scheduleReconnectLocked(err)
}

// scheduleReconnectLocked burns one attempt and arms the retry timer,
// or gives up once the budget is spent.
func (m *Manager) scheduleReconnectLocked(cause error) {
	m.attempts++
	if m.attempts > m.cfg.MaxReconnectAttempts {
		m.logger.Error("reconnect budget exhausted",
			"attempts", m.attempts-1,
			"max", m.cfg.MaxReconnectAttempts,
		)
		m.setStateLocked(StateError, cause)
		return
	}

	delay := m.backoffDelay(m.attempts)
	m.logger.Info("scheduling reconnect",
		"attempt", m.attempts,
		"max", m.cfg.MaxReconnectAttempts,
		"delay", delay,
	)
	m.setStateLocked(StateReconnecting, cause)

	gen := m.gen
	m.retryTimer = time.AfterFunc(delay, func() {
		m.redial(gen)
	})
}

// backoffDelay returns base*2^(attempt-1) capped at the max delay,
// plus up to one base-delay of jitter so simultaneous clients do not
// stampede the server.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	d := m.bo.ForAttempt(float64(attempt - 1))
	jitter := time.Duration(rand.Int64N(int64(m.cfg.ReconnectBaseDelay)))
	return d + jitter
}

func (m *Manager) redial(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gen != gen || m.stopped {
		return
	}
	m.retryTimer = nil
	m.dialLocked()
}

// endpoint builds the websocket URL for a player at the configured
// table.
func (m *Manager) endpoint(playerID string) string {
	return strings.TrimSuffix(m.cfg.WSURL, "/") + "/ws/" + m.cfg.TableID + "/" + playerID
}
