package notify

import (
	"log/slog"
	"sync"
	"time"
)

// Notice is a transient message for the user. A zero Message means the
// display should clear.
type Notice struct {
	Message   string
	ExpiresAt time.Time
}

// Scheduler holds the single visible notice and expires it. Each Show
// supersedes the previous notice and its timer.
type Scheduler struct {
	logger          *slog.Logger
	defaultDuration time.Duration

	mu      sync.Mutex
	current string
	gen     uint64 // incremented per Show; guards stale expiry timers
	timer   *time.Timer
	subs    []chan Notice
	stopped bool
}

// NewScheduler creates a notice scheduler. defaultDuration applies
// when Show is called with a non-positive duration.
func NewScheduler(defaultDuration time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:          logger,
		defaultDuration: defaultDuration,
	}
}

// Show displays a notice for the given duration, replacing any notice
// currently showing.
func (s *Scheduler) Show(message string, duration time.Duration) {
	if duration <= 0 {
		duration = s.defaultDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	s.gen++
	gen := s.gen
	s.current = message

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(duration, func() {
		s.expire(gen)
	})

	s.notifyLocked(Notice{Message: message, ExpiresAt: time.Now().Add(duration)})
}

// Current returns the visible notice, if any.
func (s *Scheduler) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.current != ""
}

// Subscribe returns a channel of notice changes, including the clear
// when a notice expires. Slow subscribers miss updates rather than
// block the scheduler.
func (s *Scheduler) Subscribe() <-chan Notice {
	ch := make(chan Notice, 16)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

// Stop cancels any pending expiry. Further Shows are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// expire clears the notice the timer was armed for. A newer Show
// bumped gen, so its notice survives.
func (s *Scheduler) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen || s.stopped {
		return
	}
	s.current = ""
	s.timer = nil
	s.notifyLocked(Notice{})
}

func (s *Scheduler) notifyLocked(n Notice) {
	for _, ch := range s.subs {
		select {
		case ch <- n:
		default:
		}
	}
}
