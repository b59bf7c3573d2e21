package state

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/songdeck/songdeck/internal/model"
)

// DefaultSaveDelay is how long a saver waits after the last mutation before
// writing. Rapid mutation bursts collapse into a single disk write.
const DefaultSaveDelay = 260 * time.Millisecond

// Saver debounces state writes: Schedule resets the countdown with the
// latest snapshot, Flush writes immediately
type Saver struct {
	store  *Store
	delay  time.Duration
	logger *zap.Logger

	mu      sync.Mutex
	timer   *time.Timer
	pending *model.PlayerState
	gen     uint64 // bumped on every Schedule and Flush; stale timer fires check it
}

// NewSaver creates a debounced saver over store. A zero delay selects
// DefaultSaveDelay.
func NewSaver(store *Store, delay time.Duration, logger *zap.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Saver{store: store, delay: delay, logger: logger}
}

// Schedule records st as the snapshot to persist and restarts the countdown.
// Only the most recent snapshot scheduled within one delay window is written.
func (s *Saver) Schedule(st *model.PlayerState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending = st
	s.gen++
	gen := s.gen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, func() { s.fire(gen) })
}

// fire writes the pending snapshot, unless the countdown it belongs to has
// been superseded. A timer that expired in the instant Schedule restarted the
// countdown would otherwise write the new snapshot early.
func (s *Saver) fire(gen uint64) {
	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return
	}
	st := s.pending
	s.pending = nil
	s.timer = nil
	s.mu.Unlock()

	if st == nil {
		return
	}
	if err := s.store.Save(st); err != nil {
		s.logger.Error("debounced save failed", zap.Error(err))
	}
}

// Flush cancels any countdown and writes the pending snapshot synchronously.
// Call on shutdown so the last mutations are not lost to the debounce window.
func (s *Saver) Flush() error {
	s.mu.Lock()
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	st := s.pending
	s.pending = nil
	s.mu.Unlock()

	if st == nil {
		return nil
	}
	return s.store.Save(st)
}
