package dnd

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/meur/tierdeck/internal/events"
	"github.com/meur/tierdeck/internal/models"
)

// Event names published by the saver when a bus is attached.
const (
	EventTemplateSaved      = "templateSaved"
	EventTemplateSaveFailed = "templateSaveFailed"
)

// DefaultSaveDelay is how long the template must stay quiet before a save
// fires.
const DefaultSaveDelay = 2 * time.Second

// SaveFunc persists one template snapshot.
type SaveFunc func(ctx context.Context, t *models.TierlistTemplate) error

// Saver debounces template persistence on quiescence: each mutation re-arms
// the timer, a save fires only after the delay passes with no further
// mutations. At most one save is in flight; mutations arriving during a save
// re-arm the timer so the final state always wins and is always persisted.
type Saver struct {
	save  SaveFunc
	delay time.Duration

	mu       sync.Mutex
	bus      *events.Bus
	latest   *models.TierlistTemplate
	dirty    bool
	inFlight bool
	timer    *time.Timer
	stopped  bool
}

// NewSaver creates a saver with the given quiescence delay. Delays of zero
// or below use DefaultSaveDelay.
func NewSaver(save SaveFunc, delay time.Duration) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &Saver{save: save, delay: delay}
}

// Attach subscribes the saver to a store so every state swap schedules a
// save.
func (s *Saver) Attach(store *Store) {
	store.Subscribe(s.Schedule)
}

// Announce routes save outcomes onto bus: EventTemplateSaved carries the
// persisted template, EventTemplateSaveFailed the error.
func (s *Saver) Announce(bus *events.Bus) {
	s.mu.Lock()
	s.bus = bus
	s.mu.Unlock()
}

func (s *Saver) announce(t *models.TierlistTemplate, err error) {
	s.mu.Lock()
	bus := s.bus
	s.mu.Unlock()
	if bus == nil {
		return
	}
	if err != nil {
		bus.Publish(EventTemplateSaveFailed, err)
		return
	}
	bus.Publish(EventTemplateSaved, t)
}

// Schedule records t as the latest state and re-arms the quiescence timer.
func (s *Saver) Schedule(t *models.TierlistTemplate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.latest = t
	s.dirty = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *Saver) fire() {
	s.mu.Lock()
	if s.stopped || !s.dirty || s.inFlight {
		// An in-flight save re-checks dirty when it finishes.
		s.mu.Unlock()
		return
	}
	snapshot := s.latest
	s.dirty = false
	s.inFlight = true
	s.mu.Unlock()

	err := s.save(context.Background(), snapshot)
	if err != nil {
		slog.Warn("template save failed", "error", err)
	}
	s.announce(snapshot, err)

	s.mu.Lock()
	s.inFlight = false
	redo := s.dirty || err != nil
	if err != nil {
		s.dirty = true
	}
	if redo && !s.stopped {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = time.AfterFunc(s.delay, s.fire)
	}
	s.mu.Unlock()
}

// Flush persists any pending state immediately. Used on shutdown.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty || s.latest == nil {
		s.mu.Unlock()
		return nil
	}
	snapshot := s.latest
	s.dirty = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	err := s.save(ctx, snapshot)
	s.announce(snapshot, err)
	return err
}

// Stop cancels the timer and drops pending work.
func (s *Saver) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
