package spotter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/teslashibe/go-spotter/pkg/speech"
)

const (
	resetTimeout = 2 * time.Second
	resetPoll    = 5 * time.Millisecond
)

// Announcer hands announcements to a speech engine, one at a time.
//
// TryAnnounce never blocks: it either starts rendering on a background
// goroutine or reports that a render is already in flight. Announcements
// offered while busy are dropped, never queued.
type Announcer struct {
	engine   speech.Engine
	clock    clock.Clock
	cooldown time.Duration
	logger   *slog.Logger
	metrics  *Metrics

	// renderMu is held for the whole of engine.Speak.
	renderMu sync.Mutex

	busy atomic.Bool

	mu      sync.Mutex
	done    chan struct{}
	lastEnd time.Time
	closed  bool
}

// AnnouncerOption configures an Announcer.
type AnnouncerOption func(*Announcer)

// WithClock sets the clock used for cooldown and render timing.
func WithClock(c clock.Clock) AnnouncerOption {
	return func(a *Announcer) {
		a.clock = c
	}
}

// WithCooldown keeps the announcer reporting in-flight for d after each
// render completes. Zero disables the cooldown.
func WithCooldown(d time.Duration) AnnouncerOption {
	return func(a *Announcer) {
		a.cooldown = d
	}
}

// WithAnnouncerLogger sets the logger.
func WithAnnouncerLogger(logger *slog.Logger) AnnouncerOption {
	return func(a *Announcer) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *Metrics) AnnouncerOption {
	return func(a *Announcer) {
		a.metrics = m
	}
}

// NewAnnouncer takes ownership of engine. It is closed by Close.
func NewAnnouncer(engine speech.Engine, opts ...AnnouncerOption) *Announcer {
	a := &Announcer{
		engine: engine,
		clock:  clock.New(),
		logger: slog.Default(),
		done:   closedChan(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = NewMetrics()
	}
	a.logger = a.logger.With("component", "announcer", "engine", engine.Name())
	return a
}

func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// TryAnnounce starts rendering ann unless a render is in flight, the
// cooldown has not elapsed, or the announcer is closed. It reports whether
// the announcement was accepted.
func (a *Announcer) TryAnnounce(ann Announcement) bool {
	a.mu.Lock()
	if a.closed || a.coolingLocked() || !a.busy.CompareAndSwap(false, true) {
		a.mu.Unlock()
		return false
	}
	done := make(chan struct{})
	a.done = done
	a.mu.Unlock()

	a.metrics.Announcements.Add(1)
	a.logger.Info("announcing", "id", ann.ID, "text", ann.Text)

	go a.render(ann, done)
	return true
}

func (a *Announcer) render(ann Announcement, done chan struct{}) {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	// The engine may still hold an earlier utterance; it has to be reset
	// before it will accept a new one.
	if a.engine.Busy() {
		a.reset()
	}

	start := a.clock.Now()
	err := a.engine.Speak(context.Background(), ann.Text)
	if errors.Is(err, speech.ErrEngineBusy) {
		a.reset()
		err = a.engine.Speak(context.Background(), ann.Text)
	}
	a.metrics.ObserveRender(a.clock.Since(start))
	if err != nil {
		a.metrics.SpeechErrors.Add(1)
		a.logger.Warn("announcement failed", "id", ann.ID, "error", err)
	} else {
		a.logger.Debug("announcement complete", "id", ann.ID, "duration", a.clock.Since(start))
	}

	a.mu.Lock()
	a.lastEnd = a.clock.Now()
	a.busy.Store(false)
	a.mu.Unlock()
	close(done)
}

// reset stops the engine's current utterance and waits, up to resetTimeout,
// for the engine to report idle.
func (a *Announcer) reset() {
	if err := a.engine.Stop(); err != nil {
		a.logger.Debug("engine reset failed", "error", err)
	}
	a.metrics.EngineResets.Add(1)

	if !a.engine.Busy() {
		return
	}
	ticker := a.clock.Ticker(resetPoll)
	defer ticker.Stop()
	timeout := a.clock.After(resetTimeout)
	for a.engine.Busy() {
		select {
		case <-ticker.C:
		case <-timeout:
			a.logger.Warn("engine still busy after reset", "engine", a.engine.Name(), "timeout", resetTimeout)
			return
		}
	}
}

func (a *Announcer) coolingLocked() bool {
	if a.cooldown <= 0 || a.lastEnd.IsZero() {
		return false
	}
	return a.clock.Since(a.lastEnd) < a.cooldown
}

// InFlight reports whether an announcement is rendering or the cooldown
// after the last one is still running.
func (a *Announcer) InFlight() bool {
	if a.busy.Load() {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.coolingLocked()
}

// Done returns a channel closed when the current render completes.
// When idle the returned channel is already closed.
func (a *Announcer) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.done
}

// Wait blocks until no render is in flight or ctx is done.
// The cooldown is not waited for.
func (a *Announcer) Wait(ctx context.Context) error {
	for {
		a.mu.Lock()
		busy := a.busy.Load()
		done := a.done
		a.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close rejects further announcements, waits for the in-flight render to
// finish on its own, and closes the engine.
func (a *Announcer) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()

	if a.busy.Load() {
		a.logger.Info("waiting for in-flight announcement")
	}
	_ = a.Wait(context.Background())
	return a.engine.Close()
}

// Metrics returns the announcer's metrics.
func (a *Announcer) Metrics() *Metrics {
	return a.metrics
}
