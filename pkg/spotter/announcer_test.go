package spotter

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/teslashibe/go-spotter/internal/log"
	"github.com/teslashibe/go-spotter/pkg/speech"
)

// blockingMock returns a mock engine whose utterances last until release is
// closed or the engine is stopped.
func blockingMock(release <-chan struct{}) *speech.Mock {
	m := speech.NewMock()
	m.SpeakFunc = func(ctx context.Context, text string) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m
}

func announce(t *testing.T, text string) Announcement {
	t.Helper()
	ann, ok := Decide(NewLabelSet(text), false)
	if !ok {
		t.Fatalf("no announcement for %q", text)
	}
	return ann
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestAnnouncer_SuppressesWhileBusy(t *testing.T) {
	release := make(chan struct{})
	engine := blockingMock(release)
	a := NewAnnouncer(engine, WithAnnouncerLogger(log.Discard()))

	if !a.TryAnnounce(announce(t, "dog")) {
		t.Fatal("first announcement should be accepted")
	}
	if !a.InFlight() {
		t.Error("InFlight() should be true while rendering")
	}
	if a.TryAnnounce(announce(t, "cat")) {
		t.Error("second announcement should be dropped while busy")
	}

	close(release)
	if err := a.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if a.InFlight() {
		t.Error("InFlight() should be false after the render completes")
	}
	if got := engine.Spoken(); len(got) != 1 || got[0] != "I see dog" {
		t.Errorf("Spoken() = %v", got)
	}
	if n := a.Metrics().Announcements.Load(); n != 1 {
		t.Errorf("Announcements = %d, want 1", n)
	}
}

func TestAnnouncer_DoneChannel(t *testing.T) {
	release := make(chan struct{})
	a := NewAnnouncer(blockingMock(release), WithAnnouncerLogger(log.Discard()))

	select {
	case <-a.Done():
	default:
		t.Fatal("Done() should be closed while idle")
	}

	a.TryAnnounce(announce(t, "dog"))
	done := a.Done()
	select {
	case <-done:
		t.Fatal("Done() closed before the render finished")
	default:
	}

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Done() never closed")
	}
}

func TestAnnouncer_NeverOverlaps(t *testing.T) {
	engine := speech.NewMock()
	engine.Duration = 3 * time.Millisecond
	a := NewAnnouncer(engine, WithAnnouncerLogger(log.Discard()))

	accepted := 0
	for i := 0; i < 200; i++ {
		if a.TryAnnounce(announce(t, "dog")) {
			accepted++
		}
		time.Sleep(100 * time.Microsecond)
	}
	if err := a.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	var calls []speech.MockCall
	for _, c := range engine.Calls() {
		if c.Method == "Speak" {
			calls = append(calls, c)
		}
	}
	if len(calls) != accepted {
		t.Fatalf("engine saw %d utterances, announcer accepted %d", len(calls), accepted)
	}
	if accepted < 2 {
		t.Fatalf("expected several renders, got %d", accepted)
	}

	sort.Slice(calls, func(i, j int) bool { return calls[i].Start.Before(calls[j].Start) })
	for i := 1; i < len(calls); i++ {
		if calls[i].Start.Before(calls[i-1].End) {
			t.Errorf("utterance %d started at %v before utterance %d ended at %v",
				i, calls[i].Start, i-1, calls[i-1].End)
		}
		if calls[i].Err != nil {
			t.Errorf("utterance %d failed: %v", i, calls[i].Err)
		}
	}
}

func TestAnnouncer_ResetsBusyEngine(t *testing.T) {
	engine := speech.NewMock()
	engine.SpeakFunc = func(ctx context.Context, text string) error {
		if text == "stale" {
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	a := NewAnnouncer(engine, WithAnnouncerLogger(log.Discard()))

	staleDone := make(chan error, 1)
	go func() { staleDone <- engine.Speak(context.Background(), "stale") }()
	waitFor(t, engine.Busy)

	if !a.TryAnnounce(announce(t, "dog")) {
		t.Fatal("announcement should be accepted")
	}
	if err := a.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := <-staleDone; !errors.Is(err, speech.ErrInterrupted) {
		t.Errorf("stale utterance = %v, want ErrInterrupted", err)
	}
	if n := a.Metrics().EngineResets.Load(); n != 1 {
		t.Errorf("EngineResets = %d, want 1", n)
	}
	if n := a.Metrics().SpeechErrors.Load(); n != 0 {
		t.Errorf("SpeechErrors = %d, want 0", n)
	}
	spoken := engine.Spoken()
	if spoken[len(spoken)-1] != "I see dog" {
		t.Errorf("Spoken() = %v", spoken)
	}
}

// stuckEngine reports busy forever and ignores Stop.
type stuckEngine struct {
	spoke chan string
}

func (e *stuckEngine) Speak(ctx context.Context, text string) error {
	e.spoke <- text
	return nil
}
func (e *stuckEngine) Busy() bool   { return true }
func (e *stuckEngine) Stop() error  { return nil }
func (e *stuckEngine) Name() string { return "stuck" }
func (e *stuckEngine) Close() error { return nil }

func TestAnnouncer_ResetTimesOutOnClock(t *testing.T) {
	clk := clock.NewMock()
	engine := &stuckEngine{spoke: make(chan string, 1)}
	a := NewAnnouncer(engine, WithClock(clk), WithAnnouncerLogger(log.Discard()))

	if !a.TryAnnounce(announce(t, "dog")) {
		t.Fatal("announcement should be accepted")
	}
	done := a.Done()

	// The reset wait only advances with the announcer's clock.
	select {
	case <-done:
		t.Fatal("render finished without the clock advancing")
	case <-time.After(20 * time.Millisecond):
	}

	deadline := time.Now().Add(2 * time.Second)
	for finished := false; !finished; {
		select {
		case <-done:
			finished = true
		default:
			if time.Now().After(deadline) {
				t.Fatal("reset did not time out on the mock clock")
			}
			clk.Add(100 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}

	if n := a.Metrics().EngineResets.Load(); n != 1 {
		t.Errorf("EngineResets = %d, want 1", n)
	}
	select {
	case text := <-engine.spoke:
		if text != "I see dog" {
			t.Errorf("spoke %q", text)
		}
	default:
		t.Error("announcement was not spoken after the reset timed out")
	}
}

func TestAnnouncer_SpeechErrorIsCounted(t *testing.T) {
	engine := speech.NewMock()
	engine.SpeakFunc = func(ctx context.Context, text string) error {
		return speech.WrapError("mock", errors.New("no audio device"))
	}
	a := NewAnnouncer(engine, WithAnnouncerLogger(log.Discard()))

	a.TryAnnounce(announce(t, "dog"))
	if err := a.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := a.Metrics().SpeechErrors.Load(); n != 1 {
		t.Errorf("SpeechErrors = %d, want 1", n)
	}
	if a.InFlight() {
		t.Error("a failed render must not leave the announcer busy")
	}
}

func TestAnnouncer_Cooldown(t *testing.T) {
	clk := clock.NewMock()
	engine := speech.NewMock()
	engine.Clock = clk
	a := NewAnnouncer(engine,
		WithClock(clk),
		WithCooldown(10*time.Second),
		WithAnnouncerLogger(log.Discard()),
	)

	if !a.TryAnnounce(announce(t, "dog")) {
		t.Fatal("first announcement should be accepted")
	}
	if err := a.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	if !a.InFlight() {
		t.Error("InFlight() should be true during the cooldown")
	}
	if a.TryAnnounce(announce(t, "cat")) {
		t.Error("announcement during cooldown should be dropped")
	}

	clk.Add(11 * time.Second)
	if a.InFlight() {
		t.Error("InFlight() should be false after the cooldown")
	}
	if !a.TryAnnounce(announce(t, "cat")) {
		t.Error("announcement after cooldown should be accepted")
	}
	_ = a.Wait(context.Background())
}

func TestAnnouncer_CloseWaitsForRender(t *testing.T) {
	release := make(chan struct{})
	engine := blockingMock(release)
	a := NewAnnouncer(engine, WithAnnouncerLogger(log.Discard()))
	a.TryAnnounce(announce(t, "dog"))

	closed := make(chan error, 1)
	go func() { closed <- a.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while an announcement was rendering")
	case <-time.After(20 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-closed:
		if err != nil {
			t.Errorf("Close: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Close never returned")
	}

	calls := engine.Calls()
	if calls[0].Err != nil {
		t.Errorf("in-flight utterance should complete naturally, got %v", calls[0].Err)
	}
	if engine.CallCount("Close") != 1 {
		t.Error("engine should be closed")
	}
	if a.TryAnnounce(announce(t, "cat")) {
		t.Error("TryAnnounce after Close should be rejected")
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestAnnouncer_WaitHonoursContext(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	a := NewAnnouncer(blockingMock(release), WithAnnouncerLogger(log.Discard()))
	a.TryAnnounce(announce(t, "dog"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := a.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() = %v, want DeadlineExceeded", err)
	}
}
