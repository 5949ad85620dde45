package speech

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Mock implements Engine for testing and for machines without a synthesizer.
// Behaviour can be customized via the exported fields.
type Mock struct {
	// SpeakFunc renders one utterance. The context is cancelled by Stop.
	// If nil, Speak waits Duration on Clock.
	SpeakFunc func(ctx context.Context, text string) error

	// Duration is how long the default SpeakFunc takes per utterance.
	Duration time.Duration

	// Clock measures call timestamps and drives Duration.
	Clock clock.Clock

	// Logger, when set, receives one line per utterance.
	Logger *slog.Logger

	mu          sync.Mutex
	busy        bool
	interrupted bool
	cancel      context.CancelFunc
	closed      bool
	calls       []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method string
	Text   string
	Start  time.Time
	End    time.Time // zero while the call is in progress
	Err    error
}

// NewMock creates a mock engine that finishes utterances immediately.
func NewMock() *Mock {
	return &Mock{Clock: clock.New()}
}

// NewLoggingMock creates a mock that logs each utterance, used when no
// real synthesizer is installed.
func NewLoggingMock(logger *slog.Logger) *Mock {
	if logger == nil {
		logger = slog.Default()
	}
	m := NewMock()
	m.Logger = logger.With("component", "speech.mock")
	return m
}

func (m *Mock) now() time.Time {
	if m.Clock == nil {
		m.Clock = clock.New()
	}
	return m.Clock.Now()
}

// Speak records the call and runs SpeakFunc.
func (m *Mock) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	if m.closed {
		m.calls = append(m.calls, MockCall{Method: "Speak", Text: text, Start: m.now(), End: m.now(), Err: ErrEngineClosed})
		m.mu.Unlock()
		return ErrEngineClosed
	}
	if m.busy {
		m.calls = append(m.calls, MockCall{Method: "Speak", Text: text, Start: m.now(), End: m.now(), Err: ErrEngineBusy})
		m.mu.Unlock()
		return ErrEngineBusy
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.busy = true
	m.interrupted = false
	m.cancel = cancel
	idx := len(m.calls)
	m.calls = append(m.calls, MockCall{Method: "Speak", Text: text, Start: m.now()})
	speak := m.SpeakFunc
	m.mu.Unlock()

	if m.Logger != nil {
		m.Logger.Info("speaking", "text", text)
	}

	var err error
	if speak != nil {
		err = speak(runCtx, text)
	} else if m.Duration > 0 {
		select {
		case <-m.Clock.After(m.Duration):
		case <-runCtx.Done():
			err = runCtx.Err()
		}
	}
	cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interrupted {
		err = ErrInterrupted
	}
	m.busy = false
	m.cancel = nil
	m.calls[idx].End = m.now()
	m.calls[idx].Err = err
	return err
}

// Busy reports whether an utterance is in progress.
func (m *Mock) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy
}

// Stop interrupts the current utterance.
func (m *Mock) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockCall{Method: "Stop", Start: m.now(), End: m.now()})
	if m.busy && m.cancel != nil {
		m.interrupted = true
		m.cancel()
	}
	return nil
}

// Name returns "mock".
func (m *Mock) Name() string {
	return "mock"
}

// Close stops any utterance and rejects further calls.
func (m *Mock) Close() error {
	_ = m.Stop()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.calls = append(m.calls, MockCall{Method: "Close", Start: m.now(), End: m.now()})
	return nil
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Spoken returns the text of every accepted Speak call, in order.
func (m *Mock) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.calls {
		if c.Method == "Speak" && c.Err != ErrEngineBusy && c.Err != ErrEngineClosed {
			out = append(out, c.Text)
		}
	}
	return out
}

// Reset clears all recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Verify Mock implements Engine at compile time.
var _ Engine = (*Mock)(nil)
