// Package speech renders text to audio through the local system speech engine.
//
// The package supports command-line synthesizers (espeak-ng, espeak, macOS
// say, speech-dispatcher's spd-say) and a mock for tests. All implement the
// Engine interface, so callers never depend on a particular backend.
//
// Example usage:
//
//	engine, _ := speech.New(speech.BackendAuto, logger, speech.WithRate(170))
//	defer engine.Close()
//
//	// Blocks until the utterance has been spoken.
//	_ = engine.Speak(ctx, "I see person, dog")
package speech

import "context"

// Engine renders utterances one at a time.
type Engine interface {
	// Speak renders text and blocks until the utterance is complete.
	// Returns ErrEngineBusy if another utterance is still rendering.
	Speak(ctx context.Context, text string) error

	// Busy reports whether an utterance is currently rendering.
	Busy() bool

	// Stop forces the current utterance, if any, to terminate.
	// The interrupted Speak call returns ErrInterrupted.
	Stop() error

	// Name identifies the backend for logging.
	Name() string

	// Close stops any utterance and releases resources.
	Close() error
}

// Backend selects a speech engine implementation.
type Backend string

const (
	// BackendAuto picks the best engine available on this platform.
	BackendAuto Backend = "auto"
	// BackendEspeak uses espeak-ng, falling back to espeak.
	BackendEspeak Backend = "espeak"
	// BackendSay uses the macOS say command.
	BackendSay Backend = "say"
	// BackendSpeechDispatcher uses spd-say.
	BackendSpeechDispatcher Backend = "spd-say"
	// BackendMock logs utterances instead of speaking them.
	BackendMock Backend = "mock"
)
