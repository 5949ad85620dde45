package speech

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNoEngine is returned when no speech backend is installed.
	ErrNoEngine = errors.New("speech: no engine available")

	// ErrEngineBusy is returned when Speak is called while an utterance is rendering.
	ErrEngineBusy = errors.New("speech: engine busy")

	// ErrInterrupted is returned by Speak when Stop terminated the utterance.
	ErrInterrupted = errors.New("speech: utterance interrupted")

	// ErrEngineClosed is returned when using an engine after Close.
	ErrEngineClosed = errors.New("speech: engine closed")

	// ErrEmptyText is returned when asked to speak nothing.
	ErrEmptyText = errors.New("speech: empty text")
)

// EngineError wraps an error with engine context.
type EngineError struct {
	Engine string
	Err    error
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("speech [%s]: %v", e.Engine, e.Err)
}

// Unwrap returns the underlying error.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// WrapError wraps an error with engine context.
func WrapError(engine string, err error) error {
	if err == nil {
		return nil
	}
	return &EngineError{Engine: engine, Err: err}
}
