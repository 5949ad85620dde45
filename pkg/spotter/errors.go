package spotter

import (
	"errors"
	"fmt"
)

// ErrEndOfStream is returned by a Source when no more frames will arrive.
// The controller treats it as a normal shutdown trigger, not a failure.
var ErrEndOfStream = errors.New("spotter: end of stream")

// InferenceError reports a detector failure on a specific frame.
// It ends the loop; there is no recovery path.
type InferenceError struct {
	Frame uint64
	Err   error
}

// Error implements the error interface.
func (e *InferenceError) Error() string {
	return fmt.Sprintf("spotter: inference failed on frame %d: %v", e.Frame, e.Err)
}

// Unwrap returns the underlying detector error.
func (e *InferenceError) Unwrap() error {
	return e.Err
}
