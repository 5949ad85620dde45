package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/multierr"
)

// Chain implements Engine by trying multiple engines in order.
// The first engine that speaks successfully wins; if all fail, returns an aggregate error.
type Chain struct {
	engines []Engine
	logger  *slog.Logger
}

// NewChain creates an engine chain that tries engines in order.
// At least one engine is required.
func NewChain(logger *slog.Logger, engines ...Engine) (*Chain, error) {
	if len(engines) == 0 {
		return nil, ErrNoEngine
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Chain{
		engines: engines,
		logger:  logger.With("component", "speech.chain"),
	}, nil
}

// Speak tries each engine until one succeeds.
// Interruption and context cancellation end the attempt immediately.
func (c *Chain) Speak(ctx context.Context, text string) error {
	var errs []error

	for i, e := range c.engines {
		err := e.Speak(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback engine succeeded",
					"engine", e.Name(),
					"engine_index", i,
				)
			}
			return nil
		}

		if errors.Is(err, ErrInterrupted) || errors.Is(err, ErrEmptyText) || errors.Is(err, ErrEngineBusy) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		errs = append(errs, err)
		c.logger.Warn("engine failed, trying next",
			"engine", e.Name(),
			"engine_index", i,
			"error", err,
		)
	}

	return &ChainError{Errors: errs}
}

// Busy reports whether any engine is rendering.
func (c *Chain) Busy() bool {
	for _, e := range c.engines {
		if e.Busy() {
			return true
		}
	}
	return false
}

// Stop stops every engine in the chain.
func (c *Chain) Stop() error {
	var err error
	for _, e := range c.engines {
		err = multierr.Append(err, e.Stop())
	}
	return err
}

// Name lists the engines in order.
func (c *Chain) Name() string {
	names := make([]string, len(c.engines))
	for i, e := range c.engines {
		names[i] = e.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Close closes all engines.
func (c *Chain) Close() error {
	var err error
	for _, e := range c.engines {
		err = multierr.Append(err, e.Close())
	}
	return err
}

// Engines returns the list of engines in the chain.
func (c *Chain) Engines() []Engine {
	return c.engines
}

// ChainError aggregates errors from all engines in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "speech chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("speech chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("speech chain: all %d engines failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap returns the last error in the chain.
func (e *ChainError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// Verify Chain implements Engine at compile time.
var _ Engine = (*Chain)(nil)
