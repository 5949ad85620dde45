package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// CommandEngine speaks by running a local synthesizer binary, one process
// per utterance. Speak returns when the process exits, which for the
// supported binaries is when the audio has finished playing.
type CommandEngine struct {
	name   string
	path   string
	config *Config
	logger *slog.Logger

	mu          sync.Mutex
	cmd         *exec.Cmd
	interrupted bool
	closed      bool
}

// NewCommand creates an engine for the named binary, which must be on PATH.
func NewCommand(binary string, opts ...Option) (*CommandEngine, error) {
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoEngine, binary, err)
	}

	cfg := DefaultConfig()
	cfg.Apply(opts...)

	name := filepath.Base(binary)
	return &CommandEngine{
		name:   name,
		path:   path,
		config: cfg,
		logger: cfg.Logger.With("component", "speech."+name),
	}, nil
}

// args builds the argument list for the binary.
func (e *CommandEngine) args(text string) []string {
	if e.config.Args != nil {
		return e.config.Args(text)
	}

	var args []string
	switch e.name {
	case "espeak", "espeak-ng":
		if e.config.Voice != "" {
			args = append(args, "-v", e.config.Voice)
		}
		if e.config.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(e.config.Rate))
		}
	case "say":
		if e.config.Voice != "" {
			args = append(args, "-v", e.config.Voice)
		}
		if e.config.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(e.config.Rate))
		}
	case "spd-say":
		// -w blocks until the message has been spoken.
		args = append(args, "-w")
		if e.config.Voice != "" {
			args = append(args, "-y", e.config.Voice)
		}
	}
	// "--" keeps text starting with '-' from being read as a flag.
	return append(args, "--", text)
}

// Speak runs the synthesizer and waits for it to finish.
func (e *CommandEngine) Speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyText
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.cmd != nil {
		e.mu.Unlock()
		return ErrEngineBusy
	}

	cmd := exec.CommandContext(ctx, e.path, e.args(text)...)
	detach(cmd)
	if err := cmd.Start(); err != nil {
		e.mu.Unlock()
		return WrapError(e.name, fmt.Errorf("start: %w", err))
	}
	e.cmd = cmd
	e.interrupted = false
	e.mu.Unlock()

	start := time.Now()
	err := cmd.Wait()

	e.mu.Lock()
	interrupted := e.interrupted
	e.cmd = nil
	e.mu.Unlock()

	switch {
	case interrupted:
		return ErrInterrupted
	case ctx.Err() != nil:
		return ctx.Err()
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return WrapError(e.name, fmt.Errorf("exit status %d", exitErr.ExitCode()))
		}
		return WrapError(e.name, err)
	}

	e.logger.Debug("utterance complete", "chars", len(text), "duration", time.Since(start))
	return nil
}

// Busy reports whether a synthesizer process is running.
func (e *CommandEngine) Busy() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cmd != nil
}

// Stop kills the running synthesizer process, if any.
func (e *CommandEngine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cmd == nil || e.cmd.Process == nil {
		return nil
	}
	e.interrupted = true
	if err := e.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return WrapError(e.name, fmt.Errorf("kill: %w", err))
	}
	e.logger.Debug("utterance stopped")
	return nil
}

// Name returns the binary name.
func (e *CommandEngine) Name() string {
	return e.name
}

// Close stops any running utterance. The engine cannot be used afterwards.
func (e *CommandEngine) Close() error {
	err := e.Stop()
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
	return err
}

// Verify CommandEngine implements Engine at compile time.
var _ Engine = (*CommandEngine)(nil)
