package speech

import (
	"log/slog"
)

// Config holds speech engine configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Voice is the backend-specific voice name (e.g. "en-us" for espeak,
	// "Samantha" for say). Empty uses the engine default.
	Voice string

	// Rate is the speaking rate in words per minute. 0 uses the engine default.
	Rate int

	// Args overrides argument construction for command engines.
	// When set it receives the text and returns the full argument list.
	Args func(text string) []string

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring speech engines.
type Option func(*Config)

// WithVoice sets the voice.
func WithVoice(voice string) Option {
	return func(c *Config) {
		c.Voice = voice
	}
}

// WithRate sets the speaking rate in words per minute.
func WithRate(wpm int) Option {
	return func(c *Config) {
		c.Rate = wpm
	}
}

// WithArgs overrides how command arguments are built from the text.
func WithArgs(args func(text string) []string) Option {
	return func(c *Config) {
		c.Args = args
	}
}

// WithLogger sets the structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logger: slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
