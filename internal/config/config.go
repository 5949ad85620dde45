// Package config provides configuration loading for spotter.
//
// Values come from environment variables. A .env file in the working
// directory (or the file named by ENV_FILE) is loaded first when present;
// variables already set in the environment take precedence over it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults.
const (
	DefaultModelPath   = "best.onnx"
	DefaultWindowTitle = "Real-time Object Detection"
	DefaultQuitKey     = "q"
	DefaultEnvFile     = ".env"
)

// Config holds all runtime configuration for the spotter binary.
type Config struct {
	// Capture device.
	CameraID    int
	FrameWidth  int // 0 = device default
	FrameHeight int // 0 = device default
	Framerate   int // 0 = device default

	// Detection model.
	ModelPath        string
	LabelsPath       string // optional override of the model's names file
	ConfidenceThresh float64
	NMSThresh        float64
	InputSize        int
	IgnoreLabels     []string

	// Display.
	WindowTitle string
	QuitKey     string

	// Speech.
	SpeechBackend    string // "auto", "espeak", "say", "spd-say", "mock"
	SpeechVoice      string
	SpeechRate       int // words per minute, 0 = engine default
	AnnounceCooldown time.Duration

	// Logging.
	LogLevel string
}

// Default returns the configuration used when no environment is set.
func Default() Config {
	return Config{
		CameraID:         0,
		ModelPath:        DefaultModelPath,
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputSize:        640,
		WindowTitle:      DefaultWindowTitle,
		QuitKey:          DefaultQuitKey,
		SpeechBackend:    "auto",
		LogLevel:         "info",
	}
}

// Load reads the optional env file and then the environment.
func Load() (Config, error) {
	envFile := getEnv("ENV_FILE", DefaultEnvFile)
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("stat %s: %w", envFile, err)
	}

	def := Default()
	cfg := Config{
		CameraID:         getEnvAsInt("CAMERA_ID", def.CameraID),
		FrameWidth:       getEnvAsInt("CAMERA_WIDTH", def.FrameWidth),
		FrameHeight:      getEnvAsInt("CAMERA_HEIGHT", def.FrameHeight),
		Framerate:        getEnvAsInt("CAMERA_FPS", def.Framerate),
		ModelPath:        getEnv("MODEL_PATH", def.ModelPath),
		LabelsPath:       getEnv("LABELS_PATH", def.LabelsPath),
		ConfidenceThresh: getEnvAsFloat("CONFIDENCE_THRESHOLD", def.ConfidenceThresh),
		NMSThresh:        getEnvAsFloat("NMS_THRESHOLD", def.NMSThresh),
		InputSize:        getEnvAsInt("MODEL_INPUT_SIZE", def.InputSize),
		IgnoreLabels:     getEnvAsList("IGNORE_LABELS"),
		WindowTitle:      getEnv("WINDOW_TITLE", def.WindowTitle),
		QuitKey:          getEnv("QUIT_KEY", def.QuitKey),
		SpeechBackend:    getEnv("SPEECH_BACKEND", def.SpeechBackend),
		SpeechVoice:      getEnv("SPEECH_VOICE", def.SpeechVoice),
		SpeechRate:       getEnvAsInt("SPEECH_RATE", def.SpeechRate),
		AnnounceCooldown: getEnvAsDuration("ANNOUNCE_COOLDOWN", def.AnnounceCooldown),
		LogLevel:         getEnv("LOG_LEVEL", def.LogLevel),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.CameraID < 0:
		return &Error{Field: "CameraID", Message: fmt.Sprintf("CAMERA_ID must be >= 0, got %d", c.CameraID)}
	case c.ModelPath == "":
		return &Error{Field: "ModelPath", Message: "MODEL_PATH must not be empty"}
	case c.ConfidenceThresh <= 0 || c.ConfidenceThresh > 1:
		return &Error{Field: "ConfidenceThresh", Message: fmt.Sprintf("CONFIDENCE_THRESHOLD must be in (0, 1], got %g", c.ConfidenceThresh)}
	case c.NMSThresh <= 0 || c.NMSThresh > 1:
		return &Error{Field: "NMSThresh", Message: fmt.Sprintf("NMS_THRESHOLD must be in (0, 1], got %g", c.NMSThresh)}
	case c.InputSize <= 0 || c.InputSize%32 != 0:
		return &Error{Field: "InputSize", Message: fmt.Sprintf("MODEL_INPUT_SIZE must be a positive multiple of 32, got %d", c.InputSize)}
	case len([]rune(c.QuitKey)) != 1:
		return &Error{Field: "QuitKey", Message: fmt.Sprintf("QUIT_KEY must be a single character, got %q", c.QuitKey)}
	case c.SpeechRate < 0:
		return &Error{Field: "SpeechRate", Message: fmt.Sprintf("SPEECH_RATE must be >= 0, got %d", c.SpeechRate)}
	case c.AnnounceCooldown < 0:
		return &Error{Field: "AnnounceCooldown", Message: fmt.Sprintf("ANNOUNCE_COOLDOWN must be >= 0, got %v", c.AnnounceCooldown)}
	}
	return nil
}

// Error represents a configuration validation error.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return "config: " + e.Message
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err == nil {
			return intValue
		}
		warnMalformed(key, value, err)
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		f, err := strconv.ParseFloat(value, 64)
		if err == nil {
			return f
		}
		warnMalformed(key, value, err)
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		d, err := time.ParseDuration(value)
		if err == nil {
			return d
		}
		warnMalformed(key, value, err)
	}
	return defaultValue
}

func warnMalformed(key, value string, err error) {
	slog.Warn("ignoring malformed environment value", "key", key, "value", value, "error", err)
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
