// Package app wires the spotter components together for the command-line
// binary: capture device, detector, display window, speech engine and loop.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/multierr"

	"github.com/teslashibe/go-spotter/internal/config"
	"github.com/teslashibe/go-spotter/pkg/capture"
	"github.com/teslashibe/go-spotter/pkg/detection"
	"github.com/teslashibe/go-spotter/pkg/display"
	"github.com/teslashibe/go-spotter/pkg/speech"
	"github.com/teslashibe/go-spotter/pkg/spotter"
	"github.com/teslashibe/go-spotter/pkg/vision"
)

// Diagnostic lines printed for the user, independent of log level.
const (
	msgOpenFailed  = "Error: Could not open webcam."
	msgStreamEnded = "Error: Can't receive frame (stream end?). Exiting ..."
)

// App owns every component and their lifecycle.
type App struct {
	config config.Config
	logger *slog.Logger

	engine     speech.Engine
	detector   *vision.YOLODetector
	window     *display.Window
	announcer  *spotter.Announcer
	metrics    *spotter.Metrics
	controller *spotter.Controller[*capture.Frame]
}

// New validates cfg and creates an application.
func New(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &App{config: cfg, logger: logger}, nil
}

// Init loads the model, selects a speech engine and opens the window.
// The capture device is opened by Run.
func (a *App) Init() error {
	engine, err := a.newEngine()
	if err != nil {
		return fmt.Errorf("speech init: %w", err)
	}
	a.engine = engine

	a.detector, err = vision.NewYOLO(a.yoloConfig(), a.logger)
	if err != nil {
		return fmt.Errorf("detector init: %w", err)
	}

	a.window = display.New(a.config.WindowTitle, []rune(a.config.QuitKey)[0], a.logger)

	a.metrics = spotter.NewMetrics()
	a.announcer = spotter.NewAnnouncer(a.engine,
		spotter.WithCooldown(a.config.AnnounceCooldown),
		spotter.WithAnnouncerLogger(a.logger),
		spotter.WithMetrics(a.metrics),
	)

	a.controller, err = spotter.NewController(spotter.Components[*capture.Frame]{
		Open:      a.openCamera,
		Detector:  spotter.DetectorFunc[*capture.Frame](a.detect),
		Display:   a.window,
		Release:   func(f *capture.Frame) { _ = f.Close() },
		Announcer: a.announcer,
	}, spotter.Options{
		Postprocess: a.postprocessor(),
		Logger:      a.logger,
		Metrics:     a.metrics,
	})
	if err != nil {
		return fmt.Errorf("controller init: %w", err)
	}
	return nil
}

// Run drives the loop until the stream ends, the user quits or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	if a.controller == nil {
		return errors.New("app: Run called before Init")
	}

	err := a.controller.Run(ctx)
	switch a.controller.StopReason() {
	case spotter.StopStartupFailure:
		if errors.Is(err, capture.ErrCaptureUnavailable) {
			fmt.Fprintln(os.Stderr, msgOpenFailed)
		}
	case spotter.StopEndOfStream:
		fmt.Println(msgStreamEnded)
	}
	return err
}

// Shutdown releases whatever Run did not. Safe to call after a failed Init.
func (a *App) Shutdown() error {
	var err error
	if a.controller == nil || a.controller.State() == spotter.StateIdle {
		// The loop never ran, so nothing else closed these.
		if a.window != nil {
			err = multierr.Append(err, a.window.Close())
		}
		switch {
		case a.announcer != nil:
			err = multierr.Append(err, a.announcer.Close())
		case a.engine != nil:
			err = multierr.Append(err, a.engine.Close())
		}
	}
	if a.detector != nil {
		err = multierr.Append(err, a.detector.Close())
	}
	return err
}

// Metrics returns the loop counters. Nil before Init.
func (a *App) Metrics() *spotter.Metrics {
	return a.metrics
}

func (a *App) newEngine() (speech.Engine, error) {
	engine, err := speech.New(speech.Backend(a.config.SpeechBackend), a.logger,
		speech.WithVoice(a.config.SpeechVoice),
		speech.WithRate(a.config.SpeechRate),
	)
	if errors.Is(err, speech.ErrNoEngine) {
		a.logger.Warn("no speech synthesizer installed, announcements will only be logged", "error", err)
		return speech.NewLoggingMock(a.logger), nil
	}
	return engine, err
}

func (a *App) yoloConfig() vision.YOLOConfig {
	cfg := vision.DefaultYOLOConfig()
	cfg.ModelPath = a.config.ModelPath
	cfg.LabelsPath = a.config.LabelsPath
	cfg.ConfidenceThresh = float32(a.config.ConfidenceThresh)
	cfg.NMSThresh = float32(a.config.NMSThresh)
	cfg.InputWidth = a.config.InputSize
	cfg.InputHeight = a.config.InputSize
	return cfg
}

func (a *App) captureConfig() capture.Config {
	return capture.Config{
		DeviceID:  a.config.CameraID,
		Width:     a.config.FrameWidth,
		Height:    a.config.FrameHeight,
		Framerate: a.config.Framerate,
	}
}

func (a *App) postprocessor() detection.Postprocessor {
	if len(a.config.IgnoreLabels) == 0 {
		return nil
	}
	return detection.NewLabelFilter(a.config.IgnoreLabels...)
}

func (a *App) openCamera(ctx context.Context) (spotter.Source[*capture.Frame], error) {
	cam, err := capture.Open(a.captureConfig(), a.logger)
	if err != nil {
		return nil, err
	}
	return cam, nil
}

func (a *App) detect(f *capture.Frame) ([]detection.Detection, error) {
	return a.detector.Detect(f.Mat)
}
