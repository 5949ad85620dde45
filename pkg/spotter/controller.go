package spotter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

// State is the lifecycle state of a Controller.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateStopped:
		return "STOPPED"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// StopReason says why the loop ended.
type StopReason string

const (
	StopEndOfStream    StopReason = "end of stream"
	StopQuit           StopReason = "quit"
	StopInterrupted    StopReason = "interrupted"
	StopInferenceError StopReason = "inference error"
	StopCaptureError   StopReason = "capture error"
	StopStartupFailure StopReason = "startup failure"
)

// ErrAlreadyRun is returned when Run is called more than once.
var ErrAlreadyRun = errors.New("spotter: controller already run")

// Source produces frames. Next returns ErrEndOfStream once the stream is
// exhausted.
type Source[F any] interface {
	Next(ctx context.Context) (F, error)
	Close() error
}

// Detector runs inference on one frame.
type Detector[F any] interface {
	Detect(frame F) ([]detection.Detection, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc[F any] func(frame F) ([]detection.Detection, error)

// Detect calls f.
func (f DetectorFunc[F]) Detect(frame F) ([]detection.Detection, error) {
	return f(frame)
}

// Display renders annotated frames and reports the quit request.
type Display[F any] interface {
	Show(frame F, dets []detection.Detection) error
	// Quit polls for the quit key.
	Quit() bool
	Close() error
}

// Components are the collaborators a Controller drives.
type Components[F any] struct {
	// Open acquires the frame source. It is called once, at the start of Run.
	Open func(ctx context.Context) (Source[F], error)

	Detector Detector[F]

	// Display is optional; without one the loop runs headless until the
	// stream ends or ctx is cancelled.
	Display Display[F]

	// Release frees a frame once the iteration is done with it. Optional.
	Release func(F)

	Announcer *Announcer
}

// Options tune the loop.
type Options struct {
	Policy      Policy
	Postprocess detection.Postprocessor
	Logger      *slog.Logger
	Metrics     *Metrics

	// OnState is called on every state transition, from the Run goroutine.
	OnState func(State)
}

// Controller runs the capture, detect, announce, display loop.
type Controller[F any] struct {
	c       Components[F]
	policy  Policy
	post    detection.Postprocessor
	logger  *slog.Logger
	metrics *Metrics
	onState func(State)

	state   atomic.Int32
	started atomic.Bool
	reason  atomic.Value // StopReason
}

// NewController validates the components and builds a controller.
func NewController[F any](c Components[F], opts Options) (*Controller[F], error) {
	if c.Open == nil {
		return nil, errors.New("spotter: Open is required")
	}
	if c.Detector == nil {
		return nil, errors.New("spotter: Detector is required")
	}
	if c.Announcer == nil {
		return nil, errors.New("spotter: Announcer is required")
	}

	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = c.Announcer.Metrics()
	}

	return &Controller[F]{
		c:       c,
		policy:  opts.Policy,
		post:    opts.Postprocess,
		logger:  opts.Logger.With("component", "controller"),
		metrics: opts.Metrics,
		onState: opts.OnState,
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller[F]) State() State {
	return State(c.state.Load())
}

func (c *Controller[F]) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return
	}
	c.logger.Debug("state change", "from", prev, "to", s)
	if c.onState != nil {
		c.onState(s)
	}
}

// Run opens the source and loops until the stream ends, the user quits,
// ctx is cancelled, or inference fails. Before returning it releases the
// source, closes the display, and waits for any in-flight announcement.
//
// A nil error means a graceful stop. If the source cannot be opened Run
// returns the open error without ever entering StateRunning.
func (c *Controller[F]) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRun
	}

	src, err := c.c.Open(ctx)
	if err != nil {
		c.reason.Store(StopStartupFailure)
		closeErr := c.closeOutputs()
		c.setState(StateStopped)
		return multierr.Append(err, closeErr)
	}

	c.setState(StateRunning)
	reason, runErr := c.loop(ctx, src)
	c.reason.Store(reason)
	c.logger.Info("stopping", "reason", reason)

	c.setState(StateStopping)
	shutdownErr := multierr.Append(src.Close(), c.closeOutputs())
	c.setState(StateStopped)

	c.logger.Info("stopped", c.metrics.Summary().LogArgs()...)
	return multierr.Append(runErr, shutdownErr)
}

// StopReason reports why Run returned. It is empty until then.
func (c *Controller[F]) StopReason() StopReason {
	r, _ := c.reason.Load().(StopReason)
	return r
}

func (c *Controller[F]) loop(ctx context.Context, src Source[F]) (StopReason, error) {
	var seq uint64
	for {
		if ctx.Err() != nil {
			return StopInterrupted, nil
		}

		frame, err := src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, ErrEndOfStream):
				return StopEndOfStream, nil
			case ctx.Err() != nil:
				return StopInterrupted, nil
			default:
				return StopCaptureError, fmt.Errorf("spotter: read frame: %w", err)
			}
		}
		seq++
		c.metrics.Frames.Add(1)

		if err := c.step(seq, frame); err != nil {
			c.release(frame)
			return StopInferenceError, err
		}
		c.release(frame)

		if c.c.Display != nil && c.c.Display.Quit() {
			return StopQuit, nil
		}
	}
}

func (c *Controller[F]) step(seq uint64, frame F) error {
	start := time.Now()
	dets, err := c.c.Detector.Detect(frame)
	c.metrics.ObserveInference(time.Since(start))
	if err != nil {
		return &InferenceError{Frame: seq, Err: err}
	}
	if c.post != nil {
		dets = c.post(dets)
	}
	c.metrics.Detections.Add(uint64(len(dets)))

	labels := LabelsOf(dets)
	c.metrics.CountLabels(labels)

	if ann, ok := c.policy.Decide(labels, c.c.Announcer.InFlight()); ok {
		if !c.c.Announcer.TryAnnounce(ann) {
			c.metrics.Suppressed.Add(1)
		}
	} else if labels.Len() > 0 {
		c.metrics.Suppressed.Add(1)
	}

	if c.c.Display != nil {
		if err := c.c.Display.Show(frame, dets); err != nil {
			c.logger.Warn("display failed", "frame", seq, "error", err)
		}
	}
	return nil
}

func (c *Controller[F]) release(frame F) {
	if c.c.Release != nil {
		c.c.Release(frame)
	}
}

// closeOutputs closes the display and the announcer. The announcer waits
// for an in-flight announcement to finish naturally.
func (c *Controller[F]) closeOutputs() error {
	var err error
	if c.c.Display != nil {
		err = multierr.Append(err, c.c.Display.Close())
	}
	return multierr.Append(err, c.c.Announcer.Close())
}
