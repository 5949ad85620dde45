package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-spotter/pkg/spotter"
)

var (
	// ErrCaptureUnavailable is returned by Open when the device cannot be opened.
	ErrCaptureUnavailable = errors.New("capture: device unavailable")

	// ErrEndOfStream is returned by Next once the device stops producing frames.
	// It marks a graceful end, not a failure.
	ErrEndOfStream = spotter.ErrEndOfStream
)

// Frame is one captured image. The caller owns it and must Close it.
type Frame struct {
	Mat      gocv.Mat
	Seq      uint64
	Captured time.Time
}

// Close releases the underlying image buffer.
func (f *Frame) Close() error {
	if f == nil {
		return nil
	}
	return f.Mat.Close()
}

// Camera reads frames from a local video device.
type Camera struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	vc     *gocv.VideoCapture
	seq    uint64
	closed bool
}

// Open opens the device named by cfg.DeviceID.
// Any failure is reported as ErrCaptureUnavailable.
func Open(cfg Config, logger *slog.Logger) (*Camera, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("%w: invalid config: %s", ErrCaptureUnavailable, strings.Join(errs, "; "))
	}

	vc, err := gocv.OpenVideoCapture(cfg.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrCaptureUnavailable, cfg.DeviceID, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: device %d not opened", ErrCaptureUnavailable, cfg.DeviceID)
	}

	if cfg.Width > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	}
	if cfg.Height > 0 {
		vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	}
	if cfg.Framerate > 0 {
		vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	}

	logger = logger.With("component", "capture", "device", cfg.DeviceID)
	logger.Info("capture device opened",
		"width", vc.Get(gocv.VideoCaptureFrameWidth),
		"height", vc.Get(gocv.VideoCaptureFrameHeight),
		"fps", vc.Get(gocv.VideoCaptureFPS),
	)

	return &Camera{cfg: cfg, logger: logger, vc: vc}, nil
}

// Next reads the next frame. A failed or empty read ends the stream.
func (c *Camera) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrEndOfStream
	}

	mat := gocv.NewMat()
	if ok := c.vc.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		c.logger.Debug("frame read failed", "after_frames", c.seq)
		return nil, ErrEndOfStream
	}

	c.seq++
	return &Frame{Mat: mat, Seq: c.seq, Captured: time.Now()}, nil
}

// Close releases the device. Safe to call multiple times.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.logger.Info("capture device released", "frames", c.seq)
	return c.vc.Close()
}

// Config returns the configuration the camera was opened with.
func (c *Camera) Config() Config {
	return c.cfg
}
