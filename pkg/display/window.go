// Package display shows annotated frames in a desktop window and polls the
// keyboard for the quit key.
package display

import (
	"fmt"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-spotter/pkg/capture"
	"github.com/teslashibe/go-spotter/pkg/detection"
	"github.com/teslashibe/go-spotter/pkg/vision"
)

// DefaultTitle is the window title used when none is configured.
const DefaultTitle = "Real-time Object Detection"

// keyPollMillis is how long Quit waits for a key press.
const keyPollMillis = 1

// Window is a single on-screen window.
type Window struct {
	title   string
	quitKey rune
	logger  *slog.Logger

	mu     sync.Mutex
	win    *gocv.Window
	closed bool
}

// New prepares a window; it is created on the first Show. quitKey is the
// key that ends the session.
func New(title string, quitKey rune, logger *slog.Logger) *Window {
	if title == "" {
		title = DefaultTitle
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Window{
		title:   title,
		quitKey: quitKey,
		logger:  logger.With("component", "display"),
	}
}

// Show draws dets onto the frame and displays it.
func (w *Window) Show(frame *capture.Frame, dets []detection.Detection) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || frame == nil {
		return nil
	}
	if err := vision.Annotate(&frame.Mat, dets); err != nil {
		return fmt.Errorf("display: annotate frame %d: %w", frame.Seq, err)
	}
	if w.win == nil {
		w.win = gocv.NewWindow(w.title)
	}
	w.win.IMShow(frame.Mat)
	return nil
}

// Quit polls the keyboard and reports whether the quit key was pressed.
func (w *Window) Quit() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return true
	}
	if w.win == nil {
		return false
	}
	if IsKey(w.win.WaitKey(keyPollMillis), w.quitKey) {
		w.logger.Info("quit key pressed", "key", string(w.quitKey))
		return true
	}
	return false
}

// Close destroys the window. Safe to call multiple times.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	if w.win == nil {
		return nil
	}
	return w.win.Close()
}

// IsKey reports whether a WaitKey result is key. WaitKey returns -1 when
// no key was pressed; some backends set modifier bits above the low byte.
func IsKey(code int, key rune) bool {
	if code < 0 {
		return false
	}
	return rune(code&0xFF) == key
}
