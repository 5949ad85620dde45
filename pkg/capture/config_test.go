package capture

import (
	"errors"
	"testing"

	"github.com/teslashibe/go-spotter/pkg/spotter"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantErrs int
	}{
		{"default", DefaultConfig(), 0},
		{"vga", VGAConfig(), 0},
		{"negative device", Config{DeviceID: -1}, 1},
		{"width too small", Config{Width: 100}, 1},
		{"height too large", Config{Height: MaxHeight + 1}, 1},
		{"framerate too high", Config{Framerate: 500}, 1},
		{"everything wrong", Config{DeviceID: -2, Width: 10, Height: 10, Framerate: -1}, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			errs := tc.cfg.Validate()
			if len(errs) != tc.wantErrs {
				t.Errorf("Validate() = %v, want %d errors", errs, tc.wantErrs)
			}
		})
	}
}

func TestOpen_InvalidConfigIsUnavailable(t *testing.T) {
	_, err := Open(Config{DeviceID: -1}, nil)
	if !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Open() error = %v, want ErrCaptureUnavailable", err)
	}
}

func TestFrame_CloseNil(t *testing.T) {
	var f *Frame
	if err := f.Close(); err != nil {
		t.Errorf("nil Frame Close() = %v", err)
	}
}

func TestErrEndOfStream_MatchesLoopSentinel(t *testing.T) {
	if !errors.Is(ErrEndOfStream, spotter.ErrEndOfStream) {
		t.Error("capture end of stream must stop the spotter loop")
	}
}
