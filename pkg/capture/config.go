// Package capture provides the frame source: a local video device read one
// frame at a time through OpenCV.
package capture

import "fmt"

// Limits accepted for requested capture properties.
const (
	MaxWidth     = 4096
	MaxHeight    = 2160
	MaxFramerate = 120
)

// Config holds capture device settings.
// Zero Width, Height or Framerate leave the device default untouched.
type Config struct {
	DeviceID  int `json:"device_id"` // Camera index, 0 = first available
	Width     int `json:"width"`     // Requested frame width in pixels
	Height    int `json:"height"`    // Requested frame height in pixels
	Framerate int `json:"framerate"` // Requested FPS
}

// DefaultConfig opens the first camera with its native mode.
func DefaultConfig() Config {
	return Config{DeviceID: 0}
}

// VGAConfig returns a 640x480@30 configuration, which most webcams support
// and which keeps inference cheap.
func VGAConfig() Config {
	return Config{DeviceID: 0, Width: 640, Height: 480, Framerate: 30}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.DeviceID < 0 {
		errors = append(errors, "device_id must be >= 0")
	}
	if c.Width != 0 && (c.Width < 160 || c.Width > MaxWidth) {
		errors = append(errors, fmt.Sprintf("width must be 0 (default) or between 160 and %d", MaxWidth))
	}
	if c.Height != 0 && (c.Height < 120 || c.Height > MaxHeight) {
		errors = append(errors, fmt.Sprintf("height must be 0 (default) or between 120 and %d", MaxHeight))
	}
	if c.Framerate != 0 && (c.Framerate < 1 || c.Framerate > MaxFramerate) {
		errors = append(errors, fmt.Sprintf("framerate must be 0 (default) or between 1 and %d", MaxFramerate))
	}

	return errors
}
