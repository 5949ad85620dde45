// Package detection defines object detection results and the model-independent
// pieces of the detection pipeline: label vocabularies, YOLOv8 output
// decoding and result postprocessing.
//
// Nothing in this package touches OpenCV; the inference backend lives in
// pkg/vision.
package detection

import (
	"fmt"
	"image"
)

// Detection is one labelled bounding box found in a frame.
type Detection struct {
	Label      string          // Human-readable class name
	ClassID    int             // Index into the model's vocabulary
	Confidence float64         // Detection confidence (0-1)
	Box        image.Rectangle // Pixel coordinates in the source frame
}

// Area returns the area of the bounding box in pixels.
func (d Detection) Area() int {
	return d.Box.Dx() * d.Box.Dy()
}

// Center returns the center point of the bounding box.
func (d Detection) Center() image.Point {
	return image.Pt((d.Box.Min.X+d.Box.Max.X)/2, (d.Box.Min.Y+d.Box.Max.Y)/2)
}

// Caption is the text drawn next to the box on the display.
func (d Detection) Caption() string {
	return fmt.Sprintf("%s %.2f", d.Label, d.Confidence)
}
