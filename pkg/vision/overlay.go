package vision

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

// palette is cycled by class id so each class keeps its color across frames.
var palette = []color.RGBA{
	{R: 255, G: 56, B: 56, A: 255},
	{R: 255, G: 157, B: 151, A: 255},
	{R: 255, G: 112, B: 31, A: 255},
	{R: 255, G: 178, B: 29, A: 255},
	{R: 207, G: 210, B: 49, A: 255},
	{R: 72, G: 249, B: 10, A: 255},
	{R: 146, G: 204, B: 23, A: 255},
	{R: 61, G: 219, B: 134, A: 255},
	{R: 26, G: 147, B: 52, A: 255},
	{R: 0, G: 212, B: 187, A: 255},
	{R: 44, G: 153, B: 168, A: 255},
	{R: 0, G: 194, B: 255, A: 255},
	{R: 52, G: 69, B: 147, A: 255},
	{R: 100, G: 115, B: 255, A: 255},
	{R: 0, G: 24, B: 236, A: 255},
	{R: 132, G: 56, B: 255, A: 255},
}

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// ColorFor returns the box color used for a class.
func ColorFor(classID int) color.RGBA {
	if classID < 0 {
		classID = -classID
	}
	return palette[classID%len(palette)]
}

// Annotate draws each detection's box and caption onto mat in place.
func Annotate(mat *gocv.Mat, dets []detection.Detection) error {
	const (
		font      = gocv.FontHersheySimplex
		scale     = 0.5
		thickness = 1
	)

	for _, d := range dets {
		c := ColorFor(d.ClassID)
		if err := gocv.Rectangle(mat, d.Box, c, 2); err != nil {
			return fmt.Errorf("draw box: %w", err)
		}

		caption := d.Caption()
		size := gocv.GetTextSize(caption, font, scale, thickness)

		// Caption sits above the box, or inside it when the box touches the top edge.
		top := d.Box.Min.Y - size.Y - 6
		if top < 0 {
			top = d.Box.Min.Y
		}
		bg := image.Rect(d.Box.Min.X, top, d.Box.Min.X+size.X+4, top+size.Y+6)
		if err := gocv.Rectangle(mat, bg, c, -1); err != nil {
			return fmt.Errorf("draw caption background: %w", err)
		}
		if err := gocv.PutText(mat, caption, image.Pt(bg.Min.X+2, bg.Max.Y-3), font, scale, white, thickness); err != nil {
			return fmt.Errorf("draw caption: %w", err)
		}
	}
	return nil
}
