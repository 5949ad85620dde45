package detection

import (
	"errors"
	"fmt"
	"image"
)

// ErrBadTensor is returned when a model output does not have the YOLOv8 layout.
var ErrBadTensor = errors.New("detection: unexpected output tensor shape")

// Candidate is a raw box decoded from the model output, before
// non-maximum suppression.
type Candidate struct {
	Box     image.Rectangle
	Score   float32
	ClassID int
}

// DecodeParams describes a YOLOv8 output tensor and the frame it belongs to.
type DecodeParams struct {
	NumAttrs   int // 4 box coordinates + number of classes
	NumAnchors int // e.g. 8400 for a 640x640 input

	InputWidth, InputHeight int // Model input size the frame was resized to
	ImageWidth, ImageHeight int // Original frame size

	ConfidenceThresh float32
}

// DecodeYOLOv8 turns the raw [1, 4+classes, anchors] output of a YOLOv8
// detection head into candidates above the confidence threshold.
//
// The tensor is attribute-major: data[attr*NumAnchors + anchor]. Box
// coordinates are center x, center y, width, height in model input pixels
// and are scaled back to the original frame and clamped to its bounds.
func DecodeYOLOv8(data []float32, p DecodeParams) ([]Candidate, error) {
	if p.NumAttrs <= 4 || p.NumAnchors <= 0 {
		return nil, fmt.Errorf("%w: attrs=%d anchors=%d", ErrBadTensor, p.NumAttrs, p.NumAnchors)
	}
	if len(data) < p.NumAttrs*p.NumAnchors {
		return nil, fmt.Errorf("%w: have %d values, need %d", ErrBadTensor, len(data), p.NumAttrs*p.NumAnchors)
	}
	if p.InputWidth <= 0 || p.InputHeight <= 0 {
		return nil, fmt.Errorf("%w: input size %dx%d", ErrBadTensor, p.InputWidth, p.InputHeight)
	}

	n := p.NumAnchors
	scaleX := float32(p.ImageWidth) / float32(p.InputWidth)
	scaleY := float32(p.ImageHeight) / float32(p.InputHeight)
	bounds := image.Rect(0, 0, p.ImageWidth, p.ImageHeight)

	var out []Candidate
	for i := 0; i < n; i++ {
		maxScore := float32(0)
		maxClassID := 0
		for c := 4; c < p.NumAttrs; c++ {
			if score := data[c*n+i]; score > maxScore {
				maxScore = score
				maxClassID = c - 4
			}
		}
		if maxScore < p.ConfidenceThresh {
			continue
		}

		cx := data[0*n+i]
		cy := data[1*n+i]
		w := data[2*n+i]
		h := data[3*n+i]

		box := image.Rect(
			int((cx-w/2)*scaleX),
			int((cy-h/2)*scaleY),
			int((cx+w/2)*scaleX),
			int((cy+h/2)*scaleY),
		).Intersect(bounds)
		if box.Empty() {
			continue
		}

		out = append(out, Candidate{Box: box, Score: maxScore, ClassID: maxClassID})
	}

	return out, nil
}
