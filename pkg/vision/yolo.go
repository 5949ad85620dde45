// Package vision provides the OpenCV-backed parts of the pipeline: YOLOv8
// inference through the gocv DNN module and drawing detections onto frames.
package vision

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-spotter/pkg/detection"
)

// nmsClassOffset separates boxes of different classes so a single
// NMSBoxes call only suppresses overlaps within a class.
const nmsClassOffset = 8192

// ErrModelNotFound is returned when the weights file does not exist.
var ErrModelNotFound = errors.New("vision: model file not found")

// YOLOConfig holds YOLO detector configuration.
type YOLOConfig struct {
	ModelPath        string
	LabelsPath       string // optional; see detection.ResolveLabels
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
}

// DefaultYOLOConfig returns defaults for a YOLOv8 model exported to ONNX at 640x640.
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "best.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
	}
}

// YOLODetector runs a YOLOv8 ONNX model on frames.
type YOLODetector struct {
	net    gocv.Net
	config YOLOConfig
	labels detection.Vocabulary
	logger *slog.Logger

	mu        sync.Mutex
	inputSize image.Point
}

// NewYOLO loads the model and its label vocabulary.
func NewYOLO(cfg YOLOConfig, logger *slog.Logger) (*YOLODetector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "vision.yolo")

	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	labels, source, err := detection.ResolveLabels(cfg.ModelPath, cfg.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	if source == detection.BuiltinCOCO {
		logger.Warn("no label file or embedded names found, using COCO class names",
			"model", cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("set backend: %w", err)
	}
	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("set target: %w", err)
	}

	logger.Info("model loaded",
		"model", cfg.ModelPath,
		"labels", source,
		"classes", len(labels),
		"input", fmt.Sprintf("%dx%d", cfg.InputWidth, cfg.InputHeight),
	)

	return &YOLODetector{
		net:       net,
		config:    cfg,
		labels:    labels,
		logger:    logger,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Detect finds objects in img.
func (d *YOLODetector) Detect(img gocv.Mat) ([]detection.Detection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, d.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")

	output := d.net.Forward("")
	defer output.Close()

	// Output shape: [1, 4+classes, anchors]
	dims := output.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("%w: dims %v", detection.ErrBadTensor, dims)
	}
	if err := detection.CheckVocabulary(d.labels, dims[1]-4); err != nil {
		return nil, fmt.Errorf("vision: %w", err)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}

	cands, err := detection.DecodeYOLOv8(data, detection.DecodeParams{
		NumAttrs:         dims[1],
		NumAnchors:       dims[2],
		InputWidth:       d.config.InputWidth,
		InputHeight:      d.config.InputHeight,
		ImageWidth:       img.Cols(),
		ImageHeight:      img.Rows(),
		ConfidenceThresh: d.config.ConfidenceThresh,
	})
	if err != nil {
		return nil, err
	}

	dets := d.suppress(cands)
	if len(dets) > 0 {
		d.logger.Debug("objects found", "count", len(dets))
	}
	return dets, nil
}

// suppress runs per-class non-maximum suppression and names the survivors.
func (d *YOLODetector) suppress(cands []detection.Candidate) []detection.Detection {
	if len(cands) == 0 {
		return nil
	}

	boxes := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		off := c.ClassID * nmsClassOffset
		boxes[i] = c.Box.Add(image.Pt(off, off))
		scores[i] = c.Score
	}

	indices := gocv.NMSBoxes(boxes, scores, d.config.ConfidenceThresh, d.config.NMSThresh)

	dets := make([]detection.Detection, 0, len(indices))
	for _, idx := range indices {
		c := cands[idx]
		dets = append(dets, detection.Detection{
			Label:      d.labels.Name(c.ClassID),
			ClassID:    c.ClassID,
			Confidence: float64(c.Score),
			Box:        c.Box,
		})
	}
	return dets
}

// Labels returns the vocabulary supplied with the model.
func (d *YOLODetector) Labels() detection.Vocabulary {
	return d.labels
}

// Close releases the detector resources.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
