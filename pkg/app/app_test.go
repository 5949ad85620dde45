package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/teslashibe/go-spotter/internal/config"
	"github.com/teslashibe/go-spotter/internal/log"
	"github.com/teslashibe/go-spotter/pkg/detection"
	"github.com/teslashibe/go-spotter/pkg/speech"
	"github.com/teslashibe/go-spotter/pkg/vision"
)

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CameraID = -1

	_, err := New(cfg, log.Discard())
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) {
		t.Fatalf("New() = %v, want *config.Error", err)
	}
	if cfgErr.Field != "CameraID" {
		t.Errorf("Field = %q", cfgErr.Field)
	}
}

func TestApp_BeforeInit(t *testing.T) {
	a, err := New(config.Default(), log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Run(context.Background()); err == nil {
		t.Error("Run before Init should fail")
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown before Init: %v", err)
	}
}

func TestApp_InitMissingModel(t *testing.T) {
	cfg := config.Default()
	cfg.ModelPath = t.TempDir() + "/missing.onnx"
	cfg.SpeechBackend = string(speech.BackendMock)

	a, err := New(cfg, log.Discard())
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Init(); !errors.Is(err, vision.ErrModelNotFound) {
		t.Fatalf("Init() = %v, want ErrModelNotFound", err)
	}
	if err := a.Shutdown(); err != nil {
		t.Errorf("Shutdown after failed Init: %v", err)
	}
}

func TestApp_ComponentConfig(t *testing.T) {
	cfg := config.Default()
	cfg.CameraID = 2
	cfg.FrameWidth = 1280
	cfg.FrameHeight = 720
	cfg.ModelPath = "models/pets.onnx"
	cfg.ConfidenceThresh = 0.3
	cfg.InputSize = 320
	cfg.AnnounceCooldown = 2 * time.Second

	a, err := New(cfg, log.Discard())
	if err != nil {
		t.Fatal(err)
	}

	yolo := a.yoloConfig()
	if yolo.ModelPath != "models/pets.onnx" || yolo.InputWidth != 320 || yolo.InputHeight != 320 {
		t.Errorf("yoloConfig() = %+v", yolo)
	}
	if yolo.ConfidenceThresh != float32(0.3) {
		t.Errorf("ConfidenceThresh = %v", yolo.ConfidenceThresh)
	}

	cc := a.captureConfig()
	if cc.DeviceID != 2 || cc.Width != 1280 || cc.Height != 720 || cc.Framerate != 0 {
		t.Errorf("captureConfig() = %+v", cc)
	}
}

func TestApp_Postprocessor(t *testing.T) {
	a, _ := New(config.Default(), log.Discard())
	if a.postprocessor() != nil {
		t.Error("no ignore list should mean no postprocessor")
	}

	cfg := config.Default()
	cfg.IgnoreLabels = []string{"person"}
	a, _ = New(cfg, log.Discard())
	pp := a.postprocessor()
	if pp == nil {
		t.Fatal("expected a postprocessor")
	}
	out := pp([]detection.Detection{{Label: "person"}, {Label: "dog"}})
	if len(out) != 1 || out[0].Label != "dog" {
		t.Errorf("postprocessor kept %v", out)
	}
}

func TestApp_MockEngine(t *testing.T) {
	cfg := config.Default()
	cfg.SpeechBackend = string(speech.BackendMock)
	a, _ := New(cfg, log.Discard())

	e, err := a.newEngine()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := e.(*speech.Mock); !ok {
		t.Errorf("newEngine() = %T, want *speech.Mock", e)
	}
}
