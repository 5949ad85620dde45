// Spotter - real-time object detection with spoken announcements
// Reads the webcam, runs a YOLO model on every frame and says what it sees.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/teslashibe/go-spotter/internal/config"
	"github.com/teslashibe/go-spotter/internal/log"
	"github.com/teslashibe/go-spotter/pkg/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log.Init(cfg.LogLevel)

	a, err := app.New(cfg, log.L())
	if err != nil {
		log.Error("configuration error", "error", err)
		return 1
	}

	if err := a.Init(); err != nil {
		log.Error("initialization failed", "error", err)
		_ = a.Shutdown()
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runErr := a.Run(ctx)
	if err := a.Shutdown(); err != nil {
		log.Warn("shutdown", "error", err)
	}
	if runErr != nil {
		log.Error("stopped with error", "error", runErr)
		return 1
	}
	return 0
}
