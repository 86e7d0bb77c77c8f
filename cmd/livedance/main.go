package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"livedance-go/internal/config"
	"livedance-go/internal/detector"
	"livedance-go/internal/record"
	"livedance-go/internal/server"
)

func main() {
	var (
		port             = flag.Int("port", 8000, "HTTP port for the websocket endpoint")
		detectorEndpoint = flag.String("detector-endpoint", "tcp://localhost:31010", "ZMQ endpoint of the detector sidecar")
		detectorTimeout  = flag.Duration("detector-timeout", 2*time.Second, "Timeout for one detector request")
		synthetic        = flag.Bool("synthetic", false, "Use the built-in synthetic detector instead of the sidecar")
		alpha            = flag.Float64("alpha", 0.5, "EMA smoothing factor in (0,1]")
		downscale        = flag.Int("downscale", 256, "Short-side bound for images fed to the detector (0 disables)")
		complexity       = flag.Int("model-complexity", 1, "Detector model complexity tier (0-2)")
		maxHands         = flag.Int("max-hands", 2, "Maximum hands reported per frame")
		pollInterval     = flag.Duration("poll-interval", 2*time.Millisecond, "Worker sleep while the frame slot is empty")
		recordEnabled    = flag.Bool("record", false, "Write inbound frame messages to a record log")
		recordDir        = flag.String("record-dir", "recordlog", "Directory for record logs")
		logEvery         = flag.Int("log-every", 100, "Log every Nth repeated hot-path error")
	)
	flag.Parse()

	cfg := config.AppConfig{
		Port:               *port,
		DetectorEndpoint:   *detectorEndpoint,
		DetectorTimeout:    *detectorTimeout,
		Synthetic:          *synthetic,
		Alpha:              *alpha,
		DownscaleShortSide: *downscale,
		ModelComplexity:    *complexity,
		MaxHands:           *maxHands,
		PollInterval:       *pollInterval,
		RecordEnabled:      *recordEnabled,
		RecordDir:          *recordDir,
		LogEvery:           *logEvery,
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder *record.Writer
	if cfg.RecordEnabled {
		writer, err := record.NewWriter(cfg.RecordDir, "frames")
		if err != nil {
			log.Fatalf("failed to start record log: %v", err)
		}
		recorder = writer
		go func() {
			<-ctx.Done()
			if err := writer.Close(); err != nil {
				log.Printf("record log close failed: %v", err)
			}
		}()
	}

	newDetector := func() (detector.Detector, error) {
		if cfg.Synthetic {
			return detector.NewSynthetic(), nil
		}
		return detector.NewZMQ(cfg.DetectorEndpoint, cfg.DetectorTimeout, cfg.LogEvery)
	}

	if cfg.Synthetic {
		log.Printf("Starting livedance on :%d with the synthetic detector", cfg.Port)
	} else {
		log.Printf("Starting livedance on :%d, detector at %s", cfg.Port, cfg.DetectorEndpoint)
	}
	if err := server.Run(ctx, cfg, newDetector, recorder); err != nil {
		log.Printf("server stopped: %v", err)
	}
}
