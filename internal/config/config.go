package config

import (
	"fmt"
	"time"
)

// AppConfig collects the server's flag-driven settings.
type AppConfig struct {
	Port int

	// DetectorEndpoint is the ZMQ address of the detector sidecar.
	DetectorEndpoint string
	// Synthetic replaces the sidecar with the built-in synthetic detector.
	Synthetic bool
	// DetectorTimeout bounds one sidecar request.
	DetectorTimeout time.Duration

	// Alpha is the EMA smoothing factor in (0,1].
	Alpha float64
	// DownscaleShortSide bounds the short side of images fed to the
	// detector; 0 disables downscaling.
	DownscaleShortSide int
	// ModelComplexity selects the detector quality tier (0-2).
	ModelComplexity int
	// MaxHands bounds the number of hands reported per frame.
	MaxHands int

	// PollInterval is how long the inference worker sleeps when the
	// frame slot is empty.
	PollInterval time.Duration

	// RecordEnabled writes inbound frame messages to a binary record log.
	RecordEnabled bool
	RecordDir     string

	// LogEvery throttles repeated hot-path error logging.
	LogEvery int
}

func (c AppConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("smoothing factor %v outside (0,1]", c.Alpha)
	}
	if !c.Synthetic && c.DetectorEndpoint == "" {
		return fmt.Errorf("detector endpoint is required unless -synthetic is set")
	}
	if c.ModelComplexity < 0 || c.ModelComplexity > 2 {
		return fmt.Errorf("model complexity %d outside 0-2", c.ModelComplexity)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}
