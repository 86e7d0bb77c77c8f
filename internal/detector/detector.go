// Package detector is the boundary to the external pose/hand detection
// model. The model is a black box: image in, landmark lists or nothing out.
// Implementations must be called with strictly increasing timestamps per
// instance and return an empty Detection, not an error, when no subject is
// in frame.
package detector

import (
	"context"
	"image"

	"livedance-go/internal/types"
)

// Options tune one detection pass.
type Options struct {
	// WantWorld requests metric 3D world landmarks in addition to the
	// normalized image landmarks.
	WantWorld bool
	// ModelComplexity selects the detector quality tier (0-2).
	ModelComplexity int
	// MaxHands bounds the number of hands reported.
	MaxHands int
}

// Detector is a stateful detector instance. Exactly one long-lived instance
// exists per inference worker; recreating instances per frame exhausts OS
// resources under load.
type Detector interface {
	// Detect runs one pass. timestampMicros must be strictly greater than
	// any value previously passed to this instance.
	Detect(ctx context.Context, img *image.RGBA, timestampMicros int64, opts Options) (*types.Detection, error)
	Close() error
}
