package detector

import (
	"context"
	"image"
	"math"

	"livedance-go/internal/types"
)

// Synthetic is a deterministic stand-in detector used by -synthetic mode and
// tests. It ignores pixel content and produces a centered figure whose limbs
// sway sinusoidally with the detection timestamp, so downstream smoothing and
// interpolation have real motion to chew on.
type Synthetic struct{}

func NewSynthetic() *Synthetic {
	return &Synthetic{}
}

// bodyLayout places the 33 body landmarks of a standing figure in normalized
// coordinates. Indices follow the detector landmark order; entries not
// listed sit near the head.
var bodyLayout = map[int][2]float64{
	0:  {0.50, 0.10}, // nose
	11: {0.42, 0.25}, // left_shoulder
	12: {0.58, 0.25}, // right_shoulder
	13: {0.38, 0.38}, // left_elbow
	14: {0.62, 0.38}, // right_elbow
	15: {0.36, 0.50}, // left_wrist
	16: {0.64, 0.50}, // right_wrist
	23: {0.44, 0.52}, // left_hip
	24: {0.56, 0.52}, // right_hip
	25: {0.43, 0.70}, // left_knee
	26: {0.57, 0.70}, // right_knee
	27: {0.43, 0.88}, // left_ankle
	28: {0.57, 0.88}, // right_ankle
}

func (s *Synthetic) Detect(_ context.Context, _ *image.RGBA, timestampMicros int64, opts Options) (*types.Detection, error) {
	phase := float64(timestampMicros) / 1e6 * 2 * math.Pi // one cycle per second
	sway := 0.02 * math.Sin(phase)
	bob := 0.01 * math.Cos(phase)

	body := make([]types.Point, 33)
	for i := range body {
		x, y := 0.5, 0.12
		if p, ok := bodyLayout[i]; ok {
			x, y = p[0], p[1]
		}
		body[i] = types.Point{X: x + sway, Y: y + bob, Z: 0, Visibility: 0.95}
	}

	detection := &types.Detection{
		Body: body,
		Timings: map[string]float64{
			"pose_detection": 0,
			"hand_detection": 0,
		},
	}

	if opts.WantWorld {
		world := make([]types.Point, 33)
		for i, p := range body {
			// Shift the normalized figure to a hip-centered metric frame.
			world[i] = types.Point{X: p.X - 0.5, Y: 0.52 - p.Y, Z: 0.05 * math.Sin(phase+float64(i))}
		}
		detection.World = world
	}

	if opts.MaxHands != 0 {
		hands := []types.Hand{
			syntheticHand("left", 0.36+sway, 0.50+bob),
			syntheticHand("right", 0.64+sway, 0.50+bob),
		}
		if opts.MaxHands > 0 && len(hands) > opts.MaxHands {
			hands = hands[:opts.MaxHands]
		}
		detection.Hands = hands
	}
	return detection, nil
}

func syntheticHand(side string, wristX, wristY float64) types.Hand {
	points := make([]types.Point, 21)
	for i := range points {
		// Fan the fingers out below the wrist.
		points[i] = types.Point{
			X: wristX + 0.004*float64(i%5),
			Y: wristY + 0.006*float64(i/5),
			Z: -0.01,
		}
	}
	return types.Hand{Side: side, Points: points}
}

func (s *Synthetic) Close() error {
	return nil
}
