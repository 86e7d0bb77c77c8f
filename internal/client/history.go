package client

import (
	"math"
	"sync"
	"time"

	"livedance-go/internal/types"
)

// intervalAlpha weights new inter-arrival measurements into the rolling
// estimate of the inference cadence.
const intervalAlpha = 0.2

// History keeps the two most recent inference results and reconstructs a
// high-rate rendering signal from the low-rate inference stream by linear
// interpolation. The blend denominator is a measured rolling average of the
// inter-result arrival time, seeded with the configured expected interval
// and clamped so one stall cannot poison the estimate.
type History struct {
	mu       sync.Mutex
	previous *types.InferenceResult
	latest   *types.InferenceResult
	latestAt time.Time

	intervalSec float64
	seedSec     float64
}

func NewHistory(expectedInterval time.Duration) *History {
	seed := expectedInterval.Seconds()
	if seed <= 0 {
		seed = 0.05
	}
	return &History{intervalSec: seed, seedSec: seed}
}

// Push records a newly arrived result. The previous latest becomes the
// interpolation origin; anything older is discarded.
func (h *History) Push(result types.InferenceResult, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest != nil {
		measured := at.Sub(h.latestAt).Seconds()
		if measured < h.seedSec/4 {
			measured = h.seedSec / 4
		} else if measured > h.seedSec*4 {
			measured = h.seedSec * 4
		}
		h.intervalSec = intervalAlpha*measured + (1-intervalAlpha)*h.intervalSec
	}
	h.previous = h.latest
	h.latest = &result
	h.latestAt = at
}

// Latest returns the most recent result unmodified.
func (h *History) Latest() (types.InferenceResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return types.InferenceResult{}, false
	}
	return *h.latest, true
}

// Interval returns the current inter-result interval estimate, rounded to
// the nanosecond. The blend in Interpolated uses this same rounded value as
// its denominator, so a query exactly one Interval after arrival computes
// t=1 instead of landing fractionally short of the window end.
func (h *History) Interval() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.intervalLocked()
}

func (h *History) intervalLocked() time.Duration {
	return time.Duration(math.Round(h.intervalSec * float64(time.Second)))
}

// Interpolated blends the previous and latest results by the normalized
// elapsed time since the latest arrived, clamped to [0,1]. Position fields
// are blended componentwise; names, visibility and other non-numeric fields
// come from the latest result. With no previous result, or once the blend
// window has elapsed, the latest result is returned unmodified.
func (h *History) Interpolated(now time.Time) (types.InferenceResult, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.latest == nil {
		return types.InferenceResult{}, false
	}
	t := float64(now.Sub(h.latestAt)) / float64(h.intervalLocked())
	if t < 0 {
		t = 0
	}
	if t >= 1 || h.previous == nil {
		return *h.latest, true
	}

	out := *h.latest
	out.Body = blendLandmarks(h.previous.Body, h.latest.Body, t)
	out.Hands = types.HandLandmarks{
		Left:  blendLandmarks(h.previous.Hands.Left, h.latest.Hands.Left, t),
		Right: blendLandmarks(h.previous.Hands.Right, h.latest.Hands.Right, t),
	}
	out.Coords = blendCoords(h.previous.Coords, h.latest.Coords, t)
	return out, true
}

func blendLandmarks(previous, latest []types.Landmark, t float64) []types.Landmark {
	if len(previous) != len(latest) {
		return latest
	}
	out := make([]types.Landmark, len(latest))
	for i, lm := range latest {
		out[i] = lm
		if previous[i].Name != lm.Name {
			continue
		}
		out[i].X = lerp(previous[i].X, lm.X, t)
		out[i].Y = lerp(previous[i].Y, lm.Y, t)
		out[i].Z = lerp(previous[i].Z, lm.Z, t)
	}
	return out
}

func blendCoords(previous, latest map[string]types.Vec3, t float64) map[string]types.Vec3 {
	if len(latest) == 0 {
		return latest
	}
	out := make(map[string]types.Vec3, len(latest))
	for name, v := range latest {
		if p, ok := previous[name]; ok {
			out[name] = types.Vec3{
				X: lerp(p.X, v.X, t),
				Y: lerp(p.Y, v.Y, t),
				Z: lerp(p.Z, v.Z, t),
			}
		} else {
			out[name] = v
		}
	}
	return out
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
