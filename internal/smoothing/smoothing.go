// Package smoothing converts noisy per-frame detections into stable output
// with a per-field exponential moving average. Fields are keyed by landmark
// or joint name and smoothed independently, so one joint's absence in a
// frame never corrupts another joint's state.
package smoothing

import "fmt"

// Smoother holds per-field EMA state for one connection's session. State is
// created lazily on first observation of each field and lives until the
// session ends. Not safe for concurrent use; the inference worker is the
// only caller.
type Smoother struct {
	alpha float64
	state map[string][]float64
}

// New returns a smoother with factor alpha in (0,1]. Higher alpha favors
// responsiveness, lower alpha favors stability.
func New(alpha float64) (*Smoother, error) {
	if alpha <= 0 || alpha > 1 {
		return nil, fmt.Errorf("smoothing factor %v outside (0,1]", alpha)
	}
	return &Smoother{alpha: alpha, state: make(map[string][]float64)}, nil
}

// Smooth returns the smoothed value for field. On first observation the raw
// value is returned unchanged; thereafter each component is
// alpha*raw + (1-alpha)*previous. A raw value whose dimensionality differs
// from the stored state resets that field's state.
func (s *Smoother) Smooth(field string, raw []float64) []float64 {
	prev, ok := s.state[field]
	if !ok || len(prev) != len(raw) {
		stored := make([]float64, len(raw))
		copy(stored, raw)
		s.state[field] = stored
		return raw
	}
	out := make([]float64, len(raw))
	for i, v := range raw {
		out[i] = s.alpha*v + (1-s.alpha)*prev[i]
	}
	copy(prev, out)
	return out
}

// Smooth1 smooths a scalar field.
func (s *Smoother) Smooth1(field string, raw float64) float64 {
	return s.Smooth(field, []float64{raw})[0]
}

// Reset drops all accumulated state.
func (s *Smoother) Reset() {
	s.state = make(map[string][]float64)
}
