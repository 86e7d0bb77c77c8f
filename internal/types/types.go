package types

import "time"

// Frame is one client-submitted unit of work. It is owned exclusively by the
// buffer slot between Put and Take and discarded after a single inference pass.
type Frame struct {
	Image      []byte
	Sequence   uint64
	SentAtMs   float64
	Mode       string
	ReceivedAt time.Time
}

// Mode flags recognized on inbound frames.
const (
	Mode2D = ""
	Mode3D = "3d"
)

// Point is a raw detector landmark in normalized image coordinates
// (x, y in [0,1]) or metric world coordinates, depending on context.
type Point struct {
	X          float64
	Y          float64
	Z          float64
	Visibility float64
}

// Hand is one detected hand with its handedness label ("left" or "right").
type Hand struct {
	Side   string
	Points []Point
}

// Detection is the raw output of one detector pass. Empty slices mean
// "nothing detected", which is a normal steady-state condition.
type Detection struct {
	Body    []Point
	World   []Point
	Hands   []Hand
	Timings map[string]float64
}

// Landmark is a single named keypoint in pixel coordinates of the
// original (pre-downscale) image.
type Landmark struct {
	Name        string  `cbor:"name"`
	X           float64 `cbor:"x"`
	Y           float64 `cbor:"y"`
	Z           float64 `cbor:"z,omitempty"`
	NormalizedX float64 `cbor:"normalized_x,omitempty"`
	NormalizedY float64 `cbor:"normalized_y,omitempty"`
	Confidence  float64 `cbor:"confidence"`
	Visible     bool    `cbor:"visible"`
}

// HandLandmarks groups hand keypoints by side.
type HandLandmarks struct {
	Left  []Landmark `cbor:"left"`
	Right []Landmark `cbor:"right"`
}

// Vec3 is a derived 3D coordinate in detector world space.
type Vec3 struct {
	X float64 `cbor:"x"`
	Y float64 `cbor:"y"`
	Z float64 `cbor:"z"`
}

// InferenceResult is the sequence-tagged bundle produced by one completed
// inference pass. It is transmitted immediately and not retained server-side.
type InferenceResult struct {
	Body     []Landmark         `cbor:"body"`
	Hands    HandLandmarks      `cbor:"hands"`
	Angles   map[string]float64 `cbor:"pose_3d_angles"`
	Coords   map[string]Vec3    `cbor:"pose_3d_coords"`
	Timings  map[string]float64 `cbor:"timings"`
	Sequence uint64             `cbor:"sequence"`
	Mode     string             `cbor:"mode,omitempty"`
}

// EmptyResult builds the explicit "nothing detected this frame" result for
// a frame. Absence of landmarks is not an error condition.
func EmptyResult(sequence uint64, mode string, timings map[string]float64) InferenceResult {
	if timings == nil {
		timings = map[string]float64{}
	}
	return InferenceResult{
		Body:     []Landmark{},
		Hands:    HandLandmarks{Left: []Landmark{}, Right: []Landmark{}},
		Angles:   map[string]float64{},
		Coords:   map[string]Vec3{},
		Timings:  timings,
		Sequence: sequence,
		Mode:     mode,
	}
}
