package pose

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"livedance-go/internal/types"
)

// BodyLandmarks remaps the detector's normalized body landmarks to the
// 17-keypoint set, rescaled to the ORIGINAL image dimensions. Scaling by the
// pre-downscale size matters: normalized coordinates multiplied by the
// downscaled size would put a systematic offset on every returned point.
func BodyLandmarks(normalized []types.Point, origWidth, origHeight int) []types.Landmark {
	if len(normalized) < bodyLandmarkCount {
		return []types.Landmark{}
	}
	out := make([]types.Landmark, 0, len(movenetIndices))
	for slot, idx := range movenetIndices {
		lm := normalized[idx]
		out = append(out, types.Landmark{
			Name:       BodyKeypointNames[slot],
			X:          round1(lm.X * float64(origWidth)),
			Y:          round1(lm.Y * float64(origHeight)),
			Confidence: math.Round(lm.Visibility * 100),
			Visible:    lm.Visibility > visibleThreshold,
		})
	}
	return out
}

// HandLandmarksFrom converts detected hands to named pixel-space landmarks
// grouped by side. Hands with an unknown side or landmark count are skipped.
func HandLandmarksFrom(hands []types.Hand, origWidth, origHeight int) types.HandLandmarks {
	out := types.HandLandmarks{Left: []types.Landmark{}, Right: []types.Landmark{}}
	for _, hand := range hands {
		if len(hand.Points) != len(HandLandmarkNames) {
			continue
		}
		landmarks := make([]types.Landmark, 0, len(hand.Points))
		for i, p := range hand.Points {
			landmarks = append(landmarks, types.Landmark{
				Name:        HandLandmarkNames[i],
				X:           round1(p.X * float64(origWidth)),
				Y:           round1(p.Y * float64(origHeight)),
				Z:           round3(p.Z),
				NormalizedX: round3(p.X),
				NormalizedY: round3(p.Y),
				Confidence:  100,
				Visible:     true,
			})
		}
		switch hand.Side {
		case "left":
			out.Left = landmarks
		case "right":
			out.Right = landmarks
		}
	}
	return out
}

// Angles derives named joint angles in degrees from world landmarks using
// the vectors from each joint vertex to its two neighbors. The cosine is
// clamped to [-1,1] before arccos to absorb numeric error.
func Angles(world []types.Point) map[string]float64 {
	angles := make(map[string]float64, len(jointTriples))
	if len(world) < bodyLandmarkCount {
		return angles
	}
	for name, triple := range jointTriples {
		p1 := vec(world[triple[0]])
		p2 := vec(world[triple[1]])
		p3 := vec(world[triple[2]])
		v1 := r3.Sub(p1, p2)
		v2 := r3.Sub(p3, p2)
		norms := r3.Norm(v1) * r3.Norm(v2)
		if norms == 0 {
			continue
		}
		cos := r3.Dot(v1, v2) / norms
		cos = math.Max(-1, math.Min(1, cos))
		angles[name] = round1(math.Acos(cos) * 180 / math.Pi)
	}
	return angles
}

// Coordinates extracts the key-joint world coordinates.
func Coordinates(world []types.Point) map[string]types.Vec3 {
	coords := make(map[string]types.Vec3, len(keyJoints))
	if len(world) < bodyLandmarkCount {
		return coords
	}
	for name, idx := range keyJoints {
		coords[name] = types.Vec3{
			X: round3(world[idx].X),
			Y: round3(world[idx].Y),
			Z: round3(world[idx].Z),
		}
	}
	return coords
}

func vec(p types.Point) r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
