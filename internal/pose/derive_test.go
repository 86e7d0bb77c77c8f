package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedance-go/internal/types"
)

func fullBody(points map[int]types.Point) []types.Point {
	body := make([]types.Point, bodyLandmarkCount)
	for idx, p := range points {
		body[idx] = p
	}
	return body
}

func TestBodyLandmarks(t *testing.T) {
	t.Parallel()

	t.Run("rescales to original dimensions", func(t *testing.T) {
		t.Parallel()
		body := fullBody(map[int]types.Point{
			0: {X: 0.5, Y: 0.25, Visibility: 0.9}, // nose
		})
		landmarks := BodyLandmarks(body, 640, 480)
		require.Len(t, landmarks, 17)
		assert.Equal(t, "nose", landmarks[0].Name)
		assert.Equal(t, 320.0, landmarks[0].X)
		assert.Equal(t, 120.0, landmarks[0].Y)
		assert.Equal(t, 90.0, landmarks[0].Confidence)
		assert.True(t, landmarks[0].Visible)
	})

	t.Run("low visibility is reported but not visible", func(t *testing.T) {
		t.Parallel()
		body := fullBody(map[int]types.Point{0: {X: 0.1, Y: 0.1, Visibility: 0.2}})
		landmarks := BodyLandmarks(body, 100, 100)
		require.Len(t, landmarks, 17)
		assert.False(t, landmarks[0].Visible)
		assert.Equal(t, 20.0, landmarks[0].Confidence)
	})

	t.Run("short landmark list yields empty result", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, BodyLandmarks(make([]types.Point, 10), 100, 100))
	})
}

func TestAngles(t *testing.T) {
	t.Parallel()

	t.Run("right angle at left elbow", func(t *testing.T) {
		t.Parallel()
		// Shoulder above the elbow, wrist out to the side: 90 degrees.
		body := fullBody(map[int]types.Point{
			11: {X: 0, Y: 1, Z: 0}, // left_shoulder
			13: {X: 0, Y: 0, Z: 0}, // left_elbow (vertex)
			15: {X: 1, Y: 0, Z: 0}, // left_wrist
		})
		angles := Angles(body)
		assert.InDelta(t, 90.0, angles["left_elbow"], 0.05)
	})

	t.Run("straight limb is 180 degrees", func(t *testing.T) {
		t.Parallel()
		body := fullBody(map[int]types.Point{
			23: {X: 0, Y: 2, Z: 0}, // left_hip
			25: {X: 0, Y: 1, Z: 0}, // left_knee (vertex)
			27: {X: 0, Y: 0, Z: 0}, // left_ankle
		})
		angles := Angles(body)
		assert.InDelta(t, 180.0, angles["left_knee"], 0.05)
	})

	t.Run("degenerate joint is omitted", func(t *testing.T) {
		t.Parallel()
		// All three points coincide: zero-length vectors, no angle.
		angles := Angles(make([]types.Point, bodyLandmarkCount))
		_, ok := angles["left_elbow"]
		assert.False(t, ok)
	})
}

func TestCoordinates(t *testing.T) {
	t.Parallel()
	body := fullBody(map[int]types.Point{
		15: {X: 0.12345, Y: -0.5, Z: 1.9999}, // left_wrist
	})
	coords := Coordinates(body)
	require.Contains(t, coords, "left_wrist")
	assert.Equal(t, types.Vec3{X: 0.123, Y: -0.5, Z: 2}, coords["left_wrist"])
	assert.Len(t, coords, 12)
}

func TestHandLandmarksFrom(t *testing.T) {
	t.Parallel()

	points := make([]types.Point, len(HandLandmarkNames))
	for i := range points {
		points[i] = types.Point{X: 0.5, Y: 0.5, Z: -0.01}
	}

	t.Run("hands grouped by side", func(t *testing.T) {
		t.Parallel()
		hands := HandLandmarksFrom([]types.Hand{
			{Side: "left", Points: points},
			{Side: "right", Points: points},
		}, 200, 100)
		require.Len(t, hands.Left, 21)
		require.Len(t, hands.Right, 21)
		assert.Equal(t, "wrist", hands.Left[0].Name)
		assert.Equal(t, 100.0, hands.Left[0].X)
		assert.Equal(t, 50.0, hands.Left[0].Y)
		assert.Equal(t, 0.5, hands.Left[0].NormalizedX)
	})

	t.Run("malformed hand is skipped", func(t *testing.T) {
		t.Parallel()
		hands := HandLandmarksFrom([]types.Hand{
			{Side: "left", Points: points[:5]},
		}, 200, 100)
		assert.Empty(t, hands.Left)
		assert.Empty(t, hands.Right)
	})
}
