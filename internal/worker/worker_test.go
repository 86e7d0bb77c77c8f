package worker

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"livedance-go/internal/buffer"
	"livedance-go/internal/detector"
	"livedance-go/internal/smoothing"
	"livedance-go/internal/types"
)

func testJPEG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 80, 60)), nil))
	return buf.Bytes()
}

func newTestWorker(t *testing.T, det detector.Detector) (*Worker, *buffer.Buffer) {
	t.Helper()
	smoother, err := smoothing.New(1) // alpha 1: raw passthrough keeps expectations exact
	require.NoError(t, err)
	buf := buffer.New()
	w := New(Config{PollInterval: time.Millisecond, DownscaleShortSide: 32, MaxHands: 2}, buf, det, smoother, &Metrics{})
	return w, buf
}

// failingDetector errors a fixed number of times, then delegates to the
// synthetic detector.
type failingDetector struct {
	failures int
	inner    detector.Detector
}

func (d *failingDetector) Detect(ctx context.Context, img *image.RGBA, ts int64, opts detector.Options) (*types.Detection, error) {
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("model exploded")
	}
	return d.inner.Detect(ctx, img, ts, opts)
}

func (d *failingDetector) Close() error { return nil }

func awaitResult(t *testing.T, w *Worker) types.InferenceResult {
	t.Helper()
	select {
	case result := <-w.Results():
		return result
	case <-time.After(2 * time.Second):
		t.Fatal("no result emitted")
		return types.InferenceResult{}
	}
}

func TestWorkerProcessesFrame(t *testing.T) {
	t.Parallel()

	w, buf := newTestWorker(t, detector.NewSynthetic())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	buf.Put(&types.Frame{Image: testJPEG(t), Sequence: 41, Mode: types.Mode3D})
	result := awaitResult(t, w)

	assert.Equal(t, uint64(41), result.Sequence)
	require.Len(t, result.Body, 17)
	assert.Equal(t, "nose", result.Body[0].Name)
	assert.NotEmpty(t, result.Angles, "3d mode derives joint angles")
	assert.Len(t, result.Coords, 12)
	assert.Len(t, result.Hands.Left, 21)
	assert.Contains(t, result.Timings, "image_decode")
	assert.Contains(t, result.Timings, "inference")
	assert.Contains(t, result.Timings, "total_backend")
	assert.Contains(t, result.Timings, "3d_calculation")
}

func TestWorker2DModeSkipsDerivedData(t *testing.T) {
	t.Parallel()

	w, buf := newTestWorker(t, detector.NewSynthetic())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	buf.Put(&types.Frame{Image: testJPEG(t), Sequence: 1})
	result := awaitResult(t, w)
	assert.Empty(t, result.Angles)
	assert.Empty(t, result.Coords)
	assert.Len(t, result.Body, 17)
}

func TestWorkerSurvivesFailures(t *testing.T) {
	t.Parallel()

	t.Run("decode failure yields empty result and loop continues", func(t *testing.T) {
		t.Parallel()
		w, buf := newTestWorker(t, detector.NewSynthetic())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		buf.Put(&types.Frame{Image: []byte("not an image"), Sequence: 7})
		result := awaitResult(t, w)
		assert.Equal(t, uint64(7), result.Sequence)
		assert.Empty(t, result.Body)

		buf.Put(&types.Frame{Image: testJPEG(t), Sequence: 8})
		next := awaitResult(t, w)
		assert.Equal(t, uint64(8), next.Sequence)
		assert.Len(t, next.Body, 17)
	})

	t.Run("detector failure yields empty result without restart", func(t *testing.T) {
		t.Parallel()
		det := &failingDetector{failures: 1, inner: detector.NewSynthetic()}
		w, buf := newTestWorker(t, det)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		buf.Put(&types.Frame{Image: testJPEG(t), Sequence: 1})
		first := awaitResult(t, w)
		assert.Empty(t, first.Body)
		assert.Equal(t, uint64(1), w.metrics.DetectorErrors.Load())

		buf.Put(&types.Frame{Image: testJPEG(t), Sequence: 2})
		second := awaitResult(t, w)
		assert.Equal(t, uint64(2), second.Sequence)
		assert.Len(t, second.Body, 17)
	})
}

// handsOnlyDetector reports hands without any body landmarks, as happens
// when the camera is close on the hands.
type handsOnlyDetector struct{}

func (handsOnlyDetector) Detect(_ context.Context, _ *image.RGBA, _ int64, _ detector.Options) (*types.Detection, error) {
	points := make([]types.Point, 21)
	for i := range points {
		points[i] = types.Point{X: 0.4, Y: 0.6, Z: -0.02}
	}
	return &types.Detection{
		Hands: []types.Hand{
			{Side: "left", Points: points},
			{Side: "right", Points: points},
		},
	}, nil
}

func (handsOnlyDetector) Close() error { return nil }

// nothingDetector never sees a subject.
type nothingDetector struct{}

func (nothingDetector) Detect(_ context.Context, _ *image.RGBA, _ int64, _ detector.Options) (*types.Detection, error) {
	return &types.Detection{}, nil
}

func (nothingDetector) Close() error { return nil }

func TestWorkerKeepsHandsWithoutBody(t *testing.T) {
	t.Parallel()

	w, buf := newTestWorker(t, handsOnlyDetector{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	buf.Put(&types.Frame{Image: testJPEG(t), Sequence: 5})
	result := awaitResult(t, w)

	assert.Equal(t, uint64(5), result.Sequence)
	assert.Empty(t, result.Body)
	require.Len(t, result.Hands.Left, 21)
	require.Len(t, result.Hands.Right, 21)
	assert.Equal(t, "wrist", result.Hands.Left[0].Name)
	assert.Zero(t, w.metrics.EmptyResults.Load(), "a hands-only frame is a partial result, not an empty one")
}

func TestWorkerCountsTrulyEmptyDetections(t *testing.T) {
	t.Parallel()

	w, buf := newTestWorker(t, nothingDetector{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	buf.Put(&types.Frame{Image: testJPEG(t), Sequence: 6})
	result := awaitResult(t, w)

	assert.Empty(t, result.Body)
	assert.Empty(t, result.Hands.Left)
	assert.Empty(t, result.Hands.Right)
	assert.Equal(t, uint64(1), w.metrics.EmptyResults.Load())
}

func TestEmitLatestWins(t *testing.T) {
	t.Parallel()

	w, _ := newTestWorker(t, detector.NewSynthetic())
	w.emit(types.InferenceResult{Sequence: 1})
	w.emit(types.InferenceResult{Sequence: 2})
	w.emit(types.InferenceResult{Sequence: 3})

	result := <-w.Results()
	assert.Equal(t, uint64(3), result.Sequence)
	assert.Equal(t, uint64(2), w.metrics.ResultsDropped.Load())
	select {
	case extra := <-w.Results():
		t.Fatalf("unexpected extra result %d", extra.Sequence)
	default:
	}
}
