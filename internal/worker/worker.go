// Package worker runs the inference loop: drain the frame slot, invoke the
// external detector, derive angles and coordinates, smooth, emit. The loop
// is the single owner of its detector instance and of the monotonic
// timestamp generator, and it is the only place where blocking work happens;
// the network-ingress path never waits on it.
package worker

import (
	"context"
	"log"
	"math"
	"time"

	"livedance-go/internal/buffer"
	"livedance-go/internal/detector"
	"livedance-go/internal/imaging"
	"livedance-go/internal/monotonic"
	"livedance-go/internal/pose"
	"livedance-go/internal/smoothing"
	"livedance-go/internal/types"
)

// Config tunes one worker.
type Config struct {
	PollInterval       time.Duration
	DownscaleShortSide int
	ModelComplexity    int
	MaxHands           int
	LogEvery           int
}

// Worker owns one connection's inference state. Results are published on a
// single-slot channel: if the emitter has not drained the previous result it
// is discarded, superseded by the newer one.
type Worker struct {
	cfg      Config
	buf      *buffer.Buffer
	det      detector.Detector
	gen      *monotonic.Generator
	smoother *smoothing.Smoother
	results  chan types.InferenceResult
	metrics  *Metrics
	errCount int
}

func New(cfg Config, buf *buffer.Buffer, det detector.Detector, smoother *smoothing.Smoother, metrics *Metrics) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Millisecond
	}
	if cfg.LogEvery < 1 {
		cfg.LogEvery = 1
	}
	return &Worker{
		cfg:      cfg,
		buf:      buf,
		det:      det,
		gen:      monotonic.NewGenerator(),
		smoother: smoother,
		results:  make(chan types.InferenceResult, 1),
		metrics:  metrics,
	}
}

// Results is drained by the result emitter.
func (w *Worker) Results() <-chan types.InferenceResult {
	return w.results
}

// Run loops until ctx is cancelled. A failed inference pass produces an
// empty result and the loop proceeds; nothing short of shutdown stops it.
func (w *Worker) Run(ctx context.Context) {
	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()
	for {
		if ctx.Err() != nil {
			return
		}
		frame, ok := w.buf.Take()
		if !ok {
			timer.Reset(w.cfg.PollInterval)
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}
			continue
		}
		w.emit(w.process(ctx, frame))
	}
}

// process runs one inference pass. It never returns an error: decode
// failures, detector failures and detection misses all become an explicit
// empty result.
func (w *Worker) process(ctx context.Context, frame *types.Frame) types.InferenceResult {
	start := time.Now()
	timings := map[string]float64{}
	fail := func(stage string, err error) types.InferenceResult {
		w.logThrottled("%s failed for seq %d: %v", stage, frame.Sequence, err)
		timings["total_backend"] = msSince(start)
		return types.EmptyResult(frame.Sequence, frame.Mode, timings)
	}

	decodeStart := time.Now()
	img, err := imaging.Decode(frame.Image)
	if err != nil {
		w.metrics.DecodeErrors.Add(1)
		return fail("image decode", err)
	}
	scaled, orig := imaging.Downscale(img, w.cfg.DownscaleShortSide)
	timings["image_decode"] = msSince(decodeStart)

	wantWorld := frame.Mode == types.Mode3D
	opts := detector.Options{
		WantWorld:       wantWorld,
		ModelComplexity: w.cfg.ModelComplexity,
		MaxHands:        w.cfg.MaxHands,
	}

	inferStart := time.Now()
	detection, err := w.det.Detect(ctx, scaled, w.gen.Next(), opts)
	w.metrics.InferCount.Add(1)
	w.metrics.InferNanos.Add(uint64(time.Since(inferStart).Nanoseconds()))
	if err != nil {
		w.metrics.DetectorErrors.Add(1)
		return fail("detector", err)
	}
	timings["inference"] = msSince(inferStart)
	for stage, ms := range detection.Timings {
		timings[stage] = ms
	}

	// A frame can carry hands without a body (close-up shots) or the other
	// way around; only a detection with neither is the empty steady-state.
	if len(detection.Body) == 0 && len(detection.Hands) == 0 {
		w.metrics.EmptyResults.Add(1)
		timings["total_backend"] = msSince(start)
		return types.EmptyResult(frame.Sequence, frame.Mode, timings)
	}

	body := []types.Landmark{}
	if len(detection.Body) > 0 {
		body = w.smoothLandmarks("body", pose.BodyLandmarks(detection.Body, orig.Width, orig.Height))
	}
	hands := pose.HandLandmarksFrom(detection.Hands, orig.Width, orig.Height)
	hands.Left = w.smoothLandmarks("hand.left", hands.Left)
	hands.Right = w.smoothLandmarks("hand.right", hands.Right)

	deriveStart := time.Now()
	angles := map[string]float64{}
	coords := map[string]types.Vec3{}
	if wantWorld && len(detection.World) > 0 {
		for name, angle := range pose.Angles(detection.World) {
			angles[name] = round1(w.smoother.Smooth1("angle."+name, angle))
		}
		for name, c := range pose.Coordinates(detection.World) {
			v := w.smoother.Smooth("coord."+name, []float64{c.X, c.Y, c.Z})
			coords[name] = types.Vec3{X: round3(v[0]), Y: round3(v[1]), Z: round3(v[2])}
		}
		timings["3d_calculation"] = msSince(deriveStart)
	}

	w.metrics.FramesProcessed.Add(1)
	timings["total_backend"] = msSince(start)
	return types.InferenceResult{
		Body:     body,
		Hands:    hands,
		Angles:   angles,
		Coords:   coords,
		Timings:  timings,
		Sequence: frame.Sequence,
		Mode:     frame.Mode,
	}
}

// smoothLandmarks runs positional fields through the per-field EMA. Names,
// confidence and visibility stay raw so fresh detections are never hidden by
// filter lag.
func (w *Worker) smoothLandmarks(prefix string, landmarks []types.Landmark) []types.Landmark {
	for i := range landmarks {
		lm := &landmarks[i]
		v := w.smoother.Smooth(prefix+"."+lm.Name, []float64{lm.X, lm.Y, lm.Z})
		lm.X = round1(v[0])
		lm.Y = round1(v[1])
		lm.Z = round3(v[2])
	}
	return landmarks
}

// emit publishes latest-wins: an unconsumed previous result is discarded.
func (w *Worker) emit(result types.InferenceResult) {
	select {
	case w.results <- result:
		return
	default:
	}
	select {
	case <-w.results:
		w.metrics.ResultsDropped.Add(1)
	default:
	}
	select {
	case w.results <- result:
	default:
	}
}

func (w *Worker) logThrottled(format string, args ...any) {
	w.errCount++
	if w.errCount%w.cfg.LogEvery == 0 {
		log.Printf(format, args...)
	}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Nanoseconds()) / 1e6
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
