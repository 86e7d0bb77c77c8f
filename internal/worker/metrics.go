package worker

import "sync/atomic"

// Metrics counts worker activity across all sessions. Snapshotted into the
// /status endpoint.
type Metrics struct {
	FramesReceived  atomic.Uint64
	FramesProcessed atomic.Uint64
	EmptyResults    atomic.Uint64
	DecodeErrors    atomic.Uint64
	DetectorErrors  atomic.Uint64
	ResultsDropped  atomic.Uint64
	InferCount      atomic.Uint64
	InferNanos      atomic.Uint64
}

func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"frames_received_total":  m.FramesReceived.Load(),
		"frames_processed_total": m.FramesProcessed.Load(),
		"empty_results_total":    m.EmptyResults.Load(),
		"decode_errors_total":    m.DecodeErrors.Load(),
		"detector_errors_total":  m.DetectorErrors.Load(),
		"results_dropped_total":  m.ResultsDropped.Load(),
		"infer_total":            m.InferCount.Load(),
		"infer_nanos_total":      m.InferNanos.Load(),
	}
}
