// Package server carries both faces of the transport boundary: the ingest
// handler, which deposits inbound frames into a session's single-slot buffer
// and returns immediately, and the result emitter, which pushes inference
// results back to the originating connection fire-and-forget. Each websocket
// connection gets its own session: one buffer, one detector instance, one
// inference worker, one smoother.
package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"livedance-go/internal/buffer"
	"livedance-go/internal/config"
	"livedance-go/internal/detector"
	"livedance-go/internal/record"
	"livedance-go/internal/smoothing"
	"livedance-go/internal/types"
	"livedance-go/internal/worker"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingEvery    = (pongWait * 9) / 10
	maxFrameSize = 8 << 20
)

// NewDetectorFunc builds one detector instance per session.
type NewDetectorFunc func() (detector.Detector, error)

type Server struct {
	upgrader    websocket.Upgrader
	cfg         config.AppConfig
	newDetector NewDetectorFunc
	recorder    *record.Writer
	metrics     *worker.Metrics

	mu            sync.Mutex
	sessions      map[string]*session
	droppedClosed uint64
}

type session struct {
	id      string
	conn    *websocket.Conn
	writeMu sync.Mutex
	buf     *buffer.Buffer
	started time.Time
}

func newServer(cfg config.AppConfig, newDetector NewDetectorFunc, recorder *record.Writer) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cfg:         cfg,
		newDetector: newDetector,
		recorder:    recorder,
		metrics:     &worker.Metrics{},
		sessions:    make(map[string]*session),
	}
}

func (s *Server) routes(ctx context.Context) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		s.handleWS(ctx, w, r)
	})
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/config", s.handleConfig)
	mux.HandleFunc("/status", s.handleStatus)
	return mux
}

// Run serves until ctx is cancelled. recorder may be nil.
func Run(ctx context.Context, cfg config.AppConfig, newDetector NewDetectorFunc, recorder *record.Writer) error {
	srv := newServer(cfg, newDetector, recorder)

	httpServer := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           srv.routes(ctx),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) handleWS(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	det, err := s.newDetector()
	if err != nil {
		log.Printf("detector setup failed: %v", err)
		_ = conn.Close()
		return
	}

	smoother, err := smoothing.New(s.cfg.Alpha)
	if err != nil {
		log.Printf("smoother setup failed: %v", err)
		_ = det.Close()
		_ = conn.Close()
		return
	}

	sess := &session{
		id:      uuid.NewString(),
		conn:    conn,
		buf:     buffer.New(),
		started: time.Now(),
	}
	s.addSession(sess)
	log.Printf("session %s connected from %s", sess.id, r.RemoteAddr)

	infer := worker.New(worker.Config{
		PollInterval:       s.cfg.PollInterval,
		DownscaleShortSide: s.cfg.DownscaleShortSide,
		ModelComplexity:    s.cfg.ModelComplexity,
		MaxHands:           s.cfg.MaxHands,
		LogEvery:           s.cfg.LogEvery,
	}, sess.buf, det, smoother, s.metrics)

	sessCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		infer.Run(sessCtx)
	}()
	go func() {
		defer wg.Done()
		s.emitResults(sessCtx, sess, infer.Results())
	}()
	go s.keepAlive(sessCtx, sess)

	// Ingest loop: decode routing metadata, deposit into the slot, return.
	// No inference-related work happens here.
	s.readFrames(sess)

	// Transport-level failure or clean close: tear the session down,
	// release the detector and clear the buffer.
	cancel()
	wg.Wait()
	_ = det.Close()
	sess.buf.Clear()
	s.removeSession(sess)
	log.Printf("session %s closed (dropped %d frames)", sess.id, sess.buf.Dropped())
}

func (s *Server) readFrames(sess *session) {
	for {
		messageType, payload, err := sess.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		var msg types.FrameMessage
		if err := cbor.Unmarshal(payload, &msg); err != nil {
			log.Printf("session %s: frame decode error: %v", sess.id, err)
			continue
		}
		if msg.Type != types.MessageFrame {
			continue
		}
		if s.recorder != nil {
			if err := s.recorder.Record(payload); err != nil {
				log.Printf("session %s: record write failed: %v", sess.id, err)
			}
		}
		s.metrics.FramesReceived.Add(1)
		sess.buf.Put(&types.Frame{
			Image:      msg.Image,
			Sequence:   msg.Sequence,
			SentAtMs:   msg.Timestamp,
			Mode:       msg.Mode,
			ReceivedAt: time.Now(),
		})
	}
}

// emitResults drains the worker's results and pushes them to the client.
// Delivery is fire-and-forget: a failed write drops the result and the next
// one supersedes it; only transport errors end the session.
func (s *Server) emitResults(ctx context.Context, sess *session, results <-chan types.InferenceResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case result, ok := <-results:
			if !ok {
				return
			}
			payload, err := cbor.Marshal(types.ResultMessage{Type: types.MessageResult, InferenceResult: result})
			if err != nil {
				log.Printf("session %s: result encode error: %v", sess.id, err)
				continue
			}
			if err := s.write(sess, websocket.BinaryMessage, payload); err != nil {
				_ = sess.conn.Close()
				return
			}
		}
	}
}

func (s *Server) keepAlive(ctx context.Context, sess *session) {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.write(sess, websocket.PingMessage, nil); err != nil {
				_ = sess.conn.Close()
				return
			}
		}
	}
}

func (s *Server) write(sess *session, messageType int, payload []byte) error {
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return sess.conn.WriteMessage(messageType, payload)
}

func (s *Server) addSession(sess *session) {
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
}

func (s *Server) removeSession(sess *session) {
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.droppedClosed += sess.buf.Dropped()
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	payload := map[string]any{
		"port":                 s.cfg.Port,
		"smoothing_alpha":      s.cfg.Alpha,
		"downscale_short_side": s.cfg.DownscaleShortSide,
		"model_complexity":     s.cfg.ModelComplexity,
		"max_hands":            s.cfg.MaxHands,
		"synthetic":            s.cfg.Synthetic,
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	s.mu.Lock()
	sessions := make([]map[string]any, 0, len(s.sessions))
	droppedTotal := s.droppedClosed
	for _, sess := range s.sessions {
		dropped := sess.buf.Dropped()
		droppedTotal += dropped
		sessions = append(sessions, map[string]any{
			"id":             sess.id,
			"uptime_seconds": time.Since(sess.started).Seconds(),
			"frames_dropped": dropped,
		})
	}
	s.mu.Unlock()

	metrics := s.metrics.Snapshot()
	metrics["frames_dropped_total"] = droppedTotal
	payload := map[string]any{
		"sessions_active": len(sessions),
		"sessions":        sessions,
		"metrics":         metrics,
	}
	_ = json.NewEncoder(w).Encode(payload)
}
