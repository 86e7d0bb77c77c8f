package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"

	"livedance-go/internal/config"
	"livedance-go/internal/detector"
	"livedance-go/internal/types"
)

func testConfig() config.AppConfig {
	return config.AppConfig{
		Port:               9999,
		Synthetic:          true,
		Alpha:              0.6,
		DownscaleShortSide: 32,
		ModelComplexity:    1,
		MaxHands:           2,
		PollInterval:       time.Millisecond,
		LogEvery:           1,
	}
}

func TestHandleConfig(t *testing.T) {
	srv := newServer(testConfig(), nil, nil)

	req := httptest.NewRequest("GET", "/config", nil)
	rec := httptest.NewRecorder()
	srv.handleConfig(rec, req)

	if rec.Code != 200 {
		t.Fatalf("unexpected status: %d", rec.Code)
	}

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["port"].(float64) != 9999 {
		t.Fatalf("unexpected port: %v", payload["port"])
	}
	if payload["smoothing_alpha"].(float64) != 0.6 {
		t.Fatalf("unexpected alpha: %v", payload["smoothing_alpha"])
	}
}

func TestHandleStatusEmpty(t *testing.T) {
	srv := newServer(testConfig(), nil, nil)

	rec := httptest.NewRecorder()
	srv.handleStatus(rec, httptest.NewRequest("GET", "/status", nil))

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload["sessions_active"].(float64) != 0 {
		t.Fatalf("unexpected session count: %v", payload["sessions_active"])
	}
	if _, ok := payload["metrics"].(map[string]any); !ok {
		t.Fatalf("missing metrics block: %v", payload)
	}
}

func dialTestServer(t *testing.T) (*websocket.Conn, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	srv := newServer(testConfig(), func() (detector.Detector, error) {
		return detector.NewSynthetic(), nil
	}, nil)
	httpSrv := httptest.NewServer(srv.routes(ctx))

	url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		cancel()
		httpSrv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
		cancel()
		httpSrv.Close()
	}
}

func encodeFrame(t *testing.T, seq uint64, mode string) []byte {
	t.Helper()
	var img bytes.Buffer
	if err := jpeg.Encode(&img, image.NewRGBA(image.Rect(0, 0, 64, 48)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	payload, err := cbor.Marshal(types.FrameMessage{
		Type:      types.MessageFrame,
		Image:     img.Bytes(),
		Sequence:  seq,
		Timestamp: float64(time.Now().UnixMilli()),
		Mode:      mode,
	})
	if err != nil {
		t.Fatalf("encode frame message: %v", err)
	}
	return payload
}

func TestFrameRoundTrip(t *testing.T) {
	conn, shutdown := dialTestServer(t)
	defer shutdown()

	if err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(t, 17, types.Mode3D)); err != nil {
		t.Fatalf("send frame: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read result: %v", err)
	}

	var msg types.ResultMessage
	if err := cbor.Unmarshal(payload, &msg); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if msg.Type != types.MessageResult {
		t.Fatalf("unexpected message type %q", msg.Type)
	}
	if msg.Sequence != 17 {
		t.Fatalf("result sequence %d does not match sent frame", msg.Sequence)
	}
	if len(msg.Body) != 17 {
		t.Fatalf("expected 17 body landmarks, got %d", len(msg.Body))
	}
	if len(msg.Angles) == 0 {
		t.Fatalf("expected derived angles in 3d mode")
	}
}

func TestResultSequencesMatchSentFrames(t *testing.T) {
	conn, shutdown := dialTestServer(t)
	defer shutdown()

	sent := map[uint64]bool{}
	for seq := uint64(1); seq <= 5; seq++ {
		sent[seq] = true
		if err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(t, seq, "")); err != nil {
			t.Fatalf("send frame %d: %v", seq, err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	// Not every frame yields a result (latest wins), but every result must
	// match a frame this connection actually sent.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	received := 0
	for received < 1 {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read result: %v", err)
		}
		var msg types.ResultMessage
		if err := cbor.Unmarshal(payload, &msg); err != nil {
			t.Fatalf("decode result: %v", err)
		}
		if !sent[msg.Sequence] {
			t.Fatalf("result carries fabricated sequence %d", msg.Sequence)
		}
		received++
	}
}
