// Package client is the sending side of the live stream: it pushes frames to
// the server over a websocket, pairs returned results with their originating
// sequence numbers for latency accounting, and exposes an interpolated view
// of the result stream for high-rate rendering.
package client

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"

	"livedance-go/internal/types"
)

// inflightTTL bounds how long an unanswered frame's send time is retained.
// Most frames never get a result (latest wins), so stale entries are pruned
// on every send.
const inflightTTL = 10 * time.Second

type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	history *History

	mu       sync.Mutex
	seq      uint64
	inflight map[uint64]time.Time
	lastRTT  time.Duration
	hasRTT   bool

	done chan struct{}
}

// Dial connects to a server's /ws endpoint. expectedInterval seeds the
// interpolator's inter-result interval estimate.
func Dial(ctx context.Context, url string, expectedInterval time.Duration) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{
		conn:     conn,
		history:  NewHistory(expectedInterval),
		inflight: make(map[uint64]time.Time),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// SendFrame submits one frame and returns its assigned sequence number.
func (c *Client) SendFrame(image []byte, mode string) (uint64, error) {
	now := time.Now()

	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.inflight[seq] = now
	for s, at := range c.inflight {
		if now.Sub(at) > inflightTTL {
			delete(c.inflight, s)
		}
	}
	c.mu.Unlock()

	payload, err := cbor.Marshal(types.FrameMessage{
		Type:      types.MessageFrame,
		Image:     image,
		Sequence:  seq,
		Timestamp: float64(now.UnixMilli()),
		Mode:      mode,
	})
	if err != nil {
		return 0, fmt.Errorf("encode frame %d: %w", seq, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteMessage(websocket.BinaryMessage, payload); err != nil {
		return 0, fmt.Errorf("send frame %d: %w", seq, err)
	}
	return seq, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		var msg types.ResultMessage
		if err := cbor.Unmarshal(payload, &msg); err != nil {
			continue
		}
		if msg.Type != types.MessageResult {
			continue
		}
		now := time.Now()
		c.history.Push(msg.InferenceResult, now)

		c.mu.Lock()
		if sentAt, ok := c.inflight[msg.Sequence]; ok {
			c.lastRTT = now.Sub(sentAt)
			c.hasRTT = true
			delete(c.inflight, msg.Sequence)
		}
		c.mu.Unlock()
	}
}

// History exposes the result history for rendering.
func (c *Client) History() *History {
	return c.history
}

// LastRTT returns the most recently measured round-trip latency.
func (c *Client) LastRTT() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastRTT, c.hasRTT
}

// Done is closed when the read loop exits (connection closed or failed).
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}
