package detector

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/pebbe/zmq4"

	"livedance-go/internal/types"
)

const defaultRequestTimeout = 2 * time.Second

// ZMQ talks to the detector sidecar process over a REQ socket with CBOR
// framing. One socket per instance; the owning inference worker is the sole
// caller, so no socket-level locking is needed beyond the REQ state machine.
type ZMQ struct {
	socket   *zmq4.Socket
	endpoint string
	timeout  time.Duration
	logEvery int
	errCount int
}

type detectRequest struct {
	Type            string `cbor:"type"`
	TimestampMicros int64  `cbor:"timestamp_us"`
	Width           int    `cbor:"width"`
	Height          int    `cbor:"height"`
	Pixels          []byte `cbor:"pixels"`
	WantWorld       bool   `cbor:"want_world"`
	ModelComplexity int    `cbor:"model_complexity"`
	MaxHands        int    `cbor:"max_hands"`
}

type handReply struct {
	Side   string       `cbor:"side"`
	Points [][3]float64 `cbor:"points"`
}

type detectReply struct {
	Type    string             `cbor:"type"`
	Error   string             `cbor:"error,omitempty"`
	Body    [][4]float64       `cbor:"body"`
	World   [][3]float64       `cbor:"world"`
	Hands   []handReply        `cbor:"hands"`
	Timings map[string]float64 `cbor:"timings"`
}

// NewZMQ connects a REQ socket to the sidecar at endpoint, e.g.
// "tcp://localhost:31010". logEvery throttles repeated error logging on the
// hot path; values below 1 log every error.
func NewZMQ(endpoint string, timeout time.Duration, logEvery int) (*ZMQ, error) {
	socket, err := zmq4.NewSocket(zmq4.REQ)
	if err != nil {
		return nil, err
	}
	// Relaxed+correlate lets the REQ socket survive a lost reply instead of
	// wedging the send/recv state machine.
	if err := socket.SetReqRelaxed(1); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetReqCorrelate(1); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	if err := socket.SetRcvtimeo(timeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetSndtimeo(timeout); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.SetLinger(0); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if err := socket.Connect(endpoint); err != nil {
		_ = socket.Close()
		return nil, err
	}
	if logEvery < 1 {
		logEvery = 1
	}
	return &ZMQ{socket: socket, endpoint: endpoint, timeout: timeout, logEvery: logEvery}, nil
}

func (z *ZMQ) Detect(ctx context.Context, img *image.RGBA, timestampMicros int64, opts Options) (*types.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	request, err := cbor.Marshal(detectRequest{
		Type:            "detect",
		TimestampMicros: timestampMicros,
		Width:           bounds.Dx(),
		Height:          bounds.Dy(),
		Pixels:          img.Pix,
		WantWorld:       opts.WantWorld,
		ModelComplexity: opts.ModelComplexity,
		MaxHands:        opts.MaxHands,
	})
	if err != nil {
		return nil, fmt.Errorf("encode detect request: %w", err)
	}

	if _, err := z.socket.SendBytes(request, 0); err != nil {
		z.logThrottled("detector send error: %v", err)
		return nil, fmt.Errorf("send to detector %s: %w", z.endpoint, err)
	}
	payload, err := z.socket.RecvBytes(0)
	if err != nil {
		z.logThrottled("detector recv error: %v", err)
		return nil, fmt.Errorf("recv from detector %s: %w", z.endpoint, err)
	}

	var reply detectReply
	if err := cbor.Unmarshal(payload, &reply); err != nil {
		z.logThrottled("detector reply decode error: %v", err)
		return nil, fmt.Errorf("decode detector reply: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("detector: %s", reply.Error)
	}

	detection := &types.Detection{
		Body:    make([]types.Point, 0, len(reply.Body)),
		World:   make([]types.Point, 0, len(reply.World)),
		Hands:   make([]types.Hand, 0, len(reply.Hands)),
		Timings: reply.Timings,
	}
	for _, p := range reply.Body {
		detection.Body = append(detection.Body, types.Point{X: p[0], Y: p[1], Z: p[2], Visibility: p[3]})
	}
	for _, p := range reply.World {
		detection.World = append(detection.World, types.Point{X: p[0], Y: p[1], Z: p[2]})
	}
	for _, hand := range reply.Hands {
		points := make([]types.Point, 0, len(hand.Points))
		for _, p := range hand.Points {
			points = append(points, types.Point{X: p[0], Y: p[1], Z: p[2]})
		}
		detection.Hands = append(detection.Hands, types.Hand{Side: hand.Side, Points: points})
	}
	return detection, nil
}

func (z *ZMQ) Close() error {
	return z.socket.Close()
}

func (z *ZMQ) logThrottled(format string, args ...any) {
	z.errCount++
	if z.errCount%z.logEvery == 0 {
		log.Printf(format, args...)
	}
}
