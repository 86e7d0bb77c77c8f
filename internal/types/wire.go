package types

// Wire message types exchanged over the websocket. All messages are CBOR
// encoded; images ride as raw byte strings.
const (
	MessageFrame  = "frame"
	MessageResult = "result"
)

// FrameMessage is the inbound wire format: one frame from a client.
// Sequence is client-assigned and strictly increasing per connection;
// Timestamp is the client's wall-clock send time in milliseconds.
type FrameMessage struct {
	Type      string  `cbor:"type"`
	Image     []byte  `cbor:"image"`
	Sequence  uint64  `cbor:"sequence"`
	Timestamp float64 `cbor:"timestamp"`
	Mode      string  `cbor:"mode,omitempty"`
}

// ResultMessage is the outbound wire format wrapping one inference result.
type ResultMessage struct {
	Type string `cbor:"type"`
	InferenceResult
}
