// Package buffer implements the single-slot latest-wins frame buffer that
// decouples the network-ingress path from the inference worker. The slot
// holds at most one pending frame; a put while occupied replaces the
// contents and counts the replaced frame as dropped. This is how a 60 Hz
// producer coexists with a ~20-30 Hz consumer without queue growth: excess
// frames are deliberately discarded, never queued.
package buffer

import (
	"sync"

	"livedance-go/internal/types"
)

// Buffer is a single-slot mailbox shared by exactly two roles: the ingest
// handler (Put) and the inference worker (Take). Both operations are
// non-blocking and linearizable under one mutex.
type Buffer struct {
	mu      sync.Mutex
	frame   *types.Frame
	dropped uint64
}

func New() *Buffer {
	return &Buffer{}
}

// Put stores frame, replacing any unconsumed frame. It reports whether a
// pending frame was replaced. Put never blocks.
func (b *Buffer) Put(frame *types.Frame) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	replaced := b.frame != nil
	if replaced {
		b.dropped++
	}
	b.frame = frame
	return replaced
}

// Take atomically returns the stored frame and clears the slot. The second
// return value is false when the slot is empty. Take never blocks; callers
// poll with a short sleep when empty.
func (b *Buffer) Take() (*types.Frame, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return nil, false
	}
	frame := b.frame
	b.frame = nil
	return frame, true
}

// Dropped returns the lifetime count of frames overwritten before they
// could be taken.
func (b *Buffer) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Clear discards any pending frame without counting it as dropped. Used on
// connection teardown.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frame = nil
}
