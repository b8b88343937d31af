// Package serve implements spec §4.N's serve mode: mirroring live playback
// to browser viewers over WebSocket. The broadcast pattern (a hub fanning
// emitted bytes out to registered connections, each with its own bounded,
// drop-oldest outbound queue so one slow viewer never backpressures the
// playback loop) is the same non-blocking-send discipline internal/egg's
// PTY session streaming uses, adapted from a single gRPC stream per client
// to a WebSocket fan-out hub.
package serve

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ehrlich-b/ttyplay/internal/vtsnap"
)

// Viewer is one connected browser's outbound queue.
type Viewer struct {
	ID   uuid.UUID
	send chan []byte
}

// Hub fans out the bytes a playback session emits to every connected
// viewer, and hands new viewers a terminal snapshot so they don't have to
// wait for a clear-screen to see anything.
type Hub struct {
	mu      sync.Mutex
	viewers map[uuid.UUID]*Viewer
	emu     *vtsnap.Emulator
	log     *slog.Logger
}

// NewHub creates a Hub backed by a headless terminal emulator sized cols x
// rows, used to produce catch-up snapshots for newly connecting viewers.
func NewHub(cols, rows int, log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		viewers: make(map[uuid.UUID]*Viewer),
		emu:     vtsnap.New(cols, rows),
		log:     log,
	}
}

// Feed is called by the playback loop for every emitted payload. It updates
// the snapshot emulator and broadcasts to every connected viewer.
func (h *Hub) Feed(payload []byte) {
	h.emu.Feed(payload)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, v := range h.viewers {
		select {
		case v.send <- payload:
		default:
			// Slow viewer: discard its oldest queued frame to make room for
			// this one rather than block playback.
			select {
			case <-v.send:
			default:
			}
			select {
			case v.send <- payload:
			default:
			}
			h.log.Warn("serve: dropping oldest frame for slow viewer", "viewer", v.ID)
		}
	}
}

// Join registers a new viewer and returns it along with the current
// snapshot it should render before live frames start arriving.
func (h *Hub) Join() (*Viewer, []byte) {
	v := &Viewer{ID: uuid.New(), send: make(chan []byte, 256)}
	snapshot := h.emu.Snapshot()

	h.mu.Lock()
	h.viewers[v.ID] = v
	h.mu.Unlock()

	return v, snapshot
}

// Leave unregisters a viewer and closes its send channel.
func (h *Hub) Leave(v *Viewer) {
	h.mu.Lock()
	delete(h.viewers, v.ID)
	h.mu.Unlock()
	close(v.send)
}

// Resize propagates a new terminal geometry to the snapshot emulator.
func (h *Hub) Resize(cols, rows int) {
	h.emu.Resize(cols, rows)
}

// ViewerCount reports how many viewers are currently connected.
func (h *Hub) ViewerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.viewers)
}

// Close releases the snapshot emulator.
func (h *Hub) Close() error {
	return h.emu.Close()
}
