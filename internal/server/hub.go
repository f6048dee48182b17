package server

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"git.home.luguber.info/inful/blogkeeper/internal/logfields"
	"git.home.luguber.info/inful/blogkeeper/internal/metrics"
)

// Event is one message on the SSE stream.
type Event struct {
	Type string `json:"type"` // scan | links
	Data any    `json:"data,omitempty"`
}

// ScanEvent is the payload broadcast after every completed scan. The preview
// reload script keys off TreeHash.
type ScanEvent struct {
	ScanID   string    `json:"scan_id"`
	Trigger  string    `json:"trigger"`
	TreeHash string    `json:"tree_hash"`
	Posts    int       `json:"posts"`
	Drafts   int       `json:"drafts"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
	At       time.Time `json:"at"`
}

// LinksEvent is the payload broadcast after a link verification run.
type LinksEvent struct {
	ScanID  string    `json:"scan_id"`
	Checked int       `json:"checked"`
	Broken  int       `json:"broken"`
	At      time.Time `json:"at"`
}

// Hub manages SSE clients and fans events out to them.
type Hub struct {
	mu      sync.RWMutex
	nextID  int
	clients map[int]*hubClient
	rec     metrics.Recorder
	closed  bool
	last    []byte // last scan event, replayed to new clients
}

type hubClient struct {
	id   int
	ch   chan []byte
	done chan struct{}
}

// NewHub creates a hub. rec may be nil.
func NewHub(rec metrics.Recorder) *Hub {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	return &Hub{clients: map[int]*hubClient{}, rec: rec}
}

// ServeHTTP implements the SSE endpoint.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "event stream shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &hubClient{ch: make(chan []byte, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	count := len(h.clients)
	replay := h.last
	h.mu.Unlock()
	h.rec.SetEventClients(count)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		h.removeClient(client.id)
		return
	}
	if replay != nil {
		writeSSE(bw, replay)
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(30 * time.Second)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(client.id)
			return
		case <-client.done:
			// Hub shutdown closed us; removeClient already ran.
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				h.removeClient(client.id)
				return
			}
			bw.Flush()
			flusher.Flush()
		case msg := <-client.ch:
			writeSSE(bw, msg)
			if err := bw.Flush(); err != nil {
				h.removeClient(client.id)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSE(bw *bufio.Writer, payload []byte) {
	bw.WriteString("data: ")
	bw.Write(payload)
	bw.WriteString("\n\n")
}

func (h *Hub) removeClient(id int) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		close(c.done)
		h.rec.SetEventClients(count)
	}
}

// Broadcast sends an event to all connected clients. Clients whose buffers
// are full are dropped rather than blocking the scan loop. Scan events are
// kept for replay so a client connecting between scans still learns the
// current state.
func (h *Hub) Broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Event marshal failed", logfields.Error(err))
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	if ev.Type == "scan" {
		h.last = payload
	}
	snapshot := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- payload:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	if dropped > 0 {
		slog.Debug("Dropped slow event clients", logfields.Count(dropped))
	}
}

// ClientCount reports connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown disconnects all clients and rejects new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*hubClient{}
	h.mu.Unlock()

	for _, c := range clients {
		close(c.done)
	}
	h.rec.SetEventClients(0)
}
