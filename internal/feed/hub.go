package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Hub fans out stored records to connected SSE clients.
type Hub struct {
	logger    *slog.Logger
	keepalive time.Duration

	mu      sync.Mutex
	clients map[chan []byte]struct{}
}

// NewHub creates a hub with a 20s keepalive.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:    logger,
		keepalive: 20 * time.Second,
		clients:   make(map[chan []byte]struct{}),
	}
}

// Broadcast sends rec to every client.
func (h *Hub) Broadcast(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		h.logger.Error("feed: marshaling record", "seq", rec.Seq, "err", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- data:
		default:
			// Slow client; drop this event.
		}
	}
}

// Clients counts connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) addClient(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[ch] = struct{}{}
}

func (h *Hub) removeClient(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, ch)
	close(ch)
}

// ServeHTTP implements http.Handler for SSE connections.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan []byte, 32)
	h.addClient(ch)
	defer h.removeClient(ch)

	_, _ = fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepalive.C:
			_, _ = fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case data := <-ch:
			_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
