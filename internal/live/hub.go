// Package live serves the live map over WebSocket. Each connection owns a
// dashboard session that only its own loop mutates; newly stored hazards
// reach every session through the broadcaster.
package live

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/coastwatch/internal/dashboard"
	"github.com/mr1hm/coastwatch/internal/observability"
	"github.com/mr1hm/coastwatch/internal/repository"
	"github.com/mr1hm/coastwatch/internal/stream"
)

type Hub struct {
	repo        repository.HazardRepository
	overlays    dashboard.Overlays
	broadcaster *stream.Broadcaster
	clock       clockwork.Clock
	metrics     *observability.Metrics
	wsUpgrader  websocket.Upgrader

	mu      sync.Mutex
	clients map[*client]struct{}
	done    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// NewHub accepts connections from allowedOrigins; "*" allows any origin.
func NewHub(repo repository.HazardRepository, overlays dashboard.Overlays, broadcaster *stream.Broadcaster, clock clockwork.Clock, metrics *observability.Metrics, allowedOrigins []string) *Hub {
	h := &Hub{
		repo:        repo,
		overlays:    overlays,
		broadcaster: broadcaster,
		clock:       clock,
		metrics:     metrics,
		clients:     make(map[*client]struct{}),
		done:        make(chan struct{}),
	}
	h.wsUpgrader = websocket.Upgrader{
		CheckOrigin: originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return slices.Contains(allowed, u.Scheme+"://"+u.Host)
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}
	if !h.admit() {
		http.Error(w, "Shutting down.", http.StatusServiceUnavailable)
		return
	}
	defer h.wg.Done()

	// subscribe before loading so nothing stored in between is missed
	subID, records := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(subID)

	stored, err := h.repo.ListHazards(r.Context(), repository.Filter{})
	if err != nil {
		slog.Error("failed to load hazards for live session", "error", err)
		http.Error(w, "Failed to load hazards.", http.StatusInternalServerError)
		return
	}

	ws, err := h.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("failed to upgrade connection", "error", err)
		return
	}

	c := newClient(h, ws, stored)
	h.register(c)
	defer h.unregister(c)

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.listenWrite()
	}()
	go func() {
		defer h.wg.Done()
		c.listenRead()
	}()

	c.run(records)
}

// admit counts a request against the wait group unless the hub is shutting
// down. The check and the Add share mu with Shutdown's close of done, so
// Wait never races a first Add.
func (h *Hub) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	select {
	case <-h.done:
		return false
	default:
	}
	h.wg.Add(1)
	return true
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.LiveSessions.Inc()
	slog.Debug("live session opened", "remote", c.ws.RemoteAddr().String())
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	h.metrics.LiveSessions.Dec()
	slog.Debug("live session closed", "remote", c.ws.RemoteAddr().String())
}

// Count returns the number of open sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Shutdown ends every session and waits for their goroutines, or for ctx.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.once.Do(func() { close(h.done) })
	h.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
