// Package relay coordinates connection registration, state cleanup, and
// shutdown for the relay via the Hub type.
package relay

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub owns the set of live connections and runs their lifecycle: on
// register a connection becomes addressable by the registry and its pumps
// start; on unregister every piece of per-connection state (rate-limit
// buckets, room memberships, outbound buffer) is released. Disconnects may
// be abrupt; no client handshake is required.
type Hub struct {
	registry *Registry
	limiter  *RateLimiter
	router   *Router
	log      *zap.Logger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewHub creates a hub bound to the shared registry, limiter, and router.
func NewHub(registry *Registry, limiter *RateLimiter, router *Router, log *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   registry,
		limiter:    limiter,
		router:     router,
		log:        log,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Register hands a new connection to the hub's event loop.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.ctx.Done():
	}
}

// Unregister asks the hub to tear a connection down. Safe to call more
// than once for the same client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.ctx.Done():
	}
}

// ClientCount reports the number of live connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// Run is the hub's main event loop. It should be started in its own
// goroutine and runs until Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				continue
			}
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mutex.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mutex.Unlock()

	h.registry.Register(client.id, client.send)

	h.log.Info("client connected",
		zap.String("conn", client.id), zap.String("addr", client.addr), zap.Int("clients", count))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

// removeClient releases everything the connection owns. The registry is
// detached before the send channel closes, so no emit can hit a closed
// buffer.
func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	count := len(h.clients)
	h.mutex.Unlock()

	h.registry.Unregister(client.id)
	h.limiter.Release(client.id)
	close(client.send)

	h.log.Info("client disconnected",
		zap.String("conn", client.id), zap.String("addr", client.addr), zap.Int("clients", count))
}

// shutdownClients closes every active connection during hub shutdown.
func (h *Hub) shutdownClients() {
	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("close connection", zap.String("conn", client.id), zap.Error(err))
			}
		}
	}

	h.log.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown stops the event loop and waits for client goroutines to finish
// or the timeout to elapse.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		h.log.Info("hub shutdown complete")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timed out")
		return context.DeadlineExceeded
	}
}
