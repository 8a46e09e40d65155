package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wishwell/wishwell-backend/pkg/logger"
	"github.com/wishwell/wishwell-backend/pkg/metrics"
)

const defaultClientBuffer = 16

// Client is one connected observer. A client can watch several wishlists
// over a single stream.
type Client struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Wishlists map[uuid.UUID]bool
	Outbound  chan Event
	done      chan struct{}
}

// Hub is the room registry for funding events, keyed by wishlist id.
type Hub struct {
	mu            sync.RWMutex
	subscriptions map[uuid.UUID]map[*Client]bool
	clients       map[uuid.UUID]*Client
	logg          *logger.Logger
	metrics       *metrics.FundingMetrics
	buffer        int
	heartbeat     time.Duration
}

// HubParams bundles the hub dependencies.
type HubParams struct {
	Logger            *logger.Logger
	Metrics           *metrics.FundingMetrics
	ClientBuffer      int
	HeartbeatInterval time.Duration
}

// NewHub constructs an empty hub. It is injected, never a package global.
func NewHub(params HubParams) *Hub {
	buffer := params.ClientBuffer
	if buffer <= 0 {
		buffer = defaultClientBuffer
	}
	heartbeat := params.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &Hub{
		subscriptions: make(map[uuid.UUID]map[*Client]bool),
		clients:       make(map[uuid.UUID]*Client),
		logg:          params.Logger,
		metrics:       params.Metrics,
		buffer:        buffer,
		heartbeat:     heartbeat,
	}
}

// NewClient registers a fresh observer owned by the given user.
func (h *Hub) NewClient(userID uuid.UUID) *Client {
	client := &Client{
		ID:        uuid.New(),
		UserID:    userID,
		Wishlists: make(map[uuid.UUID]bool),
		Outbound:  make(chan Event, h.buffer),
		done:      make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()
	return client
}

// ClientByID looks up a connected client, nil when unknown.
func (h *Hub) ClientByID(id uuid.UUID) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[id]
}

// Subscribe adds the client to a wishlist room.
func (h *Hub) Subscribe(client *Client, wishlistID uuid.UUID) {
	if wishlistID == uuid.Nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	client.Wishlists[wishlistID] = true
	clients, exists := h.subscriptions[wishlistID]
	if !exists {
		clients = make(map[*Client]bool)
		h.subscriptions[wishlistID] = clients
	}
	clients[client] = true
}

// Unsubscribe removes the client from a wishlist room.
func (h *Hub) Unsubscribe(client *Client, wishlistID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(client.Wishlists, wishlistID)
	if clients, ok := h.subscriptions[wishlistID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.subscriptions, wishlistID)
		}
	}
}

// RemoveClient drops the client from every room and forgets it.
func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.clients, client.ID)
	for wishlistID := range client.Wishlists {
		if clients, ok := h.subscriptions[wishlistID]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.subscriptions, wishlistID)
			}
		}
	}
	client.Wishlists = make(map[uuid.UUID]bool)
}

// CloseClient tears the client down and unblocks its stream.
func (h *Hub) CloseClient(client *Client) {
	h.RemoveClient(client)
	close(client.done)
}

// Broadcast delivers the event to every subscriber of its wishlist room.
// Sends never block; a full buffer drops the event for that client.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.subscriptions[event.WishlistID]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.Outbound <- event:
			h.metrics.IncBroadcast("delivered")
		default:
			h.metrics.IncBroadcast("dropped")
			if h.logg != nil {
				ctx := h.logg.WithWishlistID(context.Background(), event.WishlistID.String())
				h.logg.Warn(ctx, "dropping funding event, client buffer full")
			}
		}
	}
}

// SubscriberCount reports how many clients watch the wishlist.
func (h *Hub) SubscriberCount(wishlistID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscriptions[wishlistID])
}

// ServeHTTP streams the client's events as SSE until the connection drops.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	// First frame hands the client its id for subscribe/unsubscribe calls.
	fmt.Fprintf(w, "event: ready\ndata: {\"client_id\":%q}\n\n", client.ID.String())
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event := <-client.Outbound:
			payload, err := json.Marshal(event)
			if err != nil {
				if h.logg != nil {
					h.logg.Error(ctx, "marshal funding event", err)
				}
				continue
			}
			fmt.Fprintf(w, "event: funding\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
