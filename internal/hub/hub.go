package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sharetube/watchroom/internal/metrics"
)

// Hub delivers room events to the clients subscribed to the room topic.
// Delivery is best effort and at most once.
type Hub struct {
	mu     sync.RWMutex
	topics map[int64]map[*Client]struct{}
	logger *slog.Logger
}

func New(logger *slog.Logger) *Hub {
	return &Hub{
		topics: make(map[int64]map[*Client]struct{}),
		logger: logger,
	}
}

func (h *Hub) Subscribe(roomId int64, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.topics[roomId]
	if !ok {
		clients = make(map[*Client]struct{})
		h.topics[roomId] = clients
	}
	clients[c] = struct{}{}
}

// Unsubscribe reports whether the client was subscribed.
func (h *Hub) Unsubscribe(roomId int64, c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.unsubscribe(roomId, c)
}

func (h *Hub) unsubscribe(roomId int64, c *Client) bool {
	clients, ok := h.topics[roomId]
	if !ok {
		return false
	}

	if _, ok := clients[c]; !ok {
		return false
	}

	delete(clients, c)
	if len(clients) == 0 {
		delete(h.topics, roomId)
	}

	return true
}

// UnsubscribeAll removes the client from every topic and returns the rooms it left.
func (h *Hub) UnsubscribeAll(c *Client) []int64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	var rooms []int64
	for roomId := range h.topics {
		if h.unsubscribe(roomId, c) {
			rooms = append(rooms, roomId)
		}
	}

	return rooms
}

func (h *Hub) IsSubscribed(roomId int64, c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.topics[roomId][c]
	return ok
}

func (h *Hub) Online(roomId int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.topics[roomId])
}

// Publish marshals event once and hands it to every subscriber of the room.
// Clients with a full send buffer miss the event.
func (h *Hub) Publish(ctx context.Context, roomId int64, event any) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.topics[roomId]))
	for c := range h.topics[roomId] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	dropped := 0
	for _, c := range clients {
		if !c.Send(b) {
			dropped++
		}
	}

	if dropped > 0 {
		metrics.EventsDroppedTotal.Add(float64(dropped))
		h.logger.DebugContext(ctx, "event dropped", "room_id", roomId, "clients", dropped)
	}

	return nil
}
