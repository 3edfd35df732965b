package ws

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"chatapp/internal/observability"
)

// Hub maintains the active websocket subscriptions per topic.
type Hub struct {
	topics map[string]map[*websocket.Conn]ConnInfo
	mu     sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[*websocket.Conn]ConnInfo)}
}

// Subscribe registers a websocket connection on a topic.
func (h *Hub) Subscribe(topic string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.topics[topic]; !ok {
		h.topics[topic] = make(map[*websocket.Conn]ConnInfo)
	}
	h.topics[topic][conn] = info
}

// Unsubscribe removes a websocket connection from a topic.
func (h *Hub) Unsubscribe(topic string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.topics[topic]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.topics, topic)
		}
	}
}

// Broadcast sends a payload to every subscriber of a topic. Delivery is
// fire-and-forget: a failed writer is closed and evicted, the rest of
// the fan-out continues.
func (h *Hub) Broadcast(topic string, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.topics[topic]))
	for conn := range h.topics[topic] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			log.Warn().Err(err).Str("topic", topic).Msg("websocket write error")
			conn.Close()
			h.Unsubscribe(topic, conn)
			observability.IncWSEvent(topic, "ws_error")
		}
	}
}

// Subscribers reports the number of connections on a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
