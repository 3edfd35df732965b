package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"

	"chatapp/internal/broker"
	"chatapp/internal/models"
	"chatapp/internal/observability"
)

// Presence flips a user's online status as realtime connections attach
// and detach.
type Presence interface {
	Connect(ctx context.Context, userID int) error
	Disconnect(ctx context.Context, userID int) error
}

// EventSocketHandler accepts realtime event connections. Inbound frames
// are dispatched to the broadcast engine; the connection is subscribed
// to the requested outbound topics.
type EventSocketHandler struct {
	hub       *Hub
	engine    broker.EventHandler
	presence  Presence
	publisher broker.Publisher
}

// NewEventSocketHandler constructs an EventSocketHandler.
func NewEventSocketHandler(hub *Hub, engine broker.EventHandler, presence Presence, publisher broker.Publisher) *EventSocketHandler {
	return &EventSocketHandler{hub: hub, engine: engine, presence: presence, publisher: publisher}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection, registers the client on its topics and
// pumps inbound events into the engine until the socket closes.
func (h *EventSocketHandler) Handle(c *gin.Context) {
	userID, err := strconv.Atoi(c.Query("user_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	ctx, span := otel.Tracer("chatapp/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	topics := parseTopics(c.Query("topics"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      userID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	for _, topic := range topics {
		h.hub.Subscribe(topic, conn, info)
	}

	if err := h.presence.Connect(ctx, userID); err != nil {
		log.Warn().Err(err).Int("user_id", userID).Msg("presence connect failed")
	}
	observability.IncWSActive("events")
	observability.IncWSEvent("events", "ws_connect")
	h.publishLifecycle(info, "ws_connect", "")

	go h.readLoop(conn, info, topics)
}

func (h *EventSocketHandler) readLoop(conn *websocket.Conn, info ConnInfo, topics []string) {
	// Detached from the handshake request; the socket outlives it.
	ctx := context.Background()

	var closeReason string
	defer func() {
		for _, topic := range topics {
			h.hub.Unsubscribe(topic, conn)
		}
		if err := h.presence.Disconnect(ctx, info.UserID); err != nil {
			log.Warn().Err(err).Int("user_id", info.UserID).Msg("presence disconnect failed")
		}
		observability.DecWSActive("events")
		observability.IncWSEvent("events", "ws_disconnect")
		h.publishLifecycle(info, "ws_disconnect", closeReason)
		conn.Close()
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("events", "ws_error")
			}
			return
		}
		h.dispatch(ctx, frame)
	}
}

func (h *EventSocketHandler) dispatch(ctx context.Context, frame []byte) {
	event, err := decodeEvent(frame)
	if err != nil {
		log.Warn().Err(err).Msg("discarding malformed websocket frame")
		return
	}

	switch event.Type {
	case "send":
		if event.Message == nil {
			log.Warn().Msg("send frame without message")
			return
		}
		if _, err := h.engine.Send(ctx, *event.Message); err != nil {
			log.Error().Err(err).Msg("send event failed")
		}
	case "delete":
		if event.Message == nil {
			log.Warn().Msg("delete frame without message")
			return
		}
		h.engine.Delete(ctx, *event.Message)
	case "typing":
		h.engine.Typing(ctx, event.Payload)
	default:
		log.Warn().Str("type", event.Type).Msg("ignoring unknown websocket event")
	}
}

func decodeEvent(frame []byte) (models.ChatEvent, error) {
	var event models.ChatEvent
	err := json.Unmarshal(frame, &event)
	return event, err
}

func (h *EventSocketHandler) publishLifecycle(info ConnInfo, event, reason string) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
	_ = h.publisher.Publish(context.Background(), "ws_events", payload)
}

func parseTopics(raw string) []string {
	if raw == "" {
		return []string{broker.TopicMessages, broker.TopicTyping}
	}
	parts := strings.Split(raw, ",")
	topics := make([]string, 0, len(parts))
	for _, part := range parts {
		if topic := strings.TrimSpace(part); topic != "" {
			topics = append(topics, topic)
		}
	}
	return topics
}
