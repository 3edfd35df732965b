package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"chatapp/internal/audit"
	"chatapp/internal/broker"
	"chatapp/internal/models"
	"chatapp/internal/observability"
	"chatapp/internal/repositories"
)

// Broadcaster fans a payload out to the local subscribers of a topic.
// Delivery is fire-and-forget; a slow subscriber never blocks the engine.
type Broadcaster interface {
	Broadcast(topic string, payload []byte)
}

// Engine is the stateless per-event handler for the realtime channel.
// Each event is validated against persisted state, applied, and
// republished as its canonical form. No state is retained between
// events beyond what the store holds.
type Engine struct {
	messages  repositories.MessageRepository
	sink      *audit.Sink
	hub       Broadcaster
	publisher broker.Publisher
}

// NewEngine constructs an Engine.
func NewEngine(messages repositories.MessageRepository, sink *audit.Sink, hub Broadcaster, publisher broker.Publisher) *Engine {
	return &Engine{messages: messages, sink: sink, hub: hub, publisher: publisher}
}

// Send persists a message draft and broadcasts the canonical record.
// This is the sole path that assigns the authoritative timestamp and
// delivery status; client-supplied values for those fields are
// overwritten, not trusted.
func (e *Engine) Send(ctx context.Context, draft models.Message) (models.Message, error) {
	draft.Time = time.Now().UTC()
	draft.Status = models.MessageSent
	draft.Read = false
	if draft.MessageType == "" {
		draft.MessageType = models.TypeText
	}
	draft.DeletedStatus = false
	draft.DeletedForSender = false
	draft.DeletedForReceiver = false
	draft.DeletedAt = nil

	msg, err := e.messages.CreateMessage(ctx, draft)
	if err != nil {
		return models.Message{}, fmt.Errorf("store message: %w", err)
	}

	action := models.ActionMessageSent
	if msg.MessageType == models.TypeImage {
		action = models.ActionImageSent
	}
	if err := e.sink.Record(ctx, msg.SenderID, action, fmt.Sprintf("Message to user %d", msg.ReceiverID)); err != nil {
		return models.Message{}, fmt.Errorf("record send: %w", err)
	}

	observability.IncBroadcastEvent("send")
	e.publishMessage(ctx, msg)
	return msg, nil
}

// Delete applies a deletion patch to a stored message and broadcasts the
// updated canonical record. Only the four deletion fields are merged;
// content, participants and timestamps stay untouched. An unresolvable
// id degrades soft: the input patch is broadcast unchanged so clients
// still receive the UI update.
func (e *Engine) Delete(ctx context.Context, patchMsg models.Message) models.Message {
	patch := models.PatchFromMessage(patchMsg)

	existing, err := e.messages.GetMessage(ctx, patch.MessageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			log.Warn().Int("message_id", patch.MessageID).Msg("delete event for unknown message, relaying patch as-is")
		} else {
			log.Error().Err(err).Int("message_id", patch.MessageID).Msg("delete event lookup failed, relaying patch as-is")
		}
		e.publishMessage(ctx, patchMsg)
		return patchMsg
	}

	patch.Apply(&existing, time.Now().UTC())

	updated, err := e.messages.UpdateDeletion(ctx, existing)
	if err != nil {
		log.Error().Err(err).Int("message_id", patch.MessageID).Msg("delete event update failed, relaying patch as-is")
		e.publishMessage(ctx, patchMsg)
		return patchMsg
	}

	observability.IncBroadcastEvent("delete")
	e.publishMessage(ctx, updated)
	return updated
}

// Typing relays an ephemeral typing payload verbatim. No persistence,
// no validation; any schema is accepted.
func (e *Engine) Typing(ctx context.Context, payload json.RawMessage) {
	observability.IncBroadcastEvent("typing")
	event := models.ChatEvent{Type: "typing", Payload: payload}
	body, err := json.Marshal(event)
	if err != nil {
		return
	}
	e.hub.Broadcast(broker.TopicTyping, body)
	_ = e.publisher.Publish(ctx, broker.TopicTyping, event)
}

func (e *Engine) publishMessage(ctx context.Context, msg models.Message) {
	event := models.ChatEvent{Type: "message", Message: &msg}
	body, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("marshal chat event")
		return
	}
	e.hub.Broadcast(broker.TopicMessages, body)
	_ = e.publisher.Publish(ctx, broker.TopicMessages, event)
}
