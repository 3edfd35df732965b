package broker

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"chatapp/internal/models"
)

// Routing keys accepted on the inbound exchange.
const (
	InboundSend   = "send"
	InboundDelete = "delete"
	InboundTyping = "typing"
)

// EventHandler consumes inbound realtime events. Implemented by the
// broadcast engine.
type EventHandler interface {
	Send(ctx context.Context, draft models.Message) (models.Message, error)
	Delete(ctx context.Context, patch models.Message) models.Message
	Typing(ctx context.Context, payload json.RawMessage)
}

// Consumer feeds inbound AMQP events into an EventHandler. Events may
// reach the engine either through a websocket frame or through this
// consumer; both paths converge on the same handler.
type Consumer struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// StartConsumer binds a queue for the inbound routing keys and starts a
// delivery loop. An empty URL or a broker failure disables consumption
// with a warning instead of failing startup, mirroring the publisher's
// noop fallback.
func StartConsumer(ctx context.Context, amqpURL, exchange, queue string, handler EventHandler) *Consumer {
	if amqpURL == "" {
		log.Warn().Str("reason", "empty amqp url").Msg("inbound consumer disabled")
		return nil
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		log.Warn().Err(err).Msg("inbound consumer disabled")
		return nil
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Warn().Err(err).Msg("inbound consumer disabled")
		_ = conn.Close()
		return nil
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.Warn().Err(err).Msg("inbound consumer disabled")
		_ = ch.Close()
		_ = conn.Close()
		return nil
	}

	q, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		log.Warn().Err(err).Msg("inbound consumer disabled")
		_ = ch.Close()
		_ = conn.Close()
		return nil
	}

	for _, key := range []string{InboundSend, InboundDelete, InboundTyping} {
		if err := ch.QueueBind(q.Name, key, exchange, false, nil); err != nil {
			log.Warn().Err(err).Str("routing_key", key).Msg("inbound consumer disabled")
			_ = ch.Close()
			_ = conn.Close()
			return nil
		}
	}

	deliveries, err := ch.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		log.Warn().Err(err).Msg("inbound consumer disabled")
		_ = ch.Close()
		_ = conn.Close()
		return nil
	}

	consumer := &Consumer{conn: conn, ch: ch}
	go consumer.loop(ctx, deliveries, handler)
	log.Info().Str("exchange", exchange).Str("queue", q.Name).Msg("inbound consumer started")
	return consumer
}

func (c *Consumer) loop(ctx context.Context, deliveries <-chan amqp.Delivery, handler EventHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-deliveries:
			if !ok {
				log.Warn().Msg("inbound consumer channel closed")
				return
			}
			dispatch(ctx, delivery, handler)
		}
	}
}

func dispatch(ctx context.Context, delivery amqp.Delivery, handler EventHandler) {
	switch delivery.RoutingKey {
	case InboundSend:
		var draft models.Message
		if err := json.Unmarshal(delivery.Body, &draft); err != nil {
			log.Warn().Err(err).Msg("discarding malformed send event")
			return
		}
		if _, err := handler.Send(ctx, draft); err != nil {
			log.Error().Err(err).Msg("send event failed")
		}
	case InboundDelete:
		var patch models.Message
		if err := json.Unmarshal(delivery.Body, &patch); err != nil {
			log.Warn().Err(err).Msg("discarding malformed delete event")
			return
		}
		handler.Delete(ctx, patch)
	case InboundTyping:
		// Relayed verbatim, no schema enforced.
		handler.Typing(ctx, json.RawMessage(delivery.Body))
	default:
		log.Warn().Str("routing_key", delivery.RoutingKey).Msg("ignoring unknown inbound event")
	}
}

// Close shuts the consumer connection down.
func (c *Consumer) Close() error {
	if c == nil {
		return nil
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
