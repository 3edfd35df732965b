package audit

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"chatapp/internal/repositories"
)

// Publisher mirrors audit entries onto the event bus.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
	Close() error
}

// Envelope is the versioned audit event shape published over AMQP.
type Envelope struct {
	SchemaVersion int     `json:"schema_version"`
	EventType     string  `json:"event_type"`
	OccurredAt    string  `json:"occurred_at"`
	Service       string  `json:"service"`
	Environment   string  `json:"environment"`
	UserID        int     `json:"user_id"`
	Payload       Payload `json:"payload"`
}

// Payload carries the action classification and free-text details.
type Payload struct {
	Action  string `json:"action"`
	Details string `json:"details"`
}

// Sink is the append-only history writer. Every recorded entry lands in
// the history table; a copy is published on the audit routing key when a
// publisher is configured. Entries are never read back or mutated here.
type Sink struct {
	history     repositories.HistoryRepository
	publisher   Publisher
	routingKey  string
	service     string
	environment string
}

// NewSink constructs a Sink. publisher may be nil to disable mirroring.
func NewSink(history repositories.HistoryRepository, publisher Publisher, routingKey, service, environment string) *Sink {
	return &Sink{
		history:     history,
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
	}
}

// Record appends a history entry. A store failure propagates to the
// caller; a publish failure is logged and dropped.
func (s *Sink) Record(ctx context.Context, userID int, action, details string) error {
	now := time.Now().UTC()
	if _, err := s.history.Append(ctx, userID, action, details, now); err != nil {
		return err
	}

	if s.publisher == nil {
		return nil
	}

	envelope := Envelope{
		SchemaVersion: 1,
		EventType:     "audit_log",
		OccurredAt:    now.Format(time.RFC3339Nano),
		Service:       s.service,
		Environment:   s.environment,
		UserID:        userID,
		Payload: Payload{
			Action:  action,
			Details: details,
		},
	}
	if err := s.publisher.Publish(ctx, s.routingKey, envelope); err != nil {
		log.Error().Err(err).Str("action", action).Msg("audit publish failed")
	}
	return nil
}
