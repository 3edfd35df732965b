package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"chatapp/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, sender_id, receiver_id, content, time, status, message_type, read, deleted_status, deleted_for_sender, deleted_for_receiver, deleted_at`

// MessageRepository defines interactions for direct messages.
type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.Message) (models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	GetConversation(ctx context.Context, userA, userB int) ([]models.Message, error)
	GetInbox(ctx context.Context, userID int) ([]models.Message, error)
	MarkSeen(ctx context.Context, messageID int) error
	UpdateDeletion(ctx context.Context, msg models.Message) (models.Message, error)
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage stores a message and returns the persisted row.
func (r *MessageRepo) CreateMessage(ctx context.Context, msg models.Message) (models.Message, error) {
	var stored models.Message
	err := r.db.QueryRowxContext(ctx, `INSERT INTO messages (sender_id, receiver_id, content, time, status, message_type, read, deleted_status, deleted_for_sender, deleted_for_receiver, deleted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING `+messageColumns,
		msg.SenderID, msg.ReceiverID, msg.Content, msg.Time, msg.Status, msg.MessageType, msg.Read,
		msg.DeletedStatus, msg.DeletedForSender, msg.DeletedForReceiver, msg.DeletedAt).
		StructScan(&stored)
	return stored, err
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// GetConversation returns every message exchanged between two users in
// either direction, ordered by timestamp ascending.
func (r *MessageRepo) GetConversation(ctx context.Context, userA, userB int) ([]models.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages
        WHERE (sender_id=$1 AND receiver_id=$2) OR (sender_id=$2 AND receiver_id=$1)
        ORDER BY time ASC`
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, query, userA, userB)
	return msgs, err
}

// GetInbox returns the messages addressed to a user as receiver.
func (r *MessageRepo) GetInbox(ctx context.Context, userID int) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages WHERE receiver_id=$1`, userID)
	return msgs, err
}

// MarkSeen sets the delivery status to SEEN. Re-marking an already seen
// message is a no-op success.
func (r *MessageRepo) MarkSeen(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET status=$2 WHERE id=$1`, messageID, models.MessageSeen)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// UpdateDeletion persists only the deletion-related fields of a message,
// leaving content, participants and timestamps untouched.
func (r *MessageRepo) UpdateDeletion(ctx context.Context, msg models.Message) (models.Message, error) {
	var stored models.Message
	err := r.db.QueryRowxContext(ctx, `UPDATE messages
        SET deleted_status=$2, deleted_for_sender=$3, deleted_for_receiver=$4, deleted_at=$5
        WHERE id=$1
        RETURNING `+messageColumns,
		msg.ID, msg.DeletedStatus, msg.DeletedForSender, msg.DeletedForReceiver, msg.DeletedAt).
		StructScan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return stored, err
}
