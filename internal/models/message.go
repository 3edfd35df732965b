package models

import (
	"encoding/json"
	"time"
)

// Message delivery states. SENT transitions to SEEN once, never back.
const (
	MessageSent = "SENT"
	MessageSeen = "SEEN"
)

// Message content types.
const (
	TypeText  = "TEXT"
	TypeImage = "IMAGE"
)

// Message represents a direct message between two users. Messages are
// never physically removed; deletion is tracked per side through the
// deleted_* flags.
type Message struct {
	ID                 int        `db:"id" json:"id"`
	SenderID           int        `db:"sender_id" json:"senderId"`
	ReceiverID         int        `db:"receiver_id" json:"receiverId"`
	Content            string     `db:"content" json:"content"`
	Time               time.Time  `db:"time" json:"time"`
	Status             string     `db:"status" json:"status"`
	MessageType        string     `db:"message_type" json:"messageType"`
	Read               bool       `db:"read" json:"read"`
	DeletedStatus      bool       `db:"deleted_status" json:"deletedStatus"`
	DeletedForSender   bool       `db:"deleted_for_sender" json:"deletedForSender"`
	DeletedForReceiver bool       `db:"deleted_for_receiver" json:"deletedForReceiver"`
	DeletedAt          *time.Time `db:"deleted_at" json:"deletedAt"`
}

// DeletionPatch carries the deletion-related fields of a delete event.
// Merging a patch touches nothing but these fields on the stored record.
type DeletionPatch struct {
	MessageID          int
	DeletedForSender   bool
	DeletedForReceiver bool
	DeletedAt          *time.Time
}

// PatchFromMessage extracts the deletion patch carried by a delete event
// payload, discarding every other client-supplied field.
func PatchFromMessage(msg Message) DeletionPatch {
	return DeletionPatch{
		MessageID:          msg.ID,
		DeletedForSender:   msg.DeletedForSender,
		DeletedForReceiver: msg.DeletedForReceiver,
		DeletedAt:          msg.DeletedAt,
	}
}

// Apply merges the patch onto an existing message. Side flags are
// monotonic: once deleted for a side, a later patch cannot restore it.
// DeletedStatus always holds the disjunction of the two side flags.
func (p DeletionPatch) Apply(msg *Message, now time.Time) {
	msg.DeletedForSender = msg.DeletedForSender || p.DeletedForSender
	msg.DeletedForReceiver = msg.DeletedForReceiver || p.DeletedForReceiver
	msg.DeletedStatus = msg.DeletedForSender || msg.DeletedForReceiver

	if msg.DeletedStatus && msg.DeletedAt == nil {
		if p.DeletedAt != nil {
			msg.DeletedAt = p.DeletedAt
		} else {
			at := now
			msg.DeletedAt = &at
		}
	}
}

// ChatEvent is broadcasted through websockets and AMQP.
type ChatEvent struct {
	Type    string          `json:"type"`
	Message *Message        `json:"message,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
