package models

import "time"

// History actions written by the session manager and the broadcast engine.
const (
	ActionLogin       = "LOGIN"
	ActionLogout      = "LOGOUT"
	ActionMessageSent = "MESSAGE_SENT"
	ActionImageSent   = "IMAGE_SENT"
)

// History is an append-only audit record. Rows are created once and never
// mutated or deleted.
type History struct {
	ID        int       `db:"id" json:"id"`
	UserID    int       `db:"user_id" json:"userId"`
	Action    string    `db:"action" json:"action"`
	Details   string    `db:"details" json:"details"`
	Timestamp time.Time `db:"timestamp" json:"timestamp"`
}
