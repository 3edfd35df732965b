package ws

import (
	"time"

	"github.com/google/uuid"
)

// ConnInfo describes an attached websocket connection for audit and
// lifecycle events.
type ConnInfo struct {
	ConnID      string
	UserID      int
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}

func newConnID() string {
	return uuid.NewString()
}
