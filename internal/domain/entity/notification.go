package entity

import (
	"time"

	"github.com/google/uuid"
)

// Notification is an inbox entry for a user about one request.
// At most one notification is kept per (username, request).
type Notification struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	RequestID uuid.UUID `json:"request_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
