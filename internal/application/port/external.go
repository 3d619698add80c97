package port

import (
	"context"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/google/uuid"
)

// Notifier delivers workflow messages to users
type Notifier interface {
	Notify(ctx context.Context, username string, requestID uuid.UUID, message string) error
	ClearNotification(ctx context.Context, username string, requestID uuid.UUID) error
}

// MessageSender pushes a text message to a chat recipient
type MessageSender interface {
	SendMessage(ctx context.Context, chatID string, content string) error
}

// StatementRenderer renders a user's reimbursement statement document
type StatementRenderer interface {
	Render(user *entity.User, requests []*entity.ReimbursementRequest) ([]byte, error)
}
