package port

import (
	"context"
	"time"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/google/uuid"
)

// Lookups return (nil, nil) when the row does not exist.

// RequestRepository persists whole reimbursement requests
type RequestRepository interface {
	Create(ctx context.Context, req *entity.ReimbursementRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.ReimbursementRequest, error)
	List(ctx context.Context) ([]*entity.ReimbursementRequest, error)

	// ListExpiredActive returns ACTIVE requests whose deadline is before now
	ListExpiredActive(ctx context.Context, now time.Time) ([]*entity.ReimbursementRequest, error)

	ListByUsername(ctx context.Context, username string) ([]*entity.ReimbursementRequest, error)

	// Update rewrites every column of the request
	Update(ctx context.Context, req *entity.ReimbursementRequest) error
}

// UserRepository persists directory users and their balances
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
	Create(ctx context.Context, user *entity.User) error
	Update(ctx context.Context, user *entity.User) error
}

// DepartmentRepository resolves department heads
type DepartmentRepository interface {
	GetByName(ctx context.Context, name string) (*entity.Department, error)
	Create(ctx context.Context, dept *entity.Department) error
}

// NotificationRepository stores per-user inbox entries
type NotificationRepository interface {
	// Upsert replaces any existing notification for the same user and request
	Upsert(ctx context.Context, n *entity.Notification) error
	Delete(ctx context.Context, username string, requestID uuid.UUID) error
	ListByUsername(ctx context.Context, username string) ([]*entity.Notification, error)
	DeleteByUsername(ctx context.Context, username string) error
}

// HistoryRepository stores the request audit trail
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ApprovalHistory) error
	GetByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.ApprovalHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
