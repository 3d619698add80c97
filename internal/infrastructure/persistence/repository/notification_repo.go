package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/persistence/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert stores n, replacing the message of an existing entry for the same user and request
func (r *NotificationRepository) Upsert(ctx context.Context, n *entity.Notification) error {
	query := `
		INSERT INTO notifications (username, request_id, message, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(username, request_id) DO UPDATE SET
			message = excluded.message,
			created_at = excluded.created_at
	`

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	_, err := r.getExecutor(ctx).ExecContext(ctx, query, n.Username, n.RequestID, n.Message, n.CreatedAt.UTC())
	if err != nil {
		r.logger.Error("Failed to upsert notification",
			zap.String("username", n.Username),
			zap.String("request_id", n.RequestID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to upsert notification: %w", err)
	}

	// LastInsertId is unreliable on the update path
	err = r.getExecutor(ctx).QueryRowContext(ctx,
		`SELECT id FROM notifications WHERE username = ? AND request_id = ?`,
		n.Username, n.RequestID).Scan(&n.ID)
	if err != nil {
		return fmt.Errorf("failed to read notification id: %w", err)
	}
	return nil
}

// Delete removes the entry for one user and request. Missing entries are ignored.
func (r *NotificationRepository) Delete(ctx context.Context, username string, requestID uuid.UUID) error {
	query := `DELETE FROM notifications WHERE username = ? AND request_id = ?`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, username, requestID); err != nil {
		r.logger.Error("Failed to delete notification",
			zap.String("username", username),
			zap.String("request_id", requestID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	return nil
}

// ListByUsername returns a user's inbox, oldest first
func (r *NotificationRepository) ListByUsername(ctx context.Context, username string) ([]*entity.Notification, error) {
	query := `
		SELECT id, username, request_id, message, created_at
		FROM notifications
		WHERE username = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, username)
	if err != nil {
		r.logger.Error("Failed to list notifications", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		var n entity.Notification
		if err := rows.Scan(&n.ID, &n.Username, &n.RequestID, &n.Message, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, &n)
	}
	return notifications, rows.Err()
}

// DeleteByUsername clears a user's whole inbox
func (r *NotificationRepository) DeleteByUsername(ctx context.Context, username string) error {
	if _, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM notifications WHERE username = ?`, username); err != nil {
		r.logger.Error("Failed to clear notifications", zap.String("username", username), zap.Error(err))
		return fmt.Errorf("failed to clear notifications: %w", err)
	}
	return nil
}

func (r *NotificationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.GetExecutor(ctx, r.db)
}

var _ port.NotificationRepository = (*NotificationRepository)(nil)
