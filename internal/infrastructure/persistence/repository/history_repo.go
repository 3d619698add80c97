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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	query := `
		INSERT INTO approval_history (
			request_id, stage, actor, previous_status, new_status, action, reason, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now().UTC()
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		history.RequestID,
		history.Stage,
		history.Actor,
		history.PreviousStatus,
		history.NewStatus,
		string(history.Action),
		history.Reason,
		history.Timestamp.UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.String("request_id", history.RequestID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByRequestID returns a request's history in insertion order
func (r *HistoryRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) ([]*entity.ApprovalHistory, error) {
	query := `
		SELECT id, request_id, stage, actor, previous_status, new_status, action, reason, timestamp
		FROM approval_history
		WHERE request_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to get history", zap.String("request_id", requestID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalHistory
	for rows.Next() {
		var record entity.ApprovalHistory
		var action string
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.Stage,
			&record.Actor,
			&record.PreviousStatus,
			&record.NewStatus,
			&action,
			&record.Reason,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		record.Action = entity.HistoryAction(action)
		records = append(records, &record)
	}
	return records, rows.Err()
}

func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.GetExecutor(ctx, r.db)
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)
