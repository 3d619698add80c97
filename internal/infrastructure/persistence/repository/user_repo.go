package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// UserRepository implements port.UserRepository
type UserRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sql.DB, logger *zap.Logger) port.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a directory user
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	query := `
		INSERT INTO users (
			username, first_name, last_name, role, department_name, supervisor_username,
			pending_balance, awarded_balance, chat_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := r.getExecutor(ctx).ExecContext(ctx, query,
		user.Username,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.DepartmentName,
		user.SupervisorUsername,
		user.PendingBalance,
		user.AwardedBalance,
		user.ChatID,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByUsername returns nil when the user does not exist
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	query := `
		SELECT username, first_name, last_name, role, department_name, supervisor_username,
			pending_balance, awarded_balance, chat_id, created_at, updated_at
		FROM users
		WHERE username = ?
	`

	var user entity.User
	var role string
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, username).Scan(
		&user.Username,
		&user.FirstName,
		&user.LastName,
		&role,
		&user.DepartmentName,
		&user.SupervisorUsername,
		&user.PendingBalance,
		&user.AwardedBalance,
		&user.ChatID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get user", zap.String("username", username), zap.Error(err))
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	user.Role = entity.UserRole(role)
	return &user, nil
}

// Update writes profile fields and both balances
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	query := `
		UPDATE users
		SET first_name = ?, last_name = ?, role = ?, department_name = ?, supervisor_username = ?,
			pending_balance = ?, awarded_balance = ?, chat_id = ?, updated_at = ?
		WHERE username = ?
	`

	user.UpdatedAt = time.Now().UTC()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		user.FirstName,
		user.LastName,
		string(user.Role),
		user.DepartmentName,
		user.SupervisorUsername,
		user.PendingBalance,
		user.AwardedBalance,
		user.ChatID,
		user.UpdatedAt,
		user.Username,
	)
	if err != nil {
		r.logger.Error("Failed to update user", zap.String("username", user.Username), zap.Error(err))
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", user.Username)
	}
	return nil
}

func (r *UserRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.GetExecutor(ctx, r.db)
}

var _ port.UserRepository = (*UserRepository)(nil)
