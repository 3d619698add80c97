package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// DepartmentRepository implements port.DepartmentRepository
type DepartmentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *sql.DB, logger *zap.Logger) port.DepartmentRepository {
	return &DepartmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a department
func (r *DepartmentRepository) Create(ctx context.Context, dept *entity.Department) error {
	query := `INSERT INTO departments (name, head_username) VALUES (?, ?)`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, dept.Name, dept.HeadUsername); err != nil {
		r.logger.Error("Failed to create department", zap.String("department", dept.Name), zap.Error(err))
		return fmt.Errorf("failed to create department: %w", err)
	}
	return nil
}

// GetByName returns nil when the department does not exist
func (r *DepartmentRepository) GetByName(ctx context.Context, name string) (*entity.Department, error) {
	query := `SELECT name, head_username FROM departments WHERE name = ?`

	var dept entity.Department
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, name).Scan(&dept.Name, &dept.HeadUsername)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get department", zap.String("department", name), zap.Error(err))
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &dept, nil
}

func (r *DepartmentRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.GetExecutor(ctx, r.db)
}

var _ port.DepartmentRepository = (*DepartmentRepository)(nil)
