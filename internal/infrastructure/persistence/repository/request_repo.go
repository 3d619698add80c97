package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/garyjia/training-reimbursement/internal/infrastructure/persistence/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestRepository implements port.RequestRepository.
// The approval chain is stored as one status/username column pair per stage.
type RequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *sql.DB, logger *zap.Logger) port.RequestRepository {
	return &RequestRepository{
		db:     db,
		logger: logger,
	}
}

const requestColumns = `
	id, username, first_name, last_name, department_name, status, is_urgent,
	name, start_date, location, description, cost, grading_format, event_type, work_time_missed,
	attachment_uris, approval_msg_uri, reimburse_amount,
	supervisor_status, supervisor_username, dept_head_status, dept_head_username,
	benco_status, benco_username, final_status, final_username,
	reason, deadline, final_grade, is_passing, presentation_file_name,
	final_reimburse_amount, final_reimburse_amount_reason, needs_employee_review, employee_agrees,
	created_at, updated_at`

// requestArgs flattens a request in requestColumns order
func requestArgs(req *entity.ReimbursementRequest) ([]interface{}, error) {
	uris := req.AttachmentURIs
	if uris == nil {
		uris = []string{}
	}
	urisJSON, err := json.Marshal(uris)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attachment uris: %w", err)
	}

	var isPassing sql.NullBool
	if req.IsPassing != nil {
		isPassing = sql.NullBool{Bool: *req.IsPassing, Valid: true}
	}

	c := req.Chain
	return []interface{}{
		req.ID, req.Username, req.FirstName, req.LastName, req.DeptName, string(req.Status), req.IsUrgent,
		req.Name, req.StartDate.UTC(), req.Location, req.Description, req.Cost,
		string(req.GradingFormat), string(req.EventType), req.WorkTimeMissed,
		string(urisJSON), req.ApprovalMsgURI, req.ReimburseAmount,
		string(c[entity.StageSupervisor].Status), c[entity.StageSupervisor].Username,
		string(c[entity.StageDepartmentHead].Status), c[entity.StageDepartmentHead].Username,
		string(c[entity.StageBenefitsCoordinator].Status), c[entity.StageBenefitsCoordinator].Username,
		string(c[entity.StageFinal].Status), c[entity.StageFinal].Username,
		req.Reason, req.Deadline.UTC(), req.FinalGrade, isPassing, req.PresentationFileName,
		req.FinalReimburseAmount, req.FinalReimburseAmountReason, req.NeedsEmployeeReview, req.EmployeeAgrees,
		req.CreatedAt.UTC(), req.UpdatedAt.UTC(),
	}, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*entity.ReimbursementRequest, error) {
	var (
		req        entity.ReimbursementRequest
		status     string
		format     string
		eventType  string
		urisJSON   string
		isPassing  sql.NullBool
		slotStatus [entity.StageCount]string
	)
	c := &req.Chain

	err := row.Scan(
		&req.ID, &req.Username, &req.FirstName, &req.LastName, &req.DeptName, &status, &req.IsUrgent,
		&req.Name, &req.StartDate, &req.Location, &req.Description, &req.Cost,
		&format, &eventType, &req.WorkTimeMissed,
		&urisJSON, &req.ApprovalMsgURI, &req.ReimburseAmount,
		&slotStatus[entity.StageSupervisor], &c[entity.StageSupervisor].Username,
		&slotStatus[entity.StageDepartmentHead], &c[entity.StageDepartmentHead].Username,
		&slotStatus[entity.StageBenefitsCoordinator], &c[entity.StageBenefitsCoordinator].Username,
		&slotStatus[entity.StageFinal], &c[entity.StageFinal].Username,
		&req.Reason, &req.Deadline, &req.FinalGrade, &isPassing, &req.PresentationFileName,
		&req.FinalReimburseAmount, &req.FinalReimburseAmountReason, &req.NeedsEmployeeReview, &req.EmployeeAgrees,
		&req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Status = entity.RequestStatus(status)
	req.GradingFormat = entity.GradingFormat(format)
	req.EventType = entity.EventType(eventType)
	for i := range slotStatus {
		c[i].Status = entity.ApprovalStatus(slotStatus[i])
	}
	if isPassing.Valid {
		passing := isPassing.Bool
		req.IsPassing = &passing
	}
	if err := json.Unmarshal([]byte(urisJSON), &req.AttachmentURIs); err != nil {
		return nil, fmt.Errorf("failed to decode attachment uris: %w", err)
	}

	return &req, nil
}

// Create inserts a new request
func (r *RequestRepository) Create(ctx context.Context, req *entity.ReimbursementRequest) error {
	args, err := requestArgs(req)
	if err != nil {
		return err
	}

	query := `INSERT INTO reimbursement_requests (` + requestColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.Error("Failed to create request", zap.String("request_id", req.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetByID returns nil when the request does not exist
func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.ReimbursementRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reimbursement_requests WHERE id = ?`

	req, err := scanRequest(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get request", zap.String("request_id", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return req, nil
}

// List returns every request, oldest first
func (r *RequestRepository) List(ctx context.Context) ([]*entity.ReimbursementRequest, error) {
	return r.query(ctx, `SELECT `+requestColumns+` FROM reimbursement_requests ORDER BY created_at ASC`)
}

// ListExpiredActive returns ACTIVE requests whose deadline has passed
func (r *RequestRepository) ListExpiredActive(ctx context.Context, now time.Time) ([]*entity.ReimbursementRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reimbursement_requests
		WHERE status = ? AND deadline < ?
		ORDER BY deadline ASC`
	return r.query(ctx, query, string(entity.RequestStatusActive), now.UTC())
}

// ListByUsername returns a requester's requests, oldest first
func (r *RequestRepository) ListByUsername(ctx context.Context, username string) ([]*entity.ReimbursementRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM reimbursement_requests
		WHERE username = ?
		ORDER BY created_at ASC`
	return r.query(ctx, query, username)
}

func (r *RequestRepository) query(ctx context.Context, query string, args ...interface{}) ([]*entity.ReimbursementRequest, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list requests", zap.Error(err))
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()

	var reqs []*entity.ReimbursementRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		reqs = append(reqs, req)
	}
	return reqs, rows.Err()
}

// Update rewrites every column of an existing request
func (r *RequestRepository) Update(ctx context.Context, req *entity.ReimbursementRequest) error {
	args, err := requestArgs(req)
	if err != nil {
		return err
	}

	query := `
		UPDATE reimbursement_requests SET
			username = ?, first_name = ?, last_name = ?, department_name = ?, status = ?, is_urgent = ?,
			name = ?, start_date = ?, location = ?, description = ?, cost = ?,
			grading_format = ?, event_type = ?, work_time_missed = ?,
			attachment_uris = ?, approval_msg_uri = ?, reimburse_amount = ?,
			supervisor_status = ?, supervisor_username = ?, dept_head_status = ?, dept_head_username = ?,
			benco_status = ?, benco_username = ?, final_status = ?, final_username = ?,
			reason = ?, deadline = ?, final_grade = ?, is_passing = ?, presentation_file_name = ?,
			final_reimburse_amount = ?, final_reimburse_amount_reason = ?, needs_employee_review = ?, employee_agrees = ?,
			created_at = ?, updated_at = ?
		WHERE id = ?
	`
	// id moves from the first column to the WHERE clause
	args = append(args[1:], args[0])

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to update request", zap.String("request_id", req.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update request: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("request not found: %s", req.ID)
	}
	return nil
}

func (r *RequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.GetExecutor(ctx, r.db)
}

var _ port.RequestRepository = (*RequestRepository)(nil)
