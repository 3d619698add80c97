package workflow

import (
	"context"
	"time"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/google/uuid"
)

// Decision is the outcome an approver submits for the awaiting slot
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionDeny    Decision = "DENY"
)

// CreateRequestInput carries the event facts for a new request.
// Requester names and department are taken from the user directory.
type CreateRequestInput struct {
	Username       string
	Name           string
	StartDate      time.Time
	Location       string
	Description    string
	Cost           float64
	GradingFormat  entity.GradingFormat
	EventType      entity.EventType
	WorkTimeMissed string
}

// ApprovalInput is one approver action on the awaiting slot
type ApprovalInput struct {
	RequestID uuid.UUID
	Actor     string
	Decision  Decision
	Reason    string
}

// AmountChangeInput is a benefits coordinator's proposed payout override
type AmountChangeInput struct {
	RequestID uuid.UUID
	Actor     string
	Amount    float64
	Reason    string
}

// WorkflowEngine drives reimbursement requests through the approval chain.
// Mutating operations are serialized with the deadline sweep.
type WorkflowEngine interface {
	CreateRequest(ctx context.Context, in CreateRequestInput) (*entity.ReimbursementRequest, error)
	AdvanceApproval(ctx context.Context, in ApprovalInput) (*entity.ReimbursementRequest, error)
	GetRequest(ctx context.Context, id uuid.UUID) (*entity.ReimbursementRequest, error)
	CancelRequest(ctx context.Context, id uuid.UUID, actor string) error
	ProposeAmountChange(ctx context.Context, in AmountChangeInput) (*entity.ReimbursementRequest, error)
	RecordEmployeeReview(ctx context.Context, id uuid.UUID, actor string, agrees bool) error
	SubmitFinalGrade(ctx context.Context, id uuid.UUID, actor string, grade string) error

	// RunDeadlineSweep auto-resolves or escalates every ACTIVE request past its deadline
	RunDeadlineSweep(ctx context.Context) error

	UploadAttachment(ctx context.Context, id uuid.UUID, actor string, fileType string, content []byte) (string, error)
	ReadAttachment(ctx context.Context, id uuid.UUID, index int) ([]byte, error)
	SubmitApprovalEmail(ctx context.Context, id uuid.UUID, actor string, content []byte) (*entity.ReimbursementRequest, error)
	SubmitPresentation(ctx context.Context, id uuid.UUID, actor string, content []byte) error
	ReadPresentation(ctx context.Context, id uuid.UUID, actor string) ([]byte, error)

	GetHistory(ctx context.Context, id uuid.UUID) ([]*entity.ApprovalHistory, error)
	ListRequestsForUser(ctx context.Context, username string) ([]*entity.ReimbursementRequest, error)
}
