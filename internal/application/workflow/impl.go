package workflow

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults applied when no option overrides them
const (
	DefaultResponseWindow     = 72 * time.Hour
	DefaultOrgCap             = 1000.00
	DefaultUrgentWindow       = 14 * 24 * time.Hour
	DefaultBenefitsDepartment = "Benefits"
)

// Repositories groups the persistence collaborators of the engine
type Repositories struct {
	Requests    port.RequestRepository
	Users       port.UserRepository
	Departments port.DepartmentRepository
	History     port.HistoryRepository
}

// engineImpl is the concrete implementation of WorkflowEngine.
//
// mu serializes every load-decide-write sequence and the whole deadline sweep
// batch. It only guards this process; running several replicas against one
// database needs a distributed lock or a per-request lock table instead.
type engineImpl struct {
	repos     Repositories
	notifier  port.Notifier
	storage   port.FileStorage
	txManager port.TransactionManager
	logger    *zap.Logger

	mu sync.Mutex

	responseWindow     time.Duration
	orgCap             float64
	urgentWindow       time.Duration
	benefitsDepartment string
	now                func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithResponseWindow sets how long an approver has before the sweep acts
func WithResponseWindow(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		e.responseWindow = d
	}
}

// WithOrgCap sets the per-user reimbursement ceiling
func WithOrgCap(limit float64) EngineOption {
	return func(e *engineImpl) {
		e.orgCap = limit
	}
}

// WithUrgentWindow sets how close an event must start to be flagged urgent
func WithUrgentWindow(d time.Duration) EngineOption {
	return func(e *engineImpl) {
		e.urgentWindow = d
	}
}

// WithBenefitsDepartment names the department whose members act on the benefits slot
func WithBenefitsDepartment(name string) EngineOption {
	return func(e *engineImpl) {
		e.benefitsDepartment = name
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	repos Repositories,
	notifier port.Notifier,
	storage port.FileStorage,
	txManager port.TransactionManager,
	logger *zap.Logger,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		repos:              repos,
		notifier:           notifier,
		storage:            storage,
		txManager:          txManager,
		logger:             logger,
		responseWindow:     DefaultResponseWindow,
		orgCap:             DefaultOrgCap,
		urgentWindow:       DefaultUrgentWindow,
		benefitsDepartment: DefaultBenefitsDepartment,
		now:                time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// mutate runs fn under the engine lock inside one transaction
func (e *engineImpl) mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.txManager.WithTransaction(ctx, fn)
}

// loadRequest fetches a request, mapping a missing row to ErrNotFound
func (e *engineImpl) loadRequest(ctx context.Context, id uuid.UUID) (*entity.ReimbursementRequest, error) {
	req, err := e.repos.Requests.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load request: %w", err)
	}
	if req == nil {
		return nil, fmt.Errorf("%w: request %s", domainwf.ErrNotFound, id)
	}
	return req, nil
}

func (e *engineImpl) loadUser(ctx context.Context, username string) (*entity.User, error) {
	user, err := e.repos.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", domainwf.ErrNotFound, username)
	}
	return user, nil
}

func (e *engineImpl) saveRequest(ctx context.Context, req *entity.ReimbursementRequest) error {
	req.UpdatedAt = e.now()
	if err := e.repos.Requests.Update(ctx, req); err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	return nil
}

func (e *engineImpl) saveUser(ctx context.Context, user *entity.User) error {
	user.UpdatedAt = e.now()
	if err := e.repos.Users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// adjustPending moves the requester's pending balance by delta
func (e *engineImpl) adjustPending(ctx context.Context, username string, delta float64) error {
	user, err := e.loadUser(ctx, username)
	if err != nil {
		return err
	}
	user.PendingBalance = roundCents(user.PendingBalance + delta)
	return e.saveUser(ctx, user)
}

// fire applies trigger to the request status through the state machine
func (e *engineImpl) fire(ctx context.Context, req *entity.ReimbursementRequest, trigger domainwf.Trigger) error {
	if !domainwf.State(req.Status).IsValid() {
		return &domainwf.IntegrityFault{
			RequestID: req.ID.String(),
			Status:    string(req.Status),
			Detail:    "unknown request status",
		}
	}

	machine := BuildRequestStateMachine(req)
	if err := machine.Fire(ctx, trigger); err != nil {
		return fmt.Errorf("%w: %v", domainwf.ErrInvalidState, err)
	}
	req.Status = entity.RequestStatus(machine.State())
	return nil
}

func (e *engineImpl) notify(ctx context.Context, username string, requestID uuid.UUID, message string) error {
	if username == "" {
		return nil
	}
	if err := e.notifier.Notify(ctx, username, requestID, message); err != nil {
		return fmt.Errorf("failed to notify %s: %w", username, err)
	}
	return nil
}

func (e *engineImpl) clearNotification(ctx context.Context, username string, requestID uuid.UUID) error {
	if username == "" {
		return nil
	}
	if err := e.notifier.ClearNotification(ctx, username, requestID); err != nil {
		return fmt.Errorf("failed to clear notification for %s: %w", username, err)
	}
	return nil
}

// historyEntry describes one audit row; Stage is optional
type historyEntry struct {
	stage    *entity.Stage
	actor    string
	previous string
	next     string
	action   entity.HistoryAction
	reason   string
}

func (e *engineImpl) record(ctx context.Context, req *entity.ReimbursementRequest, h historyEntry) error {
	row := &entity.ApprovalHistory{
		RequestID:      req.ID,
		Actor:          h.actor,
		PreviousStatus: h.previous,
		NewStatus:      h.next,
		Action:         h.action,
		Reason:         h.reason,
		Timestamp:      e.now(),
	}
	if h.stage != nil {
		row.Stage = h.stage.String()
	}

	if err := e.repos.History.Create(ctx, row); err != nil {
		return fmt.Errorf("failed to create history record: %w", err)
	}
	return nil
}

// isBenefitsStaff reports whether user may act on the benefits coordinator slot
func (e *engineImpl) isBenefitsStaff(user *entity.User) bool {
	return user.Role == entity.RoleBenefitsCoordinator || user.DepartmentName == e.benefitsDepartment
}

func (e *engineImpl) restartDeadline(req *entity.ReimbursementRequest) {
	req.Deadline = e.now().Add(e.responseWindow)
}

// GetRequest returns a request by id
func (e *engineImpl) GetRequest(ctx context.Context, id uuid.UUID) (*entity.ReimbursementRequest, error) {
	return e.loadRequest(ctx, id)
}

// GetHistory returns the audit trail of a request, oldest first
func (e *engineImpl) GetHistory(ctx context.Context, id uuid.UUID) ([]*entity.ApprovalHistory, error) {
	if _, err := e.loadRequest(ctx, id); err != nil {
		return nil, err
	}
	rows, err := e.repos.History.GetByRequestID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return rows, nil
}

// ListRequestsForUser returns every request filed by username
func (e *engineImpl) ListRequestsForUser(ctx context.Context, username string) ([]*entity.ReimbursementRequest, error) {
	if _, err := e.loadUser(ctx, username); err != nil {
		return nil, err
	}
	reqs, err := e.repos.Requests.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return reqs, nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func stagePtr(s entity.Stage) *entity.Stage {
	return &s
}
