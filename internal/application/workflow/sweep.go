package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// RunDeadlineSweep holds the engine lock for the whole batch. Each request is
// handled in its own transaction; failures are collected and the batch continues.
func (e *engineImpl) RunDeadlineSweep(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	expired, err := e.repos.Requests.ListExpiredActive(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list expired requests: %w", err)
	}
	if len(expired) == 0 {
		return nil
	}

	e.logger.Info("Deadline sweep started", zap.Int("expired", len(expired)))

	var errs error
	for _, req := range expired {
		req := req
		err := e.txManager.WithTransaction(ctx, func(ctx context.Context) error {
			return e.sweepOne(ctx, req)
		})
		if err != nil {
			e.logger.Error("Deadline sweep failed for request",
				zap.String("request_id", req.ID.String()),
				zap.Error(err))
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}

// sweepOne auto-approves the supervisor and department head slots and
// escalates an overdue benefits slot to the benefits department head
func (e *engineImpl) sweepOne(ctx context.Context, req *entity.ReimbursementRequest) error {
	stage, err := scanChain(req)
	if err != nil {
		return err
	}

	switch stage {
	case entity.StageSupervisor, entity.StageDepartmentHead:
		return e.advance(ctx, req, entity.ApprovalAutoApproved, entity.SystemActor, "")
	case entity.StageBenefitsCoordinator:
		return e.escalateBenefits(ctx, req)
	}

	return &domainwf.IntegrityFault{
		RequestID: req.ID.String(),
		Stage:     stage.String(),
		Status:    string(req.Chain.Slot(stage).Status),
		Detail:    "active request has no slot the sweep can act on",
	}
}

func (e *engineImpl) escalateBenefits(ctx context.Context, req *entity.ReimbursementRequest) error {
	if err := e.fire(ctx, req, domainwf.TriggerEscalate); err != nil {
		return err
	}

	dept, err := e.repos.Departments.GetByName(ctx, e.benefitsDepartment)
	if err != nil {
		return fmt.Errorf("failed to load department: %w", err)
	}
	if dept == nil {
		return fmt.Errorf("%w: department %s", domainwf.ErrNotFound, e.benefitsDepartment)
	}

	e.restartDeadline(req)
	if err := e.saveRequest(ctx, req); err != nil {
		return err
	}
	if err := e.notify(ctx, dept.HeadUsername, req.ID, entity.MsgEscalation); err != nil {
		return err
	}

	e.logger.Info("Benefits approval escalated",
		zap.String("request_id", req.ID.String()),
		zap.String("department_head", dept.HeadUsername))

	return e.record(ctx, req, historyEntry{
		stage:    stagePtr(entity.StageBenefitsCoordinator),
		actor:    entity.SystemActor,
		previous: string(entity.ApprovalAwaiting),
		next:     string(entity.ApprovalAwaiting),
		action:   entity.ActionEscalated,
		reason:   dept.HeadUsername,
	})
}
