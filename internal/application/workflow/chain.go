package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"go.uber.org/zap"
)

// stageOutcome is what a stage handler decides once its slot resolved
type stageOutcome struct {
	next         entity.Stage
	hasNext      bool
	nextApprover string
	// bypassNext resolves the next slot immediately because its approver already acted
	bypassNext bool
}

// scanChain walks the slots left to right and returns the one awaiting action.
// A DENIED or UNASSIGNED slot ahead of it, or no awaiting slot at all, is an integrity fault.
func scanChain(req *entity.ReimbursementRequest) (entity.Stage, error) {
	for i := 0; i < entity.StageCount; i++ {
		stage := entity.Stage(i)
		slot := req.Chain.Slot(stage)
		switch {
		case slot.Status.IsResolvedApproval():
			continue
		case slot.Status == entity.ApprovalAwaiting:
			return stage, nil
		default:
			return stage, &domainwf.IntegrityFault{
				RequestID: req.ID.String(),
				Stage:     stage.String(),
				Status:    string(slot.Status),
				Detail:    "chain scan reached a slot that is not awaiting action",
			}
		}
	}

	return 0, &domainwf.IntegrityFault{
		RequestID: req.ID.String(),
		Detail:    "no slot is awaiting action",
	}
}

// AdvanceApproval applies an approver's decision to the awaiting slot
func (e *engineImpl) AdvanceApproval(ctx context.Context, in ApprovalInput) (*entity.ReimbursementRequest, error) {
	var status entity.ApprovalStatus
	switch in.Decision {
	case DecisionApprove:
		status = entity.ApprovalApproved
	case DecisionDeny:
		status = entity.ApprovalDenied
		if isBlank(in.Reason) {
			return nil, fmt.Errorf("%w: a reason is required when denying", domainwf.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown decision %q", domainwf.ErrValidation, in.Decision)
	}
	if isBlank(in.Actor) {
		return nil, fmt.Errorf("%w: actor is required", domainwf.ErrValidation)
	}

	var result *entity.ReimbursementRequest
	err := e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if !req.Status.AcceptsApprovals() {
			return fmt.Errorf("%w: request %s is %s", domainwf.ErrInvalidState, req.ID, req.Status)
		}
		if req.NeedsEmployeeReview {
			return fmt.Errorf("%w: request %s is waiting for the employee to review the changed amount", domainwf.ErrInvalidState, req.ID)
		}

		stage, err := scanChain(req)
		if err != nil {
			return err
		}
		if err := e.authorizeApprover(ctx, req, stage, in.Actor); err != nil {
			return err
		}
		if stage == entity.StageFinal && status == entity.ApprovalApproved && !req.HasFinalMaterials() {
			return fmt.Errorf("%w: final grade or presentation has not been submitted", domainwf.ErrInvalidState)
		}

		if err := e.advance(ctx, req, status, in.Actor, in.Reason); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		e.logger.Warn("Approval action failed",
			zap.String("request_id", in.RequestID.String()),
			zap.String("actor", in.Actor),
			zap.String("decision", string(in.Decision)),
			zap.Error(err))
		return nil, err
	}

	return result, nil
}

// authorizeApprover checks the actor against the awaiting slot.
// Any benefits staff member may take the benefits slot and is bound to it.
func (e *engineImpl) authorizeApprover(ctx context.Context, req *entity.ReimbursementRequest, stage entity.Stage, actor string) error {
	slot := req.Chain.Slot(stage)

	if stage == entity.StageBenefitsCoordinator {
		user, err := e.loadUser(ctx, actor)
		if err != nil {
			return fmt.Errorf("%w: %v", domainwf.ErrForbidden, err)
		}
		if !e.isBenefitsStaff(user) {
			return fmt.Errorf("%w: %s is not a benefits coordinator", domainwf.ErrForbidden, actor)
		}
		slot.Username = actor
		return nil
	}

	if slot.Username != actor {
		return fmt.Errorf("%w: %s is not the %s approver", domainwf.ErrForbidden, actor, stage)
	}
	return nil
}

// advance resolves the awaiting slot with status and activates the next one.
// Exactly one slot is resolved, plus any slot bypassed because its approver already acted.
func (e *engineImpl) advance(ctx context.Context, req *entity.ReimbursementRequest, status entity.ApprovalStatus, actor, reason string) error {
	if !req.Status.AcceptsApprovals() {
		return fmt.Errorf("%w: request %s is %s", domainwf.ErrInvalidState, req.ID, req.Status)
	}

	stage, err := scanChain(req)
	if err != nil {
		return err
	}

	if status == entity.ApprovalDenied {
		return e.deny(ctx, req, stage, actor, reason)
	}

	for {
		slot := req.Chain.Slot(stage)
		previous := slot.Status
		slot.Status = status

		outcome, err := e.handleStage(ctx, req, stage)
		if err != nil {
			return err
		}

		if err := e.clearNotification(ctx, slot.Username, req.ID); err != nil {
			return err
		}
		if err := e.record(ctx, req, historyEntry{
			stage:    stagePtr(stage),
			actor:    actor,
			previous: string(previous),
			next:     string(status),
			action:   historyAction(status),
			reason:   reason,
		}); err != nil {
			return err
		}

		e.logger.Info("Approval slot resolved",
			zap.String("request_id", req.ID.String()),
			zap.String("stage", stage.String()),
			zap.String("status", string(status)),
			zap.String("actor", actor))

		if !outcome.hasNext {
			break
		}

		next := req.Chain.Slot(outcome.next)
		next.Username = outcome.nextApprover
		next.Status = entity.ApprovalAwaiting
		e.restartDeadline(req)

		if outcome.bypassNext {
			// same person already acted; resolve the next slot in this call
			stage = outcome.next
			status = entity.ApprovalBypassed
			continue
		}

		if outcome.next != entity.StageBenefitsCoordinator {
			if err := e.notify(ctx, next.Username, req.ID, entity.MsgApprovalNeeded); err != nil {
				return err
			}
		}
		break
	}

	return e.saveRequest(ctx, req)
}

// handleStage applies the side effects of a resolved slot and picks the next stage
func (e *engineImpl) handleStage(ctx context.Context, req *entity.ReimbursementRequest, stage entity.Stage) (stageOutcome, error) {
	switch stage {
	case entity.StageSupervisor:
		return e.onSupervisorResolved(ctx, req)
	case entity.StageDepartmentHead:
		return e.onDepartmentHeadResolved(ctx, req)
	case entity.StageBenefitsCoordinator:
		return e.onBenefitsResolved(ctx, req)
	case entity.StageFinal:
		return e.onFinalResolved(ctx, req)
	}
	return stageOutcome{}, &domainwf.IntegrityFault{
		RequestID: req.ID.String(),
		Stage:     stage.String(),
		Detail:    "unknown stage",
	}
}

func (e *engineImpl) onSupervisorResolved(ctx context.Context, req *entity.ReimbursementRequest) (stageOutcome, error) {
	if err := e.fire(ctx, req, domainwf.TriggerAdvance); err != nil {
		return stageOutcome{}, err
	}

	dept, err := e.repos.Departments.GetByName(ctx, req.DeptName)
	if err != nil {
		return stageOutcome{}, fmt.Errorf("failed to load department: %w", err)
	}
	if dept == nil {
		return stageOutcome{}, fmt.Errorf("%w: department %s", domainwf.ErrNotFound, req.DeptName)
	}

	supervisor := req.Chain.Slot(entity.StageSupervisor).Username
	return stageOutcome{
		next:         entity.StageDepartmentHead,
		hasNext:      true,
		nextApprover: dept.HeadUsername,
		bypassNext:   dept.HeadUsername == supervisor,
	}, nil
}

func (e *engineImpl) onDepartmentHeadResolved(ctx context.Context, req *entity.ReimbursementRequest) (stageOutcome, error) {
	if err := e.fire(ctx, req, domainwf.TriggerAdvance); err != nil {
		return stageOutcome{}, err
	}
	// the coordinator is bound when someone from benefits acts
	return stageOutcome{next: entity.StageBenefitsCoordinator, hasNext: true}, nil
}

func (e *engineImpl) onBenefitsResolved(ctx context.Context, req *entity.ReimbursementRequest) (stageOutcome, error) {
	if err := e.fire(ctx, req, domainwf.TriggerApprove); err != nil {
		return stageOutcome{}, err
	}

	// live presentations need a peer sign-off from the supervisor
	approver := req.Chain.Slot(entity.StageBenefitsCoordinator).Username
	if req.GradingFormat == entity.GradingPresentation {
		approver = req.Chain.Slot(entity.StageSupervisor).Username
	}

	if err := e.notify(ctx, req.Username, req.ID, entity.MsgSubmitMaterials); err != nil {
		return stageOutcome{}, err
	}

	return stageOutcome{next: entity.StageFinal, hasNext: true, nextApprover: approver}, nil
}

func (e *engineImpl) onFinalResolved(ctx context.Context, req *entity.ReimbursementRequest) (stageOutcome, error) {
	if err := e.fire(ctx, req, domainwf.TriggerAward); err != nil {
		return stageOutcome{}, err
	}

	if req.FinalReimburseAmount <= 0 {
		req.FinalReimburseAmount = req.ReimburseAmount
	}

	user, err := e.loadUser(ctx, req.Username)
	if err != nil {
		return stageOutcome{}, err
	}
	user.PendingBalance = roundCents(user.PendingBalance - req.FinalReimburseAmount)
	user.AwardedBalance = roundCents(user.AwardedBalance + req.FinalReimburseAmount)
	if err := e.saveUser(ctx, user); err != nil {
		return stageOutcome{}, err
	}

	if err := e.notify(ctx, req.Username, req.ID, entity.MsgRequestAwarded); err != nil {
		return stageOutcome{}, err
	}

	e.logger.Info("Reimbursement awarded",
		zap.String("request_id", req.ID.String()),
		zap.String("username", req.Username),
		zap.Float64("amount", req.FinalReimburseAmount))

	return stageOutcome{}, nil
}

// deny ends the chain at stage and releases the reserved amount
func (e *engineImpl) deny(ctx context.Context, req *entity.ReimbursementRequest, stage entity.Stage, actor, reason string) error {
	slot := req.Chain.Slot(stage)
	previous := slot.Status

	if err := e.fire(ctx, req, domainwf.TriggerDeny); err != nil {
		return err
	}
	slot.Status = entity.ApprovalDenied
	req.Reason = reason

	if err := e.adjustPending(ctx, req.Username, -req.ReservedAmount()); err != nil {
		return err
	}
	if err := e.saveRequest(ctx, req); err != nil {
		return err
	}

	if err := e.notify(ctx, req.Username, req.ID, fmt.Sprintf("%s: %s", entity.MsgRequestDenied, reason)); err != nil {
		return err
	}
	if err := e.clearNotification(ctx, slot.Username, req.ID); err != nil {
		return err
	}

	e.logger.Info("Request denied",
		zap.String("request_id", req.ID.String()),
		zap.String("stage", stage.String()),
		zap.String("actor", actor))

	return e.record(ctx, req, historyEntry{
		stage:    stagePtr(stage),
		actor:    actor,
		previous: string(previous),
		next:     string(entity.ApprovalDenied),
		action:   entity.ActionDenied,
		reason:   reason,
	})
}

func historyAction(status entity.ApprovalStatus) entity.HistoryAction {
	switch status {
	case entity.ApprovalAutoApproved:
		return entity.ActionAutoApproved
	case entity.ApprovalBypassed:
		return entity.ActionBypassed
	case entity.ApprovalDenied:
		return entity.ActionDenied
	}
	return entity.ActionApproved
}
