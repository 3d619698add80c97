package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CancelRequest withdraws an ACTIVE request on behalf of its requester
func (e *engineImpl) CancelRequest(ctx context.Context, id uuid.UUID, actor string) error {
	err := e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Username != actor {
			return fmt.Errorf("%w: only the requester may cancel", domainwf.ErrForbidden)
		}
		return e.cancel(ctx, req, actor, entity.ActionCancelled)
	})
	if err != nil {
		e.logger.Warn("Cancel failed", zap.String("request_id", id.String()), zap.Error(err))
		return err
	}
	return nil
}

// cancel moves an ACTIVE request to CANCELLED and releases its reservation
func (e *engineImpl) cancel(ctx context.Context, req *entity.ReimbursementRequest, actor string, action entity.HistoryAction) error {
	previous := req.Status
	if err := e.fire(ctx, req, domainwf.TriggerCancel); err != nil {
		return err
	}

	if err := e.adjustPending(ctx, req.Username, -req.ReservedAmount()); err != nil {
		return err
	}
	if err := e.saveRequest(ctx, req); err != nil {
		return err
	}

	if stage, ok := req.Chain.Awaiting(); ok {
		if err := e.clearNotification(ctx, req.Chain.Slot(stage).Username, req.ID); err != nil {
			return err
		}
	}

	e.logger.Info("Request cancelled",
		zap.String("request_id", req.ID.String()),
		zap.Float64("released", req.ReservedAmount()))

	return e.record(ctx, req, historyEntry{
		actor:    actor,
		previous: string(previous),
		next:     string(req.Status),
		action:   action,
	})
}

// ProposeAmountChange lets a benefits coordinator override the payout.
// The requester must confirm the new amount before the chain can advance.
func (e *engineImpl) ProposeAmountChange(ctx context.Context, in AmountChangeInput) (*entity.ReimbursementRequest, error) {
	if in.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than zero", domainwf.ErrValidation)
	}
	if isBlank(in.Reason) {
		return nil, fmt.Errorf("%w: a reason is required", domainwf.ErrValidation)
	}

	var result *entity.ReimbursementRequest
	err := e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, in.RequestID)
		if err != nil {
			return err
		}
		if req.NeedsEmployeeReview {
			return fmt.Errorf("%w: a changed amount is already waiting for review", domainwf.ErrInvalidState)
		}
		if err := e.fire(ctx, req, domainwf.TriggerRenegotiate); err != nil {
			return err
		}

		actor, err := e.loadUser(ctx, in.Actor)
		if err != nil {
			return fmt.Errorf("%w: %v", domainwf.ErrForbidden, err)
		}
		if !e.isBenefitsStaff(actor) {
			return fmt.Errorf("%w: %s is not a benefits coordinator", domainwf.ErrForbidden, in.Actor)
		}
		req.Chain.Slot(entity.StageBenefitsCoordinator).Username = actor.Username

		amount := roundCents(in.Amount)
		delta := roundCents(amount - req.ReservedAmount())
		if err := e.adjustPending(ctx, req.Username, delta); err != nil {
			return err
		}

		previous := req.ReservedAmount()
		req.FinalReimburseAmount = amount
		req.FinalReimburseAmountReason = in.Reason
		req.NeedsEmployeeReview = true
		req.EmployeeAgrees = false
		if err := e.saveRequest(ctx, req); err != nil {
			return err
		}

		if err := e.notify(ctx, req.Username, req.ID, entity.MsgReviewNeeded); err != nil {
			return err
		}

		e.logger.Info("Reimbursement amount changed",
			zap.String("request_id", req.ID.String()),
			zap.String("actor", in.Actor),
			zap.Float64("previous", previous),
			zap.Float64("amount", amount))

		result = req
		return e.record(ctx, req, historyEntry{
			stage:    stagePtr(entity.StageBenefitsCoordinator),
			actor:    in.Actor,
			previous: fmt.Sprintf("%.2f", previous),
			next:     fmt.Sprintf("%.2f", amount),
			action:   entity.ActionAmountProposed,
			reason:   in.Reason,
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordEmployeeReview records the requester's answer to a changed amount.
// Disagreeing cancels the request.
func (e *engineImpl) RecordEmployeeReview(ctx context.Context, id uuid.UUID, actor string, agrees bool) error {
	return e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, id)
		if err != nil {
			return err
		}
		if req.Username != actor {
			return fmt.Errorf("%w: only the requester may review the changed amount", domainwf.ErrForbidden)
		}
		if !req.NeedsEmployeeReview {
			return fmt.Errorf("%w: no changed amount is waiting for review", domainwf.ErrInvalidState)
		}

		benefits := req.Chain.Slot(entity.StageBenefitsCoordinator)
		coordinator := benefits.Username

		if !agrees {
			if err := e.clearNotification(ctx, coordinator, req.ID); err != nil {
				return err
			}
			benefits.Status = entity.ApprovalUnassigned
			benefits.Username = ""
			req.NeedsEmployeeReview = false
			req.EmployeeAgrees = false
			return e.cancel(ctx, req, actor, entity.ActionEmployeeDisagree)
		}

		req.NeedsEmployeeReview = false
		req.EmployeeAgrees = true
		if err := e.saveRequest(ctx, req); err != nil {
			return err
		}
		if err := e.notify(ctx, coordinator, req.ID, entity.MsgEmployeeAgreed); err != nil {
			return err
		}

		return e.record(ctx, req, historyEntry{
			stage:  stagePtr(entity.StageBenefitsCoordinator),
			actor:  actor,
			action: entity.ActionEmployeeAgreed,
		})
	})
}
