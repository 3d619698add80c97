package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (e *engineImpl) validateCreate(in CreateRequestInput) error {
	required := map[string]string{
		"username":    in.Username,
		"name":        in.Name,
		"location":    in.Location,
		"description": in.Description,
	}
	for field, value := range required {
		if isBlank(value) {
			return fmt.Errorf("%w: %s is required", domainwf.ErrValidation, field)
		}
	}

	if !in.GradingFormat.IsValid() {
		return fmt.Errorf("%w: unknown grading format %q", domainwf.ErrValidation, in.GradingFormat)
	}
	if !in.EventType.IsValid() {
		return fmt.Errorf("%w: unknown event type %q", domainwf.ErrValidation, in.EventType)
	}
	// cost is stored in cents
	if roundCents(in.Cost) <= 0 {
		return fmt.Errorf("%w: cost must be at least 0.01", domainwf.ErrValidation)
	}
	if in.StartDate.IsZero() {
		return fmt.Errorf("%w: start date is required", domainwf.ErrValidation)
	}
	if !startsAfterToday(in.StartDate, e.now()) {
		return fmt.Errorf("%w: start date must be in the future", domainwf.ErrValidation)
	}
	return nil
}

// startsAfterToday compares calendar days in now's location
func startsAfterToday(start, now time.Time) bool {
	loc := now.Location()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, loc)

	y, m, d = start.In(loc).Date()
	startDay := time.Date(y, m, d, 0, 0, 0, 0, loc)

	return startDay.After(today)
}

// grantAmount caps the reimbursable share of cost at the user's remaining headroom.
// When the user has no headroom left the full amount is granted.
func (e *engineImpl) grantAmount(user *entity.User, cost float64, eventType entity.EventType) float64 {
	amount := roundCents(cost * eventType.Percentage())
	headroom := roundCents(e.orgCap - user.AwardedBalance - user.PendingBalance)
	if amount > headroom && headroom > 0 {
		amount = headroom
	}
	return amount
}

// CreateRequest validates the event facts, reserves the granted amount and
// puts the request in front of the requester's supervisor
func (e *engineImpl) CreateRequest(ctx context.Context, in CreateRequestInput) (*entity.ReimbursementRequest, error) {
	if err := e.validateCreate(in); err != nil {
		return nil, err
	}

	var req *entity.ReimbursementRequest
	err := e.mutate(ctx, func(ctx context.Context) error {
		user, err := e.repos.Users.GetByUsername(ctx, in.Username)
		if err != nil {
			return fmt.Errorf("failed to load user: %w", err)
		}
		if user == nil {
			return fmt.Errorf("%w: unknown requester %s", domainwf.ErrValidation, in.Username)
		}
		if user.SupervisorUsername == "" {
			return fmt.Errorf("%w: requester %s has no supervisor", domainwf.ErrValidation, in.Username)
		}

		now := e.now()
		req = &entity.ReimbursementRequest{
			ID:             uuid.New(),
			Username:       user.Username,
			FirstName:      user.FirstName,
			LastName:       user.LastName,
			DeptName:       user.DepartmentName,
			Status:         entity.RequestStatusActive,
			IsUrgent:       in.StartDate.Before(now.Add(e.urgentWindow)),
			Name:           in.Name,
			StartDate:      in.StartDate,
			Location:       in.Location,
			Description:    in.Description,
			Cost:           roundCents(in.Cost),
			GradingFormat:  in.GradingFormat,
			EventType:      in.EventType,
			WorkTimeMissed: in.WorkTimeMissed,
			AttachmentURIs: []string{},
			Chain:          entity.NewApprovalChain(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		req.ReimburseAmount = e.grantAmount(user, req.Cost, in.EventType)

		supervisor := req.Chain.Slot(entity.StageSupervisor)
		supervisor.Username = user.SupervisorUsername
		supervisor.Status = entity.ApprovalAwaiting
		e.restartDeadline(req)

		if err := e.repos.Requests.Create(ctx, req); err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		user.PendingBalance = roundCents(user.PendingBalance + req.ReimburseAmount)
		if err := e.saveUser(ctx, user); err != nil {
			return err
		}

		if err := e.notify(ctx, supervisor.Username, req.ID, entity.MsgApprovalNeeded); err != nil {
			return err
		}

		return e.record(ctx, req, historyEntry{
			stage:  stagePtr(entity.StageSupervisor),
			actor:  user.Username,
			next:   string(entity.RequestStatusActive),
			action: entity.ActionCreated,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Request created",
		zap.String("request_id", req.ID.String()),
		zap.String("username", req.Username),
		zap.Float64("cost", req.Cost),
		zap.Float64("granted", req.ReimburseAmount),
		zap.Bool("urgent", req.IsUrgent))

	return req, nil
}
