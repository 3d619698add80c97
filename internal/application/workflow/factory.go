package workflow

import (
	"context"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
)

// BuildRequestStateMachine creates a state machine positioned at the request's status.
// Guards read the request, so the machine must not outlive the transition it serves.
func BuildRequestStateMachine(req *entity.ReimbursementRequest) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	benefitsAwaiting := func(ctx context.Context) bool {
		return req.Chain.Slot(entity.StageBenefitsCoordinator).Status == entity.ApprovalAwaiting
	}
	finalAwaiting := func(ctx context.Context) bool {
		return req.Chain.Slot(entity.StageFinal).Status == entity.ApprovalAwaiting
	}
	materialsSubmitted := func(ctx context.Context) bool {
		return req.HasFinalMaterials()
	}

	// ACTIVE: supervisor, department head and benefits coordinator slots
	builder.Configure(domainwf.StateActive).
		Permit(domainwf.TriggerAdvance, domainwf.StateActive).
		Permit(domainwf.TriggerApprove, domainwf.StateApproved).
		Permit(domainwf.TriggerDeny, domainwf.StateDenied).
		Permit(domainwf.TriggerCancel, domainwf.StateCancelled).
		PermitIf(domainwf.TriggerRenegotiate, domainwf.StateActive, benefitsAwaiting).
		PermitIf(domainwf.TriggerEscalate, domainwf.StateActive, benefitsAwaiting)

	// APPROVED: only the final slot remains
	builder.Configure(domainwf.StateApproved).
		PermitIf(domainwf.TriggerSubmitGrade, domainwf.StateApproved, finalAwaiting).
		PermitIf(domainwf.TriggerAward, domainwf.StateAwarded, materialsSubmitted).
		Permit(domainwf.TriggerDeny, domainwf.StateDenied)

	// DENIED, CANCELLED and AWARDED are terminal

	return builder.Build(domainwf.State(req.Status))
}
