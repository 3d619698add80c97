package workflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertSingleAwaiting(t *testing.T, req *entity.ReimbursementRequest) {
	t.Helper()
	assert.Equal(t, 1, req.Chain.AwaitingCount(), "exactly one slot must be awaiting")
}

func TestAdvanceApproval_FullChainToAward(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.create(t, entity.GradingLetter)

	req = h.approve(t, req.ID, "sup")
	assert.Equal(t, entity.ApprovalApproved, req.Chain[entity.StageSupervisor].Status)
	assert.Equal(t, entity.ApprovalAwaiting, req.Chain[entity.StageDepartmentHead].Status)
	assert.Equal(t, "head", req.Chain[entity.StageDepartmentHead].Username)
	assertSingleAwaiting(t, req)
	_, supStillNotified := h.notifier.pending("sup", req.ID)
	assert.False(t, supStillNotified)
	_, headNotified := h.notifier.pending("head", req.ID)
	assert.True(t, headNotified)

	before := h.notifier.count()
	req = h.approve(t, req.ID, "head")
	assert.Equal(t, entity.ApprovalAwaiting, req.Chain[entity.StageBenefitsCoordinator].Status)
	assert.Empty(t, req.Chain[entity.StageBenefitsCoordinator].Username)
	assert.Equal(t, before, h.notifier.count(), "benefits slot is not notified directly")
	assertSingleAwaiting(t, req)

	req = h.approve(t, req.ID, "benco")
	assert.Equal(t, entity.RequestStatusApproved, req.Status)
	assert.Equal(t, "benco", req.Chain[entity.StageBenefitsCoordinator].Username)
	assert.Equal(t, "benco", req.Chain[entity.StageFinal].Username)
	assert.Equal(t, entity.ApprovalAwaiting, req.Chain[entity.StageFinal].Status)
	assertSingleAwaiting(t, req)
	msg, ok := h.notifier.pending("emp", req.ID)
	require.True(t, ok)
	assert.Equal(t, entity.MsgSubmitMaterials, msg)

	_, err := h.engine.AdvanceApproval(ctx, ApprovalInput{RequestID: req.ID, Actor: "benco", Decision: DecisionApprove})
	assert.ErrorIs(t, err, domainwf.ErrInvalidState, "final approval needs a grade")

	require.NoError(t, h.engine.SubmitFinalGrade(ctx, req.ID, "emp", "B"))

	req = h.approve(t, req.ID, "benco")
	assert.Equal(t, entity.RequestStatusAwarded, req.Status)
	assert.Equal(t, entity.ApprovalApproved, req.Chain[entity.StageFinal].Status)
	assert.Equal(t, 400.00, req.FinalReimburseAmount)
	assert.Zero(t, req.Chain.AwaitingCount())

	emp := h.user(t, "emp")
	assert.Zero(t, emp.PendingBalance)
	assert.Equal(t, 400.00, emp.AwardedBalance)

	msg, _ = h.notifier.pending("emp", req.ID)
	assert.Equal(t, entity.MsgRequestAwarded, msg)

	_, err = h.engine.AdvanceApproval(ctx, ApprovalInput{RequestID: req.ID, Actor: "benco", Decision: DecisionApprove})
	assert.ErrorIs(t, err, domainwf.ErrInvalidState)

	rows, err := h.engine.GetHistory(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 6)
}

func TestAdvanceApproval_AwardKeepsOverrideAmount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.toBenefits(t)

	_, err := h.engine.ProposeAmountChange(ctx, AmountChangeInput{RequestID: req.ID, Actor: "benco", Amount: 250, Reason: "policy limit"})
	require.NoError(t, err)
	require.NoError(t, h.engine.RecordEmployeeReview(ctx, req.ID, "emp", true))
	h.approve(t, req.ID, "benco")
	require.NoError(t, h.engine.SubmitFinalGrade(ctx, req.ID, "emp", "A"))

	req = h.approve(t, req.ID, "benco")
	assert.Equal(t, 250.00, req.FinalReimburseAmount)
	emp := h.user(t, "emp")
	assert.Zero(t, emp.PendingBalance)
	assert.Equal(t, 250.00, emp.AwardedBalance)
}

func TestAdvanceApproval_RoleCollapseBypassesDepartmentHead(t *testing.T) {
	h := newHarness(t)

	// sam reports to alex, who also heads Sales
	req, err := h.engine.CreateRequest(context.Background(), h.input("sam", 200, entity.GradingPassFail))
	require.NoError(t, err)

	req = h.approve(t, req.ID, "alex")

	assert.Equal(t, entity.ApprovalApproved, req.Chain[entity.StageSupervisor].Status)
	assert.Equal(t, entity.ApprovalBypassed, req.Chain[entity.StageDepartmentHead].Status)
	assert.Equal(t, "alex", req.Chain[entity.StageDepartmentHead].Username)
	assert.Equal(t, entity.ApprovalAwaiting, req.Chain[entity.StageBenefitsCoordinator].Status)
	assertSingleAwaiting(t, req)

	_, stillNotified := h.notifier.pending("alex", req.ID)
	assert.False(t, stillNotified)
}

func TestAdvanceApproval_DenyReleasesReservation(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, h *harness) (*entity.ReimbursementRequest, string)
		stage entity.Stage
	}{
		{
			name: "supervisor",
			setup: func(t *testing.T, h *harness) (*entity.ReimbursementRequest, string) {
				return h.create(t, entity.GradingLetter), "sup"
			},
			stage: entity.StageSupervisor,
		},
		{
			name: "department head",
			setup: func(t *testing.T, h *harness) (*entity.ReimbursementRequest, string) {
				req := h.create(t, entity.GradingLetter)
				return h.approve(t, req.ID, "sup"), "head"
			},
			stage: entity.StageDepartmentHead,
		},
		{
			name: "benefits coordinator",
			setup: func(t *testing.T, h *harness) (*entity.ReimbursementRequest, string) {
				return h.toBenefits(t), "benco"
			},
			stage: entity.StageBenefitsCoordinator,
		},
		{
			name: "final",
			setup: func(t *testing.T, h *harness) (*entity.ReimbursementRequest, string) {
				return h.toFinal(t, entity.GradingLetter), "benco"
			},
			stage: entity.StageFinal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			req, actor := tt.setup(t, h)
			before := req.Chain

			req, err := h.engine.AdvanceApproval(ctx, ApprovalInput{RequestID: req.ID, Actor: actor, Decision: DecisionDeny, Reason: "not job related"})
			require.NoError(t, err)

			assert.Equal(t, entity.RequestStatusDenied, req.Status)
			assert.Equal(t, "not job related", req.Reason)
			assert.Equal(t, entity.ApprovalDenied, req.Chain[tt.stage].Status)
			for i := tt.stage + 1; i < entity.StageCount; i++ {
				assert.Equal(t, before[i], req.Chain[i], "later slots are untouched")
			}
			assert.Zero(t, h.user(t, "emp").PendingBalance)

			msg, ok := h.notifier.pending("emp", req.ID)
			require.True(t, ok)
			assert.Contains(t, msg, "not job related")
			_, stillNotified := h.notifier.pending(actor, req.ID)
			assert.False(t, stillNotified)

			_, err = h.engine.AdvanceApproval(ctx, ApprovalInput{RequestID: req.ID, Actor: actor, Decision: DecisionDeny, Reason: "again"})
			assert.ErrorIs(t, err, domainwf.ErrInvalidState)
		})
	}
}

func TestAdvanceApproval_DenyReleasesOverrideAmount(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.toBenefits(t)

	_, err := h.engine.ProposeAmountChange(ctx, AmountChangeInput{RequestID: req.ID, Actor: "benco", Amount: 150, Reason: "partial"})
	require.NoError(t, err)
	require.NoError(t, h.engine.RecordEmployeeReview(ctx, req.ID, "emp", true))
	assert.Equal(t, 150.00, h.user(t, "emp").PendingBalance)

	_, err = h.engine.AdvanceApproval(ctx, ApprovalInput{RequestID: req.ID, Actor: "benco", Decision: DecisionDeny, Reason: "budget"})
	require.NoError(t, err)
	assert.Zero(t, h.user(t, "emp").PendingBalance)
}

func TestAdvanceApproval_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.create(t, entity.GradingLetter)

	tests := []struct {
		name string
		in   ApprovalInput
		want error
	}{
		{"deny without reason", ApprovalInput{RequestID: req.ID, Actor: "sup", Decision: DecisionDeny, Reason: " "}, domainwf.ErrValidation},
		{"unknown decision", ApprovalInput{RequestID: req.ID, Actor: "sup", Decision: "MAYBE"}, domainwf.ErrValidation},
		{"missing actor", ApprovalInput{RequestID: req.ID, Decision: DecisionApprove}, domainwf.ErrValidation},
		{"wrong approver", ApprovalInput{RequestID: req.ID, Actor: "head", Decision: DecisionApprove}, domainwf.ErrForbidden},
		{"requester approving", ApprovalInput{RequestID: req.ID, Actor: "emp", Decision: DecisionApprove}, domainwf.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.engine.AdvanceApproval(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	stored := h.request(t, req.ID)
	assert.Equal(t, req.Chain, stored.Chain)
	assert.Equal(t, 400.00, h.user(t, "emp").PendingBalance)
}

func TestAdvanceApproval_BenefitsSlotNeedsBenefitsStaff(t *testing.T) {
	h := newHarness(t)
	req := h.toBenefits(t)

	_, err := h.engine.AdvanceApproval(context.Background(), ApprovalInput{RequestID: req.ID, Actor: "sup", Decision: DecisionApprove})
	assert.ErrorIs(t, err, domainwf.ErrForbidden)

	// the benefits department head may act as coordinator
	req = h.approve(t, req.ID, "ben-head")
	assert.Equal(t, "ben-head", req.Chain[entity.StageBenefitsCoordinator].Username)
	assert.Equal(t, "ben-head", req.Chain[entity.StageFinal].Username)
}

func TestAdvanceApproval_IntegrityFaults(t *testing.T) {
	tests := []struct {
		name  string
		chain func(c *entity.ApprovalChain)
	}{
		{"denied slot mid-chain", func(c *entity.ApprovalChain) {
			c[entity.StageSupervisor].Status = entity.ApprovalDenied
		}},
		{"unassigned slot before awaiting", func(c *entity.ApprovalChain) {
			c[entity.StageSupervisor].Status = entity.ApprovalUnassigned
		}},
		{"no awaiting slot", func(c *entity.ApprovalChain) {
			for i := range c {
				c[i].Status = entity.ApprovalApproved
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			req := h.create(t, entity.GradingLetter)
			tt.chain(&req.Chain)
			h.requests.put(req)

			_, err := h.engine.AdvanceApproval(context.Background(), ApprovalInput{RequestID: req.ID, Actor: "sup", Decision: DecisionApprove})

			require.ErrorIs(t, err, domainwf.ErrWorkflowIntegrity)
			var fault *domainwf.IntegrityFault
			assert.ErrorAs(t, err, &fault)
			assert.Equal(t, req.ID.String(), fault.RequestID)
		})
	}
}

func TestAdvanceApproval_PersistenceFailurePropagates(t *testing.T) {
	h := newHarness(t)
	req := h.create(t, entity.GradingLetter)
	h.requests.updateErr = assert.AnError

	_, err := h.engine.AdvanceApproval(context.Background(), ApprovalInput{RequestID: req.ID, Actor: "sup", Decision: DecisionApprove})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestAdvanceApproval_SerializedWithSweep(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := h.create(t, entity.GradingLetter)
	h.clock.Advance(DefaultResponseWindow + time.Minute)

	var wg sync.WaitGroup
	var approveErr, sweepErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, approveErr = h.engine.AdvanceApproval(ctx, ApprovalInput{RequestID: req.ID, Actor: "sup", Decision: DecisionApprove})
	}()
	go func() {
		defer wg.Done()
		sweepErr = h.engine.RunDeadlineSweep(ctx)
	}()
	wg.Wait()

	require.NoError(t, sweepErr)

	stored := h.request(t, req.ID)
	assert.True(t, stored.Chain[entity.StageSupervisor].Status.IsResolvedApproval())
	assert.Equal(t, entity.ApprovalAwaiting, stored.Chain[entity.StageDepartmentHead].Status)
	assertSingleAwaiting(t, stored)

	// whichever ran second found the slot already resolved
	if approveErr != nil {
		assert.ErrorIs(t, approveErr, domainwf.ErrForbidden)
		assert.Equal(t, entity.ApprovalAutoApproved, stored.Chain[entity.StageSupervisor].Status)
	} else {
		assert.Equal(t, entity.ApprovalApproved, stored.Chain[entity.StageSupervisor].Status)
	}

	rows, err := h.engine.GetHistory(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2, "one creation row and exactly one supervisor resolution")
}
