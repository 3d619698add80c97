package workflow

// Trigger is a workflow action that may change the request status
type Trigger string

const (
	// TriggerAdvance resolves a chain slot without changing the request status
	TriggerAdvance Trigger = "ADVANCE"
	// TriggerApprove resolves the benefits coordinator slot
	TriggerApprove     Trigger = "APPROVE"
	TriggerAward       Trigger = "AWARD"
	TriggerDeny        Trigger = "DENY"
	TriggerCancel      Trigger = "CANCEL"
	TriggerRenegotiate Trigger = "RENEGOTIATE"
	TriggerEscalate    Trigger = "ESCALATE"
	TriggerSubmitGrade Trigger = "SUBMIT_GRADE"
)

func (t Trigger) String() string {
	return string(t)
}
