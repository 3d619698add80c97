package entity

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction names the kind of change recorded in the audit trail
type HistoryAction string

const (
	ActionCreated          HistoryAction = "CREATED"
	ActionApproved         HistoryAction = "APPROVED"
	ActionDenied           HistoryAction = "DENIED"
	ActionAutoApproved     HistoryAction = "AUTO_APPROVED"
	ActionBypassed         HistoryAction = "BYPASSED"
	ActionEscalated        HistoryAction = "ESCALATED"
	ActionCancelled        HistoryAction = "CANCELLED"
	ActionAmountProposed   HistoryAction = "AMOUNT_PROPOSED"
	ActionEmployeeAgreed   HistoryAction = "EMPLOYEE_AGREED"
	ActionEmployeeDisagree HistoryAction = "EMPLOYEE_DISAGREED"
	ActionGradeSubmitted   HistoryAction = "GRADE_SUBMITTED"
	ActionAttachmentAdded  HistoryAction = "ATTACHMENT_ADDED"
)

// ApprovalHistory is one row of a request's audit trail
type ApprovalHistory struct {
	ID             int64         `json:"id"`
	RequestID      uuid.UUID     `json:"request_id"`
	Stage          string        `json:"stage,omitempty"`
	Actor          string        `json:"actor"`
	PreviousStatus string        `json:"previous_status"`
	NewStatus      string        `json:"new_status"`
	Action         HistoryAction `json:"action"`
	Reason         string        `json:"reason,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// SystemActor is recorded for transitions driven by the deadline sweep
const SystemActor = "system"
