package entity

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the top-level lifecycle status of a reimbursement request
type RequestStatus string

const (
	RequestStatusActive    RequestStatus = "ACTIVE"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusDenied    RequestStatus = "DENIED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
	RequestStatusAwarded   RequestStatus = "AWARDED"
)

// AcceptsApprovals reports whether approval actions are legal in this status
func (s RequestStatus) AcceptsApprovals() bool {
	return s == RequestStatusActive || s == RequestStatusApproved
}

// IsTerminal reports whether the request can no longer change
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusDenied || s == RequestStatusCancelled || s == RequestStatusAwarded
}

// ReimbursementRequest aggregates event facts, the approval chain and the granted amounts.
// Requester fields are a snapshot taken at creation time.
type ReimbursementRequest struct {
	ID        uuid.UUID     `json:"id"`
	Username  string        `json:"username"`
	FirstName string        `json:"first_name"`
	LastName  string        `json:"last_name"`
	DeptName  string        `json:"department"`
	Status    RequestStatus `json:"status"`
	IsUrgent  bool          `json:"is_urgent"`

	Name           string        `json:"name"`
	StartDate      time.Time     `json:"start_date"`
	Location       string        `json:"location"`
	Description    string        `json:"description"`
	Cost           float64       `json:"cost"`
	GradingFormat  GradingFormat `json:"grading_format"`
	EventType      EventType     `json:"event_type"`
	WorkTimeMissed string        `json:"work_time_missed,omitempty"`

	AttachmentURIs []string `json:"attachment_uris"`
	ApprovalMsgURI string   `json:"approval_msg_uri,omitempty"`

	ReimburseAmount float64       `json:"reimburse_amount"`
	Chain           ApprovalChain `json:"chain"`
	Reason          string        `json:"reason,omitempty"`
	Deadline        time.Time     `json:"deadline"`

	FinalGrade                 string  `json:"final_grade,omitempty"`
	IsPassing                  *bool   `json:"is_passing,omitempty"`
	PresentationFileName       string  `json:"presentation_file_name,omitempty"`
	FinalReimburseAmount       float64 `json:"final_reimburse_amount"`
	FinalReimburseAmountReason string  `json:"final_reimburse_amount_reason,omitempty"`
	NeedsEmployeeReview        bool    `json:"needs_employee_review"`
	EmployeeAgrees             bool    `json:"employee_agrees"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReservedAmount is the amount currently held in the requester's pending balance.
// An override set during renegotiation replaces the originally granted amount.
func (r *ReimbursementRequest) ReservedAmount() float64 {
	if r.FinalReimburseAmount > 0 {
		return r.FinalReimburseAmount
	}
	return r.ReimburseAmount
}

// HasFinalMaterials reports whether the requester has submitted a grade or presentation
func (r *ReimbursementRequest) HasFinalMaterials() bool {
	return r.FinalGrade != "" || r.PresentationFileName != ""
}
