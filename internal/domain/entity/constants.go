package entity

// Allowed attachment extensions for pre-approval uploads
var AttachmentTypes = map[string]bool{
	"pdf": true,
	"jpg": true,
	"png": true,
	"txt": true,
	"doc": true,
}

// File naming for stored request materials
const (
	ApprovalEmailExtension = "msg"
	PresentationExtension  = "pptx"
	PresentationGrade      = "PRESENTED"
)

// Notification texts sent by the workflow
const (
	MsgApprovalNeeded     = "Your approval is needed on request"
	MsgRequestDenied      = "Your request was denied"
	MsgSubmitMaterials    = "Your request was approved. Submit your final grade or presentation for request"
	MsgRequestAwarded     = "Your reimbursement was awarded for request"
	MsgEscalation         = "This request needs further approval."
	MsgReviewNeeded       = "The reimbursement amount was changed and needs your review on request"
	MsgEmployeeAgreed     = "The employee agreed to the changed amount on request"
	MsgFinalApprovalReady = "Final approval is ready on request"
)
