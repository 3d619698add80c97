package http

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/garyjia/training-reimbursement/internal/application/service"
	"github.com/garyjia/training-reimbursement/internal/application/workflow"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/garyjia/training-reimbursement/pkg/utils"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine         workflow.WorkflowEngine
	notifications  service.NotificationService
	statements     service.StatementService
	maxUploadBytes int64
	logger         Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	engine workflow.WorkflowEngine,
	notifications service.NotificationService,
	statements service.StatementService,
	maxUploadBytes int64,
	logger Logger,
) *Handlers {
	return &Handlers{
		engine:         engine,
		notifications:  notifications,
		statements:     statements,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// CreateRequestBody is the payload of POST /api/requests
type CreateRequestBody struct {
	Name           string  `json:"name" binding:"required"`
	StartDate      string  `json:"start_date" binding:"required"`
	Location       string  `json:"location" binding:"required"`
	Description    string  `json:"description" binding:"required"`
	Cost           float64 `json:"cost" binding:"required"`
	GradingFormat  string  `json:"grading_format" binding:"required"`
	EventType      string  `json:"event_type" binding:"required"`
	WorkTimeMissed string  `json:"work_time_missed"`
}

// ApprovalBody is the payload of PUT /api/requests/:id/approval
type ApprovalBody struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason"`
}

// AmountBody is the payload of PUT /api/requests/:id/amount
type AmountBody struct {
	Amount float64 `json:"amount" binding:"required"`
	Reason string  `json:"reason" binding:"required"`
}

// ReviewBody is the payload of PUT /api/requests/:id/review
type ReviewBody struct {
	Agrees *bool `json:"agrees" binding:"required"`
}

// GradeBody is the payload of PUT /api/requests/:id/grade
type GradeBody struct {
	Grade string `json:"grade" binding:"required"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// parseStartDate accepts a calendar date or an RFC 3339 timestamp
func parseStartDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, Response{Success: false, Error: msg})
}

func requestID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		badRequest(c, "invalid request id")
		return uuid.Nil, false
	}
	return id, true
}

// CreateRequest handles POST /api/requests
func (h *Handlers) CreateRequest(c *gin.Context) {
	var body CreateRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	start, err := parseStartDate(body.StartDate)
	if err != nil {
		badRequest(c, "start_date must be YYYY-MM-DD")
		return
	}
	if err := utils.ValidateAmount(body.Cost); err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.engine.CreateRequest(c.Request.Context(), workflow.CreateRequestInput{
		Username:       actor(c),
		Name:           utils.SanitizeString(body.Name),
		StartDate:      start,
		Location:       utils.SanitizeString(body.Location),
		Description:    utils.SanitizeString(body.Description),
		Cost:           body.Cost,
		GradingFormat:  entity.GradingFormat(body.GradingFormat),
		EventType:      entity.EventType(body.EventType),
		WorkTimeMissed: utils.SanitizeString(body.WorkTimeMissed),
	})
	if err != nil {
		h.writeError(c, "create_request", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: req})
}

// ListRequests handles GET /api/requests for the acting user
func (h *Handlers) ListRequests(c *gin.Context) {
	reqs, err := h.engine.ListRequestsForUser(c.Request.Context(), actor(c))
	if err != nil {
		h.writeError(c, "list_requests", err)
		return
	}
	if reqs == nil {
		reqs = []*entity.ReimbursementRequest{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: reqs})
}

// GetRequest handles GET /api/requests/:id
func (h *Handlers) GetRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	req, err := h.engine.GetRequest(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get_request", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// GetHistory handles GET /api/requests/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	history, err := h.engine.GetHistory(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, "get_history", err)
		return
	}
	if history == nil {
		history = []*entity.ApprovalHistory{}
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: history})
}

// AdvanceApproval handles PUT /api/requests/:id/approval
func (h *Handlers) AdvanceApproval(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	var body ApprovalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}

	req, err := h.engine.AdvanceApproval(c.Request.Context(), workflow.ApprovalInput{
		RequestID: id,
		Actor:     actor(c),
		Decision:  workflow.Decision(body.Decision),
		Reason:    utils.SanitizeString(body.Reason),
	})
	if err != nil {
		h.writeError(c, "advance_approval", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// CancelRequest handles PUT /api/requests/:id/cancel
func (h *Handlers) CancelRequest(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	if err := h.engine.CancelRequest(c.Request.Context(), id, actor(c)); err != nil {
		h.writeError(c, "cancel_request", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ProposeAmount handles PUT /api/requests/:id/amount
func (h *Handlers) ProposeAmount(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	var body AmountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := utils.ValidateAmount(body.Amount); err != nil {
		badRequest(c, err.Error())
		return
	}

	req, err := h.engine.ProposeAmountChange(c.Request.Context(), workflow.AmountChangeInput{
		RequestID: id,
		Actor:     actor(c),
		Amount:    body.Amount,
		Reason:    utils.SanitizeString(body.Reason),
	})
	if err != nil {
		h.writeError(c, "propose_amount", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// RecordReview handles PUT /api/requests/:id/review
func (h *Handlers) RecordReview(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	var body ReviewBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.engine.RecordEmployeeReview(c.Request.Context(), id, actor(c), *body.Agrees); err != nil {
		h.writeError(c, "record_review", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitGrade handles PUT /api/requests/:id/grade
func (h *Handlers) SubmitGrade(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	var body GradeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if err := h.engine.SubmitFinalGrade(c.Request.Context(), id, actor(c), utils.SanitizeString(body.Grade)); err != nil {
		h.writeError(c, "submit_grade", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// readUpload reads a raw request body up to the configured limit
func (h *Handlers) readUpload(c *gin.Context) ([]byte, bool) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	content, err := io.ReadAll(body)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, Response{
			Success: false,
			Error:   fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes),
		})
		return nil, false
	}
	return content, true
}

// UploadAttachment handles POST /api/requests/:id/attachments.
// The file type comes from the "filetype" header or query parameter.
func (h *Handlers) UploadAttachment(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	fileType := c.GetHeader("filetype")
	if fileType == "" {
		fileType = c.Query("filetype")
	}
	content, ok := h.readUpload(c)
	if !ok {
		return
	}

	key, err := h.engine.UploadAttachment(c.Request.Context(), id, actor(c), fileType, content)
	if err != nil {
		h.writeError(c, "upload_attachment", err)
		return
	}
	c.JSON(http.StatusCreated, Response{Success: true, Data: gin.H{"key": key}})
}

// GetAttachment handles GET /api/requests/:id/attachments/:index
func (h *Handlers) GetAttachment(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "invalid attachment index")
		return
	}

	content, err := h.engine.ReadAttachment(c.Request.Context(), id, index)
	if err != nil {
		h.writeError(c, "get_attachment", err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", content)
}

// SubmitApprovalEmail handles POST /api/requests/:id/approval-email
func (h *Handlers) SubmitApprovalEmail(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	content, ok := h.readUpload(c)
	if !ok {
		return
	}

	req, err := h.engine.SubmitApprovalEmail(c.Request.Context(), id, actor(c), content)
	if err != nil {
		h.writeError(c, "submit_approval_email", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: req})
}

// SubmitPresentation handles PUT /api/requests/:id/presentation
func (h *Handlers) SubmitPresentation(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	content, ok := h.readUpload(c)
	if !ok {
		return
	}

	if err := h.engine.SubmitPresentation(c.Request.Context(), id, actor(c), content); err != nil {
		h.writeError(c, "submit_presentation", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetPresentation handles GET /api/requests/:id/presentation
func (h *Handlers) GetPresentation(c *gin.Context) {
	id, ok := requestID(c)
	if !ok {
		return
	}
	content, err := h.engine.ReadPresentation(c.Request.Context(), id, actor(c))
	if err != nil {
		h.writeError(c, "get_presentation", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="presentation.pptx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.presentationml.presentation", content)
}

// ownInbox rejects access to another user's inbox or statement
func ownInbox(c *gin.Context) (string, bool) {
	username := c.Param("username")
	if username != actor(c) {
		c.JSON(http.StatusForbidden, Response{Success: false, Error: "users may only access their own data"})
		return "", false
	}
	return username, true
}

// ListNotifications handles GET /api/users/:username/notifications
func (h *Handlers) ListNotifications(c *gin.Context) {
	username, ok := ownInbox(c)
	if !ok {
		return
	}
	notifications, err := h.notifications.ListNotifications(c.Request.Context(), username)
	if err != nil {
		h.writeError(c, "list_notifications", err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: notifications})
}

// ClearNotifications handles DELETE /api/users/:username/notifications
func (h *Handlers) ClearNotifications(c *gin.Context) {
	username, ok := ownInbox(c)
	if !ok {
		return
	}
	if err := h.notifications.ClearAllNotifications(c.Request.Context(), username); err != nil {
		h.writeError(c, "clear_notifications", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetStatement handles GET /api/users/:username/statement
func (h *Handlers) GetStatement(c *gin.Context) {
	username, ok := ownInbox(c)
	if !ok {
		return
	}
	data, fileName, err := h.statements.BuildStatement(c.Request.Context(), username)
	if err != nil {
		h.writeError(c, "get_statement", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
