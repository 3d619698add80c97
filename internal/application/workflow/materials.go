package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	domainwf "github.com/garyjia/training-reimbursement/internal/domain/workflow"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func attachmentKey(id uuid.UUID, index int, ext string) string {
	return fmt.Sprintf("%s/files/%d.%s", id, index, ext)
}

func approvalEmailKey(id uuid.UUID) string {
	return fmt.Sprintf("%s/messages/approval-email.%s", id, entity.ApprovalEmailExtension)
}

func presentationKey(id uuid.UUID) string {
	return fmt.Sprintf("%s/presentations/presentation.%s", id, entity.PresentationExtension)
}

// requirePreApproval allows uploads only before the supervisor has acted
func requirePreApproval(req *entity.ReimbursementRequest, actor string) error {
	if req.Username != actor {
		return fmt.Errorf("%w: only the requester may upload materials", domainwf.ErrForbidden)
	}
	if req.Status != entity.RequestStatusActive ||
		req.Chain.Slot(entity.StageSupervisor).Status != entity.ApprovalAwaiting {
		return fmt.Errorf("%w: uploads are only accepted before the supervisor acts", domainwf.ErrInvalidState)
	}
	return nil
}

// requireFinalStage allows final materials only while the final slot is awaiting
func requireFinalStage(req *entity.ReimbursementRequest, actor string) error {
	if req.Username != actor {
		return fmt.Errorf("%w: only the requester may submit final materials", domainwf.ErrForbidden)
	}
	if req.Status != entity.RequestStatusApproved {
		return fmt.Errorf("%w: request %s is %s", domainwf.ErrInvalidState, req.ID, req.Status)
	}
	stage, err := scanChain(req)
	if err != nil {
		return err
	}
	if stage != entity.StageFinal {
		return fmt.Errorf("%w: final approval is not open", domainwf.ErrInvalidState)
	}
	return nil
}

// UploadAttachment stores a supporting document and returns its storage key
func (e *engineImpl) UploadAttachment(ctx context.Context, id uuid.UUID, actor string, fileType string, content []byte) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
	if !entity.AttachmentTypes[ext] {
		return "", fmt.Errorf("%w: file type %q is not accepted", domainwf.ErrValidation, fileType)
	}
	if len(content) == 0 {
		return "", fmt.Errorf("%w: file is empty", domainwf.ErrValidation)
	}

	var key string
	var stored bool
	err := e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requirePreApproval(req, actor); err != nil {
			return err
		}

		key = attachmentKey(req.ID, len(req.AttachmentURIs), ext)
		if err := e.storage.Save(ctx, key, content); err != nil {
			return fmt.Errorf("failed to store attachment: %w", err)
		}
		stored = true
		req.AttachmentURIs = append(req.AttachmentURIs, key)
		if err := e.saveRequest(ctx, req); err != nil {
			return err
		}

		return e.record(ctx, req, historyEntry{
			actor:  actor,
			action: entity.ActionAttachmentAdded,
			reason: key,
		})
	})
	if err != nil {
		// the key would be reused by the next upload
		if stored {
			if delErr := e.storage.Delete(context.WithoutCancel(ctx), key); delErr != nil {
				e.logger.Warn("Failed to remove orphaned attachment", zap.String("key", key), zap.Error(delErr))
			}
		}
		return "", err
	}

	e.logger.Info("Attachment stored", zap.String("request_id", id.String()), zap.String("key", key))
	return key, nil
}

// ReadAttachment returns the bytes of the index-th attachment
func (e *engineImpl) ReadAttachment(ctx context.Context, id uuid.UUID, index int) ([]byte, error) {
	req, err := e.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(req.AttachmentURIs) {
		return nil, fmt.Errorf("%w: attachment %d", domainwf.ErrNotFound, index)
	}

	content, err := e.storage.Read(ctx, req.AttachmentURIs[index])
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	return content, nil
}

// SubmitApprovalEmail stores a supervisor's prior approval and bypasses the supervisor slot
func (e *engineImpl) SubmitApprovalEmail(ctx context.Context, id uuid.UUID, actor string, content []byte) (*entity.ReimbursementRequest, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("%w: file is empty", domainwf.ErrValidation)
	}

	var result *entity.ReimbursementRequest
	err := e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requirePreApproval(req, actor); err != nil {
			return err
		}

		key := approvalEmailKey(req.ID)
		if err := e.storage.Save(ctx, key, content); err != nil {
			return fmt.Errorf("failed to store approval email: %w", err)
		}
		req.ApprovalMsgURI = key

		if err := e.advance(ctx, req, entity.ApprovalBypassed, actor, "pre-approved by email"); err != nil {
			return err
		}
		result = req
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SubmitPresentation stores the presentation deck for PRESENTATION-graded events
func (e *engineImpl) SubmitPresentation(ctx context.Context, id uuid.UUID, actor string, content []byte) error {
	if len(content) == 0 {
		return fmt.Errorf("%w: file is empty", domainwf.ErrValidation)
	}

	return e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requireFinalStage(req, actor); err != nil {
			return err
		}
		if req.GradingFormat != entity.GradingPresentation {
			return fmt.Errorf("%w: event is graded by %s", domainwf.ErrInvalidState, req.GradingFormat)
		}
		if err := e.fire(ctx, req, domainwf.TriggerSubmitGrade); err != nil {
			return err
		}

		key := presentationKey(req.ID)
		if err := e.storage.Save(ctx, key, content); err != nil {
			return fmt.Errorf("failed to store presentation: %w", err)
		}

		passing := true
		req.PresentationFileName = key
		req.FinalGrade = entity.PresentationGrade
		req.IsPassing = &passing
		if err := e.saveRequest(ctx, req); err != nil {
			return err
		}

		if err := e.notify(ctx, req.Chain.Slot(entity.StageFinal).Username, req.ID, entity.MsgFinalApprovalReady); err != nil {
			return err
		}

		return e.record(ctx, req, historyEntry{
			stage:  stagePtr(entity.StageFinal),
			actor:  actor,
			next:   entity.PresentationGrade,
			action: entity.ActionGradeSubmitted,
		})
	})
}

// ReadPresentation returns the deck to the requester or the final approver
func (e *engineImpl) ReadPresentation(ctx context.Context, id uuid.UUID, actor string) ([]byte, error) {
	req, err := e.loadRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor != req.Username && actor != req.Chain.Slot(entity.StageFinal).Username {
		return nil, fmt.Errorf("%w: %s may not view this presentation", domainwf.ErrForbidden, actor)
	}
	if req.PresentationFileName == "" {
		return nil, fmt.Errorf("%w: no presentation submitted", domainwf.ErrNotFound)
	}

	content, err := e.storage.Read(ctx, req.PresentationFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to read presentation: %w", err)
	}
	return content, nil
}

// SubmitFinalGrade records the requester's grade once and alerts the final approver
func (e *engineImpl) SubmitFinalGrade(ctx context.Context, id uuid.UUID, actor string, grade string) error {
	grade = strings.TrimSpace(grade)
	if grade == "" {
		return fmt.Errorf("%w: grade is required", domainwf.ErrValidation)
	}

	return e.mutate(ctx, func(ctx context.Context) error {
		req, err := e.loadRequest(ctx, id)
		if err != nil {
			return err
		}
		if err := requireFinalStage(req, actor); err != nil {
			return err
		}
		if req.GradingFormat == entity.GradingPresentation {
			return fmt.Errorf("%w: presentation events are graded by uploading the presentation", domainwf.ErrInvalidState)
		}
		if req.FinalGrade != "" {
			return fmt.Errorf("%w: final grade was already submitted", domainwf.ErrConflict)
		}
		if err := e.fire(ctx, req, domainwf.TriggerSubmitGrade); err != nil {
			return err
		}

		passing := req.GradingFormat.IsPassing(grade)
		req.FinalGrade = grade
		req.IsPassing = &passing
		if err := e.saveRequest(ctx, req); err != nil {
			return err
		}

		if err := e.notify(ctx, req.Chain.Slot(entity.StageFinal).Username, req.ID, entity.MsgFinalApprovalReady); err != nil {
			return err
		}

		e.logger.Info("Final grade submitted",
			zap.String("request_id", req.ID.String()),
			zap.String("grade", grade),
			zap.Bool("passing", passing))

		return e.record(ctx, req, historyEntry{
			stage:  stagePtr(entity.StageFinal),
			actor:  actor,
			next:   grade,
			action: entity.ActionGradeSubmitted,
		})
	})
}
