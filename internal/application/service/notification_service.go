package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/entity"
	"github.com/google/uuid"
)

// NotificationService delivers workflow messages and serves the per-user inbox.
// It is the engine's port.Notifier.
type NotificationService interface {
	port.Notifier
	ListNotifications(ctx context.Context, username string) ([]*entity.Notification, error)
	ClearAllNotifications(ctx context.Context, username string) error
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	userRepo         port.UserRepository
	messageSender    port.MessageSender
	now              func() time.Time
	logger           Logger
}

// NewNotificationService creates a new NotificationService.
// messageSender may be nil, in which case notifications are only stored in the inbox.
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	userRepo port.UserRepository,
	messageSender port.MessageSender,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		messageSender:    messageSender,
		now:              time.Now,
		logger:           logger,
	}
}

// Notify stores message in the user's inbox, replacing any earlier message about the
// same request, then pushes it to the user's chat when one is configured.
// A failed push is logged and does not fail the call.
func (s *notificationServiceImpl) Notify(ctx context.Context, username string, requestID uuid.UUID, message string) error {
	n := &entity.Notification{
		Username:  username,
		RequestID: requestID,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notificationRepo.Upsert(ctx, n); err != nil {
		s.logger.Error("Failed to store notification", "error", err, "username", username, "request_id", requestID.String())
		return fmt.Errorf("store notification: %w", err)
	}

	if s.messageSender == nil {
		return nil
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		s.logger.Warn("Chat push skipped, user lookup failed", "error", err, "username", username)
		return nil
	}
	if user == nil || user.ChatID == "" {
		return nil
	}

	content := fmt.Sprintf("%s\nRequest: %s", message, requestID)
	if err := s.messageSender.SendMessage(ctx, user.ChatID, content); err != nil {
		s.logger.Warn("Chat push failed", "error", err, "username", username, "request_id", requestID.String())
		return nil
	}

	s.logger.Info("Notification pushed", "username", username, "request_id", requestID.String())
	return nil
}

// ClearNotification removes the user's inbox entry about one request
func (s *notificationServiceImpl) ClearNotification(ctx context.Context, username string, requestID uuid.UUID) error {
	if err := s.notificationRepo.Delete(ctx, username, requestID); err != nil {
		return fmt.Errorf("clear notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's inbox, oldest first
func (s *notificationServiceImpl) ListNotifications(ctx context.Context, username string) ([]*entity.Notification, error) {
	notifications, err := s.notificationRepo.ListByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	if notifications == nil {
		notifications = []*entity.Notification{}
	}
	return notifications, nil
}

// ClearAllNotifications empties the user's inbox
func (s *notificationServiceImpl) ClearAllNotifications(ctx context.Context, username string) error {
	if err := s.notificationRepo.DeleteByUsername(ctx, username); err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	s.logger.Info("Inbox cleared", "username", username)
	return nil
}
