package service

import (
	"context"
	"fmt"

	"github.com/garyjia/training-reimbursement/internal/application/port"
	"github.com/garyjia/training-reimbursement/internal/domain/workflow"
)

// StatementService produces a user's reimbursement statement
type StatementService interface {
	// BuildStatement returns the rendered statement and a suggested file name
	BuildStatement(ctx context.Context, username string) ([]byte, string, error)
}

type statementServiceImpl struct {
	userRepo    port.UserRepository
	requestRepo port.RequestRepository
	renderer    port.StatementRenderer
	logger      Logger
}

// NewStatementService creates a new StatementService
func NewStatementService(
	userRepo port.UserRepository,
	requestRepo port.RequestRepository,
	renderer port.StatementRenderer,
	logger Logger,
) StatementService {
	return &statementServiceImpl{
		userRepo:    userRepo,
		requestRepo: requestRepo,
		renderer:    renderer,
		logger:      logger,
	}
}

func (s *statementServiceImpl) BuildStatement(ctx context.Context, username string) ([]byte, string, error) {
	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, "", fmt.Errorf("%w: user %q", workflow.ErrNotFound, username)
	}

	requests, err := s.requestRepo.ListByUsername(ctx, username)
	if err != nil {
		return nil, "", fmt.Errorf("list requests: %w", err)
	}

	data, err := s.renderer.Render(user, requests)
	if err != nil {
		s.logger.Error("Failed to render statement", "error", err, "username", username)
		return nil, "", fmt.Errorf("render statement: %w", err)
	}

	s.logger.Info("Statement built", "username", username, "request_count", len(requests))
	return data, fmt.Sprintf("statement-%s.xlsx", username), nil
}
