package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	"github.com/dfgutierrez/sigr-sales/internal/repository"
	apperrors "github.com/dfgutierrez/sigr-sales/pkg/errors"
)

// ReconciliationService exposes the operator follow-up queue for stock
// deductions that failed after a sale was already persisted.
type ReconciliationService struct {
	repo   repository.ReconciliationRepository
	logger *slog.Logger
}

// NewReconciliationService creates a reconciliation service.
func NewReconciliationService(repo repository.ReconciliationRepository, logger *slog.Logger) *ReconciliationService {
	return &ReconciliationService{repo: repo, logger: logger}
}

// ListPending returns unresolved entries, oldest first.
func (s *ReconciliationService) ListPending(ctx context.Context) ([]domain.ReconciliationEntry, error) {
	entries, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending reconciliation entries: %w", err)
	}
	return entries, nil
}

// Resolve marks an entry as handled by the given operator.
func (s *ReconciliationService) Resolve(ctx context.Context, id, operatorID string) error {
	if operatorID == "" {
		return apperrors.InvalidInput("operator id is required")
	}

	if err := s.repo.MarkResolved(ctx, id, operatorID); err != nil {
		return fmt.Errorf("resolve reconciliation entry: %w", err)
	}

	s.logger.InfoContext(ctx, "reconciliation entry resolved",
		slog.String("entry_id", id),
		slog.String("operator_id", operatorID),
	)
	return nil
}
