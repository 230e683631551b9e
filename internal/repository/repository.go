package repository

import (
	"context"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
)

// WorkflowRepository defines persistence for draft sale workflows.
type WorkflowRepository interface {
	// Create stores a new workflow. The workflow ID must be unused.
	Create(ctx context.Context, w *domain.SaleWorkflow) error

	// Get retrieves a workflow by its ID.
	Get(ctx context.Context, id string) (*domain.SaleWorkflow, error)

	// SaveIfVersion persists the workflow only if the stored version still
	// matches expectedVersion, bumping the version on success. A mismatch
	// returns a conflict error and leaves the stored workflow untouched.
	SaveIfVersion(ctx context.Context, w *domain.SaleWorkflow, expectedVersion int) error

	// Delete removes a workflow.
	Delete(ctx context.Context, id string) error
}

// ReconciliationRepository persists Phase B deduction failures for operator
// follow-up.
type ReconciliationRepository interface {
	// Record stores the deduction failures of one submission.
	Record(ctx context.Context, entries []domain.ReconciliationEntry) error

	// ListPending returns unresolved entries, oldest first.
	ListPending(ctx context.Context) ([]domain.ReconciliationEntry, error)

	// MarkResolved flags an entry as handled by the given operator.
	MarkResolved(ctx context.Context, id, resolvedBy string) error
}
