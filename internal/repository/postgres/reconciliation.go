package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	"github.com/dfgutierrez/sigr-sales/pkg/database"
	apperrors "github.com/dfgutierrez/sigr-sales/pkg/errors"
)

// ReconciliationRepository implements repository.ReconciliationRepository
// using PostgreSQL.
type ReconciliationRepository struct {
	pool database.DBTX
}

// NewReconciliationRepository creates a PostgreSQL-backed reconciliation repository.
func NewReconciliationRepository(pool database.DBTX) *ReconciliationRepository {
	return &ReconciliationRepository{pool: pool}
}

// Record stores the deduction failures of one submission.
func (r *ReconciliationRepository) Record(ctx context.Context, entries []domain.ReconciliationEntry) error {
	query := `
		INSERT INTO reconciliation_entries
			(id, sale_id, location_id, product_id, product_name, quantity, reason, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, e := range entries {
		_, err := r.pool.Exec(ctx, query,
			e.ID,
			e.SaleID,
			e.LocationID,
			e.ProductID,
			e.ProductName,
			e.Quantity,
			e.Reason,
			e.Status,
			e.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("record reconciliation entry for product %s: %w", e.ProductID, err)
		}
	}
	return nil
}

// ListPending returns unresolved entries, oldest first.
func (r *ReconciliationRepository) ListPending(ctx context.Context) ([]domain.ReconciliationEntry, error) {
	query := `
		SELECT id, sale_id, location_id, product_id, product_name, quantity, reason, status, created_at, resolved_at, resolved_by
		FROM reconciliation_entries
		WHERE status = $1
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, domain.ReconciliationPending)
	if err != nil {
		return nil, fmt.Errorf("list pending reconciliation entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.ReconciliationEntry
	for rows.Next() {
		var e domain.ReconciliationEntry
		var resolvedAt *time.Time
		var resolvedBy *string
		if err := rows.Scan(
			&e.ID,
			&e.SaleID,
			&e.LocationID,
			&e.ProductID,
			&e.ProductName,
			&e.Quantity,
			&e.Reason,
			&e.Status,
			&e.CreatedAt,
			&resolvedAt,
			&resolvedBy,
		); err != nil {
			return nil, fmt.Errorf("scan reconciliation entry: %w", err)
		}
		e.ResolvedAt = resolvedAt
		if resolvedBy != nil {
			e.ResolvedBy = *resolvedBy
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reconciliation entries: %w", err)
	}

	return entries, nil
}

// MarkResolved flags an entry as handled by the given operator.
func (r *ReconciliationRepository) MarkResolved(ctx context.Context, id, resolvedBy string) error {
	query := `
		UPDATE reconciliation_entries
		SET status = $1, resolved_at = $2, resolved_by = $3
		WHERE id = $4 AND status = $5`

	tag, err := r.pool.Exec(ctx, query,
		domain.ReconciliationResolved,
		time.Now().UTC(),
		resolvedBy,
		id,
		domain.ReconciliationPending,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("reconciliation entry", id)
		}
		return fmt.Errorf("mark reconciliation entry resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("reconciliation entry", id)
	}
	return nil
}
