package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dfgutierrez/sigr-sales/internal/domain"
	apperrors "github.com/dfgutierrez/sigr-sales/pkg/errors"
)

const keyPrefix = "workflow:"

// WorkflowRepository implements repository.WorkflowRepository using Redis.
// Draft workflows are short-lived and expire with the configured TTL.
type WorkflowRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWorkflowRepository creates a Redis-backed workflow repository.
func NewWorkflowRepository(client *redis.Client, ttl time.Duration) *WorkflowRepository {
	return &WorkflowRepository{
		client: client,
		ttl:    ttl,
	}
}

// Create stores a new workflow. Fails with a conflict if the ID is taken.
func (r *WorkflowRepository) Create(ctx context.Context, w *domain.SaleWorkflow) error {
	key := keyPrefix + w.ID

	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal workflow: %w", err)
	}

	ok, err := r.client.SetNX(ctx, key, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx workflow: %w", err)
	}
	if !ok {
		return apperrors.Conflict(fmt.Sprintf("workflow %s already exists", w.ID))
	}
	return nil
}

// Get retrieves a workflow by ID from Redis.
func (r *WorkflowRepository) Get(ctx context.Context, id string) (*domain.SaleWorkflow, error) {
	key := keyPrefix + id

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("workflow", id)
		}
		return nil, fmt.Errorf("redis get workflow: %w", err)
	}

	var w domain.SaleWorkflow
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("unmarshal workflow: %w", err)
	}

	return &w, nil
}

// SaveIfVersion persists the workflow only when the stored version still
// matches expectedVersion, using WATCH so a concurrent writer loses cleanly.
// The version is bumped on success.
func (r *WorkflowRepository) SaveIfVersion(ctx context.Context, w *domain.SaleWorkflow, expectedVersion int) error {
	key := keyPrefix + w.ID

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.NotFound("workflow", w.ID)
			}
			return fmt.Errorf("redis get workflow: %w", err)
		}

		var stored domain.SaleWorkflow
		if err := json.Unmarshal(data, &stored); err != nil {
			return fmt.Errorf("unmarshal workflow: %w", err)
		}
		if stored.Version != expectedVersion {
			return apperrors.Conflict(fmt.Sprintf(
				"workflow %s was modified concurrently (version %d, expected %d)",
				w.ID, stored.Version, expectedVersion))
		}

		w.Version = expectedVersion + 1
		w.UpdatedAt = time.Now().UTC()

		payload, err := json.Marshal(w)
		if err != nil {
			return fmt.Errorf("marshal workflow: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			return nil
		})
		return err
	}

	err := r.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		return apperrors.Conflict(fmt.Sprintf("workflow %s was modified concurrently", w.ID))
	}
	return err
}

// Delete removes a workflow from Redis.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("redis del workflow: %w", err)
	}
	return nil
}
