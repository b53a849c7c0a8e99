package repo

import (
	"context"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
)

// CommitmentRepo is the tracked-commitment repository interface.
// Responsible for durable persistence of the task-key map (SQLite); every
// lifecycle mutation goes through here so the cancellation window and
// completion reconciliation survive a process restart.
type CommitmentRepo interface {
	// Get returns the commitment for a key, nil when absent.
	Get(ctx context.Context, key string) (*domain.TrackedCommitment, error)

	// GetByTaskGID returns the commitment holding an Asana task gid, nil when absent.
	GetByTaskGID(ctx context.Context, taskGID string) (*domain.TrackedCommitment, error)

	// Save inserts or replaces a commitment.
	Save(ctx context.Context, c *domain.TrackedCommitment) error

	// Lock flips cancellable to false. A miss is a no-op.
	Lock(ctx context.Context, key string) error

	// Delete removes a commitment.
	Delete(ctx context.Context, key string) error

	// ListAll lists every live commitment (startup restore).
	ListAll(ctx context.Context) ([]*domain.TrackedCommitment, error)

	// Close releases the underlying store.
	Close() error
}
