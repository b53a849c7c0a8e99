package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
	"github.com/nomadicseo/slack-asana-bridge/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// commitmentRepo implements the tracked-commitment repository over SQLite.
type commitmentRepo struct {
	db *sql.DB
}

// NewCommitmentRepo opens (and if needed creates) the commitment database.
func NewCommitmentRepo(dbPath string) (repo.CommitmentRepo, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS commitments (
			key TEXT PRIMARY KEY,
			task_gid TEXT NOT NULL,
			channel TEXT NOT NULL,
			message_ts TEXT NOT NULL,
			thread_ts TEXT NOT NULL DEFAULT '',
			author_id TEXT NOT NULL,
			assigned_to TEXT NOT NULL DEFAULT '',
			project_id TEXT NOT NULL,
			task_title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			cancellable INTEGER NOT NULL DEFAULT 0
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_commitments_task_gid ON commitments(task_gid)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &commitmentRepo{db: db}, nil
}

const commitmentColumns = `key, task_gid, channel, message_ts, thread_ts, author_id, assigned_to, project_id, task_title, created_at, cancellable`

func scanCommitment(row interface{ Scan(...interface{}) error }) (*domain.TrackedCommitment, error) {
	var c domain.TrackedCommitment
	var createdAt int64
	var cancellable int
	err := row.Scan(&c.Key, &c.TaskGID, &c.Channel, &c.MessageTS, &c.ThreadTS,
		&c.AuthorID, &c.AssignedTo, &c.ProjectID, &c.TaskTitle, &createdAt, &cancellable)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(createdAt, 0)
	c.Cancellable = cancellable != 0
	return &c, nil
}

// Get returns the commitment for a key, nil when absent.
func (r *commitmentRepo) Get(ctx context.Context, key string) (*domain.TrackedCommitment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+commitmentColumns+` FROM commitments WHERE key = ?
	`, key)

	c, err := scanCommitment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query commitment: %w", err)
	}
	return c, nil
}

// GetByTaskGID returns the commitment holding an Asana task gid, nil when absent.
func (r *commitmentRepo) GetByTaskGID(ctx context.Context, taskGID string) (*domain.TrackedCommitment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+commitmentColumns+` FROM commitments WHERE task_gid = ?
	`, taskGID)

	c, err := scanCommitment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query commitment by task gid: %w", err)
	}
	return c, nil
}

// Save inserts or replaces a commitment.
func (r *commitmentRepo) Save(ctx context.Context, c *domain.TrackedCommitment) error {
	cancellable := 0
	if c.Cancellable {
		cancellable = 1
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO commitments (`+commitmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		c.Key, c.TaskGID, c.Channel, c.MessageTS, c.ThreadTS,
		c.AuthorID, c.AssignedTo, c.ProjectID, c.TaskTitle,
		c.CreatedAt.Unix(), cancellable,
	)
	if err != nil {
		return fmt.Errorf("failed to save commitment: %w", err)
	}
	return nil
}

// Lock flips cancellable to false. A miss is a no-op.
func (r *commitmentRepo) Lock(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE commitments SET cancellable = 0 WHERE key = ?
	`, key)
	if err != nil {
		return fmt.Errorf("failed to lock commitment: %w", err)
	}
	return nil
}

// Delete removes a commitment.
func (r *commitmentRepo) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM commitments WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete commitment: %w", err)
	}
	return nil
}

// ListAll lists every live commitment, oldest first.
func (r *commitmentRepo) ListAll(ctx context.Context) ([]*domain.TrackedCommitment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+commitmentColumns+` FROM commitments ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list commitments: %w", err)
	}
	defer rows.Close()

	var result []*domain.TrackedCommitment
	for rows.Next() {
		c, err := scanCommitment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan commitment: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// Close closes the database connection.
func (r *commitmentRepo) Close() error {
	return r.db.Close()
}
