package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/gmsync/internal/models"
	"github.com/desertthunder/gmsync/internal/shared"
)

// SyncRunRepository persists [models.SyncRun] bookkeeping rows so
// operators can see what recent syncs did.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new SyncRunRepository with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// Create inserts a new sync run with generated ID and sequence
func (r *SyncRunRepository) Create(run *models.SyncRun) error {
	sequence, err := NextSequence(r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	run.SetID(shared.GenerateID())
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO sync_runs (id, sequence, direction, dry_run, transferred, failed, started_at, finished_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		run.ID(),
		run.Sequence(),
		run.Direction(),
		run.DryRun(),
		run.Transferred(),
		run.Failed(),
		run.StartedAt(),
		run.FinishedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// RecordRun stores a finished run. It satisfies the engine's run
// recorder so syncs can persist their outcome without knowing about
// the database.
func (r *SyncRunRepository) RecordRun(run *models.SyncRun) error {
	return r.Create(run)
}

// List retrieves the most recent sync runs, newest first. A limit of
// zero or less returns all runs.
func (r *SyncRunRepository) List(limit int) ([]*models.SyncRun, error) {
	query := `
		SELECT id, sequence, direction, dry_run, transferred, failed, started_at, finished_at, created_at, updated_at
		FROM sync_runs
		WHERE deleted_at IS NULL
		ORDER BY sequence DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		var id, direction string
		var sequence, transferred, failed int
		var dryRun bool
		var startedAt, createdAt, updatedAt time.Time
		var finishedAt sql.NullTime

		err := rows.Scan(&id, &sequence, &direction, &dryRun, &transferred, &failed, &startedAt, &finishedAt, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}

		var finished *time.Time
		if finishedAt.Valid {
			finished = &finishedAt.Time
		}

		runs = append(runs, models.RestoreSyncRun(id, sequence, direction, dryRun, transferred, failed, startedAt, finished, createdAt, updatedAt))
	}
	return runs, rows.Err()
}
