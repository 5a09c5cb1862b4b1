package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
)

// BatchRepository handles the append-only batch run log.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

const batchColumns = `id, label, status, invoked_by, started_at, finished_at, total, allocated, waitlisted, errored, errors`

// Create records a new run in RUNNING state.
func (r *BatchRepository) Create(ctx context.Context, run *models.BatchRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	if run.Status == "" {
		run.Status = models.BatchStatusRunning
	}
	if run.Errors == nil {
		run.Errors = json.RawMessage("[]")
	}
	const query = `INSERT INTO allocation_batches (id, label, status, invoked_by, started_at, finished_at, total, allocated, waitlisted, errored, errors)
        VALUES (:id, :label, :status, :invoked_by, :started_at, :finished_at, :total, :allocated, :waitlisted, :errored, :errors)`
	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("create batch run: %w", err)
	}
	return nil
}

// Finish records totals and the terminal status for a run.
func (r *BatchRepository) Finish(ctx context.Context, id string, status models.BatchStatus, report models.BatchReport) error {
	errorsJSON, err := json.Marshal(report.Errors)
	if err != nil {
		return fmt.Errorf("marshal batch errors: %w", err)
	}
	const query = `UPDATE allocation_batches SET status = $2, finished_at = $3,
        total = $4, allocated = $5, waitlisted = $6, errored = $7, errors = $8
        WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC(),
		report.Total, report.Allocated, report.Waitlisted, report.Errored, errorsJSON)
	if err != nil {
		return fmt.Errorf("finish batch run: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID returns a batch run by its ID.
func (r *BatchRepository) FindByID(ctx context.Context, id string) (*models.BatchRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM allocation_batches WHERE id = $1`, batchColumns)
	var run models.BatchRun
	if err := r.db.GetContext(ctx, &run, query, id); err != nil {
		return nil, err
	}
	return &run, nil
}

// ListStaleRunning returns runs stuck in RUNNING since before the cutoff,
// typically the residue of a coordinator crash.
func (r *BatchRepository) ListStaleRunning(ctx context.Context, cutoff time.Time) ([]models.BatchRun, error) {
	query := fmt.Sprintf(`SELECT %s FROM allocation_batches WHERE status = $1 AND started_at < $2 ORDER BY started_at ASC`, batchColumns)
	var runs []models.BatchRun
	if err := r.db.SelectContext(ctx, &runs, query, models.BatchStatusRunning, cutoff); err != nil {
		return nil, fmt.Errorf("list stale batches: %w", err)
	}
	return runs, nil
}
