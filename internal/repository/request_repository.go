package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
)

// RequestRepository handles persistence of allocation requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

const requestColumns = `id, resident_id, requested_at, preferred_type, preferred_floor, special_requirements,
        status, priority_score, allocated_room_id, processed_at, processed_by, expires_at`

// Create persists a new allocation request.
func (r *RequestRepository) Create(ctx context.Context, req *models.AllocationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	if req.Status == "" {
		req.Status = models.RequestStatusPending
	}
	const query = `INSERT INTO allocation_requests (id, resident_id, requested_at, preferred_type, preferred_floor,
        special_requirements, status, priority_score, allocated_room_id, processed_at, processed_by, expires_at)
        VALUES (:id, :resident_id, :requested_at, :preferred_type, :preferred_floor,
        :special_requirements, :status, :priority_score, :allocated_room_id, :processed_at, :processed_by, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// FindByID returns a request by its ID.
func (r *RequestRepository) FindByID(ctx context.Context, id string) (*models.AllocationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM allocation_requests WHERE id = $1`, requestColumns)
	var req models.AllocationRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests filtered by the provided criteria.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.AllocationRequest, int, error) {
	var conditions []string
	var args []interface{}

	if filter.ResidentID != "" {
		conditions = append(conditions, fmt.Sprintf("resident_id = $%d", len(args)+1))
		args = append(args, filter.ResidentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s FROM allocation_requests%s ORDER BY requested_at ASC, id ASC LIMIT %d OFFSET %d`,
		requestColumns, clause, size, offset)
	var requests []models.AllocationRequest
	if err := r.db.SelectContext(ctx, &requests, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list requests: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM allocation_requests" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count requests: %w", err)
	}
	return requests, total, nil
}

// ListPending returns every pending request ordered by submission time.
// Batch runs re-rank them with freshly computed scores.
func (r *RequestRepository) ListPending(ctx context.Context) ([]models.AllocationRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM allocation_requests WHERE status = $1 ORDER BY requested_at ASC, id ASC`, requestColumns)
	var requests []models.AllocationRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.RequestStatusPending); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// HasNonTerminal reports whether the resident already holds a pending or
// waitlisted request.
func (r *RequestRepository) HasNonTerminal(ctx context.Context, residentID string) (bool, error) {
	const query = `SELECT 1 FROM allocation_requests WHERE resident_id = $1 AND status IN ($2, $3) LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, query, residentID, models.RequestStatusPending, models.RequestStatusWaitlisted)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check non-terminal request: %w", err)
	}
	return true, nil
}

// TransitionStatus updates the status conditionally on the expected
// current statuses (compare-and-swap). Returns false when the request was
// not in any of the expected states, e.g. a cancel racing an in-flight
// allocation.
func (r *RequestRepository) TransitionStatus(ctx context.Context, id string, from []models.RequestStatus, to models.RequestStatus) (bool, error) {
	placeholders := make([]string, len(from))
	args := []interface{}{id, to}
	for i, s := range from {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, s)
	}
	query := fmt.Sprintf(`UPDATE allocation_requests SET status = $2 WHERE id = $1 AND status IN (%s)`,
		strings.Join(placeholders, ","))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("transition request status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition request result: %w", err)
	}
	return affected > 0, nil
}

// UpdateScore stores the most recently computed priority score. Purely
// observational; ranking always recomputes from source data.
func (r *RequestRepository) UpdateScore(ctx context.Context, id string, score int64) error {
	const query = `UPDATE allocation_requests SET priority_score = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, score); err != nil {
		return fmt.Errorf("update request score: %w", err)
	}
	return nil
}

// ExpireDue transitions pending and waitlisted requests past their expiry
// to EXPIRED and removes their waitlist entries in one transaction. It
// returns the IDs of expired requests.
func (r *RequestRepository) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	const expire = `UPDATE allocation_requests SET status = $1
        WHERE status IN ($2, $3) AND expires_at IS NOT NULL AND expires_at <= $4
        RETURNING id`
	var ids []string
	if err := tx.SelectContext(ctx, &ids, expire, models.RequestStatusExpired,
		models.RequestStatusPending, models.RequestStatusWaitlisted, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("expire requests: %w", err)
	}

	if len(ids) > 0 {
		placeholders := make([]string, len(ids))
		args := make([]interface{}, len(ids))
		for i, id := range ids {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := fmt.Sprintf(`DELETE FROM waitlist_entries WHERE request_id IN (%s)`, strings.Join(placeholders, ","))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			tx.Rollback() //nolint:errcheck
			return nil, fmt.Errorf("remove expired waitlist entries: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit expiry sweep: %w", err)
	}
	return ids, nil
}
