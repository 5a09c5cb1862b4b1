package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

// AllocationRepository owns the authoritative allocation records and the
// transactional reservation path that keeps the derived occupancy counter
// and resident pointer in lockstep with them.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository constructs the repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

const allocationColumns = `id, resident_id, room_id, allocated_at, allocated_by, status, ended_at, ended_reason`

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// ReserveParams carries everything the atomic reservation needs.
type ReserveParams struct {
	RequestID        string
	ResidentID       string
	RoomID           string
	ExpectedOccupied int
	AllocatedBy      string
	Score            int64
}

// Reserve atomically claims one slot in the target room: it increments the
// occupancy counter guarded by an optimistic compare-and-swap on the value
// the caller read, records the allocation, marks the request allocated,
// drops any waitlist entry and updates the resident pointer. A lost race
// on the counter returns ErrTxConflict so the engine can re-read and
// retry; a request no longer in an allocatable state returns
// ErrValidation (e.g. a concurrent cancellation won).
func (r *AllocationRepository) Reserve(ctx context.Context, p ReserveParams) (*models.Allocation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reserve: %w", err)
	}

	now := time.Now().UTC()

	const claim = `UPDATE rooms SET occupied = occupied + 1, updated_at = $3
        WHERE id = $1 AND occupied = $2 AND occupied < capacity`
	res, err := tx.ExecContext(ctx, claim, p.RoomID, p.ExpectedOccupied, now)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("claim room slot: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback() //nolint:errcheck
		return nil, appErrors.ErrTxConflict
	}

	const transition = `UPDATE allocation_requests SET status = $2, allocated_room_id = $3,
        processed_at = $4, processed_by = $5, priority_score = $6
        WHERE id = $1 AND status IN ($7, $8)`
	res, err = tx.ExecContext(ctx, transition, p.RequestID, models.RequestStatusAllocated,
		p.RoomID, now, p.AllocatedBy, p.Score,
		models.RequestStatusPending, models.RequestStatusWaitlisted)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("mark request allocated: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback() //nolint:errcheck
		return nil, appErrors.Clone(appErrors.ErrValidation, "request not in an allocatable state")
	}

	allocation := &models.Allocation{
		ID:          uuid.NewString(),
		ResidentID:  p.ResidentID,
		RoomID:      p.RoomID,
		AllocatedAt: now,
		AllocatedBy: p.AllocatedBy,
		Status:      models.AllocationStatusActive,
	}
	const insert = `INSERT INTO allocations (id, resident_id, room_id, allocated_at, allocated_by, status, ended_at, ended_reason)
        VALUES (:id, :resident_id, :room_id, :allocated_at, :allocated_by, :status, :ended_at, :ended_reason)`
	if _, err := tx.NamedExecContext(ctx, insert, allocation); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("insert allocation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE request_id = $1`, p.RequestID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("remove waitlist entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE residents SET current_room_id = $2 WHERE id = $1`, p.ResidentID, p.RoomID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("update resident pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reserve: %w", err)
	}
	return allocation, nil
}

// End closes an active allocation with the given terminal status,
// decrements the room's occupancy and clears the resident pointer, all in
// one transaction. Ending a non-active allocation returns ErrValidation.
func (r *AllocationRepository) End(ctx context.Context, id string, status models.AllocationStatus, reason string) (*models.Allocation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin end allocation: %w", err)
	}

	now := time.Now().UTC()

	end := fmt.Sprintf(`UPDATE allocations SET status = $2, ended_at = $3, ended_reason = $4
        WHERE id = $1 AND status = $5 RETURNING %s`, allocationColumns)
	var allocation models.Allocation
	if err := tx.GetContext(ctx, &allocation, end, id, status, now, reason, models.AllocationStatusActive); err != nil {
		tx.Rollback() //nolint:errcheck
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "allocation is not active")
		}
		return nil, fmt.Errorf("end allocation: %w", err)
	}

	const release = `UPDATE rooms SET occupied = occupied - 1, updated_at = $2 WHERE id = $1 AND occupied > 0`
	if _, err := tx.ExecContext(ctx, release, allocation.RoomID, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("release room slot: %w", err)
	}

	const clear = `UPDATE residents SET current_room_id = NULL WHERE id = $1 AND current_room_id = $2`
	if _, err := tx.ExecContext(ctx, clear, allocation.ResidentID, allocation.RoomID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("clear resident pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit end allocation: %w", err)
	}
	return &allocation, nil
}

// TransferParams carries the atomic room-to-room move.
type TransferParams struct {
	AllocationID     string
	TargetRoomID     string
	ExpectedOccupied int
	AllocatedBy      string
	Reason           string
}

// Transfer atomically moves a resident: claims a slot in the target room
// with the same compare-and-swap guard Reserve uses, ends the current
// allocation with status TRANSFERRED, releases the old slot and records a
// fresh active allocation. The old record is never mutated in its room or
// resident references.
func (r *AllocationRepository) Transfer(ctx context.Context, p TransferParams) (*models.Allocation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transfer: %w", err)
	}

	now := time.Now().UTC()

	const claim = `UPDATE rooms SET occupied = occupied + 1, updated_at = $3
        WHERE id = $1 AND occupied = $2 AND occupied < capacity`
	res, err := tx.ExecContext(ctx, claim, p.TargetRoomID, p.ExpectedOccupied, now)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("claim target room slot: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		tx.Rollback() //nolint:errcheck
		return nil, appErrors.ErrTxConflict
	}

	end := fmt.Sprintf(`UPDATE allocations SET status = $2, ended_at = $3, ended_reason = $4
        WHERE id = $1 AND status = $5 RETURNING %s`, allocationColumns)
	var old models.Allocation
	if err := tx.GetContext(ctx, &old, end, p.AllocationID, models.AllocationStatusTransferred, now, p.Reason, models.AllocationStatusActive); err != nil {
		tx.Rollback() //nolint:errcheck
		if isNoRows(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "allocation is not active")
		}
		return nil, fmt.Errorf("end transferred allocation: %w", err)
	}

	const release = `UPDATE rooms SET occupied = occupied - 1, updated_at = $2 WHERE id = $1 AND occupied > 0`
	if _, err := tx.ExecContext(ctx, release, old.RoomID, now); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("release old room slot: %w", err)
	}

	next := &models.Allocation{
		ID:          uuid.NewString(),
		ResidentID:  old.ResidentID,
		RoomID:      p.TargetRoomID,
		AllocatedAt: now,
		AllocatedBy: p.AllocatedBy,
		Status:      models.AllocationStatusActive,
	}
	const insert = `INSERT INTO allocations (id, resident_id, room_id, allocated_at, allocated_by, status, ended_at, ended_reason)
        VALUES (:id, :resident_id, :room_id, :allocated_at, :allocated_by, :status, :ended_at, :ended_reason)`
	if _, err := tx.NamedExecContext(ctx, insert, next); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("insert transferred allocation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE residents SET current_room_id = $2 WHERE id = $1`, old.ResidentID, p.TargetRoomID); err != nil {
		tx.Rollback() //nolint:errcheck
		return nil, fmt.Errorf("update resident pointer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transfer: %w", err)
	}
	return next, nil
}

// FindByID returns an allocation by its ID.
func (r *AllocationRepository) FindByID(ctx context.Context, id string) (*models.Allocation, error) {
	query := fmt.Sprintf(`SELECT %s FROM allocations WHERE id = $1`, allocationColumns)
	var allocation models.Allocation
	if err := r.db.GetContext(ctx, &allocation, query, id); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// FindActiveByResident returns the resident's active allocation, if any.
func (r *AllocationRepository) FindActiveByResident(ctx context.Context, residentID string) (*models.Allocation, error) {
	query := fmt.Sprintf(`SELECT %s FROM allocations WHERE resident_id = $1 AND status = $2 LIMIT 1`, allocationColumns)
	var allocation models.Allocation
	if err := r.db.GetContext(ctx, &allocation, query, residentID, models.AllocationStatusActive); err != nil {
		return nil, err
	}
	return &allocation, nil
}

// ListActiveByRoom returns active allocations for a room.
func (r *AllocationRepository) ListActiveByRoom(ctx context.Context, roomID string) ([]models.Allocation, error) {
	query := fmt.Sprintf(`SELECT %s FROM allocations WHERE room_id = $1 AND status = $2 ORDER BY allocated_at ASC`, allocationColumns)
	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, roomID, models.AllocationStatusActive); err != nil {
		return nil, fmt.Errorf("list room allocations: %w", err)
	}
	return allocations, nil
}

// OccupancyDrift describes a room whose cached counter disagrees with the
// count of active allocations.
type OccupancyDrift struct {
	RoomID   string `db:"room_id"`
	Occupied int    `db:"occupied"`
	Actual   int    `db:"actual"`
}

// FindOccupancyDrift reports rooms whose occupied counter has drifted
// from the authoritative allocation records.
func (r *AllocationRepository) FindOccupancyDrift(ctx context.Context) ([]OccupancyDrift, error) {
	const query = `SELECT r.id AS room_id, r.occupied, COUNT(a.id) AS actual
        FROM rooms r
        LEFT JOIN allocations a ON a.room_id = r.id AND a.status = $1
        GROUP BY r.id, r.occupied
        HAVING r.occupied <> COUNT(a.id)
        ORDER BY r.id`
	var drift []OccupancyDrift
	if err := r.db.SelectContext(ctx, &drift, query, models.AllocationStatusActive); err != nil {
		return nil, fmt.Errorf("find occupancy drift: %w", err)
	}
	return drift, nil
}

// PointerDrift describes a resident whose current-room pointer disagrees
// with their active allocation.
type PointerDrift struct {
	ResidentID string  `db:"resident_id"`
	Current    *string `db:"current"`
	Actual     *string `db:"actual"`
}

// FindPointerDrift reports residents whose current_room_id cache does not
// match the room of their single active allocation (or null when none).
// Residents with multiple active allocations are excluded here; they are
// reported separately as critical violations.
func (r *AllocationRepository) FindPointerDrift(ctx context.Context) ([]PointerDrift, error) {
	const query = `SELECT res.id AS resident_id, res.current_room_id AS current, act.room_id AS actual
        FROM residents res
        LEFT JOIN (
            SELECT resident_id, MIN(room_id) AS room_id, COUNT(*) AS n
            FROM allocations WHERE status = $1 GROUP BY resident_id
        ) act ON act.resident_id = res.id
        WHERE COALESCE(act.n, 0) <= 1
          AND res.current_room_id IS DISTINCT FROM act.room_id
        ORDER BY res.id`
	var drift []PointerDrift
	if err := r.db.SelectContext(ctx, &drift, query, models.AllocationStatusActive); err != nil {
		return nil, fmt.Errorf("find pointer drift: %w", err)
	}
	return drift, nil
}

// MultiActive describes a resident holding more than one active
// allocation, which violates the single-active invariant.
type MultiActive struct {
	ResidentID string `db:"resident_id"`
	Count      int    `db:"count"`
}

// FindMultiActiveResidents reports invariant violations the auditor flags
// but never auto-resolves.
func (r *AllocationRepository) FindMultiActiveResidents(ctx context.Context) ([]MultiActive, error) {
	const query = `SELECT resident_id, COUNT(*) AS count FROM allocations
        WHERE status = $1 GROUP BY resident_id HAVING COUNT(*) > 1 ORDER BY resident_id`
	var violations []MultiActive
	if err := r.db.SelectContext(ctx, &violations, query, models.AllocationStatusActive); err != nil {
		return nil, fmt.Errorf("find multi-active residents: %w", err)
	}
	return violations, nil
}
