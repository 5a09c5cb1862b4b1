package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
)

// WaitlistRepository handles persistence of waitlist entries.
type WaitlistRepository struct {
	db *sqlx.DB
}

// NewWaitlistRepository constructs the repository.
func NewWaitlistRepository(db *sqlx.DB) *WaitlistRepository {
	return &WaitlistRepository{db: db}
}

// Insert appends an entry at the tail. The position is derived from the
// current size; Compact renumbers by rank afterwards.
func (r *WaitlistRepository) Insert(ctx context.Context, entry *models.WaitlistEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	const query = `INSERT INTO waitlist_entries (id, request_id, resident_id, position, score, added_at, notified_at, expires_at)
        VALUES (:id, :request_id, :resident_id,
            (SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist_entries),
            :score, :added_at, :notified_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert waitlist entry: %w", err)
	}
	return nil
}

// DeleteByRequest removes the entry for a request. Returns whether a row
// was removed so callers know a compaction is due.
func (r *WaitlistRepository) DeleteByRequest(ctx context.Context, requestID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM waitlist_entries WHERE request_id = $1`, requestID)
	if err != nil {
		return false, fmt.Errorf("delete waitlist entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete waitlist result: %w", err)
	}
	return affected > 0, nil
}

// FindByRequest returns the entry backing a request, if present.
func (r *WaitlistRepository) FindByRequest(ctx context.Context, requestID string) (*models.WaitlistEntry, error) {
	const query = `SELECT id, request_id, resident_id, position, score, added_at, notified_at, expires_at
        FROM waitlist_entries WHERE request_id = $1`
	var entry models.WaitlistEntry
	if err := r.db.GetContext(ctx, &entry, query, requestID); err != nil {
		return nil, err
	}
	return &entry, nil
}

const waitlistDetailQuery = `SELECT w.id, w.request_id, w.resident_id, w.position, w.score, w.added_at, w.notified_at, w.expires_at,
        q.preferred_type, q.preferred_floor, res.full_name AS resident_name
        FROM waitlist_entries w
        JOIN allocation_requests q ON q.id = w.request_id
        JOIN residents res ON res.id = w.resident_id`

// ListOrdered returns the full waitlist in rank order: score descending,
// added_at ascending, request id ascending.
func (r *WaitlistRepository) ListOrdered(ctx context.Context) ([]models.WaitlistEntryDetail, error) {
	query := waitlistDetailQuery + ` ORDER BY w.score DESC, w.added_at ASC, w.request_id ASC`
	var entries []models.WaitlistEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query); err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	return entries, nil
}

// ListForBucket returns, in rank order, the entries whose preferences are
// compatible with the given room type/floor bucket. Entries without a
// preference match any bucket; empty hints match every entry.
func (r *WaitlistRepository) ListForBucket(ctx context.Context, roomType *models.RoomType, floor *int) ([]models.WaitlistEntryDetail, error) {
	wantType := ""
	if roomType != nil {
		wantType = string(*roomType)
	}
	wantFloor := -1
	if floor != nil {
		wantFloor = *floor
	}
	query := waitlistDetailQuery + `
        WHERE ($1 = '' OR q.preferred_type IS NULL OR q.preferred_type = $1)
          AND ($2 < 0 OR q.preferred_floor IS NULL OR q.preferred_floor = $2)
        ORDER BY w.score DESC, w.added_at ASC, w.request_id ASC`
	var entries []models.WaitlistEntryDetail
	if err := r.db.SelectContext(ctx, &entries, query, wantType, wantFloor); err != nil {
		return nil, fmt.Errorf("list waitlist bucket: %w", err)
	}
	return entries, nil
}

// Compact renumbers positions 1..n in rank order so removals never leave
// gaps.
func (r *WaitlistRepository) Compact(ctx context.Context) error {
	const query = `UPDATE waitlist_entries w SET position = ranked.rn
        FROM (
            SELECT id, ROW_NUMBER() OVER (ORDER BY score DESC, added_at ASC, request_id ASC) AS rn
            FROM waitlist_entries
        ) ranked
        WHERE ranked.id = w.id AND w.position <> ranked.rn`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("compact waitlist: %w", err)
	}
	return nil
}

// Count returns the waitlist size.
func (r *WaitlistRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM waitlist_entries`); err != nil {
		return 0, fmt.Errorf("count waitlist: %w", err)
	}
	return count, nil
}

// MarkNotified stamps the entry's notification time.
func (r *WaitlistRepository) MarkNotified(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE waitlist_entries SET notified_at = $2 WHERE id = $1`, id, at); err != nil {
		return fmt.Errorf("mark waitlist notified: %w", err)
	}
	return nil
}
