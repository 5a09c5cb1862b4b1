package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
)

// ResidentRepository reads requester metadata and maintains the derived
// current-room pointer.
type ResidentRepository struct {
	db *sqlx.DB
}

// NewResidentRepository constructs the repository.
func NewResidentRepository(db *sqlx.DB) *ResidentRepository {
	return &ResidentRepository{db: db}
}

// FindByID returns a resident by ID.
func (r *ResidentRepository) FindByID(ctx context.Context, id string) (*models.Resident, error) {
	const query = `SELECT id, full_name, role, joined_at, current_room_id, active FROM residents WHERE id = $1`
	var resident models.Resident
	if err := r.db.GetContext(ctx, &resident, query, id); err != nil {
		return nil, err
	}
	return &resident, nil
}

// SetCurrentRoom overwrites the derived pointer. Reserved for the
// consistency auditor; the allocation engine maintains it inside its own
// transaction.
func (r *ResidentRepository) SetCurrentRoom(ctx context.Context, id string, roomID *string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE residents SET current_room_id = $2 WHERE id = $1`, id, roomID); err != nil {
		return fmt.Errorf("set resident room pointer: %w", err)
	}
	return nil
}
