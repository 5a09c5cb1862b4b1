package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

const pqUniqueViolation = "23505"

// RoomRepository handles persistence of rooms.
type RoomRepository struct {
	db *sqlx.DB
}

// NewRoomRepository constructs the repository.
func NewRoomRepository(db *sqlx.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

const roomColumns = `id, room_number, floor, type, capacity, occupied, maintenance, price, amenities, created_at, updated_at`

// Create persists a new room. A duplicate room number surfaces as a
// conflict even when two creations race past the service-level check.
func (r *RoomRepository) Create(ctx context.Context, room *models.Room) error {
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	const query = `INSERT INTO rooms (id, room_number, floor, type, capacity, occupied, maintenance, price, amenities, created_at, updated_at)
        VALUES (:id, :room_number, :floor, :type, :capacity, :occupied, :maintenance, :price, :amenities, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, room); err != nil {
		if isUniqueViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "room number already exists")
		}
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

// FindByID returns a room by its ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE id = $1`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, id); err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByNumber returns a room by its human-facing number.
func (r *RoomRepository) FindByNumber(ctx context.Context, number string) (*models.Room, error) {
	query := fmt.Sprintf(`SELECT %s FROM rooms WHERE room_number = $1`, roomColumns)
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, number); err != nil {
		return nil, err
	}
	return &room, nil
}

// List returns rooms filtered by the provided criteria.
func (r *RoomRepository) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error) {
	var conditions []string
	var args []interface{}

	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.Floor != nil {
		conditions = append(conditions, fmt.Sprintf("floor = $%d", len(args)+1))
		args = append(args, *filter.Floor)
	}
	if filter.Maintenance != nil {
		conditions = append(conditions, fmt.Sprintf("maintenance = $%d", len(args)+1))
		args = append(args, *filter.Maintenance)
	}
	if filter.Status != nil {
		switch *filter.Status {
		case models.RoomStatusAvailable:
			conditions = append(conditions, "occupied = 0")
		case models.RoomStatusOccupied:
			conditions = append(conditions, "occupied > 0 AND occupied < capacity")
		case models.RoomStatusFull:
			conditions = append(conditions, "occupied >= capacity")
		}
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

	query := fmt.Sprintf(`SELECT %s FROM rooms%s ORDER BY room_number ASC LIMIT %d OFFSET %d`, roomColumns, clause, size, offset)
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list rooms: %w", err)
	}

	countQuery := "SELECT COUNT(*) FROM rooms" + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	return rooms, total, nil
}

// Update persists staff-editable fields of a room.
func (r *RoomRepository) Update(ctx context.Context, room *models.Room) error {
	room.UpdatedAt = time.Now().UTC()
	const query = `UPDATE rooms SET floor = :floor, type = :type, capacity = :capacity,
        maintenance = :maintenance, price = :price, amenities = :amenities, updated_at = :updated_at
        WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, room)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a room. The occupied > 0 guard is part of the statement
// so a concurrent allocation cannot slip underneath the service check.
func (r *RoomRepository) Delete(ctx context.Context, id string) (bool, error) {
	const query = `DELETE FROM rooms WHERE id = $1 AND occupied = 0`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("delete room: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete room result: %w", err)
	}
	return affected > 0, nil
}

// FindCandidates returns rooms with free capacity ordered by preference
// match quality: exact type+floor first, then type-only, then floor-only,
// then any free room. Ties break by room number ascending so the sequence
// is deterministic and reproducible.
func (r *RoomRepository) FindCandidates(ctx context.Context, preferredType *models.RoomType, preferredFloor *int) ([]models.Room, error) {
	wantType := ""
	if preferredType != nil {
		wantType = string(*preferredType)
	}
	wantFloor := -1
	if preferredFloor != nil {
		wantFloor = *preferredFloor
	}

	query := fmt.Sprintf(`SELECT %s FROM rooms
        WHERE occupied < capacity AND maintenance = FALSE
        ORDER BY CASE
            WHEN type = $1 AND floor = $2 THEN 0
            WHEN type = $1 AND $1 <> '' THEN 1
            WHEN floor = $2 AND $2 >= 0 THEN 2
            ELSE 3
        END, room_number ASC`, roomColumns)

	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, wantType, wantFloor); err != nil {
		return nil, fmt.Errorf("find candidate rooms: %w", err)
	}
	return rooms, nil
}

// SetOccupied overwrites the occupancy counter. Reserved for the
// consistency auditor; normal occupancy movement goes through the
// allocation engine's transaction.
func (r *RoomRepository) SetOccupied(ctx context.Context, id string, occupied int) error {
	const query = `UPDATE rooms SET occupied = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, occupied, time.Now().UTC()); err != nil {
		return fmt.Errorf("set room occupancy: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == pqUniqueViolation
	}
	return false
}
