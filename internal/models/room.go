package models

import (
	"time"

	"github.com/lib/pq"
)

// RoomType classifies rooms by comfort tier.
type RoomType string

const (
	RoomTypeStandard RoomType = "STANDARD"
	RoomTypeDeluxe   RoomType = "DELUXE"
	RoomTypePremium  RoomType = "PREMIUM"
	RoomTypeSuite    RoomType = "SUITE"
)

// ValidRoomType reports whether the value is a known room type.
func ValidRoomType(t RoomType) bool {
	switch t {
	case RoomTypeStandard, RoomTypeDeluxe, RoomTypePremium, RoomTypeSuite:
		return true
	}
	return false
}

// RoomStatus is derived from occupied vs capacity; it is never stored.
type RoomStatus string

const (
	RoomStatusAvailable RoomStatus = "AVAILABLE"
	RoomStatusOccupied  RoomStatus = "OCCUPIED"
	RoomStatusFull      RoomStatus = "FULL"
)

// Room represents a capacity-limited room in the hostel. The occupied
// counter is a derived cache of active allocations; only the allocation
// engine mutates it, and the consistency auditor may correct it.
type Room struct {
	ID          string         `db:"id" json:"id"`
	RoomNumber  string         `db:"room_number" json:"room_number"`
	Floor       int            `db:"floor" json:"floor"`
	Type        RoomType       `db:"type" json:"type"`
	Capacity    int            `db:"capacity" json:"capacity"`
	Occupied    int            `db:"occupied" json:"occupied"`
	Maintenance bool           `db:"maintenance" json:"maintenance"`
	Price       float64        `db:"price" json:"price"`
	Amenities   pq.StringArray `db:"amenities" json:"amenities"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// Status derives the availability state from the occupancy counter.
func (r *Room) Status() RoomStatus {
	switch {
	case r.Occupied >= r.Capacity:
		return RoomStatusFull
	case r.Occupied > 0:
		return RoomStatusOccupied
	default:
		return RoomStatusAvailable
	}
}

// RoomView is a Room enriched with its derived status for API responses.
type RoomView struct {
	Room
	Status RoomStatus `json:"status"`
}

// NewRoomView attaches the derived status to a room.
func NewRoomView(room Room) RoomView {
	return RoomView{Room: room, Status: room.Status()}
}

// RoomFilter captures filtering criteria for listing rooms.
type RoomFilter struct {
	Type        *RoomType
	Floor       *int
	Status      *RoomStatus
	Maintenance *bool
	Page        int
	PageSize    int
}

// RoomPatch carries optional field updates for a room. Occupied is absent
// on purpose: occupancy only moves through the allocation engine.
type RoomPatch struct {
	Floor       *int      `json:"floor"`
	Type        *RoomType `json:"type"`
	Capacity    *int      `json:"capacity"`
	Maintenance *bool     `json:"maintenance"`
	Price       *float64  `json:"price"`
	Amenities   []string  `json:"amenities"`
}
