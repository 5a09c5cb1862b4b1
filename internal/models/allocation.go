package models

import "time"

// AllocationStatus represents the lifecycle of an allocation record.
type AllocationStatus string

const (
	AllocationStatusActive      AllocationStatus = "ACTIVE"
	AllocationStatusEnded       AllocationStatus = "ENDED"
	AllocationStatusTransferred AllocationStatus = "TRANSFERRED"
)

// AllocatedBySystem marks allocations committed by batch or waitlist
// processing rather than an explicit staff action.
const AllocatedBySystem = "system"

// Allocation is the authoritative record of who lives where. Room.occupied
// and Resident.CurrentRoomID must always be derivable from the set of
// active allocations. The resident and room references are immutable;
// transfers end this record and create a new one.
type Allocation struct {
	ID          string           `db:"id" json:"id"`
	ResidentID  string           `db:"resident_id" json:"resident_id"`
	RoomID      string           `db:"room_id" json:"room_id"`
	AllocatedAt time.Time        `db:"allocated_at" json:"allocated_at"`
	AllocatedBy string           `db:"allocated_by" json:"allocated_by"`
	Status      AllocationStatus `db:"status" json:"status"`
	EndedAt     *time.Time       `db:"ended_at" json:"ended_at,omitempty"`
	EndedReason *string          `db:"ended_reason" json:"ended_reason,omitempty"`
}

// AllocationDetail enriches an allocation with room and resident context.
type AllocationDetail struct {
	Allocation
	RoomNumber   string `db:"room_number" json:"room_number"`
	ResidentName string `db:"resident_name" json:"resident_name"`
}
