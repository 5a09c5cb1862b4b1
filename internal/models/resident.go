package models

import "time"

// Resident captures the requester metadata the identity provider supplies
// plus the derived current-room pointer maintained by the allocation
// engine and repairable by the consistency auditor.
type Resident struct {
	ID            string    `db:"id" json:"id"`
	FullName      string    `db:"full_name" json:"full_name"`
	Role          UserRole  `db:"role" json:"role"`
	JoinedAt      time.Time `db:"joined_at" json:"joined_at"`
	CurrentRoomID *string   `db:"current_room_id" json:"current_room_id,omitempty"`
	Active        bool      `db:"active" json:"active"`
}
