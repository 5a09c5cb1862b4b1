package models

import "time"

// WaitlistEntry holds a request that could not be satisfied immediately.
// Entries are ordered by score snapshot descending with added_at as the
// tiebreak; positions are compacted after every removal so gaps never
// appear.
type WaitlistEntry struct {
	ID         string     `db:"id" json:"id"`
	RequestID  string     `db:"request_id" json:"request_id"`
	ResidentID string     `db:"resident_id" json:"resident_id"`
	Position   int        `db:"position" json:"position"`
	Score      int64      `db:"score" json:"score"`
	AddedAt    time.Time  `db:"added_at" json:"added_at"`
	NotifiedAt *time.Time `db:"notified_at" json:"notified_at,omitempty"`
	ExpiresAt  *time.Time `db:"expires_at" json:"expires_at,omitempty"`
}

// WaitlistEntryDetail joins an entry with its request's preferences so
// reprocessing can match entries against a vacated room's bucket.
type WaitlistEntryDetail struct {
	WaitlistEntry
	PreferredType  *RoomType `db:"preferred_type" json:"preferred_type,omitempty"`
	PreferredFloor *int      `db:"preferred_floor" json:"preferred_floor,omitempty"`
	ResidentName   string    `db:"resident_name" json:"resident_name"`
}
