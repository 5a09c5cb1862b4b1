package models

import "time"

// RequestStatus represents the lifecycle of an allocation request.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusAllocated  RequestStatus = "ALLOCATED"
	RequestStatusWaitlisted RequestStatus = "WAITLISTED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
	RequestStatusExpired    RequestStatus = "EXPIRED"
)

// requestTransitions is the closed transition table for request statuses.
// ALLOCATED, CANCELLED and EXPIRED are terminal; a later deallocation
// operates on the Allocation, not the request.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:    {RequestStatusAllocated, RequestStatusWaitlisted, RequestStatusCancelled, RequestStatusExpired},
	RequestStatusWaitlisted: {RequestStatusAllocated, RequestStatusCancelled, RequestStatusExpired},
}

// CanTransition reports whether moving from one request status to another
// is a legal state machine step.
func (s RequestStatus) CanTransition(to RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// AllocationRequest is a resident's ask for a room. A resident holds at
// most one non-terminal request at a time.
type AllocationRequest struct {
	ID                  string        `db:"id" json:"id"`
	ResidentID          string        `db:"resident_id" json:"resident_id"`
	RequestedAt         time.Time     `db:"requested_at" json:"requested_at"`
	PreferredType       *RoomType     `db:"preferred_type" json:"preferred_type,omitempty"`
	PreferredFloor      *int          `db:"preferred_floor" json:"preferred_floor,omitempty"`
	SpecialRequirements string        `db:"special_requirements" json:"special_requirements,omitempty"`
	Status              RequestStatus `db:"status" json:"status"`
	PriorityScore       int64         `db:"priority_score" json:"priority_score"`
	AllocatedRoomID     *string       `db:"allocated_room_id" json:"allocated_room_id,omitempty"`
	ProcessedAt         *time.Time    `db:"processed_at" json:"processed_at,omitempty"`
	ProcessedBy         *string       `db:"processed_by" json:"processed_by,omitempty"`
	ExpiresAt           *time.Time    `db:"expires_at" json:"expires_at,omitempty"`
}

// RequestFilter captures filtering criteria for listing requests.
type RequestFilter struct {
	ResidentID string
	Status     RequestStatus
	Page       int
	PageSize   int
}
