package models

import "time"

// RepairKind identifies what a consistency audit corrected or flagged.
type RepairKind string

const (
	RepairRoomOccupancy   RepairKind = "ROOM_OCCUPANCY"
	RepairResidentPointer RepairKind = "RESIDENT_POINTER"
	// FlagMultiActive marks a resident holding more than one active
	// allocation. Never auto-resolved; requires administrative action.
	FlagMultiActive RepairKind = "MULTI_ACTIVE_ALLOCATION"
	// FlagStaleBatch marks a batch run stuck in RUNNING past the
	// configured age.
	FlagStaleBatch RepairKind = "STALE_RUNNING_BATCH"
)

// Repair describes a single correction applied (or violation flagged) by
// the consistency auditor.
type Repair struct {
	Kind     RepairKind `json:"kind"`
	EntityID string     `json:"entity_id"`
	Detail   string     `json:"detail"`
	Before   string     `json:"before,omitempty"`
	After    string     `json:"after,omitempty"`
}

// AuditReport summarises one audit pass.
type AuditReport struct {
	RanAt    time.Time `json:"ran_at"`
	Repairs  []Repair  `json:"repairs"`
	Critical int       `json:"critical"`
}
