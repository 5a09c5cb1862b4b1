package service

import (
	"sort"
	"time"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
)

// RankConfig holds the fairness knobs for the priority ranker. Role
// bonuses are policy, not security: zero disables a bonus while still
// letting the role submit requests.
type RankConfig struct {
	StaffBonus      int64
	AdminBonus      int64
	SeniorityWeight int64
}

// Ranker computes deterministic priority scores for allocation requests.
// It holds no mutable state; identical inputs always produce identical
// output.
type Ranker struct {
	cfg RankConfig
}

// NewRanker constructs a Ranker.
func NewRanker(cfg RankConfig) *Ranker {
	return &Ranker{cfg: cfg}
}

// Score computes the priority of a request as of the given instant:
// request age in seconds (older waits score higher), plus a configurable
// role bonus, plus resident account age in days weighted by the seniority
// knob. Negative age components clamp to zero so clock skew cannot
// produce a negative score contribution.
func (r *Ranker) Score(req models.AllocationRequest, resident models.Resident, now time.Time) int64 {
	score := clampSeconds(now.Sub(req.RequestedAt))

	switch resident.Role {
	case models.RoleStaff:
		score += r.cfg.StaffBonus
	case models.RoleAdmin:
		score += r.cfg.AdminBonus
	}

	seniorityDays := clampSeconds(now.Sub(resident.JoinedAt)) / 86400
	score += seniorityDays * r.cfg.SeniorityWeight

	return score
}

// RankedRequest pairs a request with its computed score for ordering.
type RankedRequest struct {
	Request models.AllocationRequest
	Score   int64
}

// Less defines the total order used everywhere ranked processing happens:
// higher score first, then earlier requested_at, then request id
// ascending as the final deterministic tiebreak.
func Less(a, b RankedRequest) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.Request.RequestedAt.Equal(b.Request.RequestedAt) {
		return a.Request.RequestedAt.Before(b.Request.RequestedAt)
	}
	return a.Request.ID < b.Request.ID
}

// SortRanked orders requests in place by the ranking contract.
func SortRanked(ranked []RankedRequest) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
}

func clampSeconds(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
