package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
)

func TestRankerScoreComponents(t *testing.T) {
	ranker := NewRanker(RankConfig{StaffBonus: 500, AdminBonus: 1000, SeniorityWeight: 10})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	req := models.AllocationRequest{RequestedAt: now.Add(-time.Hour)}
	resident := models.Resident{Role: models.RoleResident, JoinedAt: now.AddDate(0, 0, -30)}

	// 3600s of waiting + 30 days seniority * 10, no role bonus.
	assert.Equal(t, int64(3600+300), ranker.Score(req, resident, now))

	staff := models.Resident{Role: models.RoleStaff, JoinedAt: now}
	assert.Equal(t, int64(3600+500), ranker.Score(req, staff, now))

	admin := models.Resident{Role: models.RoleAdmin, JoinedAt: now}
	assert.Equal(t, int64(3600+1000), ranker.Score(req, admin, now))
}

func TestRankerScoreDeterministic(t *testing.T) {
	ranker := NewRanker(RankConfig{StaffBonus: 500, SeniorityWeight: 10})
	now := time.Now().UTC()
	req := models.AllocationRequest{RequestedAt: now.Add(-90 * time.Minute)}
	resident := models.Resident{Role: models.RoleStaff, JoinedAt: now.AddDate(-1, 0, 0)}

	first := ranker.Score(req, resident, now)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ranker.Score(req, resident, now))
	}
}

func TestRankerScoreClampsFutureTimestamps(t *testing.T) {
	ranker := NewRanker(RankConfig{SeniorityWeight: 10})
	now := time.Now().UTC()
	req := models.AllocationRequest{RequestedAt: now.Add(time.Hour)}
	resident := models.Resident{JoinedAt: now.Add(24 * time.Hour)}

	assert.Equal(t, int64(0), ranker.Score(req, resident, now))
}

func TestSortRankedOrderingAndTiebreaks(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ranked := []RankedRequest{
		{Request: models.AllocationRequest{ID: "c", RequestedAt: base}, Score: 10},
		{Request: models.AllocationRequest{ID: "b", RequestedAt: base}, Score: 10},
		{Request: models.AllocationRequest{ID: "a", RequestedAt: base.Add(time.Minute)}, Score: 10},
		{Request: models.AllocationRequest{ID: "d", RequestedAt: base}, Score: 50},
	}

	SortRanked(ranked)

	// Highest score first; equal scores order by requested_at, then ID.
	assert.Equal(t, "d", ranked[0].Request.ID)
	assert.Equal(t, "b", ranked[1].Request.ID)
	assert.Equal(t, "c", ranked[2].Request.ID)
	assert.Equal(t, "a", ranked[3].Request.ID)
}
