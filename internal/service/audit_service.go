package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/repository"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
)

type driftFinder interface {
	FindOccupancyDrift(ctx context.Context) ([]repository.OccupancyDrift, error)
	FindPointerDrift(ctx context.Context) ([]repository.PointerDrift, error)
	FindMultiActiveResidents(ctx context.Context) ([]repository.MultiActive, error)
}

type occupancyWriter interface {
	SetOccupied(ctx context.Context, id string, occupied int) error
}

type pointerWriter interface {
	SetCurrentRoom(ctx context.Context, id string, roomID *string) error
}

type staleBatchLister interface {
	ListStaleRunning(ctx context.Context, cutoff time.Time) ([]models.BatchRun, error)
}

type auditMetrics interface {
	ObserveAuditRepair(kind string)
}

// AuditService recomputes the derived fields (room occupancy counters,
// resident current-room pointers) from the authoritative allocation
// records and corrects drift. It never creates or deletes allocations,
// and it only flags invariant violations it cannot safely resolve.
type AuditService struct {
	allocations   driftFinder
	rooms         occupancyWriter
	residents     pointerWriter
	batches       staleBatchLister
	metrics       auditMetrics
	staleBatchAge time.Duration
	logger        *zap.Logger
}

// NewAuditService constructs AuditService.
func NewAuditService(allocations driftFinder, rooms occupancyWriter, residents pointerWriter, batches staleBatchLister, metrics auditMetrics, staleBatchAge time.Duration, logger *zap.Logger) *AuditService {
	if staleBatchAge <= 0 {
		staleBatchAge = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		allocations:   allocations,
		rooms:         rooms,
		residents:     residents,
		batches:       batches,
		metrics:       metrics,
		staleBatchAge: staleBatchAge,
		logger:        logger,
	}
}

// Audit runs one repair pass. Idempotent: a second run over unchanged
// state applies zero repairs.
func (s *AuditService) Audit(ctx context.Context) (*models.AuditReport, error) {
	report := &models.AuditReport{RanAt: time.Now().UTC(), Repairs: []models.Repair{}}

	occupancy, err := s.allocations.FindOccupancyDrift(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute occupancy drift")
	}
	for _, drift := range occupancy {
		if err := s.rooms.SetOccupied(ctx, drift.RoomID, drift.Actual); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to repair room occupancy")
		}
		repair := models.Repair{
			Kind:     models.RepairRoomOccupancy,
			EntityID: drift.RoomID,
			Detail:   "occupied counter drifted from active allocations",
			Before:   fmt.Sprintf("%d", drift.Occupied),
			After:    fmt.Sprintf("%d", drift.Actual),
		}
		s.record(report, repair)
		s.logger.Warn("repaired room occupancy",
			zap.String("room_id", drift.RoomID),
			zap.Int("was", drift.Occupied),
			zap.Int("now", drift.Actual))
	}

	pointers, err := s.allocations.FindPointerDrift(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute pointer drift")
	}
	for _, drift := range pointers {
		if err := s.residents.SetCurrentRoom(ctx, drift.ResidentID, drift.Actual); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to repair resident pointer")
		}
		repair := models.Repair{
			Kind:     models.RepairResidentPointer,
			EntityID: drift.ResidentID,
			Detail:   "current room pointer drifted from active allocation",
			Before:   strOrNull(drift.Current),
			After:    strOrNull(drift.Actual),
		}
		s.record(report, repair)
		s.logger.Warn("repaired resident pointer",
			zap.String("resident_id", drift.ResidentID),
			zap.String("was", strOrNull(drift.Current)),
			zap.String("now", strOrNull(drift.Actual)))
	}

	multi, err := s.allocations.FindMultiActiveResidents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active allocation counts")
	}
	for _, violation := range multi {
		repair := models.Repair{
			Kind:     models.FlagMultiActive,
			EntityID: violation.ResidentID,
			Detail:   fmt.Sprintf("resident holds %d active allocations; manual resolution required", violation.Count),
		}
		s.record(report, repair)
		report.Critical++
		s.logger.Error("resident holds multiple active allocations",
			zap.String("resident_id", violation.ResidentID),
			zap.Int("count", violation.Count))
	}

	stale, err := s.batches.ListStaleRunning(ctx, time.Now().UTC().Add(-s.staleBatchAge))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check stale batches")
	}
	for _, run := range stale {
		repair := models.Repair{
			Kind:     models.FlagStaleBatch,
			EntityID: run.ID,
			Detail:   fmt.Sprintf("batch %q running since %s; inspect before re-running", run.Label, run.StartedAt.Format(time.RFC3339)),
		}
		s.record(report, repair)
		s.logger.Warn("stale running batch detected",
			zap.String("batch_id", run.ID),
			zap.Time("started_at", run.StartedAt))
	}

	return report, nil
}

func (s *AuditService) record(report *models.AuditReport, repair models.Repair) {
	report.Repairs = append(report.Repairs, repair)
	if s.metrics != nil {
		s.metrics.ObserveAuditRepair(string(repair.Kind))
	}
}

func strOrNull(s *string) string {
	if s == nil {
		return "null"
	}
	return *s
}
