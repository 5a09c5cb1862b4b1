package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/internal/models"
	appErrors "github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/errors"
	"github.com/Tilji-Thomas9137/hostelhaven-b-end-sub000/pkg/export"
)

type batchRepository interface {
	Create(ctx context.Context, run *models.BatchRun) error
	Finish(ctx context.Context, id string, status models.BatchStatus, report models.BatchReport) error
	FindByID(ctx context.Context, id string) (*models.BatchRun, error)
}

type pendingLister interface {
	ListPending(ctx context.Context) ([]models.AllocationRequest, error)
}

// BatchService drives a full allocation pass over all pending requests in
// strict rank order and leaves an auditable record of the run.
type BatchService struct {
	repo      batchRepository
	requests  pendingLister
	residents residentReader
	allocator requestAllocator
	ranker    *Ranker
	logger    *zap.Logger
}

// NewBatchService constructs BatchService.
func NewBatchService(repo batchRepository, requests pendingLister, residents residentReader, allocator requestAllocator, ranker *Ranker, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BatchService{repo: repo, requests: requests, residents: residents, allocator: allocator, ranker: ranker, logger: logger}
}

// Run executes one batch pass. Scores are computed fresh at batch time —
// never reused from stale snapshots — and per-item failures are collected
// into the report instead of aborting the run. Capacity exhaustion is a
// waitlist outcome, not an error.
func (s *BatchService) Run(ctx context.Context, label, invoker string) (*models.BatchReport, error) {
	if invoker == "" {
		invoker = models.AllocatedBySystem
	}
	run := &models.BatchRun{Label: label, InvokedBy: invoker, Status: models.BatchStatusRunning}
	if err := s.repo.Create(ctx, run); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch run")
	}

	pending, err := s.requests.ListPending(ctx)
	if err != nil {
		report := models.BatchReport{BatchID: run.ID, Label: label, Errors: []string{err.Error()}, Errored: 1}
		if finishErr := s.repo.Finish(ctx, run.ID, models.BatchStatusFailed, report); finishErr != nil {
			s.logger.Error("failed to mark batch failed", zap.Error(finishErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}

	now := time.Now().UTC()
	ranked := make([]RankedRequest, 0, len(pending))
	report := models.BatchReport{BatchID: run.ID, Label: label, Total: len(pending)}
	for _, req := range pending {
		resident, err := s.residents.FindByID(ctx, req.ResidentID)
		if err != nil {
			report.Errored++
			report.Errors = append(report.Errors, fmt.Sprintf("request %s: resident %s not loadable: %v", req.ID, req.ResidentID, err))
			continue
		}
		ranked = append(ranked, RankedRequest{Request: req, Score: s.ranker.Score(req, *resident, now)})
	}
	SortRanked(ranked)

	for _, item := range ranked {
		outcome, err := s.allocator.TryAllocate(ctx, item.Request.ID, TryAllocateOptions{ActorID: invoker})
		if err != nil {
			report.Errored++
			report.Errors = append(report.Errors, fmt.Sprintf("request %s: %v", item.Request.ID, err))
			continue
		}
		if outcome.Allocation != nil {
			report.Allocated++
		} else {
			report.Waitlisted++
		}
	}

	if err := s.repo.Finish(ctx, run.ID, models.BatchStatusCompleted, report); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to finish batch run")
	}

	s.logger.Info("batch run completed",
		zap.String("batch_id", run.ID),
		zap.Int("total", report.Total),
		zap.Int("allocated", report.Allocated),
		zap.Int("waitlisted", report.Waitlisted),
		zap.Int("errored", report.Errored))
	return &report, nil
}

// Get returns a batch run by ID.
func (s *BatchService) Get(ctx context.Context, id string) (*models.BatchRun, error) {
	run, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch run not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load batch run")
	}
	return run, nil
}

// Export renders a run's report as CSV or PDF for staff download.
func (s *BatchService) Export(ctx context.Context, id, format string) ([]byte, string, string, error) {
	run, err := s.Get(ctx, id)
	if err != nil {
		return nil, "", "", err
	}

	header := []string{"batch_id", "label", "status", "invoked_by", "started_at", "total", "allocated", "waitlisted", "errored", "error"}
	base := []string{
		run.ID, run.Label, string(run.Status), run.InvokedBy,
		run.StartedAt.Format(time.RFC3339),
		strconv.Itoa(run.Total), strconv.Itoa(run.Allocated),
		strconv.Itoa(run.Waitlisted), strconv.Itoa(run.Errored),
	}

	var errs []string
	if len(run.Errors) > 0 {
		if err := json.Unmarshal(run.Errors, &errs); err != nil {
			s.logger.Warn("failed to decode batch errors", zap.Error(err))
		}
	}
	rows := [][]string{append(append([]string{}, base...), "")}
	for _, e := range errs {
		rows = append(rows, append(append([]string{}, base...), e))
	}

	switch format {
	case "csv", "":
		payload, err := export.CSV(header, rows)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export batch report")
		}
		return payload, "batch-" + run.ID + ".csv", "text/csv", nil
	case "pdf":
		payload, err := export.PDF("Batch Allocation Report "+run.ID, header, rows)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export batch report")
		}
		return payload, "batch-" + run.ID + ".pdf", "application/pdf", nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}
