// Package scoring is the file-level orchestration layer: it reads an
// export from disk, runs it through the processing pipeline, writes the
// scored CSV and records the batch in the optional audit sinks.
package scoring

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"leadscore/internal/domain/batch"
	"leadscore/internal/domain/lead"
	"leadscore/internal/export"
	"leadscore/internal/ingest"
	"leadscore/internal/metrics"
	"leadscore/internal/pipeline"
	"leadscore/pkg/errors"
	"leadscore/pkg/logger"
)

// scoredPrefix marks output files so an inbox scan never rescores its
// own results
const scoredPrefix = "scored_"

// Service scores export files end to end
type Service struct {
	pipeline  *pipeline.Pipeline
	writer    *export.Writer
	batchRepo batch.Repository     // nil when the postgres sink is disabled
	scoreRepo lead.ScoreRepository // nil when the clickhouse sink is disabled
	tracker   errors.Tracker
	log       *logger.Logger
}

// NewService creates a new scoring service. Either sink may be nil.
func NewService(
	p *pipeline.Pipeline,
	writer *export.Writer,
	batchRepo batch.Repository,
	scoreRepo lead.ScoreRepository,
	tracker errors.Tracker,
) *Service {
	return &Service{
		pipeline:  p,
		writer:    writer,
		batchRepo: batchRepo,
		scoreRepo: scoreRepo,
		tracker:   tracker,
		log:       logger.Get().With("component", "scoring_service"),
	}
}

// IsScoredOutput reports whether a filename is a previous run's output
func IsScoredOutput(path string) bool {
	return strings.HasPrefix(filepath.Base(path), scoredPrefix)
}

// hasScoredColumns catches renamed copies of scored outputs by their
// derived columns
func hasScoredColumns(raw *lead.RawBatch) bool {
	var score, tier bool
	for _, c := range raw.Columns {
		switch c {
		case "enrollment_score":
			score = true
		case "score_tier":
			tier = true
		}
	}
	return score && tier
}

// ScoreFile processes one export file and returns its batch summary.
// Sink failures are logged and tracked but never fail the batch; the
// scored CSV on disk is the primary deliverable.
func (s *Service) ScoreFile(ctx context.Context, path string) (*batch.Summary, error) {
	if IsScoredOutput(path) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%s is already a scored output", filepath.Base(path))
	}

	raw, err := ingest.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if hasScoredColumns(raw) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "%s already carries score columns", filepath.Base(path))
	}
	if info, statErr := os.Stat(path); statErr == nil {
		s.log.Infow("Processing export",
			"source", filepath.Base(path),
			"size", humanize.Bytes(uint64(info.Size())),
			"records", len(raw.Records),
		)
	}

	outcome, err := s.pipeline.Process(ctx, filepath.Base(path), raw)
	if err != nil {
		s.captureError(ctx, err, path)
		s.storeSummary(ctx, &outcome.Summary)
		return &outcome.Summary, err
	}

	outPath, err := s.writer.WriteScored(path, outcome.Scored)
	if err != nil {
		s.captureError(ctx, err, path)
		return &outcome.Summary, errors.Wrap(err, "failed to write scored export")
	}
	s.log.Infow("Scored export written",
		"source", path,
		"output", outPath,
		"records", len(outcome.Scored),
	)

	s.storeSummary(ctx, &outcome.Summary)
	s.storeScores(ctx, outcome.Summary.ID, outcome.Scored)

	return &outcome.Summary, nil
}

func (s *Service) storeSummary(ctx context.Context, summary *batch.Summary) {
	if s.batchRepo == nil {
		return
	}
	err := s.batchRepo.Store(ctx, summary)
	metrics.RecordSinkWrite("postgres", err)
	if err != nil {
		s.log.Errorw("Failed to store batch summary", "batch_id", summary.ID, "error", err)
		s.captureError(ctx, errors.Wrap(errors.ErrSinkUnavailable, err.Error()), summary.SourceFile)
	}
}

func (s *Service) storeScores(ctx context.Context, batchID string, scored []lead.ScoredLead) {
	if s.scoreRepo == nil || len(scored) == 0 {
		return
	}
	err := s.scoreRepo.StoreScores(ctx, batchID, scored)
	metrics.RecordSinkWrite("clickhouse", err)
	if err != nil {
		s.log.Errorw("Failed to store score history", "batch_id", batchID, "error", err)
	}
}

func (s *Service) captureError(ctx context.Context, err error, path string) {
	if s.tracker == nil {
		return
	}
	s.tracker.CaptureError(ctx, err, map[string]string{
		"component":   "scoring_service",
		"source_file": filepath.Base(path),
	})
}
