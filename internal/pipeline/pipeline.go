package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"leadscore/internal/domain/batch"
	"leadscore/internal/domain/lead"
	"leadscore/internal/metrics"
	"leadscore/internal/ml/scoring"
	"leadscore/pkg/errors"
	"leadscore/pkg/logger"
)

// Scorer is the inference stage boundary, satisfied by scoring.Scorer
type Scorer interface {
	Score(vectors []lead.EncodedVector) ([]scoring.Result, error)
}

// Pipeline runs one raw export through the full scoring flow: institution
// detection, normalization, feature derivation, encoding and inference.
// It works purely in memory; reading exports and writing results belongs
// to the caller.
type Pipeline struct {
	detector   *Detector
	normalizer *Normalizer
	resolver   *ResolutionClassifier
	features   *FeatureEngine
	encoder    *CategoricalEncoder
	scorer     Scorer
	log        *logger.Logger
}

// NewPipeline wires the processing stages together
func NewPipeline(
	detector *Detector,
	normalizer *Normalizer,
	resolver *ResolutionClassifier,
	features *FeatureEngine,
	encoder *CategoricalEncoder,
	scorer Scorer,
) *Pipeline {
	return &Pipeline{
		detector:   detector,
		normalizer: normalizer,
		resolver:   resolver,
		features:   features,
		encoder:    encoder,
		scorer:     scorer,
		log:        logger.Get().With("component", "pipeline"),
	}
}

// Outcome is the result of processing one export
type Outcome struct {
	Detection Detection
	Scored    []lead.ScoredLead
	Summary   batch.Summary
}

// Process scores one raw batch. The summary is filled even on the happy
// path so every run leaves an audit record; on error the partial summary
// is returned alongside it.
func (p *Pipeline) Process(ctx context.Context, sourceFile string, raw *lead.RawBatch) (*Outcome, error) {
	start := time.Now()

	summary := batch.Summary{
		ID:         uuid.New().String(),
		SourceFile: sourceFile,
		RecordsIn:  raw.Len(),
		StartedAt:  start,
	}

	det := p.detector.Detect(raw)
	summary.Institution = det.Institution
	summary.Confidence = det.Confidence

	log := p.log.With("source_file", sourceFile, "institution", det.Institution.String())
	if det.Confidence == lead.ConfidenceLow {
		metrics.LowConfidenceDetections.WithLabelValues(det.Institution.String()).Inc()
		log.Warnw("Low confidence institution detection",
			"method", det.Method,
			"records", raw.Len(),
		)
	}

	outcome := &Outcome{Detection: det, Summary: summary}

	leads, stats, err := p.normalizer.Normalize(raw, det.Institution)
	if err != nil {
		p.finish(&outcome.Summary, start, err)
		return outcome, errors.Wrapf(err, "normalization failed for %s", sourceFile)
	}
	outcome.Summary.DuplicatesDropped = stats.DuplicatesDropped
	outcome.Summary.InvalidEmails = stats.InvalidEmails

	_, unknownReport := p.resolver.CategorizeBatch(leads, det.Institution)
	outcome.Summary.UnknownResolutions = unknownReport.Total
	outcome.Summary.UnknownResolutionSample = unknownReport.Sample(5)

	vectors := make([]lead.FeatureVector, len(leads))
	encoded := make([]lead.EncodedVector, len(leads))
	for i := range leads {
		vectors[i] = p.features.Derive(&leads[i])
		var unseen int
		encoded[i], unseen = p.encoder.Encode(&vectors[i])
		outcome.Summary.UnseenCategories += unseen
	}

	results, err := p.scorer.Score(encoded)
	if err != nil {
		p.finish(&outcome.Summary, start, err)
		return outcome, errors.Wrapf(err, "scoring failed for %s", sourceFile)
	}

	scored := make([]lead.ScoredLead, len(leads))
	var sum float64
	for i := range leads {
		scored[i] = lead.ScoredLead{
			Lead:     leads[i],
			Features: vectors[i],
			Score:    results[i].Score,
			Tier:     results[i].Tier,
		}
		sum += results[i].Score
		if results[i].Score > outcome.Summary.MaxScore {
			outcome.Summary.MaxScore = results[i].Score
		}
		switch results[i].Tier {
		case lead.TierHigh:
			outcome.Summary.HighTier++
		case lead.TierMedium:
			outcome.Summary.MediumTier++
		default:
			outcome.Summary.LowTier++
		}
		metrics.LeadsScored.WithLabelValues(det.Institution.String(), results[i].Tier.String()).Inc()
	}
	outcome.Scored = scored
	outcome.Summary.RecordsScored = len(scored)
	if len(scored) > 0 {
		outcome.Summary.MeanScore = sum / float64(len(scored))
	}

	p.finish(&outcome.Summary, start, nil)
	log.Infow("Batch scored",
		"records_in", outcome.Summary.RecordsIn,
		"records_scored", outcome.Summary.RecordsScored,
		"duplicates_dropped", outcome.Summary.DuplicatesDropped,
		"high_tier", outcome.Summary.HighTier,
		"mean_score", outcome.Summary.MeanScore,
		"duration", outcome.Summary.Duration().String(),
	)
	return outcome, nil
}

func (p *Pipeline) finish(s *batch.Summary, start time.Time, err error) {
	s.FinishedAt = time.Now()
	metrics.RecordBatch(s.Institution.String(), time.Since(start), err)
}
