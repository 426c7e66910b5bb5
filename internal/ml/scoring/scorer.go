package scoring

import (
	"time"

	"github.com/shopspring/decimal"

	"leadscore/internal/domain/lead"
	"leadscore/internal/metrics"
	"leadscore/internal/ml"
	"leadscore/pkg/errors"
)

// Classifier is the inference boundary. The production implementation is
// the ONNX enrollment model; tests substitute a deterministic stub.
type Classifier interface {
	PredictProba(rows [][]float64) ([]float64, error)
}

// Scorer turns encoded feature vectors into enrollment scores and tiers
type Scorer struct {
	model  Classifier
	closer func()
}

// NewScorer creates a scorer backed by the ONNX model at modelPath
func NewScorer(modelPath string) (*Scorer, error) {
	model, err := ml.LoadONNXModel(modelPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load enrollment model")
	}
	return &Scorer{model: model, closer: model.Destroy}, nil
}

// NewScorerWithClassifier creates a scorer over an existing classifier
func NewScorerWithClassifier(c Classifier) *Scorer {
	return &Scorer{model: c}
}

// Result is one lead's scoring outcome
type Result struct {
	// Score is the positive-class probability expressed as a percentage,
	// rounded to two decimal places.
	Score float64
	Tier  lead.Tier
}

// Score runs batch inference over the encoded vectors. The result slice
// is index-aligned with the input. An empty input returns an empty slice
// without touching the model.
func (s *Scorer) Score(vectors []lead.EncodedVector) ([]Result, error) {
	if s.model == nil {
		return nil, errors.ErrModelNotLoaded
	}
	if len(vectors) == 0 {
		return []Result{}, nil
	}

	rows := make([][]float64, len(vectors))
	for i := range vectors {
		rows[i] = vectors[i].ToFeatureVector()
	}

	start := time.Now()
	probs, err := s.model.PredictProba(rows)
	metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, errors.Wrap(err, "batch inference failed")
	}
	if len(probs) != len(vectors) {
		return nil, errors.Wrapf(errors.ErrInferenceFailed,
			"model returned %d probabilities for %d rows", len(probs), len(vectors))
	}

	results := make([]Result, len(probs))
	for i, p := range probs {
		score := roundScore(p * 100)
		results[i] = Result{Score: score, Tier: TierFor(score)}
	}
	return results, nil
}

// Close releases the underlying model session, if any
func (s *Scorer) Close() {
	if s.closer != nil {
		s.closer()
		s.closer = nil
	}
}

// TierFor assigns the score band. Bands are half-open on the left with
// the bottom edge included, so a score of exactly 30 is still low and
// exactly 60 still medium.
func TierFor(score float64) lead.Tier {
	switch {
	case score <= 30:
		return lead.TierLow
	case score <= 60:
		return lead.TierMedium
	default:
		return lead.TierHigh
	}
}

// roundScore rounds half away from zero to two decimal places. Decimal
// arithmetic keeps 0.005-boundary probabilities from flapping between
// float representations.
func roundScore(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
