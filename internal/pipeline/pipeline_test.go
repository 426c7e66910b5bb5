package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscore/internal/domain/lead"
	"leadscore/internal/ml/scoring"
	"leadscore/internal/normalize"
	"leadscore/pkg/logger"
)

// stubScorer maps each vector to a fixed score sequence
type stubScorer struct {
	scores []float64
}

func (s *stubScorer) Score(vectors []lead.EncodedVector) ([]scoring.Result, error) {
	results := make([]scoring.Result, len(vectors))
	for i := range vectors {
		score := s.scores[i%len(s.scores)]
		results[i] = scoring.Result{Score: score, Tier: scoring.TierFor(score)}
	}
	return results, nil
}

func newTestPipeline(t *testing.T, scorer Scorer) *Pipeline {
	t.Helper()
	cfg := normalize.Default()
	return NewPipeline(
		NewDetector(cfg),
		NewNormalizer(cfg),
		NewResolutionClassifier(cfg),
		NewFeatureEngine(cfg),
		NewCategoricalEncoder(testManifest(), logger.Get()),
		scorer,
	)
}

func TestPipeline_Process(t *testing.T) {
	p := newTestPipeline(t, &stubScorer{scores: []float64{82.5, 45.0, 12.0}})

	b := batchOf(
		[]string{"Idcontacto", "EMLMAIL", "Programa interes", "Base de datos", "Contador de Llamadas", "Resolución"},
		map[string]string{
			"Idcontacto":           "1",
			"EMLMAIL":              "ana@example.com",
			"Programa interes":     "Maestría en Derecho",
			"Base de datos":        "UNAB Posgrado",
			"Contador de Llamadas": "7",
			"Resolución":           "Matriculado",
		},
		map[string]string{
			"Idcontacto":           "2",
			"EMLMAIL":              "luis@example.com",
			"Programa interes":     "Derecho",
			"Base de datos":        "UNAB Posgrado",
			"Contador de Llamadas": "2",
			"Resolución":           "resolucion inventada",
		},
		map[string]string{
			"Idcontacto":           "3",
			"EMLMAIL":              "",
			"Programa interes":     "",
			"Base de datos":        "UNAB Posgrado",
			"Contador de Llamadas": "0",
			"Resolución":           "",
		},
	)

	outcome, err := p.Process(context.Background(), "export_marzo.csv", b)
	require.NoError(t, err)

	assert.Equal(t, lead.Institution("UNAB"), outcome.Detection.Institution)
	assert.Equal(t, lead.ConfidenceHigh, outcome.Detection.Confidence)

	require.Len(t, outcome.Scored, 3)
	assert.Equal(t, lead.TierHigh, outcome.Scored[0].Tier)
	assert.Equal(t, lead.TierMedium, outcome.Scored[1].Tier)
	assert.Equal(t, lead.TierLow, outcome.Scored[2].Tier)

	s := outcome.Summary
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "export_marzo.csv", s.SourceFile)
	assert.Equal(t, 3, s.RecordsIn)
	assert.Equal(t, 3, s.RecordsScored)
	assert.Equal(t, 1, s.HighTier)
	assert.Equal(t, 1, s.MediumTier)
	assert.Equal(t, 1, s.LowTier)
	assert.Equal(t, 1, s.UnknownResolutions)
	assert.Contains(t, s.UnknownResolutionSample, "resolucion inventada")
	assert.InDelta(t, (82.5+45.0+12.0)/3, s.MeanScore, 1e-9)
	assert.InDelta(t, 82.5, s.MaxScore, 1e-9)
	assert.False(t, s.FinishedAt.Before(s.StartedAt))
}

func TestPipeline_Process_MissingRequiredColumn(t *testing.T) {
	p := newTestPipeline(t, &stubScorer{scores: []float64{50}})

	b := batchOf(
		[]string{"EMLMAIL", "Base de datos"},
		map[string]string{"EMLMAIL": "ana@example.com", "Base de datos": "UNAB"},
	)

	outcome, err := p.Process(context.Background(), "broken.csv", b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contact_id")

	// Partial summary still identifies the batch for the audit trail
	assert.Equal(t, "broken.csv", outcome.Summary.SourceFile)
	assert.Equal(t, lead.Institution("UNAB"), outcome.Summary.Institution)
	assert.False(t, outcome.Summary.FinishedAt.IsZero())
}

func TestPipeline_Process_UnseenCategoriesCounted(t *testing.T) {
	p := newTestPipeline(t, &stubScorer{scores: []float64{50}})

	// The test manifest has no LETO database class, so the derived
	// category falls back to the first fitted class and is counted.
	b := batchOf(
		[]string{"Idcontacto", "Base de datos"},
		map[string]string{"Idcontacto": "1", "Base de datos": "UNISANGIL LETO marzo"},
	)

	outcome, err := p.Process(context.Background(), "small.csv", b)
	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Summary.UnseenCategories)
}
