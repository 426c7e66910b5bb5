package scoring

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscore/internal/domain/lead"
	"leadscore/internal/export"
	mlscoring "leadscore/internal/ml/scoring"
	"leadscore/internal/normalize"
	"leadscore/internal/pipeline"
	"leadscore/pkg/logger"
)

type fixedScorer struct {
	score float64
}

func (f *fixedScorer) Score(vectors []lead.EncodedVector) ([]mlscoring.Result, error) {
	results := make([]mlscoring.Result, len(vectors))
	for i := range vectors {
		results[i] = mlscoring.Result{Score: f.score, Tier: mlscoring.TierFor(f.score)}
	}
	return results, nil
}

func newTestService(t *testing.T, outputDir string) *Service {
	t.Helper()

	cfg := normalize.Default()
	manifest := &pipeline.EncoderManifest{
		Version:      "test",
		FeatureOrder: lead.FeatureColumns(),
		Classes: map[string][]string{
			lead.FeatInstitution:      {"UNAB", "Crexe"},
			lead.FeatProgramCategory:  {"LAW", "NOT_SPECIFIED", "OTHER"},
			lead.FeatDatabaseCategory: {"GRADUATE", "NOT_SPECIFIED", "OTHER"},
			lead.FeatUTMSource:        {"not_available", "other"},
			lead.FeatUTMMedium:        {"not_available", "other"},
		},
	}

	p := pipeline.NewPipeline(
		pipeline.NewDetector(cfg),
		pipeline.NewNormalizer(cfg),
		pipeline.NewResolutionClassifier(cfg),
		pipeline.NewFeatureEngine(cfg),
		pipeline.NewCategoricalEncoder(manifest, logger.Get()),
		&fixedScorer{score: 72.5},
	)

	writer, err := export.NewWriter(outputDir)
	require.NoError(t, err)

	return NewService(p, writer, nil, nil, nil)
}

func TestService_ScoreFile(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(t, dir)

	src := filepath.Join(dir, "export_unab.csv")
	csv := "Idcontacto,EMLMAIL,Programa interes,Base de datos\n" +
		"1,ana@example.com,Derecho,UNAB Posgrado\n" +
		"2,luis@example.com,Derecho,UNAB Posgrado\n"
	require.NoError(t, os.WriteFile(src, []byte(csv), 0o644))

	summary, err := svc.ScoreFile(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, lead.Institution("UNAB"), summary.Institution)
	assert.Equal(t, 2, summary.RecordsScored)
	assert.Equal(t, 2, summary.HighTier)

	out := filepath.Join(dir, "scored_export_unab.csv")
	_, statErr := os.Stat(out)
	assert.NoError(t, statErr, "scored output must exist")
}

func TestService_RefusesScoredOutput(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(t, dir)

	_, err := svc.ScoreFile(context.Background(), filepath.Join(dir, "scored_export.csv"))
	assert.Error(t, err)
}

func TestService_RefusesRenamedScoredOutput(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(t, dir)

	src := filepath.Join(dir, "export.csv")
	csv := "contact_id,institution,enrollment_score,score_tier\n1,UNAB,72.50,high\n"
	require.NoError(t, os.WriteFile(src, []byte(csv), 0o644))

	_, err := svc.ScoreFile(context.Background(), src)
	assert.Error(t, err)
}

func TestIsScoredOutput(t *testing.T) {
	assert.True(t, IsScoredOutput("scored_export.csv"))
	assert.True(t, IsScoredOutput("/data/inbox/scored_export.csv"))
	assert.False(t, IsScoredOutput("export.csv"))
	assert.False(t, IsScoredOutput("/data/scored_dir/export.csv"))
}
