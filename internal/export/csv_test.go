package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadscore/internal/domain/lead"
	"leadscore/pkg/errors"
)

func scoredLead(id int64, score float64, tier lead.Tier) lead.ScoredLead {
	return lead.ScoredLead{
		Lead: lead.Lead{
			Institution: "UNAB",
			ContactID:   id,
			Email:       "x@example.com",
			Program:     "DERECHO",
		},
		Features: lead.FeatureVector{
			Institution:     "UNAB",
			ProgramCategory: "LAW",
		},
		Score: score,
		Tier:  tier,
	}
}

func TestWriter_WriteScored(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	require.NoError(t, err)

	leads := []lead.ScoredLead{
		scoredLead(1, 12.5, lead.TierLow),
		scoredLead(2, 88.25, lead.TierHigh),
		scoredLead(3, 44.0, lead.TierMedium),
	}

	path, err := w.WriteScored("inbox/export_marzo.csv", leads)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scored_export_marzo.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Excel compatibility: UTF-8 BOM first
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)

	header := rows[0]
	assert.Equal(t, "contact_id", header[0])

	// Every canonical and derived column survives into the output
	for _, col := range []string{
		"full_name", "phone", "email", "has_email",
		"program", "program_category", "database", "database_category",
		"channel", "whatsapp_inbound", "resolution",
		"phone_calls", "dialer_calls", "inserted_at", "updated_at",
		"days_under_management", "call_ratio",
		"high_call_activity", "recent_lead", "stale_lead",
		"utm_source", "utm_source_category",
		"utm_medium", "utm_medium_category",
		"utm_campaign", "utm_content",
	} {
		assert.Contains(t, header, col)
	}

	// Score columns close every row
	last := len(header) - 1
	assert.Equal(t, "enrollment_score", header[last-1])
	assert.Equal(t, "score_tier", header[last])

	// Rows come out sorted by score descending
	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "3", rows[2][0])
	assert.Equal(t, "1", rows[3][0])
	assert.Equal(t, "88.25", rows[1][last-1])
	assert.Equal(t, "high", rows[1][last])
}

func TestWriter_ScoreTiesKeepContactOrder(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	leads := []lead.ScoredLead{
		scoredLead(9, 50, lead.TierMedium),
		scoredLead(2, 50, lead.TierMedium),
		scoredLead(5, 50, lead.TierMedium),
	}

	path, err := w.WriteScored("ties.csv", leads)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)

	assert.Equal(t, "2", rows[1][0])
	assert.Equal(t, "5", rows[2][0])
	assert.Equal(t, "9", rows[3][0])
}

func TestWriter_ExtraColumnsAppended(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	l := scoredLead(1, 70, lead.TierHigh)
	l.Lead.Extra = map[string]string{"operator_name": "Luis"}

	path, err := w.WriteScored("x.csv", []lead.ScoredLead{l})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)

	// Passthrough columns sit between the canonical set and the scores
	idx := len(rows[0]) - 3
	assert.Equal(t, "operator_name", rows[0][idx])
	assert.Equal(t, "Luis", rows[1][idx])
	assert.Equal(t, "score_tier", rows[0][len(rows[0])-1])
}

func TestWriter_EmptyBatch(t *testing.T) {
	w, err := NewWriter(t.TempDir())
	require.NoError(t, err)

	_, err = w.WriteScored("empty.csv", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEmptyBatch))
}
