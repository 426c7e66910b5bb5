package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"leadscore/internal/domain/lead"
	"leadscore/pkg/errors"
)

// Compile-time check
var _ lead.ScoreRepository = (*ScoreRepository)(nil)

// ScoreRepository implements lead.ScoreRepository using ClickHouse. It
// keeps the append-only score history the drift dashboards query.
type ScoreRepository struct {
	conn driver.Conn
}

// NewScoreRepository creates a new score history repository
func NewScoreRepository(conn driver.Conn) *ScoreRepository {
	return &ScoreRepository{conn: conn}
}

// StoreScores inserts one batch of scored leads
func (r *ScoreRepository) StoreScores(ctx context.Context, batchID string, leads []lead.ScoredLead) error {
	if len(leads) == 0 {
		return nil
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO lead_scores (
			batch_id, institution, contact_id,
			program_category, database_category,
			utm_source_category, utm_medium_category,
			phone_calls, dialer_calls, days_under_management, call_ratio,
			score, tier, scored_at
		)
	`)
	if err != nil {
		return errors.Wrap(err, "failed to prepare batch")
	}

	now := time.Now()
	for i := range leads {
		s := &leads[i]
		err := batch.Append(
			batchID, s.Lead.Institution.String(), s.Lead.ContactID,
			s.Features.ProgramCategory, s.Features.DatabaseCategory,
			s.Features.UTMSourceCategory, s.Features.UTMMediumCategory,
			int32(s.Lead.PhoneCalls), int32(s.Lead.DialerCalls),
			int32(s.Features.DaysUnderManagement), s.Features.CallRatio,
			s.Score, s.Tier.String(), now,
		)
		if err != nil {
			return errors.Wrap(err, "failed to append scored lead")
		}
	}

	return batch.Send()
}

// GetScores retrieves score history for one institution since a time
func (r *ScoreRepository) GetScores(ctx context.Context, institution lead.Institution, since time.Time) ([]lead.ScoredLead, error) {
	var rows []struct {
		ContactID           int64     `ch:"contact_id"`
		ProgramCategory     string    `ch:"program_category"`
		DatabaseCategory    string    `ch:"database_category"`
		UTMSourceCategory   string    `ch:"utm_source_category"`
		UTMMediumCategory   string    `ch:"utm_medium_category"`
		PhoneCalls          int32     `ch:"phone_calls"`
		DialerCalls         int32     `ch:"dialer_calls"`
		DaysUnderManagement int32     `ch:"days_under_management"`
		CallRatio           float64   `ch:"call_ratio"`
		Score               float64   `ch:"score"`
		Tier                string    `ch:"tier"`
		ScoredAt            time.Time `ch:"scored_at"`
	}

	query := `
		SELECT contact_id, program_category, database_category,
		       utm_source_category, utm_medium_category,
		       phone_calls, dialer_calls, days_under_management, call_ratio,
		       score, tier, scored_at
		FROM lead_scores
		WHERE institution = $1 AND scored_at >= $2
		ORDER BY scored_at DESC`

	if err := r.conn.Select(ctx, &rows, query, institution.String(), since); err != nil {
		return nil, errors.Wrap(err, "failed to query score history")
	}

	scored := make([]lead.ScoredLead, len(rows))
	for i, row := range rows {
		scored[i] = lead.ScoredLead{
			Lead: lead.Lead{
				Institution: institution,
				ContactID:   row.ContactID,
				PhoneCalls:  int(row.PhoneCalls),
				DialerCalls: int(row.DialerCalls),
			},
			Features: lead.FeatureVector{
				Institution:         institution.String(),
				PhoneCalls:          int(row.PhoneCalls),
				DialerCalls:         int(row.DialerCalls),
				DaysUnderManagement: int(row.DaysUnderManagement),
				CallRatio:           row.CallRatio,
				ProgramCategory:     row.ProgramCategory,
				DatabaseCategory:    row.DatabaseCategory,
				UTMSourceCategory:   row.UTMSourceCategory,
				UTMMediumCategory:   row.UTMMediumCategory,
			},
			Score: row.Score,
			Tier:  lead.Tier(row.Tier),
		}
	}
	return scored, nil
}
