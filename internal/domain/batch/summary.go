package batch

import (
	"time"

	"leadscore/internal/domain/lead"
)

// Summary is the per-batch audit record. Row-level anomalies are absorbed
// into defaults during processing and only surface here in aggregate.
type Summary struct {
	ID          string           `db:"id"`
	SourceFile  string           `db:"source_file"`
	Institution lead.Institution `db:"institution"`
	Confidence  lead.Confidence  `db:"confidence"`

	RecordsIn         int `db:"records_in"`
	RecordsScored     int `db:"records_scored"`
	DuplicatesDropped int `db:"duplicates_dropped"`
	InvalidEmails     int `db:"invalid_emails"`

	// UnknownResolutions counts outcome strings no keyword matched.
	// A growing bucket signals the keyword table needs updating.
	UnknownResolutions      int      `db:"unknown_resolutions"`
	UnknownResolutionSample []string `db:"-"`

	// UnseenCategories counts encoder fallback substitutions, the
	// early-warning signal for silent model drift.
	UnseenCategories int `db:"unseen_categories"`

	HighTier   int     `db:"high_tier"`
	MediumTier int     `db:"medium_tier"`
	LowTier    int     `db:"low_tier"`
	MeanScore  float64 `db:"mean_score"`
	MaxScore   float64 `db:"max_score"`

	StartedAt  time.Time `db:"started_at"`
	FinishedAt time.Time `db:"finished_at"`
}

// Duration returns how long the batch took to process
func (s *Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
