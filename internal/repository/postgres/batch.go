package postgres

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"leadscore/internal/domain/batch"
)

// Compile-time check
var _ batch.Repository = (*BatchRepository)(nil)

// BatchRepository implements batch.Repository using sqlx
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository creates a new batch audit repository
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Store persists one batch summary
func (r *BatchRepository) Store(ctx context.Context, summary *batch.Summary) error {
	query := `
		INSERT INTO batch_summaries (
			id, source_file, institution, confidence,
			records_in, records_scored, duplicates_dropped, invalid_emails,
			unknown_resolutions, unseen_categories,
			high_tier, medium_tier, low_tier,
			mean_score, max_score,
			started_at, finished_at
		) VALUES (
			:id, :source_file, :institution, :confidence,
			:records_in, :records_scored, :duplicates_dropped, :invalid_emails,
			:unknown_resolutions, :unseen_categories,
			:high_tier, :medium_tier, :low_tier,
			:mean_score, :max_score,
			:started_at, :finished_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, summary)
	return err
}

// GetRecent returns summaries processed since the given time, newest first
func (r *BatchRepository) GetRecent(ctx context.Context, since time.Time) ([]batch.Summary, error) {
	var summaries []batch.Summary

	query := `
		SELECT id, source_file, institution, confidence,
		       records_in, records_scored, duplicates_dropped, invalid_emails,
		       unknown_resolutions, unseen_categories,
		       high_tier, medium_tier, low_tier,
		       mean_score, max_score,
		       started_at, finished_at
		FROM batch_summaries
		WHERE started_at >= $1
		ORDER BY started_at DESC`

	err := r.db.SelectContext(ctx, &summaries, query, since)
	if err != nil {
		return nil, err
	}

	return summaries, nil
}
