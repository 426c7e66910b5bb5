package lead

import (
	"context"
	"time"
)

// ScoreRepository defines the optional scored-lead history sink
type ScoreRepository interface {
	StoreScores(ctx context.Context, batchID string, leads []ScoredLead) error
	GetScores(ctx context.Context, institution Institution, since time.Time) ([]ScoredLead, error)
}
