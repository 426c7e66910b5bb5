package batch

import (
	"context"
	"time"
)

// Repository defines the optional batch audit sink
type Repository interface {
	Store(ctx context.Context, summary *Summary) error
	GetRecent(ctx context.Context, since time.Time) ([]Summary, error)
}
