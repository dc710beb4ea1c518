package ports

import (
	"context"

	"oregrid/internal/domain"
)

// Storage persists settled rounds for later analysis. Optional: a nil Storage
// disables persistence, and write failures are logged, never fatal.
type Storage interface {
	SaveRound(ctx context.Context, rec domain.RoundRecord) error
	Close() error
}
