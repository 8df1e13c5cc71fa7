package usage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/storage"
)

var ErrBudgetExhausted = errors.New("daily budget exhausted")

// Budget is a per-day call allowance for a paid service, stored in the
// usage repository so restarts do not reset it.
type Budget struct {
	repo    storage.Repository
	key     string
	limit   int
	metrics *observability.Metrics
	now     func() time.Time
}

func NewBudget(repo storage.Repository, key string, limit int, metrics *observability.Metrics) *Budget {
	return &Budget{
		repo:    repo,
		key:     key,
		limit:   limit,
		metrics: metrics,
		now:     time.Now,
	}
}

// Spend takes one unit of today's allowance.
func (b *Budget) Spend(ctx context.Context) error {
	count, allowed, err := b.repo.IncrementUsage(ctx, b.key, b.now(), b.limit)
	if err != nil {
		return fmt.Errorf("usage counter: %w", err)
	}
	if !allowed {
		if b.metrics != nil {
			b.metrics.IncrementBudgetRejected()
		}
		return fmt.Errorf("%w: %d of %d used today", ErrBudgetExhausted, count, b.limit)
	}
	if b.metrics != nil {
		b.metrics.IncrementBudgetSpent()
	}
	return nil
}
