package storage

import (
	"context"
	"time"
)

// Interaction is one bot command received from a user.
type Interaction struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository persists usage data. Implementations serialize writes so a
// counter is never incremented twice for one slot.
type Repository interface {
	// RecordInteraction appends one interaction to the usage log.
	RecordInteraction(ctx context.Context, in *Interaction) error

	// ListInteractions returns the whole log, oldest first.
	ListInteractions(ctx context.Context) ([]Interaction, error)

	// IncrementUsage bumps the counter for key on day. A counter from an
	// earlier day starts over. With limit > 0 the counter never passes limit
	// and allowed reports whether this call got a slot.
	IncrementUsage(ctx context.Context, key string, day time.Time, limit int) (count int, allowed bool, err error)

	Close() error
}

// Day truncates t to its calendar date in t's location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
