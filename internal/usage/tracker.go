package usage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"newsflash-bot/internal/observability"
	"newsflash-bot/internal/storage"
)

// Tracker records interactions in the background so a slow or broken
// repository never delays a reply. Events beyond the buffer are dropped.
type Tracker struct {
	repo   storage.Repository
	logger *observability.Logger
	events chan storage.Interaction
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewTracker(repo storage.Repository, logger *observability.Logger, buffer int) *Tracker {
	if buffer <= 0 {
		buffer = 64
	}
	t := &Tracker{
		repo:   repo,
		logger: logger,
		events: make(chan storage.Interaction, buffer),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

func (t *Tracker) run() {
	defer close(t.done)
	for in := range t.events {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := t.repo.RecordInteraction(ctx, &in); err != nil {
			t.logger.Error("failed to record interaction", "user_id", in.UserID, "command", in.Command, "error", err)
		}
		cancel()
	}
}

// Track queues one interaction and returns immediately.
func (t *Tracker) Track(userID int64, username, command string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	in := storage.Interaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  username,
		Command:   command,
		CreatedAt: time.Now().UTC(),
	}
	select {
	case t.events <- in:
	default:
		t.logger.Warn("usage queue full, dropping interaction", "user_id", userID, "command", command)
	}
}

// Close stops accepting events and waits for queued ones to be written.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.events)
	}
	t.mu.Unlock()

	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
