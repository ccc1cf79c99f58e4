package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/resale-backend/pkg/redis"
)

const eventScope = "stripe_event"

// EventGuard remembers processed event ids in Redis so redeliveries return
// before touching the database. The order-level paid guard remains the
// authoritative check; this is only the fast path.
type EventGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewEventGuard(store redis.IdempotencyStore, ttl time.Duration) (*EventGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl <= 0 {
		return nil, errors.New("ttl must be positive")
	}
	return &EventGuard{store: store, ttl: ttl}, nil
}

// Claim records the event id and reports whether this caller is the first to
// see it.
func (g *EventGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	claimed, err := g.store.SetNX(ctx, g.store.IdempotencyKey(eventScope, eventID), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim stripe event: %w", err)
	}
	return claimed, nil
}

// Release forgets the event id so a retried delivery is processed again.
func (g *EventGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(eventScope, eventID))
}
