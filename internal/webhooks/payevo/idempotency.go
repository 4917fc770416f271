package payevo

import (
	"context"
	"time"

	"github.com/brendonia/brendonia-backend/pkg/redis"
)

const guardTTL = 24 * time.Hour

// Guard is the redis fast path in front of the payment_events unique
// constraint. It only short-circuits obvious replays; the database row is
// the source of truth, so a dead redis never breaks correctness.
type Guard struct {
	store redis.IdempotencyStore
}

// NewGuard wraps the idempotency store. A nil store disables the fast path.
func NewGuard(store redis.IdempotencyStore) *Guard {
	return &Guard{store: store}
}

// CheckAndMark returns false when the transaction was already seen. Redis
// errors degrade to "fresh" so delivery handling falls through to the DB.
func (g *Guard) CheckAndMark(ctx context.Context, txID string) bool {
	if g == nil || g.store == nil || txID == "" {
		return true
	}
	key := g.store.IdempotencyKey(Provider, txID)
	fresh, err := g.store.SetNX(ctx, key, "1", guardTTL)
	if err != nil {
		return true
	}
	return fresh
}

// Release drops the mark so a failed delivery can be retried.
func (g *Guard) Release(ctx context.Context, txID string) {
	if g == nil || g.store == nil || txID == "" {
		return
	}
	_ = g.store.Del(ctx, g.store.IdempotencyKey(Provider, txID))
}
