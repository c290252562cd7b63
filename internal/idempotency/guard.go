// Package idempotency guards against applying the same client operation
// twice. The storage uniqueness constraint on the idempotency key remains
// the final arbiter; the guard rejects duplicates early so they can be
// reported before any lock is taken.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/josh-kwaku/wallet-ledger/internal/domain"
	"github.com/josh-kwaku/wallet-ledger/internal/logging"
)

const (
	keyPrefix = "wallet-ledger:idempotency:v1:"
	MaxKeyLen = 255

	DefaultReservationTTL = 30 * time.Second
)

// releaseScript deletes the marker only if it still holds our token, so a
// reservation that outlived its TTL cannot release someone else's.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type transactionLookup interface {
	GetByIdempotencyKey(ctx context.Context, key string) (*domain.Transaction, error)
}

type Guard struct {
	transactions transactionLookup
	cache        *redis.Client
	ttl          time.Duration
}

// NewGuard builds a guard. cache may be nil, in which case only committed
// transactions are checked.
func NewGuard(transactions transactionLookup, cache *redis.Client, ttl time.Duration) *Guard {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &Guard{transactions: transactions, cache: cache, ttl: ttl}
}

// Reservation marks a key as in flight. Release is safe to call on a nil
// or no-op reservation.
type Reservation struct {
	cache *redis.Client
	key   string
	token string
}

func ValidateKey(key string) error {
	if key == "" {
		return domain.ErrMissingIdempotencyKey
	}
	if len(key) > MaxKeyLen {
		return fmt.Errorf("idempotency key longer than %d characters: %w", MaxKeyLen, domain.ErrInvalidRequest)
	}
	return nil
}

// CheckAndReserve returns the committed transaction for key when one
// exists. Otherwise it reserves the key and returns the reservation; a key
// reserved by a concurrent caller yields domain.ErrDuplicateTransaction.
func (g *Guard) CheckAndReserve(ctx context.Context, key string) (*Reservation, *domain.Transaction, error) {
	if err := ValidateKey(key); err != nil {
		return nil, nil, fmt.Errorf("CheckAndReserve: %w", err)
	}

	existing, err := g.transactions.GetByIdempotencyKey(ctx, key)
	if err == nil {
		return nil, existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, nil, fmt.Errorf("CheckAndReserve: %w", err)
	}

	res, err := g.reserve(ctx, key)
	if err != nil {
		return nil, nil, fmt.Errorf("CheckAndReserve: %w", err)
	}
	return res, nil, nil
}

func (g *Guard) reserve(ctx context.Context, key string) (*Reservation, error) {
	if g.cache == nil {
		return &Reservation{}, nil
	}

	token := uuid.NewString()
	ok, err := g.cache.SetNX(ctx, keyPrefix+key, token, g.ttl).Result()
	if err != nil {
		// Fall back to the storage constraint alone.
		logging.FromContext(ctx).Warn("idempotency reservation unavailable",
			"idempotency_key", key,
			"error", err,
		)
		return &Reservation{}, nil
	}
	if !ok {
		return nil, domain.ErrDuplicateTransaction
	}
	return &Reservation{cache: g.cache, key: keyPrefix + key, token: token}, nil
}

func (r *Reservation) Release(ctx context.Context) {
	if r == nil || r.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, r.cache, []string{r.key}, r.token).Err(); err != nil {
		logging.FromContext(ctx).Warn("idempotency reservation release failed",
			"key", r.key,
			"error", err,
		)
	}
}
