package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/telecare/scheduling-engine/internal/civil"
)

var (
	ErrLockNotAcquired = errors.New("booking lock not acquired")
)

// BookingLocker serializes booking attempts per provider and calendar day.
// The ledger's atomic insert is what actually prevents double booking; this
// lock only keeps a hot provider day from hammering it with doomed inserts.
type BookingLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookingLocker creates a locker with one Redis key per (provider, date).
func NewBookingLocker(client *redis.Client, ttl time.Duration) *BookingLocker {
	return &BookingLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *BookingLocker) WithBookingLock(ctx context.Context, providerID uuid.UUID, date civil.Date, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:booking:%s:%s", providerID, date)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire booking lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *BookingLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release booking lock: %w", err)
	}
	return nil
}
