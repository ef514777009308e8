package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Inbox records which (handler, event) pairs were already handled so
// redelivered events can be skipped across every node sharing the Redis.
type Inbox struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

func NewInbox(rdb *goredis.Client, ttl time.Duration) *Inbox {
	return &Inbox{rdb: rdb, prefix: "inbox:", ttl: ttl}
}

// Claim reports true the first time key is seen within the TTL.
func (i *Inbox) Claim(ctx context.Context, key string) (bool, error) {
	ok, err := i.rdb.SetNX(ctx, i.prefix+key, time.Now().UTC().Format(time.RFC3339), i.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim %s: %w", key, err)
	}
	return ok, nil
}

// Forget drops a claim so a failed handler can see the event again.
func (i *Inbox) Forget(ctx context.Context, key string) error {
	if err := i.rdb.Del(ctx, i.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to forget %s: %w", key, err)
	}
	return nil
}
