package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Deduper gates the background streak repair so that concurrent snapshot
// deliveries for the same user do not issue duplicate write-backs.
type Deduper struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{rdb: rdb, ttl: ttl}
}

// AcquireOnce tries to take the repair lock for a user on a given day.
// Returns true if this caller should run the repair, false if another
// already has. Repair is idempotent, so when redis is unavailable the safe
// answer is to proceed.
func (d *Deduper) AcquireOnce(ctx context.Context, userID int, day string) bool {
	if d == nil || d.rdb == nil {
		return true
	}

	key := fmt.Sprintf("repair:%d:%s", userID, day)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}
