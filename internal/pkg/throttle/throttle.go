// Package throttle limits how often a confirmation code is re-sent to the
// same address. A nil *Cooldown or one without a client never throttles.
package throttle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "smartcheck:resend:"

type Cooldown struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewCooldown(rdb *redis.Client, ttl time.Duration) *Cooldown {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Cooldown{rdb: rdb, ttl: ttl}
}

// Allow reports whether a code may be sent to email now, and starts the
// cooldown when it may.
func (c *Cooldown) Allow(ctx context.Context, email string) (bool, error) {
	if c == nil || c.rdb == nil || email == "" {
		return true, nil
	}
	ok, err := c.rdb.SetNX(ctx, keyPrefix+strings.ToLower(email), "1", c.ttl).Result()
	if err != nil {
		return true, fmt.Errorf("cooldown setnx: %w", err)
	}
	return ok, nil
}

// Reset drops the cooldown, e.g. after a failed delivery.
func (c *Cooldown) Reset(ctx context.Context, email string) error {
	if c == nil || c.rdb == nil || email == "" {
		return nil
	}
	if err := c.rdb.Del(ctx, keyPrefix+strings.ToLower(email)).Err(); err != nil {
		return fmt.Errorf("cooldown del: %w", err)
	}
	return nil
}
