package ports

import (
	"context"
	"time"
)

// LookupCache memoizes resolved CRM record ids. Remote ids are stable, so a
// cache miss is the only correctness-relevant outcome: Get returns ("", nil)
// on a miss and implementations degrade to a no-op when the backend is down.
type LookupCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
