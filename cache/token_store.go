package cache

import (
	"context"
	"time"
)

// TokenEntry holds the verified claims of a local bearer token. Entries are
// keyed by token fingerprint, never by the raw token value.
type TokenEntry struct {
	UserID    string
	Username  string
	ExpiresAt time.Time
}

// TokenStore caches verified bearer tokens so repeat requests skip signature
// verification. Implementations must never return an expired entry.
type TokenStore interface {
	Set(ctx context.Context, token string, entry *TokenEntry) error
	Get(ctx context.Context, token string) (*TokenEntry, error)
	Delete(ctx context.Context, token string) error
	Count(ctx context.Context) int
	Close() error
}
