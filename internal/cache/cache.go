package cache

import (
	"context"
	"errors"

	"github.com/jessetechgeek/shopilent-sub006/internal/domain"
)

// CartCache keys carts by their owning user. Implementations treat the
// cache as best-effort: a failed Set or Delete never fails the request.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

// ErrCacheMiss distinguishes "not cached" from a transport failure so
// callers fall through to the store without logging noise.
var ErrCacheMiss = errors.New("cache miss")
