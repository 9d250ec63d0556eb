package repository

import (
	"context"
	"time"
)

// DefaultStoreTimeout caps a single store call when a repository is
// constructed with a zero timeout.
const DefaultStoreTimeout = 5 * time.Second

// bound derives the per-call context every repository method runs under,
// so no query can outlive the store timeout. An earlier deadline already
// on ctx still wins.
func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
