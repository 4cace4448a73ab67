// Package contextutil provides small helpers for context-based cancellation
// shared by the scanner, hasher, and executor worker pools.
package contextutil

import (
	"context"
)

// IsCancelled returns whether or not the context's Done channel is closed.
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
