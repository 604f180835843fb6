// Package lock serializes read-modify-write cycles on a single conversation.
package lock

import (
	"architect/internal/apperr"
	"context"
	"errors"
	"fmt"
)

// Locker hands out exclusive access to a key. The returned release function
// must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// ConversationKey is the lock key for a conversation id
func ConversationKey(id int64) string {
	return fmt.Sprintf("architect:lock:conversation:%d", id)
}

// waitError reports why acquiring key stopped. Running out of wait budget
// while the caller is still alive means the store is effectively unavailable.
func waitError(parent, wait context.Context, key string) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	if errors.Is(wait.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("lock %s: timed out waiting: %w", key, apperr.ErrStorageUnavailable)
	}
	return fmt.Errorf("lock %s: %w", key, wait.Err())
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrStorageUnavailable, err)
}
