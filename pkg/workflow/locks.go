package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

// DefaultLockTTL bounds how long a crashed replica can hold a distributed lock.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// lockTable serializes work per workflow id. Entries are reference counted so
// unused mutexes are garbage collected.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*lockEntry

	locker ports.DistributedLocker
	ttl    time.Duration
	logger *slog.Logger
}

func newLockTable(logger *slog.Logger) *lockTable {
	return &lockTable{
		locks:  make(map[string]*lockEntry),
		ttl:    DefaultLockTTL,
		logger: logger,
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (t *lockTable) acquire(id string) *lockEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.locks[id]
	if !ok {
		entry = &lockEntry{}
		t.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (t *lockTable) release(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.locks[id]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(t.locks, id)
	}
}

// size reports the number of live entries.
func (t *lockTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// withLock executes fn while holding the in-process lock for id and, when
// configured, the distributed lock as well.
func (t *lockTable) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := t.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		t.release(id)
	}()

	if t.locker != nil {
		unlock, err := t.locker.Lock(ctx, id, t.ttl)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				t.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"workflow_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
