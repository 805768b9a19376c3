package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infohyun/aramcrm-sub001/internal/logging"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

func TestLockTable_SerializesAndCollects(t *testing.T) {
	table := newLockTable(logging.NewNop())
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = table.withLock(ctx, "wf", func(context.Context) error {
				mu.Lock()
				inside++
				if inside > maxInside {
					maxInside = inside
				}
				mu.Unlock()
				time.Sleep(time.Millisecond)
				mu.Lock()
				inside--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInside)
	assert.Zero(t, table.size(), "entries must be released")
}

type failingLocker struct{}

func (failingLocker) Lock(context.Context, string, time.Duration) (ports.UnlockFunc, error) {
	return nil, errors.New("redis down")
}

func TestLockTable_DistributedFailure(t *testing.T) {
	table := newLockTable(logging.NewNop())
	table.locker = failingLocker{}

	called := false
	err := table.withLock(context.Background(), "wf", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distributed lock")
	assert.False(t, called)
	assert.Zero(t, table.size())
}
