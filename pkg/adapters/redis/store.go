package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

// DefaultPrefix namespaces every key written by the store and locker.
const DefaultPrefix = "aramcrm:workflow:"

// Sub-namespaces under the prefix. Documents, the index and locks never share
// a key, whatever the workflow id.
const (
	docSpace  = "wf:"
	indexName = "index"
	lockSpace = "lock:"
)

// Store implements ports.WorkflowStore using Redis.
// Each workflow is a JSON string; a sorted set scored by creation time indexes them.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix for workflows.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Client exposes the underlying client so a Locker can share the connection pool.
func (s *Store) Client() *backend.Client {
	return s.client
}

// Key returns the redis key holding the workflow document.
func (s *Store) Key(id string) string {
	return s.prefix + docSpace + id
}

func (s *Store) indexKey() string {
	return s.prefix + indexName
}

// Save persists the workflow and indexes it.
func (s *Store) Save(ctx context.Context, wf *domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.Key(wf.ID), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(wf.CreatedAt.UnixMilli()),
		Member: wf.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Load retrieves a workflow from Redis.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	val, err := s.client.Get(ctx, s.Key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var wf domain.Workflow
	if err := json.Unmarshal(val, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow %q: %w", id, err)
	}
	return &wf, nil
}

// Delete removes the workflow and its index entry.
func (s *Store) Delete(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.Key(id))
	pipe.ZRem(ctx, s.indexKey(), id)
	_, err := pipe.Exec(ctx)
	return err
}

// List reads the index newest first and fetches the documents in one MGET.
// Index entries whose document disappeared are pruned lazily.
func (s *Store) List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error) {
	ids, err := s.client.ZRevRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	if len(ids) == 0 {
		return []*domain.Workflow{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.Key(id)
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch workflows: %w", err)
	}

	all := make([]*domain.Workflow, 0, len(vals))
	var stale []any
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var wf domain.Workflow
		if err := json.Unmarshal([]byte(raw), &wf); err != nil {
			return nil, fmt.Errorf("failed to unmarshal workflow %q: %w", ids[i], err)
		}
		all = append(all, &wf)
	}
	if len(stale) > 0 {
		if err := s.client.ZRem(ctx, s.indexKey(), stale...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune index: %w", err)
		}
	}
	return opts.Apply(all), nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}
