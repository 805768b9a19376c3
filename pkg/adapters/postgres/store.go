package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/infohyun/aramcrm-sub001/internal/logging"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
)

const table = "workflows"

var columns = []string{
	"id", "name", "description", "trigger", "is_active", "run_count",
	"last_run_at", "nodes", "edges", "created_at", "updated_at",
}

// DB is the subset of pgxpool.Pool the store needs; pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements ports.WorkflowStore on PostgreSQL.
// Nodes and edges are kept as JSON text and decoded leniently on read.
type Store struct {
	db     DB
	logger *slog.Logger
}

type Option func(*Store)

// WithLogger sets the logger used to report malformed rows.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// New creates a store over db.
func New(db DB, opts ...Option) *Store {
	s := &Store{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config holds connection pool settings.
type Config struct {
	DSN            string
	MaxConns       int32
	ConnectRetries uint64
	RetryBackoff   time.Duration
}

// Connect opens a pool and pings it, retrying with exponential backoff so the
// service can start before the database is ready.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: new pool: %w", err)
	}

	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	policy := retry.WithMaxRetries(cfg.ConnectRetries, retry.NewExponential(backoff))
	err = retry.Do(ctx, policy, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return pool, nil
}

type workflowRow struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	Trigger     string     `db:"trigger"`
	IsActive    bool       `db:"is_active"`
	RunCount    int        `db:"run_count"`
	LastRunAt   *time.Time `db:"last_run_at"`
	Nodes       string     `db:"nodes"`
	Edges       string     `db:"edges"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
}

func (s *Store) toDomain(r *workflowRow) *domain.Workflow {
	nodes, err := domain.DecodeNodes([]byte(r.Nodes))
	if err != nil {
		s.logger.Warn("Malformed nodes column, treating as empty", "workflow_id", r.ID, "err", err)
	}
	edges, err := domain.DecodeEdges([]byte(r.Edges))
	if err != nil {
		s.logger.Warn("Malformed edges column, treating as empty", "workflow_id", r.ID, "err", err)
	}
	return &domain.Workflow{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Trigger:     domain.Trigger(r.Trigger),
		IsActive:    r.IsActive,
		RunCount:    r.RunCount,
		LastRunAt:   r.LastRunAt,
		Nodes:       nodes,
		Edges:       edges,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// Save upserts the workflow.
func (s *Store) Save(ctx context.Context, wf *domain.Workflow) error {
	nodes, err := encodeList(wf.Nodes)
	if err != nil {
		return fmt.Errorf("encoding nodes: %w", err)
	}
	edges, err := encodeList(wf.Edges)
	if err != nil {
		return fmt.Errorf("encoding edges: %w", err)
	}

	query, args, err := squirrel.Insert(table).
		Columns(columns...).
		Values(
			wf.ID, wf.Name, wf.Description, string(wf.Trigger), wf.IsActive, wf.RunCount,
			wf.LastRunAt, nodes, edges, wf.CreatedAt, wf.UpdatedAt,
		).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			trigger = EXCLUDED.trigger,
			is_active = EXCLUDED.is_active,
			run_count = EXCLUDED.run_count,
			last_run_at = EXCLUDED.last_run_at,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			updated_at = EXCLUDED.updated_at`).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building upsert query: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("upserting workflow: %w", err)
	}
	return nil
}

// Load retrieves a workflow by id.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	query, args, err := squirrel.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building select query: %w", err)
	}

	var row workflowRow
	if err := pgxscan.Get(ctx, s.db, &row, query, args...); err != nil {
		if pgxscan.NotFound(err) || errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("scanning workflow: %w", err)
	}
	return s.toDomain(&row), nil
}

// Delete removes a workflow. Missing rows are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	query, args, err := squirrel.Delete(table).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building delete query: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting workflow: %w", err)
	}
	return nil
}

// List filters in SQL and returns newest first.
func (s *Store) List(ctx context.Context, opts ports.ListOptions) ([]*domain.Workflow, error) {
	sb := squirrel.Select(columns...).
		From(table).
		OrderBy("created_at DESC", "id ASC").
		PlaceholderFormat(squirrel.Dollar)
	if opts.Trigger != "" {
		sb = sb.Where(squirrel.Eq{"trigger": string(opts.Trigger)})
	}
	if opts.Active != nil {
		sb = sb.Where(squirrel.Eq{"is_active": *opts.Active})
	}
	if opts.Limit > 0 {
		sb = sb.Limit(uint64(opts.Limit))
	}
	query, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building list query: %w", err)
	}

	var rows []*workflowRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("scanning workflows: %w", err)
	}
	out := make([]*domain.Workflow, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.toDomain(r))
	}
	return out, nil
}
