package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/infohyun/aramcrm-sub001/internal/adapters/file"
	"github.com/infohyun/aramcrm-sub001/internal/config"
	"github.com/infohyun/aramcrm-sub001/internal/logging"
	httpAdapter "github.com/infohyun/aramcrm-sub001/pkg/adapters/http"
	"github.com/infohyun/aramcrm-sub001/pkg/adapters/memory"
	"github.com/infohyun/aramcrm-sub001/pkg/adapters/postgres"
	redisAdapter "github.com/infohyun/aramcrm-sub001/pkg/adapters/redis"
	"github.com/infohyun/aramcrm-sub001/pkg/domain"
	"github.com/infohyun/aramcrm-sub001/pkg/observability"
	"github.com/infohyun/aramcrm-sub001/pkg/persistence/middleware"
	"github.com/infohyun/aramcrm-sub001/pkg/ports"
	"github.com/infohyun/aramcrm-sub001/pkg/workflow"
)

// Runtime is the wired application: store, service and the observers that
// transports share.
type Runtime struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   ports.WorkflowStore
	Service *workflow.Service
	Streams *httpAdapter.StreamManager
	Metrics *observability.Metrics

	closers []func() error
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.Log, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return logging.NewWithFormat(logging.ParseLevel(cfg.Level), cfg.Format, w)
}

// NewRuntime opens the configured store, applies the persistence middleware
// and builds the service with audit, stream and metrics hooks.
func NewRuntime(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if logger == nil {
		logger = NewLogger(cfg.Log, nil)
	}
	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Streams: httpAdapter.NewStreamManager(logger),
	}
	if cfg.Server.Metrics {
		rt.Metrics = observability.NewMetrics()
	}

	base, locker, err := rt.openStore(ctx)
	if err != nil {
		rt.Close()
		return nil, err
	}

	mws, err := storeMiddleware(cfg)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Store = middleware.Chain(base, mws...)

	hooks := []domain.Hooks{observability.AuditHooks(logger), rt.Streams.Hooks()}
	if rt.Metrics != nil {
		hooks = append(hooks, rt.Metrics.Hooks())
	}
	opts := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithHooks(hooks...),
		workflow.WithStrictChain(cfg.Chain.Strict),
		workflow.WithMaxLabelSize(cfg.Chain.MaxLabelSize),
	}
	if locker != nil {
		opts = append(opts, workflow.WithLocker(locker), workflow.WithLockTTL(cfg.Redis.LockTTL))
	}
	rt.Service = workflow.NewService(rt.Store, opts...)

	logger.Debug("Runtime ready", "driver", cfg.Store.Driver, "middleware", len(mws), "distributed_lock", locker != nil)
	return rt, nil
}

func (rt *Runtime) openStore(ctx context.Context) (ports.WorkflowStore, ports.DistributedLocker, error) {
	cfg := rt.Config
	var store ports.WorkflowStore
	var redisStore *redisAdapter.Store

	switch cfg.Store.Driver {
	case "memory":
		store = memory.NewStore()
	case "file":
		store = file.New(cfg.Store.Path, file.Format(cfg.Store.Format))
	case "redis":
		redisStore = rt.newRedis()
		if err := redisStore.Ping(ctx); err != nil {
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		store = redisStore
	case "postgres":
		if cfg.Postgres.AutoMigrate {
			if err := postgres.ApplyMigrations(ctx, cfg.Postgres.DSN); err != nil {
				return nil, nil, err
			}
		}
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			ConnectRetries: cfg.Postgres.ConnectRetries,
			RetryBackoff:   cfg.Postgres.RetryBackoff,
		})
		if err != nil {
			return nil, nil, err
		}
		rt.closers = append(rt.closers, func() error { pool.Close(); return nil })
		store = postgres.New(pool, postgres.WithLogger(rt.Logger))
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	if !cfg.Redis.Lock {
		return store, nil, nil
	}
	if redisStore == nil {
		redisStore = rt.newRedis()
	}
	return store, redisAdapter.NewLocker(redisStore.Client(), cfg.Redis.Prefix), nil
}

func (rt *Runtime) newRedis() *redisAdapter.Store {
	cfg := rt.Config.Redis
	s := redisAdapter.New(cfg.Addr, cfg.Password, cfg.DB, redisAdapter.WithPrefix(cfg.Prefix))
	rt.closers = append(rt.closers, s.Close)
	return s
}

func storeMiddleware(cfg *config.Config) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.Redact.Enabled {
		patterns := cfg.Redact.Patterns
		if len(patterns) == 0 {
			patterns = middleware.DefaultRedactPatterns
		}
		mw, err := middleware.NewRedactMiddleware(patterns)
		if err != nil {
			return nil, fmt.Errorf("redact: %w", err)
		}
		mws = append(mws, mw)
	}

	active, fallback, err := cfg.Encryption.Keys()
	if err != nil {
		return nil, err
	}
	if active != nil {
		mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey:    active,
			FallbackKeys: fallback,
		})
		if err != nil {
			return nil, fmt.Errorf("encryption: %w", err)
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

// Close releases store connections. It is safe to call more than once.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	rt.closers = nil
	return errors.Join(errs...)
}
