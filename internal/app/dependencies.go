// Package app wires the services shared by cmd/pos and cmd/worker.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/pos-terminal/internal/analytics"
	"github.com/noah-isme/pos-terminal/internal/billing"
	"github.com/noah-isme/pos-terminal/internal/cache"
	"github.com/noah-isme/pos-terminal/internal/catalog"
	"github.com/noah-isme/pos-terminal/internal/common"
	"github.com/noah-isme/pos-terminal/internal/config"
	"github.com/noah-isme/pos-terminal/internal/events"
	"github.com/noah-isme/pos-terminal/internal/health"
	"github.com/noah-isme/pos-terminal/internal/invoice"
	"github.com/noah-isme/pos-terminal/internal/lock"
	"github.com/noah-isme/pos-terminal/internal/ratelimit"
	"github.com/noah-isme/pos-terminal/internal/resilience"
	"github.com/noah-isme/pos-terminal/internal/sale"
	"github.com/noah-isme/pos-terminal/internal/session"
	"github.com/noah-isme/pos-terminal/internal/storeapi"
	"github.com/noah-isme/pos-terminal/internal/user"
	"github.com/noah-isme/pos-terminal/internal/voucher"
)

const tokenSkew = 30 * time.Second

// Dependencies enumerates the long-lived services behind the HTTP surface.
// Redis and TaskClient are nil when not configured.
type Dependencies struct {
	Config       *config.Config
	Logger       zerolog.Logger
	Redis        *redis.Client
	Validator    *validator.Validate
	StoreAPI     *storeapi.Client
	Catalog      *catalog.Service
	Vouchers     *voucher.Service
	Users        *user.Service
	Invoices     *invoice.Service
	Analytics    *analytics.Service
	Sales        *sale.Submitter
	Sessions     *session.Manager
	Terminals    *billing.Registry
	Printer      invoice.Printer
	Bus          *events.Bus
	LoginLimiter *limiter.Limiter
	TaskClient   *asynq.Client
	Probes       health.Probes
}

// New connects to Redis (when configured) and builds every service.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, metrics bool) (*Dependencies, error) {
	d := &Dependencies{Config: cfg, Logger: logger, Validator: common.NewValidator()}

	var rdb redis.UniversalClient
	if cfg.RedisURL != "" {
		client, err := NewRedis(ctx, cfg.RedisURL, metrics, logger)
		if err != nil {
			return nil, err
		}
		d.Redis = client
		rdb = client
	}

	api, err := storeapi.New(storeapi.Options{
		BaseURL:     cfg.StoreAPIURL,
		Timeout:     cfg.StoreAPITimeout,
		Breaker:     resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRatio, cfg.CircuitOpenFor),
		MaxAttempts: cfg.RetryMaxAttempts,
		RetryBase:   cfg.RetryBase,
		RetryJitter: cfg.RetryJitter,
		Logger:      logger,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	d.StoreAPI = api
	d.Probes = health.Probes{StoreAPI: api, Redis: rdb}

	d.Catalog = catalog.NewService(catalog.ServiceConfig{
		API:      api,
		Cache:    cache.NewJSON(rdb, cfg.SearchCacheTTL),
		Validate: d.Validator,
		Logger:   logger.With().Str("component", "catalog").Logger(),
	})
	d.Vouchers = &voucher.Service{API: api, Validate: d.Validator, Logger: logger.With().Str("component", "voucher").Logger()}
	d.Users = &user.Service{API: api, Validate: d.Validator, Logger: logger.With().Str("component", "user").Logger()}
	d.Sales = &sale.Submitter{API: api, Validate: d.Validator, Logger: logger.With().Str("component", "sale").Logger()}

	d.Analytics = &analytics.Service{
		Reports: d.Catalog,
		Cache:   cache.NewJSON(rdb, cfg.AnalyticsCacheTTL),
		Logger:  logger.With().Str("component", "analytics").Logger(),
	}
	if rdb != nil {
		d.Analytics.Lock = lock.Locker{R: rdb}
	}

	if cfg.PrintMode == config.PrintModeQueue {
		opt, err := AsynqRedis(cfg.RedisURL)
		if err != nil {
			d.Close()
			return nil, err
		}
		d.TaskClient = asynq.NewClient(opt)
	}
	printer, err := NewPrinter(cfg.PrintMode, cfg, d.TaskClient)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.Printer = invoice.Instrument(printer)
	d.Invoices = &invoice.Service{API: api, Printer: d.Printer, Business: cfg.Business, Logger: logger.With().Str("component", "invoice").Logger()}

	d.Bus = &events.Bus{Notifiers: []events.Notifier{events.LogNotifier{Logger: logger.With().Str("component", "notices").Logger()}}}

	var tokens session.TokenStore = session.NewMemoryStore()
	if rdb != nil {
		tokens = session.RedisStore{Client: rdb}
	}
	d.Sessions = &session.Manager{
		API:      api,
		Store:    tokens,
		Validate: d.Validator,
		TTL:      cfg.SessionTTL,
		Skew:     tokenSkew,
		Logger:   logger.With().Str("component", "session").Logger(),
	}

	d.Terminals = billing.NewRegistry(billing.Deps{
		Lookup:      d.Catalog,
		Vouchers:    d.Vouchers,
		Sales:       d.Sales,
		Printer:     d.Printer,
		Business:    cfg.Business,
		Currency:    cfg.CurrencySymbol,
		SearchDelay: cfg.SearchDebounce,
		Bus:         d.Bus,
		Logger:      logger.With().Str("component", "billing").Logger(),
	})
	d.Sessions.OnLogout(func(_ context.Context, id string) { d.Terminals.Drop(id) })

	store, err := ratelimit.NewStore(rdb, "")
	if err != nil {
		d.Close()
		return nil, err
	}
	if d.LoginLimiter, err = ratelimit.New(cfg.LoginRateLimit, store); err != nil {
		d.Close()
		return nil, err
	}
	return d, nil
}

// Close releases terminals and connections.
func (d *Dependencies) Close() {
	if d.Terminals != nil {
		d.Terminals.Close()
	}
	if d.TaskClient != nil {
		if err := d.TaskClient.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close task client")
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Logger.Error().Err(err).Msg("close redis")
		}
	}
}

// NewRedis opens an instrumented Redis client and checks it answers.
func NewRedis(ctx context.Context, url string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// AsynqRedis converts REDIS_URL into an asynq connection option.
func AsynqRedis(url string) (asynq.RedisConnOpt, error) {
	opt, err := asynq.ParseRedisURI(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url for tasks: %w", err)
	}
	return opt, nil
}

// Renderer formats invoices with the configured currency and timezone.
func Renderer(cfg *config.Config) invoice.Renderer {
	return invoice.Renderer{Currency: cfg.CurrencySymbol, Location: cfg.Location()}
}

// NewPrinter builds the printer for mode. tasks is only used in queue mode.
func NewPrinter(mode string, cfg *config.Config, tasks invoice.Enqueuer) (invoice.Printer, error) {
	switch mode {
	case config.PrintModeSpool:
		return invoice.SpoolPrinter{Dir: cfg.PrintSpoolDir, Renderer: Renderer(cfg)}, nil
	case config.PrintModeCommand:
		fields := strings.Fields(cfg.PrintCommand)
		if len(fields) == 0 {
			return nil, errors.New("PRINT_COMMAND is empty")
		}
		return invoice.CommandPrinter{Command: fields[0], Args: fields[1:], Renderer: Renderer(cfg)}, nil
	case config.PrintModeQueue:
		if tasks == nil {
			return nil, errors.New("queue printing needs a task client")
		}
		return invoice.QueuePrinter{Client: tasks, Queue: cfg.PrintQueue, MaxRetry: 5}, nil
	case config.PrintModeNone:
		return invoice.DiscardPrinter{}, nil
	}
	return nil, fmt.Errorf("unsupported print mode %q", mode)
}
