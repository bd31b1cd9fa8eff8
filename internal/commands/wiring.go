package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline-dev/ledgerline/internal/audit"
	"github.com/ledgerline-dev/ledgerline/internal/cache"
	"github.com/ledgerline-dev/ledgerline/internal/config"
	"github.com/ledgerline-dev/ledgerline/internal/currency"
	"github.com/ledgerline-dev/ledgerline/internal/idempotency"
	"github.com/ledgerline-dev/ledgerline/internal/invoice"
	"github.com/ledgerline-dev/ledgerline/internal/posting"
	"github.com/ledgerline-dev/ledgerline/internal/repository"
)

// runtime is the wired collaborator set commands share. Close releases
// the database pool when one was opened.
type runtime struct {
	cfg   *config.Config
	log   *slog.Logger
	repo  repository.Repository
	store idempotency.Store
	cache cache.Cache
	fx    currency.Converter
	sink  audit.Sink
	pool  *pgxpool.Pool
}

// openRuntime loads the config and wires every collaborator the way
// production runs: Postgres when a database URL is set, redis when a
// cache address is set, in-memory fallbacks otherwise.
func openRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:  cfg,
		log:  slog.New(slog.NewTextHandler(os.Stderr, nil)),
		sink: audit.NewCSVLog("."),
	}

	if cfg.Database.URL != "" {
		pool, err := pgxpool.New(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		rt.pool = pool
		rt.repo = repository.NewPostgres(pool, rt.log)
		rt.store = idempotency.NewPostgres(pool)
	} else {
		rt.log.Warn("database url is unset, using the in-memory repository")
		rt.repo = repository.NewMemory()
		rt.store = idempotency.NewMemory(nil)
	}

	c, err := cache.Connect(ctx, cfg.Cache.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	rt.cache = c

	fx, err := converterFrom(cfg)
	if err != nil {
		return nil, err
	}
	rt.fx = fx

	return rt, nil
}

func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
}

// postingConfig translates the YAML posting section into the service's
// policy struct.
func postingConfig(cfg *config.Config) (posting.Config, error) {
	threshold, ok, err := cfg.Posting.ThresholdAmount()
	if err != nil {
		return posting.Config{}, err
	}
	if !ok {
		// No threshold means nothing routes to approval.
		threshold = decimal.NewFromInt(1 << 50)
	}
	return posting.Config{
		CompanyID:         cfg.Company.ID,
		ApprovalThreshold: threshold,
		ApproverRoles:     cfg.Posting.ApproverRoles,
		ReceivableAccount: cfg.Posting.ReceivableAccount,
		TaxAccount:        cfg.Posting.TaxAccount,
	}, nil
}

// taxRatesFrom parses the configured tax table into a resolver.
func taxRatesFrom(cfg *config.Config) (invoice.StaticRates, error) {
	rates := make(invoice.StaticRates, len(cfg.Posting.TaxRates))
	for code, raw := range cfg.Posting.TaxRates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing tax rate %s=%q: %w", code, raw, err)
		}
		rates[code] = rate
	}
	return rates, nil
}

// cacheProbeFor mirrors the cache wiring by type without dialing redis,
// for inspection paths that must not open connections.
func cacheProbeFor(cfg *config.Config) cache.Cache {
	if cfg.Cache.RedisAddr == "" {
		return cache.Noop{}
	}
	return cache.NewRedis(nil)
}

// converterFrom parses the configured exchange-rate table.
func converterFrom(cfg *config.Config) (currency.Static, error) {
	fx := make(currency.Static, len(cfg.Rates))
	for pair, raw := range cfg.Rates {
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing exchange rate %s=%q: %w", pair, raw, err)
		}
		fx[pair] = rate
	}
	return fx, nil
}
