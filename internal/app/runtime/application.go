// Package runtime assembles configuration, stores, services and the HTTP
// server into a runnable process.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/OmniStable-Network/bridge_layer/internal/api/httpserver"
	app "github.com/OmniStable-Network/bridge_layer/internal/app"
	"github.com/OmniStable-Network/bridge_layer/internal/app/domain/bridge"
	"github.com/OmniStable-Network/bridge_layer/internal/app/httpapi"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage/memory"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage/postgres"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage/redisledger"
	"github.com/OmniStable-Network/bridge_layer/internal/app/treasury"
	"github.com/OmniStable-Network/bridge_layer/internal/config"
	"github.com/OmniStable-Network/bridge_layer/internal/middleware"
	"github.com/OmniStable-Network/bridge_layer/internal/platform/migrations"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg     *config.Config
	seed    *config.Seed
	log     *logger.Logger
	app     *app.Application
	server  *httpserver.Server
	limiter *middleware.RateLimiter
	db      *sqlx.DB
	usage   *redisledger.Store
}

// NewApplication constructs a new application instance with default wiring.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		FilePrefix: cfg.Logging.FilePrefix,
	})

	seed := config.LoadSeedOrDefault(cfg.SeedPath)

	stores, db, usage, err := buildStores(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	application, err := app.New(stores, app.Options{
		Treasury:       buildTreasury(cfg, seed),
		Depositors:     config.Addresses(seed.Depositors),
		DisableEvents:  cfg.DisableEvents,
		MonitorRefresh: cfg.Monitor.RefreshSpec,
		UsageRetention: time.Duration(cfg.Monitor.RetentionHours) * time.Hour,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("assemble application: %w", err)
	}

	api, err := httpapi.NewHandlerWithAudit(application, cfg.Server.AuditLogPath)
	if err != nil {
		return nil, err
	}
	handler, limiter := httpserver.Chain(api, cfg.Server, log)

	return &Application{
		cfg:     cfg,
		seed:    seed,
		log:     log,
		app:     application,
		server:  httpserver.New(cfg.Server, log, handler),
		limiter: limiter,
		db:      db,
		usage:   usage,
	}, nil
}

// App exposes the assembled services, mainly for tests.
func (a *Application) App() *app.Application {
	return a.app
}

// Run starts the services and the HTTP server, blocking until the context is
// cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.app.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}
	if err := a.applySeed(ctx); err != nil {
		a.log.WithError(err).Warn("governance seed not fully applied")
	}
	a.limiter.StartCleanup(ctx, time.Minute)

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.server.Addr())
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server, the services and the store
// connections.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.app.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.usage != nil {
		if err := a.usage.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

// applySeed registers seeded bridges and the chain limit on behalf of the
// first seeded governor. Bridges already present are left untouched.
func (a *Application) applySeed(ctx context.Context) error {
	if len(a.seed.Bridges) == 0 && len(a.seed.Minters) == 0 &&
		len(a.seed.FeeExemptions) == 0 && a.seed.ChainHourlyLimit == "" {
		return nil
	}
	governors := config.Addresses(a.seed.Governors)
	needsGovernor := len(a.seed.Bridges) > 0 || len(a.seed.FeeExemptions) > 0 || a.seed.ChainHourlyLimit != ""
	if needsGovernor && len(governors) == 0 {
		return fmt.Errorf("seed declares governed entries but no governors")
	}
	var caller common.Address
	if len(governors) > 0 {
		caller = governors[0]
	}

	if a.seed.ChainHourlyLimit != "" {
		limit, err := seedAmount(a.seed.ChainHourlyLimit)
		if err != nil {
			return fmt.Errorf("chain_hourly_limit: %w", err)
		}
		if err := a.app.Registry.SetChainHourlyLimit(ctx, caller, limit); err != nil {
			return fmt.Errorf("set chain limit: %w", err)
		}
	}

	for _, b := range a.seed.Bridges {
		tok := common.HexToAddress(b.Token)
		if _, err := a.app.Registry.Bridge(ctx, tok); err == nil {
			continue
		}
		cap, err := seedAmount(b.Cap)
		if err != nil {
			return fmt.Errorf("bridge %s cap: %w", b.Token, err)
		}
		limit, err := seedAmount(b.HourlyLimit)
		if err != nil {
			return fmt.Errorf("bridge %s hourly_limit: %w", b.Token, err)
		}
		if _, err := a.app.Registry.Register(ctx, caller, bridge.Config{
			Token:       tok,
			Cap:         cap,
			HourlyLimit: limit,
			Fee:         b.Fee,
		}); err != nil {
			return fmt.Errorf("seed bridge %s: %w", b.Token, err)
		}
		a.log.WithField("token", tok.Hex()).Info("seed bridge registered")
	}

	if len(a.seed.FeeExemptions) > 0 {
		current, err := a.app.Registry.FeeExemptions(ctx)
		if err != nil {
			return fmt.Errorf("list fee exemptions: %w", err)
		}
		exempt := make(map[common.Address]bool, len(current))
		for _, addr := range current {
			exempt[addr] = true
		}
		for _, raw := range a.seed.FeeExemptions {
			addr := common.HexToAddress(raw)
			if exempt[addr] {
				continue
			}
			if _, err := a.app.Registry.ToggleFeeExemption(ctx, caller, addr); err != nil {
				return fmt.Errorf("seed exemption %s: %w", raw, err)
			}
		}
	}

	// Minter grants act as the treasury account rather than a governor.
	if len(a.seed.Minters) > 0 {
		treasurer, err := a.app.Treasury.Address(ctx)
		if err != nil {
			return fmt.Errorf("resolve treasury: %w", err)
		}
		for _, raw := range a.seed.Minters {
			addr := common.HexToAddress(raw)
			ok, err := a.app.Tokens.IsMinter(ctx, addr)
			if err != nil {
				return fmt.Errorf("check minter %s: %w", raw, err)
			}
			if ok {
				continue
			}
			if err := a.app.Tokens.AddMinter(ctx, treasurer, addr); err != nil {
				return fmt.Errorf("seed minter %s: %w", raw, err)
			}
			a.log.WithField("minter", addr.Hex()).Info("seed minter granted")
		}
	}
	return nil
}

func buildStores(cfg *config.Config, log *logger.Logger) (app.Stores, *sqlx.DB, *redisledger.Store, error) {
	var stores app.Stores
	var db *sqlx.DB

	if cfg.Database.DSN != "" {
		var err error
		db, err = openDatabase(cfg.Database)
		if err != nil {
			return app.Stores{}, nil, nil, err
		}
		pg := postgres.New(db)
		stores = app.Stores{
			Bridges:    pg,
			Usage:      pg,
			ChainLimit: pg,
			Exemptions: pg,
			Balances:   pg,
			Supply:     pg,
			Receipts:   pg,
			Audit:      pg,
		}
	} else {
		log.Warn("DATABASE_URL not set; state is kept in memory")
		mem := memory.New()
		stores = app.Stores{
			Bridges:    mem,
			Usage:      mem,
			ChainLimit: mem,
			Exemptions: mem,
			Balances:   mem,
			Supply:     mem,
			Receipts:   mem,
			Audit:      mem,
		}
	}

	var usage *redisledger.Store
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var err error
		usage, err = redisledger.Open(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			if db != nil {
				db.Close()
			}
			return app.Stores{}, nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		stores.Usage = usage
	}

	return stores, db, usage, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if err := migrations.Apply(ctx, db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return db, nil
}

func buildTreasury(cfg *config.Config, seed *config.Seed) treasury.Treasury {
	if cfg.Treasury.URL != "" {
		return treasury.NewClient(treasury.ClientConfig{BaseURL: cfg.Treasury.URL})
	}
	if seed.Treasury == "" {
		return nil
	}
	return treasury.NewStatic(treasury.StaticConfig{
		Treasury:   common.HexToAddress(seed.Treasury),
		Stablecoin: common.HexToAddress(seed.Stablecoin),
		Governors:  config.Addresses(seed.Governors),
		Guardians:  config.Addresses(seed.Guardians),
	})
}

// seedAmount parses a decimal amount from the seed file. Empty means zero.
func seedAmount(raw string) (*uint256.Int, error) {
	if raw == "" {
		return uint256.NewInt(0), nil
	}
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, fmt.Errorf("%q is not a decimal integer", raw)
	}
	return amount, nil
}
