package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/OmniStable-Network/bridge_layer/internal/app/events"
	gatewaysvc "github.com/OmniStable-Network/bridge_layer/internal/app/services/gateway"
	"github.com/OmniStable-Network/bridge_layer/internal/app/services/monitor"
	registrysvc "github.com/OmniStable-Network/bridge_layer/internal/app/services/registry"
	swapsvc "github.com/OmniStable-Network/bridge_layer/internal/app/services/swap"
	tokensvc "github.com/OmniStable-Network/bridge_layer/internal/app/services/token"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage"
	"github.com/OmniStable-Network/bridge_layer/internal/app/storage/memory"
	"github.com/OmniStable-Network/bridge_layer/internal/app/system"
	"github.com/OmniStable-Network/bridge_layer/internal/app/treasury"
	"github.com/OmniStable-Network/bridge_layer/pkg/logger"
)

// SystemAccount is the internal ledger identity custodying bridge assets
// and minting canonical supply. It is derived from a fixed label so every
// store implementation agrees on it.
var SystemAccount = common.BytesToAddress(crypto.Keccak256([]byte("bridgelayer.system"))[12:])

// Stores encapsulates persistence dependencies. Nil stores default to the
// in-memory implementation.
type Stores struct {
	Bridges    storage.BridgeStore
	Usage      storage.UsageStore
	ChainLimit storage.ChainLimitStore
	Exemptions storage.ExemptionStore
	Balances   storage.BalanceStore
	Supply     storage.SupplyStore
	Receipts   storage.ReceiptStore
	Audit      storage.AuditStore
}

// Options carries the deployment wiring that is not a store: the treasury
// backing authorization checks, the gateway depositor set, and the monitor
// schedule.
type Options struct {
	// Treasury resolves governance roles. Nil means no account holds any
	// authority, which locks every governance operation.
	Treasury treasury.Treasury

	// Depositors may submit gateway deposits.
	Depositors []common.Address

	// DisableEvents turns the WebSocket hub off.
	DisableEvents bool

	// MonitorRefresh overrides the gauge refresh schedule.
	MonitorRefresh string
	// UsageRetention enables the usage sweeper when positive. The default
	// keeps every bucket forever.
	UsageRetention time.Duration
}

// Application ties the bridge services together and manages their lifecycle.
type Application struct {
	manager *system.Manager
	log     *logger.Logger

	Registry *registrysvc.Service
	Swaps    *swapsvc.Engine
	Tokens   *tokensvc.Service
	Gateway  *gatewaysvc.Service
	Monitor  *monitor.Service
	Events   *events.Hub
	Treasury treasury.Treasury

	System    *system.Manager
	StartedAt time.Time
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Bridges == nil {
		stores.Bridges = mem
	}
	if stores.Usage == nil {
		stores.Usage = mem
	}
	if stores.ChainLimit == nil {
		stores.ChainLimit = mem
	}
	if stores.Exemptions == nil {
		stores.Exemptions = mem
	}
	if stores.Balances == nil {
		stores.Balances = mem
	}
	if stores.Supply == nil {
		stores.Supply = mem
	}
	if stores.Receipts == nil {
		stores.Receipts = mem
	}
	if stores.Audit == nil {
		stores.Audit = mem
	}

	ts := opts.Treasury
	if ts == nil {
		log.Warn("no treasury configured; governance operations are locked")
		ts = treasury.NewStatic(treasury.StaticConfig{})
	}

	manager := system.NewManager()

	var hub *events.Hub
	if !opts.DisableEvents {
		hub = events.NewHub(log)
		if err := manager.Register(hub); err != nil {
			return nil, fmt.Errorf("register events: %w", err)
		}
	}

	// The system account mints deposits and swap credits; grant it the
	// minter role up front so a fresh store is immediately usable.
	if err := ensureMinter(stores.Supply, SystemAccount); err != nil {
		return nil, fmt.Errorf("seed system minter: %w", err)
	}

	tokens := tokensvc.New(stores.Balances, stores.Supply, ts, log)

	var regEvents registrysvc.EventPublisher
	if hub != nil {
		regEvents = hub
	}
	registry := registrysvc.New(registrysvc.Config{
		Bridges:    stores.Bridges,
		Exemptions: stores.Exemptions,
		ChainLimit: stores.ChainLimit,
		Balances:   stores.Balances,
		Audit:      stores.Audit,
		Treasury:   ts,
		Vault:      SystemAccount,
		Events:     regEvents,
		Logger:     log,
	})

	var swapEvents swapsvc.EventPublisher
	if hub != nil {
		swapEvents = hub
	}
	engine := swapsvc.New(swapsvc.Config{
		Bridges:    stores.Bridges,
		Usage:      stores.Usage,
		ChainLimit: stores.ChainLimit,
		Exemptions: stores.Exemptions,
		Receipts:   stores.Receipts,
		Tokens:     tokens,
		Events:     swapEvents,
		System:     SystemAccount,
		Logger:     log,
	})

	var gwEvents gatewaysvc.EventPublisher
	if hub != nil {
		gwEvents = hub
	}
	gw := gatewaysvc.New(gatewaysvc.Config{
		Receipts:   stores.Receipts,
		Tokens:     tokens,
		Events:     gwEvents,
		System:     SystemAccount,
		Depositors: opts.Depositors,
		Logger:     log,
	})

	mon := monitor.New(monitor.Config{
		Bridges:     stores.Bridges,
		Usage:       stores.Usage,
		Balances:    stores.Balances,
		Supply:      stores.Supply,
		Vault:       SystemAccount,
		RefreshSpec: opts.MonitorRefresh,
		Retention:   opts.UsageRetention,
		Logger:      log,
	})
	if err := manager.Register(mon); err != nil {
		return nil, fmt.Errorf("register monitor: %w", err)
	}

	for _, name := range []string{"registry", "swaps", "gateway"} {
		if err := manager.Register(system.NoopService{ServiceName: name}); err != nil {
			return nil, fmt.Errorf("register %s service: %w", name, err)
		}
	}

	return &Application{
		manager:   manager,
		log:       log,
		Registry:  registry,
		Swaps:     engine,
		Tokens:    tokens,
		Gateway:   gw,
		Monitor:   mon,
		Events:    hub,
		Treasury:  ts,
		System:    manager,
		StartedAt: time.Now(),
	}, nil
}

func ensureMinter(supply storage.SupplyStore, addr common.Address) error {
	ok, err := supply.IsMinter(context.Background(), addr)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return supply.AddMinter(context.Background(), addr)
}

// Attach registers an additional lifecycle-managed service. Call before Start.
func (a *Application) Attach(service system.Service) error {
	return a.manager.Register(service)
}

// Start begins all registered services.
func (a *Application) Start(ctx context.Context) error {
	a.StartedAt = time.Now()
	return a.manager.Start(ctx)
}

// Stop stops all services.
func (a *Application) Stop(ctx context.Context) error {
	return a.manager.Stop(ctx)
}
