// Package dashboard wires the Zest dashboard backend: payment requests,
// name resolution and registration, the transaction ledger, the CDP,
// stability pool and swap contracts, the price feed and KYC verification.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zest-protocol/dashboard/clients"
	"github.com/zest-protocol/dashboard/config"
	"github.com/zest-protocol/dashboard/logger"
	"github.com/zest-protocol/dashboard/metrics"
	"github.com/zest-protocol/dashboard/naming"
	"github.com/zest-protocol/dashboard/payment"
	"github.com/zest-protocol/dashboard/protocol"
	"github.com/zest-protocol/dashboard/queue"
	"github.com/zest-protocol/dashboard/settlement"
	"github.com/zest-protocol/dashboard/storage"
	"github.com/zest-protocol/dashboard/types"
	"github.com/zest-protocol/dashboard/verification"
)

// Dashboard is the main struct that owns every service and its collaborators
type Dashboard struct {
	Naming    *naming.Service
	Payments  *payment.Service
	Ledger    *settlement.Ledger
	CDP       *protocol.CDPService
	Stability *protocol.StabilityService
	Swap      *protocol.SwapService
	Prices    *protocol.PriceFeed
	KYC       *verification.Service

	config    *config.Config
	logger    logger.Logger
	metrics   metrics.Recorder
	timeout   time.Duration
	store     *storage.Store
	chain     clients.Client
	directory naming.Directory
	registrar naming.Registrar
	verifier  verification.Verifier
	jobs      *queue.Queue
	closers   []func()
}

// New creates a Dashboard from cfg. Collaborators not supplied through
// options are built from cfg: the store is opened, RPC endpoints dialled.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*Dashboard, error) {
	if cfg == nil {
		return nil, types.NewError(types.ErrConfig, "config is required", nil)
	}
	d := &Dashboard{
		config:  cfg,
		timeout: cfg.Chain.Timeout.Duration,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logger.OrNoop(d.logger)
	d.metrics = metrics.OrNoop(d.metrics)
	if d.timeout <= 0 {
		d.timeout = 10 * time.Second
	}

	if err := d.connect(ctx); err != nil {
		d.Close()
		return nil, err
	}
	d.wire()
	return d, nil
}

// connect builds every collaborator not injected through an option.
func (d *Dashboard) connect(ctx context.Context) error {
	cfg := d.config

	if d.store == nil {
		store, err := storage.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		d.store = store
		d.closers = append(d.closers, func() { _ = store.Close() })
	}

	if d.chain == nil {
		chain, err := clients.NewEVMClient(ctx, types.NetworkCitrea, cfg.Chain.RPCURL, d.timeout)
		if err != nil {
			return fmt.Errorf("failed to create %s client: %w", types.NetworkCitrea, err)
		}
		d.chain = chain
		d.closers = append(d.closers, chain.Close)
	}

	if d.directory == nil && cfg.NamingEnabled() {
		ens, err := clients.NewEVMClient(ctx, types.NetworkENS, cfg.Naming.ENSRPCURL, d.timeout)
		if err != nil {
			return fmt.Errorf("failed to create %s client: %w", types.NetworkENS, err)
		}
		d.closers = append(d.closers, ens.Close)
		d.directory = clients.NewENSClient(ens, common.HexToAddress(cfg.Naming.Registry))
	}

	if d.registrar == nil && cfg.RegistrationEnabled() {
		base, err := clients.NewEVMClient(ctx, types.NetworkRegistrar, cfg.Naming.BaseRPCURL, d.timeout)
		if err != nil {
			return fmt.Errorf("failed to create %s client: %w", types.NetworkRegistrar, err)
		}
		d.closers = append(d.closers, base.Close)
		tx, err := clients.NewTransactor(base.Backend(), cfg.Naming.PrivateKey)
		if err != nil {
			return fmt.Errorf("failed to load registrar signer: %w", err)
		}
		d.registrar = naming.NewL2Registrar(base, common.HexToAddress(cfg.Naming.L2Registrar), tx)
		d.logger.Info("name registration enabled", map[string]any{"signer": tx.From().Hex()})
	}

	if d.verifier == nil && cfg.KYCEnabled() {
		v, err := verification.NewHTTPVerifier(verification.HTTPConfig{
			URL:     cfg.KYC.VerifierURL,
			Scope:   cfg.KYC.AppScope,
			Timeout: cfg.KYC.Timeout.Duration,
		})
		if err != nil {
			return err
		}
		d.verifier = v
	}
	return nil
}

func (d *Dashboard) wire() {
	cfg := d.config
	contracts := protocol.Contracts{
		CDPManager:    common.HexToAddress(cfg.Contracts.CDPManager),
		StabilityPool: common.HexToAddress(cfg.Contracts.StabilityPool),
		Swap:          common.HexToAddress(cfg.Contracts.Swap),
		ZEST:          common.HexToAddress(cfg.Contracts.ZEST),
		USDT:          common.HexToAddress(cfg.Contracts.USDT),
	}

	d.jobs = queue.New(
		queue.WithWorkers(cfg.Queue.Workers),
		queue.WithCapacity(cfg.Queue.Capacity),
		queue.WithAttempts(cfg.Queue.Attempts),
		queue.WithBackoff(cfg.Queue.BaseDelay.Duration, 0),
		queue.WithLogger(d.logger),
		queue.WithMetrics(d.metrics),
	)

	d.Ledger = settlement.NewLedger(d.store, d.logger, d.metrics)

	namingCfg := naming.Config{
		Directory: d.directory,
		Store:     d.store,
		Timeout:   d.timeout,
		Logger:    d.logger,
		Metrics:   d.metrics,
	}
	if d.registrar != nil {
		namingCfg.Registrar = d.registrar
		namingCfg.Jobs = d.jobs
	}
	d.Naming = naming.NewService(namingCfg)
	d.jobs.Register(naming.JobRegister, d.Naming.HandleRegister)

	d.Payments = payment.NewService(payment.Config{
		Chain:   d.chain,
		Names:   d.Naming,
		Store:   d.store,
		ZEST:    contracts.ZEST,
		USDT:    contracts.USDT,
		Timeout: d.timeout,
		Logger:  d.logger,
		Metrics: d.metrics,
	})

	d.CDP = protocol.NewCDPService(d.chain, contracts.CDPManager, d.store, d.Ledger, d.logger, d.metrics)
	d.Stability = protocol.NewStabilityService(d.chain, contracts.StabilityPool, d.store, d.Ledger, d.logger, d.metrics)
	d.Swap = protocol.NewSwapService(d.chain, contracts, d.Ledger, d.logger, d.metrics)
	d.Prices = protocol.NewPriceFeed(d.chain, contracts.CDPManager, cfg.MockPriceFeed, d.metrics)

	var kycJobs verification.Enqueuer
	if d.verifier != nil {
		kycJobs = d.jobs
	}
	d.KYC = verification.NewService(d.verifier, d.store, kycJobs, d.logger, d.metrics)
	if d.verifier != nil {
		d.jobs.Register(verification.JobVerify, d.KYC.HandleVerify)
	}
}

// Start launches the background workers.
func (d *Dashboard) Start(ctx context.Context) {
	d.jobs.Start(ctx)
	d.logger.Info("dashboard started", map[string]any{
		"network":      d.chain.GetNetwork().String(),
		"naming":       d.directory != nil,
		"registration": d.registrar != nil,
		"kyc":          d.verifier != nil,
	})
}

// Ping checks the store is reachable.
func (d *Dashboard) Ping(ctx context.Context) error {
	if d.store == nil {
		return errors.New("store not configured")
	}
	return d.store.Ping(ctx)
}

// Jobs exposes the background queue, mainly for job status lookups.
func (d *Dashboard) Jobs() *queue.Queue {
	return d.jobs
}

func (d *Dashboard) Logger() logger.Logger {
	return d.logger
}

func (d *Dashboard) Metrics() metrics.Recorder {
	return d.metrics
}

// Close stops the workers and releases every connection New opened.
// Injected collaborators are left open.
func (d *Dashboard) Close() {
	if d.jobs != nil {
		d.jobs.Stop()
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}
