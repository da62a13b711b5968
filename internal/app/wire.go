package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/omniarb/omniarbbot/internal/arbitrage"
	"github.com/omniarb/omniarbbot/internal/cache/memory"
	"github.com/omniarb/omniarbbot/internal/cache/redis"
	"github.com/omniarb/omniarbbot/internal/config"
	"github.com/omniarb/omniarbbot/internal/domain"
	"github.com/omniarb/omniarbbot/internal/executor"
	"github.com/omniarb/omniarbbot/internal/metrics"
	"github.com/omniarb/omniarbbot/internal/notify"
	"github.com/omniarb/omniarbbot/internal/observer"
	"github.com/omniarb/omniarbbot/internal/orchestrator"
	"github.com/omniarb/omniarbbot/internal/venue"
	"github.com/omniarb/omniarbbot/internal/wallet"
)

// Dependencies bundles everything the application needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Sources []venue.Source
	Cache   domain.ObservationCache
	Signer  *wallet.Signer // nil when no credential is configured

	Observer *observer.MarketObserver
	Analyzer *arbitrage.Detector
	Executor *executor.Executor

	Orchestrator *orchestrator.Orchestrator

	Registry *prometheus.Registry
	Metrics  *metrics.Recorder
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependencies from the configuration and
// returns them with a cleanup function releasing resources in reverse
// construction order.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Venue sources ---
	for _, endpoint := range cfg.Venues.Endpoints {
		src, err := venue.NewSource(endpoint, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: venue %q: %w", endpoint, err)
		}
		if closer, ok := src.(io.Closer); ok {
			closers = append(closers, func() { _ = closer.Close() })
		}
		deps.Sources = append(deps.Sources, src)
	}

	// --- Observation cache ---
	if cfg.Redis.Enabled {
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = client.Close() })
		deps.Cache = redis.NewObservationCache(client)
	} else {
		deps.Cache = memory.New()
	}

	// --- Signing credential ---
	keySrc := wallet.KeySource{
		RawPrivateKey:    cfg.Wallet.PrivateKey,
		EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      cfg.Wallet.KeyPassword,
	}
	if keySrc.Configured() {
		keyHex, err := wallet.LoadKey(keySrc)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		signer, err := wallet.NewSigner(keyHex)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: wallet: %w", err)
		}
		deps.Signer = signer
		logger.InfoContext(ctx, "wallet loaded",
			slog.String("address", signer.Address().Hex()),
		)
	} else {
		logger.InfoContext(ctx, "no signing credential configured, live trades will fail")
	}

	// --- Metrics ---
	deps.Registry = prometheus.NewRegistry()
	deps.Metrics = metrics.New(deps.Registry)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.New(senders, cfg.Notify.Events, logger)

	// --- Pipeline stages ---
	deps.Observer = observer.New(observer.Config{
		ScanConcurrency: cfg.Venues.ScanConcurrency,
		FetchTimeout:    cfg.Venues.FetchTimeout.Duration,
	}, deps.Sources, deps.Cache, logger)

	deps.Analyzer = arbitrage.NewDetector(arbitrage.Config{
		MinProfitThreshold: cfg.Trading.MinProfitThreshold,
		TradeNotional:      cfg.Trading.TradeNotional,
	}, logger)

	submitter := executor.NewSimulatedSubmitter(deps.Signer, 0, logger)
	deps.Executor = executor.New(executor.Config{
		AutoTrading:     cfg.Trading.AutoTrading,
		MaxTradeAmount:  cfg.Trading.MaxTradeAmount,
		GasLimit:        cfg.Trading.GasLimit,
		InterTradeDelay: cfg.Trading.InterTradeDelay.Duration,
	}, deps.Signer, submitter, logger)

	deps.Orchestrator = orchestrator.New(
		deps.Observer,
		deps.Analyzer,
		deps.Executor,
		cfg.Bot.ScanInterval.Duration,
		deps.Metrics,
		deps.Notifier,
		logger,
	)

	return deps, cleanup, nil
}
