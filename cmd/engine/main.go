// Trading engine — a single-threaded, event-loop-driven multi-venue trading
// core.
//
// Architecture:
//
//	main.go                — entry point: loads config, wires components, waits for SIGINT/SIGTERM
//	internal/clock          — monotonic time source and named timer wheel driving the whole loop
//	internal/msgbus         — synchronous pub/sub + endpoint substrate every component routes through
//	internal/cache          — authoritative in-memory state: instruments, accounts, orders, positions
//	internal/cachedb        — durable mirror of the cache (append-only log + latest snapshot)
//	internal/throttle       — buffer-or-drop outbound rate limiting
//	internal/book           — L2/L3 venue-truth order books with sequence-gap detection
//	internal/ownbook        — own-order books keyed by ClientOrderId
//	internal/dataengine     — subscription routing, delta buffering, bar-sequence validation, synthetic fan-out
//	internal/dataclient     — uniform streaming/historical adapter surface
//	internal/dataclient/evmadapter — blockchain-specific reference adapter
//	internal/subscription   — DEX pool/event subscription bookkeeping
//	internal/execution      — venue-facing order submission client
//	internal/reconciliation — inflight-order watchdog and external-order claiming
//	internal/trailing       — trailing-stop trigger/limit recalculation
//	internal/bar            — time- and threshold-based bar aggregation
//	internal/portfolio      — realized/unrealized PnL and named statistics
//	internal/order          — order state machine and variant constructors
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/cachedb"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/config"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/dataclient"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/dataclient/evmadapter"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/dataengine"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/msgbus"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/portfolio"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/reconciliation"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/throttle"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

func main() {
	cfgPath := "configs/config.yaml"
	if p := os.Getenv("ENGINE_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err, "path", cfgPath)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Logging.Level)}
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)

	clk := clock.NewLiveClock()
	bus := msgbus.New()

	db, err := cachedb.Open(cfg.Cache.DataDir)
	if err != nil {
		logger.Error("failed to open cache database", "error", err)
		os.Exit(1)
	}
	c := cache.New(db)

	// orderThrottle rate-limits venue order submission once a concrete
	// execution.Client is wired to a venue's StreamingClient (out of scope
	// here — the same boundary that leaves execution transports to venue
	// adapters, see spec.md §1 Out of scope).
	orderThrottle := throttle.New("order-submit", cfg.Throttle.Limit, cfg.Throttle.Interval, clk,
		func(msg any) {
			if fn, ok := msg.(func()); ok {
				fn()
			}
		},
		dropHandlerFor(cfg.Throttle.BufferMode))
	_ = orderThrottle

	dataEng := dataengine.New(bus, c, clk, logger)

	for _, vc := range cfg.Venues {
		venue := model.Venue(vc.Name)
		var adapter dataclient.Adapter
		switch vc.Kind {
		case "evm":
			adapter = evmadapter.New(model.ClientId(vc.Name), vc.StreamURL, vc.RestURL, vc.SecondaryRPCURL, nil, dataEng.ProcessData, logger)
		default:
			adapter = dataclient.NewWSAdapter(model.ClientId(vc.Name), vc.StreamURL, dataEng.ProcessData, logger)
		}
		dataEng.RegisterClient(venue, adapter, vc.Default)

		ctx := context.Background()
		if err := adapter.Connect(ctx); err != nil {
			logger.Error("failed to connect venue data client", "venue", venue, "error", err)
		}
	}

	portfolioAnalyzer := portfolio.New()
	portfolioAnalyzer.Register(portfolio.WinRate{})
	portfolioAnalyzer.Register(portfolio.ProfitFactor{})
	portfolioAnalyzer.Register(portfolio.ExpectancyPerTrade{})
	portfolioAnalyzer.Register(portfolio.ReturnsVolatility{})
	portfolioAnalyzer.Register(portfolio.OpenPositionCount{})

	reconMgr := reconciliation.New(reconciliation.Config{
		ThresholdMs:        cfg.Reconciliation.ThresholdMs,
		InflightMaxRetries: cfg.Reconciliation.InflightMaxRetries,
		FilterUnclaimed:    cfg.Reconciliation.FilterUnclaimed,
	}, c, nil, logger)

	logger.Info("engine starting",
		"trader_id", cfg.Trader.TraderId,
		"account_id", cfg.Trader.AccountId,
		"venues", len(cfg.Venues),
		"dry_run", cfg.DryRun,
	)

	if cfg.DryRun {
		logger.Warn("DRY-RUN MODE — no real orders will be placed")
	}

	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	pollInterval := time.Duration(cfg.Reconciliation.ThresholdMs) * time.Millisecond
	clk.SetTimer("reconciliation-check", pollInterval, clk.NowNs()+pollInterval.Nanoseconds(), func(ev clock.TimeEvent) {
		nowMs := ev.TsInit / int64(time.Millisecond)
		for _, coid := range reconMgr.CheckInflightOrders(nowMs) {
			logger.Warn("inflight order timed out", "client_order_id", coid)
			if o, ok := c.Order(coid); ok {
				rejected := order.Event{Kind: order.EventRejected, TsEvent: ev.TsInit, TsInit: ev.TsInit, Reason: "INFLIGHT_TIMEOUT"}
				if err := o.Apply(rejected); err == nil {
					c.UpdateOrder(o)
				}
			}
		}
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("received shutdown signal", "signal", sig.String())
	cancel()
}

// dropHandlerFor returns nil (buffer overflow) unless cfg.Throttle.BufferMode
// is "DROP", in which case overflow messages are discarded with a log line.
func dropHandlerFor(mode string) throttle.Handler {
	if mode != "DROP" {
		return nil
	}
	return func(msg any) {
		slog.Default().Warn("dropped throttled message", "mode", mode)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
