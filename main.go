package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"bitkub_trading/config"
	"bitkub_trading/internal/engine"
	"bitkub_trading/internal/exchange"
	"bitkub_trading/internal/metrics"
	"bitkub_trading/internal/telegram"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("configuration error: %v", err)
	}

	logger := newLogger(cfg)
	logger.Info().Str("config", *configPath).Msg("🚀 starting trading bot")
	for _, w := range cfg.Warnings() {
		logger.Warn().Msg(w)
	}

	binanceClient := exchange.NewBinanceClient(cfg.BinanceAPIKey, cfg.BinanceSecretKey, logger)
	bitkubClient := exchange.NewBitkubClient(cfg.BitkubAPIKey, cfg.BitkubAPISecret, logger)

	var executor exchange.OrderExecutor
	if cfg.Mode == config.ModeLive {
		executor = exchange.NewLiveExecutor(bitkubClient, cfg.BitkubSymbol, logger)
		logger.Info().Str("symbol", cfg.BitkubSymbol).Msg("live execution enabled")
		logWallet(bitkubClient, logger)
	} else {
		executor = exchange.NewSimulatedExecutor(bitkubClient, binanceClient, cfg.BinanceSymbol, cfg.TradingFeePct, logger)
		logger.Info().Msg("simulated execution enabled, no real orders will be placed")
	}

	// The notifier needs the engine for /status and the engine needs the
	// notifier for trade events; build the engine first and hand its status
	// through a closure.
	var notifier *telegram.Notifier
	var eng *engine.Engine

	if cfg.Telegram.Enabled {
		notifier, err = telegram.NewNotifier(cfg.TelegramToken, cfg.Telegram.ChatID, func() string {
			if eng == nil {
				return "starting up"
			}
			return eng.Status()
		}, logger)
		if err != nil {
			log.Fatalf("telegram setup failed: %v", err)
		}
	}

	if notifier != nil {
		eng, err = engine.New(cfg, binanceClient, bitkubClient, executor, notifier, logger)
	} else {
		eng, err = engine.New(cfg, binanceClient, bitkubClient, executor, nil, logger)
	}
	if err != nil {
		log.Fatalf("engine setup failed: %v", err)
	}

	if cfg.Metrics.Enabled {
		metrics.Serve(cfg.Metrics.Addr, logger)
	}
	if notifier != nil {
		go notifier.Start()
		defer notifier.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng.Run(ctx)
	logger.Info().Msg("👋 shutdown complete")
}

// logWallet prints the non-empty exchange balances once at startup so a live
// run starts with a visible account snapshot. Informational only: the managed
// holding is tracked internally, never reconciled from the wallet.
func logWallet(c *exchange.BitkubClient, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	balances, err := c.Balances(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("wallet fetch failed, continuing without it")
		return
	}
	ev := logger.Info()
	for asset, amount := range balances {
		if amount > 0 {
			ev = ev.Float64(asset, amount)
		}
	}
	ev.Msg("exchange wallet")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.Log.Level, err)
	}

	var out = os.Stderr
	logger := zerolog.New(out)
	if cfg.Log.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
