package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/rs/zerolog"

	"bitkub_trading/config"
	"bitkub_trading/internal/exchange"
	"bitkub_trading/internal/indicator"
	"bitkub_trading/internal/metrics"
	"bitkub_trading/internal/scheduler"
	"bitkub_trading/internal/strategy"
	"bitkub_trading/internal/trader"
)

// MarketData is the candle history and clock source (Binance in production).
type MarketData interface {
	ClosePrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error)
	ServerTime(ctx context.Context) (time.Time, error)
}

// QuoteSource supplies the live bid/ask the pricing engine bounds limit
// orders with (Bitkub in production).
type QuoteSource interface {
	Ticker(ctx context.Context, sym string) (exchange.Ticker, error)
}

// Notifier receives the user-facing trade events. Satisfied by
// telegram.Notifier; a nil notifier is a no-op.
type Notifier interface {
	SignalDetected(sig strategy.Signal, state strategy.State)
	TradeExecuted(intent trader.OrderIntent, pos trader.Position)
	TradeSuppressed(sig strategy.Signal, reason string)
	TradeFailed(sig strategy.Signal, err error)
}

// Engine runs the evaluation loop: wait for the next candle, fetch, compute,
// decide, execute, update. One cycle runs to completion before the next
// starts; all trade state lives in the state machine and is only touched from
// here.
type Engine struct {
	cfg      *config.Config
	market   MarketData
	quotes   QuoteSource
	executor exchange.OrderExecutor
	machine  *trader.StateMachine
	drift    *strategy.DriftMonitor
	sched    *scheduler.Scheduler
	notifier Notifier
	kind     indicator.Kind
	execMode trader.ExecutionMode
	log      zerolog.Logger
}

// New wires an engine and validates everything the loop depends on. A config
// problem here is fatal by design: it must surface before the first cycle,
// never as a mid-flight fallback.
func New(cfg *config.Config, market MarketData, quotes QuoteSource, executor exchange.OrderExecutor, notifier Notifier, log zerolog.Logger) (*Engine, error) {
	kind, err := indicator.ParseKind(cfg.Indicator.Kind)
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(cfg.Timeframe, cfg.PollIntervals)
	if err != nil {
		return nil, err
	}

	seed := trader.Position{LastTrade: strategy.None}
	if cfg.SelfBuy.Enabled && cfg.SelfBuy.AmountCoin > 0 {
		seed = trader.Position{Holding: cfg.SelfBuy.AmountCoin, LastTrade: strategy.Buy}
	}

	return &Engine{
		cfg:      cfg,
		market:   market,
		quotes:   quotes,
		executor: executor,
		machine:  trader.NewStateMachine(cfg.PositionSizeTHB, seed),
		drift:    strategy.NewDriftMonitor(),
		sched:    sched,
		notifier: notifier,
		kind:     kind,
		execMode: trader.ExecutionMode(cfg.Execution.Mode),
		log:      log.With().Str("component", "engine").Logger(),
	}, nil
}

// Status is a one-line human summary for the /status command.
func (e *Engine) Status() string {
	pos := e.machine.Position()
	return fmt.Sprintf("%s %s %s fast=%d slow=%d | state=%s holding=%.8f last=%s",
		e.cfg.BinanceSymbol, e.cfg.Timeframe, e.kind,
		e.cfg.Indicator.FastPeriod, e.cfg.Indicator.SlowPeriod,
		e.drift.Previous(), pos.Holding, pos.LastTrade)
}

// Run drives the loop until ctx is cancelled. A failed cycle is logged and
// retried after a short backoff; the process never dies over one bad cycle.
func (e *Engine) Run(ctx context.Context) {
	pos := e.machine.Position()
	e.log.Info().
		Str("mode", string(e.cfg.Mode)).
		Str("timeframe", e.cfg.Timeframe).
		Str("kind", string(e.kind)).
		Float64("seed_holding", pos.Holding).
		Msg("trading loop started")

	retry := &backoff.Backoff{Min: 5 * time.Second, Max: time.Minute, Factor: 2}

	for {
		wait := e.sched.NextWait(e.now(ctx))
		e.log.Info().Dur("wait", wait).Str("timeframe", e.cfg.Timeframe).Msg("waiting for next evaluation")
		if !sleep(ctx, wait) {
			return
		}

		if err := e.runCycle(ctx); err != nil {
			metrics.CycleFailures.Inc()
			d := retry.Duration()
			e.log.Error().Err(err).Dur("backoff", d).Msg("cycle failed")
			if !sleep(ctx, d) {
				return
			}
			continue
		}
		retry.Reset()
	}
}

// now prefers the exchange clock so candle boundaries are computed against
// the clock that stamps the candles; a failed time fetch falls back to the
// local clock rather than stalling the loop.
func (e *Engine) now(ctx context.Context) time.Time {
	t, err := e.market.ServerTime(ctx)
	if err != nil {
		e.log.Warn().Err(err).Msg("server time unavailable, using local clock")
		return time.Now()
	}
	return t
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// runCycle is one full evaluation: fetch → windows → averages → crossover →
// drift → decide → price → execute → bookkeeping. Expected transient states
// (too little history, a failed quote, a rejected order) end the cycle
// quietly; only faults worth backing off on are returned as errors.
func (e *Engine) runCycle(ctx context.Context) error {
	metrics.CyclesTotal.Inc()

	fetchLimit := indicator.MinSamples(e.cfg.Indicator.FastPeriod, e.cfg.Indicator.SlowPeriod)
	prices, err := e.market.ClosePrices(ctx, e.cfg.BinanceSymbol, e.cfg.Timeframe, fetchLimit)
	if err != nil {
		return fmt.Errorf("price history: %w", err)
	}

	obs, ok := indicator.Observe(prices, e.cfg.Indicator.FastPeriod, e.cfg.Indicator.SlowPeriod, e.kind)
	if !ok {
		metrics.CyclesSkipped.Inc()
		e.log.Info().Int("candles", len(prices)).Int("needed", fetchLimit).
			Msg("insufficient data, skipping cycle")
		return nil
	}

	state, primary := strategy.DetectCrossover(obs.CurrentFast, obs.CurrentSlow, obs.PreviousFast, obs.PreviousSlow)
	metrics.FastMA.Set(obs.CurrentFast)
	metrics.SlowMA.Set(obs.CurrentSlow)

	confirmed := prices[len(prices)-2]
	e.log.Info().
		Float64("close", confirmed).
		Float64("fast", obs.CurrentFast).
		Float64("slow", obs.CurrentSlow).
		Str("state", string(state)).
		Str("prev_state", string(e.drift.Previous())).
		Msg("confirmed candle evaluated")

	backup := e.drift.Check(state, primary != nil)
	sig := primary
	if sig == nil {
		sig = backup
	}
	if sig == nil {
		e.log.Info().Str("state", string(state)).Msg("no signal this cycle")
		return nil
	}

	metrics.SignalsTotal.WithLabelValues(label(string(sig.Origin)), label(string(sig.Direction))).Inc()
	e.log.Info().Str("origin", string(sig.Origin)).Str("direction", string(sig.Direction)).Msg("signal detected")
	e.notify(func(n Notifier) { n.SignalDetected(*sig, state) })

	intent, reason := e.machine.Decide(*sig)
	if intent == nil {
		metrics.SuppressedTotal.Inc()
		e.log.Info().Str("origin", string(sig.Origin)).Str("direction", string(sig.Direction)).
			Str("reason", reason).Msg("signal suppressed")
		e.notify(func(n Notifier) { n.TradeSuppressed(*sig, reason) })
		return nil
	}

	req := exchange.OrderRequest{
		Direction:  intent.Direction,
		AmountTHB:  intent.QuoteAmount,
		AmountCoin: intent.CoinAmount,
		Mode:       e.execMode,
		Origin:     intent.Origin,
	}
	if e.execMode == trader.ModeLimit {
		tick, err := e.quotes.Ticker(ctx, e.cfg.BitkubSymbol)
		if err != nil {
			// No usable quote means no trade this cycle. The position is
			// untouched, so a re-detected signal stays tradeable.
			e.log.Warn().Err(err).Msg("quote unavailable, skipping trade")
			return nil
		}
		req.LimitPrice = trader.LimitPrice(intent.Direction, tick.LowestAsk, tick.HighestBid, e.cfg.Execution.MaxSlippagePct)
		e.log.Info().Float64("ask", tick.LowestAsk).Float64("bid", tick.HighestBid).
			Float64("limit_price", req.LimitPrice).Msg("limit price computed")
	}

	fill, err := e.executor.Execute(ctx, req)
	if err != nil {
		metrics.OrdersTotal.WithLabelValues("failed").Inc()
		e.log.Error().Err(err).Str("direction", string(intent.Direction)).
			Msg("order failed, position unchanged")
		e.notify(func(n Notifier) { n.TradeFailed(*sig, err) })
		return nil
	}

	if intent.Direction == strategy.Buy {
		e.machine.ApplyBuyFill(fill.ReceivedCoin)
	} else {
		e.machine.ApplySellFill()
	}
	pos := e.machine.Position()
	metrics.OrdersTotal.WithLabelValues("filled").Inc()
	metrics.ManagedHolding.Set(pos.Holding)

	e.log.Info().
		Str("direction", string(intent.Direction)).
		Str("origin", string(intent.Origin)).
		Str("order_id", fill.OrderID).
		Float64("received_coin", fill.ReceivedCoin).
		Float64("proceeds_thb", fill.ProceedsTHB).
		Float64("holding", pos.Holding).
		Msg("trade executed")
	e.notify(func(n Notifier) { n.TradeExecuted(*intent, pos) })
	return nil
}

func (e *Engine) notify(fn func(Notifier)) {
	if e.notifier != nil {
		fn(e.notifier)
	}
}

func label(s string) string {
	return strings.ToLower(s)
}
