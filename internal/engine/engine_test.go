package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"bitkub_trading/config"
	"bitkub_trading/internal/exchange"
	"bitkub_trading/internal/strategy"
)

type fakeMarket struct {
	prices []float64
}

func (f *fakeMarket) ClosePrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	return f.prices, nil
}

func (f *fakeMarket) ServerTime(ctx context.Context) (time.Time, error) {
	return time.Now(), nil
}

type fakeQuotes struct {
	tick exchange.Ticker
	err  error
}

func (f *fakeQuotes) Ticker(ctx context.Context, sym string) (exchange.Ticker, error) {
	return f.tick, f.err
}

type fakeExecutor struct {
	requests []exchange.OrderRequest
	fill     exchange.Fill
	err      error
}

func (f *fakeExecutor) Execute(ctx context.Context, req exchange.OrderRequest) (exchange.Fill, error) {
	f.requests = append(f.requests, req)
	return f.fill, f.err
}

func testConfig() *config.Config {
	cfg := &config.Config{
		Mode:            config.ModeSimulated,
		BitkubSymbol:    "THB_HYPER",
		BinanceSymbol:   "HYPERUSDT",
		PositionSizeTHB: 100,
		Timeframe:       "1h",
	}
	cfg.Indicator.FastPeriod = 10
	cfg.Indicator.SlowPeriod = 20
	cfg.Indicator.Kind = "SMA"
	cfg.Execution.Mode = "MARKET"
	return cfg
}

// crossoverSeries is 22 samples where the fast average crosses above the slow
// one exactly on the latest confirmed candle: 20 flat candles (fast == slow on
// the previous window), one confirmed spike, one unconfirmed trailing sample.
func crossoverSeries() []float64 {
	s := make([]float64, 0, 22)
	for i := 0; i < 20; i++ {
		s = append(s, 100)
	}
	return append(s, 200, 210)
}

func newTestEngine(t *testing.T, cfg *config.Config, market *fakeMarket, quotes *fakeQuotes, exec *fakeExecutor) *Engine {
	t.Helper()
	e, err := New(cfg, market, quotes, exec, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestCycleCrossoverBuysOnceThenSuppresses(t *testing.T) {
	market := &fakeMarket{prices: crossoverSeries()}
	exec := &fakeExecutor{fill: exchange.Fill{ReceivedCoin: 0.5, OrderID: "1"}}
	e := newTestEngine(t, testConfig(), market, &fakeQuotes{}, exec)

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if len(exec.requests) != 1 {
		t.Fatalf("got %d orders, want exactly 1", len(exec.requests))
	}
	req := exec.requests[0]
	if req.Direction != strategy.Buy || req.AmountTHB != 100 || req.Origin != strategy.OriginPrimary {
		t.Fatalf("order request = %+v", req)
	}
	if pos := e.machine.Position(); pos.Holding != 0.5 || pos.LastTrade != strategy.Buy {
		t.Fatalf("position after fill = %+v", pos)
	}

	// The identical cycle again: same signal, now suppressed.
	if err := e.runCycle(context.Background()); err != nil {
		t.Fatalf("repeat cycle failed: %v", err)
	}
	if len(exec.requests) != 1 {
		t.Fatalf("repeat cycle emitted another order, total %d", len(exec.requests))
	}
}

func TestCycleInsufficientDataSkips(t *testing.T) {
	market := &fakeMarket{prices: []float64{100, 101, 102}}
	exec := &fakeExecutor{}
	e := newTestEngine(t, testConfig(), market, &fakeQuotes{}, exec)

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatalf("short history must skip, not fail: %v", err)
	}
	if len(exec.requests) != 0 {
		t.Fatal("no order may be placed on insufficient data")
	}
	if e.drift.Previous() != strategy.StateUnknown {
		t.Fatalf("drift state advanced without an observation: %s", e.drift.Previous())
	}
}

func TestCycleBackupSignalOnDrift(t *testing.T) {
	// Cycle 1: all-flat series, fast == slow, derived state CASH, no signal.
	flat := make([]float64, 22)
	for i := range flat {
		flat[i] = 100
	}
	market := &fakeMarket{prices: flat}
	exec := &fakeExecutor{fill: exchange.Fill{ReceivedCoin: 0.4}}
	e := newTestEngine(t, testConfig(), market, &fakeQuotes{}, exec)

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.requests) != 0 {
		t.Fatal("flat market must not trade")
	}

	// Cycle 2: steadily rising series. Fast sits above slow on both windows,
	// so no primary fires, but the derived state flipped CASH → HOLDING.
	rising := make([]float64, 22)
	for i := range rising {
		rising[i] = float64(i + 1)
	}
	market.prices = rising

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.requests) != 1 {
		t.Fatalf("got %d orders, want 1 backup buy", len(exec.requests))
	}
	if exec.requests[0].Origin != strategy.OriginBackup || exec.requests[0].Direction != strategy.Buy {
		t.Fatalf("order request = %+v, want backup BUY", exec.requests[0])
	}
}

func TestCycleFailedOrderLeavesStateAndRetries(t *testing.T) {
	market := &fakeMarket{prices: crossoverSeries()}
	exec := &fakeExecutor{err: errors.New("exchange down")}
	e := newTestEngine(t, testConfig(), market, &fakeQuotes{}, exec)

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatalf("a failed order is not a cycle failure: %v", err)
	}
	if pos := e.machine.Position(); pos.Holding != 0 || pos.LastTrade != strategy.None {
		t.Fatalf("failed order mutated position: %+v", pos)
	}

	// Exchange recovers; the re-detected signal trades this time.
	exec.err = nil
	exec.fill = exchange.Fill{ReceivedCoin: 0.3}
	if err := e.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.requests) != 2 {
		t.Fatalf("got %d order attempts, want 2", len(exec.requests))
	}
	if pos := e.machine.Position(); pos.Holding != 0.3 {
		t.Fatalf("position after retry = %+v", pos)
	}
}

func TestCycleLimitPricingFromQuote(t *testing.T) {
	cfg := testConfig()
	cfg.Execution.Mode = "LIMIT"
	cfg.Execution.MaxSlippagePct = 2

	market := &fakeMarket{prices: crossoverSeries()}
	quotes := &fakeQuotes{tick: exchange.Ticker{LowestAsk: 100, HighestBid: 99}}
	exec := &fakeExecutor{fill: exchange.Fill{ReceivedCoin: 0.4}}
	e := newTestEngine(t, cfg, market, quotes, exec)

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.requests) != 1 {
		t.Fatalf("got %d orders, want 1", len(exec.requests))
	}
	if exec.requests[0].LimitPrice != 102 {
		t.Fatalf("limit price = %v, want 102", exec.requests[0].LimitPrice)
	}
}

func TestCycleQuoteFailureSkipsTrade(t *testing.T) {
	cfg := testConfig()
	cfg.Execution.Mode = "LIMIT"

	market := &fakeMarket{prices: crossoverSeries()}
	quotes := &fakeQuotes{err: errors.New("ticker unavailable")}
	exec := &fakeExecutor{}
	e := newTestEngine(t, cfg, market, quotes, exec)

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatalf("a failed quote skips trading, not the cycle: %v", err)
	}
	if len(exec.requests) != 0 {
		t.Fatal("no order may be placed without a usable quote")
	}
}

// TestStatusConcurrentWithCycles churns the position through buy/sell fills
// while another goroutine polls Status, the way the Telegram handler does.
// Run with -race; the assertions only pin the final bookkeeping.
func TestStatusConcurrentWithCycles(t *testing.T) {
	market := &fakeMarket{prices: crossoverSeries()}
	exec := &fakeExecutor{fill: exchange.Fill{ReceivedCoin: 0.5}}
	e := newTestEngine(t, testConfig(), market, &fakeQuotes{}, exec)

	// Fast crosses back below slow on the confirmed candle.
	sellSeries := make([]float64, 0, 22)
	for i := 0; i < 20; i++ {
		sellSeries = append(sellSeries, 100)
	}
	sellSeries = append(sellSeries, 50, 40)

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-done:
				return
			default:
				_ = e.Status()
			}
		}
	}()

	for i := 0; i < 50; i++ {
		market.prices = crossoverSeries()
		if err := e.runCycle(context.Background()); err != nil {
			t.Fatal(err)
		}
		market.prices = sellSeries
		if err := e.runCycle(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	close(done)
	<-stopped

	if pos := e.machine.Position(); pos.Holding != 0 || pos.LastTrade != strategy.Sell {
		t.Fatalf("position after final sell = %+v", pos)
	}
}

func TestSelfBuySeedSuppressesFirstBuy(t *testing.T) {
	cfg := testConfig()
	cfg.SelfBuy.Enabled = true
	cfg.SelfBuy.AmountCoin = 0.001

	market := &fakeMarket{prices: crossoverSeries()}
	exec := &fakeExecutor{}
	e := newTestEngine(t, cfg, market, &fakeQuotes{}, exec)

	if err := e.runCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(exec.requests) != 0 {
		t.Fatal("seeded holding must suppress the first buy signal")
	}
}
