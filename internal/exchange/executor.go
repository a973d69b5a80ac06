package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bitkub_trading/internal/strategy"
	"bitkub_trading/internal/trader"
)

// OrderRequest is one sized, priced trade attempt. It is built fresh per
// attempt and never reused. Buys are sized in THB, sells in coin; LimitPrice
// is only meaningful when Mode is LIMIT.
type OrderRequest struct {
	Direction  strategy.Direction
	AmountTHB  float64
	AmountCoin float64
	Mode       trader.ExecutionMode
	LimitPrice float64
	Origin     strategy.Origin
}

// Fill is the confirmed outcome of an executed order. ReceivedCoin is set on
// buys, ProceedsTHB on sells.
type Fill struct {
	ReceivedCoin float64
	ProceedsTHB  float64
	OrderID      string
}

// OrderExecutor places orders. The live implementation hits the exchange, the
// simulated one values the trade from reference prices; everything upstream
// of this interface is identical in both modes.
type OrderExecutor interface {
	Execute(ctx context.Context, req OrderRequest) (Fill, error)
}

// LiveExecutor places real orders on Bitkub.
type LiveExecutor struct {
	client *BitkubClient
	symbol string
	log    zerolog.Logger
}

func NewLiveExecutor(client *BitkubClient, bitkubSymbol string, log zerolog.Logger) *LiveExecutor {
	return &LiveExecutor{
		client: client,
		symbol: bitkubSymbol,
		log:    log.With().Str("component", "live_executor").Logger(),
	}
}

func (e *LiveExecutor) Execute(ctx context.Context, req OrderRequest) (Fill, error) {
	typ := "limit"
	rate := req.LimitPrice
	if req.Mode == trader.ModeMarket {
		typ = "market"
		rate = 0
	}
	clientID := uuid.NewString()

	switch req.Direction {
	case strategy.Buy:
		res, err := e.client.PlaceBid(ctx, e.symbol, req.AmountTHB, rate, typ, clientID)
		if err != nil {
			return Fill{}, fmt.Errorf("place bid: %w", err)
		}
		return Fill{ReceivedCoin: res.Receive, OrderID: res.ID.String()}, nil
	case strategy.Sell:
		res, err := e.client.PlaceAsk(ctx, e.symbol, req.AmountCoin, rate, typ, clientID)
		if err != nil {
			return Fill{}, fmt.Errorf("place ask: %w", err)
		}
		return Fill{ProceedsTHB: res.Receive, OrderID: res.ID.String()}, nil
	default:
		return Fill{}, fmt.Errorf("no direction on order request")
	}
}

// SimulatedExecutor mimics Bitkub execution without touching the exchange.
// Orders are valued by converting through the THB_USDT rate on Bitkub and the
// coin's USDT price on Binance, with the trading fee taken out of the
// received amount.
type SimulatedExecutor struct {
	bitkub        *BitkubClient
	binance       *BinanceClient
	binanceSymbol string
	feePct        float64
	log           zerolog.Logger
}

func NewSimulatedExecutor(bitkub *BitkubClient, binance *BinanceClient, binanceSymbol string, feePct float64, log zerolog.Logger) *SimulatedExecutor {
	return &SimulatedExecutor{
		bitkub:        bitkub,
		binance:       binance,
		binanceSymbol: binanceSymbol,
		feePct:        feePct,
		log:           log.With().Str("component", "sim_executor").Logger(),
	}
}

func (e *SimulatedExecutor) Execute(ctx context.Context, req OrderRequest) (Fill, error) {
	usdtTHB, err := e.bitkub.Ticker(ctx, "THB_USDT")
	if err != nil {
		return Fill{}, fmt.Errorf("simulated fill needs THB_USDT rate: %w", err)
	}
	coinUSDT, err := e.binance.Price(ctx, e.binanceSymbol)
	if err != nil {
		return Fill{}, fmt.Errorf("simulated fill needs %s price: %w", e.binanceSymbol, err)
	}
	if usdtTHB.Last <= 0 || coinUSDT <= 0 {
		return Fill{}, fmt.Errorf("unusable reference prices: usdt_thb=%v coin_usdt=%v", usdtTHB.Last, coinUSDT)
	}

	feeKeep := 1 - e.feePct/100
	switch req.Direction {
	case strategy.Buy:
		amountUSDT := req.AmountTHB / usdtTHB.Last
		received := amountUSDT / coinUSDT * feeKeep
		e.log.Info().Str("origin", strings.ToLower(string(req.Origin))).
			Float64("spent_thb", req.AmountTHB).Float64("received_coin", received).
			Msg("simulated buy filled")
		return Fill{ReceivedCoin: received, OrderID: "sim-" + uuid.NewString()}, nil
	case strategy.Sell:
		proceeds := req.AmountCoin * coinUSDT * usdtTHB.Last * feeKeep
		e.log.Info().Str("origin", strings.ToLower(string(req.Origin))).
			Float64("sold_coin", req.AmountCoin).Float64("proceeds_thb", proceeds).
			Msg("simulated sell filled")
		return Fill{ProceedsTHB: proceeds, OrderID: "sim-" + uuid.NewString()}, nil
	default:
		return Fill{}, fmt.Errorf("no direction on order request")
	}
}
