package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/rs/zerolog"
)

// BinanceClient supplies the market data side of the bot: candle history for
// the moving averages, a USDT reference price for the simulator, and the
// exchange clock the scheduler aligns to. No orders are ever placed here.
type BinanceClient struct {
	client *binance.Client
	log    zerolog.Logger
}

func NewBinanceClient(apiKey, secretKey string, log zerolog.Logger) *BinanceClient {
	return &BinanceClient{
		client: binance.NewClient(apiKey, secretKey),
		log:    log.With().Str("component", "binance").Logger(),
	}
}

// ClosePrices fetches up to limit candles for symbol at the given interval and
// returns their close prices oldest first. The exchange may return fewer
// candles than asked for; callers treat a short series as insufficient data,
// not as an error.
func (c *BinanceClient) ClosePrices(ctx context.Context, symbol, interval string, limit int) ([]float64, error) {
	klines, err := c.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch klines for %s %s: %w", symbol, interval, err)
	}

	closes := make([]float64, 0, len(klines))
	for _, k := range klines {
		v, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("parse close price %q: %w", k.Close, err)
		}
		closes = append(closes, v)
	}
	c.log.Debug().Int("candles", len(closes)).Str("symbol", symbol).Str("interval", interval).Msg("klines fetched")
	return closes, nil
}

// Price returns the current ticker price for symbol.
func (c *BinanceClient) Price(ctx context.Context, symbol string) (float64, error) {
	prices, err := c.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch price for %s: %w", symbol, err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("no price data for %s", symbol)
	}
	return strconv.ParseFloat(prices[0].Price, 64)
}

// ServerTime returns the exchange clock. The scheduler prefers it over the
// local wall clock so candle boundaries are computed against the same clock
// that stamps the candles.
func (c *BinanceClient) ServerTime(ctx context.Context) (time.Time, error) {
	ms, err := c.client.NewServerTimeService().Do(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch server time: %w", err)
	}
	return time.UnixMilli(ms), nil
}
