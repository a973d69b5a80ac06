package trader

import (
	"github.com/shopspring/decimal"

	"bitkub_trading/internal/strategy"
)

// ExecutionMode selects how orders are priced on the exchange.
type ExecutionMode string

const (
	ModeLimit  ExecutionMode = "LIMIT"
	ModeMarket ExecutionMode = "MARKET"
)

// DisplayDecimals picks how many decimals are meaningful for a price of this
// magnitude. Large prices round coarsely, sub-cent prices keep more digits.
// The same table drives both log formatting and the precision of submitted
// limit prices.
func DisplayDecimals(price float64) int32 {
	switch {
	case price >= 1000:
		return 2
	case price >= 100:
		return 3
	case price >= 10:
		return 4
	case price >= 1:
		return 5
	case price >= 0.1:
		return 6
	case price >= 0.01:
		return 7
	default:
		return 8
	}
}

// LimitPrice computes the slippage-bounded limit price for a LIMIT order: a
// buy pays up to slippagePct above the best ask, a sell accepts down to
// slippagePct below the best bid. The result is rounded to the precision of
// its own magnitude because the rounded value is what gets submitted.
// MARKET orders never call this; the exchange fills at the prevailing price.
func LimitPrice(dir strategy.Direction, ask, bid, slippagePct float64) float64 {
	slip := decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100))
	var price decimal.Decimal
	if dir == strategy.Buy {
		price = decimal.NewFromFloat(ask).Mul(decimal.NewFromInt(1).Add(slip))
	} else {
		price = decimal.NewFromFloat(bid).Mul(decimal.NewFromInt(1).Sub(slip))
	}
	raw, _ := price.Float64()
	rounded, _ := price.Round(DisplayDecimals(raw)).Float64()
	return rounded
}
