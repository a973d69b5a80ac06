package indicator

import (
	"fmt"
	"strings"
)

// Kind selects the moving average formula.
type Kind string

const (
	SMA Kind = "SMA"
	EMA Kind = "EMA"
	WMA Kind = "WMA"
)

// ParseKind validates a configured moving average kind. Unsupported kinds are
// a configuration error, caught before the trading loop starts.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case SMA:
		return SMA, nil
	case EMA:
		return EMA, nil
	case WMA:
		return WMA, nil
	default:
		return "", fmt.Errorf("unsupported MA kind %q (want SMA, EMA or WMA)", s)
	}
}

// Compute returns the moving average of the given kind over prices.
// ok is false when fewer than period samples are available; a partial value
// is never produced.
func Compute(prices []float64, period int, kind Kind) (float64, bool) {
	if period < 1 || len(prices) < period {
		return 0, false
	}
	switch kind {
	case EMA:
		return ema(prices, period), true
	case WMA:
		return wma(prices, period), true
	default:
		return sma(prices, period), true
	}
}

// sma averages the trailing period elements.
func sma(prices []float64, period int) float64 {
	sum := 0.0
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

// ema seeds with the SMA of the first period elements of the whole input and
// folds forward over everything after it. The result therefore depends on how
// much history precedes the trailing window, so callers must pass in enough
// history for the seed to have washed out.
func ema(prices []float64, period int) float64 {
	alpha := 2.0 / float64(period+1)
	value := 0.0
	for _, p := range prices[:period] {
		value += p
	}
	value /= float64(period)
	for _, p := range prices[period:] {
		value = p*alpha + value*(1-alpha)
	}
	return value
}

// wma weights the trailing window 1..period, oldest to newest.
func wma(prices []float64, period int) float64 {
	window := prices[len(prices)-period:]
	sum := 0.0
	for i, p := range window {
		sum += p * float64(i+1)
	}
	return sum / float64(period*(period+1)/2)
}
