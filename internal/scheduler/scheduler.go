package scheduler

import (
	"fmt"
	"sort"
	"time"
)

// timeframeDurations maps every supported candle timeframe to its bucket
// length. The month entry is the same 30-day approximation the candle source
// uses for alignment purposes.
var timeframeDurations = map[string]time.Duration{
	"1s":  time.Second,
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"2h":  2 * time.Hour,
	"4h":  4 * time.Hour,
	"6h":  6 * time.Hour,
	"8h":  8 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"3d":  3 * 24 * time.Hour,
	"1w":  7 * 24 * time.Hour,
	"1M":  30 * 24 * time.Hour,
}

// Timeframes lists the supported timeframes, shortest first.
func Timeframes() []string {
	out := make([]string, 0, len(timeframeDurations))
	for tf := range timeframeDurations {
		out = append(out, tf)
	}
	sort.Slice(out, func(i, j int) bool {
		return timeframeDurations[out[i]] < timeframeDurations[out[j]]
	})
	return out
}

// IsValid reports whether tf names a supported timeframe.
func IsValid(tf string) bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// Scheduler computes how long to sleep before the next evaluation cycle. It
// holds nothing but the configured timeframe; every call depends only on the
// clock reading passed in.
type Scheduler struct {
	timeframe string
	duration  time.Duration
	override  time.Duration
}

// New builds a scheduler for tf. When overrides maps tf to a polling
// interval, candle alignment is ignored and that fixed cadence is used
// instead; this trades freshness against API rate limits on timeframes where
// waiting out a whole candle is either too coarse or pointlessly chatty.
func New(tf string, overrides map[string]time.Duration) (*Scheduler, error) {
	d, ok := timeframeDurations[tf]
	if !ok {
		return nil, fmt.Errorf("unsupported timeframe %q (supported: %v)", tf, Timeframes())
	}
	return &Scheduler{timeframe: tf, duration: d, override: overrides[tf]}, nil
}

// Timeframe returns the configured timeframe string.
func (s *Scheduler) Timeframe() string {
	return s.timeframe
}

// CandleDuration returns the candle bucket length.
func (s *Scheduler) CandleDuration() time.Duration {
	return s.duration
}

// FixedCadence reports the polling override, or zero when candle-aligned.
func (s *Scheduler) FixedCadence() time.Duration {
	return s.override
}

// NextWait returns the time to sleep before fetching again, given the current
// (ideally exchange-authoritative) clock reading.
//
// Candle-aligned policy: find the boundary of the interval now falls in, then
// wait until the boundary after that interval closes. Waiting for a boundary
// that is already safely in the past guarantees the candle fetched as
// "latest confirmed" is final rather than mid-flight.
func (s *Scheduler) NextWait(now time.Time) time.Duration {
	if s.override > 0 {
		return s.override
	}

	nowMs := now.UnixMilli()
	durMs := s.duration.Milliseconds()
	intervalStart := nowMs / durMs * durMs
	currentClose := intervalStart + durMs - 1
	nextClose := currentClose + durMs

	wait := nextClose - nowMs
	if wait < 0 {
		return 0
	}
	return time.Duration(wait) * time.Millisecond
}
