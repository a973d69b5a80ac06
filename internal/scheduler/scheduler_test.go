package scheduler

import (
	"testing"
	"time"
)

func TestNextWaitCandleAligned(t *testing.T) {
	s, err := New("1m", nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// At 12:00:15.000 the current minute closes at 12:00:59.999, so we wait for
	// the 12:01 candle to close: 104.999s out.
	now := time.Date(2024, 5, 1, 12, 0, 15, 0, time.UTC)
	want := 104999 * time.Millisecond
	if got := s.NextWait(now); got != want {
		t.Fatalf("NextWait = %v, want %v", got, want)
	}
}

func TestNextWaitAtExactBoundary(t *testing.T) {
	s, _ := New("1m", nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	// A fresh interval just opened; the wait must still run past its close.
	want := 119999 * time.Millisecond
	if got := s.NextWait(now); got != want {
		t.Fatalf("NextWait = %v, want %v", got, want)
	}
}

func TestNextWaitFixedCadenceOverride(t *testing.T) {
	s, err := New("1d", map[string]time.Duration{"1d": 15 * time.Minute})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if got := s.NextWait(time.Now()); got != 15*time.Minute {
		t.Fatalf("NextWait = %v, want the 15m override", got)
	}
}

func TestNewRejectsUnknownTimeframe(t *testing.T) {
	if _, err := New("7m", nil); err == nil {
		t.Fatal("unsupported timeframe must be rejected")
	}
}

func TestTimeframesSorted(t *testing.T) {
	tfs := Timeframes()
	if tfs[0] != "1s" || tfs[len(tfs)-1] != "1M" {
		t.Fatalf("timeframes out of order: %v", tfs)
	}
	if !IsValid("4h") || IsValid("2d") {
		t.Fatal("IsValid misclassifies timeframes")
	}
}
