package indicator

import "fmt"

// Windows splits a fetched price series into the two trailing sub-series the
// strategy is allowed to act on. The last element of any fetched series is an
// in-progress candle and must never be treated as confirmed, so Current drops
// it and Previous drops the last confirmed candle as well.
type Windows struct {
	Current  []float64
	Previous []float64
}

// BuildWindows slices series into its confirmed windows. The series must hold
// at least two elements.
func BuildWindows(series []float64) (Windows, error) {
	if len(series) < 2 {
		return Windows{}, fmt.Errorf("need at least 2 samples to build confirmed windows, got %d", len(series))
	}
	return Windows{
		Current:  series[:len(series)-1],
		Previous: series[:len(series)-2],
	}, nil
}

// Observation holds the fast and slow moving averages evaluated on both
// confirmed windows. All four values are present or the observation is not
// usable at all.
type Observation struct {
	CurrentFast  float64
	CurrentSlow  float64
	PreviousFast float64
	PreviousSlow float64
}

// MinSamples is the shortest series Observe can work with: enough confirmed
// candles for the slower average plus the in-progress candle and the one
// dropped for the previous window.
func MinSamples(fastPeriod, slowPeriod int) int {
	if fastPeriod > slowPeriod {
		return fastPeriod + 2
	}
	return slowPeriod + 2
}

// Observe evaluates both configured averages against both confirmed windows.
// ok is false when the series is too short for any of the four values; the
// caller skips the cycle rather than acting on a partial observation.
func Observe(series []float64, fastPeriod, slowPeriod int, kind Kind) (Observation, bool) {
	w, err := BuildWindows(series)
	if err != nil {
		return Observation{}, false
	}
	var (
		obs Observation
		ok  bool
	)
	if obs.CurrentFast, ok = Compute(w.Current, fastPeriod, kind); !ok {
		return Observation{}, false
	}
	if obs.CurrentSlow, ok = Compute(w.Current, slowPeriod, kind); !ok {
		return Observation{}, false
	}
	if obs.PreviousFast, ok = Compute(w.Previous, fastPeriod, kind); !ok {
		return Observation{}, false
	}
	if obs.PreviousSlow, ok = Compute(w.Previous, slowPeriod, kind); !ok {
		return Observation{}, false
	}
	return obs, true
}
