package strategy

import "sync"

// DriftMonitor watches for the derived state changing between cycles without
// a primary crossover firing. A fixed polling cadence can straddle a candle
// boundary and miss the crossover itself; the state drift still shows it
// happened, so it doubles as a backup signal source.
//
// Check runs on the cycle goroutine while Previous is also read from the
// status handler, hence the lock.
type DriftMonitor struct {
	mu       sync.RWMutex
	previous State
}

func NewDriftMonitor() *DriftMonitor {
	return &DriftMonitor{previous: StateUnknown}
}

// Previous reports the state recorded on the last observed cycle.
func (m *DriftMonitor) Previous() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.previous
}

// Check compares the newly derived state against the previous cycle's and
// returns a backup signal when they diverged with no primary crossover fired
// this cycle. There is never a backup signal on the very first observation.
// The previous state is always advanced to newState, signal or not, so drift
// is measured strictly against the immediately preceding cycle.
func (m *DriftMonitor) Check(newState State, primaryFired bool) *Signal {
	m.mu.Lock()
	prev := m.previous
	m.previous = newState
	m.mu.Unlock()

	if primaryFired || prev == StateUnknown {
		return nil
	}
	switch {
	case newState == StateHolding && prev == StateCash:
		return &Signal{Origin: OriginBackup, Direction: Buy}
	case newState == StateCash && prev == StateHolding:
		return &Signal{Origin: OriginBackup, Direction: Sell}
	default:
		return nil
	}
}
