package trader

import (
	"sync"

	"bitkub_trading/internal/strategy"
)

// Position is the bot's own bookkeeping of what it bought: the coin amount
// this strategy is responsible for and the direction of the last executed
// trade. It deliberately ignores whatever else sits in the exchange wallet.
type Position struct {
	Holding   float64
	LastTrade strategy.Direction
}

// OrderIntent is a sized trade the state machine wants executed. Buys are
// sized in the quote currency, sells always flatten the whole managed holding.
type OrderIntent struct {
	Direction   strategy.Direction
	QuoteAmount float64
	CoinAmount  float64
	Origin      strategy.Origin
}

// StateMachine turns signals into order intents while suppressing duplicates
// in the same direction. The position is mutated only through the Apply*
// methods, which callers invoke after a confirmed successful order; a failed
// order leaves the position untouched so the next cycle re-evaluates the same
// signal against the same state.
//
// Fills are applied by the cycle goroutine while Position is also read from
// the Telegram status handler, so the position sits behind a lock.
type StateMachine struct {
	quoteSize float64

	mu  sync.RWMutex
	pos Position
}

// NewStateMachine builds the machine with the configured per-trade quote size
// and an optional pre-seeded position (the self-buy startup option).
func NewStateMachine(quoteSize float64, seed Position) *StateMachine {
	if seed.LastTrade == "" {
		seed.LastTrade = strategy.None
	}
	return &StateMachine{quoteSize: quoteSize, pos: seed}
}

// Position returns a copy of the current bookkeeping.
func (s *StateMachine) Position() Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos
}

// Decide returns the order warranted by sig, or nil plus a reason when the
// signal is suppressed.
func (s *StateMachine) Decide(sig strategy.Signal) (*OrderIntent, string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch sig.Direction {
	case strategy.Buy:
		if s.pos.LastTrade == strategy.Buy && s.pos.Holding > 0 {
			return nil, "already holding from a previous buy"
		}
		return &OrderIntent{
			Direction:   strategy.Buy,
			QuoteAmount: s.quoteSize,
			Origin:      sig.Origin,
		}, ""
	case strategy.Sell:
		if s.pos.Holding <= 0 {
			return nil, "no managed holding to sell"
		}
		if s.pos.LastTrade == strategy.Sell {
			return nil, "already flat from a previous sell"
		}
		return &OrderIntent{
			Direction:  strategy.Sell,
			CoinAmount: s.pos.Holding,
			Origin:     sig.Origin,
		}, ""
	default:
		return nil, "no trade direction"
	}
}

// ApplyBuyFill records a confirmed buy: the received coin amount is added to
// the managed holding.
func (s *StateMachine) ApplyBuyFill(receivedCoin float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos.Holding += receivedCoin
	s.pos.LastTrade = strategy.Buy
}

// ApplySellFill records a confirmed sell. Sells always liquidate fully, so
// the holding resets to exactly zero.
func (s *StateMachine) ApplySellFill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos.Holding = 0
	s.pos.LastTrade = strategy.Sell
}
