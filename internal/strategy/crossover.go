package strategy

// DetectCrossover classifies the market from the fast/slow averages of the two
// most recent confirmed candles and reports a primary signal when the fast
// average crossed the slow one between them. Equality on both candles is flat,
// not a crossover; the derived state still resolves via the strict > test, so
// fast == slow reads as CASH.
func DetectCrossover(curFast, curSlow, prevFast, prevSlow float64) (State, *Signal) {
	state := StateCash
	if curFast > curSlow {
		state = StateHolding
	}

	switch {
	case curFast > curSlow && prevFast <= prevSlow:
		return state, &Signal{Origin: OriginPrimary, Direction: Buy}
	case curFast < curSlow && prevFast >= prevSlow:
		return state, &Signal{Origin: OriginPrimary, Direction: Sell}
	default:
		return state, nil
	}
}
