package strategy

// Direction is the side of a trade.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	None Direction = "NONE"
)

// State is the market state derived from the confirmed moving averages:
// HOLDING when the fast average sits above the slow one, CASH otherwise.
// UNKNOWN exists only as the sentinel before the first confirmed observation.
type State string

const (
	StateHolding State = "HOLDING"
	StateCash    State = "CASH"
	StateUnknown State = "UNKNOWN"
)

// Origin distinguishes a crossover signal from the drift fallback.
type Origin string

const (
	OriginPrimary Origin = "PRIMARY"
	OriginBackup  Origin = "BACKUP"
)

// Signal is produced at most once per cycle and consumed immediately.
type Signal struct {
	Origin    Origin
	Direction Direction
}
