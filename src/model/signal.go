package model

// Signal is the discrete trend recommendation produced once per poll tick.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	// SignalUnknown covers provider errors and malformed payloads. It never
	// advances the trading state.
	SignalUnknown Signal = "UNKNOWN"
)

func (s Signal) Valid() bool {
	return s == SignalBuy || s == SignalSell
}
