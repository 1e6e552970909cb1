package domain

// OddsQuote pairs the display multiplier with the integer encoding the
// remote program expects. The two are always produced together so they never
// drift.
type OddsQuote struct {
	// DisplayMultiplier is the human-facing payout multiplier, e.g. 1.85.
	DisplayMultiplier float64

	// EncodedProfitBps is floor((multiplier-1)*100), the value sent
	// on-chain.
	EncodedProfitBps uint64
}
