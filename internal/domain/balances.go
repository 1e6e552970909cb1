package domain

// BalancesView is the reconciled balance picture for one bettor and token.
// It is recomputed from fresh ledger reads after every state-changing
// operation, never incrementally mutated: optimistic local deltas are a UI
// nicety, the reconciler read is the truth.
type BalancesView struct {
	// Free is the spendable token-account balance in base units.
	Free uint64

	// Locked is the stake currently held in the bettor's open bet for the
	// active fight, zero when no bet is open.
	Locked uint64

	// Total is always Free + Locked.
	Total uint64
}

// NewBalancesView builds a view with Total kept consistent.
func NewBalancesView(free, locked uint64) BalancesView {
	return BalancesView{Free: free, Locked: locked, Total: free + locked}
}
