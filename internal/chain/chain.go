// Package chain talks to the betting program's ledger: account reads,
// instruction building, transaction submission and status lookups.
package chain

import (
	"context"

	"github.com/gagliardetto/solana-go"
)

// TxState is the coarse lifecycle state of a submitted transaction.
type TxState int

const (
	// TxPending means the cluster has not yet confirmed or rejected the
	// transaction.
	TxPending TxState = iota
	// TxConfirmed means the transaction reached at least confirmed
	// commitment without an error.
	TxConfirmed
	// TxFailed means the cluster executed the transaction and it errored.
	TxFailed
)

func (s TxState) String() string {
	switch s {
	case TxPending:
		return "pending"
	case TxConfirmed:
		return "confirmed"
	case TxFailed:
		return "failed"
	}
	return "unknown"
}

// TxStatus is the result of a status lookup. Code carries the program's
// error code name when State is TxFailed and the failure came from the
// betting program; it is empty otherwise.
type TxStatus struct {
	State TxState
	Code  string
}

// Ledger is the read/submit surface the orchestration layers depend on.
// The production implementation is RPCClient; tests substitute fakes.
type Ledger interface {
	// TokenBalance returns the raw token amount held by a token account,
	// or 0 when the account does not exist.
	TokenBalance(ctx context.Context, account solana.PublicKey) (uint64, error)

	// NativeBalance returns the lamport balance of an address.
	NativeBalance(ctx context.Context, addr solana.PublicKey) (uint64, error)

	// AccountExists reports whether an account is present on chain.
	AccountExists(ctx context.Context, addr solana.PublicKey) (bool, error)

	// FetchBet reads and decodes a bet account. A missing account yields
	// (nil, nil).
	FetchBet(ctx context.Context, addr solana.PublicKey) (*BetAccount, error)

	// FetchBettingState reads and decodes the global betting state. A
	// missing account yields (nil, nil).
	FetchBettingState(ctx context.Context, addr solana.PublicKey) (*BettingStateAccount, error)

	// LatestBlockhash returns a recent blockhash for transaction assembly.
	LatestBlockhash(ctx context.Context) (solana.Hash, error)

	// Submit broadcasts a signed transaction and returns its signature.
	// Submission does not imply confirmation.
	Submit(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// Status reports the current lifecycle state of a signature.
	Status(ctx context.Context, sig solana.Signature) (TxStatus, error)
}
