// Package reconcile computes the wallet's balance view from fresh chain
// reads. Nothing here caches: the chain is the source of truth and local
// copies of it go stale the moment another transaction lands.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"github.com/cimai/fightbet/internal/chain"
	"github.com/cimai/fightbet/internal/chain/pda"
	"github.com/cimai/fightbet/internal/domain"
)

// Reconciler reads a single wallet's balances.
type Reconciler struct {
	wallet  solana.PublicKey
	deriver *pda.Deriver
	ledger  chain.Ledger
	log     *slog.Logger
}

// New builds a Reconciler for wallet. The logger may be nil.
func New(wallet solana.PublicKey, deriver *pda.Deriver, ledger chain.Ledger, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		wallet:  wallet,
		deriver: deriver,
		ledger:  ledger,
		log:     log.With("component", "reconcile"),
	}
}

// FreeBalance returns the wallet's spendable DUMBS, held in its Token-2022
// account (deposits mint there). A wallet that never deposited has no token
// account yet; that reads as zero, not an error.
func (r *Reconciler) FreeBalance(ctx context.Context) (uint64, error) {
	mint, err := r.deriver.DumbsMint()
	if err != nil {
		return 0, fmt.Errorf("reconcile: derive mint: %w", err)
	}
	ata, err := r.deriver.Token2022Account(r.wallet, mint)
	if err != nil {
		return 0, fmt.Errorf("reconcile: derive token account: %w", err)
	}
	balance, err := r.ledger.TokenBalance(ctx, ata)
	if err != nil {
		return 0, fmt.Errorf("reconcile: read free balance: %w", err)
	}
	return balance, nil
}

// LockedBalance returns the stake currently escrowed in the wallet's bet
// for the given fight. No bet account, or a bet already settled, means
// nothing is locked.
func (r *Reconciler) LockedBalance(ctx context.Context, secureID uint64) (uint64, error) {
	betAddr, err := r.deriver.Bet(r.wallet, secureID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: derive bet account: %w", err)
	}
	bet, err := r.ledger.FetchBet(ctx, betAddr)
	if err != nil {
		return 0, fmt.Errorf("reconcile: read bet account: %w", err)
	}
	if bet == nil || bet.Settled {
		return 0, nil
	}
	return uint64(bet.Amount), nil
}

// Refresh reads both balances and assembles the view.
func (r *Reconciler) Refresh(ctx context.Context, secureID uint64) (domain.BalancesView, error) {
	free, err := r.FreeBalance(ctx)
	if err != nil {
		return domain.BalancesView{}, err
	}
	locked, err := r.LockedBalance(ctx, secureID)
	if err != nil {
		return domain.BalancesView{}, err
	}
	view := domain.NewBalancesView(free, locked)
	r.log.Debug("balances refreshed",
		"free", view.Free,
		"locked", view.Locked,
		"total", view.Total,
	)
	return view, nil
}

// NativeBalance returns the wallet's lamport balance, used to sanity-check
// deposits before building a transaction.
func (r *Reconciler) NativeBalance(ctx context.Context) (uint64, error) {
	balance, err := r.ledger.NativeBalance(ctx, r.wallet)
	if err != nil {
		return 0, fmt.Errorf("reconcile: read native balance: %w", err)
	}
	return balance, nil
}

// Wallet returns the wallet this reconciler reads for.
func (r *Reconciler) Wallet() solana.PublicKey { return r.wallet }
