// Package orchestrator drives the state-changing betting operations end to
// end: local validation, address derivation, transaction assembly, signing,
// submission and bounded confirmation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/cimai/fightbet/internal/chain"
	"github.com/cimai/fightbet/internal/chain/pda"
	"github.com/cimai/fightbet/internal/crypto"
	"github.com/cimai/fightbet/internal/domain"
	"github.com/cimai/fightbet/internal/odds"
	"github.com/cimai/fightbet/internal/poll"
	"github.com/cimai/fightbet/internal/reconcile"
)

const (
	// MinDepositLamports is the smallest accepted deposit, 0.1 SOL. Checked
	// locally before any transaction is built; the program enforces the
	// same bound.
	MinDepositLamports = 100_000_000

	defaultConfirmAttempts = 3
	defaultConfirmInterval = time.Second
)

// Receipt is the outcome of a confirmed operation.
type Receipt struct {
	Signature solana.Signature
	Balances  domain.BalancesView
}

// Options tune confirmation polling. Zero values use the defaults.
type Options struct {
	ConfirmAttempts int
	ConfirmInterval time.Duration
}

// Orchestrator owns the submit path for one wallet against one betting
// program deployment.
type Orchestrator struct {
	ledger    chain.Ledger
	signer    crypto.TransactionSigner
	builder   *chain.Builder
	deriver   *pda.Deriver
	engine    *odds.Engine
	recon     *reconcile.Reconciler
	authority solana.PublicKey
	raprMint  solana.PublicKey
	log       *slog.Logger

	confirmAttempts int
	confirmInterval time.Duration
}

// New assembles an Orchestrator. authority is the betting program's
// configured settle authority; raprMint the external RAPR token mint.
func New(
	ledger chain.Ledger,
	signer crypto.TransactionSigner,
	deriver *pda.Deriver,
	engine *odds.Engine,
	recon *reconcile.Reconciler,
	authority solana.PublicKey,
	raprMint solana.PublicKey,
	log *slog.Logger,
	opts Options,
) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	if opts.ConfirmAttempts <= 0 {
		opts.ConfirmAttempts = defaultConfirmAttempts
	}
	if opts.ConfirmInterval <= 0 {
		opts.ConfirmInterval = defaultConfirmInterval
	}
	return &Orchestrator{
		ledger:          ledger,
		signer:          signer,
		builder:         chain.NewBuilder(deriver, raprMint),
		deriver:         deriver,
		engine:          engine,
		recon:           recon,
		authority:       authority,
		raprMint:        raprMint,
		log:             log.With("component", "orchestrator"),
		confirmAttempts: opts.ConfirmAttempts,
		confirmInterval: opts.ConfirmInterval,
	}
}

// Deposit converts native SOL into DUMBS. The wallet's DUMBS token account
// is created in the same transaction when absent.
func (o *Orchestrator) Deposit(ctx context.Context, lamports uint64) (Receipt, error) {
	const op = "deposit"

	if lamports < MinDepositLamports {
		return Receipt{}, domain.Validationf(op, "deposit %d below minimum %d lamports", lamports, MinDepositLamports)
	}
	native, err := o.recon.NativeBalance(ctx)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	if native < lamports {
		return Receipt{}, domain.InsufficientBalance(op, native, lamports)
	}

	wallet := o.signer.PublicKey()
	var ixs []solana.Instruction

	mint, err := o.deriver.DumbsMint()
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	createATA, exists, err := o.ensureTokenAccount(ctx, wallet, mint)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	if !exists {
		ixs = append(ixs, createATA)
	}

	depositIx, err := o.builder.DepositSol(wallet, lamports)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	ixs = append(ixs, depositIx)

	sig, err := o.submitAndConfirm(ctx, op, ixs)
	if err != nil {
		return Receipt{Signature: sig}, err
	}
	return o.receipt(ctx, sig, 0)
}

// PlaceBetParams carries everything a bet submission needs. The RAPR odds
// scale is not a parameter: it is read from the program's betting state at
// submission time.
type PlaceBetParams struct {
	SecureID   uint64
	Amount     uint64
	Multiplier float64
	Token      domain.TokenType
}

// PlaceBet escrows a stake on the current fight. All rejectable conditions
// that can be checked locally are checked before a transaction exists.
func (o *Orchestrator) PlaceBet(ctx context.Context, p PlaceBetParams) (Receipt, error) {
	const op = "place_bet"

	if p.Amount == 0 {
		return Receipt{}, domain.Validationf(op, "bet amount must be positive")
	}
	if !p.Token.Valid() {
		return Receipt{}, domain.Validationf(op, "unknown token type %d", p.Token)
	}
	if p.SecureID == 0 {
		return Receipt{}, domain.Validationf(op, "missing secure fight id")
	}

	free, err := o.recon.FreeBalance(ctx)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	if free < p.Amount {
		return Receipt{}, domain.InsufficientBalance(op, free, p.Amount)
	}

	wallet := o.signer.PublicKey()
	betAddr, err := o.deriver.Bet(wallet, p.SecureID)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	existing, err := o.ledger.FetchBet(ctx, betAddr)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	if existing != nil {
		return Receipt{}, domain.Validationf(op, "bet already placed for fight %d", p.SecureID)
	}

	// The program's betting state carries the pause flag, the global bet cap
	// and the RAPR odds scale. All three gate the bet before it is built.
	stateAddr, err := o.deriver.BettingState()
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	state, err := o.ledger.FetchBettingState(ctx, stateAddr)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	var raprMultiplier uint64
	if state != nil {
		if state.IsPaused {
			return Receipt{}, domain.Validationf(op, "betting is paused")
		}
		if state.MaxBet > 0 && p.Amount > state.MaxBet {
			return Receipt{}, domain.Validationf(op, "bet %d exceeds program maximum %d", p.Amount, state.MaxBet)
		}
		raprMultiplier = state.RaprMultiplier
	}

	encoded := o.engine.EncodeForToken(p.Multiplier, p.Token, raprMultiplier)
	ix, err := o.builder.PlaceBet(wallet, p.Amount, p.SecureID, encoded)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}

	sig, err := o.submitAndConfirm(ctx, op, []solana.Instruction{ix})
	if err != nil {
		return Receipt{Signature: sig}, err
	}
	o.log.Info("bet placed",
		"secure_id", p.SecureID,
		"amount", p.Amount,
		"odds", encoded,
		"signature", sig.String(),
	)
	return o.receipt(ctx, sig, p.SecureID)
}

// SettleBet marks a bet won or lost. Only the configured authority may
// settle; anyone else is refused before a transaction is built.
func (o *Orchestrator) SettleBet(ctx context.Context, bettor solana.PublicKey, secureID uint64, winner solana.PublicKey) (Receipt, error) {
	const op = "settle_bet"

	if !o.signer.PublicKey().Equals(o.authority) {
		return Receipt{}, domain.Unauthorized(op, "signer is not the betting authority")
	}

	ix, err := o.builder.SettleBet(o.signer.PublicKey(), bettor, secureID, winner)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	sig, err := o.submitAndConfirm(ctx, op, []solana.Instruction{ix})
	if err != nil {
		return Receipt{Signature: sig}, err
	}
	return o.receipt(ctx, sig, secureID)
}

// CashOut pays out a settled winning bet.
func (o *Orchestrator) CashOut(ctx context.Context, secureID uint64) (Receipt, error) {
	const op = "cash_out"

	bet, err := o.fetchOwnBet(ctx, op, secureID)
	if err != nil {
		return Receipt{}, err
	}
	if !bet.Settled {
		return Receipt{}, domain.Validationf(op, "bet for fight %d is not settled yet", secureID)
	}
	if !bet.Won {
		return Receipt{}, domain.Validationf(op, "bet for fight %d did not win", secureID)
	}

	ix, err := o.builder.CashOut(o.signer.PublicKey(), secureID)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	sig, err := o.submitAndConfirm(ctx, op, []solana.Instruction{ix})
	if err != nil {
		return Receipt{Signature: sig}, err
	}
	return o.receipt(ctx, sig, secureID)
}

// MintForWin mints the winner's payout after settlement.
func (o *Orchestrator) MintForWin(ctx context.Context, secureID uint64) (Receipt, error) {
	const op = "mint_for_win"

	bet, err := o.fetchOwnBet(ctx, op, secureID)
	if err != nil {
		return Receipt{}, err
	}
	if !bet.Settled {
		return Receipt{}, domain.Validationf(op, "bet for fight %d is not settled yet", secureID)
	}
	if !bet.Won {
		return Receipt{}, domain.Validationf(op, "bet for fight %d did not win", secureID)
	}

	ix, err := o.builder.MintDumbsForWin(o.signer.PublicKey(), secureID)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	sig, err := o.submitAndConfirm(ctx, op, []solana.Instruction{ix})
	if err != nil {
		return Receipt{Signature: sig}, err
	}
	return o.receipt(ctx, sig, secureID)
}

// Swap converts native SOL into RAPR. Independent of fight state; the
// destination token account is created when absent.
func (o *Orchestrator) Swap(ctx context.Context, lamports uint64) (Receipt, error) {
	const op = "swap"

	if lamports == 0 {
		return Receipt{}, domain.Validationf(op, "swap amount must be positive")
	}
	native, err := o.recon.NativeBalance(ctx)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	if native < lamports {
		return Receipt{}, domain.InsufficientBalance(op, native, lamports)
	}

	wallet := o.signer.PublicKey()
	var ixs []solana.Instruction

	createATA, exists, err := o.ensureTokenAccount(ctx, wallet, o.raprMint)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	if !exists {
		ixs = append(ixs, createATA)
	}

	swapIx, err := o.builder.SwapSolForRapr(wallet, lamports)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	ixs = append(ixs, swapIx)

	sig, err := o.submitAndConfirm(ctx, op, ixs)
	if err != nil {
		return Receipt{Signature: sig}, err
	}
	return o.receipt(ctx, sig, 0)
}

// WithdrawSol releases lamports from the SOL vault back to the wallet.
func (o *Orchestrator) WithdrawSol(ctx context.Context, lamports uint64) (Receipt, error) {
	const op = "withdraw_sol"

	if lamports == 0 {
		return Receipt{}, domain.Validationf(op, "withdraw amount must be positive")
	}

	ix, err := o.builder.WithdrawSol(o.signer.PublicKey(), lamports)
	if err != nil {
		return Receipt{}, o.wrap(op, err)
	}
	sig, err := o.submitAndConfirm(ctx, op, []solana.Instruction{ix})
	if err != nil {
		return Receipt{Signature: sig}, err
	}
	return o.receipt(ctx, sig, 0)
}

// --------------------------------------------------------------------------
// Submit path
// --------------------------------------------------------------------------

// submitAndConfirm assembles, signs, submits and confirms one transaction.
// Every state-changing operation funnels through here so the failure
// semantics are uniform. Once the transaction has been submitted, the
// signature is returned even on error; a confirmation timeout leaves the
// caller holding the signature to keep polling with.
func (o *Orchestrator) submitAndConfirm(ctx context.Context, op string, ixs []solana.Instruction) (solana.Signature, error) {
	opID := uuid.New().String()

	blockhash, err := o.ledger.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, o.wrap(op, err)
	}

	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(o.signer.PublicKey()))
	if err != nil {
		return solana.Signature{}, o.wrap(op, fmt.Errorf("assemble transaction: %w", err))
	}

	if err := o.signer.Sign(ctx, tx); err != nil {
		if errors.Is(err, crypto.ErrDeclined) {
			return solana.Signature{}, domain.SignerDeclined(op, err)
		}
		return solana.Signature{}, o.wrap(op, err)
	}

	sig, err := o.ledger.Submit(ctx, tx)
	if err != nil {
		if code, ok := chain.ExtractErrorCode(err); ok {
			return solana.Signature{}, domain.RemoteRejected(op, code, err)
		}
		return solana.Signature{}, o.wrap(op, err)
	}

	_, err = poll.Run(ctx, o.confirmAttempts, o.confirmInterval, func(ctx context.Context) poll.Step[chain.TxStatus] {
		st, err := o.ledger.Status(ctx, sig)
		if err != nil {
			return poll.Fail[chain.TxStatus](o.wrap(op, err))
		}
		switch st.State {
		case chain.TxConfirmed:
			return poll.Terminal(st)
		case chain.TxFailed:
			return poll.Fail[chain.TxStatus](domain.RemoteRejected(op, st.Code, nil))
		}
		return poll.Continue[chain.TxStatus]()
	})
	if err != nil {
		if errors.Is(err, poll.ErrBudgetExhausted) {
			// Unknown outcome, not a rejection. The transaction is never
			// resubmitted; the caller decides what to do next.
			o.log.Warn("confirmation budget exhausted",
				"op", op,
				"op_id", opID,
				"signature", sig.String(),
			)
			return sig, domain.ConfirmationTimeout(op, o.confirmAttempts)
		}
		return sig, err
	}

	o.log.Debug("transaction confirmed", "op", op, "op_id", opID, "signature", sig.String())
	return sig, nil
}

// ensureTokenAccount reports whether owner's Token-2022 token account for
// mint exists and returns a creation instruction to prepend when it does
// not. Only the Token-2022 operations create accounts on demand.
func (o *Orchestrator) ensureTokenAccount(ctx context.Context, owner, mint solana.PublicKey) (solana.Instruction, bool, error) {
	ata, err := o.deriver.Token2022Account(owner, mint)
	if err != nil {
		return nil, false, err
	}
	exists, err := o.ledger.AccountExists(ctx, ata)
	if err != nil {
		return nil, false, err
	}
	if exists {
		return nil, true, nil
	}
	ix, err := o.builder.CreateTokenAccount(o.signer.PublicKey(), owner, mint)
	if err != nil {
		return nil, false, err
	}
	return ix, false, nil
}

// fetchOwnBet loads the wallet's bet for a fight, translating a missing
// account into the taxonomy.
func (o *Orchestrator) fetchOwnBet(ctx context.Context, op string, secureID uint64) (*chain.BetAccount, error) {
	betAddr, err := o.deriver.Bet(o.signer.PublicKey(), secureID)
	if err != nil {
		return nil, o.wrap(op, err)
	}
	bet, err := o.ledger.FetchBet(ctx, betAddr)
	if err != nil {
		return nil, o.wrap(op, err)
	}
	if bet == nil {
		return nil, domain.AccountNotFound(op, betAddr.String())
	}
	return bet, nil
}

func (o *Orchestrator) receipt(ctx context.Context, sig solana.Signature, secureID uint64) (Receipt, error) {
	view, err := o.recon.Refresh(ctx, secureID)
	if err != nil {
		// The operation itself succeeded; a failed refresh should not
		// mask that. Return the signature with empty balances.
		o.log.Warn("balance refresh after confirmed transaction failed", "err", err)
		return Receipt{Signature: sig}, nil
	}
	return Receipt{Signature: sig, Balances: view}, nil
}

func (o *Orchestrator) wrap(op string, err error) error {
	return fmt.Errorf("orchestrator: %s: %w", op, err)
}
