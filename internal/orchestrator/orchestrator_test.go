package orchestrator

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimai/fightbet/internal/chain"
	"github.com/cimai/fightbet/internal/chain/pda"
	"github.com/cimai/fightbet/internal/crypto"
	"github.com/cimai/fightbet/internal/domain"
	"github.com/cimai/fightbet/internal/odds"
	"github.com/cimai/fightbet/internal/reconcile"
)

var (
	testProgram   = solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	testRaprMint  = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
	testWallet    = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	testAuthority = solana.MustPublicKeyFromBase58("Stake11111111111111111111111111111111111111")
)

type fakeSigner struct {
	key     solana.PublicKey
	decline bool
}

func (s *fakeSigner) PublicKey() solana.PublicKey { return s.key }

func (s *fakeSigner) Sign(context.Context, *solana.Transaction) error {
	if s.decline {
		return crypto.ErrDeclined
	}
	return nil
}

type fakeLedger struct {
	tokenBalances map[solana.PublicKey]uint64
	bets          map[solana.PublicKey]*chain.BetAccount
	accounts      map[solana.PublicKey]bool
	native        uint64
	state         *chain.BettingStateAccount

	submitted []*solana.Transaction
	submitErr error

	// statuses is consumed one per Status call; the last entry repeats.
	statuses []chain.TxStatus
	statusAt int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		tokenBalances: map[solana.PublicKey]uint64{},
		bets:          map[solana.PublicKey]*chain.BetAccount{},
		accounts:      map[solana.PublicKey]bool{},
		statuses:      []chain.TxStatus{{State: chain.TxConfirmed}},
	}
}

func (f *fakeLedger) TokenBalance(_ context.Context, account solana.PublicKey) (uint64, error) {
	return f.tokenBalances[account], nil
}

func (f *fakeLedger) NativeBalance(context.Context, solana.PublicKey) (uint64, error) {
	return f.native, nil
}

func (f *fakeLedger) AccountExists(_ context.Context, addr solana.PublicKey) (bool, error) {
	return f.accounts[addr], nil
}

func (f *fakeLedger) FetchBet(_ context.Context, addr solana.PublicKey) (*chain.BetAccount, error) {
	return f.bets[addr], nil
}

func (f *fakeLedger) FetchBettingState(context.Context, solana.PublicKey) (*chain.BettingStateAccount, error) {
	return f.state, nil
}

func (f *fakeLedger) LatestBlockhash(context.Context) (solana.Hash, error) {
	return solana.Hash{1}, nil
}

func (f *fakeLedger) Submit(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	if f.submitErr != nil {
		return solana.Signature{}, f.submitErr
	}
	f.submitted = append(f.submitted, tx)
	return solana.Signature{byte(len(f.submitted))}, nil
}

func (f *fakeLedger) Status(context.Context, solana.Signature) (chain.TxStatus, error) {
	st := f.statuses[f.statusAt]
	if f.statusAt < len(f.statuses)-1 {
		f.statusAt++
	}
	return st, nil
}

func newTestOrchestrator(t *testing.T, ledger *fakeLedger, signer *fakeSigner) *Orchestrator {
	t.Helper()
	if signer == nil {
		signer = &fakeSigner{key: testWallet}
	}
	deriver := pda.NewDeriver(testProgram)
	recon := reconcile.New(signer.key, deriver, ledger, nil)
	engine := odds.NewEngine(odds.Config{})
	return New(ledger, signer, deriver, engine, recon, testAuthority, testRaprMint, nil, Options{
		ConfirmInterval: time.Millisecond,
	})
}

func fundWallet(t *testing.T, ledger *fakeLedger, amount uint64) {
	t.Helper()
	d := pda.NewDeriver(testProgram)
	mint, err := d.DumbsMint()
	require.NoError(t, err)
	ata, err := d.Token2022Account(testWallet, mint)
	require.NoError(t, err)
	ledger.tokenBalances[ata] = amount
	ledger.accounts[ata] = true
}

func betAddr(t *testing.T, secureID uint64) solana.PublicKey {
	t.Helper()
	addr, err := pda.NewDeriver(testProgram).Bet(testWallet, secureID)
	require.NoError(t, err)
	return addr
}

func TestDepositBelowMinimumRejectedLocally(t *testing.T) {
	ledger := newFakeLedger()
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.Deposit(context.Background(), MinDepositLamports-1)
	assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
	assert.Empty(t, ledger.submitted, "rejected deposit must not reach the chain")
}

func TestDepositInsufficientNativeBalance(t *testing.T) {
	ledger := newFakeLedger()
	ledger.native = MinDepositLamports - 1
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.Deposit(context.Background(), MinDepositLamports)
	assert.True(t, domain.IsKind(err, domain.KindInsufficientBalance), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestDepositCreatesTokenAccountWhenMissing(t *testing.T) {
	ledger := newFakeLedger()
	ledger.native = 1_000_000_000
	o := newTestOrchestrator(t, ledger, nil)

	receipt, err := o.Deposit(context.Background(), MinDepositLamports)
	require.NoError(t, err)
	assert.False(t, receipt.Signature.IsZero())

	require.Len(t, ledger.submitted, 1)
	// Create-ATA instruction precedes the deposit itself.
	assert.Len(t, ledger.submitted[0].Message.Instructions, 2)
}

func TestDepositSkipsTokenAccountCreationWhenPresent(t *testing.T) {
	ledger := newFakeLedger()
	ledger.native = 1_000_000_000
	fundWallet(t, ledger, 0)
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.Deposit(context.Background(), MinDepositLamports)
	require.NoError(t, err)
	require.Len(t, ledger.submitted, 1)
	assert.Len(t, ledger.submitted[0].Message.Instructions, 1)
}

func TestPlaceBetInsufficientFreeBalance(t *testing.T) {
	ledger := newFakeLedger()
	fundWallet(t, ledger, 500)
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.PlaceBet(context.Background(), PlaceBetParams{
		SecureID:   7,
		Amount:     1000,
		Multiplier: 1.5,
		Token:      domain.TokenDUMBS,
	})
	assert.True(t, domain.IsKind(err, domain.KindInsufficientBalance), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestPlaceBetDuplicateRejected(t *testing.T) {
	ledger := newFakeLedger()
	fundWallet(t, ledger, 10_000)
	ledger.bets[betAddr(t, 7)] = &chain.BetAccount{Amount: 500}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.PlaceBet(context.Background(), PlaceBetParams{
		SecureID:   7,
		Amount:     1000,
		Multiplier: 1.5,
		Token:      domain.TokenDUMBS,
	})
	assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestPlaceBetSubmitsAndConfirms(t *testing.T) {
	ledger := newFakeLedger()
	fundWallet(t, ledger, 10_000)
	o := newTestOrchestrator(t, ledger, nil)

	receipt, err := o.PlaceBet(context.Background(), PlaceBetParams{
		SecureID:   7,
		Amount:     1000,
		Multiplier: 1.5,
		Token:      domain.TokenDUMBS,
	})
	require.NoError(t, err)
	assert.False(t, receipt.Signature.IsZero())
	assert.Len(t, ledger.submitted, 1)
}

func TestPlaceBetScalesRaprOddsFromChainState(t *testing.T) {
	ledger := newFakeLedger()
	fundWallet(t, ledger, 10_000)
	ledger.state = &chain.BettingStateAccount{RaprMultiplier: 250}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.PlaceBet(context.Background(), PlaceBetParams{
		SecureID:   7,
		Amount:     1000,
		Multiplier: 1.5,
		Token:      domain.TokenRAPR,
	})
	require.NoError(t, err)
	require.Len(t, ledger.submitted, 1)

	// Instruction data is discriminator, amount, secure id, odds. A 1.5x
	// multiplier encodes to 50 bps; the program's 2.5x RAPR scale makes 125.
	data := ledger.submitted[0].Message.Instructions[0].Data
	require.GreaterOrEqual(t, len(data), 32)
	assert.Equal(t, uint64(125), binary.LittleEndian.Uint64(data[24:32]))
}

func TestPlaceBetRejectedWhileBettingPaused(t *testing.T) {
	ledger := newFakeLedger()
	fundWallet(t, ledger, 10_000)
	ledger.state = &chain.BettingStateAccount{IsPaused: true}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.PlaceBet(context.Background(), PlaceBetParams{
		SecureID:   7,
		Amount:     1000,
		Multiplier: 1.5,
		Token:      domain.TokenDUMBS,
	})
	assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestPlaceBetAboveChainMaximumRejected(t *testing.T) {
	ledger := newFakeLedger()
	fundWallet(t, ledger, 10_000)
	ledger.state = &chain.BettingStateAccount{MaxBet: 500}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.PlaceBet(context.Background(), PlaceBetParams{
		SecureID:   7,
		Amount:     1000,
		Multiplier: 1.5,
		Token:      domain.TokenDUMBS,
	})
	assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestSettleBetRequiresAuthority(t *testing.T) {
	ledger := newFakeLedger()
	o := newTestOrchestrator(t, ledger, &fakeSigner{key: testWallet})

	_, err := o.SettleBet(context.Background(), testWallet, 7, testWallet)
	assert.True(t, domain.IsKind(err, domain.KindUnauthorized), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestSettleBetAsAuthority(t *testing.T) {
	ledger := newFakeLedger()
	o := newTestOrchestrator(t, ledger, &fakeSigner{key: testAuthority})

	_, err := o.SettleBet(context.Background(), testWallet, 7, testWallet)
	require.NoError(t, err)
	assert.Len(t, ledger.submitted, 1)
}

func TestCashOutMissingBet(t *testing.T) {
	ledger := newFakeLedger()
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.CashOut(context.Background(), 7)
	assert.True(t, domain.IsKind(err, domain.KindAccountNotFound), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestCashOutUnsettledBet(t *testing.T) {
	ledger := newFakeLedger()
	ledger.bets[betAddr(t, 7)] = &chain.BetAccount{Amount: 500, Settled: false}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.CashOut(context.Background(), 7)
	assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestCashOutLosingBet(t *testing.T) {
	ledger := newFakeLedger()
	ledger.bets[betAddr(t, 7)] = &chain.BetAccount{Amount: 500, Settled: true, Won: false}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.CashOut(context.Background(), 7)
	assert.True(t, domain.IsKind(err, domain.KindValidation), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestCashOutWinningBet(t *testing.T) {
	ledger := newFakeLedger()
	ledger.bets[betAddr(t, 7)] = &chain.BetAccount{Amount: 500, Settled: true, Won: true}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.CashOut(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, ledger.submitted, 1)
}

func TestConfirmationTimeoutDoesNotResubmit(t *testing.T) {
	ledger := newFakeLedger()
	ledger.native = 1_000_000_000
	ledger.statuses = []chain.TxStatus{{State: chain.TxPending}}
	o := newTestOrchestrator(t, ledger, nil)

	receipt, err := o.Deposit(context.Background(), MinDepositLamports)
	assert.True(t, domain.IsKind(err, domain.KindConfirmationTimeout), "got %v", err)
	assert.Len(t, ledger.submitted, 1, "timeout must never trigger resubmission")
	assert.False(t, receipt.Signature.IsZero(), "timed-out receipt keeps the submitted signature")
}

func TestRemoteRejectionSurfacesCode(t *testing.T) {
	ledger := newFakeLedger()
	ledger.native = 1_000_000_000
	ledger.statuses = []chain.TxStatus{{State: chain.TxFailed, Code: "DepositTooSmall"}}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.Deposit(context.Background(), MinDepositLamports)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindRemoteRejected), "got %v", err)

	var oe *domain.OpError
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, "DepositTooSmall", oe.Code)
}

func TestRemoteInsufficientFundsMapsToBalanceKind(t *testing.T) {
	ledger := newFakeLedger()
	fundWallet(t, ledger, 10_000)
	ledger.statuses = []chain.TxStatus{{State: chain.TxFailed, Code: "InsufficientFunds"}}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.PlaceBet(context.Background(), PlaceBetParams{
		SecureID:   7,
		Amount:     1000,
		Multiplier: 1.5,
		Token:      domain.TokenDUMBS,
	})
	assert.True(t, domain.IsKind(err, domain.KindInsufficientBalance), "got %v", err)
}

func TestSignerDeclined(t *testing.T) {
	ledger := newFakeLedger()
	ledger.native = 1_000_000_000
	o := newTestOrchestrator(t, ledger, &fakeSigner{key: testWallet, decline: true})

	_, err := o.Deposit(context.Background(), MinDepositLamports)
	assert.True(t, domain.IsKind(err, domain.KindSignerDeclined), "got %v", err)
	assert.Empty(t, ledger.submitted)
}

func TestPendingThenConfirmed(t *testing.T) {
	ledger := newFakeLedger()
	ledger.native = 1_000_000_000
	ledger.statuses = []chain.TxStatus{
		{State: chain.TxPending},
		{State: chain.TxPending},
		{State: chain.TxConfirmed},
	}
	o := newTestOrchestrator(t, ledger, nil)

	_, err := o.Deposit(context.Background(), MinDepositLamports)
	require.NoError(t, err)
}
