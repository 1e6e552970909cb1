package chain

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimai/fightbet/internal/chain/pda"
)

var (
	testProgram  = solana.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")
	testRaprMint = solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
	testWallet   = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
)

func newTestBuilder() *Builder {
	return NewBuilder(pda.NewDeriver(testProgram), testRaprMint)
}

func TestAnchorDiscriminator(t *testing.T) {
	want := sha256.Sum256([]byte("global:place_bet"))
	got := anchorDiscriminator("place_bet")
	assert.Equal(t, want[:8], got[:])
}

func TestDepositSolInstruction(t *testing.T) {
	ix, err := newTestBuilder().DepositSol(testWallet, 500_000_000)
	require.NoError(t, err)

	assert.Equal(t, testProgram, ix.ProgramID())

	data, err := ix.Data()
	require.NoError(t, err)
	d := anchorDiscriminator("deposit_sol")
	assert.Equal(t, d[:], data[:8])
	assert.Equal(t, uint64(500_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Len(t, data, 16)

	accounts := ix.Accounts()
	require.NotEmpty(t, accounts)
	assert.Equal(t, testWallet, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsSigner)
	assert.True(t, accounts[0].IsWritable)
}

func TestPlaceBetInstructionArgsOrder(t *testing.T) {
	ix, err := newTestBuilder().PlaceBet(testWallet, 1_000_000, 99, 87)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+8+8+8)
	assert.Equal(t, uint64(1_000_000), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, uint64(99), binary.LittleEndian.Uint64(data[16:24]))
	assert.Equal(t, uint64(87), binary.LittleEndian.Uint64(data[24:32]))
}

func TestPlaceBetDerivesBetFromSecureID(t *testing.T) {
	b := newTestBuilder()
	ix1, err := b.PlaceBet(testWallet, 100, 1, 87)
	require.NoError(t, err)
	ix2, err := b.PlaceBet(testWallet, 100, 2, 87)
	require.NoError(t, err)

	// Bet account is the 7th meta; it must track the secure fight ID.
	assert.NotEqual(t, ix1.Accounts()[6].PublicKey, ix2.Accounts()[6].PublicKey)
}

func TestSettleBetEncodesWinner(t *testing.T) {
	winner := solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111")
	ix, err := newTestBuilder().SettleBet(testWallet, testWallet, 7, winner)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	require.Len(t, data, 8+8+32)
	assert.Equal(t, uint64(7), binary.LittleEndian.Uint64(data[8:16]))
	assert.Equal(t, winner.Bytes(), data[16:48])
}

func TestCashOutInstruction(t *testing.T) {
	ix, err := newTestBuilder().CashOut(testWallet, 55)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	d := anchorDiscriminator("cash_out")
	assert.Equal(t, d[:], data[:8])
	assert.Equal(t, uint64(55), binary.LittleEndian.Uint64(data[8:16]))
}

func TestMintDumbsForWinInstruction(t *testing.T) {
	ix, err := newTestBuilder().MintDumbsForWin(testWallet, 12)
	require.NoError(t, err)

	d := anchorDiscriminator("mint_dumbs_for_win")
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, d[:], data[:8])
	assert.Equal(t, testWallet, ix.Accounts()[0].PublicKey)
	assert.True(t, ix.Accounts()[0].IsSigner)
}

func TestCreateTokenAccountTargetsATAProgram(t *testing.T) {
	ix, err := newTestBuilder().CreateTokenAccount(testWallet, testWallet, testRaprMint)
	require.NoError(t, err)

	assert.Equal(t, solana.SPLAssociatedTokenAccountProgramID, ix.ProgramID())
	data, err := ix.Data()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCreateTokenAccountDerivesToken2022Address(t *testing.T) {
	d := pda.NewDeriver(testProgram)
	ix, err := newTestBuilder().CreateTokenAccount(testWallet, testWallet, testRaprMint)
	require.NoError(t, err)

	// The created address and the token program meta must agree; a legacy
	// derivation paired with the Token-2022 program would be refused on chain.
	want, err := d.Token2022Account(testWallet, testRaprMint)
	require.NoError(t, err)
	accounts := ix.Accounts()
	assert.Equal(t, want, accounts[1].PublicKey)
	assert.Equal(t, solana.Token2022ProgramID, accounts[5].PublicKey)
}

func TestDepositSolUsesToken2022UserAccount(t *testing.T) {
	d := pda.NewDeriver(testProgram)
	ix, err := newTestBuilder().DepositSol(testWallet, 500_000_000)
	require.NoError(t, err)

	mint, err := d.DumbsMint()
	require.NoError(t, err)
	want, err := d.Token2022Account(testWallet, mint)
	require.NoError(t, err)
	assert.Equal(t, want, ix.Accounts()[1].PublicKey)
}

func TestPlaceBetUsesLegacyUserAccount(t *testing.T) {
	d := pda.NewDeriver(testProgram)
	ix, err := newTestBuilder().PlaceBet(testWallet, 100, 1, 87)
	require.NoError(t, err)

	// The bet escrow path stays on the legacy token program.
	mint, err := d.DumbsMint()
	require.NoError(t, err)
	want, err := d.TokenAccount(testWallet, mint)
	require.NoError(t, err)
	assert.Equal(t, want, ix.Accounts()[1].PublicKey)
}
