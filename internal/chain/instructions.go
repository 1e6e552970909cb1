package chain

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/cimai/fightbet/internal/chain/pda"
)

// anchorDiscriminator returns the 8-byte instruction tag Anchor derives
// from the method name.
func anchorDiscriminator(method string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + method))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// anchorData serializes an instruction payload: discriminator followed by
// borsh-encoded arguments.
func anchorData(method string, args func(*bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	d := anchorDiscriminator(method)
	if err := enc.WriteBytes(d[:], false); err != nil {
		return nil, fmt.Errorf("chain/instructions: write discriminator for %s: %w", method, err)
	}
	if args != nil {
		if err := args(enc); err != nil {
			return nil, fmt.Errorf("chain/instructions: encode args for %s: %w", method, err)
		}
	}
	return buf.Bytes(), nil
}

// Builder assembles betting program instructions with fully derived account
// lists. It holds no connection and is safe for concurrent use.
type Builder struct {
	deriver  *pda.Deriver
	raprMint solana.PublicKey
}

// NewBuilder returns a Builder deriving under d's program. The RAPR mint is
// external to the program and must be supplied.
func NewBuilder(d *pda.Deriver, raprMint solana.PublicKey) *Builder {
	return &Builder{deriver: d, raprMint: raprMint}
}

// common holds the addresses nearly every instruction touches.
type common struct {
	bettingState  solana.PublicKey
	betVault      solana.PublicKey
	solVault      solana.PublicKey
	treasury      solana.PublicKey
	dumbsTreasury solana.PublicKey
	dumbsMint     solana.PublicKey
}

func (b *Builder) derive() (common, error) {
	var c common
	var err error
	if c.bettingState, err = b.deriver.BettingState(); err != nil {
		return c, err
	}
	if c.betVault, err = b.deriver.BetVault(c.bettingState); err != nil {
		return c, err
	}
	if c.solVault, err = b.deriver.SolVault(); err != nil {
		return c, err
	}
	if c.treasury, err = b.deriver.Treasury(); err != nil {
		return c, err
	}
	if c.dumbsTreasury, err = b.deriver.DumbsTreasury(); err != nil {
		return c, err
	}
	if c.dumbsMint, err = b.deriver.DumbsMint(); err != nil {
		return c, err
	}
	return c, nil
}

// DepositSol builds deposit_sol(amount): native SOL in, DUMBS minted to the
// depositor's token account.
func (b *Builder) DepositSol(depositor solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	c, err := b.derive()
	if err != nil {
		return nil, err
	}
	userDumbs, err := b.deriver.Token2022Account(depositor, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	data, err := anchorData("deposit_sol", func(enc *bin.Encoder) error {
		return enc.WriteUint64(lamports, binary.LittleEndian)
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(depositor).WRITE().SIGNER(),
		solana.Meta(userDumbs).WRITE(),
		solana.Meta(c.solVault).WRITE(),
		solana.Meta(c.betVault).WRITE(),
		solana.Meta(c.dumbsMint).WRITE(),
		solana.Meta(c.bettingState).WRITE(),
		solana.Meta(c.treasury).WRITE(),
		solana.Meta(solana.Token2022ProgramID),
		solana.Meta(solana.SPLAssociatedTokenAccountProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(b.deriver.Program(), metas, data), nil
}

// PlaceBet builds place_bet(amount, secure_fight_id, odds). Odds are the
// encoded profit integer, not the display multiplier.
func (b *Builder) PlaceBet(bettor solana.PublicKey, amount, secureID, odds uint64) (solana.Instruction, error) {
	c, err := b.derive()
	if err != nil {
		return nil, err
	}
	userDumbs, err := b.deriver.TokenAccount(bettor, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	dumbsTreasuryAccount, err := b.deriver.TokenAccount(c.dumbsTreasury, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	bet, err := b.deriver.Bet(bettor, secureID)
	if err != nil {
		return nil, err
	}
	data, err := anchorData("place_bet", func(enc *bin.Encoder) error {
		if err := enc.WriteUint64(amount, binary.LittleEndian); err != nil {
			return err
		}
		if err := enc.WriteUint64(secureID, binary.LittleEndian); err != nil {
			return err
		}
		return enc.WriteUint64(odds, binary.LittleEndian)
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(bettor).WRITE().SIGNER(),
		solana.Meta(userDumbs).WRITE(),
		solana.Meta(c.betVault).WRITE(),
		solana.Meta(c.treasury).WRITE(),
		solana.Meta(c.dumbsTreasury).WRITE(),
		solana.Meta(dumbsTreasuryAccount).WRITE(),
		solana.Meta(bet).WRITE(),
		solana.Meta(c.bettingState).WRITE(),
		solana.Meta(c.dumbsMint),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(b.deriver.Program(), metas, data), nil
}

// SettleBet builds settle_bet(secure_fight_id, winner). Only the betting
// authority may execute it; bettor identifies whose bet account settles.
func (b *Builder) SettleBet(authority, bettor solana.PublicKey, secureID uint64, winner solana.PublicKey) (solana.Instruction, error) {
	c, err := b.derive()
	if err != nil {
		return nil, err
	}
	bet, err := b.deriver.Bet(bettor, secureID)
	if err != nil {
		return nil, err
	}
	bettorDumbs, err := b.deriver.TokenAccount(bettor, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	treasuryDumbs, err := b.deriver.TokenAccount(c.dumbsTreasury, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	data, err := anchorData("settle_bet", func(enc *bin.Encoder) error {
		if err := enc.WriteUint64(secureID, binary.LittleEndian); err != nil {
			return err
		}
		return enc.WriteBytes(winner.Bytes(), false)
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(authority).WRITE().SIGNER(),
		solana.Meta(c.betVault).WRITE(),
		solana.Meta(c.solVault).WRITE(),
		solana.Meta(bet).WRITE(),
		solana.Meta(bettorDumbs).WRITE(),
		solana.Meta(c.dumbsMint).WRITE(),
		solana.Meta(c.bettingState).WRITE(),
		solana.Meta(c.treasury).WRITE(),
		solana.Meta(c.dumbsTreasury).WRITE(),
		solana.Meta(treasuryDumbs).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(b.deriver.Program(), metas, data), nil
}

// CashOut builds cash_out(secure_fight_id), paying out a settled winning
// bet.
func (b *Builder) CashOut(user solana.PublicKey, secureID uint64) (solana.Instruction, error) {
	c, err := b.derive()
	if err != nil {
		return nil, err
	}
	bet, err := b.deriver.Bet(user, secureID)
	if err != nil {
		return nil, err
	}
	userDumbs, err := b.deriver.TokenAccount(user, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	treasuryDumbs, err := b.deriver.TokenAccount(c.dumbsTreasury, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	data, err := anchorData("cash_out", func(enc *bin.Encoder) error {
		return enc.WriteUint64(secureID, binary.LittleEndian)
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(userDumbs).WRITE(),
		solana.Meta(bet).WRITE(),
		solana.Meta(c.betVault).WRITE(),
		solana.Meta(c.solVault).WRITE(),
		solana.Meta(c.dumbsMint).WRITE(),
		solana.Meta(c.bettingState).WRITE(),
		solana.Meta(c.treasury).WRITE(),
		solana.Meta(c.dumbsTreasury).WRITE(),
		solana.Meta(treasuryDumbs).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(b.deriver.Program(), metas, data), nil
}

// MintDumbsForWin builds mint_dumbs_for_win(secure_fight_id), minting the
// winner's payout after settlement.
func (b *Builder) MintDumbsForWin(bettor solana.PublicKey, secureID uint64) (solana.Instruction, error) {
	c, err := b.derive()
	if err != nil {
		return nil, err
	}
	userBetting, err := b.deriver.UserBetAccount(bettor)
	if err != nil {
		return nil, err
	}
	userDumbs, err := b.deriver.Token2022Account(bettor, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	userRapr, err := b.deriver.Token2022Account(bettor, b.raprMint)
	if err != nil {
		return nil, err
	}
	raprVault, err := b.deriver.RaprVault()
	if err != nil {
		return nil, err
	}
	data, err := anchorData("mint_dumbs_for_win", func(enc *bin.Encoder) error {
		return enc.WriteUint64(secureID, binary.LittleEndian)
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(bettor).WRITE().SIGNER(),
		solana.Meta(userBetting).WRITE(),
		solana.Meta(bettor),
		solana.Meta(userDumbs).WRITE(),
		solana.Meta(userRapr).WRITE(),
		solana.Meta(raprVault).WRITE(),
		solana.Meta(c.dumbsMint).WRITE(),
		solana.Meta(c.bettingState).WRITE(),
		solana.Meta(solana.Token2022ProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(b.deriver.Program(), metas, data), nil
}

// SwapSolForRapr builds swap_sol_for_rapr(sol_amount).
func (b *Builder) SwapSolForRapr(user solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	c, err := b.derive()
	if err != nil {
		return nil, err
	}
	userRapr, err := b.deriver.Token2022Account(user, b.raprMint)
	if err != nil {
		return nil, err
	}
	data, err := anchorData("swap_sol_for_rapr", func(enc *bin.Encoder) error {
		return enc.WriteUint64(lamports, binary.LittleEndian)
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(userRapr).WRITE(),
		solana.Meta(c.solVault).WRITE(),
		solana.Meta(b.raprMint).WRITE(),
		solana.Meta(c.bettingState).WRITE(),
		solana.Meta(solana.Token2022ProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(b.deriver.Program(), metas, data), nil
}

// WithdrawSol builds withdraw_sol(amount), releasing lamports from the SOL
// vault back to the user.
func (b *Builder) WithdrawSol(user solana.PublicKey, lamports uint64) (solana.Instruction, error) {
	c, err := b.derive()
	if err != nil {
		return nil, err
	}
	userDumbs, err := b.deriver.TokenAccount(user, c.dumbsMint)
	if err != nil {
		return nil, err
	}
	data, err := anchorData("withdraw_sol", func(enc *bin.Encoder) error {
		return enc.WriteUint64(lamports, binary.LittleEndian)
	})
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(user).WRITE().SIGNER(),
		solana.Meta(userDumbs).WRITE(),
		solana.Meta(c.solVault).WRITE(),
		solana.Meta(c.dumbsMint).WRITE(),
		solana.Meta(c.bettingState).WRITE(),
		solana.Meta(c.treasury).WRITE(),
		solana.Meta(solana.TokenProgramID),
		solana.Meta(solana.SystemProgramID),
	}
	return solana.NewInstruction(b.deriver.Program(), metas, data), nil
}

// CreateTokenAccount builds the associated-token-program instruction that
// creates owner's Token-2022 token account for mint, funded by payer. Only
// the Token-2022 paths (deposit, swap, win mint) establish accounts, so the
// derived address must match the Token-2022 seed the program meta names.
func (b *Builder) CreateTokenAccount(payer, owner, mint solana.PublicKey) (solana.Instruction, error) {
	ata, err := b.deriver.Token2022Account(owner, mint)
	if err != nil {
		return nil, err
	}
	metas := solana.AccountMetaSlice{
		solana.Meta(payer).WRITE().SIGNER(),
		solana.Meta(ata).WRITE(),
		solana.Meta(owner),
		solana.Meta(mint),
		solana.Meta(solana.SystemProgramID),
		solana.Meta(solana.Token2022ProgramID),
		solana.Meta(solana.SysVarRentPubkey),
	}
	return solana.NewInstruction(solana.SPLAssociatedTokenAccountProgramID, metas, []byte{}), nil
}
