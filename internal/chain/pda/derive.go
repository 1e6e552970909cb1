// Package pda derives the program-derived addresses the betting program
// owns. All derivations are deterministic over the program ID, so a Deriver
// caches nothing and is safe for concurrent use.
package pda

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes, byte-for-byte what the on-chain program expects.
const (
	seedBettingState   = "betting_state"
	seedBetVault       = "bet_vault"
	seedRaprVault      = "rapr_vault"
	seedSolVault       = "sol_vault"
	seedTreasury       = "treasury"
	seedDumbsTreasury  = "dumbs_treasury"
	seedDumbsMint      = "dumbs_mint"
	seedUserBetAccount = "user-bet-account"
	seedBet            = "bet"
)

// Deriver derives addresses under a single betting program.
type Deriver struct {
	program solana.PublicKey
}

// NewDeriver returns a Deriver for the given program ID.
func NewDeriver(program solana.PublicKey) *Deriver {
	return &Deriver{program: program}
}

// Program returns the program ID the Deriver derives under.
func (d *Deriver) Program() solana.PublicKey { return d.program }

// BettingState derives the global betting state account.
func (d *Deriver) BettingState() (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedBettingState)})
}

// BetVault derives the escrow vault, seeded on the betting state address.
func (d *Deriver) BetVault(bettingState solana.PublicKey) (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedBetVault), bettingState.Bytes()})
}

// RaprVault derives the RAPR token vault.
func (d *Deriver) RaprVault() (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedRaprVault)})
}

// SolVault derives the native SOL vault.
func (d *Deriver) SolVault() (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedSolVault)})
}

// Treasury derives the fee treasury.
func (d *Deriver) Treasury() (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedTreasury)})
}

// DumbsTreasury derives the DUMBS-denominated treasury.
func (d *Deriver) DumbsTreasury() (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedDumbsTreasury)})
}

// DumbsMint derives the DUMBS mint account.
func (d *Deriver) DumbsMint() (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedDumbsMint)})
}

// UserBetAccount derives a bettor's aggregate bet account.
func (d *Deriver) UserBetAccount(bettor solana.PublicKey) (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedUserBetAccount), bettor.Bytes()})
}

// Bet derives the per-fight bet account for a bettor. The fight's secure ID
// is encoded as 8 little-endian bytes, matching the program's u64 seed.
func (d *Deriver) Bet(bettor solana.PublicKey, secureID uint64) (solana.PublicKey, error) {
	return d.find([][]byte{[]byte(seedBet), bettor.Bytes(), LE64(secureID)})
}

// TokenAccount derives the associated token account holding mint tokens for
// owner, seeded on the legacy token program. ATAs live under the
// associated-token program, not the betting program, so this does not use
// d.program.
func (d *Deriver) TokenAccount(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("pda/derive: associated token address for %s: %w", owner, err)
	}
	return addr, nil
}

// Token2022Account derives the associated token account for a Token-2022
// held mint. The token program id is part of the ATA seed, so this yields a
// different address than TokenAccount for the same owner and mint. The
// deposit, win-mint, swap and balance paths all live on Token-2022
// accounts; the bet escrow paths use the legacy derivation.
func (d *Deriver) Token2022Account(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{owner.Bytes(), solana.Token2022ProgramID.Bytes(), mint.Bytes()},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("pda/derive: token-2022 associated token address for %s: %w", owner, err)
	}
	return addr, nil
}

// LE64 encodes v as 8 little-endian bytes.
func LE64(v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return b[:]
}

func (d *Deriver) find(seeds [][]byte) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(seeds, d.program)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("pda/derive: find program address: %w", err)
	}
	return addr, nil
}
