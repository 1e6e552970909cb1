package chain

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/cimai/fightbet/internal/domain"
)

// accountDiscriminatorLen is the Anchor account tag prefixed to every
// program-owned account's data.
const accountDiscriminatorLen = 8

// BetAccount mirrors the program's per-bet account. Field order and widths
// must match the on-chain layout exactly; the borsh decoder walks them in
// declaration order.
type BetAccount struct {
	Bettor              solana.PublicKey
	TokenType           uint8
	Amount              uint32
	FightID             uint32
	Odds                uint16
	PotentialPayout     uint32
	FeeAmount           uint32
	Timestamp           int64
	Settled             bool
	Won                 bool
	SettlementTimestamp int64
	ActualPayout        uint32
	RaprMultiplier      uint16
	Bump                uint8
}

// DecodeBetAccount decodes raw account data (including the 8-byte account
// discriminator) into a BetAccount.
func DecodeBetAccount(data []byte) (*BetAccount, error) {
	if len(data) < accountDiscriminatorLen {
		return nil, fmt.Errorf("chain/accounts: bet account data too short: %d bytes", len(data))
	}
	var acc BetAccount
	if err := bin.NewBorshDecoder(data[accountDiscriminatorLen:]).Decode(&acc); err != nil {
		return nil, fmt.Errorf("chain/accounts: decode bet account: %w", err)
	}
	return &acc, nil
}

// ToDomain converts the raw chain representation into the read-only view
// the rest of the client works with.
func (a *BetAccount) ToDomain() domain.Bet {
	return domain.Bet{
		Bettor:          a.Bettor.String(),
		Token:           domain.TokenType(a.TokenType),
		Amount:          uint64(a.Amount),
		FightID:         uint64(a.FightID),
		Odds:            a.Odds,
		PotentialPayout: uint64(a.PotentialPayout),
		FeeAmount:       uint64(a.FeeAmount),
		Settled:         a.Settled,
		Won:             a.Won,
		ActualPayout:    uint64(a.ActualPayout),
	}
}

// BettingStateAccount mirrors the program's global configuration and
// accounting account.
type BettingStateAccount struct {
	Authority               solana.PublicKey
	DumbsMint               solana.PublicKey
	RaprMint                solana.PublicKey
	BetVault                solana.PublicKey
	RaprVault               solana.PublicKey
	Treasury                solana.PublicKey
	SolVault                solana.PublicKey
	HouseFee                uint32
	RaprMultiplier          uint64
	SolDumbsRate            uint64
	SolRaprRate             uint64
	TotalBetsPlaced         uint64
	TotalBetsSettled        uint64
	TotalDumbsWagered       uint64
	TotalRaprWagered        uint64
	TotalDumbsWon           uint64
	TotalRaprWon            uint64
	TotalFeesCollected      uint64
	TotalPotentialPayout    uint64
	TotalDumbsInCirculation uint64
	TotalRaprInCirculation  uint64
	MaxBet                  uint64
	IsPaused                bool
	Bump                    uint8
	BetVaultBump            uint8
	RaprVaultBump           uint8
}

// DecodeBettingState decodes raw account data into a BettingStateAccount.
func DecodeBettingState(data []byte) (*BettingStateAccount, error) {
	if len(data) < accountDiscriminatorLen {
		return nil, fmt.Errorf("chain/accounts: betting state data too short: %d bytes", len(data))
	}
	var acc BettingStateAccount
	if err := bin.NewBorshDecoder(data[accountDiscriminatorLen:]).Decode(&acc); err != nil {
		return nil, fmt.Errorf("chain/accounts: decode betting state: %w", err)
	}
	return &acc, nil
}

// FeeFor applies the configured house fee, expressed in basis points, to an
// amount.
func (s *BettingStateAccount) FeeFor(amount uint64) uint64 {
	return amount * uint64(s.HouseFee) / 10000
}
