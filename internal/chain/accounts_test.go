package chain

import (
	"bytes"
	"errors"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimai/fightbet/internal/domain"
)

func encodeAccount(t *testing.T, v any) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	buf.Write(make([]byte, accountDiscriminatorLen))
	require.NoError(t, bin.NewBorshEncoder(buf).Encode(v))
	return buf.Bytes()
}

func TestDecodeBetAccount(t *testing.T) {
	bettor := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	src := BetAccount{
		Bettor:          bettor,
		TokenType:       1,
		Amount:          975000,
		FightID:         42,
		Odds:            150,
		PotentialPayout: 1462500,
		FeeAmount:       25000,
		Timestamp:       1725180000,
		Settled:         true,
		Won:             true,
		ActualPayout:    1462500,
		RaprMultiplier:  10,
		Bump:            254,
	}

	got, err := DecodeBetAccount(encodeAccount(t, src))
	require.NoError(t, err)
	assert.Equal(t, src, *got)
}

func TestDecodeBetAccountTooShort(t *testing.T) {
	_, err := DecodeBetAccount([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestBetAccountToDomain(t *testing.T) {
	bettor := solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	acc := BetAccount{
		Bettor:          bettor,
		TokenType:       0,
		Amount:          1000,
		FightID:         7,
		Odds:            120,
		PotentialPayout: 1200,
		FeeAmount:       25,
		Settled:         false,
		Won:             false,
	}

	b := acc.ToDomain()
	assert.Equal(t, bettor.String(), b.Bettor)
	assert.Equal(t, domain.TokenDUMBS, b.Token)
	assert.Equal(t, uint64(1000), b.Amount)
	assert.Equal(t, uint64(7), b.FightID)
	assert.Equal(t, uint16(120), b.Odds)
	assert.False(t, b.Settled)
}

func TestDecodeBettingState(t *testing.T) {
	src := BettingStateAccount{
		Authority:    solana.MustPublicKeyFromBase58("Vote111111111111111111111111111111111111111"),
		HouseFee:     250,
		SolDumbsRate: 1000,
		MaxBet:       5_000_000_000,
		IsPaused:     false,
		Bump:         255,
	}

	got, err := DecodeBettingState(encodeAccount(t, src))
	require.NoError(t, err)
	assert.Equal(t, src, *got)
}

func TestBettingStateFeeFor(t *testing.T) {
	s := BettingStateAccount{HouseFee: 250}
	assert.Equal(t, uint64(25), s.FeeFor(1000))
	assert.Equal(t, uint64(0), s.FeeFor(0))
	assert.Equal(t, uint64(2_500_000), s.FeeFor(100_000_000))
}

func TestExtractCustomCode(t *testing.T) {
	errJSON := map[string]any{
		"InstructionError": []any{float64(0), map[string]any{"Custom": float64(6002)}},
	}
	code, ok := extractCustomCode(errJSON)
	require.True(t, ok)
	assert.Equal(t, 6002, code)

	_, ok = extractCustomCode(map[string]any{"InstructionError": []any{float64(0), "PrivilegeEscalation"}})
	assert.False(t, ok)
}

func TestErrorCodeName(t *testing.T) {
	assert.Equal(t, "DepositTooSmall", ErrorCodeName(6000))
	assert.Equal(t, "InsufficientFunds", ErrorCodeName(6002))
	assert.Equal(t, "BetNotSettled", ErrorCodeName(6016))
	assert.Equal(t, "Custom(6999)", ErrorCodeName(6999))
}

func TestExtractErrorCodeFromPreflight(t *testing.T) {
	err := errors.New("rpc error: transaction simulation failed: custom program error: 0x1772")
	name, ok := ExtractErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, "InsufficientFunds", name)

	_, ok = ExtractErrorCode(errors.New("connection refused"))
	assert.False(t, ok)

	_, ok = ExtractErrorCode(nil)
	assert.False(t, ok)
}
