package domain

import "fmt"

// TokenType is the closed set of stakeable tokens. The numeric values match
// the remote program's enum discriminants.
type TokenType uint8

const (
	TokenDUMBS TokenType = 0
	TokenRAPR  TokenType = 1
)

// String returns the token's display symbol.
func (t TokenType) String() string {
	switch t {
	case TokenDUMBS:
		return "DUMBS"
	case TokenRAPR:
		return "RAPR"
	default:
		return fmt.Sprintf("TokenType(%d)", uint8(t))
	}
}

// Valid reports whether t is a known token type.
func (t TokenType) Valid() bool {
	return t == TokenDUMBS || t == TokenRAPR
}

// ParseTokenType converts a symbol into a TokenType.
func ParseTokenType(s string) (TokenType, error) {
	switch s {
	case "DUMBS", "dumbs":
		return TokenDUMBS, nil
	case "RAPR", "rapr":
		return TokenRAPR, nil
	default:
		return 0, fmt.Errorf("unknown token type %q", s)
	}
}

// Bet is the local read-only mirror of a remote bet account. The remote
// program owns it; the client never mutates this view directly. At most one
// unsettled bet exists per (bettor, fight), enforced remotely and assumed
// here.
type Bet struct {
	Bettor          string // base58 bettor key
	Token           TokenType
	Amount          uint64 // stake after fees, base units
	FightID         uint64 // secure fight id the bet account was derived from
	Odds            uint16 // encoded profit basis points
	PotentialPayout uint64
	FeeAmount       uint64
	Settled         bool
	Won             bool
	ActualPayout    uint64
}
