// Package domain defines the core types shared by the betting client: fight
// sessions, bets, balances, odds quotes, and the operation error taxonomy.
package domain

import "time"

// Side identifies one of the two fighters a bet can back.
type Side string

const (
	SidePlayer1 Side = "player1"
	SidePlayer2 Side = "player2"
)

// Valid reports whether s is one of the two known sides.
func (s Side) Valid() bool {
	return s == SidePlayer1 || s == SidePlayer2
}

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SidePlayer1 {
		return SidePlayer2
	}
	return SidePlayer1
}

// FightStatus is the closed set of local fight lifecycle states.
type FightStatus int

const (
	StatusNoFight FightStatus = iota
	StatusBettingOpen
	StatusInProgress
	StatusCompleted
	StatusFailed
)

// String returns the wire/log spelling of the status.
func (s FightStatus) String() string {
	switch s {
	case StatusNoFight:
		return "no_fight"
	case StatusBettingOpen:
		return "betting_open"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RoundState carries advisory round data from the fight service. It is UI
// data, never used to gate operations.
type RoundState struct {
	Round     int
	P1Health  int
	P2Health  int
	Timestamp time.Time
}

// BetTotals aggregates stake per side plus the display bounds for the
// session. The authoritative bounds live in the remote ledger's state
// account; these only gate local validation.
type BetTotals struct {
	Player1 uint64
	Player2 uint64
	MinBet  uint64
	MaxBet  uint64
}

// Pool returns the combined stake across both sides.
func (b BetTotals) Pool() uint64 {
	return b.Player1 + b.Player2
}

// FightSession is the local projection of one contest. It is created by
// fight initialization and fully replaced by the next session; no history is
// kept locally.
type FightSession struct {
	Status FightStatus

	// PublicID is the opaque identifier used by the off-chain fight service
	// and in stream URLs.
	PublicID string

	// SecureID is the numeric identifier used to derive the on-chain bet
	// account. Distinct from PublicID so bet addresses cannot be guessed
	// from UI-visible identifiers.
	SecureID uint64

	Bets      BetTotals
	Round     RoundState
	StreamURL string

	// Winner is set only when Status is StatusCompleted.
	Winner Side
}
