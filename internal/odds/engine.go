// Package odds converts stakes and pool sizes into payout multipliers and
// the integer encoding the remote betting program consumes.
package odds

import (
	"math"

	"github.com/cimai/fightbet/internal/domain"
)

// Default engine parameters. The base multiplier matches the remote
// program's configured default; bounds keep quotes inside the product's
// displayable range.
const (
	DefaultBase      = 2.0
	DefaultMinOdds   = 1.1
	DefaultMaxOdds   = 2.0
	DefaultHouseEdge = 0.025
)

// Config carries the tunable parameters of an Engine. Zero values fall back
// to the defaults above.
type Config struct {
	Base      float64
	MinOdds   float64
	MaxOdds   float64
	HouseEdge float64
}

// Engine produces odds quotes. It is pure and safe for concurrent use.
type Engine struct {
	base float64
	min  float64
	max  float64
	edge float64
}

// NewEngine builds an Engine from cfg, clamping the base multiplier into
// [MinOdds, MaxOdds] up front.
func NewEngine(cfg Config) *Engine {
	e := &Engine{
		base: cfg.Base,
		min:  cfg.MinOdds,
		max:  cfg.MaxOdds,
		edge: cfg.HouseEdge,
	}
	if e.base == 0 {
		e.base = DefaultBase
	}
	if e.min == 0 {
		e.min = DefaultMinOdds
	}
	if e.max == 0 {
		e.max = DefaultMaxOdds
	}
	e.base = e.clamp(e.base)
	return e
}

// Quote turns a stake and pool size into an OddsQuote.
//
// Degenerate inputs (negative or non-finite stake, pool <= 0) return the
// base multiplier unchanged rather than failing: odds must always be
// quotable in the UI even before a pool exists.
func (e *Engine) Quote(stake, poolSize float64) domain.OddsQuote {
	m := e.base
	if isUsable(stake) && isUsable(poolSize) && poolSize > 0 {
		adj := math.Max(1-stake/(poolSize+stake), 0.5)
		m = e.clamp(e.base * adj * (1 - e.edge))
	}
	return domain.OddsQuote{
		DisplayMultiplier: m,
		EncodedProfitBps:  e.Encode(m),
	}
}

// Encode converts a multiplier into the on-chain integer:
// floor((multiplier-1)*100). The multiplier is clamped again here even
// though Quote already clamps; the redundancy is deliberate so Encode stays
// safe for multipliers that did not come from Quote.
func (e *Engine) Encode(multiplier float64) uint64 {
	m := e.clamp(multiplier)
	return uint64(math.Floor((m - 1) * 100))
}

// EncodeForToken encodes a multiplier for a specific wager token. RAPR
// bets carry the program's configured multiplier, applied the same way the
// program applies it: scaled integer math, divided by 100.
func (e *Engine) EncodeForToken(multiplier float64, token domain.TokenType, raprMultiplier uint64) uint64 {
	enc := e.Encode(multiplier)
	if token == domain.TokenRAPR && raprMultiplier > 0 {
		return enc * raprMultiplier / 100
	}
	return enc
}

// Decode inverts Encode up to rounding. Because Encode floors,
// Decode(Encode(m)) <= m always; the round trip is not lossless.
func (e *Engine) Decode(encoded uint64) float64 {
	return 1 + float64(encoded)/100
}

// PotentialPayout returns the profit (not stake plus profit) a winning bet
// of the given stake would earn at the given multiplier, after the house
// edge. Callers wanting total return must add the stake back explicitly.
func (e *Engine) PotentialPayout(stake, multiplier float64) float64 {
	if !isUsable(stake) || multiplier < 1 {
		return 0
	}
	return stake * (multiplier - 1) * (1 - e.edge)
}

// Base returns the configured (already clamped) base multiplier.
func (e *Engine) Base() float64 { return e.base }

func (e *Engine) clamp(m float64) float64 {
	if m < e.min {
		return e.min
	}
	if m > e.max {
		return e.max
	}
	return m
}

func isUsable(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f >= 0
}
