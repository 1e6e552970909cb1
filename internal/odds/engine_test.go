package odds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cimai/fightbet/internal/domain"
)

func TestQuoteEmptyPoolReturnsBase(t *testing.T) {
	e := NewEngine(Config{})
	q := e.Quote(1000, 0)
	assert.Equal(t, DefaultBase, q.DisplayMultiplier)
	assert.Equal(t, uint64(100), q.EncodedProfitBps)
}

func TestQuoteDegenerateInputs(t *testing.T) {
	e := NewEngine(Config{})
	for _, tc := range []struct {
		name  string
		stake float64
		pool  float64
	}{
		{"negative stake", -5, 1000},
		{"negative pool", 100, -1},
		{"nan stake", math.NaN(), 1000},
		{"inf pool", 100, math.Inf(1)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			q := e.Quote(tc.stake, tc.pool)
			assert.Equal(t, e.Base(), q.DisplayMultiplier)
		})
	}
}

func TestQuoteWithinBounds(t *testing.T) {
	e := NewEngine(Config{Base: 2.0, MinOdds: 1.1, MaxOdds: 2.0, HouseEdge: 0.025})
	stakes := []float64{0, 1, 50, 1000, 1e6, 1e9}
	pools := []float64{1, 100, 5000, 1e7}
	for _, s := range stakes {
		for _, p := range pools {
			q := e.Quote(s, p)
			assert.GreaterOrEqual(t, q.DisplayMultiplier, 1.1)
			assert.LessOrEqual(t, q.DisplayMultiplier, 2.0)
		}
	}
}

func TestQuoteLargeStakeShrinksOdds(t *testing.T) {
	e := NewEngine(Config{})
	small := e.Quote(10, 10000)
	large := e.Quote(9000, 10000)
	assert.Greater(t, small.DisplayMultiplier, large.DisplayMultiplier)
}

func TestQuoteAdjustmentFloor(t *testing.T) {
	// A stake dwarfing the pool bottoms out at the 0.5 adjustment floor,
	// then the min-odds clamp applies.
	e := NewEngine(Config{Base: 2.0, MinOdds: 1.1, MaxOdds: 2.0, HouseEdge: 0.025})
	q := e.Quote(1e9, 1)
	want := 2.0 * 0.5 * (1 - 0.025)
	if want < 1.1 {
		want = 1.1
	}
	assert.InDelta(t, want, q.DisplayMultiplier, 1e-9)
}

func TestBaseClampedAtConstruction(t *testing.T) {
	e := NewEngine(Config{Base: 5.0, MinOdds: 1.1, MaxOdds: 2.0})
	assert.Equal(t, 2.0, e.Base())

	e = NewEngine(Config{Base: 1.0, MinOdds: 1.1, MaxOdds: 2.0})
	assert.Equal(t, 1.1, e.Base())
}

func TestEncodeMonotone(t *testing.T) {
	e := NewEngine(Config{})
	prev := uint64(0)
	for m := 1.0; m <= 2.5; m += 0.01 {
		enc := e.Encode(m)
		require.GreaterOrEqual(t, enc, prev, "encode not monotone at m=%f", m)
		prev = enc
	}
}

func TestEncodeDecodeRoundTripLossy(t *testing.T) {
	e := NewEngine(Config{})
	for _, m := range []float64{1.1, 1.234, 1.5, 1.789, 1.999, 2.0} {
		enc := e.Encode(m)
		dec := e.Decode(enc)
		assert.LessOrEqual(t, dec, m, "decode(encode(%f)) must not exceed input", m)
		assert.InDelta(t, m, dec, 0.01+1e-9)
	}
}

func TestEncodeClampsOutOfRange(t *testing.T) {
	e := NewEngine(Config{Base: 2.0, MinOdds: 1.1, MaxOdds: 2.0})
	assert.Equal(t, e.Encode(2.0), e.Encode(7.5))
	assert.Equal(t, e.Encode(1.1), e.Encode(0.3))
}

func TestEncodeForToken(t *testing.T) {
	e := NewEngine(Config{})

	assert.Equal(t, e.Encode(1.5), e.EncodeForToken(1.5, domain.TokenDUMBS, 1000))
	// RAPR scales by multiplier/100.
	assert.Equal(t, e.Encode(1.5)*10, e.EncodeForToken(1.5, domain.TokenRAPR, 1000))
	// Zero multiplier leaves the encoding untouched.
	assert.Equal(t, e.Encode(1.5), e.EncodeForToken(1.5, domain.TokenRAPR, 0))
}

func TestPotentialPayout(t *testing.T) {
	e := NewEngine(Config{HouseEdge: 0.025})

	// Profit only, not stake plus profit.
	got := e.PotentialPayout(1000, 2.0)
	assert.InDelta(t, 1000*1.0*0.975, got, 1e-9)

	assert.Zero(t, e.PotentialPayout(-100, 2.0))
	assert.Zero(t, e.PotentialPayout(1000, 0.9))
	assert.Zero(t, e.PotentialPayout(math.NaN(), 2.0))
}
