package options

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrice_KnownValues(t *testing.T) {
	// Standard textbook case: S=100, K=100, T=1y, r=5%, sigma=20%
	call := Price(Call, 100, 100, 1.0, 0.05, 0.20)
	put := Price(Put, 100, 100, 1.0, 0.05, 0.20)

	assert.InDelta(t, 10.4506, call, 0.001)
	assert.InDelta(t, 5.5735, put, 0.001)
}

func TestPrice_PutCallParity(t *testing.T) {
	spot, strike, years, rate, sigma := 105.0, 95.0, 0.5, 0.03, 0.35

	call := Price(Call, spot, strike, years, rate, sigma)
	put := Price(Put, spot, strike, years, rate, sigma)

	// C - P = S - K*exp(-rT)
	parity := spot - strike*math.Exp(-rate*years)
	assert.InDelta(t, parity, call-put, 1e-9)
}

func TestPrice_ExpiredIsIntrinsic(t *testing.T) {
	assert.InDelta(t, 10.0, Price(Call, 110, 100, 0, 0.05, 0.20), 1e-12)
	assert.InDelta(t, 0.0, Price(Call, 90, 100, 0, 0.05, 0.20), 1e-12)
	assert.InDelta(t, 10.0, Price(Put, 90, 100, 0, 0.05, 0.20), 1e-12)
}

func TestComputeGreeks(t *testing.T) {
	g := ComputeGreeks(Call, 100, 100, 1.0, 0.05, 0.20)

	// ATM call delta sits a bit above 0.5 with positive rates
	assert.Greater(t, g.Delta, 0.5)
	assert.Less(t, g.Delta, 0.7)
	assert.Positive(t, g.Gamma)
	assert.Positive(t, g.Vega)
	assert.Negative(t, g.Theta)

	p := ComputeGreeks(Put, 100, 100, 1.0, 0.05, 0.20)
	assert.Negative(t, p.Delta)

	// Gamma and vega are identical across rights
	assert.InDelta(t, g.Gamma, p.Gamma, 1e-12)
	assert.InDelta(t, g.Vega, p.Vega, 1e-12)
}

func TestImpliedVolatility_RoundTrip(t *testing.T) {
	cases := []struct {
		typ    Type
		spot   float64
		strike float64
		years  float64
		sigma  float64
	}{
		{Call, 100, 100, 1.0, 0.20},
		{Call, 100, 120, 0.5, 0.45},
		{Put, 100, 90, 0.25, 0.30},
		{Put, 50, 55, 2.0, 0.60},
	}

	for _, tc := range cases {
		price := Price(tc.typ, tc.spot, tc.strike, tc.years, 0.05, tc.sigma)
		iv, err := ImpliedVolatility(tc.typ, price, tc.spot, tc.strike, tc.years, 0.05)
		require.NoError(t, err)
		assert.InDelta(t, tc.sigma, iv, 1e-3)
	}
}

func TestImpliedVolatility_Unpriceable(t *testing.T) {
	_, err := ImpliedVolatility(Call, 0, 100, 100, 1.0, 0.05)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoConvergence)

	_, err = ImpliedVolatility(Call, 5.0, 100, 100, 0, 0.05)
	assert.ErrorIs(t, err, ErrNoConvergence)
}

func TestImpliedVolatility_OutsideBracket(t *testing.T) {
	// A price above the sigma=3.0 upper bound cannot be inverted
	tooHigh := Price(Call, 100, 100, 1.0, 0.05, VolUpperBound) * 1.5
	_, err := ImpliedVolatility(Call, tooHigh, 100, 100, 1.0, 0.05)
	assert.ErrorIs(t, err, ErrNoConvergence)

	// A price below the sigma=0.01 lower bound cannot be inverted either
	tooLow := Price(Call, 100, 130, 0.1, 0.05, VolLowerBound) * 0.5
	if tooLow > 0 {
		_, err = ImpliedVolatility(Call, tooLow, 100, 130, 0.1, 0.05)
		assert.ErrorIs(t, err, ErrNoConvergence)
	}
}
