package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.0, Mean([]float64{1, 2, 3}), 1e-12)
}

func TestStdDev(t *testing.T) {
	assert.Equal(t, 0.0, StdDev([]float64{1.0}))

	// Sample std of {2, 4, 4, 4, 5, 5, 7, 9} is sqrt(32/7)
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, math.Sqrt(32.0/7.0), got, 1e-12)
}

func TestAnnualizedVolatility(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedVolatility(nil))

	returns := []float64{0.01, -0.01, 0.01, -0.01}
	expected := StdDev(returns) * math.Sqrt(252)
	assert.InDelta(t, expected, AnnualizedVolatility(returns), 1e-12)
}

func TestSimpleReturns(t *testing.T) {
	assert.Empty(t, SimpleReturns([]float64{100}))

	returns := SimpleReturns([]float64{100, 110, 99})
	assert.Len(t, returns, 2)
	assert.InDelta(t, 0.10, returns[0], 1e-12)
	assert.InDelta(t, -0.10, returns[1], 1e-12)
}

func TestLogReturns(t *testing.T) {
	returns := LogReturns([]float64{100, 110})
	assert.Len(t, returns, 1)
	assert.InDelta(t, math.Log(1.1), returns[0], 1e-12)

	// Non-positive prices do not produce NaN
	returns = LogReturns([]float64{100, 0, 100})
	for _, r := range returns {
		assert.False(t, math.IsNaN(r))
	}
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, Median(nil))
	assert.InDelta(t, 3.0, Median([]float64{5, 1, 3}), 1e-12)

	// Input must survive unmodified
	data := []float64{3, 1, 2}
	Median(data)
	assert.Equal(t, []float64{3, 1, 2}, data)
}

func TestPercentile(t *testing.T) {
	data := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}

	assert.Equal(t, 0.0, Percentile(nil, 50))
	assert.LessOrEqual(t, Percentile(data, 5), Percentile(data, 50))
	assert.LessOrEqual(t, Percentile(data, 50), Percentile(data, 95))
	assert.Equal(t, 1.0, Percentile(data, 0))
	assert.Equal(t, 10.0, Percentile(data, 100))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp(-5, 0, 10))
	assert.Equal(t, 10.0, Clamp(15, 0, 10))
	assert.Equal(t, 7.5, Clamp(7.5, 0, 10))
}

func TestCovariance(t *testing.T) {
	x := []float64{1, 2, 3, 4}
	assert.InDelta(t, Variance(x), Covariance(x, x), 1e-12)
	assert.Equal(t, 0.0, Covariance(x, []float64{1, 2}))
}
