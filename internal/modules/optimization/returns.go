package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/aristath/voltsurf/pkg/formulas"
)

// ReturnsModel is the estimated annualized moment set for a symbol list.
// It is what downstream simulation consumes and what the calculations
// cache stores between runs.
type ReturnsModel struct {
	Symbols     []string    `json:"symbols" msgpack:"symbols"`
	MeanReturns []float64   `json:"mean_returns" msgpack:"mean_returns"`
	Covariance  [][]float64 `json:"covariance" msgpack:"covariance"`
	Rows        int         `json:"rows" msgpack:"rows"`
}

// EstimateModel aligns the daily return series and estimates annualized
// moments. Fewer than MinHistoryRows aligned rows is ErrInsufficientData.
func EstimateModel(symbols []string, returns map[string][]float64, shrinkage bool) (*ReturnsModel, error) {
	aligned, rows, err := alignReturns(symbols, returns)
	if err != nil {
		return nil, err
	}
	if rows < MinHistoryRows {
		return nil, fmt.Errorf("%w: %d aligned rows, need %d", ErrInsufficientData, rows, MinHistoryRows)
	}

	mu, sigma := estimateMoments(aligned, shrinkage)

	n := len(symbols)
	cov := make([][]float64, n)
	for i := 0; i < n; i++ {
		cov[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			cov[i][j] = sigma.At(i, j)
		}
	}

	return &ReturnsModel{
		Symbols:     append([]string(nil), symbols...),
		MeanReturns: mu,
		Covariance:  cov,
		Rows:        rows,
	}, nil
}

// alignReturns trims every symbol's return series to the shortest common
// length, keeping the most recent observations. Returns the row count.
func alignReturns(symbols []string, returns map[string][]float64) ([][]float64, int, error) {
	minLen := -1
	for _, sym := range symbols {
		series, ok := returns[sym]
		if !ok {
			return nil, 0, fmt.Errorf("missing return series for %s", sym)
		}
		if minLen < 0 || len(series) < minLen {
			minLen = len(series)
		}
	}
	if minLen < 0 {
		minLen = 0
	}

	aligned := make([][]float64, len(symbols))
	for i, sym := range symbols {
		series := returns[sym]
		aligned[i] = series[len(series)-minLen:]
	}
	return aligned, minLen, nil
}

// estimateMoments computes annualized expected returns and the annualized
// sample covariance matrix from aligned daily return series. Shrinkage
// pulls the covariance toward a constant correlation target for
// conditioning when row counts are small relative to the symbol count.
func estimateMoments(aligned [][]float64, shrinkage bool) ([]float64, *mat.SymDense) {
	n := len(aligned)

	mu := make([]float64, n)
	for i, series := range aligned {
		mu[i] = formulas.Mean(series) * formulas.TradingDaysPerYear
	}

	sigma := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		sigma.SetSym(i, i, formulas.Variance(aligned[i])*formulas.TradingDaysPerYear)
		for j := i + 1; j < n; j++ {
			sigma.SetSym(i, j, formulas.Covariance(aligned[i], aligned[j])*formulas.TradingDaysPerYear)
		}
	}

	if shrinkage {
		applyShrinkage(sigma)
	}

	return mu, sigma
}

// shrinkageIntensity fixes how far the sample covariance is pulled toward
// the constant correlation target.
const shrinkageIntensity = 0.2

// applyShrinkage blends the sample covariance with a constant correlation
// target in place.
func applyShrinkage(sigma *mat.SymDense) {
	n := sigma.SymmetricDim()
	if n < 2 {
		return
	}

	var avgVar, avgCov float64
	for i := 0; i < n; i++ {
		avgVar += sigma.At(i, i)
		for j := 0; j < n; j++ {
			if i != j {
				avgCov += sigma.At(i, j)
			}
		}
	}
	avgVar /= float64(n)
	avgCov /= float64(n * (n - 1))

	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			target := avgCov
			if i == j {
				target = avgVar
			}
			blended := (1-shrinkageIntensity)*sigma.At(i, j) + shrinkageIntensity*target
			sigma.SetSym(i, j, blended)
		}
	}
}
