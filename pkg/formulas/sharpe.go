package formulas

import (
	"math"
)

// CalculateSharpeRatio calculates the annualized Sharpe ratio from periodic
// returns.
//
// Sharpe Ratio Formula:
//
//	Sharpe = (Mean Return - Periodic Risk-free Rate) / Standard Deviation of Returns
//	Annualized: Sharpe × sqrt(periodsPerYear)
//
// Args:
//
//	returns: Array of periodic returns (daily, monthly, etc.)
//	riskFreeRate: Risk-free rate (annual, as decimal, e.g., 0.02 for 2%)
//	periodsPerYear: Number of periods per year (252 for daily, 12 for monthly)
//
// Returns:
//
//	Sharpe ratio or nil if insufficient data
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) *float64 {
	if len(returns) < 2 {
		return nil
	}

	meanReturn := Mean(returns)

	stdDev := StdDev(returns)
	if stdDev == 0 {
		return nil
	}

	periodicRiskFree := riskFreeRate / float64(periodsPerYear)

	sharpe := (meanReturn - periodicRiskFree) / stdDev

	annualizedSharpe := sharpe * math.Sqrt(float64(periodsPerYear))

	return &annualizedSharpe
}

// AnnualizedSharpe calculates the Sharpe ratio from already-annualized return
// and volatility figures. Returns 0 when volatility is zero.
func AnnualizedSharpe(annualReturn, annualVolatility, riskFreeRate float64) float64 {
	if annualVolatility <= 0 {
		return 0
	}
	return (annualReturn - riskFreeRate) / annualVolatility
}
