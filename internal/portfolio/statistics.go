package portfolio

import (
	"math"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
)

// WinRate is the fraction of ingested realized PnLs that are positive.
type WinRate struct{}

func (WinRate) Name() string { return "Win Rate" }

func (WinRate) Compute(pnls, _ []float64, _ []*cache.Position) float64 {
	if len(pnls) == 0 {
		return 0
	}
	wins := 0
	for _, p := range pnls {
		if p > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(pnls))
}

// ProfitFactor is gross profit divided by gross loss across ingested PnLs.
type ProfitFactor struct{}

func (ProfitFactor) Name() string { return "Profit Factor" }

func (ProfitFactor) Compute(pnls, _ []float64, _ []*cache.Position) float64 {
	var grossProfit, grossLoss float64
	for _, p := range pnls {
		if p > 0 {
			grossProfit += p
		} else {
			grossLoss += -p
		}
	}
	if grossLoss == 0 {
		return 0
	}
	return grossProfit / grossLoss
}

// ExpectancyPerTrade is the mean realized PnL across ingested trades.
type ExpectancyPerTrade struct{}

func (ExpectancyPerTrade) Name() string { return "Expectancy" }

func (ExpectancyPerTrade) Compute(pnls, _ []float64, _ []*cache.Position) float64 {
	if len(pnls) == 0 {
		return 0
	}
	var sum float64
	for _, p := range pnls {
		sum += p
	}
	return sum / float64(len(pnls))
}

// ReturnsVolatility is the population standard deviation of ingested returns.
type ReturnsVolatility struct{}

func (ReturnsVolatility) Name() string { return "Returns Volatility" }

func (ReturnsVolatility) Compute(_, returns []float64, _ []*cache.Position) float64 {
	n := len(returns)
	if n == 0 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(n)

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(n)
	return math.Sqrt(variance)
}

// OpenPositionCount counts currently open positions, ignoring realized figures.
type OpenPositionCount struct{}

func (OpenPositionCount) Name() string { return "Open Positions" }

func (OpenPositionCount) Compute(_, _ []float64, positions []*cache.Position) float64 {
	return float64(len(positions))
}
