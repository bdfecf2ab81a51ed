package portfolio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzer_CalculateStatistics(t *testing.T) {
	a := New()
	a.Register(WinRate{})
	a.Register(ProfitFactor{})

	closed := []ClosedPosition{
		{TsClosed: 1, RealizedPnL: 10, RealizedReturn: 0.1},
		{TsClosed: 2, RealizedPnL: -5, RealizedReturn: -0.05},
		{TsClosed: 3, RealizedPnL: 20, RealizedReturn: 0.2},
	}

	snap := a.CalculateStatistics(1000, 1025, 0, nil, closed)

	assert.InDelta(t, 25.0, snap.TotalPnL, 1e-9)
	assert.InDelta(t, 2.5, snap.PercentPnL, 1e-9)
	assert.InDelta(t, 2.0/3.0, snap.Statistics["Win Rate"], 1e-9)
	assert.InDelta(t, 30.0/5.0, snap.Statistics["Profit Factor"], 1e-9)
}

func TestAnalyzer_ZeroStartingBalanceYieldsZeroPercent(t *testing.T) {
	a := New()
	snap := a.CalculateStatistics(0, 100, 0, nil, nil)
	assert.Equal(t, 0.0, snap.PercentPnL)
}
