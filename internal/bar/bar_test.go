package bar

import (
	"testing"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_TickBarsClosePerStep(t *testing.T) {
	clk := clock.NewTestClock(0)
	bt := model.BarType{InstrumentId: model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}, Aggregation: model.AggregationTick, Step: 3}

	var closed []model.Bar
	a := New(bt, clk, false, func(b model.Bar) { closed = append(closed, b) })

	a.OnTrade(model.NewPrice(100, 2), model.NewQuantity(1, 4), 1)
	a.OnTrade(model.NewPrice(101, 2), model.NewQuantity(1, 4), 2)
	assert.Empty(t, closed)
	a.OnTrade(model.NewPrice(99, 2), model.NewQuantity(1, 4), 3)

	require.Len(t, closed, 1)
	assert.Equal(t, "101.00", closed[0].High.String())
	assert.Equal(t, "99.00", closed[0].Low.String())
	assert.Equal(t, "99.00", closed[0].Close.String())
	assert.Equal(t, "3.0000", closed[0].Volume.String())
}

func TestAggregator_TimeBarClosesOnWallClockBoundary(t *testing.T) {
	clk := clock.NewTestClock(0)
	bt := model.BarType{InstrumentId: model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}, Aggregation: model.AggregationSecond, Step: 1}

	var closed []model.Bar
	_ = New(bt, clk, false, func(b model.Bar) { closed = append(closed, b) })

	clk.AdvanceTime(500_000_000) // 0.5s: before the first boundary
	assert.Empty(t, closed)

	clk.AdvanceTime(1_000_000_000) // 1s boundary
	assert.Empty(t, closed, "no bar without trades")
}

func TestAggregator_VolumeThreshold(t *testing.T) {
	clk := clock.NewTestClock(0)
	bt := model.BarType{InstrumentId: model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}, Aggregation: model.AggregationVolume, Step: 5}

	var closed []model.Bar
	a := New(bt, clk, false, func(b model.Bar) { closed = append(closed, b) })

	a.OnTrade(model.NewPrice(100, 2), model.NewQuantity(3, 4), 1)
	assert.Empty(t, closed)
	a.OnTrade(model.NewPrice(100, 2), model.NewQuantity(2, 4), 2)

	require.Len(t, closed, 1)
	assert.Equal(t, "5.0000", closed[0].Volume.String())
}
