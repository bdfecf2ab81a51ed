package reconciliation

import (
	"io"
	"log/slog"
	"testing"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCheckInflightOrders_TimesOutAfterMaxRetries(t *testing.T) {
	c := cache.New(nil)
	var queried []model.ClientOrderId
	m := New(Config{ThresholdMs: 100, InflightMaxRetries: 2}, c, func(coid model.ClientOrderId) {
		queried = append(queried, coid)
	}, testLogger())

	m.RegisterInflight("X", 0)

	timedOut := m.CheckInflightOrders(200)
	assert.Empty(t, timedOut, "first retry must not time out")
	require.Len(t, queried, 1)

	timedOut = m.CheckInflightOrders(600)
	require.Len(t, timedOut, 1)
	assert.Equal(t, model.ClientOrderId("X"), timedOut[0])
	require.Len(t, queried, 2)
}

func TestCheckInflightOrders_BacksOffBeforeThreshold(t *testing.T) {
	c := cache.New(nil)
	queries := 0
	m := New(Config{ThresholdMs: 100, InflightMaxRetries: 5}, c, func(model.ClientOrderId) { queries++ }, testLogger())

	m.RegisterInflight("X", 0)
	m.CheckInflightOrders(150)
	assert.Equal(t, 1, queries)

	// Within back-off window of the last query — must not re-query yet.
	m.CheckInflightOrders(180)
	assert.Equal(t, 1, queries)
}

func TestReconcileExecutionMassStatus_FillDedup(t *testing.T) {
	c := cache.New(nil)
	m := New(Config{ThresholdMs: 100, InflightMaxRetries: 2}, c, nil, testLogger())

	iid := model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}
	fills := []FillReport{
		{ClientOrderId: "O-1", InstrumentId: iid, TradeId: "T1"},
		{ClientOrderId: "O-1", InstrumentId: iid, TradeId: "T1"},
		{ClientOrderId: "O-1", InstrumentId: iid, TradeId: "T2"},
	}

	_, emitted, _ := m.ReconcileExecutionMassStatus(nil, fills)
	require.Len(t, emitted, 2)
	assert.Equal(t, model.TradeId("T1"), emitted[0].TradeId)
	assert.Equal(t, model.TradeId("T2"), emitted[1].TradeId)

	_, emitted2, _ := m.ReconcileExecutionMassStatus(nil, fills)
	assert.Empty(t, emitted2, "trade ids already processed must not re-emit")
}
