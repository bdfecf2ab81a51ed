package dataengine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/dataclient"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/msgbus"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

type fakeAdapter struct {
	id          model.ClientId
	subscribedDeltas []model.InstrumentId
}

func (f *fakeAdapter) ClientId() model.ClientId                 { return f.id }
func (f *fakeAdapter) Start(ctx context.Context) error          { return nil }
func (f *fakeAdapter) Stop() error                              { return nil }
func (f *fakeAdapter) Reset()                                   {}
func (f *fakeAdapter) Dispose()                                 {}
func (f *fakeAdapter) Connect(ctx context.Context) error        { return nil }
func (f *fakeAdapter) Disconnect() error                        { return nil }
func (f *fakeAdapter) IsConnected() bool                        { return true }

func (f *fakeAdapter) SubscribeOrderBookDeltas(ctx context.Context, iid model.InstrumentId) error {
	f.subscribedDeltas = append(f.subscribedDeltas, iid)
	return nil
}
func (f *fakeAdapter) SubscribeOrderBookSnapshots(ctx context.Context, iid model.InstrumentId, intervalMs int64) error {
	return nil
}
func (f *fakeAdapter) SubscribeQuoteTicks(ctx context.Context, iid model.InstrumentId) error { return nil }
func (f *fakeAdapter) SubscribeTradeTicks(ctx context.Context, iid model.InstrumentId) error { return nil }
func (f *fakeAdapter) SubscribeBars(ctx context.Context, bt model.BarType) error             { return nil }
func (f *fakeAdapter) Unsubscribe(ctx context.Context, iid model.InstrumentId, dt string) error { return nil }

func (f *fakeAdapter) GetRangeQuotes(ctx context.Context, p dataclient.RangeParams) ([]model.QuoteTick, error) {
	return nil, nil
}
func (f *fakeAdapter) GetRangeTrades(ctx context.Context, p dataclient.RangeParams) ([]model.TradeTick, error) {
	return nil, nil
}
func (f *fakeAdapter) GetRangeBars(ctx context.Context, p dataclient.RangeParams) ([]model.Bar, error) {
	return nil, nil
}
func (f *fakeAdapter) GetRangeInstruments(ctx context.Context, p dataclient.RangeParams) ([]model.Instrument, error) {
	return nil, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEngine_ExecuteOrderBookDeltaIsIdempotent(t *testing.T) {
	bus := msgbus.New()
	c := cache.New(nil)
	clk := clock.NewTestClock(0)
	e := New(bus, c, clk, testLogger())

	adapter := &fakeAdapter{id: "SIM"}
	iid := model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}
	e.RegisterClient(iid.Venue, adapter, true)

	err := e.Execute(context.Background(), SubscriptionCommand{DataType: DataTypeOrderBookDelta, InstrumentId: iid})
	require.NoError(t, err)
	err = e.Execute(context.Background(), SubscriptionCommand{DataType: DataTypeOrderBookDelta, InstrumentId: iid})
	require.NoError(t, err)

	assert.Len(t, adapter.subscribedDeltas, 1)
}

func TestEngine_BufferDeltaPublishesOnlyOnFLast(t *testing.T) {
	bus := msgbus.New()
	c := cache.New(nil)
	clk := clock.NewTestClock(0)
	e := New(bus, c, clk, testLogger())

	iid := model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}

	var received []model.OrderBookDeltas
	bus.Subscribe("data.deltas."+iid.String(), "test", 0, func(payload any) {
		received = append(received, payload.(model.OrderBookDeltas))
	})

	e.ProcessData(dataclient.Data{Delta: &model.OrderBookDelta{InstrumentId: iid, Sequence: 1}})
	assert.Empty(t, received, "no publish until F_LAST")

	e.ProcessData(dataclient.Data{Delta: &model.OrderBookDelta{InstrumentId: iid, Sequence: 2, Flags: model.FlagLast}})
	require.Len(t, received, 1)
	assert.Len(t, received[0].Deltas, 2)

	// buffer reset after flush
	e.ProcessData(dataclient.Data{Delta: &model.OrderBookDelta{InstrumentId: iid, Sequence: 3, Flags: model.FlagLast}})
	require.Len(t, received, 2)
	assert.Len(t, received[1].Deltas, 1)
}

func TestEngine_ProcessDataDropsRegressedBar(t *testing.T) {
	bus := msgbus.New()
	c := cache.New(nil)
	clk := clock.NewTestClock(0)
	e := New(bus, c, clk, testLogger())

	bt := model.BarType{InstrumentId: model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}, Aggregation: model.AggregationMinute, Step: 1}

	var published []model.Bar
	bus.Subscribe("data.bars."+bt.String(), "test", 0, func(payload any) {
		published = append(published, payload.(model.Bar))
	})

	e.ProcessData(dataclient.Data{Bar: &model.Bar{BarType: bt, TsEvent: 1000}})
	e.ProcessData(dataclient.Data{Bar: &model.Bar{BarType: bt, TsEvent: 500}}) // regressed, dropped

	require.Len(t, published, 1)
	assert.Equal(t, int64(1000), published[0].TsEvent)
}

func TestEngine_FanOutSyntheticOnTrade(t *testing.T) {
	bus := msgbus.New()
	c := cache.New(nil)
	clk := clock.NewTestClock(0)
	e := New(bus, c, clk, testLogger())

	src := model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}
	syn := model.InstrumentId{Symbol: "BTC-INDEX", Venue: "SYNTH"}
	e.RegisterSynthetic(src, syn)

	var synthPublished []model.TradeTick
	bus.Subscribe("data.trades."+syn.String(), "test", 0, func(payload any) {
		synthPublished = append(synthPublished, payload.(model.TradeTick))
	})

	e.ProcessData(dataclient.Data{Trade: &model.TradeTick{InstrumentId: src, TsEvent: 1}})

	require.Len(t, synthPublished, 1)
	assert.Equal(t, syn, synthPublished[0].InstrumentId)
}
