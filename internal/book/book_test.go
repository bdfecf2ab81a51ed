package book

import (
	"testing"

	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iid(t *testing.T) model.InstrumentId {
	t.Helper()
	return model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}
}

func px(v float64) model.Price { return model.NewPrice(v, 2) }
func qty(v float64) model.Quantity { return model.NewQuantity(v, 4) }

func TestBook_SnapshotThenDelta(t *testing.T) {
	b := New(iid(t))

	err := b.ApplySnapshot(1, []BookOrder{
		{Side: model.SideBuy, Price: px(100), Size: qty(1), OrderId: "b1"},
	}, []BookOrder{
		{Side: model.SideSell, Price: px(101), Size: qty(2), OrderId: "a1"},
	}, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, b.Seq())

	bestBid, ok := b.BestBid()
	require.True(t, ok)
	assert.Equal(t, "100.00", bestBid.String())

	err = b.ApplyDelta(2,
		[]BookOrder{{Side: model.SideBuy, Price: px(100.5), Size: qty(0.5), OrderId: "b2"}},
		nil, nil, nil, nil,
	)
	require.NoError(t, err)

	bestBid, ok = b.BestBid()
	require.True(t, ok)
	assert.Equal(t, "100.50", bestBid.String())
}

func TestBook_GapDetection(t *testing.T) {
	b := New(iid(t))
	require.NoError(t, b.ApplySnapshot(5, nil, nil, nil))

	err := b.ApplyDelta(7, nil, nil, nil, nil, nil)
	require.Error(t, err)
	var gap *Gap
	require.ErrorAs(t, err, &gap)
	assert.EqualValues(t, 6, gap.Expected)
	assert.EqualValues(t, 7, gap.Received)

	// Book state must be untouched by a rejected delta.
	assert.EqualValues(t, 5, b.Seq())
}

func TestBook_ZeroSizeUpsertIsRemoval(t *testing.T) {
	b := New(iid(t))
	require.NoError(t, b.ApplySnapshot(1, []BookOrder{
		{Side: model.SideBuy, Price: px(100), Size: qty(1), OrderId: "b1"},
	}, nil, nil))

	require.NoError(t, b.ApplyDelta(2,
		[]BookOrder{{Side: model.SideBuy, Price: px(100), Size: qty(0), OrderId: "b1"}},
		nil, nil, nil, nil,
	))

	_, ok := b.BestBid()
	assert.False(t, ok, "zero-size upsert must delete the resting order")
}

func TestBook_DigestDeterministic(t *testing.T) {
	b1 := New(iid(t))
	b2 := New(iid(t))

	bids := []BookOrder{{Side: model.SideBuy, Price: px(100), Size: qty(1), OrderId: "b1"}}
	asks := []BookOrder{{Side: model.SideSell, Price: px(101), Size: qty(2), OrderId: "a1"}}

	require.NoError(t, b1.ApplySnapshot(1, bids, asks, nil))
	require.NoError(t, b2.ApplySnapshot(1, bids, asks, nil))

	assert.Equal(t, b1.Digest(), b2.Digest(), "identical streams must produce identical digests")
}
