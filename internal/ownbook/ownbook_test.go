package ownbook

import (
	"testing"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnBook_AddUpdateDelete(t *testing.T) {
	iid := model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}
	b := New(iid)

	o1 := OwnBookOrder{
		ClientOrderId: "O-1", Side: model.SideBuy,
		Price: model.NewPrice(100, 2), Size: model.NewQuantity(1, 4),
		OrderType: order.OrderTypeLimit, Status: order.StatusAccepted, TsInit: 1,
	}
	require.NoError(t, b.Add(o1))

	p, ok := b.Get("O-1")
	require.True(t, ok)
	assert.Equal(t, "100.00", p.String())

	err := b.Add(o1)
	assert.Error(t, err, "re-adding a tracked ClientOrderId must fail")

	require.NoError(t, b.Update("O-1", model.NewPrice(101, 2), model.NewQuantity(2, 4), model.SideBuy, 5))
	p, ok = b.Get("O-1")
	require.True(t, ok)
	assert.Equal(t, "101.00", p.String())

	orders := b.Orders(model.SideBuy)
	require.Len(t, orders, 1)
	assert.Equal(t, "2.0000", orders[0].Size.String())

	require.NoError(t, b.Delete("O-1", model.SideBuy))
	_, ok = b.Get("O-1")
	assert.False(t, ok)
}

func TestOwnBook_LadderOrdering(t *testing.T) {
	iid := model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}
	b := New(iid)

	require.NoError(t, b.Add(OwnBookOrder{ClientOrderId: "O-1", Side: model.SideBuy, Price: model.NewPrice(99, 2), Size: model.NewQuantity(1, 4), TsInit: 1}))
	require.NoError(t, b.Add(OwnBookOrder{ClientOrderId: "O-2", Side: model.SideBuy, Price: model.NewPrice(100, 2), Size: model.NewQuantity(1, 4), TsInit: 2}))

	orders := b.Orders(model.SideBuy)
	require.Len(t, orders, 2)
	assert.Equal(t, model.ClientOrderId("O-2"), orders[0].ClientOrderId, "bids must be descending by price")
	assert.Equal(t, model.ClientOrderId("O-1"), orders[1].ClientOrderId)
}
