package trailing

import (
	"testing"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrailingSell(t *testing.T, initialTrigger float64, offset float64) *order.Order {
	t.Helper()
	trig := model.NewPrice(initialTrigger, 1)
	o, err := order.NewTrailingStopOrder(
		"O-1", model.InstrumentId{Symbol: "BTC-USD", Venue: "BINANCE"}, model.SideSell,
		model.NewQuantity(1, 4),
		order.TrailingStopParams{
			TriggerType:        order.TriggerLastPrice,
			TrailingOffsetType: order.TrailingOffsetPrice,
			TrailingOffset:     offset,
			InitialTrigger:     trig,
		},
		order.TIFGTC, 0, 1, false,
	)
	require.NoError(t, err)
	return o
}

func TestCalculate_SellRatchetsOnTighterLast(t *testing.T) {
	o := newTrailingSell(t, 100.0, 1.0)
	priceIncrement := model.NewPrice(0.1, 1)
	last := model.NewPrice(102.0, 1)

	res, err := Calculate(o, priceIncrement, ReferencePrices{Last: &last})
	require.NoError(t, err)
	require.NotNil(t, res.NewTriggerPrice)
	assert.Equal(t, "101.0", res.NewTriggerPrice.String())
}

func TestCalculate_SellDoesNotLoosen(t *testing.T) {
	o := newTrailingSell(t, 100.0, 1.0)
	priceIncrement := model.NewPrice(0.1, 1)

	// First ratchet to 101.0, as above.
	last1 := model.NewPrice(102.0, 1)
	res1, err := Calculate(o, priceIncrement, ReferencePrices{Last: &last1})
	require.NoError(t, err)
	require.NotNil(t, res1.NewTriggerPrice)
	o.TriggerPrice = *res1.NewTriggerPrice

	// Last retreats to 101.0 — new trigger would be 100.0, which loosens a
	// sell stop (lower trigger is looser), so no update.
	last2 := model.NewPrice(101.0, 1)
	res2, err := Calculate(o, priceIncrement, ReferencePrices{Last: &last2})
	require.NoError(t, err)
	assert.Nil(t, res2.NewTriggerPrice, "loosening move must not be applied")
}

func TestCalculate_MissingReferencePriceErrors(t *testing.T) {
	o := newTrailingSell(t, 100.0, 1.0)
	_, err := Calculate(o, model.NewPrice(0.1, 1), ReferencePrices{})
	assert.Error(t, err)
}
