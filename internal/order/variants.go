package order

import (
	"fmt"

	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// NewMarketOrder builds a Market order — no price, no trigger.
func NewMarketOrder(coid model.ClientOrderId, iid model.InstrumentId, side model.Side, qty model.Quantity, tif TimeInForce, tsInit int64) (*Order, error) {
	return NewOrder(coid, iid, side, OrderTypeMarket, qty, tif, 0, tsInit)
}

// NewLimitOrder builds a Limit order at price.
func NewLimitOrder(coid model.ClientOrderId, iid model.InstrumentId, side model.Side, qty model.Quantity, price model.Price, tif TimeInForce, expireTime, tsInit int64) (*Order, error) {
	o, err := NewOrder(coid, iid, side, OrderTypeLimit, qty, tif, expireTime, tsInit)
	if err != nil {
		return nil, err
	}
	o.Price = price
	return o, nil
}

// NewStopLimitOrder builds a StopLimit order: triggers at triggerPrice, then
// rests as a limit at price.
func NewStopLimitOrder(coid model.ClientOrderId, iid model.InstrumentId, side model.Side, qty model.Quantity, triggerPrice, price model.Price, tif TimeInForce, expireTime, tsInit int64) (*Order, error) {
	o, err := NewOrder(coid, iid, side, OrderTypeStopLimit, qty, tif, expireTime, tsInit)
	if err != nil {
		return nil, err
	}
	o.TriggerPrice = triggerPrice
	o.Price = price
	return o, nil
}

// TrailingStopParams bundles the fields specific to TrailingStopMarket/Limit.
type TrailingStopParams struct {
	TriggerType        TriggerType
	TrailingOffsetType TrailingOffsetType
	TrailingOffset     float64
	LimitOffset        *float64 // set only for TrailingStopLimit
	InitialTrigger     model.Price
	InitialPrice       model.Price // zero value for TrailingStopMarket
}

// NewTrailingStopOrder builds a TrailingStopMarket (limitOffset/InitialPrice
// unused) or TrailingStopLimit (both set) order, validating the trailing
// offset type is one of the three supported kinds (spec §4.N).
func NewTrailingStopOrder(coid model.ClientOrderId, iid model.InstrumentId, side model.Side, qty model.Quantity, params TrailingStopParams, tif TimeInForce, expireTime, tsInit int64, isLimit bool) (*Order, error) {
	otype := OrderTypeTrailingStopMarket
	if isLimit {
		otype = OrderTypeTrailingStopLimit
	}
	switch params.TrailingOffsetType {
	case TrailingOffsetPrice, TrailingOffsetBasisPoints, TrailingOffsetTicks:
	default:
		return nil, fmt.Errorf("order: invalid trailing_offset_type %d", params.TrailingOffsetType)
	}

	o, err := NewOrder(coid, iid, side, otype, qty, tif, expireTime, tsInit)
	if err != nil {
		return nil, err
	}
	o.TriggerType = params.TriggerType
	o.TrailingOffsetType = params.TrailingOffsetType
	o.TrailingOffset = params.TrailingOffset
	o.LimitOffset = params.LimitOffset
	o.TriggerPrice = params.InitialTrigger
	if isLimit {
		o.Price = params.InitialPrice
	}
	return o, nil
}
