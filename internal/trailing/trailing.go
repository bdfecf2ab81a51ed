// Package trailing implements the pure trailing-stop recompute function: it
// reads the order's current trigger/limit prices and the venue's current
// bid/ask/last, and returns the ratcheted prices to apply, without mutating
// anything itself (spec §4.N). Grounded on original_source's
// crates/execution/src/trailing.rs (trailing_stop_calculate /
// _with_last / _with_bid_ask), re-expressed as a Go function operating on
// this repo's order.Order and model.Price/Quantity types.
package trailing

import (
	"fmt"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// ReferencePrices bundles the optional current bid/ask/last a venue provides;
// a nil field means that price is unavailable this tick.
type ReferencePrices struct {
	Bid  *model.Price
	Ask  *model.Price
	Last *model.Price
}

// Result carries the new trigger/limit prices to apply, each nil if the
// corresponding leg is absent from the order or the ratchet did not tighten.
type Result struct {
	NewTriggerPrice *model.Price
	NewPrice        *model.Price
}

// Calculate recomputes the trailing trigger (and, for TrailingStopLimit, the
// limit) price for o given priceIncrement and the current reference prices.
// It is side-effect free: callers apply the result via order.Apply(Updated).
func Calculate(o *order.Order, priceIncrement model.Price, refs ReferencePrices) (Result, error) {
	if o.OrderType != order.OrderTypeTrailingStopMarket && o.OrderType != order.OrderTypeTrailingStopLimit {
		return Result{}, fmt.Errorf("trailing: order %s is not a trailing-stop order", o.ClientOrderId)
	}

	trigger, err := computeLeg(o.Side, o.TriggerType, o.TrailingOffsetType, o.TrailingOffset, priceIncrement, refs, o.TriggerPrice, false)
	if err != nil {
		return Result{}, err
	}

	res := Result{}
	if trigger != nil {
		res.NewTriggerPrice = trigger
	}

	if o.OrderType == order.OrderTypeTrailingStopLimit && o.LimitOffset != nil {
		limit, err := computeLeg(o.Side, o.TriggerType, o.TrailingOffsetType, *o.LimitOffset, priceIncrement, refs, o.Price, true)
		if err != nil {
			return Result{}, err
		}
		if limit != nil {
			res.NewPrice = limit
		}
	}

	return res, nil
}

// computeLeg computes one leg's (trigger or limit) ratcheted price. isLimit
// only affects which error context is reported; the reference-price and
// offset logic is identical for both legs (spec §4.N: "mirror logic for the
// limit leg using limit_offset").
func computeLeg(side model.Side, triggerType order.TriggerType, offsetType order.TrailingOffsetType, offset float64, priceIncrement model.Price, refs ReferencePrices, current model.Price, isLimit bool) (*model.Price, error) {
	ref, err := referencePrice(side, triggerType, refs)
	if err != nil {
		if isLimit {
			return nil, fmt.Errorf("trailing: limit leg: %w", err)
		}
		return nil, err
	}

	offsetPrice, err := offsetAmount(offsetType, offset, priceIncrement, ref)
	if err != nil {
		return nil, err
	}

	precision := current.Precision()
	if precision == 0 {
		precision = ref.Precision()
	}

	var temp model.Price
	if side == model.SideBuy {
		temp = model.PriceFromDecimal(ref.Decimal().Add(offsetPrice.Decimal()), precision)
	} else {
		temp = model.PriceFromDecimal(ref.Decimal().Sub(offsetPrice.Decimal()), precision)
	}

	if current.IsZero() {
		return &temp, nil
	}

	tightens := (side == model.SideBuy && temp.LessThan(current)) || (side == model.SideSell && temp.GreaterThan(current))
	if !tightens {
		return nil, nil
	}
	return &temp, nil
}

// referencePrice resolves ref per spec §4.N: LastPrice/MarkPrice/Default use
// last; BidAsk uses ask for buy, bid for sell; LastOrBidAsk computes both and
// keeps the stricter (lower for buy, higher for sell).
func referencePrice(side model.Side, triggerType order.TriggerType, refs ReferencePrices) (model.Price, error) {
	switch triggerType {
	case order.TriggerDefault, order.TriggerLastPrice, order.TriggerMarkPrice, order.TriggerIndexPrice:
		if refs.Last == nil {
			return model.Price{}, fmt.Errorf("trailing: last price required but unavailable")
		}
		return *refs.Last, nil

	case order.TriggerBidAsk:
		return bidAskReference(side, refs)

	case order.TriggerLastOrBidAsk:
		last, lastErr := func() (model.Price, error) {
			if refs.Last == nil {
				return model.Price{}, fmt.Errorf("trailing: last price unavailable")
			}
			return *refs.Last, nil
		}()
		bidAsk, baErr := bidAskReference(side, refs)
		switch {
		case lastErr != nil && baErr != nil:
			return model.Price{}, fmt.Errorf("trailing: neither last nor bid/ask available")
		case lastErr != nil:
			return bidAsk, nil
		case baErr != nil:
			return last, nil
		}
		if side == model.SideBuy {
			if last.LessThan(bidAsk) {
				return last, nil
			}
			return bidAsk, nil
		}
		if last.GreaterThan(bidAsk) {
			return last, nil
		}
		return bidAsk, nil

	default:
		return model.Price{}, fmt.Errorf("trailing: unsupported trigger_type %d", triggerType)
	}
}

func bidAskReference(side model.Side, refs ReferencePrices) (model.Price, error) {
	if side == model.SideBuy {
		if refs.Ask == nil {
			return model.Price{}, fmt.Errorf("trailing: ask price required but unavailable")
		}
		return *refs.Ask, nil
	}
	if refs.Bid == nil {
		return model.Price{}, fmt.Errorf("trailing: bid price required but unavailable")
	}
	return *refs.Bid, nil
}

// offsetAmount converts the order's trailing_offset into an absolute price
// delta: Price offsets are used as-is; BasisPoints is last*(bps/100)/100 —
// note this is against ref, which is last for last-based calculations and
// the relevant side's bid/ask for bid-ask based ones; Ticks multiplies by
// price_increment.
func offsetAmount(offsetType order.TrailingOffsetType, offset float64, priceIncrement model.Price, ref model.Price) (model.Price, error) {
	switch offsetType {
	case order.TrailingOffsetPrice:
		return model.NewPrice(offset, ref.Precision()), nil
	case order.TrailingOffsetBasisPoints:
		bps := ref.Float64() * (offset / 100) / 100
		return model.NewPrice(bps, ref.Precision()), nil
	case order.TrailingOffsetTicks:
		ticks := priceIncrement.Float64() * offset
		return model.NewPrice(ticks, priceIncrement.Precision()), nil
	default:
		return model.Price{}, fmt.Errorf("trailing: unsupported trailing_offset_type %d", offsetType)
	}
}
