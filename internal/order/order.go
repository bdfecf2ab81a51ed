package order

import (
	"fmt"

	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// OrderType enumerates the variants built on top of OrderCore.
type OrderType int

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStopMarket
	OrderTypeStopLimit
	OrderTypeTrailingStopMarket
	OrderTypeTrailingStopLimit
)

func (t OrderType) IsStopFamily() bool {
	switch t {
	case OrderTypeStopMarket, OrderTypeStopLimit, OrderTypeTrailingStopMarket, OrderTypeTrailingStopLimit:
		return true
	default:
		return false
	}
}

// TimeInForce enumerates supported TIF values; GTD requires a non-zero expire time.
type TimeInForce int

const (
	TIFGTC TimeInForce = iota
	TIFIOC
	TIFFOK
	TIFGTD
	TIFDay
)

// TriggerType selects which reference price a stop/trailing order watches.
type TriggerType int

const (
	TriggerDefault TriggerType = iota
	TriggerLastPrice
	TriggerMarkPrice
	TriggerBidAsk
	TriggerLastOrBidAsk
	TriggerIndexPrice
)

// TrailingOffsetType selects how TrailingOffset is interpreted.
type TrailingOffsetType int

const (
	TrailingOffsetPrice TrailingOffsetType = iota
	TrailingOffsetBasisPoints
	TrailingOffsetTicks
)

// Event is one entry in an order's append-only event log.
type Event struct {
	Kind      EventKind
	TsEvent   int64
	TsInit    int64
	LastPx    model.Price    // fill price, zero value unless Kind == EventFilled
	LastQty   model.Quantity // fill quantity, zero value unless Kind == EventFilled
	TradeId   model.TradeId
	Reason    string // rejection/cancel reason, e.g. "INFLIGHT_TIMEOUT"
	VenueId   model.VenueOrderId
	NewPrice  *model.Price // for EventUpdated
	NewTrigger *model.Price
	NewQty    *model.Quantity
}

// Order is OrderCore plus the type-specific fields of every variant. Rather
// than a sealed tagged union of distinct Go types (which would force type
// switches through every consumer), the teacher's own-order-book idiom of "one
// struct, variant fields populated per type" is followed, with OrderType
// selecting which fields apply — the same shape spec §9 calls OrderAny.
type Order struct {
	// Identifiers and core invariants (OrderCore, spec §4.K).
	ClientOrderId model.ClientOrderId
	VenueOrderId  model.VenueOrderId
	InstrumentId  model.InstrumentId
	StrategyId    model.StrategyId
	AccountId     model.AccountId
	Side          model.Side
	OrderType     OrderType
	TimeInForce   TimeInForce
	Quantity      model.Quantity
	FilledQty     model.Quantity
	DisplayQty    *model.Quantity
	Status        Status
	ExpireTime    int64 // unix nanos; required non-zero when TimeInForce == TIFGTD

	// Price fields — meaning depends on OrderType.
	Price        model.Price // limit price (Limit, StopLimit, TrailingStopLimit)
	TriggerPrice model.Price // stop trigger (StopMarket/StopLimit/TrailingStop*)
	IsTriggered  bool
	TsTriggered  int64

	// TrailingStop* fields (spec §4.K/§4.N).
	TriggerType        TriggerType
	TrailingOffsetType TrailingOffsetType
	TrailingOffset     float64
	LimitOffset        *float64

	AvgPx         model.Price
	LastTradeId   model.TradeId
	Commissions   map[string]float64 // currency code -> amount
	Slippage      float64

	ContingencyType string // OCO/OTO metadata, opaque to the core
	ParentOrderId   model.ClientOrderId
	LinkedOrderIds  []model.ClientOrderId
	ExecAlgorithm   string
	Tags            []string

	Events []Event
}

// NewOrder validates construction invariants (spec §4.K) and returns an
// Initialized order.
func NewOrder(coid model.ClientOrderId, iid model.InstrumentId, side model.Side, otype OrderType, qty model.Quantity, tif TimeInForce, expireTime int64, tsInit int64) (*Order, error) {
	if qty.IsZero() || qty.Decimal().IsNegative() {
		return nil, fmt.Errorf("order: quantity must be positive, got %s", qty)
	}
	if tif == TIFGTD && expireTime == 0 {
		return nil, fmt.Errorf("order: time_in_force GTD requires a non-zero expire_time")
	}
	o := &Order{
		ClientOrderId: coid,
		InstrumentId:  iid,
		Side:          side,
		OrderType:     otype,
		TimeInForce:   tif,
		Quantity:      qty,
		ExpireTime:    expireTime,
		Status:        StatusInitialized,
		Commissions:   make(map[string]float64),
	}
	o.Events = append(o.Events, Event{Kind: EventInitialized, TsEvent: tsInit, TsInit: tsInit})
	return o, nil
}

// SetDisplayQty validates display_qty <= quantity (spec §4.K construction check).
func (o *Order) SetDisplayQty(q model.Quantity) error {
	if q.GreaterThan(o.Quantity) {
		return fmt.Errorf("order %s: display_qty %s exceeds quantity %s", o.ClientOrderId, q, o.Quantity)
	}
	o.DisplayQty = &q
	return nil
}

// LeavesQty returns quantity - filled_qty (spec §3 invariant).
func (o *Order) LeavesQty() model.Quantity {
	return o.Quantity.Sub(o.FilledQty)
}

// Apply validates the transition implied by ev.Kind, appends it to the event
// log, and updates derived fields. It is the sole mutator of Status/FilledQty.
func (o *Order) Apply(ev Event) error {
	if ev.Kind == EventFilled {
		return o.applyFill(ev)
	}

	target, err := o.resolveTarget(ev.Kind)
	if err != nil {
		return err
	}

	o.Events = append(o.Events, ev)
	o.Status = target

	switch ev.Kind {
	case EventTriggered:
		o.IsTriggered = true
		o.TsTriggered = ev.TsEvent
	case EventUpdated:
		if ev.NewPrice != nil {
			o.Price = *ev.NewPrice
		}
		if ev.NewTrigger != nil {
			o.TriggerPrice = *ev.NewTrigger
		}
		if ev.NewQty != nil {
			o.Quantity = *ev.NewQty
		}
	case EventAccepted:
		if ev.VenueId != "" {
			o.VenueOrderId = ev.VenueId
		}
	}
	return nil
}

func (o *Order) resolveTarget(kind EventKind) (Status, error) {
	to, err := nextStatus(o.Status, kind)
	if err != nil {
		return 0, err
	}
	if kind == EventTriggered && !o.OrderType.IsStopFamily() {
		return 0, fmt.Errorf("order %s: Triggered is only valid for stop-family order types", o.ClientOrderId)
	}
	return to, nil
}

// applyFill validates filled_qty <= quantity, recomputes the size-weighted
// average price, decrements leaves_qty (implicitly, via FilledQty), computes
// slippage against the order's reference price/trigger, and resolves the
// terminal status (Filled vs PartiallyFilled) from the post-fill leaves_qty.
func (o *Order) applyFill(ev Event) error {
	if o.Status.IsTerminal() {
		return &InvalidOrderEvent{From: o.Status, Event: EventFilled}
	}
	if o.Status != StatusAccepted && o.Status != StatusTriggered && o.Status != StatusPartiallyFilled {
		return &InvalidOrderEvent{From: o.Status, Event: EventFilled}
	}

	newFilled := o.FilledQty.Add(ev.LastQty)
	if newFilled.GreaterThan(o.Quantity) {
		return fmt.Errorf("order %s: fill would push filled_qty %s past quantity %s", o.ClientOrderId, newFilled, o.Quantity)
	}

	// Weighted average price across cumulative fills.
	prevFilled := o.FilledQty
	totalNotional := o.AvgPx.Decimal().Mul(prevFilled.Decimal()).Add(ev.LastPx.Decimal().Mul(ev.LastQty.Decimal()))
	o.FilledQty = newFilled
	if !newFilled.IsZero() {
		avg := totalNotional.Div(newFilled.Decimal())
		o.AvgPx = model.PriceFromDecimal(avg, ev.LastPx.Precision())
	}
	o.LastTradeId = ev.TradeId

	ref := o.referencePrice()
	if !ref.IsZero() {
		o.Slippage = ev.LastPx.Sub(ref).Float64()
		if o.Side == model.SideSell {
			o.Slippage = -o.Slippage
		}
	}

	o.Events = append(o.Events, ev)
	if o.LeavesQty().IsZero() {
		o.Status = StatusFilled
	} else {
		o.Status = StatusPartiallyFilled
	}
	return nil
}

// referencePrice is the price slippage is measured against: the limit price
// if one exists, else the trigger price.
func (o *Order) referencePrice() model.Price {
	if !o.Price.IsZero() {
		return o.Price
	}
	return o.TriggerPrice
}
