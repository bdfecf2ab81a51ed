// Package bar aggregates trade ticks into OHLCV bars, either on wall-clock
// boundaries (Second/Minute/Hour/Day) or on accumulated thresholds
// (Tick/Volume/Value), per spec §4.J. Grounded on internal/clock's
// Clock.SetTimeAlert for wall-clock-aligned closes (a named, replaceable
// one-shot timer, re-armed after each close) and on the teacher's close-over-state
// callback style throughout internal/engine.
package bar

import (
	"time"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
	"github.com/shopspring/decimal"
)

func decimalFromStep(step int64) decimal.Decimal {
	return decimal.NewFromInt(step)
}

// Handler receives a closed bar.
type Handler func(model.Bar)

type builder struct {
	open, high, low, close model.Price
	volume                 model.Quantity
	tsOpen, tsEvent        int64
	started                bool
}

func (b *builder) update(price model.Price, size model.Quantity, ts int64) {
	if !b.started {
		b.open, b.high, b.low, b.close = price, price, price, price
		b.volume = size
		b.tsOpen = ts
		b.started = true
	} else {
		if price.GreaterThan(b.high) {
			b.high = price
		}
		if price.LessThan(b.low) {
			b.low = price
		}
		b.close = price
		b.volume = b.volume.Add(size)
	}
	b.tsEvent = ts
}

// Aggregator accumulates trade ticks for one BarType and emits a Bar through
// Handler when the aggregation's close condition is met. A single Aggregator
// value handles every aggregation kind; which fields apply depends on
// BarType.Aggregation.
type Aggregator struct {
	barType           model.BarType
	handler           Handler
	timestampOnClose  bool
	clock             clock.Clock
	timerName         string
	cur               builder

	// Tick/Volume/Value threshold state.
	tickCount    int64
	valueAccum   float64
}

// New constructs an Aggregator for bt. timestampOnClose controls whether a
// closed bar's ts_event is the bar's open or close timestamp.
func New(bt model.BarType, clk clock.Clock, timestampOnClose bool, handler Handler) *Aggregator {
	a := &Aggregator{
		barType:          bt,
		handler:          handler,
		timestampOnClose: timestampOnClose,
		clock:            clk,
		timerName:        "bar-close-" + bt.String(),
	}
	if isTimeAggregation(bt.Aggregation) {
		a.armNextClose(clk.NowNs())
	}
	return a
}

func isTimeAggregation(agg model.BarAggregation) bool {
	switch agg {
	case model.AggregationSecond, model.AggregationMinute, model.AggregationHour, model.AggregationDay:
		return true
	default:
		return false
	}
}

func (a *Aggregator) stepDuration() time.Duration {
	switch a.barType.Aggregation {
	case model.AggregationSecond:
		return time.Duration(a.barType.Step) * time.Second
	case model.AggregationMinute:
		return time.Duration(a.barType.Step) * time.Minute
	case model.AggregationHour:
		return time.Duration(a.barType.Step) * time.Hour
	case model.AggregationDay:
		return time.Duration(a.barType.Step) * 24 * time.Hour
	default:
		return 0
	}
}

// armNextClose arms a one-shot close timer aligned to the next wall-clock
// boundary of the aggregation's step, sourced from clk rather than a fixed
// interval from "now" — so a 1-MINUTE bar always closes on the minute.
func (a *Aggregator) armNextClose(nowNs int64) {
	step := a.stepDuration().Nanoseconds()
	if step <= 0 {
		return
	}
	next := ((nowNs / step) + 1) * step
	a.clock.SetTimeAlert(a.timerName, next, func(ev clock.TimeEvent) {
		a.closeTimeBar(ev.TsInit)
		a.armNextClose(ev.TsInit)
	})
}

func (a *Aggregator) closeTimeBar(closeTs int64) {
	if !a.cur.started {
		return
	}
	a.emit(closeTs)
}

// OnTrade feeds one trade tick into the aggregator, updating the in-progress
// bar and closing it if a threshold-based aggregation's condition is met.
// Time-based aggregations close only via their wall-clock timer.
func (a *Aggregator) OnTrade(price model.Price, size model.Quantity, ts int64) {
	a.cur.update(price, size, ts)

	switch a.barType.Aggregation {
	case model.AggregationTick:
		a.tickCount++
		if a.tickCount >= a.barType.Step {
			a.emit(ts)
			a.tickCount = 0
		}
	case model.AggregationVolume:
		if a.cur.volume.Decimal().GreaterThanOrEqual(decimalFromStep(a.barType.Step)) {
			a.emit(ts)
		}
	case model.AggregationValue:
		a.valueAccum += price.Float64() * size.Float64()
		if a.valueAccum >= float64(a.barType.Step) {
			a.emit(ts)
			a.valueAccum = 0
		}
	}
}

func (a *Aggregator) emit(ts int64) {
	tsEvent := a.cur.tsOpen
	if a.timestampOnClose {
		tsEvent = ts
	}
	bar := model.Bar{
		BarType: a.barType,
		Open:    a.cur.open,
		High:    a.cur.high,
		Low:     a.cur.low,
		Close:   a.cur.close,
		Volume:  a.cur.volume,
		TsEvent: tsEvent,
		TsInit:  ts,
	}
	a.cur = builder{}
	if a.handler != nil {
		a.handler(bar)
	}
}
