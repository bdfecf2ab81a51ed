// Package dataengine is the command router and data fan-out hub: it owns the
// registered DataClientAdapters, a venue routing table, per-instrument delta
// buffers, bar aggregators, and synthetic-instrument fan-out (spec §4.H).
// Grounded on the teacher's internal/engine.Engine — the mutex-guarded
// `slots`/`tokenMap` routing tables and client/feed ownership — generalized
// from "one market slot per condition id" to "one client per ClientId, with
// venue-keyed default routing".
package dataengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/bar"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/book"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/dataclient"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/msgbus"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// DataType names the subscription kind a SubscriptionCommand targets,
// mirroring spec §4.H's `data_type.type_name` dispatch key.
type DataType string

const (
	DataTypeOrderBookDelta DataType = "OrderBookDelta"
	DataTypeOrderBook      DataType = "OrderBook"
	DataTypeQuoteTick      DataType = "QuoteTick"
	DataTypeTradeTick      DataType = "TradeTick"
	DataTypeBar            DataType = "Bar"
	DataTypeInstrument     DataType = "InstrumentAny"
)

// SubscriptionCommand is the uniform shape execute() dispatches on.
type SubscriptionCommand struct {
	DataType     DataType
	ClientId     model.ClientId // optional: resolved by venue routing if empty
	InstrumentId model.InstrumentId
	BarType      model.BarType
	IntervalMs   int64
}

type deltaBuffer struct {
	mu   sync.Mutex
	buf  []model.OrderBookDelta
}

// Engine owns the full data-plane wiring: registered clients, venue routing,
// per-instrument buffers/timers, bar aggregators, and synthetic fan-out.
type Engine struct {
	mu sync.RWMutex

	clients      map[model.ClientId]dataclient.Adapter
	defaultClientId model.ClientId
	routingMap   map[model.Venue]model.ClientId

	bus    *msgbus.Bus
	cache  *cache.Cache
	clock  clock.Clock
	logger *slog.Logger

	subscribedDeltas    map[model.InstrumentId]bool
	subscribedSnapshots map[model.InstrumentId]bool
	deltaBuffers        map[model.InstrumentId]*deltaBuffer
	barAggregators      map[model.BarType]*bar.Aggregator

	// books holds the venue-truth order book per instrument, owned by the
	// engine per spec §3 ("Books are owned by the data engine"). Populated on
	// first OrderBookDelta subscription, mutated by the deltas-topic handler,
	// and read back by publishSnapshot.
	books map[model.InstrumentId]*book.Book

	// synthetic maps a source instrument to the synthetic instruments whose
	// data is derived from it (spec §4.H: "walk synthetic fan-out tables and
	// republish derived data" on Trade/Quote).
	synthetic map[model.InstrumentId][]model.InstrumentId
}

func New(bus *msgbus.Bus, c *cache.Cache, clk clock.Clock, logger *slog.Logger) *Engine {
	return &Engine{
		clients:             make(map[model.ClientId]dataclient.Adapter),
		routingMap:          make(map[model.Venue]model.ClientId),
		bus:                 bus,
		cache:               c,
		clock:               clk,
		logger:              logger.With("component", "dataengine"),
		subscribedDeltas:    make(map[model.InstrumentId]bool),
		subscribedSnapshots: make(map[model.InstrumentId]bool),
		deltaBuffers:        make(map[model.InstrumentId]*deltaBuffer),
		barAggregators:      make(map[model.BarType]*bar.Aggregator),
		synthetic:           make(map[model.InstrumentId][]model.InstrumentId),
		books:               make(map[model.InstrumentId]*book.Book),
	}
}

// Book returns the engine-owned order book for iid, creating it if this is
// the first reference (spec §3: "Books are owned by the data engine").
func (e *Engine) Book(iid model.InstrumentId) *book.Book {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bookLocked(iid)
}

func (e *Engine) bookLocked(iid model.InstrumentId) *book.Book {
	bk, ok := e.books[iid]
	if !ok {
		bk = book.New(iid)
		e.books[iid] = bk
	}
	return bk
}

// RegisterClient adds an adapter, routed to venue (and made the default
// client if isDefault).
func (e *Engine) RegisterClient(venue model.Venue, c dataclient.Adapter, isDefault bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clients[c.ClientId()] = c
	e.routingMap[venue] = c.ClientId()
	if isDefault {
		e.defaultClientId = c.ClientId()
	}
}

// RegisterSynthetic wires src's Trade/Quote fan-out to also republish under
// each of derived.
func (e *Engine) RegisterSynthetic(src model.InstrumentId, derived ...model.InstrumentId) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.synthetic[src] = append(e.synthetic[src], derived...)
}

func (e *Engine) resolveClient(cmd SubscriptionCommand, venue model.Venue) (dataclient.Adapter, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if cmd.ClientId != "" {
		c, ok := e.clients[cmd.ClientId]
		if !ok {
			return nil, fmt.Errorf("dataengine: unknown client_id %s", cmd.ClientId)
		}
		return c, nil
	}
	if id, ok := e.routingMap[venue]; ok {
		return e.clients[id], nil
	}
	if e.defaultClientId != "" {
		return e.clients[e.defaultClientId], nil
	}
	return nil, fmt.Errorf("dataengine: no client resolvable for venue %s", venue)
}

// Execute dispatches cmd per spec §4.H's data_type.type_name switch.
func (e *Engine) Execute(ctx context.Context, cmd SubscriptionCommand) error {
	switch cmd.DataType {
	case DataTypeOrderBookDelta:
		return e.executeOrderBookDelta(ctx, cmd)
	case DataTypeOrderBook:
		return e.executeOrderBookSnapshot(ctx, cmd)
	case DataTypeQuoteTick:
		return e.executeSimpleSubscribe(ctx, cmd, func(c dataclient.Adapter) error {
			return c.SubscribeQuoteTicks(ctx, cmd.InstrumentId)
		})
	case DataTypeTradeTick:
		return e.executeSimpleSubscribe(ctx, cmd, func(c dataclient.Adapter) error {
			return c.SubscribeTradeTicks(ctx, cmd.InstrumentId)
		})
	case DataTypeBar:
		return e.executeSimpleSubscribe(ctx, cmd, func(c dataclient.Adapter) error {
			return c.SubscribeBars(ctx, cmd.BarType)
		})
	default:
		// InstrumentAny and custom types only check that a client resolves:
		// no handler is registered and nothing is forwarded to the client.
		return e.executeSimpleSubscribe(ctx, cmd, func(c dataclient.Adapter) error { return nil })
	}
}

func (e *Engine) executeOrderBookDelta(ctx context.Context, cmd SubscriptionCommand) error {
	if cmd.InstrumentId.IsSynthetic() {
		return fmt.Errorf("dataengine: cannot subscribe order book deltas on synthetic instrument %s", cmd.InstrumentId)
	}
	e.mu.Lock()
	if e.subscribedDeltas[cmd.InstrumentId] {
		e.mu.Unlock()
		return nil // idempotent
	}
	e.subscribedDeltas[cmd.InstrumentId] = true
	if _, ok := e.deltaBuffers[cmd.InstrumentId]; !ok {
		e.deltaBuffers[cmd.InstrumentId] = &deltaBuffer{}
	}
	e.bookLocked(cmd.InstrumentId) // install the cached order book
	e.mu.Unlock()

	topic := "data.deltas." + cmd.InstrumentId.String()
	e.bus.Subscribe(topic, "dataengine-book-"+cmd.InstrumentId.String(), 0, func(payload any) {
		batch, ok := payload.(model.OrderBookDeltas)
		if !ok {
			return
		}
		e.applyBookDeltas(batch)
	})

	client, err := e.resolveClient(cmd, cmd.InstrumentId.Venue)
	if err != nil {
		return err
	}
	return client.SubscribeOrderBookDeltas(ctx, cmd.InstrumentId)
}

func (e *Engine) executeOrderBookSnapshot(ctx context.Context, cmd SubscriptionCommand) error {
	if err := e.executeOrderBookDelta(ctx, cmd); err != nil {
		return err
	}

	e.mu.Lock()
	already := e.subscribedSnapshots[cmd.InstrumentId]
	e.subscribedSnapshots[cmd.InstrumentId] = true
	e.mu.Unlock()
	if already {
		return nil
	}

	timerName := "snapshot-" + cmd.InstrumentId.String()
	intervalNs := cmd.IntervalMs * 1_000_000
	now := e.clock.NowNs()
	aligned := ((now / intervalNs) + 1) * intervalNs
	e.clock.SetTimer(timerName, time.Duration(intervalNs), aligned, func(ev clock.TimeEvent) {
		e.publishSnapshot(cmd.InstrumentId)
	})
	return nil
}

// applyBookDeltas mutates the engine-owned book for batch.InstrumentId to
// keep it consistent with what was just published (spec §4.H: "Cache is kept
// consistent via the book-update handler"). A leading Clear action marks a
// snapshot batch (spec §3: "A snapshot delta set begins with a Clear action,
// followed by Adds"); otherwise the batch is an incremental delta applied via
// book.Book.ApplyDelta. A sequence gap is logged — the caller must resync by
// requesting a fresh snapshot from the venue, which is outside the engine's
// own state.
func (e *Engine) applyBookDeltas(batch model.OrderBookDeltas) {
	if len(batch.Deltas) == 0 {
		return
	}
	bk := e.Book(batch.InstrumentId)
	seq := batch.Deltas[len(batch.Deltas)-1].Sequence

	if batch.Deltas[0].Action == model.DeltaClear {
		var bids, asks []book.BookOrder
		for _, d := range batch.Deltas[1:] {
			if d.Action != model.DeltaAdd {
				continue
			}
			bids, asks = appendBookOrder(bids, asks, d)
		}
		if err := bk.ApplySnapshot(seq, bids, asks, nil); err != nil {
			e.logger.Warn("snapshot checksum mismatch", "instrument_id", batch.InstrumentId, "err", err)
		}
		return
	}

	var addBids, addAsks, removeBids, removeAsks []book.BookOrder
	for _, d := range batch.Deltas {
		bo := book.BookOrder{Side: d.Order.Side, Price: d.Order.Price, Size: d.Order.Size, OrderId: d.Order.OrderId}
		if d.Action == model.DeltaDelete {
			if d.Order.Side == model.SideBuy {
				removeBids = append(removeBids, bo)
			} else {
				removeAsks = append(removeAsks, bo)
			}
			continue
		}
		if d.Order.Side == model.SideBuy {
			addBids = append(addBids, bo)
		} else {
			addAsks = append(addAsks, bo)
		}
	}

	if err := bk.ApplyDelta(seq, addBids, addAsks, removeBids, removeAsks, nil); err != nil {
		var gap *book.Gap
		if errors.As(err, &gap) {
			e.logger.Warn("order book sequence gap, resync required", "instrument_id", batch.InstrumentId,
				"expected", gap.Expected, "received", gap.Received)
			return
		}
		e.logger.Warn("order book checksum mismatch", "instrument_id", batch.InstrumentId, "err", err)
	}
}

func appendBookOrder(bids, asks []book.BookOrder, d model.OrderBookDelta) ([]book.BookOrder, []book.BookOrder) {
	bo := book.BookOrder{Side: d.Order.Side, Price: d.Order.Price, Size: d.Order.Size, OrderId: d.Order.OrderId}
	if d.Order.Side == model.SideBuy {
		return append(bids, bo), asks
	}
	return bids, append(asks, bo)
}

// publishSnapshot reads the engine-owned book's current state and republishes
// it as an OrderBookDeltas-shaped full image: a Clear delta followed by one
// Add per resting order, the final entry flagged F_LAST (spec §4.H: "read the
// current book and publish an OrderBookDeltas-shaped snapshot").
func (e *Engine) publishSnapshot(iid model.InstrumentId) {
	bk := e.Book(iid)
	now := e.clock.NowNs()
	seq := bk.Seq()

	deltas := []model.OrderBookDelta{
		{InstrumentId: iid, Action: model.DeltaClear, Sequence: seq, TsEvent: now, TsInit: now},
	}
	for _, lvl := range bk.Bids() {
		for _, o := range lvl.Orders {
			deltas = append(deltas, model.OrderBookDelta{
				InstrumentId: iid, Action: model.DeltaAdd,
				Order:    model.BookOrder{Side: o.Side, Price: o.Price, Size: o.Size, OrderId: o.OrderId},
				Sequence: seq, TsEvent: now, TsInit: now,
			})
		}
	}
	for _, lvl := range bk.Asks() {
		for _, o := range lvl.Orders {
			deltas = append(deltas, model.OrderBookDelta{
				InstrumentId: iid, Action: model.DeltaAdd,
				Order:    model.BookOrder{Side: o.Side, Price: o.Price, Size: o.Size, OrderId: o.OrderId},
				Sequence: seq, TsEvent: now, TsInit: now,
			})
		}
	}
	deltas[len(deltas)-1].Flags |= model.FlagLast

	e.logger.Debug("publishing order book snapshot", "instrument_id", iid, "levels", len(deltas)-1)
	e.publishDeltas(model.OrderBookDeltas{InstrumentId: iid, Deltas: deltas})
}

func (e *Engine) executeSimpleSubscribe(ctx context.Context, cmd SubscriptionCommand, forward func(dataclient.Adapter) error) error {
	client, err := e.resolveClient(cmd, cmd.InstrumentId.Venue)
	if err != nil {
		return err
	}
	return forward(client)
}

// ProcessData handles one inbound Data value per spec §4.H's process_data.
func (e *Engine) ProcessData(d dataclient.Data) {
	switch {
	case d.Delta != nil:
		e.bufferDelta(*d.Delta)
	case d.Deltas != nil:
		e.publishDeltas(*d.Deltas)
	case d.Depth10 != nil:
		e.bus.Publish("data.depth."+d.Depth10.InstrumentId.String(), *d.Depth10)
	case d.Quote != nil:
		e.cache.AddQuote(*d.Quote)
		e.bus.Publish("data.quotes."+d.Quote.InstrumentId.String(), *d.Quote)
		e.fanOutSynthetic(d.Quote.InstrumentId, d)
	case d.Trade != nil:
		e.cache.AddTrade(*d.Trade)
		e.bus.Publish("data.trades."+d.Trade.InstrumentId.String(), *d.Trade)
		e.fanOutSynthetic(d.Trade.InstrumentId, d)
	case d.Bar != nil:
		if err := e.cache.ValidateBarSequence(*d.Bar); err != nil {
			e.logger.Warn("dropping regressed bar", "bar_type", d.Bar.BarType, "err", err)
			return
		}
		e.cache.AddBar(*d.Bar)
		e.bus.Publish("data.bars."+d.Bar.BarType.String(), *d.Bar)
	}
}

// bufferDelta appends to the per-instrument delta buffer, publishing the
// accumulated batch as OrderBookDeltas only once a delta carrying F_LAST
// arrives.
func (e *Engine) bufferDelta(delta model.OrderBookDelta) {
	e.mu.RLock()
	buf, ok := e.deltaBuffers[delta.InstrumentId]
	e.mu.RUnlock()
	if !ok {
		buf = &deltaBuffer{}
		e.mu.Lock()
		e.deltaBuffers[delta.InstrumentId] = buf
		e.mu.Unlock()
	}

	buf.mu.Lock()
	buf.buf = append(buf.buf, delta)
	if delta.IsLast() {
		batch := model.OrderBookDeltas{InstrumentId: delta.InstrumentId, Deltas: buf.buf}
		buf.buf = nil
		buf.mu.Unlock()
		e.publishDeltas(batch)
		return
	}
	buf.mu.Unlock()
}

func (e *Engine) publishDeltas(deltas model.OrderBookDeltas) {
	e.bus.Publish("data.deltas."+deltas.InstrumentId.String(), deltas)
}

func (e *Engine) fanOutSynthetic(src model.InstrumentId, d dataclient.Data) {
	e.mu.RLock()
	derived := e.synthetic[src]
	e.mu.RUnlock()
	for _, syn := range derived {
		switch {
		case d.Quote != nil:
			q := *d.Quote
			q.InstrumentId = syn
			e.bus.Publish("data.quotes."+syn.String(), q)
		case d.Trade != nil:
			tr := *d.Trade
			tr.InstrumentId = syn
			e.bus.Publish("data.trades."+syn.String(), tr)
		}
	}
}
