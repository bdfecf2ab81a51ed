// Package book implements the venue-truth L2/L3 order book: two sorted
// ladders keyed by price, strict sequence-gap detection, checksum
// verification, and a deterministic FNV-1a digest for replay assertions
// (spec §4.E). Grounded on the teacher's internal/market.Book (RWMutex-guarded
// snapshot mirror keyed by asset id), rebuilt with a real price ladder and
// delta application instead of the teacher's "just remember the latest
// snapshot" shape, since this engine must apply incremental deltas in
// sequence rather than always receiving a full replacement.
package book

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// BookOrder is one resting order at a price level, identified by order_id —
// for L2 feeds the venue sends a single synthetic order per price level.
type BookOrder struct {
	Side    model.Side
	Price   model.Price
	Size    model.Quantity
	OrderId string
}

// Level is a FIFO queue of orders at one price; ordering within a level is
// insertion order, and updates to an existing order_id preserve position.
type Level struct {
	Price  model.Price
	Orders []BookOrder
}

func (l *Level) totalSize() model.Quantity {
	total := model.NewQuantity(0, l.Price.Precision())
	for _, o := range l.Orders {
		total = total.Add(o.Size)
	}
	return total
}

// upsert inserts or replaces the order with the given OrderId. An existing
// entry is replaced in place (preserving position); a new one is appended.
func (l *Level) upsert(o BookOrder) {
	for i := range l.Orders {
		if l.Orders[i].OrderId == o.OrderId {
			l.Orders[i] = o
			return
		}
	}
	l.Orders = append(l.Orders, o)
}

func (l *Level) remove(orderId string) {
	for i := range l.Orders {
		if l.Orders[i].OrderId == orderId {
			l.Orders = append(l.Orders[:i], l.Orders[i+1:]...)
			return
		}
	}
}

// Gap is returned by ApplyDelta when next_seq does not immediately follow the
// book's current sequence; the caller must resync via ApplySnapshot.
type Gap struct {
	Expected uint64
	Received uint64
}

func (g *Gap) Error() string {
	return fmt.Sprintf("book: sequence gap, expected %d got %d", g.Expected, g.Received)
}

// Book is the two-sided price ladder for one instrument.
type Book struct {
	mu           sync.RWMutex
	InstrumentId model.InstrumentId
	bids         map[string]*Level // keyed by Price.String()
	asks         map[string]*Level
	seq          uint64
	digest       uint64
	tsLastUpdate int64
}

func New(iid model.InstrumentId) *Book {
	return &Book{
		InstrumentId: iid,
		bids:         make(map[string]*Level),
		asks:         make(map[string]*Level),
	}
}

func (b *Book) Seq() uint64    { return b.seq }
func (b *Book) Digest() uint64 { return b.digest }

// sortedLevels returns the ladder's levels in display order: descending for
// bids, ascending for asks.
func sortedLevels(m map[string]*Level, descending bool) []*Level {
	out := make([]*Level, 0, len(m))
	for _, lvl := range m {
		out = append(out, lvl)
	}
	sort.Slice(out, func(i, j int) bool {
		if descending {
			return out[i].Price.GreaterThan(out[j].Price)
		}
		return out[i].Price.LessThan(out[j].Price)
	})
	return out
}

func (b *Book) Bids() []*Level { b.mu.RLock(); defer b.mu.RUnlock(); return sortedLevels(b.bids, true) }
func (b *Book) Asks() []*Level { b.mu.RLock(); defer b.mu.RUnlock(); return sortedLevels(b.asks, false) }

func (b *Book) BestBid() (model.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	levels := sortedLevels(b.bids, true)
	if len(levels) == 0 {
		return model.Price{}, false
	}
	return levels[0].Price, true
}

func (b *Book) BestAsk() (model.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	levels := sortedLevels(b.asks, false)
	if len(levels) == 0 {
		return model.Price{}, false
	}
	return levels[0].Price, true
}

// ApplySnapshot replaces the book state wholesale: sorts both sides
// canonically, sets seq, verifies checksum if given, and recomputes the
// digest.
func (b *Book) ApplySnapshot(seq uint64, bids, asks []BookOrder, checksum *uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = make(map[string]*Level)
	b.asks = make(map[string]*Level)
	for _, o := range bids {
		b.levelFor(o.Side, o.Price).upsert(o)
	}
	for _, o := range asks {
		b.levelFor(o.Side, o.Price).upsert(o)
	}
	b.seq = seq

	if checksum != nil && b.checksum() != *checksum {
		return fmt.Errorf("book: snapshot checksum mismatch for %s at seq %d", b.InstrumentId, seq)
	}
	b.digest = b.computeDigest()
	return nil
}

// ApplyDelta applies an incremental update: removals first, then upserts (a
// zero-size upsert is itself a removal). Enforces next_seq == seq+1 once the
// book has been initialized by a snapshot (seq != 0); a violation returns
// *Gap without mutating state, and the caller must resync.
func (b *Book) ApplyDelta(nextSeq uint64, addBids, addAsks, removeBids, removeAsks []BookOrder, checksum *uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.seq != 0 && nextSeq != b.seq+1 {
		return &Gap{Expected: b.seq + 1, Received: nextSeq}
	}

	for _, o := range removeBids {
		if lvl, ok := b.bids[o.Price.String()]; ok {
			lvl.remove(o.OrderId)
			if len(lvl.Orders) == 0 {
				delete(b.bids, o.Price.String())
			}
		}
	}
	for _, o := range removeAsks {
		if lvl, ok := b.asks[o.Price.String()]; ok {
			lvl.remove(o.OrderId)
			if len(lvl.Orders) == 0 {
				delete(b.asks, o.Price.String())
			}
		}
	}
	for _, o := range addBids {
		b.upsertOrRemove(o)
	}
	for _, o := range addAsks {
		b.upsertOrRemove(o)
	}

	b.seq = nextSeq

	if checksum != nil && b.checksum() != *checksum {
		return fmt.Errorf("book: delta checksum mismatch for %s at seq %d", b.InstrumentId, nextSeq)
	}
	b.digest = b.computeDigest()
	return nil
}

func (b *Book) upsertOrRemove(o BookOrder) {
	if o.Size.IsZero() {
		if lvl, ok := b.levelMap(o.Side)[o.Price.String()]; ok {
			lvl.remove(o.OrderId)
			if len(lvl.Orders) == 0 {
				delete(b.levelMap(o.Side), o.Price.String())
			}
		}
		return
	}
	b.levelFor(o.Side, o.Price).upsert(o)
}

func (b *Book) levelMap(side model.Side) map[string]*Level {
	if side == model.SideBuy {
		return b.bids
	}
	return b.asks
}

func (b *Book) levelFor(side model.Side, px model.Price) *Level {
	m := b.levelMap(side)
	lvl, ok := m[px.String()]
	if !ok {
		lvl = &Level{Price: px}
		m[px.String()] = lvl
	}
	return lvl
}

// checksum is computeDigest truncated to 32 bits. Venues define their own
// checksum algorithms over the top N levels; this book does not implement any
// of them, so a checksum passed to Apply* must be this truncated digest to
// match. A venue-specific adapter that needs its own algorithm verifies it
// before calling Apply* and passes a nil checksum.
func (b *Book) checksum() uint32 {
	return uint32(b.computeDigest())
}

// computeDigest is a deterministic 64-bit FNV-1a over
// (tag'B'|px|qty)* (tag'A'|px|qty)* seq, used to assert identical book state
// across replay of the same event stream.
func (b *Book) computeDigest() uint64 {
	h := fnv.New64a()
	for _, lvl := range sortedLevels(b.bids, true) {
		h.Write([]byte{'B'})
		h.Write([]byte(lvl.Price.String()))
		h.Write([]byte(lvl.totalSize().String()))
	}
	for _, lvl := range sortedLevels(b.asks, false) {
		h.Write([]byte{'A'})
		h.Write([]byte(lvl.Price.String()))
		h.Write([]byte(lvl.totalSize().String()))
	}
	fmt.Fprintf(h, "%d", b.seq)
	return h.Sum64()
}
