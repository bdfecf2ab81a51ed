// Package ownbook tracks this trader's own resting orders in the same
// ladder shape as the venue book, plus a ClientOrderId index so update/delete
// run in O(log n) rather than a ladder scan (spec §4.F). Grounded on the
// teacher's internal/strategy.MarketMaker.activeOrders (a flat
// orderID->OpenOrder map), generalized into a priced ladder since the own
// book must answer "what do I have resting at this price" for reconciliation
// and trailing-stop recompute, not just "is this order still open".
package ownbook

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// OwnBookOrder is one resting own-order entry. Equality is defined by
// (ClientOrderId, TsInit); ordering for tie-break iteration is by TsInit.
type OwnBookOrder struct {
	ClientOrderId model.ClientOrderId
	Side          model.Side
	Price         model.Price
	Size          model.Quantity
	OrderType     order.OrderType
	TimeInForce   order.TimeInForce
	Status        order.Status
	TsLast        int64
	TsInit        int64
}

func (a OwnBookOrder) Equal(b OwnBookOrder) bool {
	return a.ClientOrderId == b.ClientOrderId && a.TsInit == b.TsInit
}

type level struct {
	price  model.Price
	orders []OwnBookOrder // FIFO by insertion, tie-break by TsInit
}

// OwnBook is the per-instrument ladder of this trader's resting orders.
type OwnBook struct {
	mu           sync.RWMutex
	InstrumentId model.InstrumentId
	bids         map[string]*level
	asks         map[string]*level
	index        map[model.ClientOrderId]model.Price // O(1) price lookup by order
}

func New(iid model.InstrumentId) *OwnBook {
	return &OwnBook{
		InstrumentId: iid,
		bids:         make(map[string]*level),
		asks:         make(map[string]*level),
		index:        make(map[model.ClientOrderId]model.Price),
	}
}

func (b *OwnBook) levelMap(side model.Side) map[string]*level {
	if side == model.SideBuy {
		return b.bids
	}
	return b.asks
}

// Add inserts o into the ladder at its price, failing if the ClientOrderId
// is already tracked (use Update for a price move).
func (b *OwnBook) Add(o OwnBookOrder) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.index[o.ClientOrderId]; exists {
		return fmt.Errorf("ownbook: %s already tracked, use Update", o.ClientOrderId)
	}
	m := b.levelMap(o.Side)
	lvl, ok := m[o.Price.String()]
	if !ok {
		lvl = &level{price: o.Price}
		m[o.Price.String()] = lvl
	}
	lvl.orders = append(lvl.orders, o)
	b.index[o.ClientOrderId] = o.Price
	return nil
}

// Update applies a price and/or size change to a tracked order. A price move
// is implemented as delete-then-insert so the order lands at the back of its
// new level's FIFO, per spec §4.F.
func (b *OwnBook) Update(coid model.ClientOrderId, newPrice model.Price, newSize model.Quantity, side model.Side, tsLast int64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	oldPrice, ok := b.index[coid]
	if !ok {
		return fmt.Errorf("ownbook: %s not tracked", coid)
	}

	m := b.levelMap(side)
	oldLvl, ok := m[oldPrice.String()]
	if !ok {
		return fmt.Errorf("ownbook: %s missing its level at %s", coid, oldPrice)
	}

	var found *OwnBookOrder
	for i := range oldLvl.orders {
		if oldLvl.orders[i].ClientOrderId == coid {
			o := oldLvl.orders[i]
			found = &o
			oldLvl.orders = append(oldLvl.orders[:i], oldLvl.orders[i+1:]...)
			break
		}
	}
	if found == nil {
		return fmt.Errorf("ownbook: %s not found in its level", coid)
	}
	if len(oldLvl.orders) == 0 {
		delete(m, oldPrice.String())
	}

	found.Price = newPrice
	found.Size = newSize
	found.TsLast = tsLast

	newLvl, ok := m[newPrice.String()]
	if !ok {
		newLvl = &level{price: newPrice}
		m[newPrice.String()] = newLvl
	}
	newLvl.orders = append(newLvl.orders, *found)
	b.index[coid] = newPrice
	return nil
}

// Delete removes a tracked order entirely.
func (b *OwnBook) Delete(coid model.ClientOrderId, side model.Side) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	price, ok := b.index[coid]
	if !ok {
		return fmt.Errorf("ownbook: %s not tracked", coid)
	}
	m := b.levelMap(side)
	lvl, ok := m[price.String()]
	if !ok {
		delete(b.index, coid)
		return nil
	}
	for i := range lvl.orders {
		if lvl.orders[i].ClientOrderId == coid {
			lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
			break
		}
	}
	if len(lvl.orders) == 0 {
		delete(m, price.String())
	}
	delete(b.index, coid)
	return nil
}

// Get returns the tracked order's current price, or false if untracked.
func (b *OwnBook) Get(coid model.ClientOrderId) (model.Price, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.index[coid]
	return p, ok
}

// Orders returns every resting own-order for side, in ladder order (bids
// descending, asks ascending) and, within a level, by TsInit.
func (b *OwnBook) Orders(side model.Side) []OwnBookOrder {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m := b.levelMap(side)
	levels := make([]*level, 0, len(m))
	for _, lvl := range m {
		levels = append(levels, lvl)
	}
	descending := side == model.SideBuy
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].price.GreaterThan(levels[j].price)
		}
		return levels[i].price.LessThan(levels[j].price)
	})

	var out []OwnBookOrder
	for _, lvl := range levels {
		ordered := append([]OwnBookOrder(nil), lvl.orders...)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].TsInit < ordered[j].TsInit })
		out = append(out, ordered...)
	}
	return out
}
