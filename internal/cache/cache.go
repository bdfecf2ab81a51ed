// Package cache is the authoritative in-memory store for instruments,
// accounts, orders, positions, and the most recent quote/trade/bar per key.
// The cache is the sole writer; every read returns a consistent per-call
// snapshot (spec §4.C). Grounded on the teacher's internal/store/store.go for
// the "single owner, defensive copy" discipline, generalized from
// position-only JSON files to the full table set and backed optionally by
// internal/cachedb for durability.
package cache

import (
	"fmt"
	"sync"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cachedb"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// Account is a minimal account-state snapshot; venue adapters own the richer
// balance/margin schema and push updates through AddAccount.
type Account struct {
	Id      model.AccountId
	Balance float64
	Equity  float64
}

// Position mirrors the derived-from-fills position model of spec §3.
type Position struct {
	Id              model.PositionId
	InstrumentId    model.InstrumentId
	Side            string // "LONG", "SHORT", "FLAT"
	Quantity        model.Quantity // signed magnitude tracked by the owner, cache stores as-is
	AvgOpenPrice    model.Price
	AvgClosePrice   model.Price
	RealizedPnL     float64
	ClosedTsEvent   *int64
}

// Cache holds current state for instruments, accounts, orders, positions,
// and the latest quote/trade/bar per key; earlier market data is not kept.
type Cache struct {
	mu sync.RWMutex

	instruments map[model.InstrumentId]model.Instrument
	accounts    map[model.AccountId]Account
	orders      map[model.ClientOrderId]*order.Order
	positions   map[model.PositionId]*Position

	quotes map[model.InstrumentId]model.QuoteTick
	trades map[model.InstrumentId]model.TradeTick
	bars   map[model.BarType]model.Bar

	db cachedb.Database // optional durable mirror, nil if not configured
}

func New(db cachedb.Database) *Cache {
	return &Cache{
		instruments: make(map[model.InstrumentId]model.Instrument),
		accounts:    make(map[model.AccountId]Account),
		orders:      make(map[model.ClientOrderId]*order.Order),
		positions:   make(map[model.PositionId]*Position),
		quotes:      make(map[model.InstrumentId]model.QuoteTick),
		trades:      make(map[model.InstrumentId]model.TradeTick),
		bars:        make(map[model.BarType]model.Bar),
		db:          db,
	}
}

// --- instruments ---

func (c *Cache) AddInstrument(i model.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instruments[i.Id] = i
	if c.db != nil {
		_ = c.db.SaveInstrument(i)
	}
}

func (c *Cache) UpdateInstrument(i model.Instrument) { c.AddInstrument(i) }

func (c *Cache) Instrument(id model.InstrumentId) (model.Instrument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i, ok := c.instruments[id]
	return i, ok
}

// LoadInstruments bulk-inserts instruments for bootstrapping.
func (c *Cache) LoadInstruments(instruments []model.Instrument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, i := range instruments {
		c.instruments[i.Id] = i
	}
}

// --- accounts ---

func (c *Cache) AddAccount(a Account) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accounts[a.Id] = a
	if c.db != nil {
		_ = c.db.SaveAccount(cachedb.AccountRecord{Id: string(a.Id), Balance: a.Balance, Equity: a.Equity})
	}
}

func (c *Cache) UpdateAccount(a Account) { c.AddAccount(a) }

func (c *Cache) Account(id model.AccountId) (Account, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.accounts[id]
	return a, ok
}

// --- orders ---

func (c *Cache) AddOrder(o *order.Order) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ClientOrderId] = o
	if c.db != nil {
		_ = c.db.SaveOrder(cachedb.OrderRecord{
			ClientOrderId: string(o.ClientOrderId),
			Status:        o.Status.String(),
			FilledQty:     o.FilledQty.Float64(),
		})
	}
}

func (c *Cache) UpdateOrder(o *order.Order) { c.AddOrder(o) }

func (c *Cache) Order(id model.ClientOrderId) (*order.Order, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	o, ok := c.orders[id]
	return o, ok
}

func (c *Cache) OrderExists(id model.ClientOrderId) bool {
	_, ok := c.Order(id)
	return ok
}

// --- positions ---

func (c *Cache) AddPosition(p *Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.positions[p.Id] = p
}

func (c *Cache) UpdatePosition(p *Position) { c.AddPosition(p) }

func (c *Cache) Position(id model.PositionId) (*Position, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.positions[id]
	return p, ok
}

func (c *Cache) PositionsOpen() []*Position {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []*Position
	for _, p := range c.positions {
		if p.ClosedTsEvent == nil {
			out = append(out, p)
		}
	}
	return out
}

// --- market data ---

func (c *Cache) AddQuote(q model.QuoteTick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[q.InstrumentId] = q
}

func (c *Cache) Quote(id model.InstrumentId) (model.QuoteTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[id]
	return q, ok
}

func (c *Cache) AddTrade(t model.TradeTick) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trades[t.InstrumentId] = t
}

func (c *Cache) Trade(id model.InstrumentId) (model.TradeTick, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.trades[id]
	return t, ok
}

func (c *Cache) AddBar(b model.Bar) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bars[b.BarType] = b
}

func (c *Cache) Bar(bt model.BarType) (model.Bar, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bars[bt]
	return b, ok
}

// ValidateBarSequence reports whether a new bar regresses relative to the
// last cached bar of the same BarType (spec §4.H: data engine drops bars
// whose ts_event/ts_init regress).
func (c *Cache) ValidateBarSequence(b model.Bar) error {
	c.mu.RLock()
	last, ok := c.bars[b.BarType]
	c.mu.RUnlock()
	if !ok {
		return nil
	}
	if b.TsEvent < last.TsEvent || b.TsInit < last.TsInit {
		return fmt.Errorf("bar sequence regression for %s: ts_event=%d ts_init=%d < last ts_event=%d ts_init=%d",
			b.BarType, b.TsEvent, b.TsInit, last.TsEvent, last.TsInit)
	}
	return nil
}
