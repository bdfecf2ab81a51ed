// Package reconciliation tracks inflight client orders awaiting venue
// acknowledgement, aligns local order state against mass-status reports, and
// dedups fills by trade id (spec §4.M). Grounded on the teacher's
// internal/risk.Manager — a mutex-guarded map plus a periodically-invoked
// check method, slog.Logger.With("component", ...) — generalized from
// position-exposure tracking to order inflight/retry bookkeeping.
package reconciliation

import (
	"log/slog"
	"sync"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// Config bounds inflight retries and the back-off between venue queries.
type Config struct {
	ThresholdMs       int64
	InflightMaxRetries int
	FilterUnclaimed    bool // if true, unclaimed order reports are silently ignored
}

type inflightEntry struct {
	tsSubmitted int64
	retryCount  int
	lastQueryTs int64
}

// QueryFunc is invoked (externalized, e.g. via an execution client) to ask
// the venue for an order's current status during inflight back-off.
type QueryFunc func(coid model.ClientOrderId)

// OrderStatusReport is the venue's view of one order, used both by mass
// status reconciliation and the single-order continuous-runtime path.
type OrderStatusReport struct {
	ClientOrderId model.ClientOrderId
	VenueOrderId  model.VenueOrderId
	InstrumentId  model.InstrumentId
	Status        order.Status
	FilledQty     model.Quantity
	Reason        string
	TsEvent       int64
}

// FillReport is one venue-reported execution.
type FillReport struct {
	ClientOrderId model.ClientOrderId
	InstrumentId  model.InstrumentId
	TradeId       model.TradeId
	LastPx        model.Price
	LastQty       model.Quantity
	TsEvent       int64
}

// Manager is the reconciliation state machine shared by the live-trading
// inflight watchdog and mass-status/continuous-runtime reconciliation paths.
type Manager struct {
	mu sync.Mutex

	cfg    Config
	cache  *cache.Cache
	logger *slog.Logger
	query  QueryFunc

	inflightChecks       map[model.ClientOrderId]*inflightEntry
	externalOrderClaims  map[model.InstrumentId]model.StrategyId
	processedFills       map[model.TradeId]model.ClientOrderId
	orderLocalActivityNs map[model.ClientOrderId]int64
	filtered             map[model.ClientOrderId]bool
}

func New(cfg Config, c *cache.Cache, query QueryFunc, logger *slog.Logger) *Manager {
	return &Manager{
		cfg:                  cfg,
		cache:                c,
		query:                query,
		logger:               logger.With("component", "reconciliation"),
		inflightChecks:       make(map[model.ClientOrderId]*inflightEntry),
		externalOrderClaims:  make(map[model.InstrumentId]model.StrategyId),
		processedFills:       make(map[model.TradeId]model.ClientOrderId),
		orderLocalActivityNs: make(map[model.ClientOrderId]int64),
		filtered:             make(map[model.ClientOrderId]bool),
	}
}

// RegisterInflight begins tracking coid as awaiting venue acknowledgement.
func (m *Manager) RegisterInflight(coid model.ClientOrderId, now int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflightChecks[coid] = &inflightEntry{tsSubmitted: now}
	delete(m.orderLocalActivityNs, coid)
}

// Filter marks coid as exempt from inflight-timeout checks (e.g. a known
// slow venue, or a test double).
func (m *Manager) Filter(coid model.ClientOrderId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filtered[coid] = true
}

// ClearReconTracking removes coid from inflight/retry/activity tracking.
// dropLastQuery is accepted to mirror spec §4.M's signature; the entry is
// removed wholesale either way since a cleared order has nothing left to
// back off against.
func (m *Manager) ClearReconTracking(coid model.ClientOrderId, dropLastQuery bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inflightChecks, coid)
	delete(m.orderLocalActivityNs, coid)
}

// CheckInflightOrders walks every tracked order older than ThresholdMs, skips
// filtered and recently-queried orders (back-off), otherwise re-queries the
// venue. Orders that reach InflightMaxRetries stop being tracked and are
// returned; the Manager emits no event itself, and the caller applies the
// Rejected event (reason INFLIGHT_TIMEOUT) to those still in its cache.
// now is in milliseconds, the unit of ThresholdMs.
func (m *Manager) CheckInflightOrders(now int64) []model.ClientOrderId {
	m.mu.Lock()
	defer m.mu.Unlock()

	var timedOut []model.ClientOrderId
	for coid, entry := range m.inflightChecks {
		if now-entry.tsSubmitted <= m.cfg.ThresholdMs {
			continue
		}
		if m.filtered[coid] {
			continue
		}
		if entry.lastQueryTs != 0 && now-entry.lastQueryTs < m.cfg.ThresholdMs {
			continue
		}

		entry.retryCount++
		entry.lastQueryTs = now
		if m.query != nil {
			m.query(coid)
		}

		if entry.retryCount >= m.cfg.InflightMaxRetries {
			timedOut = append(timedOut, coid)
			delete(m.inflightChecks, coid)
			delete(m.orderLocalActivityNs, coid)
			m.logger.Warn("inflight order timed out", "client_order_id", coid, "retries", entry.retryCount)
		}
	}
	return timedOut
}

// ReconcileReport is the continuous-runtime single-order variant: it clears
// inflight tracking for the report's order and returns it unchanged so the
// caller can dispatch it through the same mass-status logic.
func (m *Manager) ReconcileReport(report OrderStatusReport) OrderStatusReport {
	m.ClearReconTracking(report.ClientOrderId, true)
	return report
}

// ReconcileExecutionMassStatus walks order and fill reports, returning the
// events the caller must apply: one OrderStatusReport per order whose cached
// (status, filled_qty) differs from the venue, and one FillReport per
// not-yet-processed trade id. Reports with no known client_order_id are
// dropped unless FilterUnclaimed is false, in which case they are returned in
// unclaimed for external-order handling.
func (m *Manager) ReconcileExecutionMassStatus(orderReports []OrderStatusReport, fillReports []FillReport) (changed []OrderStatusReport, fills []FillReport, unclaimed []OrderStatusReport) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, report := range orderReports {
		if report.ClientOrderId == "" {
			if !m.cfg.FilterUnclaimed {
				unclaimed = append(unclaimed, report)
			}
			continue
		}

		cached, ok := m.cache.Order(report.ClientOrderId)
		if ok && cached.Status == report.Status && cached.FilledQty.Equal(report.FilledQty) {
			continue
		}
		changed = append(changed, report)
	}

	for _, fill := range fillReports {
		if fill.ClientOrderId == "" {
			continue
		}
		if _, seen := m.processedFills[fill.TradeId]; seen {
			continue
		}
		m.processedFills[fill.TradeId] = fill.ClientOrderId
		fills = append(fills, fill)
	}

	return changed, fills, unclaimed
}

// ClaimExternalOrder records that unclaimed orders for instrument iid
// belong to strategy sid, for future external-order routing.
func (m *Manager) ClaimExternalOrder(iid model.InstrumentId, sid model.StrategyId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.externalOrderClaims[iid] = sid
}

func (m *Manager) ExternalOrderOwner(iid model.InstrumentId) (model.StrategyId, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sid, ok := m.externalOrderClaims[iid]
	return sid, ok
}

// RecordLocalActivity stamps coid as having seen local mutation at ts, used
// to distinguish reconciliation-sourced events from ones the engine itself
// just produced.
func (m *Manager) RecordLocalActivity(coid model.ClientOrderId, ts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderLocalActivityNs[coid] = ts
}
