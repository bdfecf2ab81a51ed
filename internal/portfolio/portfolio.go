// Package portfolio registers named statistics over realized PnLs, returns,
// and positions, and computes the account-level PnL/return snapshot on
// demand (spec §4.O). Grounded on the teacher's internal/strategy.Inventory
// realized-PnL bookkeeping, generalized from one market's YES/NO legs to a
// registry of named statistic functions over the whole position set.
package portfolio

import (
	"fmt"
	"sort"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
)

// ClosedPosition is the minimal shape a statistic needs: a realized PnL and
// return keyed by the timestamp the position closed.
type ClosedPosition struct {
	TsClosed    int64
	RealizedPnL float64
	RealizedReturn float64
}

// Statistic computes one named figure over the ingested realized PnLs and
// returns, or over the live position set passed to Calculate.
type Statistic interface {
	Name() string
	Compute(pnls []float64, returns []float64, positions []*cache.Position) float64
}

// Analyzer accumulates realized PnLs/returns from closed positions and runs
// the registered statistics against them plus the account snapshot.
type Analyzer struct {
	stats []Statistic

	pnls    []float64
	returns []float64
}

func New() *Analyzer {
	return &Analyzer{}
}

// Register adds s to the set of statistics computed by CalculateStatistics.
func (a *Analyzer) Register(s Statistic) {
	a.stats = append(a.stats, s)
}

// AddClosedPosition ingests a position's realized PnL and realized return.
func (a *Analyzer) AddClosedPosition(p ClosedPosition) {
	a.pnls = append(a.pnls, p.RealizedPnL)
	a.returns = append(a.returns, p.RealizedReturn)
}

// Reset clears ingested PnLs and returns, leaving registered statistics intact.
func (a *Analyzer) Reset() {
	a.pnls = nil
	a.returns = nil
}

// Snapshot is the account-level PnL figure spec §4.O defines: total and
// percentage PnL versus the starting balance, accounting for unrealized PnL.
type Snapshot struct {
	StartingBalance float64
	CurrentBalance  float64
	UnrealizedPnL   float64
	TotalPnL        float64 // (balance - starting) + unrealized
	PercentPnL      float64 // ((balance + unrealized) - starting) / starting * 100, 0 if starting == 0
	Statistics      map[string]float64
}

// CalculateStatistics records the given starting/current balances and
// unrealized PnL, clears prior PnLs/returns, re-ingests the realized figures
// of every entry in closed, and runs every registered statistic plus the
// balance-based PnL totals.
func (a *Analyzer) CalculateStatistics(startingBalance, currentBalance, unrealizedPnL float64, positions []*cache.Position, closed []ClosedPosition) Snapshot {
	a.Reset()
	for _, p := range closed {
		a.AddClosedPosition(p)
	}

	snap := Snapshot{
		StartingBalance: startingBalance,
		CurrentBalance:  currentBalance,
		UnrealizedPnL:   unrealizedPnL,
		TotalPnL:        (currentBalance - startingBalance) + unrealizedPnL,
		Statistics:      make(map[string]float64),
	}
	if startingBalance != 0 {
		snap.PercentPnL = ((currentBalance+unrealizedPnL)-startingBalance) / startingBalance * 100
	}

	for _, s := range a.stats {
		snap.Statistics[s.Name()] = s.Compute(a.pnls, a.returns, positions)
	}
	return snap
}

// FormatText renders snap's statistics as padded, aligned "name: value"
// lines, sorted by name for deterministic output.
func (snap Snapshot) FormatText() []string {
	names := make([]string, 0, len(snap.Statistics))
	width := len("PnL% (total)")
	for name := range snap.Statistics {
		names = append(names, name)
		if len(name) > width {
			width = len(name)
		}
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names)+2)
	lines = append(lines, fmt.Sprintf("%-*s: %.4f", width, "PnL (total)", snap.TotalPnL))
	lines = append(lines, fmt.Sprintf("%-*s: %.2f", width, "PnL% (total)", snap.PercentPnL))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%-*s: %.4f", width, name, snap.Statistics[name]))
	}
	return lines
}
