// Package model defines the shared data vocabulary for the trading core —
// identifiers, fixed-precision price/quantity types, instrument variants, and
// market-data variants. It has no dependency on any internal package so it can
// be imported by every layer, same role as the teacher's pkg/types.
package model

import "fmt"

// Venue identifies a trading venue, e.g. "BINANCE", "POLYMARKET", "CME".
type Venue string

// Symbol is the venue-local instrument symbol, e.g. "BTC-USDT", "ESZ24".
type Symbol string

// InstrumentId uniquely identifies an instrument within a venue.
type InstrumentId struct {
	Symbol Symbol
	Venue  Venue
}

func (id InstrumentId) String() string {
	return fmt.Sprintf("%s.%s", id.Symbol, id.Venue)
}

func (id InstrumentId) IsSynthetic() bool {
	return id.Venue == "SYNTH"
}

// Opaque string-like handles. Case-sensitive, globally unique within their kind.
type (
	ClientOrderId string
	VenueOrderId  string
	TradeId       string
	PositionId    string
	StrategyId    string
	TraderId      string
	AccountId     string
	ClientId      string
)

func (id ClientOrderId) String() string { return string(id) }
func (id VenueOrderId) String() string  { return string(id) }
func (id TradeId) String() string       { return string(id) }
func (id PositionId) String() string    { return string(id) }
func (id StrategyId) String() string    { return string(id) }
func (id TraderId) String() string      { return string(id) }
func (id AccountId) String() string     { return string(id) }
func (id ClientId) String() string      { return string(id) }
