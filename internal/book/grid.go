package book

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// GridConfig is the per-coin precision a venue's integer grid is configured
// at: decimal strings are multiplied by 10^Decimals and rounded to the nearest
// signed 64-bit tick/lot count (spec §4.E, §6 "Order-book integer grid").
type GridConfig struct {
	PriceDecimals uint32
	SizeDecimals  uint32
}

func (c GridConfig) priceMultiplier() decimal.Decimal {
	return decimal.New(1, int32(c.PriceDecimals))
}

func (c GridConfig) sizeMultiplier() decimal.Decimal {
	return decimal.New(1, int32(c.SizeDecimals))
}

// ConversionErrorKind enumerates the typed conversion failures spec §6 names.
type ConversionErrorKind int

const (
	InvalidPrice ConversionErrorKind = iota
	InvalidSize
	PriceOverflow
	SizeOverflow
	ConfigMissing
)

// ConversionError is returned by Grid.ToTicks for any of the five failure
// modes spec §6 names: two parse failures, two range overflows, and an
// unconfigured-coin case.
type ConversionError struct {
	Kind  ConversionErrorKind
	Coin  string
	Value string
}

func (e *ConversionError) Error() string {
	switch e.Kind {
	case InvalidPrice:
		return fmt.Sprintf("book: invalid price %q for coin %s", e.Value, e.Coin)
	case InvalidSize:
		return fmt.Sprintf("book: invalid size %q for coin %s", e.Value, e.Coin)
	case PriceOverflow:
		return fmt.Sprintf("book: price %q overflows int64 grid for coin %s", e.Value, e.Coin)
	case SizeOverflow:
		return fmt.Sprintf("book: size %q overflows int64 grid for coin %s", e.Value, e.Coin)
	case ConfigMissing:
		return fmt.Sprintf("book: no grid config for coin %s", e.Coin)
	default:
		return fmt.Sprintf("book: conversion error for coin %s", e.Coin)
	}
}

// Grid holds the per-coin multipliers external adapters quantize decimal
// price/size strings against, converting to the signed 64-bit integer ticks
// the venue's own wire grid uses (spec §4.E: "external adapters convert
// decimal strings to integer ticks/lots via per-coin multipliers"). Grounded
// on original_source's HyperliquidBookManager (price_multipliers/
// size_multipliers maps, configure_coin, convert_levels) — generalized from
// Hyperliquid's single exchange to any coin-keyed venue.
type Grid struct {
	configs map[string]GridConfig
}

func NewGrid() *Grid {
	return &Grid{configs: make(map[string]GridConfig)}
}

// Configure sets (or replaces) the precision coin is quantized at.
func (g *Grid) Configure(coin string, cfg GridConfig) {
	g.configs[coin] = cfg
}

// Configured reports whether coin has a registered grid config.
func (g *Grid) Configured(coin string) bool {
	_, ok := g.configs[coin]
	return ok
}

// ToTicks parses priceStr/sizeStr as decimals and quantizes them to coin's
// configured integer grid, returning price ticks and size lots. ConfigMissing
// is checked first since a parse failure against an unconfigured coin is
// still, ultimately, a missing-config problem the caller must resolve by
// registering the coin.
func (g *Grid) ToTicks(coin, priceStr, sizeStr string) (priceTicks, sizeTicks int64, err error) {
	cfg, ok := g.configs[coin]
	if !ok {
		return 0, 0, &ConversionError{Kind: ConfigMissing, Coin: coin}
	}

	priceDec, perr := decimal.NewFromString(priceStr)
	if perr != nil {
		return 0, 0, &ConversionError{Kind: InvalidPrice, Coin: coin, Value: priceStr}
	}
	sizeDec, serr := decimal.NewFromString(sizeStr)
	if serr != nil {
		return 0, 0, &ConversionError{Kind: InvalidSize, Coin: coin, Value: sizeStr}
	}

	priceTicks, ok = toInt64(priceDec.Mul(cfg.priceMultiplier()))
	if !ok {
		return 0, 0, &ConversionError{Kind: PriceOverflow, Coin: coin, Value: priceStr}
	}
	sizeTicks, ok = toInt64(sizeDec.Mul(cfg.sizeMultiplier()))
	if !ok {
		return 0, 0, &ConversionError{Kind: SizeOverflow, Coin: coin, Value: sizeStr}
	}
	return priceTicks, sizeTicks, nil
}

// FromTicks converts integer price/size ticks back to decimal Price/Quantity
// values at coin's configured precision.
func (g *Grid) FromTicks(coin string, priceTicks, sizeTicks int64) (model.Price, model.Quantity, error) {
	cfg, ok := g.configs[coin]
	if !ok {
		return model.Price{}, model.Quantity{}, &ConversionError{Kind: ConfigMissing, Coin: coin}
	}
	price := decimal.New(priceTicks, 0).DivRound(cfg.priceMultiplier(), int32(cfg.PriceDecimals)+2)
	size := decimal.New(sizeTicks, 0).DivRound(cfg.sizeMultiplier(), int32(cfg.SizeDecimals)+2)
	return model.PriceFromDecimal(price, int32(cfg.PriceDecimals)), model.QuantityFromDecimal(size, int32(cfg.SizeDecimals)), nil
}

var (
	maxInt64Dec = decimal.New(math.MaxInt64, 0)
	minInt64Dec = decimal.New(math.MinInt64, 0)
)

// toInt64 rounds d to the nearest integer and reports whether it fits in a
// signed 64-bit tick/lot count, comparing against decimal bounds rather than
// routing through float64 (which cannot represent the full int64 range
// exactly).
func toInt64(d decimal.Decimal) (int64, bool) {
	rounded := d.Round(0)
	if rounded.GreaterThan(maxInt64Dec) || rounded.LessThan(minInt64Dec) {
		return 0, false
	}
	return rounded.IntPart(), true
}
