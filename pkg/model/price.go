package model

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Price is a fixed-precision decimal with an associated scale. Arithmetic
// preserves precision; conversion to float64 is always explicit, matching the
// teacher's preference for named, non-implicit numeric conversions
// (pkg/types.TickSize.Decimals/AmountDecimals).
type Price struct {
	val       decimal.Decimal
	precision int32
}

// NewPrice builds a Price rounded to the given precision (number of decimal places).
func NewPrice(value float64, precision int32) Price {
	return Price{
		val:       decimal.NewFromFloat(value).Round(precision),
		precision: precision,
	}
}

// PriceFromDecimal wraps an already-computed decimal.Decimal at the given
// precision, for callers (e.g. weighted-average fill price math) that derive
// a Price from arithmetic rather than a literal value or string.
func PriceFromDecimal(d decimal.Decimal, precision int32) Price {
	return Price{val: d.Round(precision), precision: precision}
}

// ParsePrice parses a decimal string at the given precision.
func ParsePrice(s string, precision int32) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, fmt.Errorf("parse price %q: %w", s, err)
	}
	return Price{val: d.Round(precision), precision: precision}, nil
}

func (p Price) Precision() int32     { return p.precision }
func (p Price) Decimal() decimal.Decimal { return p.val }
func (p Price) Float64() float64     { f, _ := p.val.Float64(); return f }
func (p Price) String() string       { return p.val.StringFixed(p.precision) }
func (p Price) IsZero() bool         { return p.val.IsZero() }

func (p Price) Add(o Price) Price { return Price{val: p.val.Add(o.val).Round(p.precision), precision: p.precision} }
func (p Price) Sub(o Price) Price { return Price{val: p.val.Sub(o.val).Round(p.precision), precision: p.precision} }
func (p Price) Cmp(o Price) int   { return p.val.Cmp(o.val) }
func (p Price) GreaterThan(o Price) bool { return p.val.GreaterThan(o.val) }
func (p Price) LessThan(o Price) bool    { return p.val.LessThan(o.val) }
func (p Price) Equal(o Price) bool       { return p.val.Equal(o.val) }

// Quantity is a fixed-precision decimal that is non-negative unless a signed
// variant is explicitly required (see SignedQuantity).
type Quantity struct {
	val       decimal.Decimal
	precision int32
}

func NewQuantity(value float64, precision int32) Quantity {
	return Quantity{val: decimal.NewFromFloat(value).Round(precision).Abs(), precision: precision}
}

// QuantityFromDecimal wraps an already-computed decimal.Decimal at the given
// precision, mirroring PriceFromDecimal for callers deriving a Quantity from
// arithmetic (e.g. integer-grid tick/lot conversion) rather than a literal or
// parsed string.
func QuantityFromDecimal(d decimal.Decimal, precision int32) Quantity {
	return Quantity{val: d.Round(precision).Abs(), precision: precision}
}

func ParseQuantity(s string, precision int32) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("parse quantity %q: %w", s, err)
	}
	return Quantity{val: d.Round(precision).Abs(), precision: precision}, nil
}

func (q Quantity) Precision() int32        { return q.precision }
func (q Quantity) Decimal() decimal.Decimal { return q.val }
func (q Quantity) Float64() float64        { f, _ := q.val.Float64(); return f }
func (q Quantity) String() string          { return q.val.StringFixed(q.precision) }
func (q Quantity) IsZero() bool            { return q.val.IsZero() }

func (q Quantity) Add(o Quantity) Quantity {
	return Quantity{val: q.val.Add(o.val).Round(q.precision), precision: q.precision}
}

// Sub returns a non-negative result, floored at zero — used for leaves_qty math
// where the caller has already validated filled_qty <= quantity.
func (q Quantity) Sub(o Quantity) Quantity {
	r := q.val.Sub(o.val)
	if r.IsNegative() {
		r = decimal.Zero
	}
	return Quantity{val: r.Round(q.precision), precision: q.precision}
}

func (q Quantity) Cmp(o Quantity) int            { return q.val.Cmp(o.val) }
func (q Quantity) GreaterThan(o Quantity) bool    { return q.val.GreaterThan(o.val) }
func (q Quantity) LessThanOrEqual(o Quantity) bool { return q.val.LessThanOrEqual(o.val) }

// jsonPrecise is the wire representation for Price/Quantity: a decimal string
// plus the precision needed to round-trip exactly, avoiding float64 lossiness.
type jsonPrecise struct {
	Value     string `json:"value"`
	Precision int32  `json:"precision"`
}

func (p Price) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonPrecise{Value: p.val.String(), Precision: p.precision})
}

func (p *Price) UnmarshalJSON(data []byte) error {
	var jp jsonPrecise
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	v, err := ParsePrice(jp.Value, jp.Precision)
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonPrecise{Value: q.val.String(), Precision: q.precision})
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	var jp jsonPrecise
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	v, err := ParseQuantity(jp.Value, jp.Precision)
	if err != nil {
		return err
	}
	*q = v
	return nil
}
