package model

// InstrumentClass enumerates the supported instrument variants.
type InstrumentClass int

const (
	InstrumentCurrencyPair InstrumentClass = iota
	InstrumentCryptoPerpetual
	InstrumentCryptoFuture
	InstrumentEquity
	InstrumentFuturesContract
	InstrumentOptionContract
	InstrumentBinaryOption
)

func (c InstrumentClass) String() string {
	switch c {
	case InstrumentCurrencyPair:
		return "CurrencyPair"
	case InstrumentCryptoPerpetual:
		return "CryptoPerpetual"
	case InstrumentCryptoFuture:
		return "CryptoFuture"
	case InstrumentEquity:
		return "Equity"
	case InstrumentFuturesContract:
		return "FuturesContract"
	case InstrumentOptionContract:
		return "OptionContract"
	case InstrumentBinaryOption:
		return "BinaryOption"
	default:
		return "Unknown"
	}
}

// FeeSchedule holds maker/taker fee rates in basis points.
type FeeSchedule struct {
	MakerFeeBps float64
	TakerFeeBps float64
}

// Instrument is the common representation across all instrument variants.
// Variant-specific fields (multiplier, is_inverse, strike, etc.) are carried
// directly since the core only needs uniform precision/tick metadata — venue
// adapters own the richer variant-specific decoding.
type Instrument struct {
	Id             InstrumentId
	Class          InstrumentClass
	PricePrecision int32
	SizePrecision  int32
	PriceIncrement Price
	SizeIncrement  Quantity
	BaseCurrency   string // empty if none (e.g. equities)
	QuoteCurrency  string
	Multiplier     float64
	IsInverse      bool
	Fees           FeeSchedule
}
