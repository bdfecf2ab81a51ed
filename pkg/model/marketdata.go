package model

// Side is BUY or SELL.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// AggressorSide identifies which side initiated a trade.
type AggressorSide string

const (
	AggressorBuyer  AggressorSide = "BUYER"
	AggressorSeller AggressorSide = "SELLER"
	AggressorNone   AggressorSide = "NONE"
)

// QuoteTick is a top-of-book bid/ask snapshot.
type QuoteTick struct {
	InstrumentId InstrumentId
	BidPrice     Price
	AskPrice     Price
	BidSize      Quantity
	AskSize      Quantity
	TsEvent      int64 // unix nanos, venue-reported
	TsInit       int64 // unix nanos, local receipt
}

// TradeTick is a single executed trade.
type TradeTick struct {
	InstrumentId  InstrumentId
	Price         Price
	Size          Quantity
	AggressorSide AggressorSide
	TradeId       TradeId
	TsEvent       int64
	TsInit        int64
}

// BarSpecification names an aggregation kind (see internal/bar).
type BarAggregation string

const (
	AggregationSecond BarAggregation = "SECOND"
	AggregationMinute BarAggregation = "MINUTE"
	AggregationHour   BarAggregation = "HOUR"
	AggregationDay    BarAggregation = "DAY"
	AggregationTick   BarAggregation = "TICK"
	AggregationVolume BarAggregation = "VOLUME"
	AggregationValue  BarAggregation = "VALUE"
)

// BarType identifies the instrument + aggregation + step that a Bar belongs to.
type BarType struct {
	InstrumentId InstrumentId
	Aggregation  BarAggregation
	Step         int64 // e.g. 5 for a 5-MINUTE bar, or a volume/value threshold
}

func (bt BarType) String() string {
	return bt.InstrumentId.String() + "-" + string(bt.Aggregation)
}

// Bar is an OHLCV bar.
type Bar struct {
	BarType BarType
	Open    Price
	High    Price
	Low     Price
	Close   Price
	Volume  Quantity
	TsEvent int64
	TsInit  int64
}

// DeltaAction enumerates order book delta actions.
type DeltaAction int

const (
	DeltaAdd DeltaAction = iota
	DeltaUpdate
	DeltaDelete
	DeltaClear
)

func (a DeltaAction) String() string {
	switch a {
	case DeltaAdd:
		return "Add"
	case DeltaUpdate:
		return "Update"
	case DeltaDelete:
		return "Delete"
	case DeltaClear:
		return "Clear"
	default:
		return "Unknown"
	}
}

// Record flags, bitwise-combinable.
const (
	FlagLast uint8 = 1 << iota // F_LAST: final delta of a batch
	FlagMBP                    // F_MBP: mid-stream market-by-price marker
)

// BookOrder is a single resting order on a venue-truth book level.
type BookOrder struct {
	Side    Side
	Price   Price
	Size    Quantity
	OrderId string // venue order id, opaque
}

// OrderBookDelta is a single incremental book change.
type OrderBookDelta struct {
	InstrumentId InstrumentId
	Action       DeltaAction
	Order        BookOrder
	Flags        uint8
	Sequence     uint64
	TsEvent      int64
	TsInit       int64
}

func (d OrderBookDelta) IsLast() bool { return d.Flags&FlagLast != 0 }
func (d OrderBookDelta) IsMBP() bool  { return d.Flags&FlagMBP != 0 }

// OrderBookDeltas batches deltas that must be applied atomically.
type OrderBookDeltas struct {
	InstrumentId InstrumentId
	Deltas       []OrderBookDelta
}

// DepthLevel is a single aggregated price/size pair at a book depth.
type DepthLevel struct {
	Price Price
	Size  Quantity
}

// OrderBookDepth10 is a fixed 10-level depth snapshot, published directly
// without going through the delta buffer.
type OrderBookDepth10 struct {
	InstrumentId InstrumentId
	Bids         [10]DepthLevel
	Asks         [10]DepthLevel
	BidCounts    [10]uint32
	AskCounts    [10]uint32
	Flags        uint8
	Sequence     uint64
	TsEvent      int64
	TsInit       int64
}
