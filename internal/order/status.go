// Package order implements OrderCore and its variants, the append-only
// event-log state machine of spec §4.K / §3. Grounded on the teacher's
// pkg/types.UserOrder/SignedOrder (kept as the execution-layer wire format in
// internal/execution) generalized into the full lifecycle and type hierarchy.
package order

import "fmt"

// Status is the order's lifecycle state, derived from the ordered event log.
type Status int

const (
	StatusInitialized Status = iota
	StatusSubmitted
	StatusAccepted
	StatusTriggered // stop-family types only; Order.IsTriggered/TsTriggered also record it
	StatusPartiallyFilled
	StatusFilled
	StatusCanceled
	StatusExpired
	StatusRejected
	StatusUpdated // non-terminal transient marker recorded in the log
)

func (s Status) String() string {
	switch s {
	case StatusInitialized:
		return "INITIALIZED"
	case StatusSubmitted:
		return "SUBMITTED"
	case StatusAccepted:
		return "ACCEPTED"
	case StatusTriggered:
		return "TRIGGERED"
	case StatusPartiallyFilled:
		return "PARTIALLY_FILLED"
	case StatusFilled:
		return "FILLED"
	case StatusCanceled:
		return "CANCELED"
	case StatusExpired:
		return "EXPIRED"
	case StatusRejected:
		return "REJECTED"
	case StatusUpdated:
		return "UPDATED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) IsTerminal() bool {
	switch s {
	case StatusFilled, StatusCanceled, StatusExpired, StatusRejected:
		return true
	default:
		return false
	}
}

// EventKind names the append-only lifecycle events (spec §6 event types).
type EventKind int

const (
	EventInitialized EventKind = iota
	EventSubmitted
	EventAccepted
	EventRejected
	EventTriggered
	EventUpdated
	EventCanceled
	EventExpired
	EventFilled
)

func (k EventKind) String() string {
	names := [...]string{
		"OrderInitialized", "OrderSubmitted", "OrderAccepted", "OrderRejected",
		"OrderTriggered", "OrderUpdated", "OrderCanceled", "OrderExpired", "OrderFilled",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// InvalidOrderEvent is returned when apply() is called with a transition that
// is not legal from the order's current status (spec §7 state-transition
// errors).
type InvalidOrderEvent struct {
	From  Status
	Event EventKind
}

func (e *InvalidOrderEvent) Error() string {
	return fmt.Sprintf("invalid order event %s from status %s", e.Event, e.From)
}

// transitions enumerates the legal (From status -> Event) pairs of spec §4.K's
// state machine fragment. Triggered is reachable only from Accepted and only
// for stop-family order types (checked by the caller, not encoded here, since
// Status alone doesn't carry the order type).
var transitions = map[Status]map[EventKind]Status{
	StatusInitialized: {
		EventSubmitted: StatusSubmitted,
	},
	StatusSubmitted: {
		EventAccepted: StatusAccepted,
		EventRejected: StatusRejected,
	},
	StatusAccepted: {
		EventTriggered:     StatusTriggered,
		EventUpdated:       StatusAccepted,
		EventCanceled:      StatusCanceled,
		EventExpired:       StatusExpired,
		EventFilled:        StatusPartiallyFilled, // resolved precisely in apply() by leaves_qty
	},
	StatusTriggered: {
		EventUpdated:  StatusTriggered,
		EventCanceled: StatusCanceled,
		EventExpired:  StatusExpired,
		EventFilled:   StatusPartiallyFilled,
	},
	StatusPartiallyFilled: {
		EventUpdated:  StatusPartiallyFilled,
		EventFilled:   StatusPartiallyFilled, // resolved to Filled in apply() when leaves_qty hits zero
		EventCanceled: StatusCanceled,
		EventExpired:  StatusExpired,
	},
}

// nextStatus validates the transition and returns the raw target status
// (before the fill-completeness refinement apply() performs).
func nextStatus(from Status, event EventKind) (Status, error) {
	allowed, ok := transitions[from]
	if !ok {
		return 0, &InvalidOrderEvent{From: from, Event: event}
	}
	to, ok := allowed[event]
	if !ok {
		return 0, &InvalidOrderEvent{From: from, Event: event}
	}
	return to, nil
}
