// Package msgbus implements the single-threaded pub/sub + endpoint substrate
// that every other component routes through. Grounded on the teacher's manual
// channel-routing in internal/engine/engine.go (dispatchMarketEvents/
// routeBookEvent/routeTrade) generalized into a reusable bus: stable handler
// ids, topic subscription with priority ordering, and point-to-point endpoints
// with request/response correlation.
package msgbus

import (
	"fmt"
	"sort"
	"sync"
)

// CloseTopic is reserved to signal graceful shutdown; payload is always nil.
const CloseTopic = "close"

// Handler receives a published payload.
type Handler func(payload any)

// EndpointHandler receives a point-to-point send.
type EndpointHandler func(payload any)

type subscription struct {
	handlerId string
	priority  int
	handler   Handler
}

// Bus is the message bus. All delivery is synchronous on the caller's thread
// (spec §4.B) — there is no internal goroutine.
type Bus struct {
	mu          sync.Mutex
	topics      map[string][]subscription
	endpoints   map[string]EndpointHandler
	correlation map[string]chan any // response correlation id -> waiter
}

func New() *Bus {
	return &Bus{
		topics:      make(map[string][]subscription),
		endpoints:   make(map[string]EndpointHandler),
		correlation: make(map[string]chan any),
	}
}

// Subscribe adds handler (identified by handlerId) to topic at priority
// (higher runs first). Re-subscribing the same handlerId to the same topic is
// idempotent — it replaces the stored handler/priority rather than duplicating
// delivery.
func (b *Bus) Subscribe(topic, handlerId string, priority int, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.topics[topic]
	for i, s := range subs {
		if s.handlerId == handlerId {
			subs[i] = subscription{handlerId: handlerId, priority: priority, handler: handler}
			b.sortLocked(topic)
			return
		}
	}
	b.topics[topic] = append(subs, subscription{handlerId: handlerId, priority: priority, handler: handler})
	b.sortLocked(topic)
}

// sortLocked keeps subscribers sorted by descending priority, ties broken by
// original (subscription) order — Go's sort.SliceStable preserves that.
func (b *Bus) sortLocked(topic string) {
	subs := b.topics[topic]
	sort.SliceStable(subs, func(i, j int) bool { return subs[i].priority > subs[j].priority })
	b.topics[topic] = subs
}

// Unsubscribe removes handlerId from topic. A subsequent Publish delivers
// nothing to it.
func (b *Bus) Unsubscribe(topic, handlerId string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.topics[topic]
	for i, s := range subs {
		if s.handlerId == handlerId {
			b.topics[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish delivers payload to every subscriber of topic, in subscription
// (priority-adjusted) order, synchronously.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.Lock()
	subs := make([]subscription, len(b.topics[topic]))
	copy(subs, b.topics[topic])
	b.mu.Unlock()

	for _, s := range subs {
		s.handler(payload)
	}
}

// Register installs a point-to-point endpoint handler. Registering the same
// name again replaces the handler.
func (b *Bus) Register(endpoint string, handler EndpointHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.endpoints[endpoint] = handler
}

// Deregister removes an endpoint handler.
func (b *Bus) Deregister(endpoint string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.endpoints, endpoint)
}

// Send delivers payload to endpoint's registered handler. Returns an error if
// no handler is registered.
func (b *Bus) Send(endpoint string, payload any) error {
	b.mu.Lock()
	h, ok := b.endpoints[endpoint]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("msgbus: no endpoint registered for %q", endpoint)
	}
	h(payload)
	return nil
}

// Request sends payload to endpoint carrying correlationId and returns the
// response published on the dedicated response topic
// ("response."+correlationId) while Send ran. This models the
// request/response endpoint pattern of spec §4.B. Request does not wait: the
// handler invoked by Send must call Respond before it returns; if no response
// arrived by then, Request returns an error and a later Respond is not seen.
func (b *Bus) Request(endpoint string, correlationId string, payload any) (any, error) {
	ch := make(chan any, 1)
	respTopic := "response." + correlationId

	b.mu.Lock()
	b.correlation[correlationId] = ch
	b.mu.Unlock()

	b.Subscribe(respTopic, "request-waiter."+correlationId, 0, func(resp any) {
		select {
		case ch <- resp:
		default:
		}
	})
	defer func() {
		b.Unsubscribe(respTopic, "request-waiter."+correlationId)
		b.mu.Lock()
		delete(b.correlation, correlationId)
		b.mu.Unlock()
	}()

	if err := b.Send(endpoint, payload); err != nil {
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	default:
		return nil, fmt.Errorf("msgbus: no response delivered for correlation %q", correlationId)
	}
}

// Respond publishes a response for correlationId on its dedicated topic.
func (b *Bus) Respond(correlationId string, payload any) {
	b.Publish("response."+correlationId, payload)
}
