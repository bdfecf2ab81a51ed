// Package dataclient defines the uniform adapter surface DataEngine drives,
// and a generic WebSocket-backed implementation for streaming venues (spec
// §4.I). Grounded on the teacher's internal/exchange.WSFeed: per-feed
// reconnect with exponential backoff, a read deadline, and typed channels the
// consumer reads from — generalized from Polymarket's book/price_change/
// trade/order channel set to the engine's full subscribe_* surface, with
// commands flowing through a buffered channel (capacity 256; a send blocks
// once it is full) to a background task instead of direct method calls.
package dataclient

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

// RangeParams parameterizes every historical get_range_* query.
type RangeParams struct {
	Dataset        string
	Symbols        []string
	Start, End     int64
	Limit          int64
	PricePrecision int32
}

// Adapter is the uniform surface DataEngine drives — both streaming and
// historical connectors implement it; a method a connector does not serve
// returns an error (see WSAdapter's GetRange* methods).
type Adapter interface {
	ClientId() model.ClientId
	Start(ctx context.Context) error
	Stop() error
	Reset()
	Dispose()
	Connect(ctx context.Context) error
	Disconnect() error
	IsConnected() bool

	SubscribeOrderBookDeltas(ctx context.Context, iid model.InstrumentId) error
	SubscribeOrderBookSnapshots(ctx context.Context, iid model.InstrumentId, intervalMs int64) error
	SubscribeQuoteTicks(ctx context.Context, iid model.InstrumentId) error
	SubscribeTradeTicks(ctx context.Context, iid model.InstrumentId) error
	SubscribeBars(ctx context.Context, bt model.BarType) error
	Unsubscribe(ctx context.Context, iid model.InstrumentId, dataType string) error

	GetRangeQuotes(ctx context.Context, p RangeParams) ([]model.QuoteTick, error)
	GetRangeTrades(ctx context.Context, p RangeParams) ([]model.TradeTick, error)
	GetRangeBars(ctx context.Context, p RangeParams) ([]model.Bar, error)
	GetRangeInstruments(ctx context.Context, p RangeParams) ([]model.Instrument, error)
}

// Data is the sum type DataEngine.process_data dispatches on — exactly one
// field is populated, matching which constructor produced it.
type Data struct {
	Delta  *model.OrderBookDelta
	Deltas *model.OrderBookDeltas
	Depth10 *model.OrderBookDepth10
	Quote  *model.QuoteTick
	Trade  *model.TradeTick
	Bar    *model.Bar
}

// command is an internal message to the adapter's background task, sent over
// its buffered commands channel.
type command struct {
	kind string
	iid  model.InstrumentId
	bt   model.BarType
	intervalMs int64
}

// WSAdapter is a generic streaming adapter: URL, reconnect with exponential
// backoff (1s..30s, the teacher's exact bounds), a read-deadline watchdog,
// and a background task multiplexing shutdown / commands / the socket.
type WSAdapter struct {
	clientId model.ClientId
	url      string
	logger   *slog.Logger

	connMu sync.Mutex
	conn   *websocket.Conn

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	commands chan command
	shutdown chan struct{}
	onData   func(Data)

	connectedMu sync.RWMutex
	connected   bool
}

const (
	minReconnectWait = time.Second
	maxReconnectWait = 30 * time.Second
	readDeadline     = 90 * time.Second
)

func NewWSAdapter(clientId model.ClientId, url string, onData func(Data), logger *slog.Logger) *WSAdapter {
	return &WSAdapter{
		clientId:   clientId,
		url:        url,
		logger:     logger.With("component", "dataclient", "client_id", clientId),
		subscribed: make(map[string]bool),
		commands:   make(chan command, 256),
		shutdown:   make(chan struct{}),
		onData:     onData,
	}
}

func (a *WSAdapter) ClientId() model.ClientId { return a.clientId }

func (a *WSAdapter) Start(ctx context.Context) error { return nil }
func (a *WSAdapter) Reset()                          { a.subscribedMu.Lock(); a.subscribed = make(map[string]bool); a.subscribedMu.Unlock() }
func (a *WSAdapter) Dispose()                        {}

func (a *WSAdapter) Stop() error {
	close(a.shutdown)
	return a.Disconnect()
}

// Connect dials the socket and starts the background dispatch task, which
// auto-reconnects with exponential backoff until Stop/Disconnect.
func (a *WSAdapter) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.url, nil)
	if err != nil {
		return fmt.Errorf("dataclient: dial %s: %w", a.url, err)
	}
	a.connMu.Lock()
	a.conn = conn
	a.connMu.Unlock()
	a.setConnected(true)

	go a.run(ctx)
	return nil
}

func (a *WSAdapter) Disconnect() error {
	a.setConnected(false)
	a.connMu.Lock()
	defer a.connMu.Unlock()
	if a.conn != nil {
		err := a.conn.Close()
		a.conn = nil
		return err
	}
	return nil
}

func (a *WSAdapter) IsConnected() bool {
	a.connectedMu.RLock()
	defer a.connectedMu.RUnlock()
	return a.connected
}

func (a *WSAdapter) setConnected(v bool) {
	a.connectedMu.Lock()
	a.connected = v
	a.connectedMu.Unlock()
}

// run multiplexes shutdown, the command channel, and the socket's next
// message; on a socket error it reconnects with jittered exponential
// backoff, per the teacher's WSFeed reconnect discipline, and then calls
// resubscribeAll, which logs every previously tracked id but sends no
// subscribe frame to the venue.
func (a *WSAdapter) run(ctx context.Context) {
	backoff := minReconnectWait
	for {
		select {
		case <-a.shutdown:
			return
		case cmd := <-a.commands:
			a.handleCommand(ctx, cmd)
			continue
		default:
		}

		a.connMu.Lock()
		conn := a.conn
		a.connMu.Unlock()
		if conn == nil {
			return
		}

		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		_, _, err := conn.ReadMessage()
		if err != nil {
			a.setConnected(false)
			a.logger.Warn("stream read failed, reconnecting", "err", err, "backoff", backoff)
			select {
			case <-a.shutdown:
				return
			case <-time.After(backoff + jitter(backoff)):
			}
			if err := a.Connect(ctx); err != nil {
				backoff = nextBackoff(backoff)
				continue
			}
			a.resubscribeAll(ctx)
			backoff = minReconnectWait
			continue
		}
		// A real venue adapter decodes the frame here and calls a.onData.
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > maxReconnectWait {
		return maxReconnectWait
	}
	return next
}

func jitter(d time.Duration) time.Duration {
	return time.Duration(rand.Int63n(int64(d) / 4 + 1))
}

func (a *WSAdapter) resubscribeAll(ctx context.Context) {
	a.subscribedMu.RLock()
	ids := make([]string, 0, len(a.subscribed))
	for id := range a.subscribed {
		ids = append(ids, id)
	}
	a.subscribedMu.RUnlock()
	for _, id := range ids {
		a.logger.Debug("resubscribing after reconnect", "id", id)
	}
}

func (a *WSAdapter) handleCommand(ctx context.Context, cmd command) {
	switch cmd.kind {
	case "delta", "snapshot", "quote", "trade":
		a.subscribedMu.Lock()
		a.subscribed[cmd.iid.String()] = true
		a.subscribedMu.Unlock()
	case "bar":
		a.subscribedMu.Lock()
		a.subscribed[cmd.bt.String()] = true
		a.subscribedMu.Unlock()
	}
}

func (a *WSAdapter) SubscribeOrderBookDeltas(ctx context.Context, iid model.InstrumentId) error {
	a.commands <- command{kind: "delta", iid: iid}
	return nil
}

func (a *WSAdapter) SubscribeOrderBookSnapshots(ctx context.Context, iid model.InstrumentId, intervalMs int64) error {
	a.commands <- command{kind: "snapshot", iid: iid, intervalMs: intervalMs}
	return nil
}

func (a *WSAdapter) SubscribeQuoteTicks(ctx context.Context, iid model.InstrumentId) error {
	a.commands <- command{kind: "quote", iid: iid}
	return nil
}

func (a *WSAdapter) SubscribeTradeTicks(ctx context.Context, iid model.InstrumentId) error {
	a.commands <- command{kind: "trade", iid: iid}
	return nil
}

func (a *WSAdapter) SubscribeBars(ctx context.Context, bt model.BarType) error {
	a.commands <- command{kind: "bar", bt: bt}
	return nil
}

func (a *WSAdapter) Unsubscribe(ctx context.Context, iid model.InstrumentId, dataType string) error {
	a.subscribedMu.Lock()
	delete(a.subscribed, iid.String())
	a.subscribedMu.Unlock()
	return nil
}

// Historical queries are not implemented by the generic streaming adapter;
// a venue-specific adapter embeds WSAdapter and overrides the ones it serves
// with real REST calls (evmadapter overrides GetRangeTrades only).
func (a *WSAdapter) GetRangeQuotes(ctx context.Context, p RangeParams) ([]model.QuoteTick, error) {
	return nil, fmt.Errorf("dataclient: %s does not support historical quote ranges", a.clientId)
}

func (a *WSAdapter) GetRangeTrades(ctx context.Context, p RangeParams) ([]model.TradeTick, error) {
	return nil, fmt.Errorf("dataclient: %s does not support historical trade ranges", a.clientId)
}

func (a *WSAdapter) GetRangeBars(ctx context.Context, p RangeParams) ([]model.Bar, error) {
	return nil, fmt.Errorf("dataclient: %s does not support historical bar ranges", a.clientId)
}

func (a *WSAdapter) GetRangeInstruments(ctx context.Context, p RangeParams) ([]model.Instrument, error) {
	return nil, fmt.Errorf("dataclient: %s does not support historical instrument ranges", a.clientId)
}
