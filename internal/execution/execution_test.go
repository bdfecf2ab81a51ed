package execution

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/cache"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/order"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/throttle"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

type stubStream struct{}

func (stubStream) Connect(ctx context.Context) error        { return nil }
func (stubStream) Disconnect() error                        { return nil }
func (stubStream) IsActive() bool                            { return true }
func (stubStream) SubscribeOrders(ctx context.Context) error { return nil }
func (stubStream) SubscribeAccount(ctx context.Context) error { return nil }
func (stubStream) SendCommand(ctx context.Context, cmd any) error { return nil }

func newTestClient() *Client {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	clk := clock.NewTestClock(0)
	// unbuffered limit so Send invokes output_send synchronously in tests.
	th := throttle.New("test-submit", 1000, time.Second, clk, func(msg any) {
		if fn, ok := msg.(func()); ok {
			fn()
		}
	}, nil)
	return New(Config{BaseURL: "https://example.invalid", AccountId: "ACC-1", ClientId: "CL-1"}, stubStream{}, cache.New(nil), th, logger)
}

func newTestOrder(t *testing.T, coid string) *order.Order {
	t.Helper()
	iid := model.InstrumentId{Symbol: "BTC-USDT", Venue: "TESTVENUE"}
	qty := model.NewQuantity(1, 4)
	o, err := order.NewOrder(model.ClientOrderId(coid), iid, model.SideBuy, order.OrderTypeMarket, qty, order.TIFGTC, 0, 0)
	require.NoError(t, err)
	return o
}

func TestSubmitOrder_TracksAndUntracksInflight(t *testing.T) {
	c := newTestClient()
	o := newTestOrder(t, "coid-1")

	done := make(chan struct{})
	submit := func(ctx context.Context, o *order.Order) error {
		close(done)
		return nil
	}

	c.SubmitOrder(context.Background(), o, submit, 0)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("submit was never invoked")
	}

	c.mu.Lock()
	_, stillTracked := c.inflight["coid-1"]
	c.mu.Unlock()
	assert.False(t, stillTracked, "inflight entry should be cleared once the submission completes")
}

func TestSubmitOrder_RejectedOnSubmitError(t *testing.T) {
	c := newTestClient()
	o := newTestOrder(t, "coid-2")

	submit := func(ctx context.Context, o *order.Order) error {
		return errors.New("venue unreachable")
	}

	c.SubmitOrder(context.Background(), o, submit, 0)

	assert.Equal(t, order.StatusRejected, o.Status)
}

func TestStop_AbortsInflightTasks(t *testing.T) {
	c := newTestClient()
	o := newTestOrder(t, "coid-3")

	block := make(chan struct{})
	submit := func(ctx context.Context, o *order.Order) error {
		<-block
		return ctx.Err()
	}

	// Send directly through the throttler's buffer path is avoided here;
	// instead drive SubmitOrder and inspect the registry before the
	// blocked submission completes.
	go c.SubmitOrder(context.Background(), o, submit, 0)

	require.Eventually(t, func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		_, ok := c.inflight["coid-3"]
		return ok
	}, time.Second, time.Millisecond)

	require.NoError(t, c.Stop())
	close(block)
}
