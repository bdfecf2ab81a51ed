package throttle

import (
	"testing"
	"time"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThrottler_BufferAndDrain(t *testing.T) {
	clk := clock.NewTestClock(0)

	var sent []any
	th := New("orders", 5, 10*time.Nanosecond, clk, func(msg any) {
		sent = append(sent, msg)
	}, nil)

	for i := 1; i <= 6; i++ {
		th.Send(i)
	}

	assert.Equal(t, []any{1, 2, 3, 4, 5}, sent)
	assert.Equal(t, 1, th.Qsize())
	assert.True(t, th.IsLimiting())
	assert.Equal(t, 1.0, th.Used())

	clk.AdvanceTime(10)

	assert.Equal(t, []any{1, 2, 3, 4, 5, 6}, sent)
	assert.Equal(t, 0, th.Qsize())
	assert.InDelta(t, 0.2, th.Used(), 1e-9)
}

func TestThrottler_DropPolicy(t *testing.T) {
	clk := clock.NewTestClock(0)

	var sent, dropped []any
	th := New("book", 2, 10*time.Nanosecond, clk,
		func(msg any) { sent = append(sent, msg) },
		func(msg any) { dropped = append(dropped, msg) },
	)

	th.Send("a")
	th.Send("b")
	th.Send("c")

	require.Equal(t, []any{"a", "b"}, sent)
	assert.Equal(t, []any{"c"}, dropped)
	assert.Equal(t, 0, th.Qsize(), "drop policy never buffers")
	assert.True(t, th.IsLimiting())

	clk.AdvanceTime(10)
	assert.False(t, th.IsLimiting())
}

func TestThrottler_Reset(t *testing.T) {
	clk := clock.NewTestClock(0)
	var sent []any
	th := New("cancel", 1, 10*time.Nanosecond, clk, func(msg any) { sent = append(sent, msg) }, nil)

	th.Send(1)
	th.Send(2)
	assert.Equal(t, 1, th.Qsize())

	th.Reset()
	assert.Equal(t, 0, th.Qsize())
	assert.False(t, th.IsLimiting())
	assert.Equal(t, 0.0, th.Used())
}
