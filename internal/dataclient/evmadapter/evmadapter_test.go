package evmadapter

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nautechsystems/nautilus-trader-sub010/internal/book"
	"github.com/nautechsystems/nautilus-trader-sub010/internal/dataclient"
	"github.com/nautechsystems/nautilus-trader-sub010/pkg/model"
)

func newTestAdapter(publishers []PublisherEntry) *Adapter {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return New(model.ClientId("TEST-1"), "wss://example.invalid", "https://example.invalid", "", publishers, func(d dataclient.Data) {}, logger)
}

func TestAdapter_QuantizeUsesPublisherGridConfig(t *testing.T) {
	iid := model.InstrumentId{Symbol: "ETH-USDC", Venue: "UNI-V3"}
	a := newTestAdapter([]PublisherEntry{
		{Symbol: "ETH-USDC", InstrumentId: iid, Grid: book.GridConfig{PriceDecimals: 2, SizeDecimals: 5}},
	})

	px, sz, err := a.quantize("ETH-USDC", "1800.50", "2.12345")
	require.NoError(t, err)
	assert.Equal(t, "1800.50", px.String())
	assert.Equal(t, "2.12345", sz.String())
}

func TestAdapter_QuantizeConfigMissing(t *testing.T) {
	a := newTestAdapter(nil)

	_, _, err := a.quantize("ETH-USDC", "1800.50", "2.5")
	require.Error(t, err)
	var convErr *book.ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, book.ConfigMissing, convErr.Kind)
}

func TestAdapter_ConfigureGridAfterConstruction(t *testing.T) {
	a := newTestAdapter(nil)
	a.ConfigureGrid("ETH-USDC", book.GridConfig{PriceDecimals: 2, SizeDecimals: 2})

	px, sz, err := a.quantize("ETH-USDC", "10.00", "1.00")
	require.NoError(t, err)
	assert.Equal(t, "10.00", px.String())
	assert.Equal(t, "1.00", sz.String())
}
