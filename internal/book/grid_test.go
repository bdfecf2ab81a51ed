package book

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrid_ToTicksConfigMissing(t *testing.T) {
	g := NewGrid()
	_, _, err := g.ToTicks("ETH", "1800.50", "2.5")
	require.Error(t, err)
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, ConfigMissing, convErr.Kind)
}

func TestGrid_ToTicksInvalidPrice(t *testing.T) {
	g := NewGrid()
	g.Configure("ETH", GridConfig{PriceDecimals: 2, SizeDecimals: 5})

	_, _, err := g.ToTicks("ETH", "not-a-number", "2.5")
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, InvalidPrice, convErr.Kind)
}

func TestGrid_ToTicksInvalidSize(t *testing.T) {
	g := NewGrid()
	g.Configure("ETH", GridConfig{PriceDecimals: 2, SizeDecimals: 5})

	_, _, err := g.ToTicks("ETH", "1800.50", "not-a-number")
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, InvalidSize, convErr.Kind)
}

func TestGrid_ToTicksOverflow(t *testing.T) {
	g := NewGrid()
	g.Configure("ETH", GridConfig{PriceDecimals: 10, SizeDecimals: 10})

	_, _, err := g.ToTicks("ETH", "99999999999999999999", "1")
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, PriceOverflow, convErr.Kind)

	_, _, err = g.ToTicks("ETH", "1", "99999999999999999999")
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, SizeOverflow, convErr.Kind)
}

func TestGrid_ToTicksRoundTrip(t *testing.T) {
	g := NewGrid()
	g.Configure("ETH", GridConfig{PriceDecimals: 2, SizeDecimals: 5})

	priceTicks, sizeTicks, err := g.ToTicks("ETH", "1800.50", "2.12345")
	require.NoError(t, err)
	assert.Equal(t, int64(180050), priceTicks)
	assert.Equal(t, int64(212345), sizeTicks)

	px, sz, err := g.FromTicks("ETH", priceTicks, sizeTicks)
	require.NoError(t, err)
	assert.Equal(t, "1800.50", px.String())
	assert.Equal(t, "2.12345", sz.String())
}
