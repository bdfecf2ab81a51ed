package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Trader: TraderConfig{TraderId: "TRADER-001", AccountId: "ACCT-001"},
		Venues: []VenueConfig{
			{Name: "BINANCE", RestURL: "https://api.binance.example", Default: true},
		},
		Throttle: ThrottleConfig{Limit: 10, Interval: time.Second, BufferMode: "BUFFER"},
		Reconciliation: ReconciliationConfig{ThresholdMs: 1000, InflightMaxRetries: 3},
	}
}

func TestValidate_AcceptsWellFormedConfig(t *testing.T) {
	c := validConfig()
	assert.NoError(t, c.Validate())
}

func TestValidate_RequiresTraderId(t *testing.T) {
	c := validConfig()
	c.Trader.TraderId = ""
	assert.Error(t, c.Validate())
}

func TestValidate_RequiresAtLeastOneVenue(t *testing.T) {
	c := validConfig()
	c.Venues = nil
	assert.Error(t, c.Validate())
}

func TestValidate_RequiresDefaultVenueWhenMultiple(t *testing.T) {
	c := validConfig()
	c.Venues = append(c.Venues, VenueConfig{Name: "OKX", RestURL: "https://api.okx.example"})
	c.Venues[0].Default = false
	assert.Error(t, c.Validate())
}

func TestValidate_RejectsUnknownBufferMode(t *testing.T) {
	c := validConfig()
	c.Throttle.BufferMode = "EXPLODE"
	assert.Error(t, c.Validate())
}
