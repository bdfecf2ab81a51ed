package subscription

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopic_WellKnownSignature(t *testing.T) {
	// ERC20 Transfer — a widely published keccak256 topic, used here as a
	// canary that the hashing/encoding pipeline matches spec's expected form.
	got := Topic("Transfer(address,address,uint256)")
	assert.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", got)
}

func TestNormalize_AcceptsAllThreeForms(t *testing.T) {
	raw := "Transfer(address,address,uint256)"
	want := "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef"

	assert.Equal(t, want, Normalize(raw))
	assert.Equal(t, want, Normalize(want))
	assert.Equal(t, want, Normalize(strings.ToUpper(want[2:])))
	assert.Equal(t, want, Normalize(strings.TrimPrefix(want, "0x")))
}

func TestNormalize_Idempotent(t *testing.T) {
	raw := "Swap(address,address,int256,int256,uint160,uint128,int24)"
	once := Normalize(raw)
	assert.Equal(t, once, Normalize(once))
}

func TestManager_RegisterAndSubscribe(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterDex("UNISWAP_V3"))

	require.NoError(t, m.SubscribeSwap("UNISWAP_V3", "0xAbC0000000000000000000000000000000dEaD"))
	require.NoError(t, m.SubscribeMint("UNISWAP_V3", "0xAbC0000000000000000000000000000000dEaD"))
	require.NoError(t, m.SubscribeBurn("UNISWAP_V3", "0x1111111111111111111111111111111111aaaa"))

	addrs := m.GetSubscribedDexContractAddresses("UNISWAP_V3")
	assert.ElementsMatch(t, []string{
		"0xabc0000000000000000000000000000000dead",
		"0x1111111111111111111111111111111111aaaa",
	}, addrs)

	topic, ok := m.Topics("UNISWAP_V3", EventSwap)
	require.True(t, ok)
	assert.Equal(t, Topic("Swap(address,address,int256,int256,uint160,uint128,int24)"), topic)
}

func TestManager_SubscribeRequiresRegistration(t *testing.T) {
	m := New()
	err := m.SubscribeSwap("UNISWAP_V3", "0xabc")
	assert.Error(t, err)
}

func TestManager_SubscribeUnsupportedEventKind(t *testing.T) {
	m := New()
	require.NoError(t, m.RegisterDex("UNISWAP_V2"))
	err := m.SubscribeCollect("UNISWAP_V2", "0xabc")
	assert.Error(t, err, "UNISWAP_V2 has no Collect event in its signature table")
}
