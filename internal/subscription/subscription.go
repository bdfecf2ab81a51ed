// Package subscription tracks per-DEX pool subscriptions and normalized
// event-signature topics for blockchain market-data adapters (spec §4.G).
// Grounded on the teacher's internal/exchange.WSFeed subscription bookkeeping
// (a set of tracked ids plus subscribe/unsubscribe/resubscribe-on-reconnect),
// generalized from one flat id set to per-DexType, per-event-kind sets, and
// using go-ethereum's crypto.Keccak256 to derive the topic hashes the
// teacher's CEX-facing feed never needed.
package subscription

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/crypto"
)

// DexType identifies a DEX protocol family, e.g. "UNISWAP_V3", "CURVE".
type DexType string

// EventKind is one of the pool event kinds a DEX adapter can subscribe to.
type EventKind string

const (
	EventSwap    EventKind = "swap"
	EventMint    EventKind = "mint"
	EventBurn    EventKind = "burn"
	EventCollect EventKind = "collect"
	EventFlash   EventKind = "flash"
)

var allEventKinds = []EventKind{EventSwap, EventMint, EventBurn, EventCollect, EventFlash}

// eventSignatures maps each supported DexType to the Solidity event
// signatures it emits per EventKind, keccak256-normalized to a 0x-lowercased
// 32-byte topic once at RegisterDex time.
var eventSignatures = map[DexType]map[EventKind]string{
	"UNISWAP_V2": {
		EventSwap: "Swap(address,uint256,uint256,uint256,uint256,address)",
		EventMint: "Mint(address,uint256,uint256)",
		EventBurn: "Burn(address,uint256,uint256,address)",
	},
	"UNISWAP_V3": {
		EventSwap:    "Swap(address,address,int256,int256,uint160,uint128,int24)",
		EventMint:    "Mint(address,address,int24,int24,uint128,uint256,uint256)",
		EventBurn:    "Burn(address,int24,int24,uint128,uint256,uint256)",
		EventCollect: "Collect(address,address,int24,int24,uint128,uint128)",
		EventFlash:   "Flash(address,address,uint256,uint256,uint256,uint256)",
	},
}

// Topic returns the keccak256 hash of a Solidity event signature, formatted
// as a 0x-lowercased 32-byte hex string — the normalized form a DEX log
// filter matches against.
func Topic(signature string) string {
	sum := crypto.Keccak256([]byte(signature))
	return "0x" + strings.ToLower(hexEncode(sum))
}

// Normalize accepts any of the three forms spec §6 names — a raw Solidity
// event signature string, a "0x"-prefixed 64-char hex topic, or an
// unprefixed 64-char hex topic — and returns the "0x"-lowercased 32-byte
// hex form. Already-normalized input passes through unchanged, so
// Normalize(Normalize(x)) == Normalize(x) (spec §8).
func Normalize(input string) string {
	trimmed := strings.TrimPrefix(input, "0x")
	if len(trimmed) == 64 && isHex(trimmed) {
		return "0x" + strings.ToLower(trimmed)
	}
	return Topic(input)
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func hexEncode(b []byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = hexdigits[c>>4]
		out[i*2+1] = hexdigits[c&0x0f]
	}
	return string(out)
}

// perDexState holds the subscribed pool-address sets and normalized topics
// for one registered DEX.
type perDexState struct {
	pools  map[EventKind]map[string]bool
	topics map[EventKind]string
}

// Manager tracks subscribed pool addresses and normalized event topics per
// registered DexType.
type Manager struct {
	mu    sync.RWMutex
	state map[DexType]*perDexState
}

func New() *Manager {
	return &Manager{state: make(map[DexType]*perDexState)}
}

// RegisterDex seeds empty subscription sets and normalized topics for dex.
// Re-registering is idempotent and does not clear existing subscriptions.
func (m *Manager) RegisterDex(dex DexType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.state[dex]; ok {
		return nil
	}
	sigs, known := eventSignatures[dex]
	if !known {
		return fmt.Errorf("subscription: unknown dex type %q", dex)
	}

	st := &perDexState{
		pools:  make(map[EventKind]map[string]bool),
		topics: make(map[EventKind]string),
	}
	for _, kind := range allEventKinds {
		st.pools[kind] = make(map[string]bool)
		if sig, ok := sigs[kind]; ok {
			st.topics[kind] = Normalize(sig)
		}
	}
	m.state[dex] = st
	return nil
}

func (m *Manager) subscribe(dex DexType, kind EventKind, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.state[dex]
	if !ok {
		return fmt.Errorf("subscription: %s not registered, call RegisterDex first", dex)
	}
	if _, ok := st.topics[kind]; !ok {
		return fmt.Errorf("subscription: %s does not emit %s events", dex, kind)
	}
	st.pools[kind][strings.ToLower(address)] = true
	return nil
}

func (m *Manager) SubscribeSwap(dex DexType, addr string) error    { return m.subscribe(dex, EventSwap, addr) }
func (m *Manager) SubscribeMint(dex DexType, addr string) error    { return m.subscribe(dex, EventMint, addr) }
func (m *Manager) SubscribeBurn(dex DexType, addr string) error    { return m.subscribe(dex, EventBurn, addr) }
func (m *Manager) SubscribeCollect(dex DexType, addr string) error { return m.subscribe(dex, EventCollect, addr) }
func (m *Manager) SubscribeFlash(dex DexType, addr string) error   { return m.subscribe(dex, EventFlash, addr) }

// Unsubscribe removes addr from dex's subscription set for kind.
func (m *Manager) Unsubscribe(dex DexType, kind EventKind, addr string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[dex]
	if !ok {
		return fmt.Errorf("subscription: %s not registered", dex)
	}
	delete(st.pools[kind], strings.ToLower(addr))
	return nil
}

// Topics returns the normalized event-signature topic for (dex, kind).
func (m *Manager) Topics(dex DexType, kind EventKind) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.state[dex]
	if !ok {
		return "", false
	}
	t, ok := st.topics[kind]
	return t, ok
}

// GetSubscribedDexContractAddresses returns the deduplicated union of pool
// addresses subscribed across every event kind for dex.
func (m *Manager) GetSubscribedDexContractAddresses(dex DexType) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.state[dex]
	if !ok {
		return nil
	}
	union := make(map[string]bool)
	for _, addrs := range st.pools {
		for a := range addrs {
			union[a] = true
		}
	}
	out := make([]string, 0, len(union))
	for a := range union {
		out = append(out, a)
	}
	return out
}
