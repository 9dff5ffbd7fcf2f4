package asset

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Chain IDs
const (
	ChainIDEthereum = 1
	ChainIDOptimism = 10
	ChainIDPolygon  = 137
	ChainIDBase     = 8453
	ChainIDArbitrum = 42161
)

// NativePseudoAddress is the conventional placeholder many aggregators and
// oracles use for a chain's native coin in token-address positions.
const NativePseudoAddress = "0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE"

// IsNativeAddress reports whether s denotes the native coin (zero address
// or the 0xeeee… pseudo-address), case-insensitively.
func IsNativeAddress(s string) bool {
	ls := strings.ToLower(s)
	return ls == strings.ToLower(NativePseudoAddress) ||
		ls == "0x0000000000000000000000000000000000000000"
}

// Registry is a thread-safe registry of known assets.
type Registry struct {
	byID map[AssetID]*Asset
	mu   sync.RWMutex
}

// NewRegistry creates a new empty asset registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[AssetID]*Asset)}
}

// Register adds an asset to the registry.
// Panics if an asset with the same ID is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id := a.ID()
	if _, exists := r.byID[id]; exists {
		panic(fmt.Sprintf("asset: %s already registered", id))
	}
	r.byID[id] = a
}

// Get retrieves an asset by its ID.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	return a, ok
}

// GetNative retrieves the native coin for a chain.
func (r *Registry) GetNative(chainID uint64) (*Asset, bool) {
	return r.Get(NewNativeAssetID(chainID))
}

// GetToken retrieves a token by chain and address.
func (r *Registry) GetToken(chainID uint64, address common.Address) (*Asset, bool) {
	return r.Get(NewTokenAssetID(chainID, address))
}

// Resolve maps a chain and address string to a known asset, handling the
// native pseudo-address. Unknown tokens yield a generic 18-decimal asset so
// normalization never fails on an unlisted token.
func (r *Registry) Resolve(chainID uint64, address string) *Asset {
	if IsNativeAddress(address) {
		if a, ok := r.GetNative(chainID); ok {
			return a
		}
		return NewAsset(NewNativeAssetID(chainID), "NATIVE", 18)
	}
	addr := common.HexToAddress(address)
	if a, ok := r.GetToken(chainID, addr); ok {
		return a
	}
	return NewAsset(NewTokenAssetID(chainID, addr), addr.Hex()[:8], 18)
}

// Count returns the number of registered assets.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Well-known token addresses
var (
	// Ethereum mainnet
	AddrUSDCEthereum = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	AddrUSDTEthereum = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	AddrDAIEthereum  = common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F")
	AddrWETHEthereum = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	AddrWBTCEthereum = common.HexToAddress("0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599")

	// Polygon
	AddrUSDCPolygon = common.HexToAddress("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359")
	AddrWETHPolygon = common.HexToAddress("0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619")

	// Arbitrum One
	AddrUSDCArbitrum = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	AddrWETHArbitrum = common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1")

	// Base
	AddrUSDCBase = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	AddrWETHBase = common.HexToAddress("0x4200000000000000000000000000000000000006")
)

// DefaultRegistry returns a registry pre-populated with well-known assets
// on every supported chain.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Native coins
	r.Register(NewAssetWithName(NewNativeAssetID(ChainIDEthereum), "ETH", "Ethereum", 18))
	r.Register(NewAssetWithName(NewNativeAssetID(ChainIDPolygon), "POL", "Polygon", 18))
	r.Register(NewAssetWithName(NewNativeAssetID(ChainIDArbitrum), "ETH", "Ethereum", 18))
	r.Register(NewAssetWithName(NewNativeAssetID(ChainIDBase), "ETH", "Ethereum", 18))

	// Ethereum mainnet tokens
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrUSDCEthereum), "USDC", "USD Coin", 6))
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrUSDTEthereum), "USDT", "Tether USD", 6))
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrDAIEthereum), "DAI", "Dai Stablecoin", 18))
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrWETHEthereum), "WETH", "Wrapped Ether", 18))
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDEthereum, AddrWBTCEthereum), "WBTC", "Wrapped Bitcoin", 8))

	// Polygon tokens
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDPolygon, AddrUSDCPolygon), "USDC", "USD Coin", 6))
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDPolygon, AddrWETHPolygon), "WETH", "Wrapped Ether", 18))

	// Arbitrum tokens
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDArbitrum, AddrUSDCArbitrum), "USDC", "USD Coin", 6))
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDArbitrum, AddrWETHArbitrum), "WETH", "Wrapped Ether", 18))

	// Base tokens
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDBase, AddrUSDCBase), "USDC", "USD Coin", 6))
	r.Register(NewAssetWithName(NewTokenAssetID(ChainIDBase, AddrWETHBase), "WETH", "Wrapped Ether", 18))

	return r
}
