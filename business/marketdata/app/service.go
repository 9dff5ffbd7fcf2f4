package app

import (
	"context"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

const (
	defaultPriceTTL = 10 * time.Second
	defaultGasTTL   = 15 * time.Second
)

// Static fallback prices used when the upstream oracle is unavailable.
// Oracle failures are recovered here and never surface to callers.
var (
	fallbackNativeUSD = decimal.NewFromInt(2000)
	fallbackTokenUSD  = decimal.NewFromInt(1)
	fallbackGasWei    = big.NewInt(25_000_000_000) // 25 gwei
)

type cachedPrice struct {
	price     domain.TokenPrice
	expiresAt time.Time
}

type cachedGas struct {
	gas       domain.GasPrice
	expiresAt time.Time
}

// OracleService serves token USD prices and chain gas prices with a short
// TTL cache in front of the upstream sources.
type OracleService struct {
	prices PriceSource
	gas    GasSource
	log    logger.LoggerInterface

	priceTTL time.Duration
	gasTTL   time.Duration

	// per-chain static gas defaults, consulted before the global fallback
	gasDefaults map[uint64]*big.Int

	mu         sync.RWMutex
	priceCache map[string]cachedPrice
	gasCache   map[uint64]cachedGas
}

// OracleOption configures the OracleService.
type OracleOption func(*OracleService)

// WithPriceTTL overrides the price cache TTL.
func WithPriceTTL(ttl time.Duration) OracleOption {
	return func(s *OracleService) {
		if ttl > 0 {
			s.priceTTL = ttl
		}
	}
}

// WithGasTTL overrides the gas cache TTL.
func WithGasTTL(ttl time.Duration) OracleOption {
	return func(s *OracleService) {
		if ttl > 0 {
			s.gasTTL = ttl
		}
	}
}

// WithGasDefaults sets per-chain fallback gas prices.
func WithGasDefaults(defaults map[uint64]*big.Int) OracleOption {
	return func(s *OracleService) {
		s.gasDefaults = defaults
	}
}

// NewOracleService creates the oracle facade over the given sources.
func NewOracleService(prices PriceSource, gas GasSource, log logger.LoggerInterface, opts ...OracleOption) *OracleService {
	s := &OracleService{
		prices:     prices,
		gas:        gas,
		log:        log,
		priceTTL:   defaultPriceTTL,
		gasTTL:     defaultGasTTL,
		priceCache: make(map[string]cachedPrice),
		gasCache:   make(map[uint64]cachedGas),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenPricesUSD returns a USD price for every requested token. It never
// returns an error: tokens the upstream cannot price get static fallback
// values tagged source="fallback".
func (s *OracleService) TokenPricesUSD(ctx context.Context, chainID uint64, tokens []string) map[string]domain.TokenPrice {
	result := make(map[string]domain.TokenPrice, len(tokens))
	var missing []string

	now := time.Now()
	s.mu.RLock()
	for _, token := range tokens {
		key := priceKey(chainID, token)
		if entry, ok := s.priceCache[key]; ok && now.Before(entry.expiresAt) {
			result[strings.ToLower(token)] = entry.price
		} else {
			missing = append(missing, token)
		}
	}
	s.mu.RUnlock()

	if len(missing) == 0 {
		return result
	}

	fetched, err := s.prices.TokenPricesUSD(ctx, chainID, missing)
	if err != nil {
		s.log.Warn(ctx, "price oracle unavailable, using fallback prices",
			"chainId", chainID, "error", err)
		fetched = nil
	}

	byToken := make(map[string]domain.TokenPrice, len(fetched))
	for _, p := range fetched {
		byToken[strings.ToLower(p.Token)] = p
	}

	s.mu.Lock()
	for _, token := range missing {
		lower := strings.ToLower(token)
		price, ok := byToken[lower]
		if !ok {
			price = fallbackPrice(token)
		}
		result[lower] = price
		s.priceCache[priceKey(chainID, token)] = cachedPrice{
			price:     price,
			expiresAt: now.Add(s.priceTTL),
		}
	}
	s.mu.Unlock()

	return result
}

// GasPrice returns the chain's gas price in wei, falling back to the static
// per-chain default when the upstream source fails. Never returns an error.
func (s *OracleService) GasPrice(ctx context.Context, chainID uint64) domain.GasPrice {
	now := time.Now()
	s.mu.RLock()
	if entry, ok := s.gasCache[chainID]; ok && now.Before(entry.expiresAt) {
		s.mu.RUnlock()
		return entry.gas
	}
	s.mu.RUnlock()

	gas, err := s.gas.GasPrice(ctx, chainID)
	if err != nil {
		s.log.Warn(ctx, "gas oracle unavailable, using fallback gas price",
			"chainId", chainID, "error", err)
		gas = s.fallbackGas(chainID)
	}

	s.mu.Lock()
	s.gasCache[chainID] = cachedGas{gas: gas, expiresAt: now.Add(s.gasTTL)}
	s.mu.Unlock()

	return gas
}

func (s *OracleService) fallbackGas(chainID uint64) domain.GasPrice {
	price := fallbackGasWei
	if def, ok := s.gasDefaults[chainID]; ok && def != nil {
		price = def
	}
	return domain.GasPrice{
		ChainID:   chainID,
		PriceWei:  new(big.Int).Set(price),
		Timestamp: time.Now(),
		Source:    domain.SourceFallback,
	}
}

func fallbackPrice(token string) domain.TokenPrice {
	price := fallbackTokenUSD
	if asset.IsNativeAddress(token) {
		price = fallbackNativeUSD
	}
	return domain.TokenPrice{
		Token:     strings.ToLower(token),
		PriceUSD:  price,
		Timestamp: time.Now(),
		Source:    domain.SourceFallback,
	}
}

func priceKey(chainID uint64, token string) string {
	return strings.ToLower(token) + "@" + strconv.FormatUint(chainID, 10)
}
