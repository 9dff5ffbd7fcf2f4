package app

import (
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	marketdomain "github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/asset"
)

var (
	weiPerEther         = decimal.New(1, 18)
	effectivePriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// NormalizeParams carries per-venue extraction results into the shared
// normalization math.
type NormalizeParams struct {
	Raw            *domain.RawQuote
	AmountOut      *big.Int
	GasEstimate    *big.Int // nil when the venue reported none
	PriceImpactBps int64
	Prices         map[string]marketdomain.TokenPrice
	Gas            marketdomain.GasPrice
	Registry       *asset.Registry
	TTLSeconds     int64
	ConfidenceBase float64
	DustUSD        float64
}

// BuildNormalizedQuote derives the canonical quote from a venue payload and
// the shared oracle data. Deadline is always Timestamp + TTL.
func BuildNormalizedQuote(p NormalizeParams) (domain.NormalizedQuote, error) {
	raw := p.Raw
	if raw == nil {
		return domain.NormalizedQuote{}, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("raw quote is nil"))
	}

	amountIn, ok := new(big.Int).SetString(raw.AmountIn, 10)
	if !ok || amountIn.Sign() <= 0 {
		return domain.NormalizedQuote{}, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext(fmt.Sprintf("invalid amountIn %q", raw.AmountIn)))
	}
	if p.AmountOut == nil || p.AmountOut.Sign() <= 0 {
		return domain.NormalizedQuote{}, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("amountOut must be positive"))
	}

	assetIn := p.Registry.Resolve(raw.ChainID, raw.TokenIn)

	amountInHuman := decimal.NewFromBigInt(amountIn, -int32(assetIn.Decimals()))
	notionalUSD := amountInHuman.Mul(lookupPrice(p.Prices, raw.TokenIn))

	gasEstimate := big.NewInt(0)
	hasGas := p.GasEstimate != nil && p.GasEstimate.Sign() > 0
	if hasGas {
		gasEstimate = p.GasEstimate
	}

	gasPriceWei := big.NewInt(0)
	if p.Gas.PriceWei != nil {
		gasPriceWei = p.Gas.PriceWei
	}

	// gasUSD = gasEstimate * gasPrice (wei) -> native units -> USD
	gasWei := decimal.NewFromBigInt(new(big.Int).Mul(gasEstimate, gasPriceWei), 0)
	nativeUSD := lookupPrice(p.Prices, asset.NativePseudoAddress)
	gasUSD := gasWei.Div(weiPerEther).Mul(nativeUSD)

	// effectivePrice = amountOut * 1e18 / amountIn, a scaled integer ratio
	effective := new(big.Int).Mul(p.AmountOut, effectivePriceScale)
	effective.Quo(effective, amountIn)

	now := time.Now()
	ttl := p.TTLSeconds
	if ttl <= 0 {
		ttl = 60
	}

	impact := p.PriceImpactBps
	if impact < 0 {
		impact = 0
	}
	if impact > 10000 {
		impact = 10000
	}

	notionalFloat, _ := notionalUSD.Float64()

	return domain.NormalizedQuote{
		Router:          raw.Router,
		RouterType:      raw.RouterType,
		ChainID:         raw.ChainID,
		TokenIn:         raw.TokenIn,
		TokenOut:        raw.TokenOut,
		AmountIn:        amountIn.String(),
		AmountOut:       p.AmountOut.String(),
		TokenInDecimals: assetIn.Decimals(),
		PriceImpactBps:  impact,
		EffectivePrice:  effective.String(),
		GasEstimate:     gasEstimate.String(),
		GasPrice:        gasPriceWei.String(),
		GasUSD:          gasUSD.StringFixed(6),
		NotionalUSD:     notionalUSD.StringFixed(6),
		Deadline:        now.Unix() + ttl,
		TTL:             ttl,
		Timestamp:       now,
		Source:          string(raw.RouterType),
		Confidence:      Confidence(p.ConfidenceBase, hasGas, impact, notionalFloat, p.DustUSD),
	}, nil
}

// ApplyPriceBias shrinks amountOut and confidence by a conservative
// multiplier in (0, 1], modeling worst-case slippage protection.
func ApplyPriceBias(quote *domain.NormalizedQuote, bias float64) {
	if bias <= 0 || bias >= 1 {
		return
	}

	amountOut, ok := new(big.Int).SetString(quote.AmountOut, 10)
	if !ok {
		return
	}

	biased := decimal.NewFromBigInt(amountOut, 0).Mul(decimal.NewFromFloat(bias))
	quote.AmountOut = biased.Floor().BigInt().String()
	quote.Confidence *= bias
	if quote.Confidence < 0.1 {
		quote.Confidence = 0.1
	}
}

func lookupPrice(prices map[string]marketdomain.TokenPrice, token string) decimal.Decimal {
	if p, ok := prices[strings.ToLower(token)]; ok {
		return p.PriceUSD
	}
	if asset.IsNativeAddress(token) {
		return decimal.NewFromInt(2000)
	}
	return decimal.NewFromInt(1)
}
