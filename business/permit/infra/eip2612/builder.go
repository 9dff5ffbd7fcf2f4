// Package eip2612 builds EIP-712 typed data for tokens implementing the
// ERC-2612 permit extension.
package eip2612

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/shivam-V8/defi-agent/business/permit/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/asset"
)

// tokenKey identifies a token's permit domain entry.
type tokenKey struct {
	chainID uint64
	address string // lower-cased
}

// knownDomains lists tokens whose EIP-712 domain parameters are verified.
// Signing against a wrong name or version produces an unredeemable
// signature, so unknown tokens are flagged as unsupported.
var knownDomains = map[tokenKey]domain.TokenDomain{
	{asset.ChainIDEthereum, lowerHex(asset.AddrUSDCEthereum)}: {Name: "USD Coin", Version: "2", Supported: true},
	{asset.ChainIDEthereum, lowerHex(asset.AddrDAIEthereum)}:  {Name: "Dai Stablecoin", Version: "1", Supported: true},
	{asset.ChainIDPolygon, lowerHex(asset.AddrUSDCPolygon)}:   {Name: "USD Coin", Version: "2", Supported: true},
	{asset.ChainIDArbitrum, lowerHex(asset.AddrUSDCArbitrum)}: {Name: "USD Coin", Version: "2", Supported: true},
	{asset.ChainIDBase, lowerHex(asset.AddrUSDCBase)}:         {Name: "USD Coin", Version: "2", Supported: true},
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}

// Builder constructs Permit typed data against the token's own contract.
type Builder struct{}

// NewBuilder creates an ERC-2612 typed data builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// TokenDomain returns the permit domain parameters for a token. Unknown
// tokens get a placeholder domain with Supported=false.
func (b *Builder) TokenDomain(chainID uint64, token string) domain.TokenDomain {
	if d, ok := knownDomains[tokenKey{chainID, strings.ToLower(token)}]; ok {
		return d
	}
	return domain.TokenDomain{Name: "Unknown Token", Version: "1", Supported: false}
}

// Supported reports whether the token's permit domain is verified.
func (b *Builder) Supported(chainID uint64, token string) bool {
	return b.TokenDomain(chainID, token).Supported
}

// Build produces the Permit typed data for a request. The verifying
// contract is the token itself.
func (b *Builder) Build(req domain.PermitRequest) (apitypes.TypedData, error) {
	chainID := int64(req.ChainID)
	if chainID < 0 {
		return apitypes.TypedData{}, apperror.New(apperror.CodeInvalidPermitData,
			apperror.WithContext("chain id overflows int64"))
	}

	tokenDomain := b.TokenDomain(req.ChainID, req.Token)

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": {
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              tokenDomain.Name,
			Version:           tokenDomain.Version,
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: common.HexToAddress(req.Token).Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"owner":    common.HexToAddress(req.Owner).Hex(),
			"spender":  common.HexToAddress(req.Spender).Hex(),
			"value":    req.Amount,
			"nonce":    req.Nonce,
			"deadline": fmt.Sprintf("%d", req.Deadline),
		},
	}

	if _, err := td.HashStruct(td.PrimaryType, td.Message); err != nil {
		return apitypes.TypedData{}, apperror.New(apperror.CodePermitBuildFailed,
			apperror.WithContext(fmt.Sprintf("eip2612 typed data does not hash: %v", err)),
			apperror.WithCause(err))
	}

	return td, nil
}
