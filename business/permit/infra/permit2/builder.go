// Package permit2 builds EIP-712 typed data for the shared Permit2
// allowance contract.
package permit2

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/shivam-V8/defi-agent/business/permit/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
)

// CanonicalAddress is the Permit2 deployment shared across chains.
const CanonicalAddress = "0x000000000022D473030F116dDEE9F6B43aC78BA3"

// Builder constructs PermitSingle typed data. The verifying contract can be
// overridden per chain; chains without an override use the canonical address.
type Builder struct {
	contracts map[uint64]common.Address
}

// NewBuilder creates a builder with per-chain contract overrides.
func NewBuilder(contracts map[uint64]common.Address) *Builder {
	if contracts == nil {
		contracts = make(map[uint64]common.Address)
	}
	return &Builder{contracts: contracts}
}

// Contract returns the Permit2 address used for a chain.
func (b *Builder) Contract(chainID uint64) common.Address {
	if addr, ok := b.contracts[chainID]; ok {
		return addr
	}
	return common.HexToAddress(CanonicalAddress)
}

// Build produces the PermitSingle typed data for a request. The Permit2
// domain deliberately has no version field.
func (b *Builder) Build(req domain.PermitRequest) (apitypes.TypedData, error) {
	chainID := int64(req.ChainID)
	if chainID < 0 {
		return apitypes.TypedData{}, apperror.New(apperror.CodeInvalidPermitData,
			apperror.WithContext("chain id overflows int64"))
	}

	td := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"PermitDetails": {
				{Name: "token", Type: "address"},
				{Name: "amount", Type: "uint160"},
				{Name: "expiration", Type: "uint48"},
				{Name: "nonce", Type: "uint48"},
			},
			"PermitSingle": {
				{Name: "details", Type: "PermitDetails"},
				{Name: "spender", Type: "address"},
				{Name: "sigDeadline", Type: "uint256"},
			},
		},
		PrimaryType: "PermitSingle",
		Domain: apitypes.TypedDataDomain{
			Name:              "Permit2",
			ChainId:           math.NewHexOrDecimal256(chainID),
			VerifyingContract: b.Contract(req.ChainID).Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"details": map[string]any{
				"token":      common.HexToAddress(req.Token).Hex(),
				"amount":     req.Amount,
				"expiration": strconv.FormatInt(req.Deadline, 10),
				"nonce":      req.Nonce,
			},
			"spender":     common.HexToAddress(req.Spender).Hex(),
			"sigDeadline": strconv.FormatInt(req.Deadline, 10),
		},
	}

	if _, err := td.HashStruct(td.PrimaryType, td.Message); err != nil {
		return apitypes.TypedData{}, apperror.New(apperror.CodePermitBuildFailed,
			apperror.WithContext(fmt.Sprintf("permit2 typed data does not hash: %v", err)),
			apperror.WithCause(err))
	}

	return td, nil
}
