// Package tenderly implements the simulator adapter against the Tenderly
// simulation API, degrading to deterministic fallbacks when unconfigured.
package tenderly

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/shivam-V8/defi-agent/business/simulation/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/circuitbreaker"
	"github.com/shivam-V8/defi-agent/internal/httpclient"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

const (
	fallbackGasShare = 80 // percent of the gas limit assumed consumed
	fallbackImpact   = 50 // bps
	fallbackOutput   = "1000000000000000000"
)

// transferTopic is keccak("Transfer(address,address,uint256)").
var transferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)")).Hex()

// Config holds Tenderly API credentials. Incomplete credentials switch the
// client into fallback mode.
type Config struct {
	BaseURL     string
	AccountSlug string
	ProjectSlug string
	AccessKey   string
	Timeout     time.Duration
}

// Configured reports whether real simulations can be run.
func (c Config) Configured() bool {
	return c.AccountSlug != "" && c.ProjectSlug != "" && c.AccessKey != ""
}

// networkIDs maps chain ids to Tenderly network identifiers.
var networkIDs = map[uint64]string{
	1:     "1",
	10:    "10",
	137:   "137",
	8453:  "8453",
	42161: "42161",
}

type simulateRequest struct {
	NetworkID   string `json:"network_id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Input       string `json:"input"`
	Gas         uint64 `json:"gas"`
	GasPrice    string `json:"gas_price,omitempty"`
	Value       string `json:"value"`
	BlockNumber int64  `json:"block_number,omitempty"`
	Save        bool   `json:"save"`
	SaveIfFails bool   `json:"save_if_fails"`
}

type rawLog struct {
	Raw struct {
		Address string   `json:"address"`
		Topics  []string `json:"topics"`
		Data    string   `json:"data"`
	} `json:"raw"`
}

type callTrace struct {
	Error       string      `json:"error,omitempty"`
	ErrorReason string      `json:"error_reason,omitempty"`
	Value       string      `json:"value,omitempty"`
	Calls       []callTrace `json:"calls,omitempty"`
}

type simulateResponse struct {
	Transaction struct {
		Status          bool   `json:"status"`
		GasUsed         uint64 `json:"gas_used"`
		ErrorMessage    string `json:"error_message,omitempty"`
		TransactionInfo struct {
			CallTrace *callTrace `json:"call_trace"`
			Logs      []rawLog   `json:"logs"`
		} `json:"transaction_info"`
	} `json:"transaction"`
	Simulation struct {
		ID string `json:"id"`
	} `json:"simulation"`
}

// Client simulates calls via the Tenderly API.
type Client struct {
	http httpclient.Client
	cfg  Config
	cb   *circuitbreaker.CircuitBreaker[domain.SimulationResult]
	log  logger.LoggerInterface
}

// NewClient creates a simulator client. A client without credentials is
// still usable; it serves fallback results.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	c := &Client{
		cfg: cfg,
		cb:  circuitbreaker.New[domain.SimulationResult](circuitbreaker.DefaultConfig("tenderly")),
		log: log,
	}

	if cfg.Configured() {
		httpClient, err := httpclient.NewInstrumentedClient(
			httpclient.WithProviderName("tenderly"),
			httpclient.WithBaseURL(cfg.BaseURL),
			httpclient.WithRequestTimeout(cfg.Timeout),
			httpclient.WithHeaders(map[string]string{"X-Access-Key": cfg.AccessKey}),
		)
		if err != nil {
			return nil, err
		}
		c.http = httpClient
	}

	return c, nil
}

// Simulate runs the call against the simulator, or serves a deterministic
// fallback when credentials are missing. Simulation never blocks the
// pipeline on configuration gaps.
func (c *Client) Simulate(ctx context.Context, call domain.SimulateCall) (domain.SimulationResult, error) {
	if !c.cfg.Configured() {
		return c.fallbackResult(ctx, call), nil
	}

	networkID, ok := networkIDs[call.ChainID]
	if !ok {
		return domain.SimulationResult{}, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext(fmt.Sprintf("chain %d has no simulator network mapping", call.ChainID)))
	}

	return c.cb.Execute(func() (domain.SimulationResult, error) {
		return c.simulateOnce(ctx, call, networkID)
	})
}

func (c *Client) simulateOnce(ctx context.Context, call domain.SimulateCall, networkID string) (domain.SimulationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body := simulateRequest{
		NetworkID:   networkID,
		From:        call.From,
		To:          call.To,
		Input:       hexutil.Encode(call.Data),
		Gas:         call.GasLimit,
		Value:       "0",
		Save:        false,
		SaveIfFails: true,
	}
	if call.Value != nil {
		body.Value = call.Value.String()
	}
	if call.GasPrice != nil {
		body.GasPrice = call.GasPrice.String()
	}
	if call.BlockNumber != nil {
		body.BlockNumber = call.BlockNumber.Int64()
	}

	var parsed simulateResponse
	path := fmt.Sprintf("/account/%s/project/%s/simulate", c.cfg.AccountSlug, c.cfg.ProjectSlug)
	resp, err := c.http.NewRequest().
		SetBody(body).
		SetResult(&parsed).
		Post(ctx, path)
	if err != nil {
		return domain.SimulationResult{}, apperror.External(apperror.CodeSimulatorAPIError, "posting simulation", err)
	}
	if resp.IsError() {
		return domain.SimulationResult{}, apperror.New(apperror.CodeSimulatorAPIError,
			apperror.WithContext(fmt.Sprintf("simulator returned status %d", resp.StatusCode)))
	}

	result := domain.SimulationResult{
		Success:      parsed.Transaction.Status,
		GasUsed:      parsed.Transaction.GasUsed,
		GasPrice:     call.GasPrice,
		ActualOut:    extractActualOut(parsed),
		SimulationID: parsed.Simulation.ID,
		Error:        parsed.Transaction.ErrorMessage,
		Trace:        flattenTrace(parsed.Transaction.TransactionInfo.CallTrace),
	}

	for _, l := range parsed.Transaction.TransactionInfo.Logs {
		result.Logs = append(result.Logs, l.Raw.Address+" "+strings.Join(l.Raw.Topics, ","))
	}
	if result.SimulationID != "" {
		result.SimulationURL = fmt.Sprintf("https://dashboard.tenderly.co/%s/%s/simulator/%s",
			c.cfg.AccountSlug, c.cfg.ProjectSlug, result.SimulationID)
	}
	if result.Error == "" && !result.Success {
		result.Error = revertReason(result.Trace)
	}

	return result, nil
}

// HealthCheck reports adapter availability. Fallback mode is always
// considered available.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.cfg.Configured() {
		return nil
	}
	path := fmt.Sprintf("/account/%s/project/%s", c.cfg.AccountSlug, c.cfg.ProjectSlug)
	resp, err := c.http.NewRequest().Get(ctx, path)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return apperror.New(apperror.CodeSimulatorAPIError,
			apperror.WithContext(fmt.Sprintf("simulator health returned status %d", resp.StatusCode)))
	}
	return nil
}

func (c *Client) fallbackResult(ctx context.Context, call domain.SimulateCall) domain.SimulationResult {
	c.log.Debug(ctx, "simulator unconfigured, serving fallback result", "chain_id", call.ChainID)

	gasLimit := call.GasLimit
	if gasLimit == 0 {
		gasLimit = 500_000
	}
	return domain.SimulationResult{
		Success:        true,
		GasUsed:        gasLimit * fallbackGasShare / 100,
		GasPrice:       call.GasPrice,
		ActualOut:      fallbackOutput,
		PriceImpactBps: fallbackImpact,
		Fallback:       true,
	}
}

// extractActualOut reads the output amount from the first Transfer log,
// falling back to the first nonzero value transfer in the trace, then "0".
func extractActualOut(parsed simulateResponse) string {
	for _, l := range parsed.Transaction.TransactionInfo.Logs {
		if len(l.Raw.Topics) == 0 || !strings.EqualFold(l.Raw.Topics[0], transferTopic) {
			continue
		}
		if amount, ok := parseHexAmount(l.Raw.Data); ok {
			return amount
		}
	}

	for _, step := range flattenTrace(parsed.Transaction.TransactionInfo.CallTrace) {
		if step.Value == "" {
			continue
		}
		if amount, ok := parseHexAmount(step.Value); ok && amount != "0" {
			return amount
		}
	}

	return "0"
}

func parseHexAmount(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return "", false
		}
		return v.String(), true
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		if v, ok := new(big.Int).SetString(s, 10); ok {
			return v.String(), true
		}
	}
	return "", false
}

func flattenTrace(trace *callTrace) []domain.TraceStep {
	if trace == nil {
		return nil
	}
	var steps []domain.TraceStep
	var walk func(t callTrace)
	walk = func(t callTrace) {
		errMsg := t.Error
		if errMsg == "" {
			errMsg = t.ErrorReason
		}
		steps = append(steps, domain.TraceStep{Error: errMsg, Value: t.Value})
		for _, child := range t.Calls {
			walk(child)
		}
	}
	walk(*trace)
	return steps
}

func revertReason(trace []domain.TraceStep) string {
	for _, step := range trace {
		if step.Error != "" {
			return step.Error
		}
	}
	return "transaction reverted"
}
