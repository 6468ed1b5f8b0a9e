package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/chain"
)

// Gateway executes discrete on-chain operations against the trading module.
// Each operation is a single transaction awaited to one confirmation, with no
// retry; retries are a coordinator concern.
type Gateway struct {
	client *chain.Client
	nonces *chain.NonceCoordinator
	config Config
}

func New(client *chain.Client, nonces *chain.NonceCoordinator) (*Gateway, error) {
	if client == nil || nonces == nil {
		return nil, fmt.Errorf("%w: chain client and nonce coordinator are required", ErrConfigurationMissing)
	}
	return &Gateway{
		client: client,
		nonces: nonces,
		config: GetConfig(),
	}, nil
}

// SafeStats mirrors the module's getSafeStats return tuple.
type SafeStats struct {
	Initialized    bool
	InitialBalance *big.Int
	CurrentValue   *big.Int
	TotalProfit    *big.Int
	TradeCount     *big.Int
}

// TradeCall carries the parameters of one executeTrade / closePosition call.
type TradeCall struct {
	Safe           common.Address
	TokenIn        common.Address
	TokenOut       common.Address
	AmountIn       *big.Int
	MinAmountOut   *big.Int
	PoolFee        *big.Int
	ProfitReceiver common.Address

	// EntryValue is only used on close; the module needs the original entry
	// value to compute the on-chain profit share.
	EntryValue *big.Int
}

// execute simulates the call first to decode the return value and surface
// revert reasons, since return data is not available from a receipt. It then
// signs and submits with an explicit nonce, awaiting one confirmation.
func (g *Gateway) execute(ctx context.Context, op string, to common.Address, data []byte, gasLimit uint64) ([]byte, string, error) {
	out, err := g.client.Call(ctx, to, data)
	if err != nil {
		return nil, "", classifyCallError(op, err)
	}

	nonce, err := g.nonces.Acquire(ctx, g.client.ExecutorAddress())
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w: %v", op, ErrSubmissionFailed, err)
	}

	receipt, err := g.client.Submit(ctx, to, data, nonce, gasLimit)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w: %v", op, ErrSubmissionFailed, err)
	}

	txHash := receipt.TxHash.Hex()
	if receipt.Status == 0 {
		return nil, txHash, fmt.Errorf("%s: %w: receipt status 0 (tx %s)", op, ErrTransactionReverted, txHash)
	}

	logger.WithFields(map[string]interface{}{
		"op": op,
		"tx": txHash,
	}).Info("[gateway] transaction confirmed")

	return out, txHash, nil
}

// InitializeCapital records the Safe's starting balance for PnL accounting.
// The module rejects double initialization; that rejection is success here.
func (g *Gateway) InitializeCapital(ctx context.Context, module, safe common.Address) error {
	data, err := moduleABI.Pack("initializeCapital", safe)
	if err != nil {
		return fmt.Errorf("initializeCapital pack: %w", err)
	}

	_, _, err = g.execute(ctx, "initializeCapital", module, data, g.config.GasLimitSetup)
	if err != nil {
		if errors.Is(err, ErrTransactionReverted) && strings.Contains(strings.ToLower(err.Error()), "already initialized") {
			logger.WithField("safe", safe.Hex()).Debug("[gateway] capital already initialized")
			return nil
		}
		return err
	}
	return nil
}

func (g *Gateway) IsTokenWhitelisted(ctx context.Context, module, safe, token common.Address) (bool, error) {
	data, err := moduleABI.Pack("isTokenWhitelisted", safe, token)
	if err != nil {
		return false, fmt.Errorf("isTokenWhitelisted pack: %w", err)
	}

	out, err := g.client.Call(ctx, module, data)
	if err != nil {
		return false, classifyCallError("isTokenWhitelisted", err)
	}

	values, err := moduleABI.Unpack("isTokenWhitelisted", out)
	if err != nil {
		return false, fmt.Errorf("isTokenWhitelisted unpack: %w", err)
	}
	return values[0].(bool), nil
}

func (g *Gateway) SetTokenWhitelist(ctx context.Context, module, safe, token common.Address, enabled bool) error {
	data, err := moduleABI.Pack("setTokenWhitelist", safe, token, enabled)
	if err != nil {
		return fmt.Errorf("setTokenWhitelist pack: %w", err)
	}
	_, _, err = g.execute(ctx, "setTokenWhitelist", module, data, g.config.GasLimitSetup)
	return err
}

// ApproveTokenForDex issues a max-approval through the module. On failure the
// caller must re-check the actual allowance before treating it as fatal; the
// approval may have silently succeeded or already existed.
func (g *Gateway) ApproveTokenForDex(ctx context.Context, module, safe, token, spender common.Address) error {
	data, err := moduleABI.Pack("approveTokenForDex", safe, token, spender)
	if err != nil {
		return fmt.Errorf("approveTokenForDex pack: %w", err)
	}
	_, _, err = g.execute(ctx, "approveTokenForDex", module, data, g.config.GasLimitSetup)
	return err
}

// ExecuteTrade opens a position. The module collects its fixed protocol fee
// before swapping. Returns the swapped amount and the transaction hash.
func (g *Gateway) ExecuteTrade(ctx context.Context, module common.Address, call TradeCall) (*big.Int, string, error) {
	data, err := moduleABI.Pack("executeTrade",
		call.Safe, call.TokenIn, call.TokenOut,
		call.AmountIn, call.MinAmountOut, call.PoolFee, call.ProfitReceiver)
	if err != nil {
		return nil, "", fmt.Errorf("executeTrade pack: %w", err)
	}

	out, txHash, err := g.execute(ctx, "executeTrade", module, data, g.config.GasLimitTrade)
	if err != nil {
		return nil, txHash, err
	}

	values, err := moduleABI.Unpack("executeTrade", out)
	if err != nil {
		return nil, txHash, fmt.Errorf("executeTrade unpack: %w", err)
	}
	return values[0].(*big.Int), txHash, nil
}

// ClosePosition swaps the position back into the base asset. The module
// computes profit against EntryValue and distributes the fixed-percentage
// share to ProfitReceiver on-chain when the close is profitable.
func (g *Gateway) ClosePosition(ctx context.Context, module common.Address, call TradeCall) (*big.Int, string, error) {
	data, err := moduleABI.Pack("closePosition",
		call.Safe, call.TokenIn, call.TokenOut,
		call.AmountIn, call.MinAmountOut, call.PoolFee, call.ProfitReceiver, call.EntryValue)
	if err != nil {
		return nil, "", fmt.Errorf("closePosition pack: %w", err)
	}

	out, txHash, err := g.execute(ctx, "closePosition", module, data, g.config.GasLimitTrade)
	if err != nil {
		return nil, txHash, err
	}

	values, err := moduleABI.Unpack("closePosition", out)
	if err != nil {
		return nil, txHash, fmt.Errorf("closePosition unpack: %w", err)
	}
	return values[0].(*big.Int), txHash, nil
}

func (g *Gateway) GetSafeStats(ctx context.Context, module, safe common.Address) (*SafeStats, error) {
	data, err := moduleABI.Pack("getSafeStats", safe)
	if err != nil {
		return nil, fmt.Errorf("getSafeStats pack: %w", err)
	}

	out, err := g.client.Call(ctx, module, data)
	if err != nil {
		return nil, classifyCallError("getSafeStats", err)
	}

	values, err := moduleABI.Unpack("getSafeStats", out)
	if err != nil {
		return nil, fmt.Errorf("getSafeStats unpack: %w", err)
	}

	return &SafeStats{
		Initialized:    values[0].(bool),
		InitialBalance: values[1].(*big.Int),
		CurrentValue:   values[2].(*big.Int),
		TotalProfit:    values[3].(*big.Int),
		TradeCount:     values[4].(*big.Int),
	}, nil
}

// IsModuleEnabled asks the Safe itself whether the trading module is still
// authorized. The chain is the source of truth; the stored flag is a cache.
func (g *Gateway) IsModuleEnabled(ctx context.Context, safe, module common.Address) (bool, error) {
	data, err := safeABI.Pack("isModuleEnabled", module)
	if err != nil {
		return false, fmt.Errorf("isModuleEnabled pack: %w", err)
	}

	out, err := g.client.Call(ctx, safe, data)
	if err != nil {
		return false, classifyCallError("isModuleEnabled", err)
	}

	values, err := safeABI.Unpack("isModuleEnabled", out)
	if err != nil {
		return false, fmt.Errorf("isModuleEnabled unpack: %w", err)
	}
	return values[0].(bool), nil
}

// TokenBalance reads the live ERC-20 balance of an owner. The close path
// depends on this instead of the stored quantity to tolerate balance drift.
func (g *Gateway) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, fmt.Errorf("balanceOf pack: %w", err)
	}

	out, err := g.client.Call(ctx, token, data)
	if err != nil {
		return nil, classifyCallError("balanceOf", err)
	}

	values, err := erc20ABI.Unpack("balanceOf", out)
	if err != nil {
		return nil, fmt.Errorf("balanceOf unpack: %w", err)
	}
	return values[0].(*big.Int), nil
}

func (g *Gateway) TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, fmt.Errorf("allowance pack: %w", err)
	}

	out, err := g.client.Call(ctx, token, data)
	if err != nil {
		return nil, classifyCallError("allowance", err)
	}

	values, err := erc20ABI.Unpack("allowance", out)
	if err != nil {
		return nil, fmt.Errorf("allowance unpack: %w", err)
	}
	return values[0].(*big.Int), nil
}
