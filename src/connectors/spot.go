package connectors

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/chain"
	"agentexecutor/src/model"
)

// Uniswap V3 quoter, called via eth_call only.
const quoterABIJSON = `[
	{"type":"function","name":"quoteExactInputSingle","stateMutability":"nonpayable","inputs":[{"name":"tokenIn","type":"address"},{"name":"tokenOut","type":"address"},{"name":"fee","type":"uint24"},{"name":"amountIn","type":"uint256"},{"name":"sqrtPriceLimitX96","type":"uint160"}],"outputs":[{"name":"amountOut","type":"uint256"}]}
]`

var quoterABI = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(quoterABIJSON))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// Fee tiers tried in order; the first tier that quotes wins.
var spotFeeTiers = []int64{500, 3000, 10000}

type contractCaller interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// SpotConnector quotes and parameterizes swaps against a Uniswap V3 style
// router. The actual swap is executed by the trading module; this connector
// only decides route, fee tier, and bounds.
type SpotConnector struct {
	caller   contractCaller
	tokens   TokenSource
	balances BalanceReader
	chainID  int64

	quoter       common.Address
	baseSymbol   string
	swapDeadline time.Duration
}

func NewSpotConnector(caller contractCaller, tokens TokenSource, balances BalanceReader, chainID int64) *SpotConnector {
	config := GetConfig()
	return &SpotConnector{
		caller:       caller,
		tokens:       tokens,
		balances:     balances,
		chainID:      chainID,
		quoter:       common.HexToAddress(config.UniswapQuoter),
		baseSymbol:   config.BaseAssetSymbol,
		swapDeadline: config.SwapDeadline,
	}
}

func (s *SpotConnector) Venue() model.Venue { return model.VenueSpot }

// Quote tries each fee tier in order and returns the first successful quote.
func (s *SpotConnector) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*QuoteResult, error) {
	for _, tier := range spotFeeTiers {
		fee := big.NewInt(tier)
		data, err := quoterABI.Pack("quoteExactInputSingle", tokenIn, tokenOut, fee, amountIn, big.NewInt(0))
		if err != nil {
			return nil, fmt.Errorf("quote pack: %w", err)
		}

		out, err := s.caller.Call(ctx, s.quoter, data)
		if err != nil {
			logger.WithFields(map[string]interface{}{
				"token_in":  tokenIn.Hex(),
				"token_out": tokenOut.Hex(),
				"fee_tier":  tier,
			}).WithError(err).Debug("[spot] fee tier quote failed")
			continue
		}

		values, err := quoterABI.Unpack("quoteExactInputSingle", out)
		if err != nil {
			return nil, fmt.Errorf("quote unpack: %w", err)
		}

		amountOut := values[0].(*big.Int)
		if amountOut.Sign() <= 0 {
			continue
		}

		return &QuoteResult{AmountOut: amountOut, PoolFee: fee}, nil
	}

	return nil, ErrNoRouteFound
}

func (s *SpotConnector) BuildSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error) {
	quote, err := s.Quote(ctx, tokenIn, tokenOut, amountIn)
	if err != nil {
		return nil, err
	}
	return &SwapPlan{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		MinAmountOut: minAmountOut,
		PoolFee:      quote.PoolFee,
		Deadline:     time.Now().Add(s.swapDeadline).Unix(),
	}, nil
}

// BuildCloseSwap is symmetric with BuildSwap; the minimum-out bound is
// whatever tolerance the caller supplied.
func (s *SpotConnector) BuildCloseSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error) {
	return s.BuildSwap(ctx, tokenIn, tokenOut, amountIn, minAmountOut)
}

// GetPrice quotes one whole token into the base asset.
func (s *SpotConnector) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	token, err := s.tokens.FindToken(ctx, s.chainID, symbol)
	if err != nil || token == nil {
		return decimal.Zero, ErrPriceUnavailable
	}
	base, err := s.tokens.FindToken(ctx, s.chainID, s.baseSymbol)
	if err != nil || base == nil {
		return decimal.Zero, ErrPriceUnavailable
	}

	oneToken := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(token.Decimals)), nil)
	quote, err := s.Quote(ctx, common.HexToAddress(token.Address), common.HexToAddress(base.Address), oneToken)
	if err != nil {
		return decimal.Zero, ErrPriceUnavailable
	}

	return chain.FromBaseUnits(quote.AmountOut, base.Decimals), nil
}

// ExecutionSummary is the read-only affordability check the coordinator runs
// before committing gas.
func (s *SpotConnector) ExecutionSummary(ctx context.Context, signal *model.Signal, deployment *model.Deployment) (*ExecutionSummary, error) {
	base, err := s.tokens.FindToken(ctx, s.chainID, s.baseSymbol)
	if err != nil || base == nil {
		return &ExecutionSummary{CanExecute: false, Reason: "TokenNotRegistered"}, nil
	}

	token, err := s.tokens.FindToken(ctx, s.chainID, signal.TokenSymbol)
	if err != nil || token == nil {
		return &ExecutionSummary{CanExecute: false, Reason: "TokenNotRegistered"}, nil
	}

	raw, err := s.balances.TokenBalance(ctx, common.HexToAddress(base.Address), common.HexToAddress(deployment.SafeWallet))
	if err != nil {
		return nil, fmt.Errorf("failed to read base balance: %w", err)
	}
	balance := chain.FromBaseUnits(raw, base.Decimals)

	if balance.IsZero() {
		return &ExecutionSummary{CanExecute: false, Reason: "NoCollateral", BaseBalance: balance}, nil
	}

	oneToken := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(token.Decimals)), nil)
	if _, err := s.Quote(ctx, common.HexToAddress(token.Address), common.HexToAddress(base.Address), oneToken); err != nil {
		return &ExecutionSummary{CanExecute: false, Reason: "NoRoute", BaseBalance: balance}, nil
	}

	return &ExecutionSummary{CanExecute: true, BaseBalance: balance}, nil
}
