package connectors

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"agentexecutor/src/model"
)

// GMXConnector is a stub. The perpetuals module has not shipped; every
// operation reports not supported and the monitor skips GMX positions.
type GMXConnector struct{}

func NewGMXConnector() *GMXConnector { return &GMXConnector{} }

func (g *GMXConnector) Venue() model.Venue { return model.VenueGMX }

func (g *GMXConnector) Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int) (*QuoteResult, error) {
	return nil, ErrVenueNotSupported
}

func (g *GMXConnector) BuildSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error) {
	return nil, ErrVenueNotSupported
}

func (g *GMXConnector) BuildCloseSwap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn, minAmountOut *big.Int) (*SwapPlan, error) {
	return nil, ErrVenueNotSupported
}

func (g *GMXConnector) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return decimal.Zero, ErrPriceUnavailable
}

func (g *GMXConnector) ExecutionSummary(ctx context.Context, signal *model.Signal, deployment *model.Deployment) (*ExecutionSummary, error) {
	return &ExecutionSummary{CanExecute: false, Reason: "VenueUnavailable"}, nil
}
