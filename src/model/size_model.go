package model

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// SizeModel is the closed union of supported position sizing instructions.
// Sizing is computed in exactly one place (risk.ComputePositionSize) with an
// exhaustive type switch over these variants.
type SizeModel interface {
	isSizeModel()
}

// BalancePercentage sizes the trade as a percentage of the deployment's
// current base-asset balance.
type BalancePercentage struct {
	Value decimal.Decimal
}

// FixedUSDC sizes the trade as a fixed USDC notional. Must not exceed the
// actual balance at execution time.
type FixedUSDC struct {
	Value decimal.Decimal
}

func (BalancePercentage) isSizeModel() {}
func (FixedUSDC) isSizeModel()         {}

// ParseSizeModel maps the flattened store columns onto the union.
func ParseSizeModel(modelType string, value decimal.Decimal) (SizeModel, error) {
	switch modelType {
	case SizeModelBalancePercentage:
		return BalancePercentage{Value: value}, nil
	case SizeModelFixedUSDC:
		return FixedUSDC{Value: value}, nil
	default:
		return nil, fmt.Errorf("unknown size model type %q", modelType)
	}
}
