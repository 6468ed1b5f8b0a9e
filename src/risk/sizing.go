package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"agentexecutor/src/model"
)

var (
	// ErrInsufficientBalance means a fixed-size request exceeds the available
	// balance. The size is never clamped down to fit.
	ErrInsufficientBalance = errors.New("insufficient balance for requested size")

	ErrInvalidSizeModel = errors.New("invalid size model")
)

// ComputePositionSize resolves a signal's size model against the deployment's
// available base-asset balance. Both inputs and the result are denominated in
// the base asset.
func ComputePositionSize(balance decimal.Decimal, sizeModel model.SizeModel) (decimal.Decimal, error) {
	switch m := sizeModel.(type) {
	case model.BalancePercentage:
		if m.Value.LessThanOrEqual(decimal.Zero) || m.Value.GreaterThan(decimal.NewFromInt(100)) {
			return decimal.Zero, fmt.Errorf("%w: percentage %s out of range", ErrInvalidSizeModel, m.Value)
		}
		return balance.Mul(m.Value).Div(decimal.NewFromInt(100)), nil

	case model.FixedUSDC:
		if m.Value.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero, fmt.Errorf("%w: fixed size %s must be positive", ErrInvalidSizeModel, m.Value)
		}
		if m.Value.GreaterThan(balance) {
			return decimal.Zero, ErrInsufficientBalance
		}
		return m.Value, nil

	default:
		return decimal.Zero, fmt.Errorf("%w: unhandled size model %T", ErrInvalidSizeModel, sizeModel)
	}
}
