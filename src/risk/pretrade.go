package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/connectors"
	"agentexecutor/src/model"
)

// Rejection reasons surfaced to callers and logs.
const (
	ReasonVenueUnavailable    = "VenueUnavailable"
	ReasonTokenNotRegistered  = "TokenNotRegistered"
	ReasonNoCollateral        = "NoCollateral"
	ReasonNoRoute             = "NoRoute"
	ReasonInsufficientBalance = "InsufficientBalance"
	ReasonPositionTooSmall    = "PositionTooSmall"
)

// ConstraintSource resolves per (venue, token) execution constraints;
// implemented by the venue repository.
type ConstraintSource interface {
	FindConstraint(ctx context.Context, venue model.Venue, tokenSymbol string) (*model.VenueConstraint, error)
}

// Verdict is the outcome of pre-trade validation. A rejected verdict is not
// an error; it is a normal answer.
type Verdict struct {
	Approved bool            `json:"approved"`
	Reason   string          `json:"reason,omitempty"`
	Size     decimal.Decimal `json:"size"`
}

// Validator runs read-only checks before any gas is committed to a trade.
type Validator struct {
	constraints ConstraintSource
}

func NewValidator(constraints ConstraintSource) *Validator {
	return &Validator{constraints: constraints}
}

// ValidateTrade short-circuits on the first failing check: the adapter's
// execution summary (venue availability, collateral, route), the constraint
// record for the (venue, token) pair, then sizing, then the venue's minimum
// order size. A pair with no constraint record is not tradeable at all.
func (v *Validator) ValidateTrade(ctx context.Context, signal *model.Signal, deployment *model.Deployment, summary *connectors.ExecutionSummary) (*Verdict, error) {
	if !summary.CanExecute {
		logger.WithFields(map[string]interface{}{
			"signal_id":     signal.ID,
			"deployment_id": deployment.ID,
			"reason":        summary.Reason,
		}).Info("[risk] trade rejected by execution summary")
		return &Verdict{Approved: false, Reason: summary.Reason}, nil
	}

	constraint, err := v.constraints.FindConstraint(ctx, signal.Venue, signal.TokenSymbol)
	if err != nil {
		return nil, fmt.Errorf("failed to load venue constraint: %w", err)
	}
	if constraint == nil {
		logger.WithFields(map[string]interface{}{
			"signal_id":     signal.ID,
			"deployment_id": deployment.ID,
			"venue":         signal.Venue,
			"token":         signal.TokenSymbol,
		}).Info("[risk] trade rejected, no constraint record for pair")
		return &Verdict{Approved: false, Reason: ReasonVenueUnavailable}, nil
	}

	sizeModel, err := signal.SizeModel()
	if err != nil {
		return nil, fmt.Errorf("failed to parse size model for signal %d: %w", signal.ID, err)
	}

	size, err := ComputePositionSize(summary.BaseBalance, sizeModel)
	if err != nil {
		if errors.Is(err, ErrInsufficientBalance) {
			logger.WithFields(map[string]interface{}{
				"signal_id":     signal.ID,
				"deployment_id": deployment.ID,
				"balance":       summary.BaseBalance,
			}).Info("[risk] trade rejected, fixed size exceeds balance")
			return &Verdict{Approved: false, Reason: ReasonInsufficientBalance}, nil
		}
		return nil, err
	}

	if size.LessThan(constraint.MinOrderSize) {
		logger.WithFields(map[string]interface{}{
			"signal_id":      signal.ID,
			"deployment_id":  deployment.ID,
			"size":           size,
			"min_order_size": constraint.MinOrderSize,
		}).Info("[risk] trade rejected, below venue minimum")
		return &Verdict{Approved: false, Reason: ReasonPositionTooSmall, Size: size}, nil
	}

	return &Verdict{Approved: true, Size: size}, nil
}
