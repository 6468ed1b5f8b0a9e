package tp_sl

import (
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/model"
)

var hundred = decimal.NewFromInt(100)

// DefaultTrailingPercent is the retrace that triggers a close once trailing
// is active, used when the position does not carry its own value.
var DefaultTrailingPercent = decimal.NewFromInt(1)

// Evaluation is the outcome of one exit check against a fresh price.
type Evaluation struct {
	// CloseReason is empty while the position should stay open; otherwise it
	// is one of the model close reason constants.
	CloseReason string

	// StateChanged reports that trailing state on the position was mutated
	// and must be persisted before the next evaluation.
	StateChanged bool
}

// EvaluateExit runs the exit checks for an open position against the current
// price, mutating the position's trailing state in place.
//
// Order matters: the trailing stop is evaluated first, then take-profit, then
// the fixed stop-loss. The first trigger wins and later checks never run.
//
// Trailing lifecycle: the stop is dormant until price moves activationPct in
// the position's favor from entry. On activation the watermark seeds at the
// activating price. While active the watermark ratchets (up for longs, down
// for shorts) and a retrace of trailingPercent from the watermark closes the
// position.
func EvaluateExit(position *model.Position, price decimal.Decimal, activationPct decimal.Decimal, enableFixedStop bool) Evaluation {
	eval := Evaluation{}
	if price.LessThanOrEqual(decimal.Zero) {
		return eval
	}

	if position.TrailingEnabled {
		if triggered := evaluateTrailing(position, price, activationPct, &eval); triggered {
			eval.CloseReason = model.CloseReasonTrailingStop
			return eval
		}
	}

	if position.TakeProfitPrice != nil {
		target := *position.TakeProfitPrice
		if position.IsLong() && price.GreaterThanOrEqual(target) {
			eval.CloseReason = model.CloseReasonTakeProfit
			return eval
		}
		if !position.IsLong() && price.LessThanOrEqual(target) {
			eval.CloseReason = model.CloseReasonTakeProfit
			return eval
		}
	}

	if enableFixedStop && position.StopLossPrice != nil {
		stop := *position.StopLossPrice
		if position.IsLong() && price.LessThanOrEqual(stop) {
			eval.CloseReason = model.CloseReasonStopLoss
			return eval
		}
		if !position.IsLong() && price.GreaterThanOrEqual(stop) {
			eval.CloseReason = model.CloseReasonStopLoss
			return eval
		}
	}

	return eval
}

func evaluateTrailing(position *model.Position, price decimal.Decimal, activationPct decimal.Decimal, eval *Evaluation) bool {
	if !position.TrailingActive {
		if shouldActivate(position, price, activationPct) {
			position.TrailingActive = true
			watermark := price
			if position.IsLong() {
				position.HighestPrice = &watermark
			} else {
				position.LowestPrice = &watermark
			}
			eval.StateChanged = true
			logger.WithFields(map[string]interface{}{
				"position_id": position.ID,
				"price":       price,
			}).Info("[tp_sl] trailing stop activated")
		}
		return false
	}

	trailingPct := position.TrailingPercent
	if trailingPct.LessThanOrEqual(decimal.Zero) {
		trailingPct = DefaultTrailingPercent
	}

	if position.IsLong() {
		if position.HighestPrice == nil || price.GreaterThan(*position.HighestPrice) {
			watermark := price
			position.HighestPrice = &watermark
			eval.StateChanged = true
		}
		stop := position.HighestPrice.Mul(hundred.Sub(trailingPct)).Div(hundred)
		return price.LessThanOrEqual(stop)
	}

	if position.LowestPrice == nil || price.LessThan(*position.LowestPrice) {
		watermark := price
		position.LowestPrice = &watermark
		eval.StateChanged = true
	}
	stop := position.LowestPrice.Mul(hundred.Add(trailingPct)).Div(hundred)
	return price.GreaterThanOrEqual(stop)
}

func shouldActivate(position *model.Position, price decimal.Decimal, activationPct decimal.Decimal) bool {
	if position.EntryPrice.LessThanOrEqual(decimal.Zero) {
		return false
	}
	if position.IsLong() {
		threshold := position.EntryPrice.Mul(hundred.Add(activationPct)).Div(hundred)
		return price.GreaterThanOrEqual(threshold)
	}
	threshold := position.EntryPrice.Mul(hundred.Sub(activationPct)).Div(hundred)
	return price.LessThanOrEqual(threshold)
}
