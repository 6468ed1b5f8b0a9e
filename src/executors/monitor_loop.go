package executors

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/connectors"
	"agentexecutor/src/controller"
	"agentexecutor/src/model"
	"agentexecutor/src/tp_sl"
)

// OpenPositionSource is the monitor's slice of the position repository.
type OpenPositionSource interface {
	FindOpen(ctx context.Context) ([]model.Position, error)
	UpdateTrailing(ctx context.Context, position *model.Position) error
}

// PositionCloser closes a position on chain. *controller.TradeCoordinator
// satisfies it.
type PositionCloser interface {
	Close(ctx context.Context, position *model.Position, reason string, triggerPrice decimal.Decimal) (*controller.CloseResult, error)
}

// ReferencePriceSource provides a CEX sanity price; zero means unavailable.
type ReferencePriceSource interface {
	ReferencePrice(symbol string) decimal.Decimal
}

// MonitorLoop walks every open position each cycle, refreshes trailing state,
// and closes positions whose exit conditions triggered. A single instance
// runs per environment; position state is not safe under concurrent monitors.
type MonitorLoop struct {
	positions OpenPositionSource
	provider  connectors.ConnectorProvider
	closer    PositionCloser
	reference ReferencePriceSource
	config    Config
}

func NewMonitorLoop(positions OpenPositionSource, provider connectors.ConnectorProvider, closer PositionCloser, reference ReferencePriceSource) *MonitorLoop {
	return &MonitorLoop{
		positions: positions,
		provider:  provider,
		closer:    closer,
		reference: reference,
		config:    GetConfig(),
	}
}

func (l *MonitorLoop) Run(ctx context.Context) error {
	logger.WithField("period", l.config.MonitorLoopPeriod.String()).Info("[monitor] started")

	ticker := time.NewTicker(l.config.MonitorLoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[monitor] stopped")
			return nil
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

func (l *MonitorLoop) runOnce(ctx context.Context) {
	runID := uuid.NewString()

	positions, err := l.positions.FindOpen(ctx)
	if err != nil {
		logger.WithError(err).Error("[monitor] failed to fetch open positions")
		return
	}

	closed := 0
	for i := range positions {
		position := &positions[i]

		if l.evaluatePosition(ctx, runID, position) {
			closed++
		}

		if l.config.PositionDelay > 0 && i < len(positions)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(l.config.PositionDelay):
			}
		}
	}

	logger.WithFields(map[string]interface{}{
		"run_id":    runID,
		"monitored": len(positions),
		"closed":    closed,
	}).Info("[monitor] cycle complete")
}

// evaluatePosition reports whether the position was closed this cycle.
func (l *MonitorLoop) evaluatePosition(ctx context.Context, runID string, position *model.Position) bool {
	log := logger.WithFields(map[string]interface{}{
		"run_id":      runID,
		"position_id": position.ID,
		"token":       position.TokenSymbol,
	})

	connector, err := l.provider.ConnectorForVenue(position.Venue)
	if err != nil {
		log.WithError(err).Warn("[monitor] no connector for venue, skipping")
		return false
	}

	price, err := connector.GetPrice(ctx, position.TokenSymbol)
	if err != nil {
		// A missing price is never a close trigger. Skip and retry next cycle.
		log.WithError(err).Warn("[monitor] price unavailable, skipping position")
		return false
	}

	if !l.referenceAgrees(position.TokenSymbol, price, log) {
		return false
	}

	eval := tp_sl.EvaluateExit(position, price, decimal.NewFromFloat(l.config.TrailingActivationPct), l.config.EnableFixedStopLoss)

	if eval.StateChanged {
		if err := l.positions.UpdateTrailing(ctx, position); err != nil {
			// Unpersisted trailing state would replay against a stale
			// watermark next cycle; do not act on it now.
			log.WithError(err).Error("[monitor] failed to persist trailing state, skipping")
			return false
		}
	}

	if eval.CloseReason == "" {
		return false
	}

	log.WithFields(map[string]interface{}{
		"reason": eval.CloseReason,
		"price":  price,
	}).Info("[monitor] exit condition triggered")

	result, err := l.closer.Close(ctx, position, eval.CloseReason, price)
	if err != nil {
		// The position stays open and is retried next cycle.
		log.WithError(err).Error("[monitor] close failed, position remains open")
		return false
	}

	log.WithFields(map[string]interface{}{
		"status":  result.Status,
		"pnl":     result.Pnl,
		"tx_hash": result.TxHash,
	}).Info("[monitor] close attempted")

	return result.Status == controller.CloseClosed
}

// referenceAgrees checks the venue price against the CEX reference when a
// feed is configured. Out-of-bounds prices are treated as unavailable.
func (l *MonitorLoop) referenceAgrees(symbol string, price decimal.Decimal, log *logger.Entry) bool {
	if l.reference == nil {
		return true
	}

	ref := l.reference.ReferencePrice(symbol)
	if !ref.IsPositive() {
		return true
	}

	deviation := price.Sub(ref).Abs().Div(ref).Mul(decimal.NewFromInt(100))
	if deviation.GreaterThan(decimal.NewFromFloat(l.config.ReferenceMaxDeviationPct)) {
		log.WithFields(map[string]interface{}{
			"venue_price":     price,
			"reference_price": ref,
			"deviation_pct":   deviation,
		}).Warn("[monitor] venue price deviates from reference, skipping position")
		return false
	}

	return true
}
