package executors

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/controller"
	"agentexecutor/src/model"
)

// SignalSource is the polling slice of the signal repository.
type SignalSource interface {
	FindAfterID(ctx context.Context, lastID uint, limit int) ([]model.Signal, error)
	LatestID(ctx context.Context) (uint, error)
}

// DeploymentSource resolves which deployments a signal fans out to.
type DeploymentSource interface {
	FindActiveByAgent(ctx context.Context, agentID uint) ([]model.Deployment, error)
}

// TradeOpener applies a signal to a deployment. *controller.TradeCoordinator
// satisfies it.
type TradeOpener interface {
	Open(ctx context.Context, signal *model.Signal, deployment *model.Deployment, source string) (*controller.OpenResult, error)
}

// SignalLoop polls the signal database incrementally and fans each new
// signal out to every active deployment of its agent.
type SignalLoop struct {
	signals     SignalSource
	deployments DeploymentSource
	opener      TradeOpener
	config      Config

	cursor uint
}

func NewSignalLoop(signals SignalSource, deployments DeploymentSource, opener TradeOpener) *SignalLoop {
	return &SignalLoop{
		signals:     signals,
		deployments: deployments,
		opener:      opener,
		config:      GetConfig(),
	}
}

// Run polls until the context is cancelled. The cursor seeds at the current
// newest signal so a fresh process never replays history.
func (l *SignalLoop) Run(ctx context.Context) error {
	latest, err := l.signals.LatestID(ctx)
	if err != nil {
		return err
	}
	l.cursor = latest

	logger.WithFields(map[string]interface{}{
		"cursor": l.cursor,
		"period": l.config.SignalLoopPeriod.String(),
	}).Info("[signal-loop] started")

	ticker := time.NewTicker(l.config.SignalLoopPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[signal-loop] stopped")
			return nil
		case <-ticker.C:
			l.runOnce(ctx)
		}
	}
}

// runOnce processes one batch. Per-signal failures are logged and skipped;
// the cursor only advances past signals whose fan-out completed, so a failed
// signal is retried next tick.
func (l *SignalLoop) runOnce(ctx context.Context) {
	signals, err := l.signals.FindAfterID(ctx, l.cursor, l.config.SignalBatchLimit)
	if err != nil {
		logger.WithError(err).Error("[signal-loop] failed to poll signals")
		return
	}

	for i := range signals {
		signal := &signals[i]

		if err := l.fanOut(ctx, signal); err != nil {
			logger.WithFields(map[string]interface{}{
				"signal_id": signal.ID,
			}).WithError(err).Error("[signal-loop] fan-out failed, will retry next tick")
			return
		}

		l.cursor = signal.ID
	}
}

func (l *SignalLoop) fanOut(ctx context.Context, signal *model.Signal) error {
	deployments, err := l.deployments.FindActiveByAgent(ctx, signal.AgentID)
	if err != nil {
		return err
	}

	if len(deployments) == 0 {
		logger.WithFields(map[string]interface{}{
			"signal_id": signal.ID,
			"agent_id":  signal.AgentID,
		}).Debug("[signal-loop] no active deployments for agent")
		return nil
	}

	for i := range deployments {
		deployment := &deployments[i]

		result, err := l.opener.Open(ctx, signal, deployment, model.PositionSourceAuto)
		if err != nil {
			// One deployment failing must not starve the others.
			logger.WithFields(map[string]interface{}{
				"signal_id":     signal.ID,
				"deployment_id": deployment.ID,
			}).WithError(err).Error("[signal-loop] open failed for deployment")
			continue
		}

		logger.WithFields(map[string]interface{}{
			"signal_id":     signal.ID,
			"deployment_id": deployment.ID,
			"status":        result.Status,
			"reason":        result.Reason,
			"tx_hash":       result.TxHash,
		}).Info("[signal-loop] signal applied")
	}

	return nil
}
