package controller

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/chain"
	"agentexecutor/src/connectors"
	"agentexecutor/src/gateway"
	"agentexecutor/src/model"
	"agentexecutor/src/repository"
)

// Open outcome statuses.
const (
	OpenExecuted        = "EXECUTED"
	OpenAlreadyExecuted = "ALREADY_EXECUTED"
	OpenRejected        = "REJECTED"
	OpenSkipped         = "SKIPPED"
)

// OpenResult is the outcome of one signal applied to one deployment.
type OpenResult struct {
	Status   string          `json:"status"`
	Reason   string          `json:"reason,omitempty"`
	TxHash   string          `json:"tx_hash,omitempty"`
	Position *model.Position `json:"position,omitempty"`
}

// TradeCoordinator drives the full open and close flows: validation, Safe
// setup, on-chain execution, and persistence. One instance serves both the
// signal loop and the position monitor.
type TradeCoordinator struct {
	gateway     ExecutionGateway
	provider    connectors.ConnectorProvider
	validator   TradeValidator
	tokens      connectors.TokenSource
	positions   PositionStore
	deployments DeploymentStore
	signals     SignalStore
	billing     BillingStore
	exceptions  ExceptionSink
	chainID     int64
	config      Config
}

func NewTradeCoordinator(
	gw ExecutionGateway,
	provider connectors.ConnectorProvider,
	validator TradeValidator,
	tokens connectors.TokenSource,
	positions PositionStore,
	deployments DeploymentStore,
	signals SignalStore,
	billing BillingStore,
	exceptions ExceptionSink,
	chainID int64,
) *TradeCoordinator {
	return &TradeCoordinator{
		gateway:     gw,
		provider:    provider,
		validator:   validator,
		tokens:      tokens,
		positions:   positions,
		deployments: deployments,
		signals:     signals,
		billing:     billing,
		exceptions:  exceptions,
		chainID:     chainID,
		config:      GetConfig(),
	}
}

// Open applies one signal to one deployment. The unique index on
// (deployment_id, signal_id) makes the operation at-most-once: a concurrent
// duplicate loses the insert race and reports ALREADY_EXECUTED.
func (c *TradeCoordinator) Open(ctx context.Context, signal *model.Signal, deployment *model.Deployment, source string) (*OpenResult, error) {
	log := logger.WithFields(map[string]interface{}{
		"signal_id":     signal.ID,
		"deployment_id": deployment.ID,
		"token":         signal.TokenSymbol,
		"venue":         signal.Venue,
		"side":          signal.Side,
	})
	log.Info("starting trade open flow")

	if !deployment.Tradeable() {
		log.Info("deployment not tradeable, skipping")
		return &OpenResult{Status: OpenSkipped, Reason: "DeploymentInactive"}, nil
	}

	safe := common.HexToAddress(deployment.SafeWallet)
	module := common.HexToAddress(deployment.ModuleAddress)

	// The chain is the source of truth for module authorization; the stored
	// flag is only a display cache, refreshed here when it drifts.
	enabled, err := c.gateway.IsModuleEnabled(ctx, safe, module)
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "gateway.IsModuleEnabled", "error", err, map[string]interface{}{
			"deployment_id": deployment.ID,
		})
		return nil, err
	}
	if enabled != deployment.ModuleEnabled {
		if err := c.deployments.UpdateModuleEnabled(ctx, deployment.ID, enabled); err != nil {
			log.WithError(err).Warn("failed to refresh cached module flag")
		}
	}
	if !enabled {
		log.Info("module disabled on chain, skipping")
		return &OpenResult{Status: OpenSkipped, Reason: "ModuleDisabled"}, nil
	}

	existing, err := c.positions.FindByDeploymentAndSignal(ctx, deployment.ID, signal.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		log.WithField("position_id", existing.ID).Info("signal already executed for deployment")
		return &OpenResult{Status: OpenAlreadyExecuted, Position: existing}, nil
	}

	connector, err := c.provider.ConnectorForVenue(signal.Venue)
	if err != nil {
		return nil, err
	}

	summary, err := connector.ExecutionSummary(ctx, signal, deployment)
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "connector.ExecutionSummary", "error", err, map[string]interface{}{
			"signal_id": signal.ID,
		})
		return nil, err
	}

	verdict, err := c.validator.ValidateTrade(ctx, signal, deployment, summary)
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "validator.ValidateTrade", "error", err, map[string]interface{}{
			"signal_id": signal.ID,
		})
		return nil, err
	}
	if !verdict.Approved {
		log.WithField("reason", verdict.Reason).Info("trade rejected by pre-trade validation")
		return &OpenResult{Status: OpenRejected, Reason: verdict.Reason}, nil
	}

	base, token, err := c.resolvePair(ctx, signal.TokenSymbol)
	if err != nil {
		return nil, err
	}
	baseAddr := common.HexToAddress(base.Address)
	tokenAddr := common.HexToAddress(token.Address)

	if err := c.ensureSafeReady(ctx, module, safe, baseAddr, tokenAddr); err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "ensureSafeReady", "error", err, map[string]interface{}{
			"deployment_id": deployment.ID,
		})
		return nil, err
	}

	amountIn := chain.ToBaseUnits(verdict.Size, base.Decimals)

	quote, err := connector.Quote(ctx, baseAddr, tokenAddr, amountIn)
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "connector.Quote", "error", err, map[string]interface{}{
			"signal_id": signal.ID,
		})
		return nil, err
	}
	minOut := applySlippage(quote.AmountOut, c.config.SlippageBps)

	amountOut, txHash, err := c.gateway.ExecuteTrade(ctx, module, gateway.TradeCall{
		Safe:           safe,
		TokenIn:        baseAddr,
		TokenOut:       tokenAddr,
		AmountIn:       amountIn,
		MinAmountOut:   minOut,
		PoolFee:        quote.PoolFee,
		ProfitReceiver: common.HexToAddress(deployment.ProfitReceiver),
	})
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "gateway.ExecuteTrade", "error", err, map[string]interface{}{
			"signal_id":     signal.ID,
			"deployment_id": deployment.ID,
			"tx_hash":       txHash,
		})
		return nil, err
	}

	// Entry facts come from what actually happened on chain, not the quote.
	qty := chain.FromBaseUnits(amountOut, token.Decimals)
	entryPrice := decimal.Zero
	if qty.IsPositive() {
		entryPrice = verdict.Size.Div(qty)
	}

	position := &model.Position{
		DeploymentID:    deployment.ID,
		SignalID:        signal.ID,
		Venue:           signal.Venue,
		TokenSymbol:     signal.TokenSymbol,
		Side:            signal.Side,
		Qty:             qty,
		EntryPrice:      entryPrice,
		EntryTxHash:     txHash,
		TrailingEnabled: c.config.TrailingEnabled,
		TrailingPercent: decimal.NewFromFloat(c.config.TrailingPercent),
		OpenedAt:        time.Now().UTC(),
		Source:          source,
	}
	applyExitTargets(position, signal, entryPrice)

	if err := c.positions.Create(ctx, position); err != nil {
		if errors.Is(err, repository.ErrDuplicatePosition) {
			// Lost the insert race to a concurrent attempt. The trade above
			// still happened on chain; the collision is surfaced loudly so
			// the duplicate exposure can be reconciled.
			Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "positions.Create", "warning", err, map[string]interface{}{
				"signal_id":     signal.ID,
				"deployment_id": deployment.ID,
				"tx_hash":       txHash,
			})
			winner, findErr := c.positions.FindByDeploymentAndSignal(ctx, deployment.ID, signal.ID)
			if findErr != nil {
				return nil, findErr
			}
			return &OpenResult{Status: OpenAlreadyExecuted, TxHash: txHash, Position: winner}, nil
		}
		return nil, err
	}

	intentHash := intentHashFor(deployment.ID, signal.ID, signal.TokenSymbol, signal.Side)
	if err := c.signals.MarkExecuted(ctx, signal.ID, intentHash, txHash); err != nil {
		// Provenance is best effort; the position row is authoritative.
		log.WithError(err).Warn("failed to record signal provenance")
	}

	log.WithFields(map[string]interface{}{
		"position_id": position.ID,
		"qty":         qty,
		"entry_price": entryPrice,
		"tx_hash":     txHash,
	}).Info("position opened")

	return &OpenResult{Status: OpenExecuted, TxHash: txHash, Position: position}, nil
}

// ensureSafeReady runs the idempotent one-time setup: capital initialization,
// token whitelisting, and router approvals. Each step re-checks the end state
// instead of trusting its own success.
func (c *TradeCoordinator) ensureSafeReady(ctx context.Context, module, safe, baseToken, tradeToken common.Address) error {
	stats, err := c.gateway.GetSafeStats(ctx, module, safe)
	if err != nil {
		return err
	}
	if !stats.Initialized {
		if err := c.gateway.InitializeCapital(ctx, module, safe); err != nil {
			return err
		}
	}

	for _, token := range []common.Address{baseToken, tradeToken} {
		whitelisted, err := c.gateway.IsTokenWhitelisted(ctx, module, safe, token)
		if err != nil {
			return err
		}
		if !whitelisted {
			if err := c.gateway.SetTokenWhitelist(ctx, module, safe, token, true); err != nil {
				return err
			}
		}
	}

	router := common.HexToAddress(c.config.DexRouter)
	for _, token := range []common.Address{baseToken, tradeToken} {
		allowance, err := c.gateway.TokenAllowance(ctx, token, safe, router)
		if err != nil {
			return err
		}
		if allowance.Sign() > 0 {
			continue
		}
		if err := c.gateway.ApproveTokenForDex(ctx, module, safe, token, router); err != nil {
			// The approval may have landed despite the error; only the
			// re-checked allowance decides.
			allowance, recheckErr := c.gateway.TokenAllowance(ctx, token, safe, router)
			if recheckErr != nil || allowance.Sign() == 0 {
				return err
			}
			logger.WithFields(map[string]interface{}{
				"token": token.Hex(),
				"safe":  safe.Hex(),
			}).Warn("approval errored but allowance is in place, continuing")
		}
	}

	return nil
}

func (c *TradeCoordinator) resolvePair(ctx context.Context, symbol string) (*model.TokenRegistryEntry, *model.TokenRegistryEntry, error) {
	base, err := c.tokens.FindToken(ctx, c.chainID, connectors.GetConfig().BaseAssetSymbol)
	if err != nil {
		return nil, nil, err
	}
	if base == nil {
		return nil, nil, fmt.Errorf("base asset not registered for chain %d", c.chainID)
	}

	token, err := c.tokens.FindToken(ctx, c.chainID, symbol)
	if err != nil {
		return nil, nil, err
	}
	if token == nil {
		return nil, nil, fmt.Errorf("token %s not registered for chain %d", symbol, c.chainID)
	}

	return base, token, nil
}

func applySlippage(amount *big.Int, slippageBps int64) *big.Int {
	out := new(big.Int).Mul(amount, big.NewInt(10000-slippageBps))
	return out.Div(out, big.NewInt(10000))
}

func applyExitTargets(position *model.Position, signal *model.Signal, entryPrice decimal.Decimal) {
	if entryPrice.LessThanOrEqual(decimal.Zero) {
		return
	}
	hundred := decimal.NewFromInt(100)

	if signal.TakeProfitPct != nil && signal.TakeProfitPct.IsPositive() {
		var target decimal.Decimal
		if signal.IsLong() {
			target = entryPrice.Mul(hundred.Add(*signal.TakeProfitPct)).Div(hundred)
		} else {
			target = entryPrice.Mul(hundred.Sub(*signal.TakeProfitPct)).Div(hundred)
		}
		position.TakeProfitPrice = &target
	}

	if signal.StopLossPct != nil && signal.StopLossPct.IsPositive() {
		var stop decimal.Decimal
		if signal.IsLong() {
			stop = entryPrice.Mul(hundred.Sub(*signal.StopLossPct)).Div(hundred)
		} else {
			stop = entryPrice.Mul(hundred.Add(*signal.StopLossPct)).Div(hundred)
		}
		position.StopLossPrice = &stop
	}
}

func intentHashFor(deploymentID, signalID uint, token, side string) string {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("%d:%d:%s:%s", deploymentID, signalID, token, side))).Hex()
}
