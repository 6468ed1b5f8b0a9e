package controller

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"agentexecutor/src/chain"
	"agentexecutor/src/gateway"
	"agentexecutor/src/model"
)

// Close outcome statuses.
const (
	CloseClosed         = "CLOSED"
	CloseAlreadyClosed  = "ALREADY_CLOSED"
	CloseNothingToClose = "NOTHING_TO_CLOSE"
)

// CloseResult is the outcome of one close attempt.
type CloseResult struct {
	Status string          `json:"status"`
	TxHash string          `json:"tx_hash,omitempty"`
	Pnl    decimal.Decimal `json:"pnl"`
}

// Close swaps a position back into the base asset and marks it closed.
// Closing an already-closed position is a quiet no-op, so the monitor and a
// manual operator can race without harm. The swap amount is the live token
// balance, never the stored quantity.
func (c *TradeCoordinator) Close(ctx context.Context, position *model.Position, reason string, triggerPrice decimal.Decimal) (*CloseResult, error) {
	log := logger.WithFields(map[string]interface{}{
		"position_id":   position.ID,
		"deployment_id": position.DeploymentID,
		"token":         position.TokenSymbol,
		"reason":        reason,
	})
	log.Info("starting position close flow")

	if !position.IsOpen() {
		log.Info("position already closed, nothing to do")
		return &CloseResult{Status: CloseAlreadyClosed}, nil
	}

	deployment, err := c.deployments.FindByID(ctx, position.DeploymentID)
	if err != nil {
		return nil, err
	}
	if deployment == nil {
		return nil, fmt.Errorf("deployment %d not found for position %d", position.DeploymentID, position.ID)
	}

	safe := common.HexToAddress(deployment.SafeWallet)
	module := common.HexToAddress(deployment.ModuleAddress)

	base, token, err := c.resolvePair(ctx, position.TokenSymbol)
	if err != nil {
		return nil, err
	}
	baseAddr := common.HexToAddress(base.Address)
	tokenAddr := common.HexToAddress(token.Address)

	balance, err := c.gateway.TokenBalance(ctx, tokenAddr, safe)
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "gateway.TokenBalance", "error", err, map[string]interface{}{
			"position_id": position.ID,
		})
		return nil, err
	}

	if balance.Sign() == 0 {
		// The tokens are gone, moved outside this service. Record the close
		// so the position stops being monitored; there is nothing to swap.
		log.Warn("no token balance left to close, marking position closed")
		closed, err := c.positions.Close(ctx, position.ID, triggerPrice, decimal.Zero, "", reason)
		if err != nil {
			return nil, err
		}
		if !closed {
			return &CloseResult{Status: CloseAlreadyClosed}, nil
		}
		return &CloseResult{Status: CloseNothingToClose}, nil
	}

	connector, err := c.provider.ConnectorForVenue(position.Venue)
	if err != nil {
		return nil, err
	}

	quote, err := connector.Quote(ctx, tokenAddr, baseAddr, balance)
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "connector.Quote", "error", err, map[string]interface{}{
			"position_id": position.ID,
		})
		return nil, err
	}
	minOut := applySlippage(quote.AmountOut, c.config.SlippageBps)

	entryValue := position.Qty.Mul(position.EntryPrice)
	proceeds, txHash, err := c.gateway.ClosePosition(ctx, module, gateway.TradeCall{
		Safe:           safe,
		TokenIn:        tokenAddr,
		TokenOut:       baseAddr,
		AmountIn:       balance,
		MinAmountOut:   minOut,
		PoolFee:        quote.PoolFee,
		ProfitReceiver: common.HexToAddress(deployment.ProfitReceiver),
		EntryValue:     chain.ToBaseUnits(entryValue, base.Decimals),
	})
	if err != nil {
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "gateway.ClosePosition", "error", err, map[string]interface{}{
			"position_id": position.ID,
			"tx_hash":     txHash,
		})
		return nil, err
	}

	proceedsDec := chain.FromBaseUnits(proceeds, base.Decimals)
	pnl := proceedsDec.Sub(entryValue)

	exitPrice := triggerPrice
	if exitPrice.LessThanOrEqual(decimal.Zero) && position.Qty.IsPositive() {
		exitPrice = proceedsDec.Div(position.Qty)
	}

	closed, err := c.positions.Close(ctx, position.ID, exitPrice, pnl, txHash, reason)
	if err != nil {
		return nil, err
	}
	if !closed {
		// A concurrent close won the row after our swap went through. The
		// collision is captured for reconciliation.
		Capture(ctx, c.exceptions, "TradeCoordinator", "controller", "positions.Close", "warning",
			fmt.Errorf("position %d closed concurrently, tx %s unaccounted", position.ID, txHash),
			map[string]interface{}{"position_id": position.ID, "tx_hash": txHash})
		return &CloseResult{Status: CloseAlreadyClosed, TxHash: txHash, Pnl: pnl}, nil
	}

	if pnl.IsPositive() && c.billing != nil {
		share := pnl.Mul(decimal.NewFromInt(c.config.ProfitShareBps)).Div(decimal.NewFromInt(10000))
		if _, err := c.billing.RecordProfitShare(ctx, deployment.ID, position.ID, share, txHash); err != nil {
			// The on-chain distribution already happened; the ledger mirror
			// is best effort.
			log.WithError(err).Error("failed to record profit share ledger entry")
		}
	}

	log.WithFields(map[string]interface{}{
		"pnl":        pnl,
		"exit_price": exitPrice,
		"tx_hash":    txHash,
	}).Info("position closed")

	return &CloseResult{Status: CloseClosed, TxHash: txHash, Pnl: pnl}, nil
}
