package controller

import (
	"context"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"

	"agentexecutor/src/model"
	"agentexecutor/src/risk"
	"agentexecutor/src/tp_sl"
)

// Full lifecycle against mocks: a signal opens a position, the price runs up,
// the trailing stop activates and ratchets, a retrace triggers the close, and
// the profit share lands in the ledger.
func TestLifecycleOpenTrailClose(t *testing.T) {
	gw := readyGateway()
	gw.tokenBalance = weth("25000000000000000")
	gw.closeProceeds = big.NewInt(51_750_000) // 0.025 WETH sold at ~2070
	gw.closeTxHash = "0xclose"
	fx := newFixture(gw, &risk.Verdict{Approved: true, Size: decimal.NewFromInt(50)})

	result, err := fx.coordinator.Open(context.Background(), testSignal(), testDeployment(), model.PositionSourceAuto)
	if err != nil {
		t.Fatalf("unexpected open error: %v", err)
	}
	if result.Status != OpenExecuted {
		t.Fatalf("expected EXECUTED, got %s (%s)", result.Status, result.Reason)
	}

	position := fx.positions.created[0]
	activation := decimal.NewFromInt(3)

	// Below activation: nothing happens.
	eval := tp_sl.EvaluateExit(position, decimal.NewFromInt(2030), activation, false)
	if eval.CloseReason != "" || eval.StateChanged {
		t.Fatalf("expected no-op below activation, got %+v", eval)
	}

	// 3% favorable move activates the trail and seeds the watermark.
	eval = tp_sl.EvaluateExit(position, decimal.NewFromInt(2060), activation, false)
	if eval.CloseReason != "" || !eval.StateChanged {
		t.Fatalf("expected activation without close, got %+v", eval)
	}
	if !position.TrailingActive || position.HighestPrice == nil || !position.HighestPrice.Equal(decimal.NewFromInt(2060)) {
		t.Fatalf("expected watermark seeded at 2060, got %+v", position)
	}

	// New high ratchets the watermark.
	eval = tp_sl.EvaluateExit(position, decimal.NewFromInt(2100), activation, false)
	if eval.CloseReason != "" || !eval.StateChanged {
		t.Fatalf("expected watermark update without close, got %+v", eval)
	}
	if !position.HighestPrice.Equal(decimal.NewFromInt(2100)) {
		t.Fatalf("expected watermark 2100, got %s", position.HighestPrice)
	}

	// Retrace past 1% of the watermark (stop at 2079) triggers the close.
	eval = tp_sl.EvaluateExit(position, decimal.NewFromInt(2070), activation, false)
	if eval.CloseReason != model.CloseReasonTrailingStop {
		t.Fatalf("expected trailing stop trigger, got %+v", eval)
	}

	closeResult, err := fx.coordinator.Close(context.Background(), position, eval.CloseReason, decimal.NewFromInt(2070))
	if err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if closeResult.Status != CloseClosed {
		t.Fatalf("expected CLOSED, got %s", closeResult.Status)
	}
	// pnl = 51.75 proceeds - 50 entry value
	if closeResult.Pnl.String() != "1.75" {
		t.Fatalf("expected pnl 1.75, got %s", closeResult.Pnl)
	}
	if fx.positions.lastReason != model.CloseReasonTrailingStop {
		t.Fatalf("unexpected close reason: %s", fx.positions.lastReason)
	}

	// profit share = 1.75 * 1000 / 10000
	if len(fx.billing.entries) != 1 {
		t.Fatalf("expected 1 billing entry, got %d", len(fx.billing.entries))
	}
	if fx.billing.entries[0].Amount.String() != "0.175" {
		t.Fatalf("expected ledger amount 0.175, got %s", fx.billing.entries[0].Amount)
	}
}
