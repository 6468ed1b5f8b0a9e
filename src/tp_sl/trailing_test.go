package tp_sl

import (
	"testing"

	"github.com/shopspring/decimal"

	"agentexecutor/src/model"
)

var activationPct = decimal.NewFromInt(3)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func dp(value string) *decimal.Decimal {
	v := decimal.RequireFromString(value)
	return &v
}

func openLong(entry string) *model.Position {
	return &model.Position{
		ID:              1,
		Side:            model.SideBuy,
		EntryPrice:      d(entry),
		TrailingEnabled: true,
		TrailingPercent: decimal.NewFromInt(1),
	}
}

func openShort(entry string) *model.Position {
	p := openLong(entry)
	p.Side = model.SideSell
	return p
}

func TestTrailingLongPath(t *testing.T) {
	position := openLong("100")

	steps := []struct {
		price       string
		wantActive  bool
		wantHigh    string
		wantTrigger bool
	}{
		{price: "100", wantActive: false},
		{price: "104", wantActive: true, wantHigh: "104"},
		{price: "106", wantActive: true, wantHigh: "106"},
		// stop is 106 * 0.99 = 104.94
		{price: "105", wantActive: true, wantHigh: "106"},
		{price: "104.8", wantActive: true, wantHigh: "106", wantTrigger: true},
	}

	for i, step := range steps {
		eval := EvaluateExit(position, d(step.price), activationPct, false)

		if position.TrailingActive != step.wantActive {
			t.Fatalf("step %d: active = %v, want %v", i, position.TrailingActive, step.wantActive)
		}
		if step.wantHigh != "" {
			if position.HighestPrice == nil || !position.HighestPrice.Equal(d(step.wantHigh)) {
				t.Fatalf("step %d: highest = %v, want %s", i, position.HighestPrice, step.wantHigh)
			}
		}
		if step.wantTrigger {
			if eval.CloseReason != model.CloseReasonTrailingStop {
				t.Fatalf("step %d: expected trailing stop trigger, got %q", i, eval.CloseReason)
			}
		} else if eval.CloseReason != "" {
			t.Fatalf("step %d: unexpected close reason %q", i, eval.CloseReason)
		}
	}
}

func TestTrailingShortPath(t *testing.T) {
	position := openShort("100")

	// Activation at 97 (3% favorable), watermark ratchets down to 94,
	// stop is 94 * 1.01 = 94.94, so 95 triggers.
	prices := []string{"100", "97", "94", "95"}
	var last Evaluation
	for _, price := range prices {
		last = EvaluateExit(position, d(price), activationPct, false)
	}

	if position.LowestPrice == nil || !position.LowestPrice.Equal(d("94")) {
		t.Fatalf("lowest = %v, want 94", position.LowestPrice)
	}
	if last.CloseReason != model.CloseReasonTrailingStop {
		t.Fatalf("expected trailing stop trigger, got %q", last.CloseReason)
	}
}

func TestTrailingNotActivatedBelowThreshold(t *testing.T) {
	position := openLong("100")

	eval := EvaluateExit(position, d("102.99"), activationPct, false)
	if position.TrailingActive {
		t.Fatal("trailing should not activate below the threshold")
	}
	if eval.StateChanged {
		t.Fatal("no state change expected below the threshold")
	}
}

func TestActivationMarksStateChanged(t *testing.T) {
	position := openLong("100")

	eval := EvaluateExit(position, d("103"), activationPct, false)
	if !position.TrailingActive {
		t.Fatal("expected activation at exactly 3 percent")
	}
	if !eval.StateChanged {
		t.Fatal("activation must be reported for persistence")
	}
	if eval.CloseReason != "" {
		t.Fatalf("activation tick must not trigger, got %q", eval.CloseReason)
	}
}

func TestWatermarkUpdateMarksStateChanged(t *testing.T) {
	position := openLong("100")
	EvaluateExit(position, d("104"), activationPct, false)

	eval := EvaluateExit(position, d("105"), activationPct, false)
	if !eval.StateChanged {
		t.Fatal("watermark move must be reported for persistence")
	}

	eval = EvaluateExit(position, d("104.5"), activationPct, false)
	if eval.StateChanged {
		t.Fatal("no state change expected when price stays under the watermark")
	}
}

func TestTakeProfitExactBoundary(t *testing.T) {
	position := openLong("100")
	position.TrailingEnabled = false
	position.TakeProfitPrice = dp("120")

	if eval := EvaluateExit(position, d("119.999"), activationPct, false); eval.CloseReason != "" {
		t.Fatalf("119.999 must not trigger, got %q", eval.CloseReason)
	}
	if eval := EvaluateExit(position, d("120"), activationPct, false); eval.CloseReason != model.CloseReasonTakeProfit {
		t.Fatalf("expected take profit at exactly 120, got %q", eval.CloseReason)
	}
}

func TestTrailingWinsOverTakeProfit(t *testing.T) {
	position := openLong("100")
	position.TakeProfitPrice = dp("104.5")
	EvaluateExit(position, d("104"), activationPct, false)
	EvaluateExit(position, d("106"), activationPct, false)

	// 104.8 is under both the trailing stop (104.94) and above take profit;
	// trailing is evaluated first.
	eval := EvaluateExit(position, d("104.8"), activationPct, false)
	if eval.CloseReason != model.CloseReasonTrailingStop {
		t.Fatalf("expected trailing stop to win, got %q", eval.CloseReason)
	}
}

func TestFixedStopLossDisabledByDefault(t *testing.T) {
	position := openLong("100")
	position.TrailingEnabled = false
	position.StopLossPrice = dp("95")

	if eval := EvaluateExit(position, d("90"), activationPct, false); eval.CloseReason != "" {
		t.Fatalf("disabled stop loss must not trigger, got %q", eval.CloseReason)
	}
	if eval := EvaluateExit(position, d("90"), activationPct, true); eval.CloseReason != model.CloseReasonStopLoss {
		t.Fatalf("expected stop loss when enabled, got %q", eval.CloseReason)
	}
}

func TestShortTakeProfit(t *testing.T) {
	position := openShort("100")
	position.TrailingEnabled = false
	position.TakeProfitPrice = dp("80")

	if eval := EvaluateExit(position, d("80"), activationPct, false); eval.CloseReason != model.CloseReasonTakeProfit {
		t.Fatalf("expected take profit at 80 for short, got %q", eval.CloseReason)
	}
}

func TestZeroPriceIsIgnored(t *testing.T) {
	position := openLong("100")

	eval := EvaluateExit(position, decimal.Zero, activationPct, true)
	if eval.CloseReason != "" || eval.StateChanged {
		t.Fatalf("zero price must be a no-op, got %+v", eval)
	}
}

func TestDefaultTrailingPercentApplies(t *testing.T) {
	position := openLong("100")
	position.TrailingPercent = decimal.Zero
	EvaluateExit(position, d("104"), activationPct, false)
	EvaluateExit(position, d("106"), activationPct, false)

	eval := EvaluateExit(position, d("104.8"), activationPct, false)
	if eval.CloseReason != model.CloseReasonTrailingStop {
		t.Fatalf("expected default 1 percent retrace to trigger, got %q", eval.CloseReason)
	}
}
