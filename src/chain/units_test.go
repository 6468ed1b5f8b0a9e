package chain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
	}{
		{"usdc whole", "50", 6, "50000000"},
		{"usdc fraction", "0.25", 6, "250000"},
		{"weth", "1.5", 18, "1500000000000000000"},
		{"truncates beyond decimals", "0.0000001", 6, "0"},
		{"zero", "0", 18, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBaseUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			if got.String() != tt.want {
				t.Fatalf("ToBaseUnits(%s, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	wei, _ := new(big.Int).SetString("1500000000000000000", 10)
	if got := FromBaseUnits(wei, 18); !got.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("FromBaseUnits = %s, want 1.5", got)
	}
	if got := FromBaseUnits(nil, 6); !got.IsZero() {
		t.Fatalf("FromBaseUnits(nil) = %s, want 0", got)
	}
}

func TestRoundTrip(t *testing.T) {
	amount := decimal.RequireFromString("123.456789")
	back := FromBaseUnits(ToBaseUnits(amount, 6), 6)
	if !back.Equal(amount) {
		t.Fatalf("round trip mismatch: got %s want %s", back, amount)
	}
}
