package risk

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"agentexecutor/src/model"
)

func TestComputePositionSize(t *testing.T) {
	balance := decimal.NewFromInt(1000)

	tests := []struct {
		name      string
		sizeModel model.SizeModel
		want      string
		wantErr   error
	}{
		{
			name:      "five percent of balance",
			sizeModel: model.BalancePercentage{Value: decimal.NewFromInt(5)},
			want:      "50",
		},
		{
			name:      "fixed size within balance",
			sizeModel: model.FixedUSDC{Value: decimal.NewFromInt(30)},
			want:      "30",
		},
		{
			name:      "fixed size exceeding balance is rejected not clamped",
			sizeModel: model.FixedUSDC{Value: decimal.NewFromInt(2000)},
			wantErr:   ErrInsufficientBalance,
		},
		{
			name:      "fixed size equal to balance is allowed",
			sizeModel: model.FixedUSDC{Value: decimal.NewFromInt(1000)},
			want:      "1000",
		},
		{
			name:      "zero percentage is invalid",
			sizeModel: model.BalancePercentage{Value: decimal.Zero},
			wantErr:   ErrInvalidSizeModel,
		},
		{
			name:      "percentage above hundred is invalid",
			sizeModel: model.BalancePercentage{Value: decimal.NewFromInt(150)},
			wantErr:   ErrInvalidSizeModel,
		},
		{
			name:      "negative fixed size is invalid",
			sizeModel: model.FixedUSDC{Value: decimal.NewFromInt(-5)},
			wantErr:   ErrInvalidSizeModel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputePositionSize(balance, tt.sizeModel)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.String() != tt.want {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestUnknownSizeModelTypeIsError(t *testing.T) {
	signal := &model.Signal{SizeModelType: "kelly-criterion", SizeModelValue: decimal.NewFromInt(1)}

	_, err := signal.SizeModel()
	if err == nil {
		t.Fatal("expected error for unknown size model type")
	}
}
