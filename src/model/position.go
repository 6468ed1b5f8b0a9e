package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	PositionSourceAuto     = "auto"
	PositionSourceTelegram = "telegram"
)

// Close trigger reasons recorded on exit.
const (
	CloseReasonTrailingStop = "TRAILING_STOP"
	CloseReasonTakeProfit   = "TAKE_PROFIT"
	CloseReasonStopLoss     = "STOP_LOSS"
	CloseReasonManual       = "MANUAL"
)

// Position is the record of one open or closed trade. A nil ClosedAt is the
// open state; there is no separate status enum. The composite unique index on
// (deployment_id, signal_id) is the at-most-once execution guarantee.
type Position struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	DeploymentID uint   `gorm:"uniqueIndex:idx_positions_deployment_signal" json:"deployment_id"`
	SignalID     uint   `gorm:"uniqueIndex:idx_positions_deployment_signal" json:"signal_id"`
	Venue        Venue  `gorm:"size:20" json:"venue"`
	TokenSymbol  string `gorm:"size:20" json:"token_symbol"`
	Side         string `gorm:"size:10" json:"side"`

	Qty         decimal.Decimal `gorm:"type:numeric" json:"qty"`
	EntryPrice  decimal.Decimal `gorm:"type:numeric" json:"entry_price"`
	EntryTxHash string          `gorm:"size:80" json:"entry_tx_hash"`

	StopLossPrice   *decimal.Decimal `gorm:"type:numeric" json:"stop_loss_price,omitempty"`
	TakeProfitPrice *decimal.Decimal `gorm:"type:numeric" json:"take_profit_price,omitempty"`

	// Trailing-stop state, mutated in place by the position monitor while the
	// position is open.
	TrailingEnabled bool             `json:"trailing_enabled"`
	TrailingPercent decimal.Decimal  `gorm:"type:numeric" json:"trailing_percent"`
	TrailingActive  bool             `json:"trailing_active"`
	HighestPrice    *decimal.Decimal `gorm:"type:numeric" json:"highest_price,omitempty"`
	LowestPrice     *decimal.Decimal `gorm:"type:numeric" json:"lowest_price,omitempty"`

	OpenedAt    time.Time        `json:"opened_at"`
	ClosedAt    *time.Time       `json:"closed_at,omitempty"`
	ExitPrice   *decimal.Decimal `gorm:"type:numeric" json:"exit_price,omitempty"`
	ExitTxHash  *string          `gorm:"size:80" json:"exit_tx_hash,omitempty"`
	Pnl         *decimal.Decimal `gorm:"type:numeric" json:"pnl,omitempty"`
	CloseReason *string          `gorm:"size:30" json:"close_reason,omitempty"`

	Source    string    `gorm:"size:20;not null;default:auto" json:"source"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLong reports whether the position is long the token.
func (p *Position) IsLong() bool {
	return p.Side == SideBuy
}

// IsOpen reports whether the position has not been closed yet.
func (p *Position) IsOpen() bool {
	return p.ClosedAt == nil
}
