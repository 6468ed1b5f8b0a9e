package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies where a signal wants to trade. Only SPOT is executable;
// the perpetual venues are wired as stubs until their modules ship.
type Venue string

const (
	VenueSpot        Venue = "SPOT"
	VenueGMX         Venue = "GMX"
	VenueHyperliquid Venue = "HYPERLIQUID"
)

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

const (
	SizeModelBalancePercentage = "balance-percentage"
	SizeModelFixedUSDC         = "fixed-usdc"
)

// Signal is an instruction to trade, produced by the external classification
// pipeline. Signals are immutable once created except for the provenance
// fields written after execution.
type Signal struct {
	ID             uint             `gorm:"primaryKey" json:"id"`
	AgentID        uint             `gorm:"index" json:"agent_id"`
	TokenSymbol    string           `gorm:"size:20" json:"token_symbol"`
	Venue          Venue            `gorm:"size:20" json:"venue"`
	Side           string           `gorm:"size:10" json:"side"`
	SizeModelType  string           `gorm:"size:30;column:size_model_type" json:"size_model_type"`
	SizeModelValue decimal.Decimal  `gorm:"type:numeric;column:size_model_value" json:"size_model_value"`
	StopLossPct    *decimal.Decimal `gorm:"type:numeric" json:"stop_loss_pct,omitempty"`
	TakeProfitPct  *decimal.Decimal `gorm:"type:numeric" json:"take_profit_pct,omitempty"`

	// Provenance, written post-execution through the main (write) connection.
	IntentHash      *string `gorm:"size:80" json:"intent_hash,omitempty"`
	ExecutionTxHash *string `gorm:"size:80" json:"execution_tx_hash,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName ensures GORM uses the exact table name from the signal database.
func (Signal) TableName() string {
	return "agent_signals"
}

// SizeModel returns the signal's sizing instruction as a closed union.
// Unknown model types are an error, never a silent default.
func (s *Signal) SizeModel() (SizeModel, error) {
	return ParseSizeModel(s.SizeModelType, s.SizeModelValue)
}

// IsLong reports whether the signal opens a long position.
func (s *Signal) IsLong() bool {
	return s.Side == SideBuy
}
