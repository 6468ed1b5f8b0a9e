package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const BillingKindProfitShare = "profit_share"

// BillingLedgerEntry mirrors an on-chain profit distribution for off-chain
// reporting. The money movement already happened inside the module; this
// record only exists so billing can be reconciled without replaying the chain.
type BillingLedgerEntry struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	Reference    string          `gorm:"size:40;uniqueIndex" json:"reference"`
	DeploymentID uint            `gorm:"index" json:"deployment_id"`
	PositionID   uint            `gorm:"index" json:"position_id"`
	Kind         string          `gorm:"size:30;not null" json:"kind"`
	Amount       decimal.Decimal `gorm:"type:numeric" json:"amount"`
	TxHash       string          `gorm:"size:80" json:"tx_hash"`
	CreatedAt    time.Time       `json:"created_at"`
}
