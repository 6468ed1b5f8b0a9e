package model

import "time"

const (
	DeploymentStatusActive = "ACTIVE"
	DeploymentStatusPaused = "PAUSED"
)

// Deployment binds one agent to one end-user Safe wallet and its trading
// module. ModuleEnabled is a cache of the on-chain flag and is only used for
// display; money-moving paths verify the chain directly.
type Deployment struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AgentID            uint      `gorm:"index" json:"agent_id"`
	UserWallet         string    `gorm:"size:64" json:"user_wallet"`
	SafeWallet         string    `gorm:"size:64;index" json:"safe_wallet"`
	ModuleAddress      string    `gorm:"size:64" json:"module_address"`
	ProfitReceiver     string    `gorm:"size:64" json:"profit_receiver"`
	ModuleEnabled      bool      `json:"module_enabled"`
	Status             string    `gorm:"size:20;not null;default:ACTIVE" json:"status"`
	SubscriptionActive bool      `json:"subscription_active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Tradeable reports whether the deployment passes the off-chain gates.
// The on-chain module-enabled check still happens at execution time.
func (d *Deployment) Tradeable() bool {
	return d.Status == DeploymentStatusActive && d.SubscriptionActive
}
