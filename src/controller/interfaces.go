package controller

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"agentexecutor/src/connectors"
	"agentexecutor/src/gateway"
	"agentexecutor/src/model"
	"agentexecutor/src/risk"
)

// ExecutionGateway is the slice of the on-chain gateway the coordinator
// needs. *gateway.Gateway satisfies it.
type ExecutionGateway interface {
	IsModuleEnabled(ctx context.Context, safe, module common.Address) (bool, error)
	GetSafeStats(ctx context.Context, module, safe common.Address) (*gateway.SafeStats, error)
	InitializeCapital(ctx context.Context, module, safe common.Address) error
	IsTokenWhitelisted(ctx context.Context, module, safe, token common.Address) (bool, error)
	SetTokenWhitelist(ctx context.Context, module, safe, token common.Address, enabled bool) error
	ApproveTokenForDex(ctx context.Context, module, safe, token, spender common.Address) error
	TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	ExecuteTrade(ctx context.Context, module common.Address, call gateway.TradeCall) (*big.Int, string, error)
	ClosePosition(ctx context.Context, module common.Address, call gateway.TradeCall) (*big.Int, string, error)
}

// TradeValidator runs the pre-trade checks. *risk.Validator satisfies it.
type TradeValidator interface {
	ValidateTrade(ctx context.Context, signal *model.Signal, deployment *model.Deployment, summary *connectors.ExecutionSummary) (*risk.Verdict, error)
}

// PositionStore is the position persistence slice the coordinator needs.
type PositionStore interface {
	Create(ctx context.Context, position *model.Position) error
	FindByDeploymentAndSignal(ctx context.Context, deploymentID, signalID uint) (*model.Position, error)
	Close(ctx context.Context, id uint, exitPrice, pnl decimal.Decimal, exitTxHash, reason string) (bool, error)
}

// DeploymentStore resolves deployments and refreshes the cached module flag.
type DeploymentStore interface {
	FindByID(ctx context.Context, id uint) (*model.Deployment, error)
	UpdateModuleEnabled(ctx context.Context, id uint, enabled bool) error
}

// SignalStore records execution provenance.
type SignalStore interface {
	MarkExecuted(ctx context.Context, id uint, intentHash, txHash string) error
}

// BillingStore mirrors on-chain profit distributions into the ledger.
type BillingStore interface {
	RecordProfitShare(ctx context.Context, deploymentID, positionID uint, amount decimal.Decimal, txHash string) (*model.BillingLedgerEntry, error)
}
