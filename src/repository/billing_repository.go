package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentexecutor/src/database"
	"agentexecutor/src/model"
)

// BillingRepository handles persistence of billing ledger entries.
type BillingRepository struct {
	db *gorm.DB
}

// NewBillingRepository creates a new repository instance.
func NewBillingRepository() *BillingRepository {
	return &BillingRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *BillingRepository) WithDB(db *gorm.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// RecordProfitShare writes the ledger mirror of an on-chain profit
// distribution. The reference is a fresh UUID; the unique index on it keeps
// accidental replays out of the ledger.
func (r *BillingRepository) RecordProfitShare(ctx context.Context, deploymentID, positionID uint, amount decimal.Decimal, txHash string) (*model.BillingLedgerEntry, error) {
	entry := &model.BillingLedgerEntry{
		Reference:    uuid.NewString(),
		DeploymentID: deploymentID,
		PositionID:   positionID,
		Kind:         model.BillingKindProfitShare,
		Amount:       amount,
		TxHash:       txHash,
	}

	logger.WithFields(map[string]interface{}{
		"repo":          "BillingRepository",
		"op":            "RecordProfitShare",
		"deployment_id": deploymentID,
		"position_id":   positionID,
		"amount":        amount,
		"reference":     entry.Reference,
	}).Info("Recording profit share ledger entry")

	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "BillingRepository",
			"op":          "RecordProfitShare",
			"position_id": positionID,
		}).WithError(err).Error("Failed to record profit share")

		return nil, err
	}

	return entry, nil
}
