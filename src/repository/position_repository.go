package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentexecutor/src/database"
	"agentexecutor/src/model"
)

// ErrDuplicatePosition means a position for the same (deployment, signal)
// pair already exists. The unique index is the at-most-once guarantee; this
// error is the normal outcome of a concurrent duplicate attempt.
var ErrDuplicatePosition = errors.New("position already exists for deployment and signal")

// PositionRepository handles persistence of trade positions.
type PositionRepository struct {
	db *gorm.DB
}

// NewPositionRepository creates a new repository instance.
func NewPositionRepository() *PositionRepository {
	return &PositionRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts a new position. A unique-index collision on
// (deployment_id, signal_id) is mapped to ErrDuplicatePosition.
func (r *PositionRepository) Create(ctx context.Context, position *model.Position) error {
	logger.WithFields(map[string]interface{}{
		"repo":          "PositionRepository",
		"op":            "Create",
		"deployment_id": position.DeploymentID,
		"signal_id":     position.SignalID,
		"token":         position.TokenSymbol,
	}).Debug("Creating position")

	err := r.db.WithContext(ctx).Create(position).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			logger.WithFields(map[string]interface{}{
				"repo":          "PositionRepository",
				"op":            "Create",
				"deployment_id": position.DeploymentID,
				"signal_id":     position.SignalID,
			}).Info("Duplicate position rejected by unique index")
			return ErrDuplicatePosition
		}

		logger.WithFields(map[string]interface{}{
			"repo":          "PositionRepository",
			"op":            "Create",
			"deployment_id": position.DeploymentID,
			"signal_id":     position.SignalID,
		}).WithError(err).Error("Failed to create position")

		return err
	}

	return nil
}

// FindByID fetches a position by its primary ID.
// Returns (nil, nil) if not found.
func (r *PositionRepository) FindByID(ctx context.Context, id uint) (*model.Position, error) {
	var position model.Position

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&position).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch position by ID")

		return nil, err
	}

	return &position, nil
}

// FindByDeploymentAndSignal fetches the position for a (deployment, signal)
// pair, open or closed. Returns (nil, nil) if none exists.
func (r *PositionRepository) FindByDeploymentAndSignal(ctx context.Context, deploymentID, signalID uint) (*model.Position, error) {
	var position model.Position

	err := r.db.WithContext(ctx).
		Where("deployment_id = ? AND signal_id = ?", deploymentID, signalID).
		First(&position).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":          "PositionRepository",
			"op":            "FindByDeploymentAndSignal",
			"deployment_id": deploymentID,
			"signal_id":     signalID,
		}).WithError(err).Error("Failed to fetch position by deployment and signal")

		return nil, err
	}

	return &position, nil
}

// FindOpen fetches every open position, oldest first. Open means closed_at
// is null; there is no status column.
func (r *PositionRepository) FindOpen(ctx context.Context) ([]model.Position, error) {
	var positions []model.Position

	err := r.db.WithContext(ctx).
		Where("closed_at IS NULL").
		Order("id ASC").
		Find(&positions).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "FindOpen",
		}).WithError(err).Error("Failed to fetch open positions")

		return nil, err
	}

	return positions, nil
}

// UpdateTrailing persists the trailing-stop state after the monitor mutated
// it. Only the trailing columns are touched.
func (r *PositionRepository) UpdateTrailing(ctx context.Context, position *model.Position) error {
	logger.WithFields(map[string]interface{}{
		"repo":        "PositionRepository",
		"op":          "UpdateTrailing",
		"position_id": position.ID,
		"active":      position.TrailingActive,
	}).Debug("Persisting trailing state")

	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ?", position.ID).
		Updates(map[string]interface{}{
			"trailing_active": position.TrailingActive,
			"highest_price":   position.HighestPrice,
			"lowest_price":    position.LowestPrice,
		}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "UpdateTrailing",
			"position_id": position.ID,
		}).WithError(err).Error("Failed to persist trailing state")
	}

	return err
}

// Close marks a position closed with its exit facts. The closed_at IS NULL
// guard makes the operation idempotent: the first close wins and a repeat
// reports closed=false without touching the row.
func (r *PositionRepository) Close(ctx context.Context, id uint, exitPrice, pnl decimal.Decimal, exitTxHash, reason string) (bool, error) {
	now := time.Now().UTC()

	result := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND closed_at IS NULL", id).
		Updates(map[string]interface{}{
			"closed_at":    now,
			"exit_price":   exitPrice,
			"exit_tx_hash": exitTxHash,
			"pnl":          pnl,
			"close_reason": reason,
		})

	if result.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "PositionRepository",
			"op":          "Close",
			"position_id": id,
			"reason":      reason,
		}).WithError(result.Error).Error("Failed to close position")

		return false, result.Error
	}

	closed := result.RowsAffected > 0

	logger.WithFields(map[string]interface{}{
		"repo":        "PositionRepository",
		"op":          "Close",
		"position_id": id,
		"reason":      reason,
		"closed":      closed,
		"pnl":         pnl,
	}).Info("Position close attempted")

	return closed, nil
}
