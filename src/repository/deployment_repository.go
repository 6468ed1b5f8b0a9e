package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentexecutor/src/database"
	"agentexecutor/src/model"
)

// DeploymentRepository handles persistence of agent deployments.
type DeploymentRepository struct {
	db *gorm.DB
}

// NewDeploymentRepository creates a new repository instance.
func NewDeploymentRepository() *DeploymentRepository {
	return &DeploymentRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *DeploymentRepository) WithDB(db *gorm.DB) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

// FindByID fetches a deployment by its primary ID.
// Returns (nil, nil) if not found.
func (r *DeploymentRepository) FindByID(ctx context.Context, id uint) (*model.Deployment, error) {
	var deployment model.Deployment

	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&deployment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "DeploymentRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch deployment by ID")

		return nil, err
	}

	return &deployment, nil
}

// FindActiveByAgent fetches the tradeable deployments subscribed to an agent:
// status ACTIVE and subscription current. Module state is verified on chain
// at execution time, never from here.
func (r *DeploymentRepository) FindActiveByAgent(ctx context.Context, agentID uint) ([]model.Deployment, error) {
	logger.WithFields(map[string]interface{}{
		"repo":     "DeploymentRepository",
		"op":       "FindActiveByAgent",
		"agent_id": agentID,
	}).Debug("Fetching active deployments for agent")

	var deployments []model.Deployment

	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND status = ? AND subscription_active = ?", agentID, model.DeploymentStatusActive, true).
		Order("id ASC").
		Find(&deployments).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":     "DeploymentRepository",
			"op":       "FindActiveByAgent",
			"agent_id": agentID,
		}).WithError(err).Error("Failed to fetch active deployments")

		return nil, err
	}

	return deployments, nil
}

// UpdateModuleEnabled refreshes the cached module flag. The cache is
// display-only; execution paths always re-check the chain.
func (r *DeploymentRepository) UpdateModuleEnabled(ctx context.Context, id uint, enabled bool) error {
	err := r.db.WithContext(ctx).
		Model(&model.Deployment{}).
		Where("id = ?", id).
		Update("module_enabled", enabled).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "DeploymentRepository",
			"op":      "UpdateModuleEnabled",
			"id":      id,
			"enabled": enabled,
		}).WithError(err).Error("Failed to update cached module flag")
	}

	return err
}
