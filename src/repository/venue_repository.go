package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentexecutor/src/database"
	"agentexecutor/src/model"
)

// VenueRepository reads venue constraints and the token registry. Both are
// maintained by an external process; this service never writes them.
type VenueRepository struct {
	db *gorm.DB
}

// NewVenueRepository creates a new repository instance.
func NewVenueRepository() *VenueRepository {
	return &VenueRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
func (r *VenueRepository) WithDB(db *gorm.DB) *VenueRepository {
	return &VenueRepository{db: db}
}

// FindConstraint fetches the execution constraint for a (venue, token) pair.
// Returns (nil, nil) if none is configured.
func (r *VenueRepository) FindConstraint(ctx context.Context, venue model.Venue, tokenSymbol string) (*model.VenueConstraint, error) {
	var constraint model.VenueConstraint

	err := r.db.WithContext(ctx).
		Where("venue = ? AND token_symbol = ?", venue, tokenSymbol).
		First(&constraint).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":  "VenueRepository",
			"op":    "FindConstraint",
			"venue": venue,
			"token": tokenSymbol,
		}).WithError(err).Error("Failed to fetch venue constraint")

		return nil, err
	}

	return &constraint, nil
}

// FindToken resolves a (chain, symbol) pair to its registry entry.
// Returns (nil, nil) if the token is not registered.
func (r *VenueRepository) FindToken(ctx context.Context, chainID int64, symbol string) (*model.TokenRegistryEntry, error) {
	var entry model.TokenRegistryEntry

	err := r.db.WithContext(ctx).
		Where("chain_id = ? AND symbol = ?", chainID, symbol).
		First(&entry).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo":     "VenueRepository",
			"op":       "FindToken",
			"chain_id": chainID,
			"symbol":   symbol,
		}).WithError(err).Error("Failed to fetch token registry entry")

		return nil, err
	}

	return &entry, nil
}
