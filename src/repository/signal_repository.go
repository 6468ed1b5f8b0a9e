package repository

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"agentexecutor/src/database"
	"agentexecutor/src/model"
)

// SignalRepository reads signals from the read-only signal database and
// writes execution provenance back through the main (write) connection.
type SignalRepository struct {
	readDB  *gorm.DB
	writeDB *gorm.DB
}

// NewSignalRepository creates a new repository instance bound to the
// read-only signal connection and the main write connection.
func NewSignalRepository() *SignalRepository {
	return &SignalRepository{
		readDB:  database.SignalDB,
		writeDB: database.MainDB,
	}
}

// WithDB allows overriding both underlying *gorm.DB instances.
// Useful for tests or custom sessions/transactions.
func (r *SignalRepository) WithDB(readDB, writeDB *gorm.DB) *SignalRepository {
	return &SignalRepository{readDB: readDB, writeDB: writeDB}
}

// FindByID fetches a single signal by its primary ID.
// Returns (nil, nil) if not found.
func (r *SignalRepository) FindByID(ctx context.Context, id uint) (*model.Signal, error) {
	var signal model.Signal

	err := r.readDB.WithContext(ctx).
		Where("id = ?", id).
		First(&signal).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // not found is not an error
		}

		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch signal by ID")

		return nil, err
	}

	return &signal, nil
}

// FindAfterID fetches signals with ID greater than lastID, ordered from
// oldest to newest. This is the incremental polling primitive of the
// signal loop.
func (r *SignalRepository) FindAfterID(ctx context.Context, lastID uint, limit int) ([]model.Signal, error) {
	if limit <= 0 {
		limit = 100 // default safety limit
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "SignalRepository",
		"op":     "FindAfterID",
		"lastID": lastID,
		"limit":  limit,
	}).Debug("Fetching signals after ID")

	var signals []model.Signal

	err := r.readDB.WithContext(ctx).
		Where("id > ?", lastID).
		Order("id ASC").
		Limit(limit).
		Find(&signals).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "SignalRepository",
			"op":     "FindAfterID",
			"lastID": lastID,
		}).WithError(err).Error("Failed to fetch signals after ID")

		return nil, err
	}

	if len(signals) > 0 {
		logger.WithFields(map[string]interface{}{
			"repo":        "SignalRepository",
			"op":          "FindAfterID",
			"lastID":      lastID,
			"rows_return": len(signals),
		}).Info("New signals fetched")
	}

	return signals, nil
}

// LatestID returns the highest signal ID currently present, used to seed the
// polling cursor so a fresh process does not replay the whole history.
func (r *SignalRepository) LatestID(ctx context.Context) (uint, error) {
	var signal model.Signal

	err := r.readDB.WithContext(ctx).
		Order("id DESC").
		First(&signal).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}

		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "LatestID",
		}).WithError(err).Error("Failed to fetch latest signal ID")

		return 0, err
	}

	return signal.ID, nil
}

// MarkExecuted records execution provenance on a signal. The write goes
// through the main connection because the signal connection is read-only.
func (r *SignalRepository) MarkExecuted(ctx context.Context, id uint, intentHash, txHash string) error {
	logger.WithFields(map[string]interface{}{
		"repo":    "SignalRepository",
		"op":      "MarkExecuted",
		"id":      id,
		"tx_hash": txHash,
	}).Debug("Recording signal execution provenance")

	err := r.writeDB.WithContext(ctx).
		Model(&model.Signal{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"intent_hash":       intentHash,
			"execution_tx_hash": txHash,
		}).Error

	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "SignalRepository",
			"op":   "MarkExecuted",
			"id":   id,
		}).WithError(err).Error("Failed to record signal provenance")
	}

	return err
}
