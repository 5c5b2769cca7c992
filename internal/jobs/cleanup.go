package jobs

import (
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"

	"pixelview/internal/config"
	"pixelview/internal/views"
)

// CleanupJob removes view rows older than the retention period. Counter rows
// are never touched, so total counts survive event-log pruning.
type CleanupJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run deletes views older than the retention cutoff. A retention of 0 means
// keep everything.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.ViewsRetentionDays
	if retentionDays <= 0 {
		j.logger.Debug("View retention disabled, skipping cleanup")
		return nil
	}

	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of old views",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	var countToDelete int64
	if err := db.Model(&views.View{}).
		Where("date < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count old views", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No old views to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("date < ?", cutoffDate).
			Limit(batchSize).
			Delete(&views.View{})

		if result.Error != nil {
			j.logger.Error("Failed to delete old views",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up old views",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))

	return nil
}
