package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"privateblog/models"
)

func RunMigrations(db *gorm.DB, logger *zap.SugaredLogger) error {
	logger.Info("Running database migrations...")

	if err := db.AutoMigrate(models.All()...); err != nil {
		logger.Errorw("Error running migrations", "error", err)
		return err
	}

	logger.Info("Migrations completed successfully")
	return nil
}
