package database

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appplaybook/backend/internal/catalog"
)

const migrationBackfillScreenshotRefs = "2026-08-12_backfill_screenshot_refs"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillScreenshotRefs, apply: backfillScreenshotRefs},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// backfillScreenshotRefs assigns a stable reference to screenshot rows created
// before refs existed, so caption tokens resolve after reordering.
func backfillScreenshotRefs(db *gorm.DB) error {
	var screenshots []catalog.Screenshot
	if err := db.Where("ref = ?", "").Find(&screenshots).Error; err != nil {
		return err
	}
	for _, screenshot := range screenshots {
		ref := uuid.NewString()
		if err := db.Model(&catalog.Screenshot{}).
			Where("id = ?", screenshot.ID).
			Update("ref", ref).Error; err != nil {
			return err
		}
	}
	return nil
}
