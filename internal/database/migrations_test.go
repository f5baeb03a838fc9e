package database

import (
	"path/filepath"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/appplaybook/backend/internal/catalog"
)

func TestApplyMigrationsBackfillsScreenshotRefs(testContext *testing.T) {
	tempDir := testContext.TempDir()
	databasePath := filepath.Join(tempDir, "migration.db")

	database, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		testContext.Fatalf("failed to open sqlite: %v", err)
	}

	if err := database.AutoMigrate(&catalog.Screenshot{}, &migrationRecord{}); err != nil {
		testContext.Fatalf("failed to migrate schema: %v", err)
	}

	legacy := catalog.Screenshot{
		ID:        "shot-legacy",
		SectionID: "section-1",
		Ref:       "",
		URL:       "/uploads/legacy.png",
		SortOrder: 0,
	}
	keeper := catalog.Screenshot{
		ID:        "shot-keeper",
		SectionID: "section-1",
		Ref:       "existing-ref",
		URL:       "/uploads/keeper.png",
		SortOrder: 1,
	}
	if err := database.Create(&legacy).Error; err != nil {
		testContext.Fatalf("failed to insert screenshot: %v", err)
	}
	if err := database.Create(&keeper).Error; err != nil {
		testContext.Fatalf("failed to insert screenshot: %v", err)
	}

	if err := applyMigrations(database, zap.NewNop()); err != nil {
		testContext.Fatalf("failed to apply migrations: %v", err)
	}

	var storedLegacy catalog.Screenshot
	if err := database.Where("id = ?", legacy.ID).Take(&storedLegacy).Error; err != nil {
		testContext.Fatalf("failed to reload screenshot: %v", err)
	}
	if storedLegacy.Ref == "" {
		testContext.Fatalf("expected legacy screenshot to receive a ref")
	}

	var storedKeeper catalog.Screenshot
	if err := database.Where("id = ?", keeper.ID).Take(&storedKeeper).Error; err != nil {
		testContext.Fatalf("failed to reload screenshot: %v", err)
	}
	if storedKeeper.Ref != "existing-ref" {
		testContext.Fatalf("expected existing ref to be preserved, got %q", storedKeeper.Ref)
	}

	var record migrationRecord
	if err := database.Where("name = ?", migrationBackfillScreenshotRefs).Take(&record).Error; err != nil {
		testContext.Fatalf("expected migration record to be created: %v", err)
	}
	if record.AppliedAtSeconds == 0 {
		testContext.Fatalf("expected migration timestamp to be set")
	}
}
