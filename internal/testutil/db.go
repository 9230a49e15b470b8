// Package testutil opens throwaway in-memory databases for service tests.
package testutil

import (
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chamba-tutorias/backend/internal/models"
)

// OpenDB returns a migrated in-memory database, isolated per test.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// One connection keeps every query on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	if err := gdb.AutoMigrate(
		&models.User{},
		&models.TutorProfile{},
		&models.ApprovedTutor{},
		&models.JobRequest{},
		&models.JobOffer{},
		&models.PhoneVerification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return gdb
}
