package repo

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

// newTestDB opens a unique in-memory database per test to avoid schema
// leaking across tests, and migrates the given models.
func newTestDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:repo_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func allModels() []any {
	return []any{&domain.Complaint{}, &domain.Message{}, &domain.ActionLogEntry{}}
}

func seedComplaint(t *testing.T, db *gorm.DB, id string, date time.Time, mut ...func(*domain.Complaint)) *domain.Complaint {
	t.Helper()
	c := &domain.Complaint{
		ID: id, Title: "title " + id, Category: domain.CategoryOperations,
		Description: "desc", Priority: domain.PriorityNormal, Status: domain.StatusPending, Date: date,
	}
	for _, f := range mut {
		f(c)
	}
	if err := db.Create(c).Error; err != nil {
		t.Fatalf("seed complaint %s: %v", id, err)
	}
	return c
}
