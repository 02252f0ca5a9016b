// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for complaint
// messages and the action-log audit trail.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

// CreateMessage inserts m as given.
func CreateMessage(ctx context.Context, db *gorm.DB, m *domain.Message) error {
	return db.WithContext(ctx).Create(m).Error
}

// GetMessage fetches a message by ID.
func GetMessage(ctx context.Context, db *gorm.DB, id string) (*domain.Message, error) {
	var m domain.Message
	if err := db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns a complaint's messages ordered deterministically by
// (timestamp, id), ascending or descending.
func ListMessages(ctx context.Context, db *gorm.DB, complaintID string, asc bool) ([]domain.Message, error) {
	order := "timestamp ASC, id ASC"
	if !asc {
		order = "timestamp DESC, id DESC"
	}
	var out []domain.Message
	err := db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order(order).
		Find(&out).Error
	return out, err
}

// CountMessages uses a raw COUNT so a missing table surfaces as an error.
func CountMessages(ctx context.Context, db *gorm.DB, complaintID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM complaint_messages WHERE complaint_id = ?", complaintID).
		Scan(&total).Error
	return total, err
}

// DeleteMessages removes every message of a complaint and reports rows removed.
func DeleteMessages(ctx context.Context, db *gorm.DB, complaintID string) (int64, error) {
	res := db.WithContext(ctx).Where("complaint_id = ?", complaintID).Delete(&domain.Message{})
	return res.RowsAffected, res.Error
}

// CreateActionLog appends one audit entry.
func CreateActionLog(ctx context.Context, db *gorm.DB, e *domain.ActionLogEntry) error {
	return db.WithContext(ctx).Create(e).Error
}

// ListActionLogs returns a complaint's audit entries ordered by (timestamp, id).
func ListActionLogs(ctx context.Context, db *gorm.DB, complaintID string, asc bool) ([]domain.ActionLogEntry, error) {
	order := "timestamp ASC, id ASC"
	if !asc {
		order = "timestamp DESC, id DESC"
	}
	var out []domain.ActionLogEntry
	err := db.WithContext(ctx).
		Where("complaint_id = ?", complaintID).
		Order(order).
		Find(&out).Error
	return out, err
}
