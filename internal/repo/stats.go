// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate queries used for
// conditional responses (ETag generation) in the HTTP layer.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

// ComplaintsStats returns the number of complaints matching f together with
// the latest change instant among them: the greater of the newest creation
// date and the newest status update. When nothing matches, count is 0 and
// latest is nil.
func ComplaintsStats(ctx context.Context, db *gorm.DB, f ComplaintFilter) (count int64, latest *time.Time, err error) {
	base := func() *gorm.DB { return f.apply(db.WithContext(ctx).Model(&domain.Complaint{})) }

	if err = base().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Avoid MAX() -> TEXT in SQLite; order and take one row instead.
	var created struct{ Date time.Time }
	if err = base().Select("date").Order("date DESC").Limit(1).Scan(&created).Error; err != nil {
		return 0, nil, err
	}
	out := created.Date

	var updated struct{ UpdatedAt *time.Time }
	if err = base().Select("updated_at").Where("updated_at IS NOT NULL").
		Order("updated_at DESC").Limit(1).Scan(&updated).Error; err != nil {
		return 0, nil, err
	}
	if updated.UpdatedAt != nil && updated.UpdatedAt.After(out) {
		out = *updated.UpdatedAt
	}
	return count, &out, nil
}

// MessagesStats returns the message count of a complaint and the newest
// message timestamp, or nil when there are none.
func MessagesStats(ctx context.Context, db *gorm.DB, complaintID string) (count int64, latest *time.Time, err error) {
	q := db.WithContext(ctx).Model(&domain.Message{}).Where("complaint_id = ?", complaintID)

	if err = q.Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	var row struct{ Timestamp time.Time }
	if err = db.WithContext(ctx).Model(&domain.Message{}).Where("complaint_id = ?", complaintID).
		Select("timestamp").Order("timestamp DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.Timestamp, nil
}
