// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Complaint
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a complaint is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - Writes keyed by id report the affected row count so callers can tell a
//     missing row from a failed statement.
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ComplaintFilter narrows complaint listings. Zero values mean "no filter".
// From and To bound the creation date inclusively.
type ComplaintFilter struct {
	Status    domain.Status
	Category  domain.Category
	Priority  domain.Priority
	From      *time.Time
	To        *time.Time
	Ascending bool
	Offset    int
	Limit     int
}

func (f ComplaintFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.Priority != "" {
		q = q.Where("priority = ?", f.Priority)
	}
	if f.From != nil {
		q = q.Where("date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("date <= ?", f.To.UTC())
	}
	return q
}

// CreateComplaint inserts c as given. The caller owns the id.
func CreateComplaint(ctx context.Context, db *gorm.DB, c *domain.Complaint) error {
	return db.WithContext(ctx).Create(c).Error
}

// GetComplaint fetches a single complaint row by id, or ErrNotFound.
func GetComplaint(ctx context.Context, db *gorm.DB, id string) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComplaints returns complaints matching f ordered by creation date
// (descending unless f.Ascending), then id for stable pages.
func ListComplaints(ctx context.Context, db *gorm.DB, f ComplaintFilter) ([]domain.Complaint, error) {
	order := "date DESC, id ASC"
	if f.Ascending {
		order = "date ASC, id ASC"
	}
	q := f.apply(db.WithContext(ctx).Model(&domain.Complaint{})).Order(order)
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []domain.Complaint
	err := q.Find(&out).Error
	return out, err
}

// CountComplaints returns how many complaints match f. Paging fields are ignored.
func CountComplaints(ctx context.Context, db *gorm.DB, f ComplaintFilter) (int64, error) {
	var total int64
	err := f.apply(db.WithContext(ctx).Model(&domain.Complaint{})).Count(&total).Error
	return total, err
}

// CountComplaintsByStatus returns row counts grouped by the raw status column.
func CountComplaintsByStatus(ctx context.Context, db *gorm.DB) (map[domain.Status]int64, error) {
	var rows []struct {
		Status domain.Status
		N      int64
	}
	err := db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Select("status, COUNT(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[domain.Status]int64, len(rows))
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

// UpdateComplaintStatus sets status and updated_at on one row and reports
// how many rows changed.
func UpdateComplaintStatus(ctx context.Context, db *gorm.DB, id string, status domain.Status, at time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Complaint{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": at.UTC()})
	return res.RowsAffected, res.Error
}

// DeleteComplaint hard-deletes one complaint row and reports rows removed.
func DeleteComplaint(ctx context.Context, db *gorm.DB, id string) (int64, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Complaint{})
	return res.RowsAffected, res.Error
}
