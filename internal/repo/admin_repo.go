// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for admin accounts
// and their sessions.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

// CreateAdminUser inserts u and returns ErrDuplicate when the email is taken.
func CreateAdminUser(ctx context.Context, db *gorm.DB, u *domain.AdminUser) error {
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// GetAdminUserByEmail looks an account up by its lowercase email.
func GetAdminUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.AdminUser, error) {
	var u domain.AdminUser
	err := db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ListAdminUsers returns all accounts ordered by email.
func ListAdminUsers(ctx context.Context, db *gorm.DB) ([]domain.AdminUser, error) {
	var out []domain.AdminUser
	err := db.WithContext(ctx).Order("email ASC").Find(&out).Error
	return out, err
}

// CreateAdminSession records an issued session token.
func CreateAdminSession(ctx context.Context, db *gorm.DB, s *domain.AdminSession) error {
	return db.WithContext(ctx).Create(s).Error
}

// GetAdminSession returns a session that has not expired at now, or ErrNotFound.
func GetAdminSession(ctx context.Context, db *gorm.DB, id string, now time.Time) (*domain.AdminSession, error) {
	var s domain.AdminSession
	err := db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, now.UTC()).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteAdminSession revokes a session. Missing rows are not an error.
func DeleteAdminSession(ctx context.Context, db *gorm.DB, id string) error {
	return db.WithContext(ctx).Where("id = ?", id).Delete(&domain.AdminSession{}).Error
}

// DeleteExpiredAdminSessions purges sessions that expired before now.
func DeleteExpiredAdminSessions(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&domain.AdminSession{})
	return res.RowsAffected, res.Error
}
