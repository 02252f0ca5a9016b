package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/repo"
)

// IdempotencyStore remembers which resource a client-supplied key produced.
type IdempotencyStore interface {
	Lookup(ctx context.Context, scope, subject, key string) (resourceID string, ok bool, err error)
	Remember(ctx context.Context, scope, subject, key, resourceID string, status int) error
}

// DBIdempotency keeps idempotency records in the relational store.
type DBIdempotency struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Lookup returns the resource recorded for a live key.
func (d *DBIdempotency) Lookup(ctx context.Context, scope, subject, key string) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, d.DB, scope, subject, key, time.Now().UTC())
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.ResourceID, true, nil
}

// Remember records resourceID for key. A concurrent first writer wins; the
// loser's duplicate is not an error.
func (d *DBIdempotency) Remember(ctx context.Context, scope, subject, key, resourceID string, status int) error {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateIdempotency(ctx, d.DB, scope, subject, key, resourceID, status, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// Purge removes expired records and reports how many were dropped.
func (d *DBIdempotency) Purge(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredIdempotency(ctx, d.DB, time.Now().UTC())
}
