package domain

import "time"

// Idempotency records the outcome of a previously processed write, keyed by
// (scope, subject, key). A retried request with the same triple is answered
// with the stored resource instead of repeating the side effects.
//
// Scope names the operation ("POST /complaints"), Subject is the caller as
// "ip:<addr>" or "user:<email>", and ResourceID is the complaint id the
// original request produced. Expired rows are replaced when a key is reused.
type Idempotency struct {
	ID         string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	Scope      string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:1"`
	Subject    string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:2"`
	Key        string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_scope_subject_key,priority:3"`
	ResourceID string    `gorm:"type:TEXT NOT NULL"`
	Status     int       `gorm:"type:INTEGER NOT NULL"`
	CreatedAt  time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
	ExpiresAt  time.Time `gorm:"type:DATETIME NOT NULL;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
