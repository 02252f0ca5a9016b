// Package domain defines the persistence models for complaints, their
// message threads and audit trail, and the admin accounts that manage them.
// These types are mapped with GORM and form the core data layer.
package domain

import "time"

// Table names shared by the repository, the gateway, and change events.
const (
	TableComplaints    = "complaints"
	TableMessages      = "complaint_messages"
	TableActionLogs    = "complaint_action_logs"
	TableAdminUsers    = "admin_users"
	TableAdminSessions = "admin_sessions"
)

// Action types recorded in the audit trail.
const (
	ActionStatusChange = "status_change"
	ActionMessage      = "message" // synthesized from messages when logs are unreadable
)

// Complaint is the primary record a citizen submits.
//
// Fields:
//   - ID: caller-generated base36 token; immutable once created.
//   - Category / Priority / Status: open string vocabularies (see vocab.go).
//   - Date: creation timestamp. UpdatedAt is only set by status changes.
//   - Attachment: public URL of the single optional attachment.
//   - ContactPhone / ContactEmail: optional submitter contact details.
//   - Messages / ActionLogs: nested thread, populated by explicit fetches and
//     realtime merges; never persisted as part of the row.
type Complaint struct {
	ID           string     `json:"id"                      gorm:"type:varchar(16);primaryKey"`
	Title        string     `json:"title"                   gorm:"type:varchar(255);not null"`
	Category     Category   `json:"category"                gorm:"type:varchar(32);not null;index"`
	Description  string     `json:"description"             gorm:"type:text;not null"`
	Priority     Priority   `json:"priority"                gorm:"type:varchar(16);not null;default:'normal';index"`
	Status       Status     `json:"status"                  gorm:"type:varchar(16);not null;default:'pending';index"`
	Date         time.Time  `json:"date"                    gorm:"not null;index"`
	UpdatedAt    *time.Time `json:"updated_at"              gorm:"autoUpdateTime:false"`
	Attachment   *string    `json:"attachment"              gorm:"type:text"`
	ContactPhone *string    `json:"contact_phone,omitempty" gorm:"type:varchar(32)"`
	ContactEmail *string    `json:"contact_email,omitempty" gorm:"type:varchar(255)"`

	Messages   []Message        `json:"complaint_messages"    gorm:"-"`
	ActionLogs []ActionLogEntry `json:"complaint_action_logs" gorm:"-"`
}

// TableName returns the database table name for Complaint.
func (Complaint) TableName() string { return TableComplaints }

// Clone returns a copy that shares no slices with c.
func (c Complaint) Clone() Complaint {
	out := c
	if c.Messages != nil {
		out.Messages = append([]Message(nil), c.Messages...)
	}
	if c.ActionLogs != nil {
		out.ActionLogs = append([]ActionLogEntry(nil), c.ActionLogs...)
	}
	return out
}

// Message is a timestamped text exchanged on a complaint by either party.
// Messages are immutable once written and cascade-deleted with their complaint.
type Message struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	ComplaintID string    `json:"complaint_id" gorm:"type:varchar(16);not null;index:idx_complaint_msgs,priority:1"`
	Text        string    `json:"text"         gorm:"type:text;not null"`
	Sender      Sender    `json:"sender"       gorm:"type:varchar(8);not null;check:sender IN ('user','admin')"`
	Timestamp   time.Time `json:"timestamp"    gorm:"not null;index:idx_complaint_msgs,priority:2"`

	Complaint *Complaint `json:"-" gorm:"foreignKey:ComplaintID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return TableMessages }

// ActionLogEntry is an append-only audit record of an administrative action.
// Sender is only set on entries synthesized from messages.
type ActionLogEntry struct {
	ID          string    `json:"id"               gorm:"type:char(36);primaryKey"`
	ComplaintID string    `json:"complaint_id"     gorm:"type:varchar(16);not null;index:idx_complaint_logs,priority:1"`
	ActionType  string    `json:"action_type"      gorm:"type:varchar(32);not null"`
	Details     string    `json:"details"          gorm:"type:text;not null"`
	Notes       *string   `json:"notes,omitempty"  gorm:"type:text"`
	Timestamp   time.Time `json:"timestamp"        gorm:"not null;index:idx_complaint_logs,priority:2"`
	Sender      *Sender   `json:"sender,omitempty" gorm:"-"`

	Complaint *Complaint `json:"-" gorm:"foreignKey:ComplaintID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ActionLogEntry.
func (ActionLogEntry) TableName() string { return TableActionLogs }

// AdminUser is an administrator account authenticated by email and password.
type AdminUser struct {
	ID           string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for AdminUser.
func (AdminUser) TableName() string { return TableAdminUsers }

// AdminSession backs an issued session token. Deleting the row revokes it.
type AdminSession struct {
	ID        string    `gorm:"type:char(36);primaryKey"` // token jti
	UserID    string    `gorm:"type:char(36);not null;index"`
	Email     string    `gorm:"type:varchar(255);not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User *AdminUser `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for AdminSession.
func (AdminSession) TableName() string { return TableAdminSessions }
