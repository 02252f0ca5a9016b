// Package services holds the complaint workflows: the in-process complaint
// store, submission, anonymous tracking, the admin dashboard operations and
// the admin session guard. This file centralizes the service-level errors so
// handlers can map them to HTTP results consistently.
//
// Translation into user-facing (Arabic) messages and status codes is done in
// the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Complaint errors.
var (
	// ErrComplaintNotFound indicates that no complaint row matches the id.
	ErrComplaintNotFound = errors.New("complaint not found")

	// ErrEmptyID is returned when a lookup is attempted with a blank id.
	ErrEmptyID = errors.New("complaint id is empty")

	// ErrInvalidStatus rejects status values outside the four canonical states.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrStatusWrite wraps a failed status write.
	ErrStatusWrite = errors.New("status update failed")

	// ErrDeleteMessages wraps a failure removing a complaint's messages.
	ErrDeleteMessages = errors.New("delete messages failed")

	// ErrDeleteFailed wraps a failure removing the complaint row.
	ErrDeleteFailed = errors.New("delete complaint failed")
)

// Message errors.
var (
	// ErrEmptyMessage is returned for empty or whitespace-only message text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned when text exceeds the configured rune cap.
	ErrMessageTooLong = errors.New("message too long")

	// ErrInvalidSender rejects senders other than user and admin.
	ErrInvalidSender = errors.New("invalid sender")
)

// Submission errors.
var (
	// ErrValidation is matched by every *FieldError.
	ErrValidation = errors.New("validation failed")

	// ErrAttachmentType rejects attachments outside JPEG, PNG, GIF and PDF.
	ErrAttachmentType = errors.New("attachment type not allowed")

	// ErrAttachmentTooLarge rejects attachments above the size cap.
	ErrAttachmentTooLarge = errors.New("attachment too large")

	// ErrUploadFailed wraps an object storage failure; no row was written.
	ErrUploadFailed = errors.New("attachment upload failed")

	// ErrSubmitFailed wraps a failed complaint insert.
	ErrSubmitFailed = errors.New("complaint submission failed")
)

// Session errors.
var (
	// ErrNoSession means the caller has no valid admin session.
	ErrNoSession = errors.New("no admin session")

	// ErrUnauthorized is matched by *UnauthorizedError.
	ErrUnauthorized = errors.New("unauthorized")
)

// FieldError reports a missing or malformed submission field.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match any field error.
func (e *FieldError) Is(target error) bool { return target == ErrValidation }

// UnauthorizedError carries the session identity that failed the allow-list.
type UnauthorizedError struct {
	Email string
}

func (e *UnauthorizedError) Error() string {
	return "unauthorized: " + e.Email
}

// Is lets errors.Is(err, ErrUnauthorized) match.
func (e *UnauthorizedError) Is(target error) bool { return target == ErrUnauthorized }

// Notice is a non-fatal failure surfaced next to a successful result.
type Notice struct {
	Scope string `json:"scope"` // messages|action_logs
	Err   error  `json:"-"`
}

func (n Notice) Error() string {
	if n.Err == nil {
		return n.Scope
	}
	return n.Scope + ": " + n.Err.Error()
}
