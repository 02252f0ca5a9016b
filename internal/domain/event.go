package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventKind is the row operation that produced a ChangeEvent.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// ChangeEvent is a push notification describing a committed row write.
// New holds the post-write row as JSON; for deletes it holds the last known row.
type ChangeEvent struct {
	Event EventKind       `json:"event"`
	Table string          `json:"table"`
	New   json.RawMessage `json:"new"`
	At    time.Time       `json:"at"`
}

// NewChangeEvent encodes row into an event for table.
func NewChangeEvent(kind EventKind, table string, row any, at time.Time) (ChangeEvent, error) {
	b, err := json.Marshal(row)
	if err != nil {
		return ChangeEvent{}, fmt.Errorf("encode %s row: %w", table, err)
	}
	return ChangeEvent{Event: kind, Table: table, New: b, At: at.UTC()}, nil
}

// Complaint decodes the row of a complaints event.
func (e ChangeEvent) Complaint() (Complaint, error) {
	var c Complaint
	if e.Table != TableComplaints {
		return c, fmt.Errorf("event for %q is not a complaint", e.Table)
	}
	err := json.Unmarshal(e.New, &c)
	return c, err
}

// Message decodes the row of a complaint_messages event.
func (e ChangeEvent) Message() (Message, error) {
	var m Message
	if e.Table != TableMessages {
		return m, fmt.Errorf("event for %q is not a message", e.Table)
	}
	err := json.Unmarshal(e.New, &m)
	return m, err
}

// ComplaintKey returns the complaint id the event concerns, or "" when the
// row cannot be decoded.
func (e ChangeEvent) ComplaintKey() string {
	var ids struct {
		ID          string `json:"id"`
		ComplaintID string `json:"complaint_id"`
	}
	if err := json.Unmarshal(e.New, &ids); err != nil {
		return ""
	}
	if e.Table == TableComplaints {
		return ids.ID
	}
	return ids.ComplaintID
}
