// Package gateway is the backend adapter the complaint services talk to. It
// bundles row storage, object storage and change notifications behind one
// interface so services can be exercised against fakes.
//
// Backend, the concrete implementation, publishes a ChangeEvent after every
// committed row write. Publish failures are logged and never returned: the
// write already happened.
package gateway

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
	"github.com/HussamZG/shakaoy-650/internal/repo"
	"github.com/HussamZG/shakaoy-650/internal/storage"
)

// ErrNotFound is returned for reads and keyed writes that match no row.
var ErrNotFound = errors.New("record not found")

// ErrObjectExists is returned by Upload when the key is taken.
var ErrObjectExists = storage.ErrObjectExists

// ComplaintQuery filters complaint listings.
type ComplaintQuery = repo.ComplaintFilter

// UploadOptions tunes Upload.
type UploadOptions struct {
	NoOverwrite bool
}

// Gateway is everything the services need from the backend.
type Gateway interface {
	GetComplaint(ctx context.Context, id string) (*domain.Complaint, error)
	ListComplaints(ctx context.Context, q ComplaintQuery) ([]domain.Complaint, error)
	CountComplaints(ctx context.Context, q ComplaintQuery) (int64, error)
	CountComplaintsByStatus(ctx context.Context) (map[domain.Status]int64, error)
	ComplaintsVersion(ctx context.Context, q ComplaintQuery) (int64, *time.Time, error)
	InsertComplaint(ctx context.Context, c *domain.Complaint) error
	UpdateComplaintStatus(ctx context.Context, id string, status domain.Status, at time.Time) error
	DeleteComplaint(ctx context.Context, id string) (int64, error)

	ListMessages(ctx context.Context, complaintID string, asc bool) ([]domain.Message, error)
	CountMessages(ctx context.Context, complaintID string) (int64, error)
	InsertMessage(ctx context.Context, m *domain.Message) (*domain.Message, error)
	DeleteMessages(ctx context.Context, complaintID string) (int64, error)

	ListActionLogs(ctx context.Context, complaintID string, asc bool) ([]domain.ActionLogEntry, error)
	InsertActionLog(ctx context.Context, e *domain.ActionLogEntry) error

	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, opts UploadOptions) (string, error)
	PublicURL(key string) string
	DeleteObject(ctx context.Context, key string) error

	Subscribe(ctx context.Context, table string, event domain.EventKind, match func(domain.ChangeEvent) bool) (*realtime.Subscription, error)
}

// Backend implements Gateway over GORM, an ObjectStore and a Broker.
type Backend struct {
	DB      *gorm.DB
	Objects storage.ObjectStore
	Broker  realtime.Broker

	now func() time.Time
}

// New wires a Backend.
func New(db *gorm.DB, objects storage.ObjectStore, broker realtime.Broker) *Backend {
	return &Backend{DB: db, Objects: objects, Broker: broker}
}

var _ Gateway = (*Backend)(nil)

func (b *Backend) clock() time.Time {
	if b.now != nil {
		return b.now().UTC()
	}
	return time.Now().UTC()
}

func (b *Backend) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("gateway").Start(ctx, op, trace.WithAttributes(attrs...))
}

func mapNotFound(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// publish emits a change event; failures are only logged.
func (b *Backend) publish(ctx context.Context, kind domain.EventKind, table string, row any) {
	if b.Broker == nil {
		return
	}
	ev, err := domain.NewChangeEvent(kind, table, row, b.clock())
	if err == nil {
		err = b.Broker.Publish(context.WithoutCancel(ctx), ev)
	}
	if err != nil {
		log.Warn().Err(err).Str("table", table).Str("event", string(kind)).Msg("gateway: publish change event failed")
	}
}

// GetComplaint reads one complaint row without nested data.
func (b *Backend) GetComplaint(ctx context.Context, id string) (*domain.Complaint, error) {
	ctx, span := b.span(ctx, "GetComplaint", attribute.String("complaint.id", id))
	defer span.End()
	c, err := repo.GetComplaint(ctx, b.DB, id)
	return c, mapNotFound(err)
}

// ListComplaints returns rows matching q.
func (b *Backend) ListComplaints(ctx context.Context, q ComplaintQuery) ([]domain.Complaint, error) {
	ctx, span := b.span(ctx, "ListComplaints",
		attribute.String("filter.status", string(q.Status)),
		attribute.String("filter.category", string(q.Category)),
		attribute.Int("page.offset", q.Offset),
		attribute.Int("page.limit", q.Limit),
	)
	defer span.End()
	return repo.ListComplaints(ctx, b.DB, q)
}

// CountComplaints counts rows matching q.
func (b *Backend) CountComplaints(ctx context.Context, q ComplaintQuery) (int64, error) {
	return repo.CountComplaints(ctx, b.DB, q)
}

// CountComplaintsByStatus groups row counts by raw status.
func (b *Backend) CountComplaintsByStatus(ctx context.Context) (map[domain.Status]int64, error) {
	return repo.CountComplaintsByStatus(ctx, b.DB)
}

// ComplaintsVersion returns the count and latest change instant for q.
func (b *Backend) ComplaintsVersion(ctx context.Context, q ComplaintQuery) (int64, *time.Time, error) {
	return repo.ComplaintsStats(ctx, b.DB, q)
}

// InsertComplaint persists c and publishes an INSERT.
func (b *Backend) InsertComplaint(ctx context.Context, c *domain.Complaint) error {
	ctx, span := b.span(ctx, "InsertComplaint", attribute.String("complaint.id", c.ID))
	defer span.End()
	if err := repo.CreateComplaint(ctx, b.DB, c); err != nil {
		return err
	}
	b.publish(ctx, domain.EventInsert, domain.TableComplaints, c)
	return nil
}

// UpdateComplaintStatus writes status and updated_at, then publishes the
// full post-write row as an UPDATE.
func (b *Backend) UpdateComplaintStatus(ctx context.Context, id string, status domain.Status, at time.Time) error {
	ctx, span := b.span(ctx, "UpdateComplaintStatus",
		attribute.String("complaint.id", id), attribute.String("complaint.status", string(status)))
	defer span.End()
	n, err := repo.UpdateComplaintStatus(ctx, b.DB, id, status, at)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	row, err := repo.GetComplaint(ctx, b.DB, id)
	if err != nil {
		log.Warn().Err(err).Str("complaint_id", id).Msg("gateway: reload after status update failed")
		return nil
	}
	b.publish(ctx, domain.EventUpdate, domain.TableComplaints, row)
	return nil
}

// DeleteComplaint removes the row and publishes a DELETE when one existed.
func (b *Backend) DeleteComplaint(ctx context.Context, id string) (int64, error) {
	ctx, span := b.span(ctx, "DeleteComplaint", attribute.String("complaint.id", id))
	defer span.End()
	n, err := repo.DeleteComplaint(ctx, b.DB, id)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		b.publish(ctx, domain.EventDelete, domain.TableComplaints, domain.Complaint{ID: id})
	}
	return n, nil
}

// ListMessages returns a complaint's messages by timestamp.
func (b *Backend) ListMessages(ctx context.Context, complaintID string, asc bool) ([]domain.Message, error) {
	return repo.ListMessages(ctx, b.DB, complaintID, asc)
}

// CountMessages counts a complaint's messages.
func (b *Backend) CountMessages(ctx context.Context, complaintID string) (int64, error) {
	return repo.CountMessages(ctx, b.DB, complaintID)
}

// InsertMessage persists m, filling id and timestamp when empty, and
// publishes an INSERT. A missing complaint yields ErrNotFound.
func (b *Backend) InsertMessage(ctx context.Context, m *domain.Message) (*domain.Message, error) {
	ctx, span := b.span(ctx, "InsertMessage",
		attribute.String("complaint.id", m.ComplaintID), attribute.String("message.sender", string(m.Sender)))
	defer span.End()

	if _, err := repo.GetComplaint(ctx, b.DB, m.ComplaintID); err != nil {
		return nil, mapNotFound(err)
	}
	row := *m
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = b.clock()
	}
	if err := repo.CreateMessage(ctx, b.DB, &row); err != nil {
		return nil, err
	}
	b.publish(ctx, domain.EventInsert, domain.TableMessages, row)
	return &row, nil
}

// DeleteMessages removes all messages of a complaint.
func (b *Backend) DeleteMessages(ctx context.Context, complaintID string) (int64, error) {
	return repo.DeleteMessages(ctx, b.DB, complaintID)
}

// ListActionLogs returns a complaint's audit entries by timestamp.
func (b *Backend) ListActionLogs(ctx context.Context, complaintID string, asc bool) ([]domain.ActionLogEntry, error) {
	return repo.ListActionLogs(ctx, b.DB, complaintID, asc)
}

// InsertActionLog appends an audit entry, filling id and timestamp when empty.
func (b *Backend) InsertActionLog(ctx context.Context, e *domain.ActionLogEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = b.clock()
	}
	if err := repo.CreateActionLog(ctx, b.DB, e); err != nil {
		return err
	}
	b.publish(ctx, domain.EventInsert, domain.TableActionLogs, e)
	return nil
}

// Upload stores an object and returns its public URL.
func (b *Backend) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64, opts UploadOptions) (string, error) {
	ctx, span := b.span(ctx, "Upload", attribute.String("object.key", key), attribute.Int64("object.size", size))
	defer span.End()
	if err := b.Objects.Put(ctx, key, contentType, body, size, storage.PutOptions{Overwrite: !opts.NoOverwrite}); err != nil {
		return "", err
	}
	return b.Objects.PublicURL(key), nil
}

// PublicURL resolves the public URL of key.
func (b *Backend) PublicURL(key string) string { return b.Objects.PublicURL(key) }

// DeleteObject removes a stored object.
func (b *Backend) DeleteObject(ctx context.Context, key string) error {
	return b.Objects.Delete(ctx, key)
}

// Subscribe opens a change stream for table/event, optionally narrowed by match.
func (b *Backend) Subscribe(ctx context.Context, table string, event domain.EventKind, match func(domain.ChangeEvent) bool) (*realtime.Subscription, error) {
	return b.Broker.Subscribe(ctx, realtime.Filter{Table: table, Event: event, Match: match})
}
