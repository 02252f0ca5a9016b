// Package services – AdminService
//
// AdminService backs the admin dashboard and complaint detail views:
// filtered and searched listings, per-status counts, deletion with its
// message cascade, the audit trail, and status/message writes routed through
// the ComplaintStore.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
	"github.com/HussamZG/shakaoy-650/internal/search"
	"github.com/HussamZG/shakaoy-650/internal/utils"
)

const (
	defaultPageSize = utils.DefaultPageSize
	maxPageSize     = utils.MaxPageSize

	// maxSearchRows bounds how many rows a free-text search ranks.
	maxSearchRows = 2000
)

// ListQuery is the dashboard filter.
type ListQuery struct {
	Status    string
	Category  string
	Priority  string
	From, To  *time.Time
	Q         string
	Ascending bool
	Page      int
	PageSize  int
}

// ListResult is one page of complaints.
type ListResult struct {
	Items    []domain.Complaint `json:"items"`
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
}

// Stats are the dashboard counters. InProgressLegacy counts rows stored with
// the hyphenated "in-progress" literal; InProgress counts "in_progress".
type Stats struct {
	Total            int64 `json:"total"`
	Pending          int64 `json:"pending"`
	InProgress       int64 `json:"in_progress"`
	InProgressLegacy int64 `json:"in-progress"`
	Resolved         int64 `json:"resolved"`
	Closed           int64 `json:"closed"`
}

// AdminService implements the dashboard operations.
type AdminService struct {
	GW    gateway.Gateway
	Store *ComplaintStore

	searchOpts []search.Option
}

// NewAdminService wires an AdminService.
func NewAdminService(gw gateway.Gateway, store *ComplaintStore, opts ...search.Option) *AdminService {
	return &AdminService{GW: gw, Store: store, searchOpts: opts}
}

func (s *AdminService) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/AdminService").Start(ctx, op, trace.WithAttributes(attrs...))
}

// normalize validates filters and fills pagination defaults.
func (q ListQuery) normalize() (ListQuery, gateway.ComplaintQuery, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	q.Q = strings.TrimSpace(q.Q)

	st := domain.Status(strings.TrimSpace(q.Status))
	if st != "" && !st.Filterable() {
		return q, gateway.ComplaintQuery{}, &FieldError{Field: "status", Reason: "unknown status"}
	}
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return q, gateway.ComplaintQuery{}, &FieldError{Field: "to", Reason: "before from"}
	}
	return q, gateway.ComplaintQuery{
		Status:    st,
		Category:  domain.Category(strings.TrimSpace(q.Category)),
		Priority:  domain.Priority(strings.TrimSpace(q.Priority)),
		From:      q.From,
		To:        q.To,
		Ascending: q.Ascending,
	}, nil
}

// List returns a page of complaints ordered by date (newest first unless
// Ascending). A non-empty Q ranks the filtered rows by relevance instead.
// Returned rows are merged into the store.
func (s *AdminService) List(ctx context.Context, in ListQuery) (*ListResult, error) {
	ctx, span := s.span(ctx, "List",
		attribute.String("filter.status", in.Status),
		attribute.String("filter.category", in.Category),
		attribute.Bool("filter.search", strings.TrimSpace(in.Q) != ""),
		attribute.Int("page", in.Page),
		attribute.Int("page_size", in.PageSize),
	)
	defer span.End()

	q, gq, err := in.normalize()
	if err != nil {
		return nil, err
	}
	offset := utils.Offset(q.Page, q.PageSize)
	res := &ListResult{Items: []domain.Complaint{}, Page: q.Page, PageSize: q.PageSize}

	if q.Q != "" {
		gq.Limit = maxSearchRows
		rows, err := s.GW.ListComplaints(ctx, gq)
		if err != nil {
			return nil, err
		}
		ranked := s.rank(rows, q.Q)
		res.Total = int64(len(ranked))
		if offset < len(ranked) {
			end := min(offset+q.PageSize, len(ranked))
			res.Items = ranked[offset:end]
		}
	} else {
		total, err := s.GW.CountComplaints(ctx, gq)
		if err != nil {
			return nil, err
		}
		res.Total = total
		if total > 0 && int64(offset) < total {
			gq.Offset, gq.Limit = offset, q.PageSize
			rows, err := s.GW.ListComplaints(ctx, gq)
			if err != nil {
				return nil, err
			}
			res.Items = rows
		}
	}

	if s.Store != nil {
		s.Store.MergeComplaints(res.Items)
	}
	return res, nil
}

// rank orders rows by relevance of title and description to q. Rows with
// no overlap are dropped.
func (s *AdminService) rank(rows []domain.Complaint, q string) []domain.Complaint {
	docs := make([]search.Document, 0, len(rows))
	byID := make(map[string]domain.Complaint, len(rows))
	for _, c := range rows {
		docs = append(docs, search.Document{ID: c.ID, Text: c.Title + "\n" + c.Description})
		byID[c.ID] = c
	}
	hits := search.NewIndex(docs, s.searchOpts...).TopK(q, 0)
	out := make([]domain.Complaint, 0, len(hits))
	for _, h := range hits {
		out = append(out, byID[h.ID])
	}
	return out
}

// Version returns the row count and latest change instant under the list
// filter, for conditional requests.
func (s *AdminService) Version(ctx context.Context, in ListQuery) (int64, *time.Time, error) {
	_, gq, err := in.normalize()
	if err != nil {
		return 0, nil, err
	}
	return s.GW.ComplaintsVersion(ctx, gq)
}

// Stats counts complaints per status. Both in-progress spellings are reported.
func (s *AdminService) Stats(ctx context.Context) (*Stats, error) {
	ctx, span := s.span(ctx, "Stats")
	defer span.End()

	counts, err := s.GW.CountComplaintsByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st := &Stats{
		Pending:          counts[domain.StatusPending],
		InProgress:       counts[domain.StatusInProgress],
		InProgressLegacy: counts[domain.StatusInProgressLegacy],
		Resolved:         counts[domain.StatusResolved],
		Closed:           counts[domain.StatusClosed],
	}
	for _, n := range counts {
		st.Total += n
	}
	return st, nil
}

// Detail returns the full complaint from the store, loading it on a miss.
// refresh forces a reload from the backend.
func (s *AdminService) Detail(ctx context.Context, id string, refresh bool) (*domain.Complaint, []Notice, error) {
	return s.Store.Details(ctx, id, refresh)
}

// UpdateStatus changes the status through the store.
func (s *AdminService) UpdateStatus(ctx context.Context, id string, status domain.Status, note string) error {
	return s.Store.UpdateStatus(ctx, id, status, note)
}

// PostMessage replies on the thread as the admin side.
func (s *AdminService) PostMessage(ctx context.Context, id, text string) (*domain.Message, error) {
	return s.Store.AddMessage(ctx, id, text, domain.SenderAdmin)
}

// Delete removes a complaint: messages first (verified by a count and
// retried once), then the row, then the cache entry. The stored attachment
// is removed best-effort.
func (s *AdminService) Delete(ctx context.Context, id string) error {
	ctx, span := s.span(ctx, "Delete", attribute.String("complaint.id", id))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}
	c, err := s.GW.GetComplaint(ctx, id)
	if errors.Is(err, gateway.ErrNotFound) {
		return ErrComplaintNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	if _, err := s.GW.DeleteMessages(ctx, id); err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteMessages, err)
	}
	remaining, err := s.GW.CountMessages(ctx, id)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("complaint_id", id).Str("op", "Delete").Msg("remaining messages count failed")
	case remaining > 0:
		if _, err := s.GW.DeleteMessages(ctx, id); err != nil {
			log.Error().Err(err).Str("complaint_id", id).Int64("remaining", remaining).Msg("forced message delete failed")
		}
	}

	n, err := s.GW.DeleteComplaint(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}
	if n == 0 {
		return ErrComplaintNotFound
	}
	if s.Store != nil {
		s.Store.Forget(id)
	}

	if c.Attachment != nil {
		if key := attachmentKey(*c.Attachment); key != "" {
			if err := s.GW.DeleteObject(ctx, key); err != nil {
				log.Warn().Err(err).Str("complaint_id", id).Str("key", key).Msg("attachment delete failed")
			}
		}
	}
	return nil
}

// attachmentKey recovers the object key (last path element) from a public URL.
func attachmentKey(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Path == "" {
		return ""
	}
	key := path.Base(u.Path)
	if key == "." || key == "/" {
		return ""
	}
	return key
}

// ActionLogs returns the audit trail newest first. When the trail cannot be
// read, entries are synthesized from the message thread instead.
func (s *AdminService) ActionLogs(ctx context.Context, id string) ([]domain.ActionLogEntry, error) {
	ctx, span := s.span(ctx, "ActionLogs", attribute.String("complaint.id", id))
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}
	logs, err := s.GW.ListActionLogs(ctx, id, false)
	if err == nil {
		if logs == nil {
			logs = []domain.ActionLogEntry{}
		}
		return logs, nil
	}
	log.Warn().Err(err).Str("complaint_id", id).Msg("action logs unreadable, using messages")

	msgs, err := s.GW.ListMessages(ctx, id, false)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ActionLogEntry, 0, len(msgs))
	for _, m := range msgs {
		sender := m.Sender
		out = append(out, domain.ActionLogEntry{
			ID:          m.ID,
			ComplaintID: m.ComplaintID,
			ActionType:  domain.ActionMessage,
			Details:     m.Text,
			Timestamp:   m.Timestamp,
			Sender:      &sender,
		})
	}
	return out, nil
}
