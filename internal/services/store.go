// Package services – ComplaintStore
//
// ComplaintStore is the process-wide cache of complaints with their nested
// message threads and audit trails. It is filled by explicit fetches
// (FetchDetails, MergeComplaints) and kept fresh by two change
// subscriptions: complaint UPDATE and message INSERT. Each event drives
// exactly one merge function.
//
// Writes issued through the store (UpdateStatus, AddMessage) never touch the
// cache directly; their effect arrives through the subscription path.
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
)

// Notice scopes reported by FetchDetails.
const (
	NoticeMessages   = "messages"
	NoticeActionLogs = "action_logs"
)

// ComplaintStore caches complaints keyed by id.
type ComplaintStore struct {
	GW gateway.Gateway

	// MaxMessageRunes caps message text; zero disables the cap.
	MaxMessageRunes int

	mu    sync.RWMutex
	items map[string]*domain.Complaint
	// loaded marks entries whose thread and audit trail came from a
	// complete FetchDetails and are kept current by the subscriptions.
	loaded map[string]bool

	subMu  sync.Mutex
	subs   []*realtime.Subscription
	cancel context.CancelFunc
	wg     sync.WaitGroup

	now func() time.Time
}

// NewComplaintStore returns an empty store over gw.
func NewComplaintStore(gw gateway.Gateway) *ComplaintStore {
	return &ComplaintStore{
		GW:              gw,
		MaxMessageRunes: 4000,
		items:           make(map[string]*domain.Complaint),
		loaded:          make(map[string]bool),
	}
}

func (s *ComplaintStore) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *ComplaintStore) span(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return otel.Tracer("services/ComplaintStore").Start(ctx, op,
		trace.WithAttributes(attribute.String("complaint.id", id)))
}

// FetchDetails loads a complaint with its messages and action logs (both
// ascending by timestamp) and replaces the cached entry with the result.
//
// A missing row yields ErrComplaintNotFound; any other row read failure is
// returned wrapped. Failures reading messages or logs are tolerated: the
// corresponding slice is empty and a Notice is returned alongside.
func (s *ComplaintStore) FetchDetails(ctx context.Context, id string) (*domain.Complaint, []Notice, error) {
	ctx, span := s.span(ctx, "FetchDetails", id)
	defer span.End()

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil, ErrEmptyID
	}
	c, err := s.GW.GetComplaint(ctx, id)
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("fetch complaint %s: %w", id, err)
	}

	var notices []Notice
	msgs, err := s.GW.ListMessages(ctx, id, true)
	if err != nil {
		log.Warn().Err(err).Str("complaint_id", id).Str("op", "FetchDetails").Msg("messages read failed")
		notices = append(notices, Notice{Scope: NoticeMessages, Err: err})
		msgs = []domain.Message{}
	}
	logs, err := s.GW.ListActionLogs(ctx, id, true)
	if err != nil {
		log.Warn().Err(err).Str("complaint_id", id).Str("op", "FetchDetails").Msg("action logs read failed")
		notices = append(notices, Notice{Scope: NoticeActionLogs, Err: err})
		logs = []domain.ActionLogEntry{}
	}
	c.Messages = msgs
	c.ActionLogs = logs

	cached := c.Clone()
	s.mu.Lock()
	s.items[id] = &cached
	s.loaded[id] = len(notices) == 0
	s.mu.Unlock()
	storeMerges.WithLabelValues("fetch").Inc()

	return c, notices, nil
}

// Details serves a complaint from the cache when its detail view is already
// loaded, and falls back to FetchDetails on a miss or when refresh is set.
// Cached entries reflect every merged push event.
func (s *ComplaintStore) Details(ctx context.Context, id string, refresh bool) (*domain.Complaint, []Notice, error) {
	id = strings.TrimSpace(id)
	if !refresh {
		if c, ok := s.cachedDetail(id); ok {
			storeMerges.WithLabelValues("hit").Inc()
			return &c, nil, nil
		}
	}
	return s.FetchDetails(ctx, id)
}

func (s *ComplaintStore) cachedDetail(id string) (domain.Complaint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok || !s.loaded[id] {
		return domain.Complaint{}, false
	}
	return c.Clone(), true
}

// UpdateStatus writes status and the update timestamp, then appends a
// status_change audit entry. The audit append is best-effort: a failure is
// logged and the status change stands.
func (s *ComplaintStore) UpdateStatus(ctx context.Context, id string, status domain.Status, note string) error {
	ctx, span := s.span(ctx, "UpdateStatus", id)
	defer span.End()
	span.SetAttributes(attribute.String("complaint.status", string(status)))

	if !status.Valid() {
		return ErrInvalidStatus
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrEmptyID
	}

	err := s.GW.UpdateComplaintStatus(ctx, id, status, s.clock())
	if errors.Is(err, gateway.ErrNotFound) {
		return ErrComplaintNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStatusWrite, err)
	}

	entry := &domain.ActionLogEntry{
		ComplaintID: id,
		ActionType:  domain.ActionStatusChange,
		Details:     "تغيير الحالة إلى " + domain.StatusLabel(status),
	}
	if n := sanitizeContent(note); n != "" {
		entry.Notes = &n
	}
	if err := s.GW.InsertActionLog(ctx, entry); err != nil {
		log.Error().Err(err).Str("complaint_id", id).Str("op", "UpdateStatus").Msg("action log append failed")
	}
	// The audit trail has no subscription; the next Details reloads it.
	s.mu.Lock()
	delete(s.loaded, id)
	s.mu.Unlock()
	return nil
}

// AddMessage validates and inserts a message, returning the stored row.
// The cache is updated only when the insert event arrives.
func (s *ComplaintStore) AddMessage(ctx context.Context, id, text string, sender domain.Sender) (*domain.Message, error) {
	ctx, span := s.span(ctx, "AddMessage", id)
	defer span.End()

	text = sanitizeContent(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if tooLong(text, s.MaxMessageRunes) {
		return nil, ErrMessageTooLong
	}
	if !sender.Valid() {
		return nil, ErrInvalidSender
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrEmptyID
	}

	m, err := s.GW.InsertMessage(ctx, &domain.Message{ComplaintID: id, Text: text, Sender: sender})
	if errors.Is(err, gateway.ErrNotFound) {
		return nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

// SubscribeToChanges opens the complaint-update and message-insert
// subscriptions. A previously opened pair is torn down first, so at most one
// pair is ever active. The pair lives until ctx is cancelled or Close.
func (s *ComplaintStore) SubscribeToChanges(ctx context.Context) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.teardownLocked()

	subCtx, cancel := context.WithCancel(ctx)
	updates, err := s.GW.Subscribe(subCtx, domain.TableComplaints, domain.EventUpdate, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe complaint updates: %w", err)
	}
	inserts, err := s.GW.Subscribe(subCtx, domain.TableMessages, domain.EventInsert, nil)
	if err != nil {
		updates.Close()
		cancel()
		return fmt.Errorf("subscribe message inserts: %w", err)
	}

	s.subs = []*realtime.Subscription{updates, inserts}
	s.cancel = cancel
	s.wg.Add(2)
	go s.consume(updates, s.onComplaintEvent)
	go s.consume(inserts, s.onMessageEvent)
	return nil
}

func (s *ComplaintStore) consume(sub *realtime.Subscription, apply func(domain.ChangeEvent)) {
	defer s.wg.Done()
	for ev := range sub.Events() {
		apply(ev)
	}
}

func (s *ComplaintStore) onComplaintEvent(ev domain.ChangeEvent) {
	c, err := ev.Complaint()
	if err != nil || c.ID == "" {
		log.Warn().Err(err).Str("table", ev.Table).Msg("store: undecodable complaint event")
		return
	}
	s.ApplyComplaintUpdate(c)
}

func (s *ComplaintStore) onMessageEvent(ev domain.ChangeEvent) {
	m, err := ev.Message()
	if err != nil || m.ID == "" {
		log.Warn().Err(err).Str("table", ev.Table).Msg("store: undecodable message event")
		return
	}
	s.ApplyMessageInsert(m)
}

// teardownLocked closes the active pair and waits for both consumers.
func (s *ComplaintStore) teardownLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
	s.wg.Wait()
}

// ApplyComplaintUpdate replaces the attributes of the cached complaint,
// keeping its messages and action logs. Unknown ids are inserted.
func (s *ComplaintStore) ApplyComplaintUpdate(c domain.Complaint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeLocked(c)
	storeMerges.WithLabelValues("complaint_update").Inc()
}

func (s *ComplaintStore) mergeLocked(c domain.Complaint) {
	next := c.Clone()
	if cur, ok := s.items[c.ID]; ok {
		next.Messages = cur.Messages
		next.ActionLogs = cur.ActionLogs
	}
	s.items[c.ID] = &next
}

// ApplyMessageInsert appends m to its complaint's thread unless a message
// with the same id is already there. Messages for complaints not in the
// cache are ignored. The thread is kept sorted by timestamp; equal
// timestamps keep arrival order. It reports whether the thread changed.
func (s *ComplaintStore) ApplyMessageInsert(m domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.items[m.ComplaintID]
	if !ok {
		return false
	}
	for _, existing := range c.Messages {
		if existing.ID == m.ID {
			storeMerges.WithLabelValues("message_duplicate").Inc()
			return false
		}
	}
	msgs := make([]domain.Message, 0, len(c.Messages)+1)
	msgs = append(msgs, c.Messages...)
	msgs = append(msgs, m)
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].Timestamp.Before(msgs[j].Timestamp) })
	c.Messages = msgs
	storeMerges.WithLabelValues("message_insert").Inc()
	return true
}

// MergeComplaints attribute-merges a listing into the cache.
func (s *ComplaintStore) MergeComplaints(list []domain.Complaint) {
	if len(list) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range list {
		s.mergeLocked(c)
	}
	storeMerges.WithLabelValues("list").Add(float64(len(list)))
}

// Get returns a deep copy of the cached complaint.
func (s *ComplaintStore) Get(id string) (domain.Complaint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.items[id]
	if !ok {
		return domain.Complaint{}, false
	}
	return c.Clone(), true
}

// Forget drops id from the cache.
func (s *ComplaintStore) Forget(id string) {
	s.mu.Lock()
	delete(s.items, id)
	delete(s.loaded, id)
	s.mu.Unlock()
}

// Len reports the number of cached complaints.
func (s *ComplaintStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Close tears down the active subscription pair. The cache stays readable.
func (s *ComplaintStore) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.teardownLocked()
}
