// Complaint API handlers: wiring, service contracts and shared DTOs.
//
// Handlers are transport-thin: they bind and normalize input, call the
// application services, and translate results (or service errors, see
// errors.go) into HTTP responses.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/HussamZG/shakaoy-650/internal/auth"
	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
	"github.com/HussamZG/shakaoy-650/internal/services"
	"github.com/HussamZG/shakaoy-650/internal/utils"
)

//
// Service contracts (context-aware)
//

// SubmissionService creates complaints.
type SubmissionService interface {
	SubmitOnce(ctx context.Context, subject, key string, in services.SubmissionInput) (*services.SubmissionResult, error)
}

// TrackingService serves the anonymous submitter.
type TrackingService interface {
	Lookup(ctx context.Context, id string) (*domain.Complaint, error)
	PostMessage(ctx context.Context, id, text string) (*domain.Message, error)
}

// AdminService backs the dashboard and detail views.
type AdminService interface {
	List(ctx context.Context, q services.ListQuery) (*services.ListResult, error)
	Version(ctx context.Context, q services.ListQuery) (int64, *time.Time, error)
	Stats(ctx context.Context) (*services.Stats, error)
	Detail(ctx context.Context, id string, refresh bool) (*domain.Complaint, []services.Notice, error)
	UpdateStatus(ctx context.Context, id string, status domain.Status, note string) error
	PostMessage(ctx context.Context, id, text string) (*domain.Message, error)
	Delete(ctx context.Context, id string) error
	ActionLogs(ctx context.Context, id string) ([]domain.ActionLogEntry, error)
}

// SessionGuard signs admins in and out and validates their sessions.
type SessionGuard interface {
	Check(ctx context.Context, token string) (*auth.Session, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Logout(ctx context.Context, token string) error
}

// EventSource delivers committed row changes.
type EventSource interface {
	Subscribe(ctx context.Context, table string, event domain.EventKind, match func(domain.ChangeEvent) bool) (*realtime.Subscription, error)
}

// FileResolver maps an attachment key to a local file.
type FileResolver interface {
	Path(key string) (string, error)
}

//
// Handler wiring
//

// Options carries transport settings.
type Options struct {
	Cookie middleware.CookieOptions

	// MaxMultipartMemory bounds the in-memory part of a multipart form;
	// the rest spills to temp files.
	MaxMultipartMemory int64

	// AllowedOrigins restricts stream upgrades; empty allows any origin.
	AllowedOrigins []string

	// Files serves attachments from local storage; nil disables the route.
	Files FileResolver
}

// Handlers groups the HTTP endpoints.
type Handlers struct {
	submit SubmissionService
	track  TrackingService
	admin  AdminService
	guard  SessionGuard
	events EventSource
	opts   Options

	upgrader websocket.Upgrader
}

// New constructs Handlers bound to the given services.
func New(submit SubmissionService, track TrackingService, admin AdminService, guard SessionGuard, events EventSource, opts Options) *Handlers {
	if opts.MaxMultipartMemory <= 0 {
		opts.MaxMultipartMemory = 8 << 20
	}
	h := &Handlers{submit: submit, track: track, admin: admin, guard: guard, events: events, opts: opts}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(opts.AllowedOrigins),
	}
	return h
}

// HasFiles reports whether attachments are served locally.
func (h *Handlers) HasFiles() bool { return h.opts.Files != nil }

//
// DTOs
//

// ComplaintView is a complaint with display labels resolved.
type ComplaintView struct {
	*domain.Complaint
	StatusLabel   string `json:"status_label"   example:"قيد الانتظار"`
	CategoryLabel string `json:"category_label" example:"عمليات"`
	PriorityLabel string `json:"priority_label" example:"عادي"`
}

// adminView labels c the way the dashboard does.
func adminView(c *domain.Complaint) ComplaintView {
	return ComplaintView{
		Complaint:     c,
		StatusLabel:   domain.StatusLabel(c.Status),
		CategoryLabel: domain.CategoryLabel(c.Category),
		PriorityLabel: domain.PriorityLabel(c.Priority),
	}
}

// trackingView labels c with the tracking page's category table.
func trackingView(c *domain.Complaint) ComplaintView {
	v := adminView(c)
	v.CategoryLabel = domain.TrackingCategoryLabel(c.Category)
	return v
}

// PostMessageRequest is the JSON payload for a thread reply.
type PostMessageRequest struct {
	Text string `json:"text" example:"متى سيتم الرد على الشكوى؟"`
}

// MessageResponse wraps a stored message.
type MessageResponse struct {
	Message *domain.Message `json:"message"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	return utils.ClampPage(c.Query("page"), c.Query("page_size"))
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
