// Admin dashboard endpoints (all behind AdminGuard):
//   - GET    /admin/complaints               (list: filters, search, pagination, ETag)
//   - GET    /admin/complaints/stats         (per-status counts)
//   - GET    /admin/complaints/{id}          (detail with thread and audit trail)
//   - PUT    /admin/complaints/{id}/status   (change status)
//   - POST   /admin/complaints/{id}/messages (admin reply)
//   - GET    /admin/complaints/{id}/logs     (audit trail, newest first)
//   - DELETE /admin/complaints/{id}          (delete with message cascade)
package handlers

import (
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/services"
	"github.com/HussamZG/shakaoy-650/internal/sysutil"
)

// ListComplaintsResponse wraps a page of complaints and pagination information.
type ListComplaintsResponse struct {
	Complaints []ComplaintView `json:"complaints"`
	Pagination Pagination      `json:"pagination"`
}

// NoticeView reports a part of the detail view that could not be loaded.
type NoticeView struct {
	Scope   string `json:"scope"   example:"messages"`
	Message string `json:"message" example:"تعذر تحميل الرسائل"`
}

var noticeMessages = map[string]string{
	services.NoticeMessages:   "تعذر تحميل الرسائل",
	services.NoticeActionLogs: "تعذر تحميل سجل الإجراءات",
}

// ComplaintDetailResponse is the admin detail view.
type ComplaintDetailResponse struct {
	Complaint ComplaintView `json:"complaint"`
	Notices   []NoticeView  `json:"notices,omitempty"`
}

// UpdateStatusRequest changes a complaint's status.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required" example:"in_progress"`
	Note   string `json:"note"   example:"تم تحويل الشكوى إلى قسم العمليات"`
}

// UpdateStatusResponse echoes the applied status.
type UpdateStatusResponse struct {
	ID          string        `json:"id"`
	Status      domain.Status `json:"status"`
	StatusLabel string        `json:"status_label"`
}

// ActionLogsResponse wraps the audit trail.
type ActionLogsResponse struct {
	Logs []domain.ActionLogEntry `json:"logs"`
}

// parseListQuery reads the dashboard filters from the query string.
func parseListQuery(c *gin.Context) (services.ListQuery, error) {
	page, pageSize := clampPagination(c)
	q := services.ListQuery{
		Status:    c.Query("status"),
		Category:  c.Query("category"),
		Priority:  c.Query("priority"),
		Q:         c.Query("q"),
		Ascending: strings.EqualFold(c.Query("sort"), "asc"),
		Page:      page,
		PageSize:  pageSize,
	}
	var err error
	if q.From, err = parseDay(c.Query("from"), false); err != nil {
		return q, &services.FieldError{Field: "from", Reason: "bad date"}
	}
	if q.To, err = parseDay(c.Query("to"), true); err != nil {
		return q, &services.FieldError{Field: "to", Reason: "bad date"}
	}
	return q, nil
}

// parseDay accepts RFC 3339 or a bare YYYY-MM-DD. A bare end date covers
// the whole day.
func parseDay(s string, end bool) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, err
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ListComplaints godoc
// @ID          listComplaints
// @Summary     List complaints (paginated)
// @Description Filters by status, category, priority and date range; `q` ranks by relevance.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Admin
// @Produce     json
// @Param       status     query  string  false "pending|in_progress|resolved|closed|in-progress"
// @Param       category   query  string  false "Category"
// @Param       priority   query  string  false "Priority"
// @Param       from       query  string  false "From date (YYYY-MM-DD or RFC 3339)"
// @Param       to         query  string  false "To date (YYYY-MM-DD or RFC 3339)"
// @Param       q          query  string  false "Free-text search"
// @Param       sort       query  string  false "asc|desc (by date)"  default(desc)
// @Param       page       query  int     false "Page number"     minimum(1) default(1)
// @Param       page_size  query  int     false "Items per page"  minimum(1) maximum(100) default(20)
// @Success     200  {object}  handlers.ListComplaintsResponse
// @Success     304  "Not Modified"
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /admin/complaints [get]
func (h *Handlers) ListComplaints(c *gin.Context) {
	ctx := c.Request.Context()
	q, err := parseListQuery(c)
	if err != nil {
		failService(c, err, "")
		return
	}

	// ETag pre-check (best effort).
	if count, maxTS, err := h.admin.Version(ctx, q); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		fp := fnv.New32a()
		_, _ = fp.Write([]byte(c.Request.URL.RawQuery))
		etag := fmt.Sprintf(`W/"complaints:%08x:%d:%d"`, fp.Sum32(), count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	res, err := h.admin.List(ctx, q)
	if err != nil {
		failService(c, err, "")
		return
	}
	views := make([]ComplaintView, 0, len(res.Items))
	for i := range res.Items {
		views = append(views, adminView(&res.Items[i]))
	}
	ok(c, http.StatusOK, ListComplaintsResponse{
		Complaints: views,
		Pagination: newPagination(res.Page, res.PageSize, res.Total),
	})
}

// ComplaintStats godoc
// @ID          complaintStats
// @Summary     Complaint counts per status
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  services.Stats
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /admin/complaints/stats [get]
func (h *Handlers) ComplaintStats(c *gin.Context) {
	st, err := h.admin.Stats(c.Request.Context())
	if err != nil {
		failService(c, err, "")
		return
	}
	ok(c, http.StatusOK, st)
}

// GetComplaintDetail godoc
// @ID          complaintDetail
// @Summary     Complaint detail
// @Description Returns the complaint with its messages and audit trail. Parts that
// @Description failed to load are listed in `notices` and returned empty.
// @Description Served from the live cache once loaded; `refresh=true` reloads it.
// @Tags        Admin
// @Produce     json
// @Param       id       path   string  true   "Complaint ID"
// @Param       refresh  query  bool    false  "Reload from the backend"
// @Success     200  {object}  handlers.ComplaintDetailResponse
// @Failure     404  {object}  handlers.ErrorResponse
// @Router      /admin/complaints/{id} [get]
func (h *Handlers) GetComplaintDetail(c *gin.Context) {
	refresh := sysutil.IsTruthy(c.Query("refresh"))
	cmp, notices, err := h.admin.Detail(c.Request.Context(), c.Param("id"), refresh)
	if err != nil {
		failService(c, err, "")
		return
	}
	resp := ComplaintDetailResponse{Complaint: adminView(cmp)}
	for _, n := range notices {
		middleware.LoggerFrom(c).Warn().Err(n.Err).Str("scope", n.Scope).Msg("partial complaint detail")
		resp.Notices = append(resp.Notices, NoticeView{Scope: n.Scope, Message: noticeMessages[n.Scope]})
	}
	ok(c, http.StatusOK, resp)
}

// UpdateComplaintStatus godoc
// @ID          updateComplaintStatus
// @Summary     Change a complaint's status
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Complaint ID"
// @Param       body  body  handlers.UpdateStatusRequest  true  "New status"
// @Success     200  {object}  handlers.UpdateStatusResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid status"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Write failed"
// @Router      /admin/complaints/{id}/status [put]
func (h *Handlers) UpdateComplaintStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeInvalidStatus, msgInvalidStatus)
		return
	}
	id := c.Param("id")
	st := domain.Status(strings.TrimSpace(req.Status))
	if err := h.admin.UpdateStatus(c.Request.Context(), id, st, req.Note); err != nil {
		failService(c, err, "")
		return
	}
	ok(c, http.StatusOK, UpdateStatusResponse{ID: id, Status: st, StatusLabel: domain.StatusLabel(st)})
}

// PostAdminMessage godoc
// @ID          postAdminMessage
// @Summary     Reply as the administration
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Complaint ID"
// @Param       body  body  handlers.PostMessageRequest  true  "Message"
// @Success     201  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /admin/complaints/{id}/messages [post]
func (h *Handlers) PostAdminMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeEmptyMessage, msgEmptyMessage)
		return
	}
	m, err := h.admin.PostMessage(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		failService(c, err, msgSendFailed)
		return
	}
	ok(c, http.StatusCreated, MessageResponse{Message: m})
}

// ListActionLogs godoc
// @ID          listActionLogs
// @Summary     Audit trail of a complaint
// @Description Newest first. When the trail is unreadable, entries are derived from the messages.
// @Tags        Admin
// @Produce     json
// @Param       id   path  string  true  "Complaint ID"
// @Success     200  {object}  handlers.ActionLogsResponse
// @Router      /admin/complaints/{id}/logs [get]
func (h *Handlers) ListActionLogs(c *gin.Context) {
	logs, err := h.admin.ActionLogs(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, "")
		return
	}
	ok(c, http.StatusOK, ActionLogsResponse{Logs: logs})
}

// DeleteComplaint godoc
// @ID          deleteComplaint
// @Summary     Delete a complaint
// @Description Deletes the messages, then the complaint row, then the attachment.
// @Tags        Admin
// @Param       id   path  string  true  "Complaint ID"
// @Success     204  "No Content"
// @Failure     404  {object}  handlers.ErrorResponse
// @Failure     500  {object}  handlers.ErrorResponse
// @Router      /admin/complaints/{id} [delete]
func (h *Handlers) DeleteComplaint(c *gin.Context) {
	err := h.admin.Delete(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		noContent(c)
	case errors.Is(err, services.ErrComplaintNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, msgNotFoundOrDeleted)
	default:
		failService(c, err, msgDeleteUnexpected)
	}
}
