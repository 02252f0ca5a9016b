// Public complaint endpoints:
//   - POST /complaints                (submit, JSON or multipart with attachment)
//   - GET  /complaints/{id}           (track)
//   - POST /complaints/{id}/messages  (submitter reply)
//
// Idempotency:
// POST /complaints honours Idempotency-Key. A key already used by the same
// client replays the complaint it created and sets `Idempotency-Replayed: true`.
package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/services"
)

// SubmitComplaintRequest is the JSON form of a submission. Multipart
// submissions use the same field names plus an `attachment` file part.
type SubmitComplaintRequest struct {
	Title        string `json:"title"         example:"تأخر سيارة الإسعاف"`
	Category     string `json:"category"      example:"emergency"`
	Description  string `json:"description"   example:"تأخرت سيارة الإسعاف أكثر من ساعة"`
	Priority     string `json:"priority"      example:"urgent"`
	ContactPhone string `json:"contact_phone" example:"0501234567"`
	ContactEmail string `json:"contact_email" example:"citizen@example.com"`
}

func (r SubmitComplaintRequest) input() services.SubmissionInput {
	return services.SubmissionInput{
		Title:        r.Title,
		Category:     r.Category,
		Description:  r.Description,
		Priority:     r.Priority,
		ContactPhone: r.ContactPhone,
		ContactEmail: r.ContactEmail,
	}
}

// SubmitComplaintResponse carries the new complaint and where to go next.
type SubmitComplaintResponse struct {
	Complaint ComplaintView `json:"complaint"`
	Redirect  string        `json:"redirect" example:"/track?id=k3j9x0a2b"`
}

// bindSubmission reads a JSON or multipart submission.
func (h *Handlers) bindSubmission(c *gin.Context) (services.SubmissionInput, error) {
	var req SubmitComplaintRequest
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		err := c.ShouldBindJSON(&req)
		return req.input(), err
	}

	if err := c.Request.ParseMultipartForm(h.opts.MaxMultipartMemory); err != nil {
		return services.SubmissionInput{}, err
	}
	req = SubmitComplaintRequest{
		Title:        c.PostForm("title"),
		Category:     c.PostForm("category"),
		Description:  c.PostForm("description"),
		Priority:     c.PostForm("priority"),
		ContactPhone: c.PostForm("contact_phone"),
		ContactEmail: c.PostForm("contact_email"),
	}
	in := req.input()

	fh, err := c.FormFile("attachment")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, nil
	case err != nil:
		return in, err
	}
	in.Attachment = &services.Attachment{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
	return in, nil
}

// SubmitComplaint godoc
// @ID          submitComplaint
// @Summary     Submit a complaint
// @Description Creates a complaint with an optional attachment (JPEG, PNG, GIF or PDF up to 5 MiB).
// @Description Supports idempotency via the Idempotency-Key header.
// @Tags        Complaints
// @Accept      json
// @Accept      mpfd
// @Produce     json
//
// @Param       Idempotency-Key  header    string  false "Idempotency key for safe retries"
// @Param       body             body      handlers.SubmitComplaintRequest  false "JSON submission"
// @Param       attachment       formData  file    false "Attachment (multipart only)"
//
// @Success     201  {object}  handlers.SubmitComplaintResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Validation failed or attachment rejected"
// @Failure     413  {object}  handlers.ErrorResponse  "Body too large"
// @Failure     500  {object}  handlers.ErrorResponse  "Upload or insert failed"
// @Router      /complaints [post]
func (h *Handlers) SubmitComplaint(c *gin.Context) {
	in, err := h.bindSubmission(c)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			abort(c, http.StatusRequestEntityTooLarge, ErrorResponse{Code: ErrCodeAttachmentRejected, Message: msgAttachmentSize, Field: "attachment"})
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, msgInvalidBody)
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	res, err := h.submit.SubmitOnce(c.Request.Context(), middleware.IdempotencySubject(c), key, in)
	if err != nil {
		failService(c, err, msgSubmitFailed)
		return
	}
	if res.Replayed {
		c.Header("Idempotency-Replayed", "true")
	}
	ok(c, http.StatusCreated, SubmitComplaintResponse{Complaint: trackingView(res.Complaint), Redirect: res.Redirect})
}

// GetComplaint godoc
// @ID          trackComplaint
// @Summary     Track a complaint
// @Description Returns the complaint and its message thread in ascending time order.
// @Tags        Complaints
// @Produce     json
// @Param       id   path  string  true  "Complaint ID"
// @Success     200  {object}  handlers.ComplaintView
// @Failure     400  {object}  handlers.ErrorResponse  "Empty id"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Router      /complaints/{id} [get]
func (h *Handlers) GetComplaint(c *gin.Context) {
	cmp, err := h.track.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err, "")
		return
	}
	ok(c, http.StatusOK, trackingView(cmp))
}

// PostComplaintMessage godoc
// @ID          postComplaintMessage
// @Summary     Reply as the submitter
// @Tags        Complaints
// @Accept      json
// @Produce     json
// @Param       id    path  string  true  "Complaint ID"
// @Param       body  body  handlers.PostMessageRequest  true  "Message"
// @Success     201  {object}  handlers.MessageResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Empty or too long"
// @Failure     404  {object}  handlers.ErrorResponse  "Not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Send failed"
// @Router      /complaints/{id}/messages [post]
func (h *Handlers) PostComplaintMessage(c *gin.Context) {
	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeEmptyMessage, msgEmptyMessage)
		return
	}
	m, err := h.track.PostMessage(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		failService(c, err, msgSendFailed)
		return
	}
	ok(c, http.StatusCreated, MessageResponse{Message: m})
}
