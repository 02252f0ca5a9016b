// Package services – SubmissionService
//
// SubmissionService validates and persists a new complaint with at most one
// attachment. Validation (fields, attachment type and size) happens before
// any backend call. The attachment is uploaded before the row insert, so an
// upload failure leaves nothing behind. After the insert a seed message from
// the admin side acknowledges receipt; its failure is only logged.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
)

// SeedMessageText is the acknowledgement posted on every new complaint.
const SeedMessageText = "تم استلام شكواك وسيتم مراجعتها قريباً"

// MaxAttachmentBytes is the default attachment size cap (5 MiB).
const MaxAttachmentBytes int64 = 5 << 20

// IdempotencyScope namespaces submission keys in the idempotency table.
const IdempotencyScope = "POST /complaints"

// AllowedAttachmentTypes lists the accepted attachment MIME types.
var AllowedAttachmentTypes = []string{"image/jpeg", "image/png", "image/gif", "application/pdf"}

// Attachment is the optional file sent with a submission.
type Attachment struct {
	Filename    string
	ContentType string // as declared by the client
	Size        int64  // as declared by the client
	Open        func() (io.ReadCloser, error)
}

// SubmissionInput is the raw form content.
type SubmissionInput struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	ContactPhone string `json:"contact_phone"`
	ContactEmail string `json:"contact_email"`

	Attachment *Attachment `json:"-"`
}

// SubmissionResult is what a successful submission hands back.
type SubmissionResult struct {
	Complaint *domain.Complaint `json:"complaint"`
	Redirect  string            `json:"redirect"`
	Replayed  bool              `json:"-"`
}

// SubmissionService creates complaints.
type SubmissionService struct {
	GW gateway.Gateway

	// Idem is optional; when set, SubmitOnce replays keyed submissions.
	Idem IdempotencyStore

	MaxAttachmentBytes int64
	PhoneRegion        string
	TitleMaxRunes      int

	newID    func() string
	now      func() time.Time
	validate *validator.Validate
}

// NewSubmissionService returns a service with default limits.
func NewSubmissionService(gw gateway.Gateway) *SubmissionService {
	return &SubmissionService{
		GW:                 gw,
		MaxAttachmentBytes: MaxAttachmentBytes,
		PhoneRegion:        "SA",
		TitleMaxRunes:      255,
		validate:           validator.New(),
	}
}

func (s *SubmissionService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func (s *SubmissionService) id() string {
	if s.newID != nil {
		return s.newID()
	}
	return NewComplaintID()
}

func (s *SubmissionService) maxBytes() int64 {
	if s.MaxAttachmentBytes > 0 {
		return s.MaxAttachmentBytes
	}
	return MaxAttachmentBytes
}

// SubmitOnce is Submit guarded by an idempotency key. A key seen before for
// subject replays the complaint it created. A blank key or a nil Idem store
// degrades to plain Submit.
func (s *SubmissionService) SubmitOnce(ctx context.Context, subject, key string, in SubmissionInput) (*SubmissionResult, error) {
	key = strings.TrimSpace(key)
	if s.Idem == nil || key == "" {
		return s.Submit(ctx, in)
	}
	if rid, ok, err := s.Idem.Lookup(ctx, IdempotencyScope, subject, key); err != nil {
		log.Warn().Err(err).Str("op", "SubmitOnce").Msg("idempotency lookup failed")
	} else if ok {
		c, err := s.GW.GetComplaint(ctx, rid)
		if err == nil {
			return &SubmissionResult{Complaint: c, Redirect: trackingRedirect(c.ID), Replayed: true}, nil
		}
		log.Warn().Err(err).Str("complaint_id", rid).Msg("idempotent replay target unreadable")
	}

	res, err := s.Submit(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.Idem.Remember(ctx, IdempotencyScope, subject, key, res.Complaint.ID, 201); err != nil {
		log.Warn().Err(err).Str("complaint_id", res.Complaint.ID).Msg("idempotency record failed")
	}
	return res, nil
}

// Submit validates in, uploads the attachment if any, inserts the complaint
// and posts the seed message.
func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (*SubmissionResult, error) {
	ctx, span := otel.Tracer("services/SubmissionService").Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("complaint.category", in.Category),
			attribute.Bool("complaint.attachment", in.Attachment != nil),
		),
	)
	defer span.End()

	c, err := s.buildComplaint(in)
	if err != nil {
		return nil, err
	}
	if in.Attachment != nil {
		if err := s.checkDeclared(in.Attachment); err != nil {
			return nil, err
		}
	}

	c.ID = s.id()
	c.Date = s.clock()
	span.SetAttributes(attribute.String("complaint.id", c.ID))

	if in.Attachment != nil {
		u, err := s.upload(ctx, c.ID, in.Attachment)
		if err != nil {
			return nil, err
		}
		c.Attachment = &u
	}

	if err := s.GW.InsertComplaint(ctx, c); err != nil {
		if c.Attachment != nil {
			log.Error().Err(err).Str("complaint_id", c.ID).Str("attachment", *c.Attachment).
				Msg("complaint insert failed after upload; attachment orphaned")
		}
		return nil, fmt.Errorf("%w: %v", ErrSubmitFailed, err)
	}

	if _, err := s.GW.InsertMessage(ctx, &domain.Message{
		ComplaintID: c.ID,
		Text:        SeedMessageText,
		Sender:      domain.SenderAdmin,
	}); err != nil {
		log.Warn().Err(err).Str("complaint_id", c.ID).Str("op", "Submit").Msg("seed message insert failed")
	}

	complaintsSubmitted.WithLabelValues(fmt.Sprint(c.Attachment != nil)).Inc()
	return &SubmissionResult{Complaint: c, Redirect: trackingRedirect(c.ID)}, nil
}

func trackingRedirect(id string) string {
	return "/track?id=" + url.QueryEscape(id)
}

// buildComplaint validates the text fields and contact details.
func (s *SubmissionService) buildComplaint(in SubmissionInput) (*domain.Complaint, error) {
	title := normalizeLine(in.Title)
	category := domain.Category(strings.TrimSpace(in.Category))
	description := sanitizeContent(in.Description)

	switch {
	case title == "":
		return nil, &FieldError{Field: "title", Reason: "required"}
	case category == "":
		return nil, &FieldError{Field: "category", Reason: "required"}
	case description == "":
		return nil, &FieldError{Field: "description", Reason: "required"}
	}
	if tooLong(title, s.TitleMaxRunes) {
		return nil, &FieldError{Field: "title", Reason: "too long"}
	}
	if !category.Submittable() {
		return nil, &FieldError{Field: "category", Reason: "unknown category"}
	}

	priority := domain.Priority(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if !priority.Submittable() {
		return nil, &FieldError{Field: "priority", Reason: "unknown priority"}
	}

	c := &domain.Complaint{
		Title:       title,
		Category:    category,
		Description: description,
		Priority:    priority,
		Status:      domain.StatusPending,
	}

	if raw := strings.TrimSpace(in.ContactPhone); raw != "" {
		num, err := phonenumbers.Parse(raw, s.PhoneRegion)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			return nil, &FieldError{Field: "contact_phone", Reason: "invalid phone number"}
		}
		e164 := phonenumbers.Format(num, phonenumbers.E164)
		c.ContactPhone = &e164
	}
	if raw := strings.TrimSpace(in.ContactEmail); raw != "" {
		v := s.validate
		if v == nil {
			v = validator.New()
		}
		if err := v.Var(raw, "email"); err != nil {
			return nil, &FieldError{Field: "contact_email", Reason: "invalid email"}
		}
		email := strings.ToLower(raw)
		c.ContactEmail = &email
	}
	return c, nil
}

// checkDeclared is the intake check on the client-declared type and size.
func (s *SubmissionService) checkDeclared(a *Attachment) error {
	if !allowedType(a.ContentType) {
		return ErrAttachmentType
	}
	if a.Size > s.maxBytes() {
		return ErrAttachmentTooLarge
	}
	return nil
}

// upload re-checks the attachment against its real bytes and stores it
// under <id><ext> without overwriting.
func (s *SubmissionService) upload(ctx context.Context, id string, a *Attachment) (string, error) {
	if a.Open == nil {
		return "", fmt.Errorf("%w: attachment has no content", ErrUploadFailed)
	}
	rc, err := a.Open()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	defer rc.Close()

	max := s.maxBytes()
	data, err := io.ReadAll(io.LimitReader(rc, max+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if int64(len(data)) > max {
		return "", ErrAttachmentTooLarge
	}
	sniffed := mimetype.Detect(data)
	var contentType string
	for _, t := range AllowedAttachmentTypes {
		if sniffed.Is(t) {
			contentType = t
			break
		}
	}
	if contentType == "" {
		return "", ErrAttachmentType
	}

	ext := attachmentExt(a.Filename, contentType)
	u, err := s.GW.Upload(ctx, id+ext, contentType, bytes.NewReader(data), int64(len(data)),
		gateway.UploadOptions{NoOverwrite: true})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	return u, nil
}

// extensionsByType lists the file extensions accepted as-is per stored type.
var extensionsByType = map[string][]string{
	"image/jpeg":      {".jpg", ".jpeg"},
	"image/png":       {".png"},
	"image/gif":       {".gif"},
	"application/pdf": {".pdf"},
}

// attachmentExt keeps the client's extension when it agrees with the sniffed
// content type and otherwise uses the type's canonical one, so the stored key
// never advertises a different type than its bytes.
func attachmentExt(filename, contentType string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, ok := range extensionsByType[contentType] {
		if ext == ok {
			return ext
		}
	}
	if m := mimetype.Lookup(contentType); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ""
}

func allowedType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	for _, t := range AllowedAttachmentTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// IsAttachmentError reports whether err rejected the attachment itself.
func IsAttachmentError(err error) bool {
	return errors.Is(err, ErrAttachmentType) || errors.Is(err, ErrAttachmentTooLarge)
}
