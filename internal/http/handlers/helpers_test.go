package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HussamZG/shakaoy-650/internal/auth"
	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
	"github.com/HussamZG/shakaoy-650/internal/repo"
	"github.com/HussamZG/shakaoy-650/internal/services"
	"github.com/HussamZG/shakaoy-650/internal/storage"
)

const (
	adminEmail    = "admin@yourapp.com"
	adminPassword = "correct-horse-9"
	cookieName    = "admin_session"
)

// fixture is the full handler stack over in-memory SQLite, a temp-dir
// object store and an in-process broker.
type fixture struct {
	DB      *gorm.DB
	GW      *gateway.Backend
	Objects *storage.LocalStore
	Auth    *auth.Service
	Store   *services.ComplaintStore
	Admin   *services.AdminService
	H       *Handlers
	R       *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	db.Exec("PRAGMA foreign_keys=ON;")
	require.NoError(t, repo.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	objects, err := storage.NewLocalStore(t.TempDir(), "complaint-attachments", "http://api.test")
	require.NoError(t, err)
	broker := realtime.NewMemoryBroker(32)
	t.Cleanup(func() { _ = broker.Close() })
	gw := gateway.New(db, objects, broker)

	authSvc := auth.NewService(db, "0123456789abcdef-test-secret", time.Hour)
	_, err = authSvc.CreateAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	store := services.NewComplaintStore(gw)
	t.Cleanup(store.Close)

	submit := services.NewSubmissionService(gw)
	submit.Idem = &services.DBIdempotency{DB: db, TTL: time.Hour}
	track := services.NewTrackingService(gw, store)
	admin := services.NewAdminService(gw, store)
	guard := services.NewSessionGuard(authSvc, []string{adminEmail}, false)

	cookie := middleware.CookieOptions{Name: cookieName}
	h := New(submit, track, admin, guard, gw, Options{Cookie: cookie, Files: objects})

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	r.POST("/complaints", h.SubmitComplaint)
	r.GET("/complaints/:id", h.GetComplaint)
	r.POST("/complaints/:id/messages", h.PostComplaintMessage)
	r.GET("/complaints/:id/stream", h.StreamComplaint)
	r.GET("/attachments/*key", h.ServeAttachment)
	r.POST("/admin/login", h.Login)
	r.POST("/admin/logout", h.Logout)
	g := r.Group("/admin", middleware.AdminGuard(guard, cookie))
	g.GET("/session", h.CurrentSession)
	g.GET("/complaints", h.ListComplaints)
	g.GET("/complaints/stats", h.ComplaintStats)
	g.GET("/complaints/:id", h.GetComplaintDetail)
	g.PUT("/complaints/:id/status", h.UpdateComplaintStatus)
	g.POST("/complaints/:id/messages", h.PostAdminMessage)
	g.GET("/complaints/:id/logs", h.ListActionLogs)
	g.DELETE("/complaints/:id", h.DeleteComplaint)

	return &fixture{DB: db, GW: gw, Objects: objects, Auth: authSvc, Store: store, Admin: admin, H: h, R: r}
}

// seed inserts a complaint directly through the gateway.
func (f *fixture) seed(t *testing.T, id string, date time.Time, mut ...func(*domain.Complaint)) *domain.Complaint {
	t.Helper()
	c := &domain.Complaint{
		ID: id, Title: "title " + id, Category: domain.CategoryOperations, Description: "desc " + id,
		Priority: domain.PriorityNormal, Status: domain.StatusPending, Date: date.UTC(),
	}
	for _, fn := range mut {
		fn(c)
	}
	require.NoError(t, f.GW.InsertComplaint(context.Background(), c))
	return c
}

// login signs the bootstrap admin in and returns the session cookie.
func (f *fixture) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := f.do(t, http.MethodPost, "/admin/login", LoginRequest{Email: adminEmail, Password: adminPassword})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == cookieName && c.Value != "" {
			return c
		}
	}
	t.Fatalf("no session cookie in %v", w.Result().Cookies())
	return nil
}

// do sends body (JSON-encoded unless it is an io.Reader) and returns the recorder.
func (f *fixture) do(t *testing.T, method, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case io.Reader:
		rd = b
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rd)
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, o := range opts {
		o(req)
	}
	w := httptest.NewRecorder()
	f.R.ServeHTTP(w, req)
	return w
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func withHeader(k, v string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set(k, v) }
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
