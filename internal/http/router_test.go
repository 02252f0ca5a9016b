package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HussamZG/shakaoy-650/internal/auth"
	"github.com/HussamZG/shakaoy-650/internal/config"
	"github.com/HussamZG/shakaoy-650/internal/gateway"
	"github.com/HussamZG/shakaoy-650/internal/http/handlers"
	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/realtime"
	"github.com/HussamZG/shakaoy-650/internal/repo"
	"github.com/HussamZG/shakaoy-650/internal/services"
	"github.com/HussamZG/shakaoy-650/internal/storage"
)

const (
	testAPIKey    = "anon-public-key"
	adminEmail    = "admin@yourapp.com"
	adminPassword = "correct-horse-9"
)

func baseConfig() config.Config {
	return config.Config{
		APIBasePath:  "/api/v1",
		PublicAPIKey: testAPIKey,
		MaxBodyBytes: 1 << 20,
		RateRPS:      1000,
		RateBurst:    1000,
		LogRedact:    true,
		OTEL:         config.OTELConfig{ServiceName: "complaints-test"},
		Admin:        config.AdminConfig{CookieName: "admin_session"},
	}
}

// newTestRouter mounts the complete route table over in-memory SQLite.
func newTestRouter(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:router_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	objects, err := storage.NewLocalStore(t.TempDir(), "complaint-attachments", "http://api.test")
	require.NoError(t, err)
	broker := realtime.NewMemoryBroker(16)
	t.Cleanup(func() { _ = broker.Close() })
	gw := gateway.New(db, objects, broker)

	authSvc := auth.NewService(db, "0123456789abcdef-test-secret", time.Hour)
	_, err = authSvc.CreateAdmin(context.Background(), adminEmail, adminPassword)
	require.NoError(t, err)

	store := services.NewComplaintStore(gw)
	t.Cleanup(store.Close)
	idem := &services.DBIdempotency{DB: db, TTL: time.Hour}
	submit := services.NewSubmissionService(gw)
	submit.Idem = idem
	guard := services.NewSessionGuard(authSvc, []string{adminEmail}, false)

	h := handlers.New(submit, services.NewTrackingService(gw, store), services.NewAdminService(gw, store),
		guard, gw, HandlerOptions(cfg, objects))

	r := gin.New()
	RegisterRoutes(r, Deps{Handlers: h, Guard: guard, Idem: idem}, cfg)
	return r, db
}

func send(r http.Handler, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestRegisterRoutes_HealthMetricsAndFallbacks(t *testing.T) {
	r, _ := newTestRouter(t, baseConfig())

	w := send(r, http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))

	w = send(r, http.MethodGet, "/metrics", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = send(r, http.MethodGet, "/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "المسار غير موجود")

	w = send(r, http.MethodPatch, "/health", nil, nil)
	require.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Contains(t, w.Body.String(), "الطريقة غير مسموحة")

	// Swagger is off unless enabled.
	assert.Equal(t, http.StatusNotFound, send(r, http.MethodGet, "/swagger/index.html", nil, nil).Code)
}

func TestRegisterRoutes_SwaggerEnabled(t *testing.T) {
	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	r, _ := newTestRouter(t, cfg)

	w := send(r, http.MethodGet, "/swagger/doc.json", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/complaints")
}

func TestRegisterRoutes_APIKeyRequired(t *testing.T) {
	r, _ := newTestRouter(t, baseConfig())

	w := send(r, http.MethodGet, "/api/v1/complaints/abc", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(r, http.MethodGet, "/api/v1/complaints/abc", nil, map[string]string{middleware.HeaderAPIKey: testAPIKey})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Browser WebSocket clients pass the key in the query string.
	upgrade := map[string]string{"Connection": "Upgrade", "Upgrade": "websocket"}
	w = send(r, http.MethodGet, "/api/v1/complaints/abc/stream", nil, upgrade)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = send(r, http.MethodGet, "/api/v1/complaints/abc/stream?apikey="+testAPIKey, nil, upgrade)
	assert.Equal(t, http.StatusNotFound, w.Code, "key accepted, then unknown complaint")
	w = send(r, http.MethodGet, "/api/v1/complaints/abc?apikey="+testAPIKey, nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "plain requests must use the header")
}

func TestRegisterRoutes_SubmitTrackAndReplay(t *testing.T) {
	r, db := newTestRouter(t, baseConfig())
	hdr := map[string]string{
		middleware.HeaderAPIKey:         testAPIKey,
		"Content-Type":                  "application/json",
		middleware.HeaderIdempotencyKey: "submit-1",
	}
	payload := map[string]string{
		"title": "انقطاع المياه", "category": "operations", "description": "لا توجد مياه منذ يومين",
	}

	w := send(r, http.MethodPost, "/api/v1/complaints", jsonBody(t, payload), hdr)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var first handlers.SubmitComplaintResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	id := first.Complaint.ID
	require.Len(t, id, 9)

	w = send(r, http.MethodPost, "/api/v1/complaints", jsonBody(t, payload), hdr)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "true", w.Header().Get("Idempotency-Replayed"))
	var again handlers.SubmitComplaintResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &again))
	assert.Equal(t, id, again.Complaint.ID)

	var n int64
	require.NoError(t, db.Table("complaints").Count(&n).Error)
	assert.EqualValues(t, 1, n)

	w = send(r, http.MethodGet, "/api/v1/complaints/"+id, nil, map[string]string{middleware.HeaderAPIKey: testAPIKey})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "انقطاع المياه")
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestRegisterRoutes_AdminFlow(t *testing.T) {
	r, _ := newTestRouter(t, baseConfig())
	key := map[string]string{middleware.HeaderAPIKey: testAPIKey}

	w := send(r, http.MethodGet, "/api/v1/admin/complaints", nil, key)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), services.RedirectLogin)

	w = send(r, http.MethodPost, "/api/v1/admin/login",
		jsonBody(t, handlers.LoginRequest{Email: adminEmail, Password: adminPassword}),
		map[string]string{middleware.HeaderAPIKey: testAPIKey, "Content-Type": "application/json"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var login handlers.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	require.NotEmpty(t, login.Token)

	bearer := map[string]string{middleware.HeaderAPIKey: testAPIKey, "Authorization": "Bearer " + login.Token}
	w = send(r, http.MethodGet, "/api/v1/admin/complaints/stats", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = send(r, http.MethodGet, "/api/v1/admin/complaints", nil, bearer)
	require.Equal(t, http.StatusOK, w.Code)
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	bearer["If-None-Match"] = etag
	w = send(r, http.MethodGet, "/api/v1/admin/complaints", nil, bearer)
	assert.Equal(t, http.StatusNotModified, w.Code)
}

func TestRegisterRoutes_GzipSkipsStream(t *testing.T) {
	r, _ := newTestRouter(t, baseConfig())

	w := send(r, http.MethodGet, "/health", nil, map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	// Unknown complaint: rejected before the upgrade, and never compressed.
	w = send(r, http.MethodGet, "/api/v1/complaints/missing01/stream", nil, map[string]string{
		"Accept-Encoding": "gzip", middleware.HeaderAPIKey: testAPIKey,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestRegisterRoutes_CORS(t *testing.T) {
	t.Run("allow all without credentials", func(t *testing.T) {
		r, _ := newTestRouter(t, baseConfig())
		w := send(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "http://anywhere.test"})
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("allowlist with credentials", func(t *testing.T) {
		cfg := baseConfig()
		cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"https://complaints.example"}}
		r, _ := newTestRouter(t, cfg)

		w := send(r, http.MethodOptions, "/api/v1/admin/login", nil, map[string]string{
			"Origin":                        "https://complaints.example",
			"Access-Control-Request-Method": http.MethodPost,
		})
		assert.Equal(t, "https://complaints.example", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		assert.True(t, strings.Contains(strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "idempotency-key"))

		w = send(r, http.MethodGet, "/health", nil, map[string]string{"Origin": "https://evil.example"})
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRegisterRoutes_BodyLimit(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxBodyBytes = 64
	r, _ := newTestRouter(t, cfg)

	big := strings.Repeat("x", 4096)
	w := send(r, http.MethodPost, "/api/v1/complaints",
		jsonBody(t, map[string]string{"title": big, "category": "operations", "description": big}),
		map[string]string{middleware.HeaderAPIKey: testAPIKey, "Content-Type": "application/json"})
	assert.GreaterOrEqual(t, w.Code, 400)
	assert.Less(t, w.Code, 500)
}

func Test_limitBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	assert.Equal(t, http.StatusRequestEntityTooLarge, send(r, http.MethodPost, "/echo", strings.NewReader("0123456789AB"), nil).Code)
	assert.Equal(t, http.StatusOK, send(r, http.MethodPost, "/echo", strings.NewReader("short"), nil).Code)
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		w := send(r, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, want, w.Body.String(), path)
	}
}

func Test_idempotencyLookup(t *testing.T) {
	assert.Nil(t, idempotencyLookup(nil))

	dsn := fmt.Sprintf("file:idem_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, repo.AutoMigrate(db))

	store := &services.DBIdempotency{DB: db, TTL: time.Hour}
	ctx := context.Background()
	require.NoError(t, store.Remember(ctx, services.IdempotencyScope, "ip:1.2.3.4", "k", "abc123def", http.StatusCreated))

	lookup := idempotencyLookup(store)
	hit, err := lookup(ctx, "ip:1.2.3.4", "k", time.Now())
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = lookup(ctx, "ip:9.9.9.9", "k", time.Now())
	require.NoError(t, err)
	assert.False(t, hit, "keys are scoped per client")
}
