// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file gates access: APIKey checks the public API key every client
// must present, and AdminGuard resolves the admin session for dashboard
// routes. Session tokens travel in a cookie (browsers) or as a bearer
// token (scripts); clients using the bearer form send the API key in the
// apikey header.
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/HussamZG/shakaoy-650/internal/auth"
	"github.com/HussamZG/shakaoy-650/internal/services"
)

// HeaderAPIKey carries the public API key.
const HeaderAPIKey = "apikey"

const ctxKeyAdminSession = "admin.session"

// BearerToken returns the credential of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// APIKey rejects requests that do not carry key in the apikey header or as
// a bearer token. Browsers cannot set headers on a WebSocket handshake, so
// upgrade requests may pass it as the apikey query parameter instead. An
// empty key disables the check.
func APIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderAPIKey)
		if got == "" {
			got = BearerToken(c)
		}
		if got == "" && websocket.IsWebSocketUpgrade(c.Request) {
			got = c.Query(HeaderAPIKey)
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    "مفتاح الواجهة غير صالح",
			})
			return
		}
		c.Next()
	}
}

// CookieOptions describes the admin session cookie.
type CookieOptions struct {
	Name   string
	Secure bool
}

func (o CookieOptions) name() string {
	if o.Name == "" {
		return "admin_session"
	}
	return o.Name
}

// SessionToken returns the admin session token from the cookie, falling
// back to the bearer token.
func SessionToken(c *gin.Context, opts CookieOptions) string {
	if v, err := c.Cookie(opts.name()); err == nil && v != "" {
		return v
	}
	return BearerToken(c)
}

// SetSessionCookie stores token until expires.
func SetSessionCookie(c *gin.Context, opts CookieOptions, token string, expires time.Time) {
	maxAge := int(time.Until(expires).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.name(), token, maxAge, "/", "", opts.Secure, true)
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(opts.name(), "", -1, "/", "", opts.Secure, true)
}

// SessionChecker validates an admin session token.
type SessionChecker interface {
	Check(ctx context.Context, token string) (*auth.Session, error)
}

// AdminGuard admits requests with a live, allowed admin session. Failures
// clear the cookie and answer 401 with a redirect to the login view.
//
// On success the session is available through AdminSession and its email
// is stored as the request's userID.
func AdminGuard(checker SessionChecker, opts CookieOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, err := checker.Check(c.Request.Context(), SessionToken(c, opts))
		if err != nil {
			msg := "الرجاء تسجيل الدخول"
			var ue *services.UnauthorizedError
			if errors.As(err, &ue) {
				msg = "غير مصرح لك بالوصول: " + ue.Email
			}
			ClearSessionCookie(c, opts)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       "unauthorized",
				"message":    msg,
				"redirect":   services.RedirectLogin,
			})
			return
		}
		c.Set(ctxKeyAdminSession, sess)
		c.Set("userID", sess.Email)
		c.Next()
	}
}

// AdminSession returns the session AdminGuard admitted.
func AdminSession(c *gin.Context) (*auth.Session, bool) {
	v, ok := c.Get(ctxKeyAdminSession)
	if !ok {
		return nil, false
	}
	s, ok := v.(*auth.Session)
	return s, ok && s != nil
}
