// Admin session endpoints:
//   - POST /admin/login    (password sign-in, sets the session cookie)
//   - POST /admin/logout   (ends the session, clears the cookie)
//   - GET  /admin/session  (current session, behind AdminGuard)
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HussamZG/shakaoy-650/internal/http/middleware"
	"github.com/HussamZG/shakaoy-650/internal/services"
)

// LoginRequest carries admin credentials.
type LoginRequest struct {
	Email    string `json:"email"    binding:"required" example:"admin@yourapp.com"`
	Password string `json:"password" binding:"required" example:"s3cret-pass"`
}

// LoginResponse describes the new session. Token is also set as an
// HttpOnly cookie; scripts may send it as a bearer token instead.
type LoginResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	Token     string    `json:"token"`
	Redirect  string    `json:"redirect" example:"/admin/dashboard"`
}

// RedirectResponse tells the client where to navigate.
type RedirectResponse struct {
	Redirect string `json:"redirect" example:"/"`
}

// SessionResponse is the current admin identity.
type SessionResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login godoc
// @ID          adminLogin
// @Summary     Admin sign-in
// @Description The backend's error message is returned verbatim on failure.
// @Tags        Admin
// @Accept      json
// @Produce     json
// @Param       body  body  handlers.LoginRequest  true  "Credentials"
// @Success     200  {object}  handlers.LoginResponse
// @Failure     400  {object}  handlers.ErrorResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /admin/login [post]
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeValidation, msgRequiredFields)
		return
	}
	ctx := c.Request.Context()
	sess, err := h.guard.Login(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		msg := err.Error()
		if msg == "" {
			msg = msgLoginFailed
		}
		middleware.LoggerFrom(c).Info().Err(err).Msg("admin login rejected")
		fail(c, http.StatusUnauthorized, ErrCodeLoginFailed, msg)
		return
	}

	// Apply the allow-list now rather than on the first dashboard call.
	if _, err := h.guard.Check(ctx, sess.Token); err != nil {
		failService(c, err, "")
		return
	}

	middleware.SetSessionCookie(c, h.opts.Cookie, sess.Token, sess.ExpiresAt)
	ok(c, http.StatusOK, LoginResponse{
		Email:     sess.Email,
		ExpiresAt: sess.ExpiresAt,
		Token:     sess.Token,
		Redirect:  services.RedirectDashboard,
	})
}

// Logout godoc
// @ID          adminLogout
// @Summary     Admin sign-out
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  handlers.RedirectResponse
// @Router      /admin/logout [post]
func (h *Handlers) Logout(c *gin.Context) {
	if token := middleware.SessionToken(c, h.opts.Cookie); token != "" {
		if err := h.guard.Logout(c.Request.Context(), token); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("admin logout failed")
		}
	}
	middleware.ClearSessionCookie(c, h.opts.Cookie)
	ok(c, http.StatusOK, RedirectResponse{Redirect: services.RedirectLanding})
}

// CurrentSession godoc
// @ID          adminSession
// @Summary     Current admin session
// @Tags        Admin
// @Produce     json
// @Success     200  {object}  handlers.SessionResponse
// @Failure     401  {object}  handlers.ErrorResponse
// @Router      /admin/session [get]
func (h *Handlers) CurrentSession(c *gin.Context) {
	sess, found := middleware.AdminSession(c)
	if !found {
		failService(c, services.ErrNoSession, "")
		return
	}
	ok(c, http.StatusOK, SessionResponse{Email: sess.Email, ExpiresAt: sess.ExpiresAt})
}
