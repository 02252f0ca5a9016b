// Package auth issues and verifies administrator sessions. Passwords are
// bcrypt hashes; sessions are HS256 JWTs whose jti must match a live
// admin_sessions row, so signing out revokes a token before it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/HussamZG/shakaoy-650/internal/domain"
	"github.com/HussamZG/shakaoy-650/internal/repo"
)

var (
	// ErrInvalidCredentials is the backend's sign-in failure. Its text is
	// shown to the user verbatim.
	ErrInvalidCredentials = errors.New("Invalid login credentials")

	// ErrNoSession means the token is missing, malformed, expired or revoked.
	ErrNoSession = errors.New("no active session")

	// ErrWeakPassword rejects passwords shorter than MinPasswordLen.
	ErrWeakPassword = errors.New("password too short")

	// ErrAdminExists is returned by CreateAdmin for a taken email.
	ErrAdminExists = errors.New("admin already exists")
)

// MinPasswordLen is the shortest password CreateAdmin accepts.
const MinPasswordLen = 8

// Session is an authenticated administrator session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service signs administrators in and out.
type Service struct {
	DB     *gorm.DB
	Secret []byte
	TTL    time.Duration
	Issuer string
	Cost   int // bcrypt cost; zero means bcrypt.DefaultCost

	now func() time.Time
}

// NewService returns a Service with defaults filled in.
func NewService(db *gorm.DB, secret string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Service{DB: db, Secret: []byte(secret), TTL: ttl, Issuer: "complaints-api"}
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }

// HashPassword returns the bcrypt hash of password.
func (s *Service) HashPassword(password string) (string, error) {
	cost := s.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CreateAdmin registers a new administrator account.
func (s *Service) CreateAdmin(ctx context.Context, email, password string) (*domain.AdminUser, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if len(password) < MinPasswordLen {
		return nil, ErrWeakPassword
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &domain.AdminUser{ID: uuid.NewString(), Email: email, PasswordHash: hash}
	if err := repo.CreateAdminUser(ctx, s.DB, u); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrAdminExists
		}
		return nil, err
	}
	return u, nil
}

// EnsureAdmin creates the account when it does not exist yet and reports
// whether it did.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	_, err := repo.GetAdminUserByEmail(ctx, s.DB, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}
	if _, err := s.CreateAdmin(ctx, email, password); err != nil {
		if errors.Is(err, ErrAdminExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SignInWithPassword checks the credentials and opens a new session.
func (s *Service) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := otel.Tracer("auth").Start(ctx, "SignInWithPassword",
		trace.WithAttributes(attribute.String("admin.email", normalizeEmail(email))))
	defer span.End()

	u, err := repo.GetAdminUserByEmail(ctx, s.DB, email)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.clock()
	sess := &domain.AdminSession{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		Email:     u.Email,
		ExpiresAt: now.Add(s.TTL),
		CreatedAt: now,
	}
	token, err := s.sign(sess, now)
	if err != nil {
		return nil, err
	}
	if err := repo.CreateAdminSession(ctx, s.DB, sess); err != nil {
		return nil, err
	}
	return &Session{ID: sess.ID, UserID: u.ID, Email: u.Email, Token: token, ExpiresAt: sess.ExpiresAt}, nil
}

func (s *Service) sign(sess *domain.AdminSession, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   sess.UserID,
		"email": sess.Email,
		"jti":   sess.ID,
		"iat":   now.Unix(),
		"exp":   sess.ExpiresAt.Unix(),
		"iss":   s.Issuer,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// GetSession verifies token and returns the live session it names.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoSession
	}
	jti, err := s.parse(token)
	if err != nil {
		return nil, ErrNoSession
	}
	row, err := repo.GetAdminSession(ctx, s.DB, jti, s.clock())
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	return &Session{ID: row.ID, UserID: row.UserID, Email: row.Email, Token: token, ExpiresAt: row.ExpiresAt}, nil
}

func (s *Service) parse(token string) (string, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) { return s.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock),
	)
	if err != nil {
		return "", err
	}
	jti, _ := claims["jti"].(string)
	if jti == "" {
		return "", errors.New("token has no jti")
	}
	return jti, nil
}

// SignOut revokes the session named by token. Unknown or invalid tokens are
// ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	jti, err := s.parse(strings.TrimSpace(token))
	if err != nil {
		return nil
	}
	return repo.DeleteAdminSession(ctx, s.DB, jti)
}

// ListAdmins returns every administrator account.
func (s *Service) ListAdmins(ctx context.Context) ([]domain.AdminUser, error) {
	return repo.ListAdminUsers(ctx, s.DB)
}

// PurgeExpired removes expired session rows.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return repo.DeleteExpiredAdminSessions(ctx, s.DB, s.clock())
}
