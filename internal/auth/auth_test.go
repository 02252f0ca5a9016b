package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/HussamZG/shakaoy-650/internal/domain"
)

const testSecret = "0123456789abcdef-test"

func newAuth(t *testing.T) (*Service, *time.Time) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.AdminUser{}, &domain.AdminSession{}))

	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewService(db, testSecret, time.Hour)
	s.Cost = bcrypt.MinCost
	s.now = func() time.Time { return now }
	return s, &now
}

func TestCreateAdmin(t *testing.T) {
	s, _ := newAuth(t)
	ctx := context.Background()

	u, err := s.CreateAdmin(ctx, " Admin@YourApp.com ", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, "admin@yourapp.com", u.Email)
	assert.NotEqual(t, "s3cret-pass", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("s3cret-pass")))

	_, err = s.CreateAdmin(ctx, "admin@yourapp.com", "another-pass")
	assert.ErrorIs(t, err, ErrAdminExists)

	_, err = s.CreateAdmin(ctx, "x@y.z", "short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	_, err = s.CreateAdmin(ctx, "  ", "long-enough")
	assert.Error(t, err)
}

func TestEnsureAdmin(t *testing.T) {
	s, _ := newAuth(t)
	ctx := context.Background()

	created, err := s.EnsureAdmin(ctx, "a@x.io", "password1")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.EnsureAdmin(ctx, "a@x.io", "password1")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSignInGetSessionSignOut(t *testing.T) {
	s, _ := newAuth(t)
	ctx := context.Background()
	_, err := s.CreateAdmin(ctx, "a@x.io", "password1")
	require.NoError(t, err)

	_, err = s.SignInWithPassword(ctx, "a@x.io", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, "Invalid login credentials", err.Error())

	_, err = s.SignInWithPassword(ctx, "nobody@x.io", "password1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	sess, err := s.SignInWithPassword(ctx, "A@X.io", "password1")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "a@x.io", sess.Email)

	got, err := s.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "a@x.io", got.Email)

	require.NoError(t, s.SignOut(ctx, sess.Token))
	_, err = s.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession, "revoked token must not validate")

	assert.NoError(t, s.SignOut(ctx, "garbage"), "sign-out of an invalid token is a no-op")
}

func TestGetSession_Rejections(t *testing.T) {
	s, now := newAuth(t)
	ctx := context.Background()
	_, err := s.CreateAdmin(ctx, "a@x.io", "password1")
	require.NoError(t, err)
	sess, err := s.SignInWithPassword(ctx, "a@x.io", "password1")
	require.NoError(t, err)

	_, err = s.GetSession(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = s.GetSession(ctx, "not.a.jwt")
	assert.ErrorIs(t, err, ErrNoSession)

	other := NewService(s.DB, "another-secret-value", time.Hour)
	_, err = other.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession, "foreign signature")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"jti": sess.ID, "exp": now.Add(time.Hour).Unix(), "iss": s.Issuer})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = s.GetSession(ctx, unsigned)
	assert.ErrorIs(t, err, ErrNoSession, "alg=none")

	*now = now.Add(2 * time.Hour)
	_, err = s.GetSession(ctx, sess.Token)
	assert.ErrorIs(t, err, ErrNoSession, "expired")

	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestListAdmins(t *testing.T) {
	s, _ := newAuth(t)
	ctx := context.Background()
	_, _ = s.CreateAdmin(ctx, "b@x.io", "password1")
	_, _ = s.CreateAdmin(ctx, "a@x.io", "password1")

	list, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a@x.io", list[0].Email)
}
