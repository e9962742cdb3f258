package auth

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/review-responder/pkg/errors"
)

func newTestService(t *testing.T, cfg Config) *service {
	t.Helper()
	svc, err := NewService(cfg, newTestLogger())
	require.NoError(t, err)
	return svc.(*service)
}

func TestService_IssueAndValidate(t *testing.T) {
	svc := newTestService(t, Config{Secret: "test-secret", Issuer: "review-responder", TokenTTL: time.Hour})

	token, err := svc.Issue(context.Background(), " ops ")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, "ops", claims.Subject)
	require.Equal(t, RoleAdmin, claims.Role)
	require.NotEmpty(t, claims.TokenID)
	require.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, time.Minute)
}

func TestService_RejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, Config{Secret: "test-secret", TokenTTL: time.Hour})

	other := newTestService(t, Config{Secret: "other-secret", TokenTTL: time.Hour})
	foreign, err := other.Issue(ctx, "ops")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := svc.Issue(ctx, "ops")
	require.NoError(t, err)
	svc.now = time.Now

	viewer, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role:             "viewer",
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{Role: RoleAdmin}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":     "  ",
		"garbage":   "not-a-jwt",
		"foreign":   foreign,
		"expired":   expired,
		"non-admin": viewer,
		"no expiry": noExpiry,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.ValidateToken(ctx, token)
			require.Error(t, err)
			require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
		})
	}
}

func TestService_IssuerMismatch(t *testing.T) {
	ctx := context.Background()
	issuer := newTestService(t, Config{Secret: "s", Issuer: "someone-else"})
	token, err := issuer.Issue(ctx, "ops")
	require.NoError(t, err)

	svc := newTestService(t, Config{Secret: "s", Issuer: "review-responder"})
	_, err = svc.ValidateToken(ctx, token)
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidToken))
}

func TestNewService_RequiresSecret(t *testing.T) {
	_, err := NewService(Config{}, newTestLogger())
	require.True(t, apperrors.IsCode(err, apperrors.CodeConfig))

	svc := newTestService(t, Config{Secret: "s"})
	require.Equal(t, defaultTokenTTL, svc.cfg.TokenTTL)

	_, err = svc.Issue(context.Background(), "")
	require.True(t, apperrors.IsCode(err, apperrors.CodeInvalidInput))
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}
