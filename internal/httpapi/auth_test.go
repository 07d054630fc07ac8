package httpapi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vendafacil/backend/internal/domain"
	"vendafacil/backend/internal/store/memory"
)

func newTestAuth(t *testing.T, ttl time.Duration) (*AuthManager, *memory.Store) {
	t.Helper()
	s := memory.New()
	return NewAuthManager("test-secret-0123456789-0123456789", ttl, s), s
}

func TestLoginAndParseToken(t *testing.T) {
	auth, _ := newTestAuth(t, time.Hour)
	ctx := context.Background()

	_, err := auth.CreateOperator(ctx, "caixa1", "caixa-secret", "operator")
	require.NoError(t, err)

	resp, err := auth.Login(ctx, domain.LoginRequest{Username: "caixa1", Password: "caixa-secret"})
	require.NoError(t, err)
	assert.Equal(t, "operator", resp.Role)

	actor, err := auth.ParseToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "caixa1", actor.Username)
	assert.Equal(t, "operator", actor.Role)
}

func TestLoginFailures(t *testing.T) {
	auth, s := newTestAuth(t, time.Hour)
	ctx := context.Background()

	_, err := auth.CreateOperator(ctx, "caixa1", "caixa-secret", "operator")
	require.NoError(t, err)

	_, err = auth.Login(ctx, domain.LoginRequest{Username: "caixa1", Password: "wrong"})
	assert.Error(t, err)

	_, err = auth.Login(ctx, domain.LoginRequest{Username: "nobody", Password: "x"})
	assert.Error(t, err)

	_, err = auth.Login(ctx, domain.LoginRequest{Username: "", Password: ""})
	assert.Error(t, err)

	// Deactivated accounts stop logging in immediately; no cached state.
	account, err := s.GetOperator(ctx, "caixa1")
	require.NoError(t, err)
	deactivated := *account
	deactivated.Active = false
	s2 := memory.New()
	require.NoError(t, s2.CreateOperator(ctx, deactivated))
	auth2 := NewAuthManager("test-secret-0123456789-0123456789", time.Hour, s2)
	_, err = auth2.Login(ctx, domain.LoginRequest{Username: "caixa1", Password: "caixa-secret"})
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	auth, _ := newTestAuth(t, time.Hour)
	token, err := auth.sign("caixa1", "operator", time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)

	_, err = auth.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	auth, _ := newTestAuth(t, time.Hour)
	other, _ := newTestAuth(t, time.Hour)

	token, err := other.sign("caixa1", "operator", time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)

	_, err = auth.ParseToken(token)
	assert.Error(t, err)
}

func TestCreateOperatorValidation(t *testing.T) {
	auth, _ := newTestAuth(t, time.Hour)
	ctx := context.Background()

	_, err := auth.CreateOperator(ctx, "ab", "long-enough", "operator")
	assert.Error(t, err, "short username")

	_, err = auth.CreateOperator(ctx, "caixa1", "123", "operator")
	assert.Error(t, err, "short password")

	created, err := auth.CreateOperator(ctx, "Caixa1", "caixa-secret", "supervisor")
	require.NoError(t, err)
	assert.Equal(t, "caixa1", created.Username, "usernames are lowercased")
	assert.Equal(t, "operator", created.Role, "unknown roles collapse to operator")
	assert.Empty(t, created.Password, "hash must not leak")

	_, err = auth.CreateOperator(ctx, "caixa1", "caixa-secret", "operator")
	assert.Error(t, err, "duplicate username")
}
