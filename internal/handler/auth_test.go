package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/ops-portal/internal/auth"
	"github.com/Spok95/ops-portal/internal/domain/users"
	"github.com/Spok95/ops-portal/internal/testutil"
)

type scriptedAuth struct {
	testutil.Tokens
	loggedOut []int64
}

func (a *scriptedAuth) Login(_ context.Context, email, password string) (*auth.Token, error) {
	if email == "jo@example.com" && password == "correct horse" {
		return &auth.Token{
			AccessToken: testutil.AdminToken,
			ExpiresAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			User:        &users.User{ID: 1, Email: email, Access: users.AccessAdmin, Code: "AD"},
		}, nil
	}
	return nil, auth.ErrInvalidCredentials
}

func (a *scriptedAuth) Logout(_ context.Context, c *auth.Claims) error {
	a.loggedOut = append(a.loggedOut, c.UserID)
	return nil
}

func (a *scriptedAuth) ChangePassword(_ context.Context, _ int64, current, next string) error {
	if current != "correct horse" {
		return auth.ErrInvalidCredentials
	}
	if len(next) < auth.MinPasswordLen {
		return auth.ErrWeakPassword
	}
	return nil
}

func TestLoginLogout(t *testing.T) {
	a := &scriptedAuth{Tokens: testutil.DefaultTokens()}
	e := newEnv(t, func(h *Handlers) { h.Auth = a })

	w := testutil.DoRequest(e.r, http.MethodPost, "/login", map[string]any{"email": "jo@example.com", "password": "nope"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", testutil.ParseResponse(w)["kind"])

	w = testutil.DoRequest(e.r, http.MethodPost, "/login", map[string]any{"email": "jo@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(e.r, http.MethodPost, "/login", map[string]any{"email": "jo@example.com", "password": "correct horse"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := testutil.ParseResponse(w)
	assert.Equal(t, testutil.AdminToken, body["token"])
	_, leaked := body["user"].(map[string]any)["password_hash"]
	assert.False(t, leaked)

	w = testutil.DoRequest(e.r, http.MethodPost, "/logout", nil, testutil.AdminToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []int64{1}, a.loggedOut)
}

func TestChangePasswordHandler(t *testing.T) {
	a := &scriptedAuth{Tokens: testutil.DefaultTokens()}
	e := newEnv(t, func(h *Handlers) { h.Auth = a })

	w := testutil.DoRequest(e.r, http.MethodPost, "/password", map[string]any{"current_password": "x", "new_password": "long enough"}, testutil.StaffToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.DoRequest(e.r, http.MethodPost, "/password", map[string]any{"current_password": "correct horse", "new_password": "short"}, testutil.StaffToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.DoRequest(e.r, http.MethodPost, "/password", map[string]any{"current_password": "correct horse", "new_password": "long enough"}, testutil.StaffToken)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
