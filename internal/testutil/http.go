package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/ops-portal/internal/auth"
	"github.com/Spok95/ops-portal/internal/domain/users"
)

// Test tokens understood by Tokens.
const (
	AdminToken = "admin-token"
	StaffToken = "staff-token"
	TechToken  = "tech-token"
)

// Tokens is a fixed token table standing in for the real verifier.
type Tokens map[string]*auth.Claims

func DefaultTokens() Tokens {
	return Tokens{
		AdminToken: {UserID: 1, Email: "admin@example.com", Code: "AD", Access: users.AccessAdmin},
		StaffToken: {UserID: 2, Email: "staff@example.com", Code: "ST", Access: users.AccessStaff},
		TechToken:  {UserID: 3, Email: "tech@example.com", Code: "TE", Access: users.AccessTechnician},
	}
}

func (t Tokens) Parse(_ context.Context, raw string) (*auth.Claims, error) {
	c, ok := t[raw]
	if !ok {
		return nil, auth.ErrInvalidToken
	}
	cp := *c
	return &cp, nil
}

func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// DoRequest sends body as JSON with an optional bearer token.
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return out
}
