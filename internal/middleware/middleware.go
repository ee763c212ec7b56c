package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Spok95/ops-portal/internal/auth"
	"github.com/Spok95/ops-portal/internal/domain/auditlog"
	"github.com/Spok95/ops-portal/internal/domain/users"
	"github.com/Spok95/ops-portal/internal/infra/metrics"
)

const (
	keyRequestID = "request_id"
	keyClaims    = "claims"
)

// Logger writes one access log line per request.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"latency", time.Since(start),
			"request_id", c.GetString(keyRequestID),
		}
		if cl := ClaimsFrom(c); cl != nil {
			attrs = append(attrs, "user_id", cl.UserID)
		}

		switch {
		case status >= 500:
			log.Error("server error", attrs...)
		case status >= 400:
			log.Warn("client error", attrs...)
		default:
			log.Info("request", attrs...)
		}
	}
}

func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID, X-User-Id")
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID, Content-Disposition")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Request.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(keyRequestID, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// Metrics counts requests by matched route so ids in query strings do not explode labels.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// TokenParser is implemented by *auth.Service.
type TokenParser interface {
	Parse(ctx context.Context, raw string) (*auth.Claims, error)
}

func abort(c *gin.Context, status int, kind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"kind": kind, "message": msg})
}

// JWTAuth requires a bearer token with a live session and stores its claims on the context.
func JWTAuth(p TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw string
		parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			raw = strings.TrimSpace(parts[1])
		}
		if raw == "" {
			abort(c, http.StatusUnauthorized, "unauthorized", "authorization is required")
			return
		}

		claims, err := p.Parse(c.Request.Context(), raw)
		if err != nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
			return
		}
		c.Set(keyClaims, claims)
		c.Next()
	}
}

// RequireAccess lets the request through when the caller's access level equals one of levels.
func RequireAccess(levels ...users.Access) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl := ClaimsFrom(c)
		if cl == nil {
			abort(c, http.StatusUnauthorized, "unauthorized", "authorization is required")
			return
		}
		for _, l := range levels {
			if cl.Access == l {
				c.Next()
				return
			}
		}
		abort(c, http.StatusForbidden, "forbidden", "access level "+string(cl.Access)+" may not do this")
	}
}

func ClaimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(keyClaims)
	if !ok {
		return nil
	}
	cl, _ := v.(*auth.Claims)
	return cl
}

func IsAdmin(c *gin.Context) bool {
	cl := ClaimsFrom(c)
	return cl != nil && cl.Access == users.AccessAdmin
}

// Actor picks the code written to audit rows: X-User-Id header, then the body's user_id,
// then the caller's own code. The result is always normalized.
func Actor(c *gin.Context, bodyUserID string) string {
	if h := strings.TrimSpace(c.GetHeader("X-User-Id")); h != "" {
		return auditlog.NormalizeActor(h)
	}
	if strings.TrimSpace(bodyUserID) != "" {
		return auditlog.NormalizeActor(bodyUserID)
	}
	if cl := ClaimsFrom(c); cl != nil {
		return auditlog.NormalizeActor(cl.Code)
	}
	return auditlog.UnknownActor
}

func RequestIDFrom(c *gin.Context) string { return c.GetString(keyRequestID) }
