package middleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen/stoic-reflections/internal/adapters/http/dto"
	"github.com/jsamuelsen/stoic-reflections/internal/platform/config"
)

// ContextKeyClaims is the gin context key claims are stored under.
const ContextKeyClaims = "claims"

// Header names used when the auth config does not override them.
const (
	defaultSubjectHeader = "X-User-ID"
	defaultRolesHeader   = "X-User-Roles"
)

// Claims are the identity facts the API gateway forwards after it has
// validated the caller's token. The service never sees the token itself; it
// trusts the gateway headers, which is why the operator routes must only be
// reachable through the gateway.
type Claims struct {
	// Subject is the caller's user ID.
	Subject string

	// Roles are the caller's roles, used to gate operator endpoints.
	Roles []string
}

// HasRole reports whether the caller holds role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ExtractClaims reads the gateway identity headers into Claims. Header names
// come from cfg, falling back to the package defaults.
func ExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	subjectHeader, rolesHeader := claimHeaders(cfg)

	claims := &Claims{
		Subject: c.GetHeader(subjectHeader),
	}

	if raw := c.GetHeader(rolesHeader); raw != "" {
		claims.Roles = parseCommaSeparated(raw)
	}

	return claims
}

func claimHeaders(cfg *config.AuthConfig) (subject, roles string) {
	subject = defaultSubjectHeader
	roles = defaultRolesHeader

	if cfg != nil {
		if cfg.SubjectHeader != "" {
			subject = cfg.SubjectHeader
		}

		if cfg.RolesHeader != "" {
			roles = cfg.RolesHeader
		}
	}

	return subject, roles
}

// GetClaims returns the claims stored on the gin context, or nil when the
// request never passed RequireAuth.
func GetClaims(c *gin.Context) *Claims {
	if stored, exists := c.Get(ContextKeyClaims); exists {
		if claims, ok := stored.(*Claims); ok {
			return claims
		}
	}

	return nil
}

// RequireAuth rejects requests that carry no gateway subject and stores the
// extracted claims for handlers downstream.
func RequireAuth(cfg *config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := ExtractClaims(c, cfg)

		if claims.Subject == "" {
			abortWithForbidden(c, "authentication required")
			return
		}

		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireRole rejects callers that do not hold role.
func RequireRole(cfg *config.AuthConfig, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := getOrExtractClaims(c, cfg)

		if !claims.HasRole(role) {
			abortWithForbidden(c, "insufficient permissions: role "+role+" required")
			return
		}

		c.Next()
	}
}

// getOrExtractClaims reuses claims RequireAuth already stored, extracting
// fresh ones when RequireRole runs without it.
func getOrExtractClaims(c *gin.Context, cfg *config.AuthConfig) *Claims {
	if claims := GetClaims(c); claims != nil {
		return claims
	}

	claims := ExtractClaims(c, cfg)
	c.Set(ContextKeyClaims, claims)

	return claims
}

func abortWithForbidden(c *gin.Context, message string) {
	errResp := dto.NewErrorResponse(dto.ErrorCodeForbidden, message)

	if span := trace.SpanFromContext(c.Request.Context()); span.SpanContext().HasTraceID() {
		errResp.TraceID = span.SpanContext().TraceID().String()
	}

	c.AbortWithStatusJSON(http.StatusForbidden, errResp)
}

// parseCommaSeparated splits a header value on commas, trimming whitespace
// and dropping empty entries.
func parseCommaSeparated(s string) []string {
	values := []string{}
	for part := range strings.SplitSeq(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}

	return values
}
