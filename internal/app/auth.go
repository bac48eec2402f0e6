package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ctxTenantID = "tenant_id"
	ctxRole     = "role"

	RoleAdmin = "admin"
)

// Claims are the JWT claims the API understands.
type Claims struct {
	TenantID string `json:"tenant_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type staticToken struct {
	tenantID string
	role     string
}

// parseStaticTokens reads "token:tenant[:role]" entries separated by commas.
// The role defaults to admin; entries without a tenant are ignored.
func parseStaticTokens(raw string) map[string]staticToken {
	out := make(map[string]staticToken)
	for _, entry := range strings.Split(raw, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		tok := staticToken{tenantID: parts[1], role: RoleAdmin}
		if len(parts) > 2 && parts[2] != "" {
			tok.role = parts[2]
		}
		out[parts[0]] = tok
	}
	return out
}

// AuthMiddleware accepts HMAC-signed JWTs carrying a tenant_id claim, or
// static tokens, and stores the tenant and role on the context.
func AuthMiddleware(jwtSecret, staticTokens string) gin.HandlerFunc {
	statics := parseStaticTokens(staticTokens)
	jwtSecret = strings.TrimSpace(jwtSecret)

	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}
		parts := strings.Fields(auth)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		tokenStr := parts[1]

		// JWT path
		if jwtSecret != "" {
			var claims Claims
			_, err := jwt.ParseWithClaims(tokenStr, &claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrTokenMalformed
				}
				return []byte(jwtSecret), nil
			}, jwt.WithLeeway(5*time.Second))
			if err == nil {
				if claims.TenantID == "" {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no tenant"})
					return
				}
				c.Set(ctxTenantID, claims.TenantID)
				c.Set(ctxRole, claims.Role)
				c.Next()
				return
			}
		}

		// static tokens
		if tok, ok := statics[tokenStr]; ok {
			c.Set(ctxTenantID, tok.tenantID)
			c.Set(ctxRole, tok.role)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	}
}

// RequireAdmin rejects callers whose role is not admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ctxRole) != RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin role required"})
			return
		}
		c.Next()
	}
}

func tenantID(c *gin.Context) string {
	return c.GetString(ctxTenantID)
}
