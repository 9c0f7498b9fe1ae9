package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	a "github.com/klaus2514/Sportsafari/pkg/auth"
	"github.com/klaus2514/Sportsafari/services/booking-service/internal/domain"
)

const principalKey = "principal"

func abort(c *gin.Context, status int, kind domain.Kind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"success": false, "kind": kind, "message": msg})
}

// JWTAuth verifies the bearer token and stores the caller's Principal.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		if !strings.HasPrefix(h, "Bearer ") {
			abort(c, http.StatusUnauthorized, domain.KindUnauthenticated, "missing bearer token")
			return
		}
		claims, err := a.ParseValidate(secret, strings.TrimPrefix(h, "Bearer "))
		if err != nil {
			abort(c, http.StatusUnauthorized, domain.KindUnauthenticated, "invalid token")
			return
		}
		role, ok := domain.ParseRole(claims.Role)
		if !ok {
			abort(c, http.StatusUnauthorized, domain.KindUnauthenticated, "unknown role")
			return
		}
		c.Set(principalKey, domain.Principal{ID: claims.Sub, Role: role, Email: claims.Email})
		c.Next()
	}
}

func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := map[domain.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := allowed[Principal(c).Role]; !ok {
			abort(c, http.StatusForbidden, domain.KindUnauthorized, "insufficient role")
			return
		}
		c.Next()
	}
}

// Principal returns the caller set by JWTAuth, or the zero Principal.
func Principal(c *gin.Context) domain.Principal {
	v, _ := c.Get(principalKey)
	p, _ := v.(domain.Principal)
	return p
}
