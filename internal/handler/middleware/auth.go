package middleware

import (
	"net/http"
	"strings"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/auth"
	"github.com/cloudsquares/photoservice/internal/domain"
	"github.com/cloudsquares/photoservice/internal/dto"
)

const authContextKey = "authContext"

// AuthMiddleware verifies the bearer access token and stores the caller's
// AuthContext for the route handlers. Every protected route runs this
// before any other work.
func AuthMiddleware(verifier *auth.Verifier) ginext.HandlerFunc {
	return func(c *ginext.Context) {
		header := c.Request.Header.Get("Authorization")
		if header == "" {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Missing Authorization header"})
			c.Abort()
			return
		}

		parts := strings.Fields(header)
		if len(parts) == 0 {
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Missing Authorization header"})
			c.Abort()
			return
		}
		token := parts[len(parts)-1]

		authCtx, err := verifier.Verify(token)
		if err != nil {
			zlog.Logger.Warn().Err(err).Str("path", c.Request.URL.Path).Msg("token verification failed")
			c.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(authContextKey, authCtx)
		c.Next()
	}
}

// AuthFromContext returns the AuthContext stored by AuthMiddleware, or
// nil when the middleware did not run.
func AuthFromContext(c *ginext.Context) *domain.AuthContext {
	v, ok := c.Get(authContextKey)
	if !ok {
		return nil
	}
	authCtx, ok := v.(*domain.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}
