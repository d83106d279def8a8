package mw

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"billing-admin-backend/internal/apperr"
	"billing-admin-backend/internal/auth"
)

const principalKey = "principal"

// TokenValidator decodes bearer tokens.
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// PrincipalResolver loads the principal named by access claims.
type PrincipalResolver interface {
	Resolve(ctx context.Context, claims *auth.Claims) (auth.Principal, error)
}

// Authenticate requires a valid access token and stores the resolved
// principal on the context.
func Authenticate(tokens TokenValidator, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			Abort(c, apperr.ErrInvalidToken)
			return
		}
		claims, err := tokens.Validate(token)
		if err != nil {
			Abort(c, asAppError(err))
			return
		}
		principal, err := resolver.Resolve(c.Request.Context(), claims)
		if err != nil {
			Abort(c, asAppError(err))
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

// RequireUser rejects machine principals.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserFrom(c) == nil {
			Abort(c, apperr.ErrForbidden)
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects everything but users with the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if u := UserFrom(c); u == nil || !u.IsAdmin() {
			Abort(c, apperr.ErrForbidden)
			return
		}
		c.Next()
	}
}

// PrincipalFrom returns the authenticated principal, or nil.
func PrincipalFrom(c *gin.Context) auth.Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(auth.Principal)
	return p
}

// UserFrom returns the authenticated user, or nil for machines and
// anonymous callers.
func UserFrom(c *gin.Context) *auth.UserPrincipal {
	u, _ := PrincipalFrom(c).(*auth.UserPrincipal)
	return u
}

// SetPrincipal stores p on the context. Tests use it to skip token handling.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func asAppError(err error) apperr.AppError {
	if appErr, ok := apperr.As(err); ok {
		return appErr
	}
	return apperr.Storage(err)
}
