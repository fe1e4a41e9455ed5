package auth

import (
	"context"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/domain"
)

type identityKey struct{}

// ginIdentityKey is the gin key store entry mirroring the request context.
const ginIdentityKey = "auth.identity"

// WithIdentity attaches the resolved caller to ctx.
func WithIdentity(ctx context.Context, id domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller resolved for this request, if any.
func IdentityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(domain.Identity)
	return id, ok
}

// CurrentIdentity reads the identity established by the middleware.
func CurrentIdentity(c *gin.Context) (domain.Identity, bool) {
	if v, ok := c.Get(ginIdentityKey); ok {
		if id, ok := v.(domain.Identity); ok {
			return id, true
		}
	}
	return IdentityFromContext(c.Request.Context())
}

func setIdentity(c *gin.Context, id domain.Identity) {
	c.Set(ginIdentityKey, id)
	c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), id))
}
