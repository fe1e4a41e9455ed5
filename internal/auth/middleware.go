package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"task-tracker/internal/domain"
	"task-tracker/internal/repository"
)

// CookieName is the cookie carrying the bearer token.
const CookieName = "token"

// Validator checks a bearer token and returns its claims.
type Validator interface {
	Validate(token string) (Claims, error)
}

// UserLookup resolves a token subject to a stored user.
type UserLookup interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// PublicRoute reports whether a path skips identity resolution entirely.
func PublicRoute(path string) bool {
	switch path {
	case "/auth/signin", "/auth/signup":
		return true
	}
	return strings.HasPrefix(path, "/swagger") || strings.HasPrefix(path, "/v3/api-docs")
}

// ResolveIdentity extracts and validates the bearer token and attaches the
// caller to the request. The cookie is tried first; when it fails validation
// the Authorization header is tried next. It never rejects: any failure leaves the request
// anonymous and the authorization policy decides what anonymous may do.
func ResolveIdentity(tokens Validator, users UserLookup, logger *logrus.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = logrus.New()
	}
	return func(c *gin.Context) {
		if PublicRoute(c.Request.URL.Path) {
			c.Next()
			return
		}

		candidates := extractTokens(c.Request)
		if len(candidates) == 0 {
			c.Next()
			return
		}

		var (
			claims Claims
			err    error
		)
		for _, raw := range candidates {
			if claims, err = tokens.Validate(raw); err == nil {
				break
			}
		}
		if err != nil {
			logger.WithFields(logrus.Fields{
				"path":   c.Request.URL.Path,
				"reason": tokenFailure(err),
			}).Debug("invalid token, continuing anonymously")
			c.Next()
			return
		}

		user, err := users.FindByUsername(c.Request.Context(), claims.Username)
		if err != nil {
			if !errors.Is(err, repository.ErrNotFound) {
				logger.WithError(err).Warn("resolve token subject")
			} else {
				logger.WithField("username", claims.Username).Debug("token subject no longer exists")
			}
			c.Next()
			return
		}

		setIdentity(c, domain.IdentityOf(user))
		c.Next()
	}
}

// extractTokens returns the cookie token followed by the Authorization
// bearer token, skipping whichever is absent.
func extractTokens(r *http.Request) []string {
	var out []string
	if cookie, err := r.Cookie(CookieName); err == nil {
		if v := strings.TrimSpace(cookie.Value); v != "" {
			out = append(out, v)
		}
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		if v := strings.TrimSpace(header[len(prefix):]); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func tokenFailure(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, ErrTokenUnsupported):
		return "unsupported"
	}
	return "unknown"
}
