package http

import (
	"net/http"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"task-tracker/internal/auth"
)

const requestIDHeader = "X-Request-ID"

const requestIDKey = "request.id"

// requestLogger tags each request with an id and logs its outcome. Server
// errors are logged at error level, client errors at info.
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set(requestIDHeader, id)

		start := time.Now()
		defer func() {
			if rec := recover(); rec != nil {
				logger.WithFields(logrus.Fields{
					"request_id": id,
					"panic":      rec,
				}).Errorf("panic recovered\n%s", debug.Stack())
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
					Status:  http.StatusInternalServerError,
					Message: internalErrorMessage,
				})
			}

			status := c.Writer.Status()
			entry := logger.WithFields(logrus.Fields{
				"request_id": id,
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"status":     status,
				"latency":    time.Since(start).String(),
				"client_ip":  c.ClientIP(),
			})
			if caller, ok := auth.CurrentIdentity(c); ok {
				entry = entry.WithFields(logrus.Fields{
					"username": caller.Username,
					"role":     caller.Role,
				})
			}
			switch {
			case status >= http.StatusInternalServerError:
				entry.Error("request completed")
			case status >= http.StatusBadRequest:
				entry.Info("request completed")
			default:
				entry.Debug("request completed")
			}
		}()

		c.Next()
	}
}

// visitorIdleTTL is how long a client IP stays tracked after its last request.
const visitorIdleTTL = 10 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiter keeps one token bucket per client IP. Entries idle for longer
// than ttl are swept during lookups, at most once per ttl.
type ipLimiter struct {
	rate  rate.Limit
	burst int
	ttl   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newIPLimiter(r rate.Limit, burst int, ttl time.Duration, now func() time.Time) *ipLimiter {
	if burst < 1 {
		burst = 1
	}
	if now == nil {
		now = time.Now
	}
	return &ipLimiter{
		rate:      r,
		burst:     burst,
		ttl:       ttl,
		now:       now,
		visitors:  make(map[string]*visitor),
		lastSweep: now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.ttl {
		for key, v := range l.visitors {
			if now.Sub(v.lastSeen) >= l.ttl {
				delete(l.visitors, key)
			}
		}
		l.lastSweep = now
	}

	v, ok := l.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rate, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

func (l *ipLimiter) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// rateLimiter rejects clients that exceed their per-IP token bucket.
func rateLimiter(r rate.Limit, burst int) gin.HandlerFunc {
	return newIPLimiter(r, burst, visitorIdleTTL, nil).middleware()
}

func (l *ipLimiter) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
				Status:  http.StatusTooManyRequests,
				Message: "Too many attempts, try again later",
			})
			return
		}
		c.Next()
	}
}
