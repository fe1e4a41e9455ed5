package http

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"task-tracker/internal/auth"
	"task-tracker/internal/service"
)

// Options tunes cookie and rate limiting behaviour.
type Options struct {
	SecureCookie bool
	CookieMaxAge time.Duration
	// AuthRate and AuthBurst bound sign-up and sign-in attempts per client IP.
	// A zero AuthRate disables the limiter.
	AuthRate  rate.Limit
	AuthBurst int
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users  service.UserService
	tasks  service.TaskService
	tokens auth.Validator
	lookup auth.UserLookup
	policy *auth.Policy
	logger *logrus.Logger
	opts   Options
}

func NewHandler(users service.UserService, tasks service.TaskService, tokens auth.Validator, lookup auth.UserLookup, logger *logrus.Logger, opts Options) *Handler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Handler{
		users:  users,
		tasks:  tasks,
		tokens: tokens,
		lookup: lookup,
		policy: auth.DefaultPolicy(),
		logger: logger,
		opts:   opts,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(
		requestLogger(h.logger),
		corsMiddleware(),
		auth.ResolveIdentity(h.tokens, h.lookup, h.logger),
		auth.Authorize(h.policy, h.writeError),
	)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Status: http.StatusNotFound, Message: "route not found"})
	})

	authGroup := router.Group("/auth")
	if h.opts.AuthRate > 0 {
		authGroup.Use(rateLimiter(h.opts.AuthRate, h.opts.AuthBurst))
	}
	{
		authGroup.POST("/signup", h.signUp)
		authGroup.POST("/signin", h.signIn)
	}
	router.POST("/auth/signout", h.signOut)

	users := router.Group("/users")
	{
		users.GET("", h.listAuthors)
		users.GET("/tasks", h.listCallerTasks)
		users.POST("/tasks", h.createTask)
		users.GET("/tasks/user/:userId", h.listUserTasks)
		users.POST("/tasks/comments/:taskId", h.addComment)
		users.GET("/tasks/comments/:taskId", h.listComments)
		users.PATCH("/tasks/edit/:taskId", h.updateTask)
		users.PATCH("/tasks/status/:taskId", h.updateStatus)
		users.POST("/tasks/:taskId/performers/:performerId", h.assignPerformer)
		users.DELETE("/tasks/:taskId", h.deleteTask)
	}

	router.GET("/tasks", h.listTasks)
	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
	})
	router.GET("/v3/api-docs", h.apiDocs(router))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Add("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

type RouteDoc struct {
	Method string   `json:"method"`
	Path   string   `json:"path"`
	Roles  []string `json:"roles"`
}

// apiDocs lists every registered route with the roles allowed to call it.
// An empty roles list means the route is open to anonymous callers.
func (h *Handler) apiDocs(router *gin.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		routes := router.Routes()
		docs := make([]RouteDoc, 0, len(routes))
		for _, route := range routes {
			path := ginToPattern(route.Path)
			doc := RouteDoc{Method: route.Method, Path: path, Roles: []string{}}
			if rule, ok := h.policy.Match(route.Method, path); ok {
				for _, role := range rule.Roles {
					doc.Roles = append(doc.Roles, string(role))
				}
			}
			docs = append(docs, doc)
		}
		sort.Slice(docs, func(i, j int) bool {
			if docs[i].Path == docs[j].Path {
				return docs[i].Method < docs[j].Method
			}
			return docs[i].Path < docs[j].Path
		})
		c.JSON(http.StatusOK, gin.H{"routes": docs})
	}
}

// ginToPattern rewrites :name segments as {name}.
func ginToPattern(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			segments[i] = "{" + segment[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}
