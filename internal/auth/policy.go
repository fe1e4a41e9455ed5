package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"task-tracker/internal/domain"
)

// AnyMethod matches every HTTP method in a Rule.
const AnyMethod = "*"

// Rule grants access to a (method, pattern) pair. A nil Roles set means the
// route is unrestricted. Pattern segments written as {name} match any single
// non-empty path segment; a pattern of "*" matches every path.
type Rule struct {
	Method  string
	Pattern string
	Roles   []domain.Role
}

func (r Rule) restricted() bool {
	return r.Roles != nil
}

func (r Rule) allows(role domain.Role) bool {
	for _, allowed := range r.Roles {
		if allowed == role {
			return true
		}
	}
	return false
}

func (r Rule) matches(method, path string) bool {
	if r.Method != AnyMethod && !strings.EqualFold(r.Method, method) {
		return false
	}
	if r.Pattern == "*" {
		return true
	}
	want := splitPath(r.Pattern)
	got := splitPath(path)
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if isParam(want[i]) {
			if got[i] == "" {
				return false
			}
			continue
		}
		if want[i] != got[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func isParam(segment string) bool {
	return len(segment) > 2 && segment[0] == '{' && segment[len(segment)-1] == '}'
}

// Policy is an ordered rule table; the first matching rule wins.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	return &Policy{rules: append([]Rule(nil), rules...)}
}

var (
	bothRoles     = []domain.Role{domain.RoleAuthor, domain.RolePerformer}
	authorOnly    = []domain.Role{domain.RoleAuthor}
	performerOnly = []domain.Role{domain.RolePerformer}
)

// DefaultPolicy is the access table of the task tracker API. More specific
// patterns come before generic ones.
func DefaultPolicy() *Policy {
	return NewPolicy(
		Rule{http.MethodGet, "/users", bothRoles},
		Rule{http.MethodGet, "/users/tasks", bothRoles},
		Rule{http.MethodGet, "/users/tasks/user/{userId}", bothRoles},
		Rule{http.MethodPost, "/users/tasks/comments/{taskId}", bothRoles},
		Rule{http.MethodGet, "/users/tasks/comments/{taskId}", bothRoles},
		Rule{http.MethodGet, "/tasks", bothRoles},

		Rule{http.MethodPost, "/users/tasks", authorOnly},
		Rule{http.MethodPatch, "/users/tasks/edit/{taskId}", authorOnly},
		Rule{http.MethodPost, "/users/tasks/{taskId}/performers/{performerId}", authorOnly},
		Rule{http.MethodDelete, "/users/tasks/{taskId}", authorOnly},

		Rule{http.MethodPatch, "/users/tasks/status/{taskId}", performerOnly},

		Rule{AnyMethod, "*", nil},
	)
}

// Match returns the first rule matching the request line.
func (p *Policy) Match(method, path string) (Rule, bool) {
	for _, rule := range p.rules {
		if rule.matches(method, path) {
			return rule, true
		}
	}
	return Rule{}, false
}

// Evaluate decides whether the caller may reach method+path. A nil caller is
// anonymous. Paths matched by no rule are allowed.
func (p *Policy) Evaluate(method, path string, caller *domain.Identity) error {
	rule, ok := p.Match(method, path)
	if !ok || !rule.restricted() {
		return nil
	}
	if caller == nil {
		return domain.Errorf(domain.ErrUnauthorized, "Full authentication is required to access this resource")
	}
	if !rule.allows(caller.Role) {
		return domain.Errorf(domain.ErrForbidden, "Access Denied (Be sure you have the required role for this resource)")
	}
	return nil
}

// Authorize enforces the policy after ResolveIdentity has run. Rejections are
// handed to fail, which must write the response.
func Authorize(p *Policy, fail func(c *gin.Context, err error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var caller *domain.Identity
		if id, ok := CurrentIdentity(c); ok {
			caller = &id
		}
		if err := p.Evaluate(c.Request.Method, c.Request.URL.Path, caller); err != nil {
			fail(c, err)
			c.Abort()
			return
		}
		c.Next()
	}
}
