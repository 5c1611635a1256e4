package guard

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/Zuzuna54/fintech-app-demo/internal/domain"
	"github.com/Zuzuna54/fintech-app-demo/internal/response"
	"github.com/Zuzuna54/fintech-app-demo/internal/session"
)

const (
	// LoginPath is the login view.
	LoginPath = "/login"
	// UnauthorizedPath is where role mismatches land.
	UnauthorizedPath = "/unauthorized"
	// DefaultLandingPath is where a fresh login lands when no return path
	// was remembered.
	DefaultLandingPath = "/accounts"
)

// ReturnPath is the volatile single-slot store for the
// "redirect-after-login" path. Set on every denied navigation, consumed
// exactly once.
type ReturnPath struct {
	mu   sync.Mutex
	path string
}

// NewReturnPath creates an empty slot.
func NewReturnPath() *ReturnPath {
	return &ReturnPath{}
}

// Set remembers a path. The login view itself is never remembered.
func (r *ReturnPath) Set(path string) {
	if path == "" || path == LoginPath {
		return
	}
	r.mu.Lock()
	r.path = path
	r.mu.Unlock()
}

// Consume returns the remembered path and clears the slot.
func (r *ReturnPath) Consume() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path := r.path
	r.path = ""
	return path, path != ""
}

// SessionSource is the narrow session view the guard needs.
type SessionSource interface {
	Snapshot() session.State
}

// Options parameterizes a guarded route.
type Options struct {
	RequireAuth  bool
	AllowedRoles []domain.Role
	RedirectTo   string // default LoginPath
}

// Middleware gates a route on session state. While the session is still
// loading it answers with a retryable placeholder instead of guessing at a
// redirect; an unauthenticated request to a protected route is remembered
// and sent to login; a role mismatch goes to the unauthorized view with
// the session left intact.
func Middleware(src SessionSource, rp *ReturnPath, opts Options) gin.HandlerFunc {
	redirectTo := opts.RedirectTo
	if redirectTo == "" {
		redirectTo = LoginPath
	}

	return func(c *gin.Context) {
		// Tolerate evaluation before the session service exists: behave
		// like the loading state rather than panicking.
		if src == nil {
			loading(c)
			return
		}

		snap := src.Snapshot()
		path := c.Request.URL.Path

		if snap.IsLoading {
			loading(c)
			return
		}

		if opts.RequireAuth && !snap.IsAuthenticated {
			if rp != nil {
				rp.Set(path)
			}
			c.Redirect(http.StatusFound, redirectTo)
			c.Abort()
			return
		}

		if len(opts.AllowedRoles) > 0 {
			if snap.User == nil || !snap.User.HasRole(opts.AllowedRoles) {
				c.Redirect(http.StatusFound, UnauthorizedPath)
				c.Abort()
				return
			}
		}

		if snap.IsAuthenticated && path == LoginPath {
			target := DefaultLandingPath
			if rp != nil {
				if remembered, ok := rp.Consume(); ok {
					target = remembered
				}
			}
			c.Redirect(http.StatusFound, target)
			c.Abort()
			return
		}

		c.Next()
	}
}

func loading(c *gin.Context) {
	c.Header("Retry-After", "1")
	response.ServiceUnavailable(c, "session is initializing")
	c.Abort()
}
