package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zuzuna54/fintech-app-demo/internal/domain"
	"github.com/Zuzuna54/fintech-app-demo/internal/gateway"
	"github.com/Zuzuna54/fintech-app-demo/internal/guard"
	"github.com/Zuzuna54/fintech-app-demo/internal/logger"
	"github.com/Zuzuna54/fintech-app-demo/internal/response"
	"github.com/Zuzuna54/fintech-app-demo/internal/session"
)

// LoginRequest is the login form payload.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the editable profile fields. Pointers
// distinguish "leave alone" from "set empty".
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Email     *string `json:"email"`
}

// SessionView is the session state as exposed over HTTP. The access token
// never leaves the process.
type SessionView struct {
	User            *domain.User `json:"user"`
	IsAuthenticated bool         `json:"is_authenticated"`
	IsLoading       bool         `json:"is_loading"`
	Error           string       `json:"error,omitempty"`
	LastLogin       *time.Time   `json:"last_login,omitempty"`
}

// AuthHandler serves the login, logout, session, and profile endpoints.
type AuthHandler struct {
	svc        *session.Service
	returnPath *guard.ReturnPath
	log        *logger.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(svc *session.Service, rp *guard.ReturnPath, log *logger.Logger) *AuthHandler {
	if log == nil {
		log = logger.Get()
	}
	return &AuthHandler{svc: svc, returnPath: rp, log: log}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "email and password are required")
		return
	}

	if err := h.svc.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		var apiErr *gateway.APIError
		switch {
		case gateway.IsAuthError(err):
			msg := "Invalid credentials"
			if errors.As(err, &apiErr) && apiErr.Message != "" {
				msg = apiErr.Message
			}
			response.Unauthorized(c, msg)
		case gateway.IsTransient(err):
			response.ServiceUnavailable(c, "Backend unavailable, try again")
		default:
			response.Error(c, http.StatusBadGateway, "LOGIN_FAILED", "Login failed", err.Error())
		}
		return
	}

	redirect := guard.DefaultLandingPath
	if h.returnPath != nil {
		if remembered, ok := h.returnPath.Consume(); ok {
			redirect = remembered
		}
	}

	response.Success(c, gin.H{
		"session":  viewOf(h.svc.Snapshot()),
		"redirect": redirect,
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context())
	response.Success(c, gin.H{"redirect": guard.LoginPath})
}

// LoginView handles GET /login. The route guard bounces an operator who
// is already signed in to their landing page before this runs, so the
// handler only ever renders the unauthenticated state, including any
// failure message from the last attempt.
func (h *AuthHandler) LoginView(c *gin.Context) {
	response.Success(c, viewOf(h.svc.Snapshot()))
}

// Session handles GET /auth/session.
func (h *AuthHandler) Session(c *gin.Context) {
	response.Success(c, viewOf(h.svc.Snapshot()))
}

// ClearError handles DELETE /auth/session/error.
func (h *AuthHandler) ClearError(c *gin.Context) {
	h.svc.ClearError()
	response.Success(c, viewOf(h.svc.Snapshot()))
}

// UpdateProfile handles PATCH /auth/profile.
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid profile payload")
		return
	}

	patch := map[string]any{}
	if req.FirstName != nil {
		patch["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		patch["last_name"] = *req.LastName
	}
	if req.Email != nil {
		patch["email"] = *req.Email
	}
	if len(patch) == 0 {
		response.BadRequest(c, "no fields to update")
		return
	}

	user, err := h.svc.UpdateUser(c.Request.Context(), patch)
	if err != nil {
		if gateway.IsAuthError(err) {
			response.Unauthorized(c, "Session expired")
			return
		}
		response.Error(c, http.StatusBadGateway, "UPDATE_FAILED", "Failed to update user", err.Error())
		return
	}

	response.Success(c, gin.H{"user": user})
}

func viewOf(s session.State) SessionView {
	view := SessionView{
		User:            s.User,
		IsAuthenticated: s.IsAuthenticated,
		IsLoading:       s.IsLoading,
		Error:           s.Error,
	}
	if !s.LastLogin.IsZero() {
		t := s.LastLogin
		view.LastLogin = &t
	}
	return view
}
