package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuzuna54/fintech-app-demo/internal/gateway"
	"github.com/Zuzuna54/fintech-app-demo/internal/guard"
	"github.com/Zuzuna54/fintech-app-demo/internal/session"
	"github.com/Zuzuna54/fintech-app-demo/internal/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testJWT(t *testing.T) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// fakeBackend is an httptest stand-in for the back-office API.
func fakeBackend(t *testing.T, accessToken string, rejectLogin bool) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/token", func(w http.ResponseWriter, r *http.Request) {
		if rejectLogin {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"access_token":  accessToken,
			"refresh_token": "refresh-1",
			"token_type":    "bearer",
		})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u-1","email":"op@example.com","role":"SUPERUSER"}`))
	})
	mux.HandleFunc("PATCH /auth/me", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user":{"id":"u-1","email":"op@example.com","role":"SUPERUSER","first_name":"Ada"}}`))
	})
	mux.HandleFunc("POST /auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newAuthRouter(t *testing.T, backendURL string) (*gin.Engine, *session.Service, *guard.ReturnPath) {
	t.Helper()
	store := token.NewMemoryStore()
	insp := token.NewInspector(5 * time.Minute)
	gw, err := gateway.NewClient(gateway.Config{BaseURL: backendURL, Timeout: 5 * time.Second}, store, nil)
	require.NoError(t, err)

	svc := session.NewService(store, insp, gw, nil)
	rp := guard.NewReturnPath()
	h := NewAuthHandler(svc, rp, nil)

	r := gin.New()
	r.POST("/auth/login", h.Login)
	r.POST("/auth/logout", h.Logout)
	r.GET("/auth/session", h.Session)
	r.DELETE("/auth/session/error", h.ClearError)
	r.PATCH("/auth/profile", h.UpdateProfile)
	return r, svc, rp
}

func TestAuthHandler_LoginSuccess(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), false)
	r, svc, _ := newAuthRouter(t, backend.URL)

	w := httptest.NewRecorder()
	body := `{"email":"op@example.com","password":"secret"}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.Snapshot().IsAuthenticated)
	assert.Contains(t, w.Body.String(), `"redirect":"/accounts"`)
	assert.Contains(t, w.Body.String(), `"is_authenticated":true`)
}

func TestAuthHandler_LoginRedirectsToRememberedPath(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), false)
	r, _, rp := newAuthRouter(t, backend.URL)
	rp.Set("/payments/new")

	w := httptest.NewRecorder()
	body := `{"email":"op@example.com","password":"secret"}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/payments/new"`)
}

func TestAuthHandler_LoginRejected(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), true)
	r, svc, _ := newAuthRouter(t, backend.URL)

	w := httptest.NewRecorder()
	body := `{"email":"op@example.com","password":"wrong"}`
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body)))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect email or password")
	assert.False(t, svc.Snapshot().IsAuthenticated)
}

func TestAuthHandler_LoginMissingFields(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), false)
	r, _, _ := newAuthRouter(t, backend.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"op@example.com"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandler_SessionAndClearError(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), true)
	r, svc, _ := newAuthRouter(t, backend.URL)

	// Failed login leaves a message in the session state.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"op@example.com","password":"wrong"}`)))
	require.NotEmpty(t, svc.Snapshot().Error)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/session", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Incorrect email or password")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/auth/session/error", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.Snapshot().Error)
}

func TestAuthHandler_Logout(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), false)
	r, svc, _ := newAuthRouter(t, backend.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"op@example.com","password":"secret"}`)))
	require.True(t, svc.Snapshot().IsAuthenticated)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redirect":"/login"`)
	assert.False(t, svc.Snapshot().IsAuthenticated)
}

func TestAuthHandler_UpdateProfile(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), false)
	r, svc, _ := newAuthRouter(t, backend.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"op@example.com","password":"secret"}`)))
	require.True(t, svc.Snapshot().IsAuthenticated)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/auth/profile",
		strings.NewReader(`{"first_name":"Ada"}`)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"first_name":"Ada"`)
	assert.Equal(t, "Ada", svc.Snapshot().User.FirstName)
}

func TestAuthHandler_UpdateProfileEmptyPatch(t *testing.T) {
	backend := fakeBackend(t, testJWT(t), false)
	r, _, _ := newAuthRouter(t, backend.URL)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPatch, "/auth/profile", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
