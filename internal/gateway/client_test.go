package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuzuna54/fintech-app-demo/internal/token"
)

func newTestClient(t *testing.T, backend http.HandlerFunc) (*Client, *token.MemoryStore, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	store := token.NewMemoryStore()
	client, err := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, store, nil)
	require.NoError(t, err)
	return client, store, srv
}

func TestClient_AttachesBearerPerRequest(t *testing.T) {
	var gotAuth string
	client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id":"u-1","email":"op@example.com","role":"SUPERUSER"}`))
	})
	require.NoError(t, store.Save(context.Background(), "access-1", "refresh-1"))

	_, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-1", gotAuth)

	// A later save changes the header on the next call; nothing is cached.
	require.NoError(t, store.Save(context.Background(), "access-2", "refresh-2"))
	_, err = client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer access-2", gotAuth)
}

func TestClient_LoginCallCarriesNoBearer(t *testing.T) {
	var gotAuth string
	client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"access_token":"a","refresh_token":"r","token_type":"bearer"}`))
	})
	require.NoError(t, store.Save(context.Background(), "stale-access", "stale-refresh"))

	_, err := client.Token(context.Background(), "op@example.com", "secret")
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_UnauthorizedFiresTeardownHook(t *testing.T) {
	client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Token has expired"}`))
	})
	require.NoError(t, store.Save(context.Background(), "access-1", "refresh-1"))

	var hookMethod, hookPath string
	client.OnAuthFailure = func(method, path string) {
		hookMethod, hookPath = method, path
	}

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, http.MethodGet, hookMethod)
	assert.Equal(t, "/auth/me", hookPath)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Token has expired", apiErr.Message)
	assert.False(t, apiErr.Timestamp.IsZero())
}

func TestClient_RefreshRejectionSkipsTeardownHook(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Invalid refresh token"}`))
	})

	fired := false
	client.OnAuthFailure = func(method, path string) { fired = true }

	_, err := client.RefreshToken(context.Background(), "bad-refresh")
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	// Refresh handles its own rejection; no global teardown.
	assert.False(t, fired)
}

func TestClient_ErrorMessageExtraction(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"detail field", `{"detail":"Insufficient funds"}`, "Insufficient funds"},
		{"envelope error", `{"error":{"message":"Account frozen"}}`, "Account frozen"},
		{"bare message", `{"message":"Try later"}`, "Try later"},
		{"raw text", `upstream exploded`, "upstream exploded"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tc.body))
			})
			require.NoError(t, store.Save(context.Background(), "a", "r"))

			err := client.Logout(context.Background())
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.want, apiErr.Message)
			assert.Equal(t, http.StatusBadRequest, apiErr.Status)
		})
	}
}

func TestClient_MalformedUserIsValidationError(t *testing.T) {
	client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"u-1","role":"JANITOR"}`))
	})
	require.NoError(t, store.Save(context.Background(), "a", "r"))

	_, err := client.Me(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, KindValidation, apiErr.Kind)
	// A bad shape is not an auth failure.
	assert.False(t, IsUnauthorized(err))
}

func TestClient_NetworkFailureIsTransient(t *testing.T) {
	store := token.NewMemoryStore()
	client, err := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: 200 * time.Millisecond}, store, nil)
	require.NoError(t, err)

	_, err = client.Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
	assert.False(t, IsUnauthorized(err))
}

func TestClient_AccountsMergesEnvelope(t *testing.T) {
	client, store, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"internal_accounts": {"total": 1, "accounts": [{"uuid":"i-1","account_type":"funding"}]},
			"external_accounts": {"total": 2, "accounts": [{"uuid":"e-1","account_type":"checking"},{"uuid":"e-2","account_type":"savings"}]}
		}`))
	})
	require.NoError(t, store.Save(context.Background(), "a", "r"))

	accounts, err := client.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	assert.Equal(t, "i-1", accounts[0].UUID)
	assert.Equal(t, "e-2", accounts[2].UUID)
}

func TestClient_TransportUnauthorizedFiresTeardownHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Token has been revoked"}`))
	}))
	t.Cleanup(srv.Close)

	store := token.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "revoked-access", "revoked-refresh"))
	client, err := NewClient(Config{BaseURL: srv.URL}, store, nil)
	require.NoError(t, err)

	var hookMethod, hookPath string
	client.OnAuthFailure = func(method, path string) {
		hookMethod, hookPath = method, path
		// The wired hook tears the session down, which clears the store.
		require.NoError(t, store.Clear(context.Background()))
	}

	httpClient := &http.Client{Transport: client.Transport()}
	resp, err := httpClient.Get(srv.URL + "/accounts")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.MethodGet, hookMethod)
	assert.Equal(t, "/accounts", hookPath)
	_, err = store.Access(context.Background())
	assert.ErrorIs(t, err, token.ErrNotFound)
}

func TestClient_TransportForbiddenFiresTeardownHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	store := token.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "a", "r"))
	client, err := NewClient(Config{BaseURL: srv.URL}, store, nil)
	require.NoError(t, err)

	fired := false
	client.OnAuthFailure = func(method, path string) { fired = true }

	httpClient := &http.Client{Transport: client.Transport()}
	resp, err := httpClient.Get(srv.URL + "/organizations")
	require.NoError(t, err)
	resp.Body.Close()

	assert.True(t, fired)
}

func TestClient_TransportAttachesBearer(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{}`))
	}))
	t.Cleanup(srv.Close)

	store := token.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), "access-1", "refresh-1"))
	client, err := NewClient(Config{BaseURL: srv.URL}, store, nil)
	require.NoError(t, err)

	httpClient := &http.Client{Transport: client.Transport()}
	resp, err := httpClient.Get(srv.URL + "/accounts")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "Bearer access-1", gotAuth)
}
