package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeEnvelope renders the server's standard response wrapper.
func writeEnvelope(w http.ResponseWriter, statusCode int, data any, detail string) {
	status := "success"
	if statusCode >= 400 {
		status = "error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":      status,
		"status_code": statusCode,
		"data":        data,
		"detail":      detail,
	})
}

// managerSession returns an AuthState already logged in as someone allowed to
// approve.
func managerSession() *AuthState {
	auth := NewAuthState()
	auth.SetSession("access-token", "refresh-token", UserInfo{
		ID: "u1", Username: "manager", Role: "USER", Position: "MANAGER", Status: "ACTIVE",
	})
	return auth
}

func employeeSession() *AuthState {
	auth := NewAuthState()
	auth.SetSession("access-token", "refresh-token", UserInfo{
		ID: "u2", Username: "worker", Role: "USER", Position: "EMPLOYEE", Status: "ACTIVE",
	})
	return auth
}

func TestClient_GetCaching(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		writeEnvelope(w, http.StatusOK, map[string]any{"versions": []any{}, "pagination": Pagination{CurrentPage: 1}}, "")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())

	t.Run("repeated reads share one round trip", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, err := c.ListVersions(context.Background(), "", 1, 20)
			require.NoError(t, err)
		}
		assert.EqualValues(t, 1, atomic.LoadInt64(&hits))
	})

	t.Run("concurrent reads share one round trip", func(t *testing.T) {
		c2 := NewClient(srv.URL, managerSession())
		before := atomic.LoadInt64(&hits)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := c2.ListVersions(context.Background(), "", 1, 20)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.EqualValues(t, before+1, atomic.LoadInt64(&hits))
	})

	t.Run("expired entries refetch", func(t *testing.T) {
		c3 := NewClient(srv.URL, managerSession(), WithCacheTTL(10*time.Millisecond))
		before := atomic.LoadInt64(&hits)

		_, err := c3.ListVersions(context.Background(), "", 1, 20)
		require.NoError(t, err)
		time.Sleep(30 * time.Millisecond)
		_, err = c3.ListVersions(context.Background(), "", 1, 20)
		require.NoError(t, err)

		assert.EqualValues(t, before+2, atomic.LoadInt64(&hits))
	})
}

func TestClient_MutationClearsCache(t *testing.T) {
	var listHits int64
	mux := http.NewServeMux()
	mux.HandleFunc("/api/versions", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			writeEnvelope(w, http.StatusCreated, Version{ID: "v-new", ApprovalStatus: "PENDING"}, "")
			return
		}
		atomic.AddInt64(&listHits, 1)
		writeEnvelope(w, http.StatusOK, map[string]any{"versions": []any{}, "pagination": Pagination{}}, "")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())

	_, err := c.ListVersions(context.Background(), "", 1, 20)
	require.NoError(t, err)
	_, err = c.ListVersions(context.Background(), "", 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, atomic.LoadInt64(&listHits))

	_, err = c.CreateVersion(context.Background(), "2026-Q3", "")
	require.NoError(t, err)

	// The post-mutation refetch must observe fresh server state.
	_, err = c.ListVersions(context.Background(), "", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&listHits))
}

func TestClient_ServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusConflict, nil, "version is already APPROVED")
	}))
	defer srv.Close()

	c := NewClient(srv.URL, managerSession())
	_, err := c.ApproveVersion(context.Background(), "v1")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "version is already APPROVED", apiErr.Detail)
}

func TestClient_UnauthorizedInvalidatesSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusUnauthorized, nil, "token expired")
	}))
	defer srv.Close()

	fired := false
	auth := managerSession()
	c := NewClient(srv.URL, auth, WithUnauthorizedHandler(func() { fired = true }))

	_, err := c.ListVersions(context.Background(), "", 1, 20)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, fired, "the unauthorized hook must fire")
	assert.False(t, auth.Authenticated())
	assert.Empty(t, auth.Token(), "an invalidated session attaches no token")
}

func TestClient_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/login", r.URL.Path)
		var req loginRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Password != "hunter22" {
			writeEnvelope(w, http.StatusUnauthorized, nil, "invalid email or password")
			return
		}
		writeEnvelope(w, http.StatusOK, tokenResponse{
			AccessToken:  "fresh-access",
			RefreshToken: "fresh-refresh",
			User:         UserInfo{ID: "u1", Username: "jpark", Role: "ADMIN", Position: "CEO"},
		}, "")
	}))
	defer srv.Close()

	auth := NewAuthState()
	c := NewClient(srv.URL, auth)

	user, err := c.Login(context.Background(), "jpark@corp.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, "jpark", user.Username)
	assert.True(t, user.CanApprove())
	assert.True(t, auth.Authenticated())
	assert.Equal(t, "fresh-access", auth.Token())
	assert.Equal(t, "fresh-refresh", auth.RefreshToken())
}
