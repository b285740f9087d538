package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitflow/internal/api"
	"habitflow/internal/service/auth"
	"habitflow/internal/service/habit"
	"habitflow/internal/service/insight"
	"habitflow/internal/service/subscription"
	"habitflow/internal/store"
)

func newTestRouter(t *testing.T, jwtSecret string) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	mem := store.NewMemoryStore()
	authService := auth.NewService(mem, nil, jwtSecret, log)
	habitService := habit.NewService(mem, nil, log)
	hub := subscription.NewHub(habitService, log)
	habitService.SetNotifier(hub)
	insightService := insight.NewService(nil, log)

	return NewRouter(
		api.NewAuthHandler(authService),
		api.NewHabitHandler(habitService, hub),
		api.NewInsightHandler(insightService, habitService),
		authService,
		mem,
		nil,
		Status{StoreBackend: mem.Backend(), AuthConfigured: jwtSecret != ""},
	)
}

func doJSON(t *testing.T, r *Router, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, r *Router) string {
	t.Helper()
	creds := gin.H{"email": "user@example.com", "password": "hunter22"}
	w := doJSON(t, r, http.MethodPost, "/register", "", creds)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/login", "", creds)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealthAndStatus(t *testing.T) {
	r := newTestRouter(t, "secret")

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/status", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var status Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "memory", status.StoreBackend)
	assert.True(t, status.AuthConfigured)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(t, "secret")

	w := doJSON(t, r, http.MethodGet, "/habits", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodGet, "/habits", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnconfiguredAuthReturns503(t *testing.T) {
	r := newTestRouter(t, "")

	w := doJSON(t, r, http.MethodGet, "/habits", "whatever", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, r, http.MethodPost, "/register", "",
		gin.H{"email": "a@b.c", "password": "pw123456"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHabitLifecycleOverHTTP(t *testing.T) {
	r := newTestRouter(t, "secret")
	token := registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/habits", token, gin.H{"name": "Read"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = doJSON(t, r, http.MethodPost, fmt.Sprintf("/habits/%s/track", created.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/habits", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listResp struct {
		Habits []struct {
			Name           string `json:"name"`
			Streak         int    `json:"streak"`
			CompletedToday bool   `json:"completedToday"`
		} `json:"habits"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listResp))
	require.Len(t, listResp.Habits, 1)
	assert.Equal(t, "Read", listResp.Habits[0].Name)
	assert.Equal(t, 1, listResp.Habits[0].Streak)
	assert.True(t, listResp.Habits[0].CompletedToday)

	w = doJSON(t, r, http.MethodGet, "/habits/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var progressResp struct {
		Progress []struct {
			Completed int `json:"completed"`
		} `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &progressResp))
	require.Len(t, progressResp.Progress, 7)
	assert.Equal(t, 1, progressResp.Progress[6].Completed)
}

func TestCreateHabitEmptyName(t *testing.T) {
	r := newTestRouter(t, "secret")
	token := registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/habits", token, gin.H{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrackUnknownHabit(t *testing.T) {
	r := newTestRouter(t, "secret")
	token := registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/habits/no-such-id/track", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestInsightWithoutGenerator(t *testing.T) {
	r := newTestRouter(t, "secret")
	token := registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/habits", token, gin.H{"name": "Read"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/insights", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = doJSON(t, r, http.MethodGet, "/insights/latest", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogoutWithoutDenylist(t *testing.T) {
	r := newTestRouter(t, "secret")
	token := registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Without a denylist backend the token stays valid until expiry.
	w = doJSON(t, r, http.MethodGet, "/habits", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	r := newTestRouter(t, "secret")
	registerAndLogin(t, r)

	w := doJSON(t, r, http.MethodPost, "/login", "",
		gin.H{"email": "user@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
