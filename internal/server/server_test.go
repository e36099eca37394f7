package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenon007/tasktracker/internal/apperr"
	"github.com/xenon007/tasktracker/internal/auth"
	"github.com/xenon007/tasktracker/internal/config"
	"github.com/xenon007/tasktracker/internal/storage/sqlstore"
)

type testEnv struct {
	t      *testing.T
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.Default()
	cfg.Auth.SigningKey = "0123456789abcdef0123456789abcdef"
	cfg.Auth.BcryptCost = bcrypt.MinCost
	cfg.Database.DSN = filepath.Join(t.TempDir(), "api.db")

	store, err := sqlstore.Open(cfg.Database, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	identity := auth.NewService(store, auth.NewTokens(cfg.Auth), cfg.Auth, logger)
	return &testEnv{t: t, server: New(cfg.Server, store, identity, logger)}
}

func (e *testEnv) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.server.Engine().ServeHTTP(rec, req)

	var payload map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &payload)
	}
	return rec, payload
}

// signUp registers a user and returns its id and a token.
func (e *testEnv) signUp(name string) (int64, string) {
	e.t.Helper()
	email := name + "@example.com"
	rec, body := e.do(http.MethodPost, "/api/sign-up", "", jsonBody{"name": name, "email": email, "password": "password1"})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	id := int64(body["id"].(float64))

	rec, body = e.do(http.MethodPost, "/api/sign-in", "", jsonBody{"email": email, "password": "password1"})
	require.Equal(e.t, http.StatusOK, rec.Code, rec.Body.String())
	return id, body["token"].(string)
}

type jsonBody = map[string]any

func idOf(v any) string {
	return strconv.FormatInt(int64(v.(float64)), 10)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec, body := env.do(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRequestIDOnlyEchoesUUIDs(t *testing.T) {
	env := newTestEnv(t)
	inbound := "0f8fad5b-d9cb-469f-a165-70867728950e"

	cases := []struct {
		name   string
		header string
		echo   bool
	}{
		{"uuid", inbound, true},
		{"oversized", strings.Repeat("x", 4096), false},
		{"injected", "abc\" level=ERROR msg=forged", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
			req.Header.Set("X-Request-ID", tc.header)
			rec := httptest.NewRecorder()
			env.server.Engine().ServeHTTP(rec, req)

			got := rec.Header().Get("X-Request-ID")
			if tc.echo {
				assert.Equal(t, inbound, got)
				return
			}
			assert.NotEqual(t, tc.header, got)
			_, err := uuid.Parse(got)
			assert.NoError(t, err)
		})
	}
}

func TestInfrastructureErrorsAreHidden(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.signUp("ada")
	require.NoError(t, env.server.store.Close())

	rec, body := env.do(http.MethodGet, "/api/projects", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, string(apperr.KindInfrastructure), body["kind"])
	assert.Equal(t, apperr.ErrInfrastructure.Message, body["error"])
	assert.NotContains(t, rec.Body.String(), "closed")
	assert.NotContains(t, rec.Body.String(), "list projects")
}

func TestSignUpAndSignInErrors(t *testing.T) {
	env := newTestEnv(t)
	env.signUp("ada")

	rec, body := env.do(http.MethodPost, "/api/sign-up", "", jsonBody{"name": "Ada", "email": "ada@example.com", "password": "password1"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperr.KindDuplicateEmail), body["kind"])

	rec, _ = env.do(http.MethodPost, "/api/sign-up", "", jsonBody{"name": "Bad", "email": "not-an-email", "password": "password1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(http.MethodPost, "/api/sign-in", "", jsonBody{"email": "ada@example.com", "password": "password2"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, string(apperr.KindAuthFailed), body["kind"])

	rec, _ = env.do(http.MethodGet, "/api/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectTaskFlow(t *testing.T) {
	env := newTestEnv(t)
	_, ownerToken := env.signUp("owner")
	mateID, mateToken := env.signUp("mate")
	_, strangerToken := env.signUp("stranger")

	rec, body := env.do(http.MethodPost, "/api/projects", ownerToken, jsonBody{"title": "Launch"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	projectNum := body["project"].(map[string]any)["id"]
	projectID := idOf(projectNum)

	rec, body = env.do(http.MethodGet, "/api/projects", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["projects"], 1)

	rec, _ = env.do(http.MethodGet, "/api/projects/"+projectID, strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = env.do(http.MethodGet, "/api/projects/999", ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = env.do(http.MethodGet, "/api/projects/abc", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = env.do(http.MethodGet, "/api/users/search?email=mat", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"], 1)

	rec, _ = env.do(http.MethodPost, "/api/projects/"+projectID+"/users", ownerToken, jsonBody{"user_id": mateID})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, body = env.do(http.MethodPost, "/api/projects/"+projectID+"/users", ownerToken, jsonBody{"user_id": mateID})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(apperr.KindAlreadyMember), body["kind"])

	rec, body = env.do(http.MethodGet, "/api/projects/"+projectID+"/users", mateToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"], 2)

	rec, body = env.do(http.MethodPost, "/api/projects/"+projectID+"/statuses", ownerToken, jsonBody{"name": "Todo"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	statusID := body["status"].(map[string]any)["id"]

	rec, body = env.do(http.MethodGet, "/api/projects/"+projectID+"/statuses", mateToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["statuses"], 1)

	rec, body = env.do(http.MethodPost, "/api/tasks", mateToken, jsonBody{
		"title":      "Write release notes",
		"project_id": projectNum,
		"status_id":  statusID,
		"deadline":   "2024-06-01T12:00:00Z",
		"assignees":  []any{mateID},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	taskID := idOf(body["task_id"])

	rec, body = env.do(http.MethodGet, "/api/tasks/"+taskID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	task := body["task"].(map[string]any)
	assert.Equal(t, "Write release notes", task["title"])
	assert.Equal(t, true, task["status"].(map[string]any)["known"])
	assert.Len(t, task["assignees"], 1)

	rec, body = env.do(http.MethodGet, "/api/tasks/mine", mateToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["tasks"], 1)

	rec, _ = env.do(http.MethodPut, "/api/tasks/"+taskID, mateToken, jsonBody{"status_id": statusID, "assignees": []any{}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body = env.do(http.MethodGet, "/api/tasks/"+taskID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, body["task"].(map[string]any)["assignees"])

	rec, body = env.do(http.MethodPut, "/api/tasks/"+taskID, ownerToken, jsonBody{"status_id": 9999})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(apperr.KindInvalidReference), body["kind"])

	rec, body = env.do(http.MethodGet, "/api/projects/"+projectID+"/tasks", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, string(apperr.KindUnauthorized), body["kind"])

	rec, _ = env.do(http.MethodDelete, "/api/statuses/"+idOf(statusID), ownerToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = env.do(http.MethodDelete, "/api/statuses/"+idOf(statusID), ownerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, body = env.do(http.MethodGet, "/api/tasks/"+taskID, ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["task"].(map[string]any)["status"].(map[string]any)["known"])
}

func TestStatusForMapping(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindNotFound:         http.StatusNotFound,
		apperr.KindAuthFailed:       http.StatusUnauthorized,
		apperr.KindUnauthorized:     http.StatusForbidden,
		apperr.KindDuplicateEmail:   http.StatusConflict,
		apperr.KindAlreadyMember:    http.StatusConflict,
		apperr.KindInvalidAssignee:  http.StatusBadRequest,
		apperr.KindInvalidReference: http.StatusBadRequest,
		apperr.KindInvalid:          http.StatusBadRequest,
		apperr.KindInfrastructure:   http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, statusFor(kind), string(kind))
	}
}
