package auth

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T, repo Repository) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	h := NewHandler(logger, NewService(repo, nil, nil))
	r := chi.NewRouter()
	h.MountRoutes(r)
	return r
}

func postJSON(t *testing.T, r http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleLogin(t *testing.T) {
	branch := int64(4)
	repo := newFakeRepo()
	repo.add(&Account{
		UserID:       "11111111-1111-1111-1111-111111111111",
		Name:         "Ana Reyes",
		Email:        "ana@example.com",
		PasswordHash: hashFor(t, "correct horse"),
		RoleID:       2,
		RoleName:     "Branch Manager",
		BranchID:     &branch,
		Status:       "Active",
	})
	router := newTestRouter(t, repo)

	t.Run("success", func(t *testing.T) {
		rec := postJSON(t, router, "/login", `{"email":"ana@example.com","password":"correct horse"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			Role     string `json:"role"`
			BranchID int64  `json:"branchId"`
			User     struct {
				Email string `json:"email"`
			} `json:"user"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, "Branch Manager", body.Role)
		require.Equal(t, branch, body.BranchID)
		require.Equal(t, "ana@example.com", body.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := postJSON(t, router, "/login", `{"email":"ana@example.com","password":"nope"}`)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		rec := postJSON(t, router, "/login", `{"email":"ana@example.com"}`)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandleLoginRateLimit(t *testing.T) {
	repo := newFakeRepo()
	router := newTestRouter(t, repo)

	var last *httptest.ResponseRecorder
	for i := 0; i <= loginRateLimit; i++ {
		last = postJSON(t, router, "/login", fmt.Sprintf(`{"email":"u%d@example.com","password":"x"}`, i))
	}
	require.Equal(t, http.StatusTooManyRequests, last.Code)

	var body struct {
		RetryAfter int `json:"retryAfter"`
	}
	require.NoError(t, json.Unmarshal(last.Body.Bytes(), &body))
	require.Equal(t, int(loginRateWindow.Seconds()), body.RetryAfter)
}

func TestHandleValidateSession(t *testing.T) {
	repo := newFakeRepo()
	repo.add(&Account{
		UserID: "11111111-1111-1111-1111-111111111111",
		Email:  "ana@example.com",
		Status: "Active",
	})
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/validate-session", `{"user_id":"11111111-1111-1111-1111-111111111111"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = postJSON(t, router, "/validate-session", `{"user_id":"22222222-2222-2222-2222-222222222222"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, router, "/validate-session", `{"user_id":"not-a-uuid"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleInviteFlow(t *testing.T) {
	repo := newFakeRepo()
	router := newTestRouter(t, repo)

	rec := postJSON(t, router, "/users/invite", `{"name":"New Hire","email":"new@example.com","role_id":3}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var invite struct {
		UserID     string `json:"user_id"`
		SetupToken string `json:"setup_token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &invite))
	require.NotEmpty(t, invite.SetupToken)

	req := httptest.NewRequest(http.MethodGet, "/users/invite/"+invite.SetupToken, nil)
	lookup := httptest.NewRecorder()
	router.ServeHTTP(lookup, req)
	require.Equal(t, http.StatusOK, lookup.Code)

	rec = postJSON(t, router, "/users/complete-setup",
		fmt.Sprintf(`{"token":%q,"password":"a strong password"}`, invite.SetupToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, repo.activated, invite.UserID)

	rec = postJSON(t, router, "/users/complete-setup", `{"token":"bogus","password":"a strong password"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
