package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trackforge/trackforge/internal/auth/blacklist"
	"github.com/trackforge/trackforge/internal/auth/domain"
	"github.com/trackforge/trackforge/internal/auth/service"
	"github.com/trackforge/trackforge/internal/auth/store/drivers/memory"
	"github.com/trackforge/trackforge/internal/auth/tokencache"
	"github.com/trackforge/trackforge/pkg/cryptox"
	"github.com/trackforge/trackforge/pkg/slogx"
	"github.com/trackforge/trackforge/pkg/tokenx"
)

func TestMain(m *testing.M) {
	dir, err := filepath.Abs("testdata")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	m.Run()
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	codec, err := tokenx.NewCodec([]byte("access-secret-for-tests"), []byte("refresh-secret-for-tests"))
	require.NoError(t, err)

	st := memory.NewStore()
	bl := blacklist.NewMemory()
	cache := tokencache.New(time.Minute)

	logger := slogx.New(slogx.Config{Service: "auth-test", Level: "error", Format: "text"})

	r := NewRouter("test", st, logger, false)
	r.Guard = service.NewGuard(codec, bl, cache)
	r.AuthService = &service.AuthService{
		Store:      st,
		Codec:      codec,
		Blacklist:  bl,
		Cache:      cache,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	r.UserService = &service.UserService{Store: st}
	r.ApplyRoutes()
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) { r.AddCookie(c) }
}

func signUp(t *testing.T, r *Router, email, password string) (tokenResp map[string]any, refreshCookie *http.Cookie) {
	t.Helper()
	rr := postJSON(t, r, "/v1/auth/signup", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body, findRefreshCookie(t, rr)
}

func findRefreshCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	return nil
}

func TestSignUpSetsScopedCookie(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	body, cookie := signUp(t, r, "alice@example.com", "battery-staple")
	require.NotNil(t, cookie)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, refreshCookiePath, cookie.Path)
	require.Equal(t, int(time.Hour/time.Second), cookie.MaxAge)

	require.Equal(t, "Bearer", body["token_type"])
	require.NotEmpty(t, body["access_token"])

	// First account gets ADMIN.
	user := body["user"].(map[string]any)
	require.Equal(t, string(domain.RoleAdmin), user["role"])
}

func TestSignInFailuresAreUniform(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	signUp(t, r, "alice@example.com", "battery-staple")

	wrong := postJSON(t, r, "/v1/auth/signin", map[string]string{"email": "alice@example.com", "password": "nope-nope"})
	unknown := postJSON(t, r, "/v1/auth/signin", map[string]string{"email": "ghost@example.com", "password": "battery-staple"})

	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestMeRequiresToken(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	body, _ := signUp(t, r, "alice@example.com", "battery-staple")
	access := body["access_token"].(string)

	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	req = httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var principal domain.Principal
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &principal))
	require.Equal(t, "alice@example.com", principal.Email)
}

func TestRefreshRotatesCookieAndRejectsReplay(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	_, cookie := signUp(t, r, "alice@example.com", "battery-staple")

	first := postJSON(t, r, "/v1/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	rotated := findRefreshCookie(t, first)
	require.NotNil(t, rotated)
	require.NotEqual(t, cookie.Value, rotated.Value)

	// Replaying the original cookie is reuse: 401 and the cookie is
	// actively cleared.
	replay := postJSON(t, r, "/v1/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusUnauthorized, replay.Code)

	cleared := findRefreshCookie(t, replay)
	require.NotNil(t, cleared)
	require.Empty(t, cleared.Value)
	require.Negative(t, cleared.MaxAge)

	// The cascade killed the rotated cookie too.
	after := postJSON(t, r, "/v1/auth/refresh", nil, withCookie(rotated))
	require.Equal(t, http.StatusUnauthorized, after.Code)
}

func TestLogoutKillsAccessToken(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)
	body, cookie := signUp(t, r, "alice@example.com", "battery-staple")
	access := body["access_token"].(string)

	rr := postJSON(t, r, "/v1/auth/logout", nil, withBearer(access))
	require.Equal(t, http.StatusNoContent, rr.Code)
	cleared := findRefreshCookie(t, rr)
	require.NotNil(t, cleared)
	require.Negative(t, cleared.MaxAge)

	// The blacklisted access token no longer authenticates.
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	out := httptest.NewRecorder()
	r.ServeHTTP(out, req)
	require.Equal(t, http.StatusUnauthorized, out.Code)

	// And the refresh chain is gone.
	refresh := postJSON(t, r, "/v1/auth/refresh", nil, withCookie(cookie))
	require.Equal(t, http.StatusUnauthorized, refresh.Code)
}

func TestUpdateRoleIsAdminOnly(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	adminBody, _ := signUp(t, r, "root@example.com", "correct-horse")
	adminAccess := adminBody["access_token"].(string)

	bobBody, _ := signUp(t, r, "bob@example.com", "battery-staple")
	bobAccess := bobBody["access_token"].(string)
	bobID := int64(bobBody["user"].(map[string]any)["id"].(float64))

	path := fmt.Sprintf("/v1/users/%d/role", bobID)

	put := func(token string) *httptest.ResponseRecorder {
		buf, err := json.Marshal(map[string]string{"role": "ENABLER"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPut, path, bytes.NewReader(buf))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	forbidden := put(bobAccess)
	require.Equal(t, http.StatusForbidden, forbidden.Code)

	ok := put(adminAccess)
	require.Equal(t, http.StatusOK, ok.Code, ok.Body.String())

	var updated domain.Principal
	require.NoError(t, json.Unmarshal(ok.Body.Bytes(), &updated))
	require.Equal(t, domain.RoleEnabler, updated.Role)

	// Unknown user id is a 404, not a 500.
	missing := httptest.NewRequest(http.MethodPut, "/v1/users/9999/role",
		bytes.NewReader([]byte(`{"role":"ADMIN"}`)))
	missing.Header.Set("Content-Type", "application/json")
	missing.Header.Set("Authorization", "Bearer "+adminAccess)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, missing)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	r := newTestRouter(t)

	for _, path := range []string{"/livez", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code, path)
	}
}
