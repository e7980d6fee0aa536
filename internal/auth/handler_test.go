package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	_ "github.com/lumen-app/lumen/testing"
)

type testServer struct {
	router   http.Handler
	service  *Service
	repo     *stubUserRepo
	registry *RedisRegistry
	codec    *JWTCodec
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	service, repo, registry, codec := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	guard := NewGuard(logger, codec, registry)
	handler := NewHandler(logger, service, guard, 15*time.Minute, false)

	r := chi.NewRouter()
	r.Route("/user", handler.MountRoutes)

	return &testServer{router: r, service: service, repo: repo, registry: registry, codec: codec}
}

type request struct {
	method string
	path   string
	body   any
	token  string
	cookie string
}

func (ts *testServer) do(t *testing.T, req request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}

	httpReq := httptest.NewRequest(req.method, req.path, body)
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.cookie != "" {
		httpReq.AddCookie(&http.Cookie{Name: SessionCookieName, Value: req.cookie})
	}

	res := httptest.NewRecorder()
	ts.router.ServeHTTP(res, httpReq)

	envelope := map[string]any{}
	if res.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &envelope))
	}
	return res, envelope
}

// register + login through the API, returning the bearer token and the
// session cookie value.
func (ts *testServer) registerAndLogin(t *testing.T) (token, cookie string) {
	t.Helper()

	res, _ := ts.do(t, request{method: http.MethodPost, path: "/user/register", body: map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "longenough",
	}})
	require.Equal(t, http.StatusCreated, res.Code)

	res, envelope := ts.do(t, request{method: http.MethodPost, path: "/user/login", body: map[string]string{
		"email": "alice@example.com", "password": "longenough",
	}})
	require.Equal(t, http.StatusOK, res.Code)

	token, _ = envelope["token"].(string)
	require.NotEmpty(t, token)

	for _, c := range res.Result().Cookies() {
		if c.Name == SessionCookieName {
			cookie = c.Value
		}
	}
	require.NotEmpty(t, cookie)
	return token, cookie
}

func TestRegisterEndpoint(t *testing.T) {
	ts := newTestServer(t)

	res, envelope := ts.do(t, request{method: http.MethodPost, path: "/user/register", body: map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "longenough",
	}})
	require.Equal(t, http.StatusCreated, res.Code)
	require.Equal(t, true, envelope["success"])
	require.NotEmpty(t, envelope["token"])
}

func TestRegisterShortPassword(t *testing.T) {
	ts := newTestServer(t)

	res, envelope := ts.do(t, request{method: http.MethodPost, path: "/user/register", body: map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "short",
	}})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, false, envelope["success"])
	require.Equal(t, "Password must be at least 8 characters.", envelope["message"])
}

func TestRegisterInvalidEmail(t *testing.T) {
	ts := newTestServer(t)

	res, envelope := ts.do(t, request{method: http.MethodPost, path: "/user/register", body: map[string]string{
		"username": "alice", "email": "not-an-email", "password": "longenough",
	}})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "Please enter a valid email address.", envelope["message"])
}

func TestRegisterDuplicateEmailEndpoint(t *testing.T) {
	ts := newTestServer(t)

	payload := map[string]string{"username": "alice", "email": "alice@example.com", "password": "longenough"}
	res, _ := ts.do(t, request{method: http.MethodPost, path: "/user/register", body: payload})
	require.Equal(t, http.StatusCreated, res.Code)

	res, envelope := ts.do(t, request{method: http.MethodPost, path: "/user/register", body: payload})
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "User already exists.", envelope["message"])
}

func TestLoginSetsSessionCookie(t *testing.T) {
	ts := newTestServer(t)
	_, cookie := ts.registerAndLogin(t)
	require.NotEmpty(t, cookie)
}

func TestLoginWrongPasswordEndpoint(t *testing.T) {
	ts := newTestServer(t)
	ts.registerAndLogin(t)

	res, envelope := ts.do(t, request{method: http.MethodPost, path: "/user/login", body: map[string]string{
		"email": "alice@example.com", "password": "wrongpassword",
	}})
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, false, envelope["success"])
	require.Nil(t, envelope["token"], "no token on failed login")
}

func TestLoginAlreadyLoggedInEndpoint(t *testing.T) {
	ts := newTestServer(t)
	_, cookie := ts.registerAndLogin(t)

	res, envelope := ts.do(t, request{method: http.MethodPost, path: "/user/login", body: map[string]string{
		"email": "alice@example.com", "password": "longenough",
	}, cookie: cookie})
	require.Equal(t, http.StatusConflict, res.Code)
	require.Equal(t, "User already logged in elsewhere.", envelope["message"])
}

func TestGuardCredentialCombinations(t *testing.T) {
	ts := newTestServer(t)
	token, cookie := ts.registerAndLogin(t)

	cases := []struct {
		name   string
		token  string
		cookie string
		status int
	}{
		{"neither", "", "", http.StatusUnauthorized},
		{"token only", token, "", http.StatusUnauthorized},
		{"cookie only", "", cookie, http.StatusUnauthorized},
		{"both", token, cookie, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res, _ := ts.do(t, request{method: http.MethodGet, path: "/user/api/account", token: tc.token, cookie: tc.cookie})
			require.Equal(t, tc.status, res.Code)
		})
	}
}

func TestGuardRejectsBadToken(t *testing.T) {
	ts := newTestServer(t)
	_, cookie := ts.registerAndLogin(t)

	res, _ := ts.do(t, request{method: http.MethodGet, path: "/user/api/account", token: "garbage", cookie: cookie})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestGuardRejectsForeignSessionCookie(t *testing.T) {
	ts := newTestServer(t)
	token, _ := ts.registerAndLogin(t)

	res, _ := ts.do(t, request{method: http.MethodGet, path: "/user/api/account", token: token, cookie: "stolen-session-id"})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestAccountEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, cookie := ts.registerAndLogin(t)

	res, envelope := ts.do(t, request{method: http.MethodGet, path: "/user/api/account", token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, res.Code)

	user, ok := envelope["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice", user["username"])
	require.Equal(t, "alice@example.com", user["email"])
	require.NotContains(t, user, "password")
}

func TestUpdateEndpointPartial(t *testing.T) {
	ts := newTestServer(t)
	token, cookie := ts.registerAndLogin(t)

	res, envelope := ts.do(t, request{method: http.MethodPut, path: "/user/api/update", body: map[string]string{
		"username": "alice2",
	}, token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, res.Code)

	user, ok := envelope["user"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "alice2", user["username"])
	require.Equal(t, "alice@example.com", user["email"], "omitted email must be untouched")
}

func TestUpdateEndpointRejectsShortPassword(t *testing.T) {
	ts := newTestServer(t)
	token, cookie := ts.registerAndLogin(t)

	res, envelope := ts.do(t, request{method: http.MethodPut, path: "/user/api/update", body: map[string]string{
		"password": "short",
	}, token: token, cookie: cookie})
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Equal(t, "Password must be at least 8 characters long.", envelope["message"])
}

func TestDeleteEndpointRequiresCorrectPassword(t *testing.T) {
	ts := newTestServer(t)
	token, cookie := ts.registerAndLogin(t)

	res, envelope := ts.do(t, request{method: http.MethodDelete, path: "/user/api/delete", body: map[string]string{
		"password": "wrongpassword",
	}, token: token, cookie: cookie})
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Equal(t, "Incorrect password.", envelope["message"])

	// Account still there.
	res, _ = ts.do(t, request{method: http.MethodGet, path: "/user/api/account", token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, res.Code)

	res, _ = ts.do(t, request{method: http.MethodDelete, path: "/user/api/delete", body: map[string]string{
		"password": "longenough",
	}, token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, res.Code)

	// Account and session both gone.
	res, _ = ts.do(t, request{method: http.MethodGet, path: "/user/api/account", token: token, cookie: cookie})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestLogoutEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, cookie := ts.registerAndLogin(t)

	res, _ := ts.do(t, request{method: http.MethodPost, path: "/user/api/logout", token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, res.Code)

	var cleared bool
	for _, c := range res.Result().Cookies() {
		if c.Name == SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared, "logout must clear the session cookie")

	res, _ = ts.do(t, request{method: http.MethodGet, path: "/user/api/account", token: token, cookie: cookie})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}

func TestSessionValidateEndpoint(t *testing.T) {
	ts := newTestServer(t)
	token, cookie := ts.registerAndLogin(t)

	res, envelope := ts.do(t, request{method: http.MethodGet, path: "/user/session-validate", token: token, cookie: cookie})
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "Session is valid.", envelope["message"])

	res, _ = ts.do(t, request{method: http.MethodGet, path: "/user/session-validate", token: token})
	require.Equal(t, http.StatusUnauthorized, res.Code)
}
