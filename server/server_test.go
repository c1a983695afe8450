package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"session-gate/auth"
	"session-gate/config"
	"session-gate/db"
	"session-gate/model"
)

const (
	testEmail       = "guillaume@holberton.io"
	testPassword    = "password"
	testNewPassword = "P@ssword@47"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newTestServer(t *testing.T, authType string) *Server {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })

	cfg := config.Default().Auth
	cfg.Type = authType
	cfg.SessionDuration = 3600

	store, err := auth.NewStore(auth.StoreOptions{
		Type:     authType,
		Duration: cfg.Duration(),
		Records:  db.NewSessionRecords(conn),
	})
	require.NoError(t, err)

	gw := auth.NewGateway(db.NewUserRepo(conn), store, auth.NewBcryptHasher(bcrypt.MinCost))
	return NewServer(gw, cfg, zap.NewNop())
}

type call struct {
	method string
	path   string
	form   url.Values
	cookie *http.Cookie
	header http.Header
}

func (s *Server) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body *strings.Reader
	if c.form != nil {
		body = strings.NewReader(c.form.Encode())
	} else {
		body = strings.NewReader("")
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for k, v := range c.header {
		req.Header[k] = v
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sessionCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func creds(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func TestSessionFlow(t *testing.T) {
	for _, authType := range []string{config.AuthSession, config.AuthSessionExpiry, config.AuthSessionDB} {
		t.Run(authType, func(t *testing.T) {
			s := newTestServer(t, authType)

			rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users", form: creds(testEmail, testPassword)})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, map[string]any{"email": testEmail, "message": "user created"}, decode(t, rec))

			rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/users", form: creds(testEmail, testPassword)})
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "email already registered", decode(t, rec)["error"])

			rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: creds(testEmail, testNewPassword)})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, sessionCookie(rec, config.DefaultSessionName))

			rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me"})
			assert.Equal(t, http.StatusUnauthorized, rec.Code)

			rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: creds(testEmail, testPassword)})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, testEmail, decode(t, rec)["email"])
			cookie := sessionCookie(rec, config.DefaultSessionName)
			require.NotNil(t, cookie)
			assert.True(t, cookie.HttpOnly)

			rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", cookie: cookie})
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, testEmail, decode(t, rec)["email"])

			rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/auth_session/logout", cookie: cookie})
			assert.Equal(t, http.StatusOK, rec.Code)

			rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/auth_session/logout", cookie: cookie})
			assert.Equal(t, http.StatusNotFound, rec.Code)

			rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", cookie: cookie})
			assert.Equal(t, http.StatusForbidden, rec.Code)
		})
	}
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t, config.AuthSessionDB)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users", form: creds(testEmail, testPassword)})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/reset_password", form: url.Values{"email": {"nobody@example.com"}}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/reset_password", form: url.Values{"email": {testEmail}}})
	require.Equal(t, http.StatusOK, rec.Code)
	resetToken, ok := decode(t, rec)["reset_token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, resetToken)

	update := url.Values{"email": {testEmail}, "reset_token": {resetToken}, "new_password": {testNewPassword}}
	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/reset_password", form: update})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"email": testEmail, "message": "Password updated"}, decode(t, rec))

	rec = s.do(t, call{method: http.MethodPut, path: "/api/v1/reset_password", form: update})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: creds(testEmail, testNewPassword)})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	s := newTestServer(t, config.AuthSession)

	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users", form: creds(testEmail, strings.Repeat("p", 73))})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password must be at most 72 bytes", decode(t, rec)["error"])

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: url.Values{"password": {"x"}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email missing", decode(t, rec)["error"])

	rec = s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: url.Values{"email": {testEmail}}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "password missing", decode(t, rec)["error"])
}

func TestBasicAuth(t *testing.T) {
	s := newTestServer(t, config.AuthBasic)
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/users", form: creds(testEmail, testPassword)})
	require.Equal(t, http.StatusOK, rec.Code)

	basic := func(user, pass string) http.Header {
		v := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		return http.Header{"Authorization": {"Basic " + v}}
	}

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", header: basic(testEmail, "nope")})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", header: http.Header{"Authorization": {"Bearer x"}}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", header: basic(testEmail, testPassword)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testEmail, decode(t, rec)["email"])
}

func TestNoAuthLeavesRoutesOpen(t *testing.T) {
	s := newTestServer(t, config.AuthNone)

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/unauthorized"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t, config.AuthSessionDB)

	rec := s.do(t, call{method: http.MethodGet, path: "/api/v1/status"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "OK"}, decode(t, rec))

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/forbidden"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/health"})
	assert.Equal(t, http.StatusOK, rec.Code)

	s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: creds(testEmail, testPassword)})
	rec = s.do(t, call{method: http.MethodGet, path: "/metrics"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `session_gate_logins_total{result="invalid_credentials"} 1`)
}

func TestExpiredSessionIsForbidden(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })

	now := time.Now()
	clock := func() time.Time { return now }
	store, err := auth.NewStore(auth.StoreOptions{
		Type:     config.AuthSessionDB,
		Duration: time.Minute,
		Records:  db.NewSessionRecords(conn),
	}, auth.WithClock(func() time.Time { return clock() }))
	require.NoError(t, err)

	cfg := config.Default().Auth
	gw := auth.NewGateway(db.NewUserRepo(conn), store, auth.NewBcryptHasher(bcrypt.MinCost))
	s := NewServer(gw, cfg, zap.NewNop())

	s.do(t, call{method: http.MethodPost, path: "/api/v1/users", form: creds(testEmail, testPassword)})
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: creds(testEmail, testPassword)})
	cookie := sessionCookie(rec, cfg.SessionName)
	require.NotNil(t, cookie)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", cookie: cookie})
	require.Equal(t, http.StatusOK, rec.Code)

	later := now.Add(2 * time.Minute)
	clock = func() time.Time { return later }

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", cookie: cookie})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// an expired session can still be logged out, which drops its row
	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/auth_session/logout", cookie: cookie})
	assert.Equal(t, http.StatusOK, rec.Code)
	var rows int64
	require.NoError(t, conn.Model(&model.UserSession{}).Count(&rows).Error)
	assert.Zero(t, rows)

	rec = s.do(t, call{method: http.MethodDelete, path: "/api/v1/auth_session/logout", cookie: cookie})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStorageFailureIsNotForbidden(t *testing.T) {
	conn, err := db.Open(":memory:")
	require.NoError(t, err)

	store, err := auth.NewStore(auth.StoreOptions{Type: config.AuthSession})
	require.NoError(t, err)
	cfg := config.Default().Auth
	cfg.Type = config.AuthSession
	gw := auth.NewGateway(db.NewUserRepo(conn), store, auth.NewBcryptHasher(bcrypt.MinCost))
	s := NewServer(gw, cfg, zap.NewNop())

	s.do(t, call{method: http.MethodPost, path: "/api/v1/users", form: creds(testEmail, testPassword)})
	rec := s.do(t, call{method: http.MethodPost, path: "/api/v1/auth_session/login", form: creds(testEmail, testPassword)})
	cookie := sessionCookie(rec, cfg.SessionName)
	require.NotNil(t, cookie)

	require.NoError(t, db.Close(conn))

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", cookie: cookie})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = s.do(t, call{method: http.MethodGet, path: "/api/v1/users/me", cookie: &http.Cookie{Name: cfg.SessionName, Value: "bogus"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
