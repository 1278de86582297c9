package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	sharedauth "docchat-backend/internal/shared/auth"
	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/users"
)

type fakeGoogle struct {
	server   *httptest.Server
	email    string
	verified bool
}

func newFakeGoogle(t *testing.T, email string, verified bool) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{email: email, verified: verified}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.Form.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "g-123",
			"email":          f.email,
			"verified_email": f.verified,
		})
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestService(t *testing.T, g *fakeGoogle, uiRedirect string) (*GoogleService, *users.Service, *sharedauth.Manager) {
	t.Helper()
	accounts := users.NewService(users.NewMemoryRepo())
	sessions, err := sharedauth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)
	s := NewGoogleService(GoogleConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/api/auth/google/callback",
		UIRedirect:   uiRedirect,
	}, accounts, sessions, middleware.CookieOptionsFor("dev", "token", time.Hour))
	if g != nil {
		s.oauthConfig.Endpoint = oauth2.Endpoint{
			AuthURL:   g.server.URL + "/auth",
			TokenURL:  g.server.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
		s.userInfoURL = g.server.URL + "/userinfo"
	}
	return s, accounts, sessions
}

func newRouter(s *GoogleService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	s.RegisterRoutes(r.Group("/api"))
	return r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
	return resp
}

func startState(t *testing.T, r *gin.Engine) string {
	t.Helper()
	resp := get(r, "/api/auth/google/start")
	require.Equal(t, http.StatusFound, resp.Code)
	loc, err := url.Parse(resp.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)
	return state
}

func TestGoogleConfigEnabled(t *testing.T) {
	assert.False(t, GoogleConfig{}.Enabled())
	assert.False(t, GoogleConfig{ClientID: "a", ClientSecret: "b"}.Enabled())
	assert.True(t, GoogleConfig{ClientID: "a", ClientSecret: "b", RedirectURL: "c"}.Enabled())
}

func TestStartRequiresConfiguration(t *testing.T) {
	s := NewGoogleService(GoogleConfig{}, nil, nil, middleware.CookieOptions{})
	resp := get(newRouter(s), "/api/auth/google/start")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	s, _, _ := newTestService(t, nil, "")
	r := newRouter(s)

	assert.Equal(t, http.StatusBadRequest, get(r, "/api/auth/google/callback").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/auth/google/callback?state=nope&code=good-code").Code)
}

func TestCallbackIssuesSessionCookie(t *testing.T) {
	g := newFakeGoogle(t, "Alice@Example.com", true)
	s, accounts, sessions := newTestService(t, g, "http://localhost:5173/chat")
	r := newRouter(s)

	state := startState(t, r)
	resp := get(r, "/api/auth/google/callback?state="+state+"&code=good-code")
	require.Equal(t, http.StatusFound, resp.Code, resp.Body.String())
	assert.Equal(t, "http://localhost:5173/chat", resp.Header().Get("Location"))

	cookie := resp.Header().Get("Set-Cookie")
	require.True(t, strings.HasPrefix(cookie, "token="), cookie)
	assert.Contains(t, cookie, "HttpOnly")
	token := strings.TrimPrefix(strings.SplitN(cookie, ";", 2)[0], "token=")

	claims, err := sessions.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", claims.Email)

	user, err := accounts.Repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID())

	// state is single use
	replay := get(r, "/api/auth/google/callback?state="+state+"&code=good-code")
	assert.Equal(t, http.StatusBadRequest, replay.Code)
}

func TestCallbackReusesExistingAccount(t *testing.T) {
	g := newFakeGoogle(t, "bob@example.com", true)
	s, accounts, _ := newTestService(t, g, "")
	existing, err := accounts.Signup(context.Background(), "bob@example.com", "hunter22")
	require.NoError(t, err)
	r := newRouter(s)

	resp := get(r, "/api/auth/google/callback?state="+startState(t, r)+"&code=good-code")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	user, err := accounts.Repo.GetByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, user.ID)
}

func TestCallbackRejectsUnverifiedEmail(t *testing.T) {
	g := newFakeGoogle(t, "eve@example.com", false)
	s, _, _ := newTestService(t, g, "")
	r := newRouter(s)

	resp := get(r, "/api/auth/google/callback?state="+startState(t, r)+"&code=good-code")
	assert.Equal(t, http.StatusBadGateway, resp.Code)
	assert.Empty(t, resp.Header().Get("Set-Cookie"))
}

func TestCallbackExchangeFailure(t *testing.T) {
	g := newFakeGoogle(t, "a@example.com", true)
	s, _, _ := newTestService(t, g, "")
	r := newRouter(s)

	resp := get(r, "/api/auth/google/callback?state="+startState(t, r)+"&code=bad-code")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestStateStoreExpiry(t *testing.T) {
	st := newStateStore()
	st.put("old", time.Now().Add(-time.Second))
	assert.False(t, st.consume("old"))

	st.put("fresh", time.Now().Add(time.Minute))
	assert.True(t, st.consume("fresh"))
	assert.False(t, st.consume("fresh"))
}
