package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"indichess/internal/config"
	"indichess/internal/oauth"
	"indichess/internal/service"
)

const testRedirectURL = "http://localhost:3000/login/callback"

func newOAuthTestRouter(t *testing.T, tokens *service.TokenService, providerSrv *httptest.Server) (*gin.Engine, *mockUserRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	repo := newMockUserRepo()
	hasher := service.NewPasswordHasher()
	authSvc := service.NewAuthService(logger, repo, hasher, tokens, nil)
	oauthSvc := service.NewOAuthService(logger, repo, hasher, tokens)

	registry := oauth.NewRegistry(&config.Config{})
	if providerSrv != nil {
		registry.Register(&oauth.Provider{
			Name: "google",
			Config: &oauth2.Config{
				ClientID:     "client-id",
				ClientSecret: "client-secret",
				Endpoint: oauth2.Endpoint{
					AuthURL:  providerSrv.URL + "/auth",
					TokenURL: providerSrv.URL + "/token",
				},
				RedirectURL: "http://localhost:8080/oauth2/callback/google",
			},
			UserInfoURL: providerSrv.URL + "/userinfo",
		})
	}

	authH := NewAuthHandler(logger, authSvc)
	userH := NewUserHandler(logger, repo)
	oauthH := NewOAuthHandler(logger, registry, oauthSvc, testRedirectURL)
	return NewRouter(logger, tokens, authH, userH, oauthH), repo
}

func newFakeProvider(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil || r.FormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"provider-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer provider-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"sub-123","email":"a@x.com","name":"Alice Example"}`))
	})
	return httptest.NewServer(mux)
}

func TestOAuthHandler_StartRedirectsToProvider(t *testing.T) {
	srv := newFakeProvider(t)
	defer srv.Close()
	tokens := service.NewTokenService("secret", 24*time.Hour)
	router, _ := newOAuthTestRouter(t, tokens, srv)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorization/google", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, srv.URL+"/auth") {
		t.Fatalf("expected redirect to provider, got %q", location)
	}

	var stateCookie string
	for _, c := range rec.Result().Cookies() {
		if c.Name == "oauth_state" {
			stateCookie = c.Value
		}
	}
	if stateCookie == "" {
		t.Fatal("state cookie not set")
	}
	if !strings.Contains(location, "state="+stateCookie) {
		t.Fatalf("redirect state does not match cookie: %q", location)
	}
}

func TestOAuthHandler_StartUnknownProvider(t *testing.T) {
	tokens := service.NewTokenService("secret", 24*time.Hour)
	router, _ := newOAuthTestRouter(t, tokens, nil)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/authorization/github", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestOAuthHandler_CallbackIssuesLocalToken(t *testing.T) {
	srv := newFakeProvider(t)
	defer srv.Close()
	tokens := service.NewTokenService("secret", 24*time.Hour)
	router, repo := newOAuthTestRouter(t, tokens, srv)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/google?state=state-123&code=good-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d (%s)", rec.Code, rec.Body.String())
	}
	location, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	if !strings.HasPrefix(location.String(), testRedirectURL) {
		t.Fatalf("expected redirect to frontend, got %q", location)
	}

	token := location.Query().Get("token")
	if token == "" {
		t.Fatal("redirect missing token parameter")
	}
	subject, err := tokens.Validate(token)
	if err != nil {
		t.Fatalf("validate issued token: %v", err)
	}
	if subject != "a@x.com" {
		t.Fatalf("expected subject a@x.com, got %q", subject)
	}

	if _, err := repo.GetByEmail(req.Context(), "a@x.com"); err != nil {
		t.Fatalf("account not created on first external login: %v", err)
	}
}

func TestOAuthHandler_CallbackStateMismatch(t *testing.T) {
	srv := newFakeProvider(t)
	defer srv.Close()
	tokens := service.NewTokenService("secret", 24*time.Hour)
	router, _ := newOAuthTestRouter(t, tokens, srv)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/google?state=forged&code=good-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOAuthHandler_CallbackProviderError(t *testing.T) {
	srv := newFakeProvider(t)
	defer srv.Close()
	tokens := service.NewTokenService("secret", 24*time.Hour)
	router, _ := newOAuthTestRouter(t, tokens, srv)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/google?error=access_denied", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestOAuthHandler_CallbackBadCode(t *testing.T) {
	srv := newFakeProvider(t)
	defer srv.Close()
	tokens := service.NewTokenService("secret", 24*time.Hour)
	router, _ := newOAuthTestRouter(t, tokens, srv)

	req := httptest.NewRequest(http.MethodGet, "/oauth2/callback/google?state=state-123&code=bad-code", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "state-123"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
