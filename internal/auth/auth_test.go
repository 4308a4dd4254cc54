package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newFakeGoogle(t *testing.T, userinfoStatus int) (*GoogleSignIn, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/oauth2/v2/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if userinfoStatus != http.StatusOK {
			http.Error(w, "boom", userinfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1098","email":"ada@example.com","name":"Ada"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	g := NewGoogleSignIn("client", "secret", "http://localhost/auth/callback")
	g.cfg.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	g.userinfoEndpoint = srv.URL + "/"
	return g, srv
}

func TestGoogleSignIn(t *testing.T) {
	g, _ := newFakeGoogle(t, http.StatusOK)

	u, err := g.SignIn(context.Background(), "good-code")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if u.ID != "1098" || u.Email != "ada@example.com" {
		t.Fatalf("unexpected user %+v", u)
	}

	if url := g.AuthCodeURL("xyz"); !strings.Contains(url, "state=xyz") || !strings.Contains(url, "client_id=client") {
		t.Errorf("unexpected auth url %s", url)
	}
}

func TestGoogleSignInFailures(t *testing.T) {
	tests := []struct {
		name   string
		code   string
		status int
	}{
		{"empty code", "", http.StatusOK},
		{"rejected code", "bad-code", http.StatusOK},
		{"userinfo error", "good-code", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, _ := newFakeGoogle(t, tt.status)
			if _, err := g.SignIn(context.Background(), tt.code); !errors.Is(err, ErrSignInFailed) {
				t.Fatalf("expected ErrSignInFailed, got %v", err)
			}
		})
	}
}

func TestDevSignIn(t *testing.T) {
	d := NewDevSignIn("dev-user")
	if got := d.AuthCodeURL("s1"); got != "/auth/callback?code=dev&state=s1" {
		t.Errorf("AuthCodeURL = %s", got)
	}
	u, err := d.SignIn(context.Background(), "dev")
	if err != nil || u.ID != "dev-user" {
		t.Fatalf("SignIn: %+v %v", u, err)
	}
	if _, err := d.SignIn(context.Background(), "other"); !errors.Is(err, ErrSignInFailed) {
		t.Fatalf("expected ErrSignInFailed, got %v", err)
	}
}

func TestSessionsLifecycle(t *testing.T) {
	s := NewSessions(time.Hour, 100, false)

	rec := httptest.NewRecorder()
	id := s.SetCookie(rec, User{ID: "u1"})
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookie || cookies[0].Value != id || !cookies[0].HttpOnly {
		t.Fatalf("unexpected cookies %+v", cookies)
	}

	var seen string
	handler := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = SessionProvider{}.CurrentUserID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "u1" {
		t.Fatalf("expected u1 from session, got %q", seen)
	}

	out := httptest.NewRecorder()
	s.ClearCookie(out, req)
	if _, ok := s.Get(id); ok {
		t.Fatal("session should be destroyed")
	}
	if c := out.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Fatalf("expected expiring cookie, got %+v", c)
	}

	seen = ""
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "" {
		t.Fatalf("destroyed session must not authenticate, got %q", seen)
	}
}

func TestStatesAreSingleUse(t *testing.T) {
	s := NewSessions(time.Hour, 10, false)
	state := s.NewState()
	if !s.ConsumeState(state) {
		t.Fatal("fresh state should be accepted")
	}
	if s.ConsumeState(state) {
		t.Fatal("state must not be accepted twice")
	}
	if s.ConsumeState("forged") || s.ConsumeState("") {
		t.Fatal("unknown state must be rejected")
	}
}

func TestUserFromContext(t *testing.T) {
	if _, ok := UserFromContext(context.Background()); ok {
		t.Fatal("empty context has no user")
	}
	if _, ok := UserFromContext(WithUser(context.Background(), User{})); ok {
		t.Fatal("user without id must not count as signed in")
	}
}
