package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"

	"libdesk/internal/libapi"
	"libdesk/internal/platform/apierr"
)

type fakeBackend struct {
	res   libapi.LoginResult
	err   error
	calls int
}

func (f *fakeBackend) Login(_ context.Context, email, _ string) (libapi.LoginResult, error) {
	f.calls++
	r := f.res
	if r.Email == "" {
		r.Email = email
	}
	return r, f.err
}

var testSecret = []byte("test-secret-test-secret-test-secret")

func TestLoginIssuesVerifiableToken(t *testing.T) {
	backend := &fakeBackend{res: libapi.LoginResult{OK: true, Name: "Ann", Role: "Librarian", MemberID: 7}}
	svc := NewService(backend, NewMemoryStore(), testSecret, time.Hour)

	res, err := svc.Login(context.Background(), "ann@lib.test", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Token == "" || res.Session.ID == "" {
		t.Fatalf("missing token or session id: %+v", res)
	}

	sess, err := svc.Verify(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	want := res.Session
	if sess.ID != want.ID || sess.Email != "ann@lib.test" || sess.Name != "Ann" || sess.Role != "Librarian" || sess.MemberID != 7 || !sess.ExpiresAt.Equal(want.ExpiresAt) {
		t.Fatalf("verified session differs:\n got %+v\nwant %+v", sess, want)
	}
}

func TestLoginRejections(t *testing.T) {
	tests := []struct {
		name     string
		backend  *fakeBackend
		email    string
		password string
		want     apierr.Code
		calls    int
	}{
		{"empty password", &fakeBackend{}, "a@b.c", "", apierr.CodeInvalidArgument, 0},
		{"bad email", &fakeBackend{}, "not-an-email", "pw", apierr.CodeInvalidArgument, 0},
		{"display name address", &fakeBackend{}, "Ann <ann@lib.test>", "pw", apierr.CodeInvalidArgument, 0},
		{"wrong credentials", &fakeBackend{res: libapi.LoginResult{OK: false}}, "a@b.c", "pw", apierr.CodeUnauthorized, 1},
		{"backend down", &fakeBackend{err: errors.New("dial tcp: refused")}, "a@b.c", "pw", apierr.CodeUpstreamUnavailable, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.backend, NewMemoryStore(), testSecret, time.Hour)
			_, err := svc.Login(context.Background(), tt.email, tt.password)
			if !apierr.Is(err, tt.want) {
				t.Fatalf("want %s, got %v", tt.want, err)
			}
			if tt.backend.calls != tt.calls {
				t.Fatalf("want %d backend calls, got %d", tt.calls, tt.backend.calls)
			}
		})
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	svc := NewService(&fakeBackend{res: libapi.LoginResult{OK: true}}, NewMemoryStore(), testSecret, time.Minute)
	res, err := svc.Login(context.Background(), "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	other := NewService(&fakeBackend{}, NewMemoryStore(), []byte("another-secret"), time.Minute)
	if _, err := other.Verify(context.Background(), res.Token); !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("foreign secret: want unauthorized, got %v", err)
	}

	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := svc.Verify(context.Background(), res.Token); !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("expired: want unauthorized, got %v", err)
	}
}

func TestLogoutRevokesAndNotifies(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisSessionStore(mr.Addr(), "")
	t.Cleanup(func() { store.Close() })

	svc := NewService(&fakeBackend{res: libapi.LoginResult{OK: true}}, store, testSecret, time.Hour)
	var dropped []string
	svc.OnLogout(func(id string) { dropped = append(dropped, id) })

	ctx := context.Background()
	res, err := svc.Login(ctx, "a@b.c", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if err := svc.Logout(ctx, res.Session); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if len(dropped) != 1 || dropped[0] != res.Session.ID {
		t.Fatalf("logout hook not called: %v", dropped)
	}
	if _, err := svc.Verify(ctx, res.Token); !apierr.Is(err, apierr.CodeUnauthorized) {
		t.Fatalf("revoked token: want unauthorized, got %v", err)
	}

	key := revokedKeyPrefix + res.Session.ID
	if !mr.Exists(key) {
		t.Fatalf("revocation key %q missing", key)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if mr.Exists(key) {
		t.Fatal("revocation should expire with the token")
	}
}

func TestMemoryStoreExpires(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	ctx := context.Background()

	_ = s.Revoke(ctx, "a", now.Add(time.Minute))
	_ = s.Revoke(ctx, "past", now.Add(-time.Minute))
	if ok, _ := s.IsRevoked(ctx, "a"); !ok {
		t.Fatal("a should be revoked")
	}
	if ok, _ := s.IsRevoked(ctx, "past"); ok {
		t.Fatal("already expired session needs no revocation")
	}
	now = now.Add(2 * time.Minute)
	if ok, _ := s.IsRevoked(ctx, "a"); ok {
		t.Fatal("revocation should lapse after expiry")
	}
}

func newRouter(svc *Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterPublicRoutes(r, svc)
	protected := r.Group("/", RequireAuth(svc))
	RegisterRoutes(protected, svc)
	return r
}

func TestHTTPLoginMeLogout(t *testing.T) {
	svc := NewService(&fakeBackend{res: libapi.LoginResult{OK: true, Name: "Ann"}}, NewMemoryStore(), testSecret, time.Hour)
	r := newRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"ann@lib.test","password":"pw"}`)))
	if w.Code != http.StatusOK {
		t.Fatalf("login: %d %s", w.Code, w.Body)
	}
	var login LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatal(err)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("me without token: want 401, got %d", w.Code)
	}

	authed := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+login.Token)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w = authed(http.MethodGet, "/me")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"name":"Ann"`) {
		t.Fatalf("me: %d %s", w.Code, w.Body)
	}
	if w = authed(http.MethodPost, "/logout"); w.Code != http.StatusNoContent {
		t.Fatalf("logout: %d %s", w.Code, w.Body)
	}
	w = authed(http.MethodGet, "/me")
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "UNAUTHORIZED") {
		t.Fatalf("me after logout: %d %s", w.Code, w.Body)
	}
}

func TestHTTPLoginBadBody(t *testing.T) {
	svc := NewService(&fakeBackend{}, NewMemoryStore(), testSecret, time.Hour)
	w := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":""}`)))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}
