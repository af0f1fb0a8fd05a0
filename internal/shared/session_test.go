package shared

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestManager(t *testing.T) *SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionManager(client, "velvetcask_session", "test-secret", time.Hour, false)
}

func TestSessionRoundTrip(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("new session must carry an ID")
	}
	loginAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sess.SetIdentity("usr-1", "Nina Oak", "MANAGER", loginAt)
	sess.Set("theme", "dark")

	w := httptest.NewRecorder()
	if err := sm.Commit(ctx, w, r, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookies := w.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != "velvetcask_session" || cookie.Value != sess.ID {
		t.Fatalf("cookie = %+v", cookie)
	}
	if !cookie.HttpOnly || cookie.SameSite != http.SameSiteStrictMode {
		t.Fatalf("cookie attributes = %+v", cookie)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookie)
	loaded, err := sm.Load(ctx, r2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if loaded.UserID() != "usr-1" || loaded.DisplayName() != "Nina Oak" || loaded.Role() != "MANAGER" {
		t.Fatalf("reloaded identity = %q/%q/%q", loaded.UserID(), loaded.DisplayName(), loaded.Role())
	}
	if !loaded.LastActivity().Equal(loginAt) {
		t.Fatalf("last activity = %v, want %v", loaded.LastActivity(), loginAt)
	}
	if loaded.Get("theme") != "dark" {
		t.Fatalf("values lost: theme = %q", loaded.Get("theme"))
	}
}

func TestSessionTouchPersists(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetIdentity("usr-1", "Nina Oak", "MANAGER", time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	w := httptest.NewRecorder()
	if err := sm.Commit(ctx, w, r, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := w.Result().Cookies()[0]

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookie)
	loaded, err := sm.Load(ctx, r2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	touched := time.Date(2025, 6, 1, 12, 15, 0, 0, time.UTC)
	loaded.Touch(touched)
	w2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, w2, r2, loaded); err != nil {
		t.Fatalf("commit touch: %v", err)
	}

	r3 := httptest.NewRequest(http.MethodGet, "/", nil)
	r3.AddCookie(cookie)
	final, err := sm.Load(ctx, r3)
	if err != nil {
		t.Fatalf("final load: %v", err)
	}
	if !final.LastActivity().Equal(touched) {
		t.Fatalf("last activity = %v, want %v", final.LastActivity(), touched)
	}
}

func TestSessionDestroyClearsStoreAndCookie(t *testing.T) {
	sm := newTestManager(t)
	ctx := context.Background()

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(ctx, r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	sess.SetIdentity("usr-1", "Nina Oak", "MANAGER", time.Now())
	w := httptest.NewRecorder()
	if err := sm.Commit(ctx, w, r, sess); err != nil {
		t.Fatalf("commit: %v", err)
	}
	cookie := w.Result().Cookies()[0]

	r2 := httptest.NewRequest(http.MethodGet, "/", nil)
	r2.AddCookie(cookie)
	loaded, err := sm.Load(ctx, r2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	loaded.Destroy()
	w2 := httptest.NewRecorder()
	if err := sm.Commit(ctx, w2, r2, loaded); err != nil {
		t.Fatalf("commit destroy: %v", err)
	}
	cleared := w2.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge != -1 || cleared[0].Value != "" {
		t.Fatalf("destroy cookie = %+v", cleared)
	}

	r3 := httptest.NewRequest(http.MethodGet, "/", nil)
	r3.AddCookie(cookie)
	fresh, err := sm.Load(ctx, r3)
	if err != nil {
		t.Fatalf("load after destroy: %v", err)
	}
	if fresh.UserID() != "" {
		t.Fatalf("destroyed session still carries identity %q", fresh.UserID())
	}
}

func TestSessionUnknownCookieYieldsFreshSession(t *testing.T) {
	sm := newTestManager(t)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "velvetcask_session", Value: "no-such-session"})
	sess, err := sm.Load(context.Background(), r)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if sess.UserID() != "" {
		t.Fatal("unknown cookie must not resolve to an identity")
	}
	if sess.ID != "no-such-session" {
		t.Fatalf("session ID = %q", sess.ID)
	}
}
