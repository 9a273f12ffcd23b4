package rbac_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/portico-app/portico/internal/rbac"
	"github.com/portico-app/portico/internal/shared"
	_ "github.com/portico-app/portico/testing"
)

type fakeSource struct {
	perms map[int64][]string
	err   error
}

func (f *fakeSource) EffectivePermissionNames(ctx context.Context, userID int64) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.perms[userID], nil
}

func requestWithUser(t *testing.T, userID string) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sm := shared.NewSessionManager(client, "test_session", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if userID != "" {
		sess.SetUser(userID)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func okHandler() (http.Handler, *bool) {
	called := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}), &called
}

func TestRequireAnyGrantsAccess(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{12: {"users.view"}}}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny("users.view", "users.edit")(next).ServeHTTP(res, requestWithUser(t, "12"))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !*called {
		t.Fatalf("expected handler to run")
	}
}

func TestRequireAnyDeniesMissingPermission(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{12: {"reports.view"}}}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny("users.view", "users.edit")(next).ServeHTTP(res, requestWithUser(t, "12"))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if *called {
		t.Fatalf("handler must not run")
	}
}

func TestRequireAnyDeniesAnonymous(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny("users.view")(next).ServeHTTP(res, requestWithUser(t, ""))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if *called {
		t.Fatalf("handler must not run")
	}
}

func TestRequireAnyCaseSensitive(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{12: {"Users.View"}}}}
	next, _ := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny("users.view")(next).ServeHTTP(res, requestWithUser(t, "12"))

	if res.Code != http.StatusForbidden {
		t.Fatalf("permission names must match exactly, got %d", res.Code)
	}
}

func TestRequireAllNeedsEveryPermission(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{12: {"users.view"}}}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAll("users.view", "users.edit")(next).ServeHTTP(res, requestWithUser(t, "12"))

	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
	if *called {
		t.Fatalf("handler must not run")
	}

	mw = rbac.Middleware{Source: &fakeSource{perms: map[int64][]string{12: {"users.view", "users.edit"}}}}
	next, called = okHandler()
	res = httptest.NewRecorder()
	mw.RequireAll("users.view", "users.edit")(next).ServeHTTP(res, requestWithUser(t, "12"))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !*called {
		t.Fatalf("expected handler to run")
	}
}

func TestResolverFailureReturns500(t *testing.T) {
	mw := rbac.Middleware{Source: &fakeSource{err: errors.New("db down")}}
	next, called := okHandler()

	res := httptest.NewRecorder()
	mw.RequireAny("users.view")(next).ServeHTTP(res, requestWithUser(t, "12"))

	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if *called {
		t.Fatalf("handler must not run")
	}
}
