package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/portico-app/portico/internal/shared"
	_ "github.com/portico-app/portico/testing"
)

func sessionForCSRF(t *testing.T) *shared.Session {
	t.Helper()
	sm := newManager(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := sm.Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return sess
}

func TestEnsureTokenStable(t *testing.T) {
	cm := shared.NewCSRFManager("csrfsecret")
	sess := sessionForCSRF(t)
	ctx := context.Background()

	first, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if first == "" {
		t.Fatalf("expected non-empty token")
	}
	second, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first != second {
		t.Fatalf("token must be stable within a session")
	}
}

func TestVerifyToken(t *testing.T) {
	cm := shared.NewCSRFManager("csrfsecret")
	sess := sessionForCSRF(t)
	ctx := context.Background()

	token, err := cm.EnsureToken(ctx, sess)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := cm.VerifyToken(ctx, sess, token); err != nil {
		t.Fatalf("valid token rejected: %v", err)
	}
	if err := cm.VerifyToken(ctx, sess, "tampered"); err != shared.ErrCSRFTokenMismatch {
		t.Fatalf("expected mismatch error, got %v", err)
	}
	if err := cm.VerifyToken(ctx, sess, ""); err != shared.ErrCSRFTokenMissing {
		t.Fatalf("expected missing error, got %v", err)
	}
	if err := cm.VerifyToken(ctx, nil, token); err != shared.ErrCSRFTokenMissing {
		t.Fatalf("expected missing error for nil session, got %v", err)
	}
}
