package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"blurt-quest/internal/domain"
	"blurt-quest/internal/logging"
)

type stubAuth struct {
	sess domain.Session
	err  error
}

func (a *stubAuth) Login(_ context.Context, _, _ string) (domain.Session, error) {
	return a.sess, a.err
}

func signedToken(t *testing.T, username string, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": username,
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newTestGate(t *testing.T, auth Authenticator) (*Gate, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials.json")
	return NewGate(NewFileStore(path), auth, logging.Discard()), path
}

func TestLoginThenRestoreRoundTrip(t *testing.T) {
	token := signedToken(t, "alice", time.Now().Add(time.Hour))
	auth := &stubAuth{sess: domain.Session{Username: "alice", Token: token}}
	gate, path := newTestGate(t, auth)

	sess, err := gate.Login(context.Background(), "alice", "posting-key")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if sess.Username != "alice" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	// Simulate a fresh start: new gate over the same credential file.
	fresh := NewGate(NewFileStore(path), auth, logging.Discard())
	restored, ok := fresh.Restore()
	if !ok {
		t.Fatalf("expected restored session")
	}
	if restored.Username != "alice" {
		t.Fatalf("restored username = %q, want alice", restored.Username)
	}
}

func TestRestoreClearsExpiredToken(t *testing.T) {
	gate, path := newTestGate(t, &stubAuth{})
	expired := domain.Session{
		Username: "alice",
		Token:    signedToken(t, "alice", time.Now().Add(-time.Minute)),
	}
	if err := NewFileStore(path).Write(expired); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	if _, ok := gate.Restore(); ok {
		t.Fatalf("expected no session for expired token")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected credential file removed, stat err=%v", err)
	}
}

func TestRestoreTreatsMalformedTokenAsExpired(t *testing.T) {
	gate, path := newTestGate(t, &stubAuth{})
	if err := NewFileStore(path).Write(domain.Session{Username: "alice", Token: "not-a-jwt"}); err != nil {
		t.Fatalf("seed credentials: %v", err)
	}

	if _, ok := gate.Restore(); ok {
		t.Fatalf("expected no session for malformed token")
	}
}

func TestLoginFailureLeavesStateUnchanged(t *testing.T) {
	gate, path := newTestGate(t, &stubAuth{err: errors.New("invalid username or posting key")})

	if _, err := gate.Login(context.Background(), "alice", "bad-key"); err == nil {
		t.Fatalf("expected login error")
	}
	if _, ok := gate.Current(); ok {
		t.Fatalf("expected no session after failed login")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no credential file, stat err=%v", err)
	}
}

func TestUnauthorizedSignalForcesLogout(t *testing.T) {
	token := signedToken(t, "alice", time.Now().Add(time.Hour))
	auth := &stubAuth{sess: domain.Session{Username: "alice", Token: token}}
	gate, _ := newTestGate(t, auth)

	if _, err := gate.Login(context.Background(), "alice", "posting-key"); err != nil {
		t.Fatalf("login failed: %v", err)
	}

	updates, cancel := gate.Subscribe()
	defer cancel()

	gate.HandleUnauthorized()
	if _, ok := gate.Current(); ok {
		t.Fatalf("expected session cleared after unauthorized signal")
	}
	select {
	case <-updates:
	case <-time.After(time.Second):
		t.Fatalf("expected state-change notification")
	}
	if gate.Token() != "" {
		t.Fatalf("expected empty token after logout")
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	gate, _ := newTestGate(t, &stubAuth{})
	gate.Logout()
	gate.Logout()
	if _, ok := gate.Current(); ok {
		t.Fatalf("expected no session")
	}
}
