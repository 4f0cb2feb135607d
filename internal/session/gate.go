package session

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"blurt-quest/internal/domain"
)

// Authenticator exchanges credentials for a signed session token.
type Authenticator interface {
	Login(ctx context.Context, username, postingKey string) (domain.Session, error)
}

// Gate owns login state. It is the sole mutator of the persisted credential
// pair: sessions are created by Login or Restore and destroyed by Logout,
// client-side expiry, or an authorization-denied signal from any data fetch.
type Gate struct {
	store CredentialStore
	auth  Authenticator
	log   *logrus.Entry
	now   func() time.Time

	mu          sync.RWMutex
	current     *domain.Session
	subscribers map[chan struct{}]struct{}
}

func NewGate(store CredentialStore, auth Authenticator, log *logrus.Entry) *Gate {
	return &Gate{
		store:       store,
		auth:        auth,
		log:         log,
		now:         time.Now,
		subscribers: make(map[chan struct{}]struct{}),
	}
}

// Current returns the active session, if any.
func (g *Gate) Current() (domain.Session, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return domain.Session{}, false
	}
	return *g.current, true
}

// Token implements the bearer-token source for authorized calls. It returns
// an empty string when no session is active; such calls go out without a
// credential and are expected to be rejected by the backend.
func (g *Gate) Token() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.current == nil {
		return ""
	}
	return g.current.Token
}

// Restore establishes login state from the persisted credential pair without
// contacting the network. An expired or undecodable token clears the pair.
func (g *Gate) Restore() (domain.Session, bool) {
	sess, ok, err := g.store.Read()
	if err != nil {
		g.log.WithError(err).Warn("failed to read stored credentials")
		return domain.Session{}, false
	}
	if !ok {
		return domain.Session{}, false
	}
	if !tokenValid(sess.Token, g.now()) {
		if err := g.store.Clear(); err != nil {
			g.log.WithError(err).Warn("failed to clear expired credentials")
		}
		return domain.Session{}, false
	}

	g.setSession(&sess)
	return sess, true
}

// Login authenticates against the backend and persists the returned session.
// On failure no state changes; the error carries the rejection reason.
func (g *Gate) Login(ctx context.Context, username, postingKey string) (domain.Session, error) {
	sess, err := g.auth.Login(ctx, username, postingKey)
	if err != nil {
		return domain.Session{}, err
	}
	if err := g.store.Write(sess); err != nil {
		g.log.WithError(err).Warn("failed to persist credentials")
	}
	g.setSession(&sess)
	return sess, nil
}

// Logout clears the credential pair and flips to Unauthenticated. It never fails.
func (g *Gate) Logout() {
	if err := g.store.Clear(); err != nil {
		g.log.WithError(err).Warn("failed to clear credentials")
	}
	g.setSession(nil)
}

// HandleUnauthorized reacts to an authorization-denied signal from any
// authorized call: same effect as Logout. This is how server-side token
// expiry is detected mid-session.
func (g *Gate) HandleUnauthorized() {
	g.log.Info("session rejected by backend, logging out")
	g.Logout()
}

// Subscribe returns a channel that signals on every login-state change. The
// cancel function must be called to release the subscription.
func (g *Gate) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	g.mu.Lock()
	g.subscribers[ch] = struct{}{}
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		if _, ok := g.subscribers[ch]; ok {
			delete(g.subscribers, ch)
			close(ch)
		}
		g.mu.Unlock()
	}
	return ch, cancel
}

func (g *Gate) setSession(sess *domain.Session) {
	g.mu.Lock()
	g.current = sess
	for ch := range g.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	g.mu.Unlock()
}
