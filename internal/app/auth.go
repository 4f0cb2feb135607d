package app

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"blurt-quest/internal/domain"
)

// KeyVerifier checks a username/posting-key pair. Chain verification against
// the chain itself sits behind this interface so tests and demos can run
// without one.
type KeyVerifier interface {
	Verify(ctx context.Context, username, postingKey string) (bool, error)
}

// BcryptRegistry verifies posting keys against stored bcrypt hashes.
type BcryptRegistry struct {
	hashes map[string][]byte
}

func NewBcryptRegistry(hashes map[string][]byte) *BcryptRegistry {
	return &BcryptRegistry{hashes: hashes}
}

// HashPostingKey produces the stored form of a posting key.
func HashPostingKey(postingKey string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(postingKey), bcrypt.DefaultCost)
}

func (r *BcryptRegistry) Verify(_ context.Context, username, postingKey string) (bool, error) {
	hash, ok := r.hashes[username]
	if !ok {
		return false, nil
	}
	err := bcrypt.CompareHashAndPassword(hash, []byte(postingKey))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TokenIssuer mints and validates the HS256 session tokens.
type TokenIssuer struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

func NewTokenIssuer(secret string, lifetime time.Duration) *TokenIssuer {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), lifetime: lifetime, now: time.Now}
}

// Issue signs a token naming the user and carrying the expiry claim.
func (i *TokenIssuer) Issue(username string) (string, error) {
	now := i.now()
	claims := jwt.MapClaims{
		"sub": username,
		"iat": now.Unix(),
		"exp": now.Add(i.lifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate parses and verifies a token, returning the username it names.
func (i *TokenIssuer) Validate(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return "", domain.ErrUnauthorized
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", domain.ErrUnauthorized
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return "", domain.ErrUnauthorized
	}
	return sub, nil
}
