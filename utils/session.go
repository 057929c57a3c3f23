// sixchan/utils/session.go
package utils

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName carries the signed session token.
const SessionCookieName = "sixchan_session"

var ErrInvalidSession = errors.New("invalid session")

type sessionClaims struct {
	Username string `json:"usr"`
	jwt.RegisteredClaims
}

// SessionManager issues and verifies HS256 session tokens.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	now    Clock
}

func NewSessionManager(secret string, ttl time.Duration, now Clock) (*SessionManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("session secret is empty")
	}
	if now == nil {
		now = SystemClock
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, now: now}, nil
}

// Issue signs a token for the account.
func (sm *SessionManager) Issue(accountID int64, username string) (string, time.Time, error) {
	issued := sm.now()
	expires := issued.Add(sm.ttl)
	claims := &sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session: %w", err)
	}
	return token, expires, nil
}

// Verify returns the account id carried by a valid token.
func (sm *SessionManager) Verify(tokenString string) (int64, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method == jwt.SigningMethodHS256 {
			return sm.secret, nil
		}
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}, jwt.WithTimeFunc(sm.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, fmt.Errorf("%w: token has expired", ErrInvalidSession)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return 0, fmt.Errorf("%w: invalid token signature", ErrInvalidSession)
		default:
			return 0, fmt.Errorf("%w: %v", ErrInvalidSession, err)
		}
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return 0, ErrInvalidSession
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidSession)
	}
	return id, nil
}
