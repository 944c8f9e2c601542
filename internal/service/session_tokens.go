package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrSessionInvalid = errors.New("session token invalid")
	ErrSessionExpired = errors.New("session token expired")
)

// SessionTokens emite y valida tokens de sesion firmados con HMAC.
// El token no identifica una sesion por si solo: la cuenta guarda el ultimo emitido.
type SessionTokens struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func NewSessionTokens(secret string, ttl time.Duration) *SessionTokens {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionTokens{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "dp-auto",
	}
}

// Issue firma un token nuevo con un id de sesion aleatorio.
func (s *SessionTokens) Issue(email string, now time.Time) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSessionInvalid
	}
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Parse valida firma, emisor y expiracion respecto de now.
func (s *SessionTokens) Parse(tokenString string, now time.Time) (SessionClaims, error) {
	if len(s.secret) == 0 || strings.TrimSpace(tokenString) == "" {
		return SessionClaims{}, ErrSessionInvalid
	}
	var claims SessionClaims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return SessionClaims{}, ErrSessionExpired
		}
		return SessionClaims{}, ErrSessionInvalid
	}
	if strings.TrimSpace(claims.Email) == "" || claims.Subject != claims.Email || claims.ID == "" {
		return SessionClaims{}, ErrSessionInvalid
	}
	return claims, nil
}
