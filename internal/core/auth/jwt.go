package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"user-service/internal/domain"
)

const DefaultTTL = time.Hour

var (
	ErrNoSecret     = errors.New("jwt secret is empty")
	ErrInvalidToken = fmt.Errorf("%w: invalid token", domain.ErrAuth)
	ErrExpiredToken = fmt.Errorf("%w: token expired", domain.ErrAuth)
)

type Claims struct {
	UID string `json:"id"`
	jwt.RegisteredClaims
}

// JWTer signs and verifies HS256 access tokens. Safe for concurrent use once built.
type JWTer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*JWTer)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(j *JWTer) { j.now = now } }

func NewJWTer(secret []byte, issuer string, ttl time.Duration, opts ...Option) (*JWTer, error) {
	if len(secret) == 0 {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	j := &JWTer{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, o := range opts {
		o(j)
	}
	return j, nil
}

func (j *JWTer) TTL() time.Duration { return j.ttl }

func (j *JWTer) Issue(uid string) (string, error) {
	if uid == "" {
		return "", errors.New("issue token: empty subject")
	}
	now := j.now()
	claims := Claims{
		UID: uid,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	}
	if j.issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.issuer))
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.UID == "" {
		return nil, ErrInvalidToken
	}
	// jwt accepts now == exp; a token is dead from its expiry instant on.
	if !j.now().Before(c.ExpiresAt.Time) {
		return nil, ErrExpiredToken
	}
	return c, nil
}

// Verify returns the subject id bound to a valid token.
func (j *JWTer) Verify(tokenStr string) (string, error) {
	c, err := j.Parse(tokenStr)
	if err != nil {
		return "", err
	}
	return c.UID, nil
}
