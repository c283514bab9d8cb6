package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kailas-cloud/talentsearch/internal/domain"
	"github.com/kailas-cloud/talentsearch/internal/domain/scope"
)

// Claims are the JWT claims of a caller credential.
type Claims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// JWTVerifier accepts HS256 tokens carrying exp, jti and a space-separated scope claim.
type JWTVerifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewJWTVerifier creates a verifier. issuer may be empty to skip the iss check.
func NewJWTVerifier(secret, issuer string, leeway time.Duration) (*JWTVerifier, error) {
	if len(secret) < 32 {
		return nil, fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, leeway: leeway}, nil
}

// Verify checks signature, time window, issuer and jti.
func (v *JWTVerifier) Verify(credential string, now time.Time) (Grant, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var c Claims
	_, err := jwt.NewParser(opts...).ParseWithClaims(credential, &c, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Grant{}, domain.NewUnauthorized("token expired")
		case errors.Is(err, jwt.ErrTokenNotValidYet):
			return Grant{}, domain.NewUnauthorized("token not yet valid")
		default:
			return Grant{}, domain.NewUnauthorized("invalid token")
		}
	}
	if c.ID == "" {
		return Grant{}, domain.NewUnauthorized("token has no jti")
	}

	return Grant{
		Subject: c.Subject,
		Scopes:  scope.Parse(c.Scope),
		ID:      "jwt:" + c.ID,
		Expires: c.ExpiresAt.Add(v.leeway),
	}, nil
}

// Issue signs a single-use token for subject valid from now for ttl.
func (v *JWTVerifier) Issue(subject string, scopes scope.Set, ttl time.Duration, now time.Time) (string, error) {
	claims := Claims{
		Scope: scopes.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}
