package auth

import (
	"errors"
	"fmt"

	"stepout/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

type jwtVerifier struct {
	secret []byte
}

// NewJWTVerifier returns a TokenVerifier that accepts HS256 JWTs signed with secret.
// The caller identity is the canonicalized "sub" claim.
func NewJWTVerifier(secret string) domain.TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}
	if !token.Valid {
		return "", domain.ErrUnauthenticated
	}
	id := domain.CanonicalID(claims.Subject)
	if id == "" {
		return "", fmt.Errorf("%w: %v", domain.ErrUnauthenticated, errors.New("token has no subject"))
	}
	return id, nil
}
