package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// IssueToken produces a signed JWT carrying the user id as subject, expiring
// after the configured lifetime.
func (s *Service) IssueToken(userID int64) (string, error) {
	method := jwt.GetSigningMethod(s.config.JWTAlgorithm)
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(s.config.TokenTTLMinutes) * time.Minute)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyToken checks signature and expiry and returns the embedded user id.
// Any failure collapses into ErrInvalidToken; callers treat it as "no
// identity".
func (s *Service) VerifyToken(tokenString string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.config.JWTSecret), nil
	}, jwt.WithValidMethods([]string{s.config.JWTAlgorithm}))
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return userID, nil
}
