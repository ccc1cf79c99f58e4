// Package auth verifies the HS256 access tokens issued by the identity
// service. Minting exists for tooling and tests.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/resale-backend/pkg/config"
	"github.com/angelmondragon/resale-backend/pkg/enums"
)

const clockSkew = 30 * time.Second

var (
	ErrExpired = errors.New("token expired")
	ErrInvalid = errors.New("token invalid")
)

// Claims is the access token body. Subject always mirrors UserID.
type Claims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

func Mint(cfg config.JWTConfig, now time.Time, userID uuid.UUID, role enums.Role) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	if cfg.ExpirationMinutes <= 0 {
		return "", errors.New("jwt expiration minutes must be positive")
	}
	if userID == uuid.Nil || !role.IsValid() {
		return "", fmt.Errorf("cannot mint token for user %q with role %q", userID, role)
	}
	ttl := time.Duration(cfg.ExpirationMinutes) * time.Minute
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    cfg.Issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, issuer and expiry. Failures wrap ErrExpired or
// ErrInvalid.
func Parse(cfg config.JWTConfig, raw string) (*Claims, error) {
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
	)
	claims := &Claims{}
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%w: %v", ErrExpired, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	case claims.UserID == uuid.Nil || claims.Subject != claims.UserID.String():
		return nil, fmt.Errorf("%w: subject does not match user id", ErrInvalid)
	case !claims.Role.IsValid():
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalid, claims.Role)
	}
	return claims, nil
}

func checkConfig(cfg config.JWTConfig) error {
	if cfg.Secret == "" || cfg.Issuer == "" {
		return errors.New("jwt secret and issuer are required")
	}
	return nil
}
