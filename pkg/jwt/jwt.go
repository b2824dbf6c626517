package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Staff roles carried in tokens
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// Claims represents the staff JWT claims structure
type Claims struct {
	StaffID    uuid.UUID  `json:"staff_id"`
	Name       string     `json:"name"`
	Roles      []string   `json:"roles"`
	OperatorID *uuid.UUID `json:"operator_id,omitempty"` // set for operator staff
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// StaffIdentity is the input for issuing a token
type StaffIdentity struct {
	StaffID    uuid.UUID
	Name       string
	Roles      []string
	OperatorID *uuid.UUID
}

// Service signs and verifies staff access tokens (HS256)
type Service struct {
	secret            string
	issuer            string
	accessTokenExpiry time.Duration
}

// NewService creates a new JWT service
func NewService(secret, issuer string, accessExpiry time.Duration) *Service {
	return &Service{
		secret:            secret,
		issuer:            issuer,
		accessTokenExpiry: accessExpiry,
	}
}

// GenerateAccessToken generates a new access token
func (s *Service) GenerateAccessToken(identity StaffIdentity) (string, error) {
	if identity.OperatorID == nil {
		for _, role := range identity.Roles {
			if role == RoleOperator {
				return "", fmt.Errorf("operator tokens require an operator id")
			}
		}
	}

	now := time.Now()
	claims := Claims{
		StaffID:    identity.StaffID,
		Name:       identity.Name,
		Roles:      identity.Roles,
		OperatorID: identity.OperatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   identity.StaffID.String(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// ValidateAccessToken validates and parses an access token
func (s *Service) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.secret), nil
	}, jwt.WithIssuer(s.issuer))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// IsExpiredError reports whether a validation error was caused by token expiry
func IsExpiredError(err error) bool {
	return errors.Is(err, jwt.ErrTokenExpired)
}
