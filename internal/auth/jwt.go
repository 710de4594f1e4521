package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tenant-registry/internal/model"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// Claims represents the JWT payload
type Claims struct {
	AdminID          string `json:"admin_id"`
	OrganizationID   string `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	Email            string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies administrator tokens.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("JWT secret not set")
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue creates a signed JWT for the given identity
func (i *Issuer) Issue(id *model.Identity) (string, error) {
	now := i.now()
	claims := Claims{
		AdminID:          id.AdminID.String(),
		OrganizationID:   id.OrganizationID.String(),
		OrganizationName: id.OrganizationName,
		Email:            id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.AdminID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate parses and verifies a JWT string
func (i *Issuer) Validate(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.OrganizationName == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
