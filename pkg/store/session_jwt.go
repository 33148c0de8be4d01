package store

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"healthmate/pkg/domain"
)

const (
	defaultJWTIssuer   = "healthmate"
	defaultJWTAudience = "healthmate-api"
	defaultSessionTTL  = 7 * 24 * time.Hour
)

var defaultJWTLeeway = 30 * time.Second

// ErrInvalidToken covers bad signatures, malformed tokens, and expiry.
var ErrInvalidToken = errors.New("Invalid or expired token")

// SessionClaims is what a verified session token asserts.
type SessionClaims struct {
	Subject string
	Email   string
	Role    domain.UserRole
}

// JWTOptions configures claim validation behavior.
type JWTOptions struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
}

type jwtClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTSessionStore issues and validates stateless HS256 session tokens.
// There is no server-side revocation; expiry is the only invalidation.
type JWTSessionStore struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	leeway   time.Duration
}

// NewJWTSessionStore builds a session store from a shared secret.
func NewJWTSessionStore(secret string, ttl time.Duration, opts JWTOptions) (*JWTSessionStore, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	opts = normalizeJWTOptions(opts)
	return &JWTSessionStore{
		secret:   []byte(secret),
		ttl:      ttl,
		issuer:   opts.Issuer,
		audience: opts.Audience,
		leeway:   opts.Leeway,
	}, nil
}

// Issue signs a token for the subject with the role claim attached.
func (s *JWTSessionStore) Issue(subject, email string, role domain.UserRole) (string, error) {
	now := time.Now().UTC()
	claims := jwtClaims{
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify validates signature, expiry, issuer, and audience.
func (s *JWTSessionStore) Verify(token string) (SessionClaims, error) {
	claims := jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
	)
	if err != nil || !parsed.Valid {
		return SessionClaims{}, ErrInvalidToken
	}
	subject := strings.TrimSpace(claims.Subject)
	if subject == "" {
		return SessionClaims{}, ErrInvalidToken
	}
	role := domain.UserRole(claims.Role)
	if role != domain.RoleAdmin {
		role = domain.RoleUser
	}
	return SessionClaims{Subject: subject, Email: claims.Email, Role: role}, nil
}

func normalizeJWTOptions(opts JWTOptions) JWTOptions {
	if strings.TrimSpace(opts.Issuer) == "" {
		opts.Issuer = defaultJWTIssuer
	}
	if strings.TrimSpace(opts.Audience) == "" {
		opts.Audience = defaultJWTAudience
	}
	if opts.Leeway <= 0 {
		opts.Leeway = defaultJWTLeeway
	}
	return opts
}
