package sessiontoken

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const (
	// DefaultTokenTTL is the default lifetime for an operator session.
	DefaultTokenTTL = 8 * time.Hour
	// DefaultLeeway is clock skew tolerance for token validation.
	DefaultLeeway = 15 * time.Second
	// DefaultIssuer is used when Options.Issuer is empty.
	DefaultIssuer = "leasemail-drafter"
	minSecretLen  = 16
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid session token")

// Options configures an Issuer.
type Options struct {
	Secret  string
	Issuer  string
	TTL     time.Duration
	Leeway  time.Duration
	Now     func() time.Time
	Revoker Revoker // enables logout; nil means tokens live until expiry
}

// Issuer signs and verifies HS256 session tokens whose subject is the member name.
type Issuer struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	leeway  time.Duration
	now     func() time.Time
	revoker Revoker
}

// New creates an Issuer. The secret must be at least 16 bytes.
func New(opts Options) (*Issuer, error) {
	secret := strings.TrimSpace(opts.Secret)
	if len(secret) < minSecretLen {
		return nil, fmt.Errorf("session secret must be at least %d characters", minSecretLen)
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTokenTTL
	}
	if opts.Leeway <= 0 {
		opts.Leeway = DefaultLeeway
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Issuer{
		secret:  []byte(secret),
		issuer:  issuer,
		ttl:     opts.TTL,
		leeway:  opts.Leeway,
		now:     opts.Now,
		revoker: opts.Revoker,
	}, nil
}

// Issue returns a signed token for member and its expiry.
func (i *Issuer) Issue(member string) (string, time.Time, error) {
	member = strings.TrimSpace(member)
	if member == "" {
		return "", time.Time{}, errors.New("session subject is required")
	}
	now := i.now().UTC()
	expires := now.Add(i.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   member,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		ID:        randomHexID(12),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expires, nil
}

// Verify validates signature, expiry, issuer and revocation, returning the member name.
func (i *Issuer) Verify(ctx context.Context, token string) (string, error) {
	claims, err := i.parse(token)
	if err != nil {
		return "", err
	}
	if i.revoker != nil {
		revoked, err := i.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return "", fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return "", ErrInvalidToken
		}
	}
	return claims.Subject, nil
}

// Revoke invalidates a valid token for the rest of its lifetime.
func (i *Issuer) Revoke(ctx context.Context, token string) error {
	if i.revoker == nil {
		return errors.New("session revocation not configured")
	}
	claims, err := i.parse(token)
	if err != nil {
		return err
	}
	ttl := claims.ExpiresAt.Sub(i.now()) + i.leeway
	return i.revoker.Revoke(ctx, claims.ID, ttl)
}

func (i *Issuer) parse(token string) (jwt.RegisteredClaims, error) {
	claims := jwt.RegisteredClaims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(i.leeway),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !parsed.Valid {
		return claims, ErrInvalidToken
	}
	claims.Subject = strings.TrimSpace(claims.Subject)
	if claims.Subject == "" || claims.ID == "" {
		return claims, ErrInvalidToken
	}
	return claims, nil
}

// BearerToken extracts a bearer token from request header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func randomHexID(nBytes int) string {
	buf := make([]byte, nBytes)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("%x", buf)
}
