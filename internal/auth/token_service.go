package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wolliz-dev/wolliz-backend/cache"
	"github.com/wolliz-dev/wolliz-backend/domain"
)

var (
	// ErrTokenExpired is returned when a token's exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenInvalid covers malformed tokens and bad signatures. The HTTP
	// layer presents both failures identically.
	ErrTokenInvalid = errors.New("token invalid")
)

// localSigningKeyID names the key local bearer tokens are signed with.
const localSigningKeyID = "local"

// Claims is the claim set carried by local bearer tokens.
type Claims struct {
	Username string `json:"preferred_username,omitempty"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies local bearer tokens. Tokens are stateless
// HS256 JWTs; there is no revocation list. Verified claims are cached by
// token fingerprint until the token expires.
type TokenService struct {
	signer *TokenSigner
	secret []byte
	ttl    time.Duration
	cache  cache.TokenStore

	now func() time.Time
}

// NewTokenService creates a TokenService signing with secretKey. Tokens live
// for ttl from issuance.
func NewTokenService(secretKey string, ttl time.Duration, tokenCache cache.TokenStore) *TokenService {
	signer := NewTokenSigner()
	signer.AddKeySigner(localSigningKeyID, secretKey)

	return &TokenService{
		signer: signer,
		secret: []byte(secretKey),
		ttl:    ttl,
		cache:  tokenCache,
		now:    time.Now,
	}
}

// Issue signs a token for the given user with subject, username, issuance
// and expiry claims.
func (ts *TokenService) Issue(user *domain.User) (string, error) {
	now := ts.now()
	claims := &Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
			ID:        uuid.NewString(),
		},
	}

	return ts.signer.Sign(claims, localSigningKeyID)
}

// Verify checks the token's signature and expiry and returns its claims.
// Failures map to ErrTokenExpired or ErrTokenInvalid, nothing finer.
func (ts *TokenService) Verify(ctx context.Context, tokenValue string) (*cache.TokenEntry, error) {
	if ts.cache != nil {
		if entry, err := ts.cache.Get(ctx, tokenValue); err == nil {
			return entry, nil
		}
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(tokenValue, &claims,
		func(*jwt.Token) (any, error) { return ts.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	entry := &cache.TokenEntry{
		UserID:    claims.Subject,
		Username:  claims.Username,
		ExpiresAt: claims.ExpiresAt.Time,
	}

	if ts.cache != nil {
		_ = ts.cache.Set(ctx, tokenValue, entry)
	}

	return entry, nil
}
