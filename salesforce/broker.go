package salesforce

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolliz-dev/wolliz-backend/log"
)

const (
	// JWTBearerGrantType is the OAuth2 JWT-bearer grant type identifier.
	JWTBearerGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	tokenPath         = "/services/oauth2/token"
	assertionLifetime = 300 * time.Second
)

// ErrNotAuthenticated is returned when no external session has been
// established yet.
var ErrNotAuthenticated = errors.New("no salesforce session established")

// Session is the backend's delegated identity with the platform. It is an
// immutable value; the broker replaces it wholesale, never field by field.
type Session struct {
	AccessToken string
	InstanceURL string
}

// BrokerConfig holds the settings for the JWT-bearer exchange.
type BrokerConfig struct {
	ClientID   string
	Username   string
	LoginURL   string
	PrivateKey *rsa.PrivateKey
}

// Broker maintains at most one live session with the platform, acquired via
// the JWT-bearer OAuth grant. The current session sits in an atomic pointer
// so concurrent proxy calls always observe a consistent token/URL pair.
type Broker struct {
	cfg        BrokerConfig
	httpClient *http.Client
	logger     log.Logger

	// mu serializes authentication attempts; readers go through session
	// without locking.
	mu      sync.Mutex
	session atomic.Pointer[Session]

	now func() time.Time
}

// NewBroker creates a Broker. A nil httpClient selects http.DefaultClient.
func NewBroker(cfg BrokerConfig, httpClient *http.Client, logger log.Logger) (*Broker, error) {
	if cfg.ClientID == "" || cfg.Username == "" || cfg.LoginURL == "" {
		return nil, errors.New("salesforce broker requires client id, username and login url")
	}
	if cfg.PrivateKey == nil {
		return nil, errors.New("salesforce broker requires a private key")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Broker{
		cfg:        cfg,
		httpClient: httpClient,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Current returns the current session, or nil before the first successful
// authentication.
func (b *Broker) Current() *Session {
	return b.session.Load()
}

// Authenticate exchanges a signed assertion for an access token and swaps in
// the new session. On any failure the prior session stays untouched.
func (b *Broker) Authenticate(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.authenticateLocked(ctx)
}

// Refresh re-authenticates only if stale is still the current session.
// A concurrent caller may already have replaced it, in which case the new
// session is kept as is.
func (b *Broker) Refresh(ctx context.Context, stale *Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.session.Load() != stale {
		return nil
	}
	return b.authenticateLocked(ctx)
}

func (b *Broker) authenticateLocked(ctx context.Context) error {
	assertion, err := b.signAssertion()
	if err != nil {
		return fmt.Errorf("failed to sign jwt-bearer assertion: %w", err)
	}

	form := url.Values{
		"grant_type": {JWTBearerGrantType},
		"assertion":  {assertion},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(b.cfg.LoginURL, "/")+tokenPath,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("token endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read token response: %w", err)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return fmt.Errorf("malformed token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return fmt.Errorf("authentication rejected by platform: %s", string(body))
	}

	b.session.Store(&Session{
		AccessToken: tokenResp.AccessToken,
		InstanceURL: tokenResp.InstanceURL,
	})

	if b.logger != nil {
		b.logger.Info(ctx, "salesforce authenticated via JWT-bearer grant", log.Fields{
			"instance_url": tokenResp.InstanceURL,
		})
	}

	return nil
}

func (b *Broker) signAssertion() (string, error) {
	now := b.now()
	claims := jwt.MapClaims{
		"iss": b.cfg.ClientID,
		"sub": b.cfg.Username,
		"aud": b.cfg.LoginURL,
		"exp": now.Add(assertionLifetime).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(b.cfg.PrivateKey)
}
