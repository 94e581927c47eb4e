package salesforce_test

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolliz-dev/wolliz-backend/internal/crypto"
	"github.com/wolliz-dev/wolliz-backend/salesforce"
)

// fakePlatform emulates the platform's token endpoint and Apex REST surface
// on a single httptest server.
type fakePlatform struct {
	t *testing.T

	server *httptest.Server
	key    *rsa.PrivateKey

	tokenCalls int
	apexCalls  int

	rejectAuth  bool
	issuedToken string
	apexHandler http.HandlerFunc
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()

	key, err := crypto.GenerateRSAKey()
	require.NoError(t, err)

	fp := &fakePlatform{t: t, key: key, issuedToken: "token-1"}

	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", fp.handleToken)
	mux.HandleFunc("/services/apexrest/", func(w http.ResponseWriter, r *http.Request) {
		fp.apexCalls++
		if fp.apexHandler != nil {
			fp.apexHandler(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	fp.server = httptest.NewServer(mux)
	t.Cleanup(fp.server.Close)

	return fp
}

func (fp *fakePlatform) handleToken(w http.ResponseWriter, r *http.Request) {
	fp.tokenCalls++

	require.NoError(fp.t, r.ParseForm())
	assert.Equal(fp.t, salesforce.JWTBearerGrantType, r.PostFormValue("grant_type"))

	assertion := r.PostFormValue("assertion")
	require.NotEmpty(fp.t, assertion)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(assertion, claims,
		func(*jwt.Token) (any, error) { return &fp.key.PublicKey, nil },
		jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(fp.t, err, "assertion must be RS256-signed with the configured key")
	assert.Equal(fp.t, "client-id", claims["iss"])
	assert.Equal(fp.t, "integration@example.com", claims["sub"])
	assert.Equal(fp.t, fp.server.URL, claims["aud"])

	if fp.rejectAuth {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "user hasn't approved this consumer",
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"access_token": fp.issuedToken,
		"instance_url": fp.server.URL,
	})
}

func (fp *fakePlatform) newBroker() *salesforce.Broker {
	fp.t.Helper()

	broker, err := salesforce.NewBroker(salesforce.BrokerConfig{
		ClientID:   "client-id",
		Username:   "integration@example.com",
		LoginURL:   fp.server.URL,
		PrivateKey: fp.key,
	}, fp.server.Client(), nil)
	require.NoError(fp.t, err)

	return broker
}

func TestBroker_AuthenticateEstablishesSession(t *testing.T) {
	fp := newFakePlatform(t)
	broker := fp.newBroker()

	require.Nil(t, broker.Current())

	require.NoError(t, broker.Authenticate(context.Background()))

	sess := broker.Current()
	require.NotNil(t, sess)
	assert.Equal(t, "token-1", sess.AccessToken)
	assert.Equal(t, fp.server.URL, sess.InstanceURL)
	assert.Equal(t, 1, fp.tokenCalls)
}

func TestBroker_FailedAuthenticationKeepsPriorSession(t *testing.T) {
	fp := newFakePlatform(t)
	broker := fp.newBroker()

	require.NoError(t, broker.Authenticate(context.Background()))
	prior := broker.Current()

	fp.rejectAuth = true
	err := broker.Authenticate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant")

	assert.Same(t, prior, broker.Current())
}

func TestBroker_FailedAuthenticationLeavesNoSession(t *testing.T) {
	fp := newFakePlatform(t)
	fp.rejectAuth = true
	broker := fp.newBroker()

	require.Error(t, broker.Authenticate(context.Background()))
	assert.Nil(t, broker.Current())
}

func TestBroker_ReauthenticationReplacesSessionWholesale(t *testing.T) {
	fp := newFakePlatform(t)
	broker := fp.newBroker()

	require.NoError(t, broker.Authenticate(context.Background()))
	first := broker.Current()

	fp.issuedToken = "token-2"
	require.NoError(t, broker.Authenticate(context.Background()))

	second := broker.Current()
	require.NotNil(t, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, "token-2", second.AccessToken)
}

func TestBroker_RefreshSkipsWhenSessionAlreadyReplaced(t *testing.T) {
	fp := newFakePlatform(t)
	broker := fp.newBroker()

	require.NoError(t, broker.Authenticate(context.Background()))
	stale := broker.Current()

	fp.issuedToken = "token-2"
	require.NoError(t, broker.Authenticate(context.Background()))
	replaced := broker.Current()
	callsAfterSecondAuth := fp.tokenCalls

	// stale is no longer current, so Refresh must not hit the endpoint.
	require.NoError(t, broker.Refresh(context.Background(), stale))
	assert.Equal(t, callsAfterSecondAuth, fp.tokenCalls)
	assert.Same(t, replaced, broker.Current())

	// Refresh with the current session does re-authenticate.
	require.NoError(t, broker.Refresh(context.Background(), replaced))
	assert.Equal(t, callsAfterSecondAuth+1, fp.tokenCalls)
}

func TestBroker_TransportFailureKeepsPriorSession(t *testing.T) {
	fp := newFakePlatform(t)
	broker := fp.newBroker()

	require.NoError(t, broker.Authenticate(context.Background()))
	prior := broker.Current()

	fp.server.Close()

	require.Error(t, broker.Authenticate(context.Background()))
	assert.Same(t, prior, broker.Current())
}
