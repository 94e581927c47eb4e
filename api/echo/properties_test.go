package echo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/wolliz-dev/wolliz-backend/domain"
	"github.com/wolliz-dev/wolliz-backend/internal/auth"
	"github.com/wolliz-dev/wolliz-backend/internal/crypto"
	"github.com/wolliz-dev/wolliz-backend/salesforce"
)

// newProxyEnv wires the API against a fake platform that accepts the broker's
// token exchange and serves apexHandler on the Apex REST path. It returns the
// environment and a valid local bearer token.
func newProxyEnv(t *testing.T, apexHandler http.HandlerFunc) (*testEnv, string) {
	t.Helper()

	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/services/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"access_token": "upstream-token",
			"instance_url": server.URL,
		})
	})
	mux.HandleFunc("/services/apexrest/", apexHandler)
	server = httptest.NewServer(mux)
	t.Cleanup(server.Close)

	repo := newMemUserRepo()
	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	ts := auth.NewTokenService(testSecret, time.Hour, nil)

	key, err := crypto.GenerateRSAKey()
	require.NoError(t, err)
	broker, err := salesforce.NewBroker(salesforce.BrokerConfig{
		ClientID:   "client-id",
		Username:   "integration@example.com",
		LoginURL:   server.URL,
		PrivateKey: key,
	}, server.Client(), nil)
	require.NoError(t, err)
	require.NoError(t, broker.Authenticate(context.Background()))

	a := NewAPI(
		NewUserAPI(repo, hasher, ts),
		NewPropertyAPI(salesforce.NewPropertyClient(broker, server.Client())),
		ts,
	)

	e := echo.New()
	a.RegisterRoutes(e)

	token, err := ts.Issue(&domain.User{ID: "user-1", Username: "alice"})
	require.NoError(t, err)

	return &testEnv{e: e, repo: repo, ts: ts}, token
}

func TestProxyRelaysUpstreamBody(t *testing.T) {
	env, token := newProxyEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer upstream-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Id":"a01","Name__c":"Loft"}`))
	})

	rec := env.do(http.MethodGet, "/api/properties/a01", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"Id":"a01","Name__c":"Loft"}`, rec.Body.String())
}

func TestProxyRelaysUpstreamErrorVerbatim(t *testing.T) {
	upstreamBody := `[{"errorCode":"NOT_FOUND","message":"no such record"}]`
	env, token := newProxyEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(upstreamBody))
	})

	rec := env.do(http.MethodGet, "/api/properties/a01", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, upstreamBody, rec.Body.String())
}

func TestProxyRelaysUpstreamErrorContentType(t *testing.T) {
	env, token := newProxyEnv(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	})

	rec := env.do(http.MethodDelete, "/api/properties/a01", token, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, "upstream unavailable", rec.Body.String())
}
