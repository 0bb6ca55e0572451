package anubis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/platform/resilience"
	"github.com/riskibarqy/chess-wager/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.BreakerSettings) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Config{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		IntrospectPath: "v1/auth/introspect",
		AdminKey:       "admin-secret",
		CacheTTL:       time.Minute,
		CircuitBreaker: breaker,
		Logger:         logging.NewNop(),
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	raw, _ := sonic.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func TestVerifyAccessToken_SendsAdminKeyAndParsesResponse(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/auth/introspect", r.URL.Path)
		assert.Equal(t, "admin-secret", r.Header.Get("x-admin-key"))

		var req map[string]string
		assert.NoError(t, sonic.ConfigDefault.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "token-abc", req["token"])

		writeJSON(w, map[string]any{"active": true, "user_id": "alice", "email": "alice@example.com"})
	}, resilience.BreakerSettings{})

	principal, err := client.VerifyAccessToken(context.Background(), "token-abc")
	require.NoError(t, err)
	assert.Equal(t, "alice", principal.UserID)
	assert.Equal(t, "alice@example.com", principal.Email)
}

func TestVerifyAccessToken_Unauthorized(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		token   string
		handler http.HandlerFunc
	}{
		{
			name:  "inactive token",
			token: "stale",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, map[string]any{"active": false})
			},
		},
		{
			name:  "denied",
			token: "denied",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name:    "empty token",
			token:   "  ",
			handler: func(w http.ResponseWriter, r *http.Request) { t.Error("unexpected request") },
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.handler, resilience.BreakerSettings{})
			_, err := client.VerifyAccessToken(context.Background(), tc.token)
			require.ErrorIs(t, err, usecase.ErrUnauthorized)
		})
	}
}

func TestVerifyAccessToken_ForbiddenMappedToDependencyUnavailable(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, resilience.BreakerSettings{})

	_, err := client.VerifyAccessToken(context.Background(), "token-abc")
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
}

func TestVerifyAccessToken_CachesActivePrincipals(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, map[string]any{"active": true, "user_id": "bob"})
	}, resilience.BreakerSettings{})

	for range 3 {
		principal, err := client.VerifyAccessToken(context.Background(), "cached-token")
		require.NoError(t, err)
		assert.Equal(t, "bob", principal.UserID)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestVerifyAccessToken_OpenCircuit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, resilience.BreakerSettings{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute})

	_, err := client.VerifyAccessToken(context.Background(), "a")
	require.Error(t, err)
	_, err = client.VerifyAccessToken(context.Background(), "b")
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestIntrospectionURL(t *testing.T) {
	assert.Equal(t, "https://auth.local/v1/introspect", introspectionURL("https://auth.local/", "v1/introspect"))
	assert.Equal(t, "https://auth.local/v1/introspect", introspectionURL("https://auth.local", "/v1/introspect"))
	assert.Equal(t, "https://other/x", introspectionURL("https://auth.local", "https://other/x"))
	assert.Equal(t, "https://auth.local", introspectionURL("https://auth.local/", ""))
}

func TestPrincipalKey(t *testing.T) {
	key := principalKey("secret-token")
	assert.NotContains(t, key, "secret-token")
	assert.Equal(t, key, principalKey("secret-token"))
	assert.NotEqual(t, key, principalKey("other-token"))
}
