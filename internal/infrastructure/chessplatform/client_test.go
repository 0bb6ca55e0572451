package chessplatform

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/platform/resilience"
	"github.com/riskibarqy/chess-wager/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate func(*ClientConfig)) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := ClientConfig{
		BaseURL:      srv.URL,
		AdminToken:   "admin-secret",
		Timeout:      2 * time.Second,
		RetryBackoff: time.Millisecond,
		Logger:       logging.NewNop(),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return NewClient(cfg)
}

func TestMapOutcome(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		game      gameExport
		concluded bool
		winner    chessmatch.Winner
	}{
		{name: "created", game: gameExport{Status: "created"}},
		{name: "started", game: gameExport{Status: "started"}},
		{name: "mate white", game: gameExport{Status: "mate", Winner: "white"}, concluded: true, winner: chessmatch.WinnerWhite},
		{name: "resign black", game: gameExport{Status: "resign", Winner: "black"}, concluded: true, winner: chessmatch.WinnerBlack},
		{name: "draw", game: gameExport{Status: "draw"}, concluded: true, winner: chessmatch.WinnerDraw},
		{name: "stalemate", game: gameExport{Status: "stalemate"}, concluded: true, winner: chessmatch.WinnerDraw},
		{name: "aborted", game: gameExport{Status: "aborted"}, concluded: true, winner: chessmatch.WinnerNone},
		{name: "no start", game: gameExport{Status: "noStart"}, concluded: true, winner: chessmatch.WinnerNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := mapOutcome("g1", tc.game)
			assert.Equal(t, "g1", out.MatchID)
			assert.Equal(t, tc.concluded, out.Concluded)
			assert.Equal(t, tc.winner, out.Winner)
		})
	}
}

func TestGetOutcome_DecodesGameExport(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/game/export/abc123", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"abc123","status":"mate","winner":"black"}`))
	}, nil)

	out, err := client.GetOutcome(context.Background(), "abc123")
	require.NoError(t, err)
	assert.True(t, out.Decisive())
	assert.Equal(t, chessmatch.WinnerBlack, out.Winner)
	assert.Equal(t, "mate", out.Status)
}

func TestGetOutcome_RetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"id":"g","status":"started"}`))
	}, func(cfg *ClientConfig) { cfg.MaxRetries = 2 })

	out, err := client.GetOutcome(context.Background(), "g")
	require.NoError(t, err)
	assert.False(t, out.Concluded)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOutcome_NotFoundIsNotRetried(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, func(cfg *ClientConfig) { cfg.MaxRetries = 3 })

	_, err := client.GetOutcome(context.Background(), "missing")
	require.ErrorIs(t, err, usecase.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetOutcome_OpenCircuitIsDependencyUnavailable(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, func(cfg *ClientConfig) {
		cfg.CircuitBreaker = resilience.BreakerSettings{Enabled: true, FailureThreshold: 1, OpenTimeout: time.Minute}
	})

	_, err := client.GetOutcome(context.Background(), "g")
	require.Error(t, err)
	assert.NotErrorIs(t, err, usecase.ErrDependencyUnavailable)

	_, err = client.GetOutcome(context.Background(), "g")
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCreateMatch_PostsBulkPairing(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/bulk-pairing", r.URL.Path)
		assert.Equal(t, "Bearer admin-secret", r.Header.Get("Authorization"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "tok-w:tok-b", r.PostForm.Get("players"))
		assert.Equal(t, "300", r.PostForm.Get("clock.limit"))
		assert.Equal(t, "3", r.PostForm.Get("clock.increment"))
		assert.Equal(t, "chess960", r.PostForm.Get("variant"))
		assert.Equal(t, "false", r.PostForm.Get("rated"))
		_, _ = w.Write([]byte(`{"id":"pair1","games":[{"id":"NKop9IyD","white":"alice","black":"bob"}]}`))
	}, nil)

	match, err := client.CreateMatch(context.Background(), chessmatch.MatchRequest{
		ClockLimitSeconds:     300,
		ClockIncrementSeconds: 3,
		Variant:               "chess960",
		White:                 chessmatch.Credentials{Username: "alice", AccessToken: "tok-w"},
		Black:                 chessmatch.Credentials{Username: "bob", AccessToken: "tok-b"},
	})
	require.NoError(t, err)
	assert.Equal(t, "NKop9IyD", match.ID)
	assert.Equal(t, client.baseURL+"/NKop9IyD", match.Link)
}

func TestCreateMatch_Rejections(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"pair1","games":[]}`))
	}, nil)
	linked := chessmatch.MatchRequest{
		ClockLimitSeconds: 60,
		White:             chessmatch.Credentials{AccessToken: "a"},
		Black:             chessmatch.Credentials{AccessToken: "b"},
	}

	_, err := client.CreateMatch(context.Background(), chessmatch.MatchRequest{White: chessmatch.Credentials{AccessToken: "a"}})
	require.ErrorIs(t, err, usecase.ErrInvalidInput)

	_, err = client.CreateMatch(context.Background(), linked)
	require.Error(t, err)

	noAdmin := NewClient(ClientConfig{BaseURL: client.baseURL, Logger: logging.NewNop()})
	_, err = noAdmin.CreateMatch(context.Background(), linked)
	require.ErrorIs(t, err, usecase.ErrDependencyUnavailable)
}

func TestBuildRequestPreview_MasksSecrets(t *testing.T) {
	t.Parallel()

	form := map[string][]string{"players": {"tok-w:tok-b"}, "rated": {"true"}}
	preview := buildRequestPreview(http.MethodPost, "https://lichess.org/api/bulk-pairing", form, true)

	assert.Contains(t, preview, "curl -X POST 'https://lichess.org/api/bulk-pairing'")
	assert.Contains(t, preview, "'Authorization: Bearer ***'")
	assert.Contains(t, preview, "-d 'players=***:***' -d 'rated=true'")
	assert.NotContains(t, preview, "tok-w")
}
