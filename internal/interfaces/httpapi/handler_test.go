package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/notify"
	"github.com/riskibarqy/chess-wager/internal/infrastructure/repository/memory"
	chessmatchmock "github.com/riskibarqy/chess-wager/internal/mocks/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/platform/cache"
	idgen "github.com/riskibarqy/chess-wager/internal/platform/id"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

const testAdminToken = "admin-secret"

// tokenVerifier treats the bearer token as the user id.
type tokenVerifier struct{}

func (tokenVerifier) VerifyAccessToken(_ context.Context, token string) (user.Principal, error) {
	if token == "expired" {
		return user.Principal{}, fmt.Errorf("%w: token inactive", usecase.ErrUnauthorized)
	}
	return user.Principal{UserID: token}, nil
}

type apiFixture struct {
	router  http.Handler
	users   *memory.UserRepository
	oracle  *chessmatchmock.Oracle
	creator *chessmatchmock.Creator
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	store := memory.NewStore(memory.SeedUsers(time.Now())...)
	users := memory.NewUserRepository(store)
	wagers := memory.NewWagerRepository(store)
	seasons := memory.NewSeasonRepository(store)
	stats := memory.NewSeasonStatsRepository(store)
	oracle := chessmatchmock.NewOracle(t)
	creator := chessmatchmock.NewCreator(t)
	logger := logging.NewNop()
	ids := idgen.NewUUIDGenerator()
	activity := usecase.NewActivityCounter(time.Now())
	dispatcher := notify.NewInbox(memory.NewNotificationRepository(store), ids)

	seasonSvc := usecase.NewSeasonService(seasons, stats, users, users, store, dispatcher,
		cache.NewStore[[]season.LeaderboardEntry](time.Second), ids, logger)
	wagerSvc := usecase.NewWagerService(wagers, users, store, oracle, dispatcher, activity, ids, logger)
	matchingSvc := usecase.NewMatchingService(wagers, users, users, store, creator, dispatcher, activity, seasonSvc, logger)
	settlementSvc := usecase.NewSettlementService(wagers, users, store, oracle, dispatcher, activity, seasonSvc, logger)
	reconcileSvc := usecase.NewReconciliationService(wagers, wagerSvc, settlementSvc, usecase.ReconcileConfig{}, logger)

	handler := NewHandler(Services{
		Wagers:         wagerSvc,
		Matching:       matchingSvc,
		Settlement:     settlementSvc,
		Seasons:        seasonSvc,
		Reconciliation: reconcileSvc,
		Activity:       activity,
	}, logger)

	return &apiFixture{
		router: NewRouter(handler, tokenVerifier{}, logger, RouterConfig{
			CORSAllowedOrigins: []string{"*"},
			AdminToken:         testAdminToken,
			Metrics:            http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
		}),
		users:   users,
		oracle:  oracle,
		creator: creator,
	}
}

type envelope struct {
	APIVersion string `json:"apiVersion"`
	Data       any    `json:"data"`
	Error      *struct {
		Code   int    `json:"code"`
		Status string `json:"status"`
	} `json:"error"`
}

func (e envelope) obj() map[string]any {
	m, _ := e.Data.(map[string]any)
	return m
}

func (f *apiFixture) do(t *testing.T, method, path, bearer, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if strings.HasPrefix(path, "/v1/admin/") {
		req.Header.Set(adminTokenHeader, testAdminToken)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func (f *apiFixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	u, ok, err := f.users.GetByID(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, ok)
	return u.Balances.Token
}

func TestWagerLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodPost, "/v1/wagers", "demo-alice",
		`{"amount":100,"currency":"token","color":"white","time_control":"5+3"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wagerID, _ := env.obj()["id"].(string)
	require.NotEmpty(t, wagerID)
	assert.Equal(t, "pending", env.obj()["status"])
	assert.Equal(t, "blitz", env.obj()["rating_class"])
	assert.Equal(t, int64(9_900), f.balance(t, "demo-alice"))

	f.creator.On("CreateMatch", mock.Anything, mock.MatchedBy(func(req chessmatch.MatchRequest) bool {
		return req.White.Username == "alice" && req.Black.Username == "bob" && req.ClockLimitSeconds == 300
	})).Return(chessmatch.Match{ID: "g1", Link: "https://lichess.org/g1"}, nil).Once()

	rec, env = f.do(t, http.MethodPost, "/v1/wagers/"+wagerID+"/accept", "demo-bob", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "matched", env.obj()["status"])
	assert.Equal(t, "https://lichess.org/g1", env.obj()["game_link"])
	assert.Equal(t, int64(9_900), f.balance(t, "demo-bob"))

	rec, _ = f.do(t, http.MethodPost, "/v1/wagers/"+wagerID+"/accept", "demo-carol", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	f.oracle.On("GetOutcome", mock.Anything, "g1").
		Return(chessmatch.Outcome{MatchID: "g1", Concluded: true, Winner: chessmatch.WinnerBlack, Status: "mate"}, nil).Once()

	rec, env = f.do(t, http.MethodPost, "/v1/admin/wagers/settle/g1", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "settled", env.obj()["status"])
	assert.Equal(t, int64(10_100), f.balance(t, "demo-bob"))
	assert.Equal(t, int64(9_900), f.balance(t, "demo-alice"))

	rec, env = f.do(t, http.MethodGet, "/v1/wagers/"+wagerID, "demo-alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "won", env.obj()["status"])
	assert.Equal(t, "demo-bob", env.obj()["winner_id"])
}

func TestCreateWagerErrors(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name   string
		bearer string
		body   string
		code   int
		status string
	}{
		{name: "no token", body: `{}`, code: http.StatusUnauthorized, status: "UNAUTHENTICATED"},
		{name: "inactive token", bearer: "expired", body: `{}`, code: http.StatusUnauthorized, status: "UNAUTHENTICATED"},
		{name: "malformed json", bearer: "demo-alice", body: `{"amount":`, code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "bad time control", bearer: "demo-alice", body: `{"amount":10,"currency":"token","time_control":"fast"}`, code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "non positive amount", bearer: "demo-alice", body: `{"amount":0,"currency":"token","time_control":"5+0"}`, code: http.StatusBadRequest, status: "INVALID_ARGUMENT"},
		{name: "insufficient balance", bearer: "demo-dave", body: `{"amount":1000,"currency":"token","time_control":"5+0"}`, code: http.StatusUnprocessableEntity, status: "FAILED_PRECONDITION"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := f.do(t, http.MethodPost, "/v1/wagers", tc.bearer, tc.body)
			require.Equal(t, tc.code, rec.Code, rec.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, tc.status, env.Error.Status)
		})
	}
	assert.Equal(t, int64(500), f.balance(t, "demo-dave"))
}

func TestCancelWagerOnlyByCreator(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodPost, "/v1/wagers", "demo-alice",
		`{"amount":250,"currency":"token","time_control":"3+2","variant":"chess960"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	wagerID, _ := env.obj()["id"].(string)
	require.NotEmpty(t, wagerID)

	rec, _ = f.do(t, http.MethodPost, "/v1/wagers/"+wagerID+"/cancel", "demo-bob", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = f.do(t, http.MethodPost, "/v1/wagers/"+wagerID+"/cancel", "demo-alice", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "canceled", env.obj()["status"])
	assert.Equal(t, int64(10_000), f.balance(t, "demo-alice"))

	rec, _ = f.do(t, http.MethodGet, "/v1/wagers/missing", "demo-alice", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminSurface(t *testing.T) {
	f := newAPIFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/sweeps/expire", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, env := f.do(t, http.MethodPost, "/v1/admin/sweeps/expire", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 0, env.obj()["expired"])

	start := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	body := fmt.Sprintf(`{"start_date":%q,"end_date":%q,"rewards":{"token":{"first":500,"second":200,"third":100}}}`,
		start.Format(time.RFC3339), start.Add(48*time.Hour).Format(time.RFC3339))
	rec, env = f.do(t, http.MethodPost, "/v1/admin/seasons", "", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "active", env.obj()["status"])
	seasonID, _ := env.obj()["id"].(string)
	require.NotEmpty(t, seasonID)

	rec, env = f.do(t, http.MethodGet, "/v1/seasons/active", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, seasonID, env.obj()["id"])

	rec, env = f.do(t, http.MethodGet, "/v1/seasons/"+seasonID+"/leaderboard?currency=token&limit=5", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "token", env.obj()["currency"])

	rec, _ = f.do(t, http.MethodGet, "/v1/seasons/"+seasonID+"/leaderboard?limit=-1", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = f.do(t, http.MethodPost, "/v1/admin/seasons", "", `{"start_date":"2026-01-02T00:00:00Z","end_date":"2026-01-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = f.do(t, http.MethodGet, "/v1/admin/activity", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, env.obj(), "wagers_placed")
}

func TestSystemRoutes(t *testing.T) {
	f := newAPIFixture(t)

	rec, env := f.do(t, http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2.0", env.APIVersion)
	assert.Equal(t, "ok", env.obj()["status"])

	rec, _ = f.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
}
