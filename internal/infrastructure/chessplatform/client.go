package chessplatform

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/chess-wager/internal/domain/chessmatch"
	"github.com/riskibarqy/chess-wager/internal/platform/logging"
	"github.com/riskibarqy/chess-wager/internal/platform/resilience"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

const (
	defaultBaseURL = "https://lichess.org"
	maxBodyBytes   = 2 << 20
)

var errTransient = crerr.New("chess platform transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	AdminToken     string
	Timeout        time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.BreakerSettings
}

// Client talks to a Lichess-compatible API. It reports game outcomes and
// opens paired games on behalf of two linked accounts.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	adminToken   string
	maxRetries   int
	retryBackoff time.Duration
	logger       *logging.Logger
	breaker      *resilience.Breaker
	flight       resilience.Flight[[]byte]
}

var (
	_ chessmatch.Oracle  = (*Client)(nil)
	_ chessmatch.Creator = (*Client)(nil)
)

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      baseURL,
		adminToken:   strings.TrimSpace(cfg.AdminToken),
		maxRetries:   max(cfg.MaxRetries, 0),
		retryBackoff: backoff,
		logger:       logger,
		breaker:      resilience.NewBreaker(cfg.CircuitBreaker),
	}
}

type gameExport struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Winner string `json:"winner"`
}

// GetOutcome reads the current state of a game. Concurrent lookups of the
// same game share one upstream request.
func (c *Client) GetOutcome(ctx context.Context, matchID string) (chessmatch.Outcome, error) {
	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return chessmatch.Outcome{}, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput)
	}

	path := "/game/export/" + url.PathEscape(matchID)
	raw, _, err := c.flight.Do(path, func() ([]byte, error) {
		return c.send(ctx, http.MethodGet, path, nil, false)
	})
	if err != nil {
		return chessmatch.Outcome{}, fmt.Errorf("get outcome match_id=%s: %w", matchID, err)
	}

	var game gameExport
	if err := sonic.Unmarshal(raw, &game); err != nil {
		return chessmatch.Outcome{}, crerr.Wrapf(err, "decode game export match_id=%s", matchID)
	}
	return mapOutcome(matchID, game), nil
}

type bulkPairingResponse struct {
	ID    string `json:"id"`
	Games []struct {
		ID    string `json:"id"`
		White string `json:"white"`
		Black string `json:"black"`
	} `json:"games"`
}

// CreateMatch opens a single paired game through the bulk pairing endpoint.
func (c *Client) CreateMatch(ctx context.Context, req chessmatch.MatchRequest) (chessmatch.Match, error) {
	if !req.White.Valid() || !req.Black.Valid() {
		return chessmatch.Match{}, fmt.Errorf("%w: both players need a linked chess account", usecase.ErrInvalidInput)
	}
	if c.adminToken == "" {
		return chessmatch.Match{}, fmt.Errorf("%w: chess admin token is not configured", usecase.ErrDependencyUnavailable)
	}

	form := url.Values{}
	form.Set("players", req.White.AccessToken+":"+req.Black.AccessToken)
	form.Set("clock.limit", strconv.Itoa(req.ClockLimitSeconds))
	form.Set("clock.increment", strconv.Itoa(req.ClockIncrementSeconds))
	if req.Variant != "" {
		form.Set("variant", req.Variant)
	}
	form.Set("rated", strconv.FormatBool(req.Rated))

	raw, err := c.send(ctx, http.MethodPost, "/api/bulk-pairing", form, true)
	if err != nil {
		return chessmatch.Match{}, fmt.Errorf("create bulk pairing: %w", err)
	}

	var payload bulkPairingResponse
	if err := sonic.Unmarshal(raw, &payload); err != nil {
		return chessmatch.Match{}, crerr.Wrap(err, "decode bulk pairing response")
	}
	if len(payload.Games) == 0 || strings.TrimSpace(payload.Games[0].ID) == "" {
		return chessmatch.Match{}, crerr.Newf("bulk pairing %q returned no game", payload.ID)
	}

	gameID := strings.TrimSpace(payload.Games[0].ID)
	return chessmatch.Match{ID: gameID, Link: c.baseURL + "/" + gameID}, nil
}

func mapOutcome(matchID string, game gameExport) chessmatch.Outcome {
	status := strings.TrimSpace(game.Status)
	out := chessmatch.Outcome{MatchID: matchID, Status: status}

	switch status {
	case "", "created", "started":
		return out
	case "aborted", "noStart":
		out.Concluded = true
		out.Winner = chessmatch.WinnerNone
		return out
	}

	out.Concluded = true
	switch strings.ToLower(strings.TrimSpace(game.Winner)) {
	case "white":
		out.Winner = chessmatch.WinnerWhite
	case "black":
		out.Winner = chessmatch.WinnerBlack
	default:
		out.Winner = chessmatch.WinnerDraw
	}
	return out
}

func (c *Client) send(ctx context.Context, method, path string, form url.Values, admin bool) ([]byte, error) {
	var raw []byte
	err := c.breaker.Execute(func() error {
		var reqErr error
		raw, reqErr = c.executeRequest(ctx, method, path, form, admin)
		return reqErr
	}, isCircuitFailure)
	if stderrors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "chess platform circuit breaker rejected request", "state", c.breaker.State(), "path", path)
		return nil, fmt.Errorf("%w: chess platform is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	return raw, err
}

func (c *Client) executeRequest(ctx context.Context, method, path string, form url.Values, admin bool) ([]byte, error) {
	fullURL := c.baseURL + path
	var body string
	if form != nil {
		body = form.Encode()
	}
	c.logger.DebugContext(ctx, "chess platform request", "request", buildRequestPreview(method, fullURL, form, admin))

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var reader io.Reader
		if form != nil {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, crerr.Wrap(err, "build request")
		}
		req.Header.Set("Accept", "application/json")
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		if admin {
			req.Header.Set("Authorization", "Bearer "+c.adminToken)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = crerr.Mark(crerr.Newf("send request: %s", redact(err.Error(), c.secrets(form)...)), errTransient)
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = crerr.Mark(crerr.Wrap(readErr, "read response body"), errTransient)
			case resp.StatusCode >= 200 && resp.StatusCode < 300:
				return raw, nil
			case resp.StatusCode == http.StatusNotFound:
				return nil, fmt.Errorf("%w: chess platform returned 404 for %s", usecase.ErrNotFound, path)
			case isRetryableStatus(resp.StatusCode):
				lastErr = crerr.Mark(crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw)), errTransient)
			default:
				return nil, crerr.Newf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		timer := time.NewTimer(time.Duration(attempt+1) * c.retryBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "chess platform request failed", "method", method, "path", path, "error", lastErr)
	return nil, lastErr
}

func (c *Client) secrets(form url.Values) []string {
	out := []string{c.adminToken}
	if form != nil {
		if white, black, ok := strings.Cut(form.Get("players"), ":"); ok {
			out = append(out, white, black)
		}
	}
	return out
}

func isCircuitFailure(err error) bool {
	return crerr.Is(err, errTransient)
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
