package httpapi

import (
	"net/http"

	"github.com/riskibarqy/chess-wager/internal/platform/logging"
)

type RouterConfig struct {
	CORSAllowedOrigins []string
	AdminToken         string
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

func NewRouter(handler *Handler, verifier TokenVerifier, logger *logging.Logger, cfg RouterConfig) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, cfg.Metrics)
	registerPlayerRoutes(mux, handler, verifier)
	registerAdminRoutes(mux, handler, cfg.AdminToken)

	return RequestTracing(RequestLogging(logger, CORS(cfg.CORSAllowedOrigins, recoverPanic(logger, mux))))
}
