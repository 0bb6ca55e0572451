package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

func (h *Handler) GetActiveSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetActiveSeason")
	defer span.End()

	item, err := h.svc.Seasons.GetActiveSeason(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonToDTO(item))
}

// GetLeaderboard defaults to the token currency.
func (h *Handler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetLeaderboard")
	defer span.End()

	currency := user.Currency(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("currency"))))
	if currency == "" {
		currency = user.CurrencyToken
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	seasonID := r.PathValue("seasonID")
	entries, err := h.svc.Seasons.Leaderboard(ctx, seasonID, currency, limit, offset)
	if err != nil {
		h.logger.WarnContext(ctx, "load leaderboard failed", "season_id", seasonID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, leaderboardToDTO(seasonID, currency, entries))
}

func (h *Handler) GetMySeasonStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMySeasonStats")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	stats, err := h.svc.Seasons.GetUserStats(ctx, r.PathValue("seasonID"), principal.UserID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, seasonStatsToDTO(stats))
}
