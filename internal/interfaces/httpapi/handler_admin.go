package httpapi

import (
	"net/http"

	"github.com/riskibarqy/chess-wager/internal/domain/season"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

func (h *Handler) RunExpireSweep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunExpireSweep")
	defer span.End()

	result, err := h.svc.Reconciliation.ExpireStaleWagers(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual expire sweep failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunSettleSweep(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSettleSweep")
	defer span.End()

	result, err := h.svc.Reconciliation.PollOutcomes(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual settle sweep failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) RunSeasonCheck(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RunSeasonCheck")
	defer span.End()

	result, err := h.svc.Seasons.CheckSeasonTransitions(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual season check failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) CreateSeason(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateSeason")
	defer span.End()

	var req createSeasonRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	item, err := h.svc.Seasons.CreateSeason(ctx, usecase.CreateSeasonInput{
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		Rewards: season.Rewards{
			Token:       season.Tier(req.Rewards.Token),
			Sweepstakes: season.Tier(req.Rewards.Sweepstakes),
		},
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create season failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, seasonToDTO(item))
}

func (h *Handler) ListSeasons(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListSeasons")
	defer span.End()

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	items, err := h.svc.Seasons.ListSeasons(ctx, limit)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]seasonDTO, 0, len(items))
	for _, item := range items {
		out = append(out, seasonToDTO(item))
	}
	writeSuccess(ctx, w, http.StatusOK, out)
}

func (h *Handler) DistributeSeasonRewards(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.DistributeSeasonRewards")
	defer span.End()

	seasonID := r.PathValue("seasonID")
	result, err := h.svc.Seasons.DistributeSeasonRewards(ctx, seasonID)
	if err != nil {
		h.logger.ErrorContext(ctx, "distribute season rewards failed", "season_id", seasonID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, result)
}

func (h *Handler) SettleGame(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SettleGame")
	defer span.End()

	gameID := r.PathValue("gameID")
	result, err := h.svc.Settlement.SettleWager(ctx, gameID)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual settlement failed", "game_id", gameID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, settlementToDTO(result))
}

func (h *Handler) GetActivity(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, h.svc.Activity.Snapshot())
}
