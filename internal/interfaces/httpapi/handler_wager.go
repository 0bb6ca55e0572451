package httpapi

import (
	"net/http"
	"strings"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
	"github.com/riskibarqy/chess-wager/internal/domain/wager"
	"github.com/riskibarqy/chess-wager/internal/usecase"
)

func (h *Handler) CreateWager(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateWager")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req createWagerRequest
	if err := h.decodeJSON(ctx, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if req.Color == "" {
		req.Color = string(wager.ColorRandom)
	}
	if req.Variant == "" {
		req.Variant = string(wager.VariantStandard)
	}

	change, err := h.svc.Wagers.CreateWager(ctx, usecase.CreateWagerInput{
		CreatorID:     principal.UserID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Color:         req.Color,
		TimeControl:   req.TimeControl,
		Variant:       req.Variant,
		RatingClass:   req.RatingClass,
		TargetMatchID: req.TargetMatchID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "create wager failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, wagerToDTO(change.Wager))
}

func (h *Handler) ListOpenWagers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListOpenWagers")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	q := r.URL.Query()
	items, err := h.svc.Wagers.ListOpenWagers(ctx, wager.OpenFilter{
		Currency:    user.Currency(strings.TrimSpace(q.Get("currency"))),
		Variant:     wager.Variant(strings.TrimSpace(q.Get("variant"))),
		TimeControl: strings.TrimSpace(q.Get("time_control")),
		RatingClass: wager.RatingClass(strings.TrimSpace(q.Get("rating_class"))),
		ExcludeUser: principal.UserID,
		Limit:       limit,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "list open wagers failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, wagersToDTO(items))
}

func (h *Handler) ListMyWagers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMyWagers")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	items, err := h.svc.Wagers.ListUserWagers(ctx, principal.UserID, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "list user wagers failed", "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, wagersToDTO(items))
}

func (h *Handler) GetWager(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetWager")
	defer span.End()

	item, err := h.svc.Wagers.GetWager(ctx, r.PathValue("wagerID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, wagerToDTO(item))
}

func (h *Handler) AcceptWager(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AcceptWager")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	wagerID := r.PathValue("wagerID")
	change, err := h.svc.Matching.AcceptWager(ctx, wagerID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "accept wager failed", "wager_id", wagerID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, wagerToDTO(change.Wager))
}

func (h *Handler) CancelWager(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CancelWager")
	defer span.End()

	principal, err := requirePrincipal(ctx)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	wagerID := r.PathValue("wagerID")
	change, err := h.svc.Wagers.CancelWager(ctx, wagerID, principal.UserID)
	if err != nil {
		h.logger.WarnContext(ctx, "cancel wager failed", "wager_id", wagerID, "user_id", principal.UserID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, wagerToDTO(change.Wager))
}
