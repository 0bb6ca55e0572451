package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metrics http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}
}

func registerPlayerRoutes(mux *http.ServeMux, handler *Handler, verifier TokenVerifier) {
	authed := func(fn http.HandlerFunc) http.Handler {
		return RequireAuth(verifier, fn)
	}

	mux.Handle("POST /v1/wagers", authed(handler.CreateWager))
	mux.Handle("GET /v1/wagers/open", authed(handler.ListOpenWagers))
	mux.Handle("GET /v1/wagers/me", authed(handler.ListMyWagers))
	mux.Handle("GET /v1/wagers/{wagerID}", authed(handler.GetWager))
	mux.Handle("POST /v1/wagers/{wagerID}/accept", authed(handler.AcceptWager))
	mux.Handle("POST /v1/wagers/{wagerID}/cancel", authed(handler.CancelWager))

	mux.HandleFunc("GET /v1/seasons/active", handler.GetActiveSeason)
	mux.HandleFunc("GET /v1/seasons/{seasonID}/leaderboard", handler.GetLeaderboard)
	mux.Handle("GET /v1/seasons/{seasonID}/stats/me", authed(handler.GetMySeasonStats))
}

func registerAdminRoutes(mux *http.ServeMux, handler *Handler, adminToken string) {
	admin := func(fn http.HandlerFunc) http.Handler {
		return RequireAdminToken(adminToken, fn)
	}

	mux.Handle("POST /v1/admin/sweeps/expire", admin(handler.RunExpireSweep))
	mux.Handle("POST /v1/admin/sweeps/settle", admin(handler.RunSettleSweep))
	mux.Handle("POST /v1/admin/seasons/check", admin(handler.RunSeasonCheck))
	mux.Handle("POST /v1/admin/seasons", admin(handler.CreateSeason))
	mux.Handle("GET /v1/admin/seasons", admin(handler.ListSeasons))
	mux.Handle("POST /v1/admin/seasons/{seasonID}/rewards", admin(handler.DistributeSeasonRewards))
	mux.Handle("POST /v1/admin/wagers/settle/{gameID}", admin(handler.SettleGame))
	mux.Handle("GET /v1/admin/activity", admin(handler.GetActivity))
}
