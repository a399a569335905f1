// Package http exposes the marketplace operations to the chat front-end as a
// JSON API. Every route is named; the name selects its security level.
package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"adboard-backend/internal/logger"
	"adboard-backend/internal/security"
	"adboard-backend/internal/service"
)

// Services are the operations the API serves.
type Services struct {
	Accounts  service.AccountService
	Ledger    service.LedgerService
	Channels  service.ChannelService
	Ads       service.AdService
	Sales     service.SaleService
	Funding   service.FundingService
	Placement service.PlacementService
	Staff     service.StaffPolicy
}

type Handler struct {
	svc                Services
	tokens             security.TokenManager
	integrationKeyHash string
}

func NewHandler(svc Services, tokens security.TokenManager, integrationKeyHash string) *Handler {
	return &Handler{svc: svc, tokens: tokens, integrationKeyHash: integrationKeyHash}
}

// NewRouter registers every route on a fresh router.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(logRequests, h.authenticate)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusNotFound, "not_found", "no such route")
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/v1/auth/token", h.issueToken).Methods(http.MethodPost).Name("auth.token")

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/me", h.me).Methods(http.MethodGet).Name("accounts.me")
	v1.HandleFunc("/me/verification", h.updateVerification).Methods(http.MethodPut).Name("accounts.verification")
	v1.HandleFunc("/me/balance", h.balance).Methods(http.MethodGet).Name("ledger.balance")

	v1.HandleFunc("/channels", h.listChannels).Methods(http.MethodGet).Name("channels.list")

	v1.HandleFunc("/ads", h.searchAds).Methods(http.MethodGet).Name("ads.search")
	v1.HandleFunc("/ads", h.submitAd).Methods(http.MethodPost).Name("ads.submit")
	v1.HandleFunc("/ads/mine", h.myAds).Methods(http.MethodGet).Name("ads.mine")
	v1.HandleFunc("/ads/{id:[0-9]+}", h.getAd).Methods(http.MethodGet).Name("ads.get")
	v1.HandleFunc("/ads/{id:[0-9]+}/extension", h.requestExtension).Methods(http.MethodPost).Name("ads.extension")

	v1.HandleFunc("/placements/quote", h.quote).Methods(http.MethodPost).Name("placements.quote")
	v1.HandleFunc("/placements", h.purchase).Methods(http.MethodPost).Name("placements.purchase")
	v1.HandleFunc("/placements/cart", h.cart).Methods(http.MethodGet).Name("placements.cart")
	v1.HandleFunc("/placements/cart", h.abandonCart).Methods(http.MethodDelete).Name("placements.cart.abandon")
	v1.HandleFunc("/placements/cart/picks", h.addPick).Methods(http.MethodPost).Name("placements.cart.add")
	v1.HandleFunc("/placements/cart/picks/{id:[0-9]+}", h.removePick).Methods(http.MethodDelete).Name("placements.cart.remove")
	v1.HandleFunc("/placements/checkout", h.checkout).Methods(http.MethodPost).Name("placements.checkout")

	v1.HandleFunc("/sales", h.reserve).Methods(http.MethodPost).Name("sales.reserve")
	v1.HandleFunc("/sales", h.listSales).Methods(http.MethodGet).Name("sales.list")
	v1.HandleFunc("/sales/{id:[0-9]+}", h.getSale).Methods(http.MethodGet).Name("sales.get")
	v1.HandleFunc("/sales/{id:[0-9]+}/complete", h.completeSale).Methods(http.MethodPost).Name("sales.complete")
	v1.HandleFunc("/sales/{id:[0-9]+}/cancel", h.cancelSale).Methods(http.MethodPost).Name("sales.cancel")

	v1.HandleFunc("/funding", h.listFunding).Methods(http.MethodGet).Name("funding.list")
	v1.HandleFunc("/funding/topups", h.requestTopUp).Methods(http.MethodPost).Name("funding.topup")
	v1.HandleFunc("/funding/withdrawals", h.requestWithdrawal).Methods(http.MethodPost).Name("funding.withdrawal")

	staff := v1.PathPrefix("/staff").Subrouter()
	staff.HandleFunc("/accounts/{id:[0-9]+}/ban", h.ban).Methods(http.MethodPost).Name("staff.accounts.ban")
	staff.HandleFunc("/accounts/{id:[0-9]+}/unban", h.unban).Methods(http.MethodPost).Name("staff.accounts.unban")
	staff.HandleFunc("/accounts/{id:[0-9]+}/balance", h.adjustBalance).Methods(http.MethodPost).Name("staff.ledger.adjust")
	staff.HandleFunc("/broadcast", h.broadcast).Methods(http.MethodPost).Name("staff.broadcast")
	staff.HandleFunc("/channels", h.createChannel).Methods(http.MethodPost).Name("staff.channels.create")
	staff.HandleFunc("/channels/{id:[0-9]+}", h.updateChannel).Methods(http.MethodPut).Name("staff.channels.update")
	staff.HandleFunc("/ads/{id:[0-9]+}/approve", h.approveAd).Methods(http.MethodPost).Name("staff.ads.approve")
	staff.HandleFunc("/ads/{id:[0-9]+}/reject", h.rejectAd).Methods(http.MethodPost).Name("staff.ads.reject")
	staff.HandleFunc("/ads/{id:[0-9]+}/publish", h.publishAd).Methods(http.MethodPost).Name("staff.ads.publish")
	staff.HandleFunc("/ads/{id:[0-9]+}/text", h.editAdText).Methods(http.MethodPut).Name("staff.ads.text")
	staff.HandleFunc("/ads/{id:[0-9]+}/price", h.editAdPrice).Methods(http.MethodPut).Name("staff.ads.price")
	staff.HandleFunc("/ads/{id:[0-9]+}/deactivate", h.deactivateAd).Methods(http.MethodPost).Name("staff.ads.deactivate")
	staff.HandleFunc("/extensions/{id:[0-9]+}/approve", h.approveExtension).Methods(http.MethodPost).Name("staff.extensions.approve")
	staff.HandleFunc("/extensions/{id:[0-9]+}/reject", h.rejectExtension).Methods(http.MethodPost).Name("staff.extensions.reject")
	staff.HandleFunc("/funding/pending", h.pendingFunding).Methods(http.MethodGet).Name("staff.funding.pending")
	staff.HandleFunc("/funding/{id:[0-9]+}/approve", h.approveFunding).Methods(http.MethodPost).Name("staff.funding.approve")
	staff.HandleFunc("/funding/{id:[0-9]+}/reject", h.rejectFunding).Methods(http.MethodPost).Name("staff.funding.reject")

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := ""
		if cur := mux.CurrentRoute(r); cur != nil {
			route = cur.GetName()
		}
		logger.Info("HTTP request", "method", r.Method, "route", route, "path", r.URL.Path,
			"status", rec.status, "duration_ms", time.Since(start).Milliseconds())
	})
}
