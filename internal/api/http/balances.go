package apihttp

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	balanceapp "community-ledger/internal/balance/application"
	"community-ledger/internal/observability/metrics"
)

// BalanceHandler serves account and member balance queries.
type BalanceHandler struct {
	service *balanceapp.Service
}

// NewBalanceHandler constructs a handler.
func NewBalanceHandler(service *balanceapp.Service) (*BalanceHandler, error) {
	if service == nil {
		return nil, errors.New("balance handler: nil service")
	}
	return &BalanceHandler{service: service}, nil
}

// ServeHTTP handles routes under /api/v1/balances.
func (h *BalanceHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := r.URL.Path
	if path == "/api/v1/balances/users" {
		h.handleUserBatch(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/balances/accounts/") {
		rest := strings.TrimPrefix(path, "/api/v1/balances/accounts/")
		h.handleAccount(w, r, rest)
		return
	}
	if strings.HasPrefix(path, "/api/v1/balances/users/") {
		rest := strings.TrimPrefix(path, "/api/v1/balances/users/")
		h.handleUser(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *BalanceHandler) handleAccount(w http.ResponseWriter, r *http.Request, rest string) {
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid account id", http.StatusBadRequest)
		return
	}
	start := time.Now()
	result, err := h.service.AccountBalanceWithDisplay(r.Context(), id)
	if err != nil {
		metrics.ObserveBalanceQuery(metrics.ResultError, time.Since(start))
		respondServiceError(w, err)
		return
	}
	metrics.ObserveBalanceQuery(metrics.ResultSuccess, time.Since(start))
	respondJSON(w, http.StatusOK, result)
}

func (h *BalanceHandler) handleUser(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	if len(parts) == 2 && parts[1] == "bills" {
		h.handleUserBills(w, r, id)
		return
	}
	if len(parts) != 1 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	start := time.Now()
	balance, err := h.service.UserBalance(r.Context(), id)
	if err != nil {
		metrics.ObserveBalanceQuery(metrics.ResultError, time.Since(start))
		respondServiceError(w, err)
		return
	}
	metrics.ObserveBalanceQuery(metrics.ResultSuccess, time.Since(start))
	respondJSON(w, http.StatusOK, map[string]any{"user_id": id, "balance": balance.StringFixed(2)})
}

func (h *BalanceHandler) handleUserBills(w http.ResponseWriter, r *http.Request, id int64) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	bills, err := h.service.ListBillsForUser(r.Context(), id, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bills)
}

// handleUserBatch serves GET /api/v1/balances/users?ids=1,2,3.
func (h *BalanceHandler) handleUserBatch(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if raw == "" {
		http.Error(w, "ids is required", http.StatusBadRequest)
		return
	}
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid user id "+part, http.StatusBadRequest)
			return
		}
		ids = append(ids, id)
	}
	start := time.Now()
	balances, err := h.service.UserBalances(r.Context(), ids)
	if err != nil {
		metrics.ObserveBalanceQuery(metrics.ResultError, time.Since(start))
		respondServiceError(w, err)
		return
	}
	metrics.ObserveBalanceQuery(metrics.ResultSuccess, time.Since(start))
	resp := make(map[string]string, len(balances))
	for id, balance := range balances {
		resp[strconv.FormatInt(id, 10)] = balance.StringFixed(2)
	}
	respondJSON(w, http.StatusOK, resp)
}
