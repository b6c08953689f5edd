package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	admissionapp "community-ledger/internal/admission/application"
	admission "community-ledger/internal/admission/domain"
	"community-ledger/internal/auth"
	masterdata "community-ledger/internal/masterdata/domain"
	"community-ledger/internal/observability/metrics"
)

// AdmissionHandler handles access request filing and resolution.
type AdmissionHandler struct {
	service *admissionapp.Service
	users   admissionapp.UserReader
}

// NewAdmissionHandler constructs a handler.
func NewAdmissionHandler(service *admissionapp.Service, users admissionapp.UserReader) (*AdmissionHandler, error) {
	if service == nil {
		return nil, errors.New("admission handler: nil service")
	}
	if users == nil {
		return nil, errors.New("admission handler: nil user reader")
	}
	return &AdmissionHandler{service: service, users: users}, nil
}

// ServeHTTP handles routes under /api/v1/access-requests.
func (h *AdmissionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/access-requests" && r.Method == http.MethodPost {
		h.handleCreate(w, r)
		return
	}
	if path == "/api/v1/access-requests/pending" && r.Method == http.MethodGet {
		h.handleListPending(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/access-requests/") {
		rest := strings.TrimPrefix(path, "/api/v1/access-requests/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *AdmissionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TelegramID int64  `json:"telegram_id"`
		Message    string `json:"message"`
		Username   string `json:"username"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.TelegramID <= 0 {
		http.Error(w, "telegram_id is required", http.StatusBadRequest)
		return
	}
	request, err := h.service.CreateRequest(r.Context(), req.TelegramID, req.Message, req.Username)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if request == nil {
		// an identical pending request already exists
		respondJSON(w, http.StatusOK, map[string]any{"status": string(admission.StatusPending)})
		return
	}
	respondJSON(w, http.StatusCreated, requestResponse(request))
}

func (h *AdmissionHandler) handleListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.service.ListPending(r.Context())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	rows := make([]map[string]any, 0, len(pending))
	for i := range pending {
		rows = append(rows, requestResponse(&pending[i]))
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *AdmissionHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || r.Method != http.MethodPost {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	admin, err := h.resolveAdmin(r)
	if err != nil {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	switch parts[1] {
	case "approve":
		h.handleApprove(w, r, id, admin)
	case "reject":
		h.handleReject(w, r, id, admin)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *AdmissionHandler) handleApprove(w http.ResponseWriter, r *http.Request, id int64, admin masterdata.User) {
	var req struct {
		UserID *int64 `json:"user_id"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	request, err := h.service.Approve(r.Context(), id, admin, req.UserID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	metrics.IncAdmissionDecision(string(admission.StatusApproved))
	respondJSON(w, http.StatusOK, requestResponse(request))
}

func (h *AdmissionHandler) handleReject(w http.ResponseWriter, r *http.Request, id int64, admin masterdata.User) {
	request, err := h.service.Reject(r.Context(), id, admin)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	metrics.IncAdmissionDecision(string(admission.StatusRejected))
	respondJSON(w, http.StatusOK, requestResponse(request))
}

// resolveAdmin maps the authenticated Telegram identity onto a member record.
func (h *AdmissionHandler) resolveAdmin(r *http.Request) (masterdata.User, error) {
	telegramID := auth.TelegramIDFromContext(r.Context())
	if telegramID == 0 {
		return masterdata.User{}, errors.New("admission handler: no authenticated identity")
	}
	admin, err := h.users.FindByTelegramID(r.Context(), telegramID)
	if err != nil {
		return masterdata.User{}, err
	}
	if admin == nil {
		// authenticated admin without a member record; keep the identity
		return masterdata.User{TelegramID: &telegramID}, nil
	}
	return *admin, nil
}

func requestResponse(request *admission.AccessRequest) map[string]any {
	resp := map[string]any{
		"request_id":  request.ID,
		"telegram_id": request.TelegramID,
		"username":    request.Username,
		"message":     request.Message,
		"status":      string(request.Status),
		"created_at":  request.CreatedAt.Format(time.RFC3339),
	}
	if request.AdminTelegramID != nil {
		resp["admin_telegram_id"] = *request.AdminTelegramID
	}
	if request.AdminResponse != "" {
		resp["admin_response"] = request.AdminResponse
	}
	if request.ResolvedAt != nil {
		resp["resolved_at"] = request.ResolvedAt.Format(time.RFC3339)
	}
	return resp
}
