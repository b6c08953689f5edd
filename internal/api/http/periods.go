package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"community-ledger/internal/auth"
	billingapp "community-ledger/internal/billing/application"
	billing "community-ledger/internal/billing/domain"
	billinginterfaces "community-ledger/internal/billing/interfaces"
	"community-ledger/internal/observability/metrics"
	periodapp "community-ledger/internal/period/application"
	period "community-ledger/internal/period/domain"
)

const dateLayout = "2006-01-02"

// AccountNamer resolves account display names for statement exports.
type AccountNamer interface {
	Name(ctx context.Context, accountID int64) string
}

// PeriodHandler handles the service period lifecycle and period billing.
type PeriodHandler struct {
	periods  *periodapp.Service
	billing  *billingapp.Service
	accounts AccountNamer
}

// NewPeriodHandler constructs a handler.
func NewPeriodHandler(periods *periodapp.Service, billingService *billingapp.Service, accounts AccountNamer) (*PeriodHandler, error) {
	if periods == nil {
		return nil, errors.New("period handler: nil period service")
	}
	if billingService == nil {
		return nil, errors.New("period handler: nil billing service")
	}
	return &PeriodHandler{periods: periods, billing: billingService, accounts: accounts}, nil
}

// ServeHTTP handles routes under /api/v1/periods.
func (h *PeriodHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if path == "/api/v1/periods" {
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r)
		case http.MethodGet:
			h.handleList(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}
	if path == "/api/v1/periods/defaults" && r.Method == http.MethodGet {
		h.handleDefaults(w, r)
		return
	}
	if strings.HasPrefix(path, "/api/v1/periods/") {
		rest := strings.TrimPrefix(path, "/api/v1/periods/")
		h.handleByID(w, r, rest)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *PeriodHandler) handleByID(w http.ResponseWriter, r *http.Request, rest string) {
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid period id", http.StatusBadRequest)
		return
	}
	if len(parts) == 1 && r.Method == http.MethodGet {
		h.handleGet(w, r, id)
		return
	}
	if len(parts) == 2 {
		switch parts[1] {
		case "close":
			if r.Method == http.MethodPost {
				h.handleClose(w, r, id)
				return
			}
		case "electricity":
			if r.Method == http.MethodPut {
				h.handleElectricity(w, r, id)
				return
			}
		case "budgets":
			if r.Method == http.MethodPut {
				h.handleBudgets(w, r, id)
				return
			}
		case "billing-run":
			if r.Method == http.MethodPost {
				h.handleBillingRun(w, r, id)
				return
			}
		case "shared-electricity":
			if r.Method == http.MethodPost {
				h.handleSharedElectricity(w, r, id)
				return
			}
		case "bills":
			if r.Method == http.MethodGet {
				h.handleBills(w, r, id)
				return
			}
		case "statement.pdf":
			if r.Method == http.MethodGet {
				h.handleStatement(w, r, id, "pdf")
				return
			}
		case "statement.xlsx":
			if r.Method == http.MethodGet {
				h.handleStatement(w, r, id, "xlsx")
				return
			}
		}
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *PeriodHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StartDate    string `json:"start_date"`
		PeriodMonths int    `json:"period_months"`
		Name         string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	startDate, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	p, err := h.periods.Create(r.Context(), startDate, req.PeriodMonths, req.Name, actorFromContext(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, periodResponse(p))
}

func (h *PeriodHandler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	list, err := h.periods.ListInfo(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *PeriodHandler) handleDefaults(w http.ResponseWriter, r *http.Request) {
	startDate, err := time.Parse(dateLayout, r.URL.Query().Get("start_date"))
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	defaults, err := h.periods.PreviousPeriodDefaults(r.Context(), startDate)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	resp := map[string]any{
		"electricity_end":        decimalString(defaults.ElectricityEnd),
		"electricity_multiplier": decimalString(defaults.ElectricityMultiplier),
		"electricity_rate":       decimalString(defaults.ElectricityRate),
		"electricity_loss_ratio": decimalString(defaults.ElectricityLossRatio),
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *PeriodHandler) handleGet(w http.ResponseWriter, r *http.Request, id int64) {
	p, err := h.periods.GetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, periodResponse(p))
}

func (h *PeriodHandler) handleClose(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.periods.Close(r.Context(), id, actorFromContext(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"period_id": id, "status": string(period.StatusClosed)})
}

func (h *PeriodHandler) handleElectricity(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		Start      string `json:"start"`
		End        string `json:"end"`
		Multiplier string `json:"multiplier"`
		Rate       string `json:"rate"`
		LossRatio  string `json:"loss_ratio"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	readings := period.ElectricityReadings{}
	for _, field := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{req.Start, &readings.Start},
		{req.End, &readings.End},
		{req.Multiplier, &readings.Multiplier},
		{req.Rate, &readings.Rate},
		{req.LossRatio, &readings.LossRatio},
	} {
		d, err := decimal.NewFromString(field.raw)
		if err != nil {
			http.Error(w, "invalid decimal value", http.StatusBadRequest)
			return
		}
		*field.dst = d
	}
	if err := h.periods.UpdateElectricity(r.Context(), id, readings, actorFromContext(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"period_id": id})
}

func (h *PeriodHandler) handleBudgets(w http.ResponseWriter, r *http.Request, id int64) {
	var req struct {
		YearBudget             string `json:"year_budget"`
		ConservationYearBudget string `json:"conservation_year_budget"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	yearBudget, err := decimal.NewFromString(req.YearBudget)
	if err != nil {
		http.Error(w, "invalid year_budget", http.StatusBadRequest)
		return
	}
	conservation, err := decimal.NewFromString(req.ConservationYearBudget)
	if err != nil {
		http.Error(w, "invalid conservation_year_budget", http.StatusBadRequest)
		return
	}
	if err := h.periods.UpdateBudgets(r.Context(), id, yearBudget, conservation, actorFromContext(r)); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"period_id": id})
}

func (h *PeriodHandler) handleBillingRun(w http.ResponseWriter, r *http.Request, id int64) {
	start := time.Now()
	result, err := h.billing.RunPeriodBilling(r.Context(), id, actorFromContext(r))
	if err != nil {
		metrics.ObserveBillingRun(metrics.ResultError, time.Since(start))
		respondServiceError(w, err)
		return
	}
	metrics.ObserveBillingRun(metrics.ResultSuccess, time.Since(start))
	metrics.AddBillsCreated(string(billing.TypeMain), result.MainBills)
	metrics.AddBillsCreated(string(billing.TypeConservation), result.ConservationBills)
	metrics.AddBillsCreated(string(billing.TypeSharedElectricity), result.SharedElectricityBills)
	respondJSON(w, http.StatusOK, result)
}

func (h *PeriodHandler) handleSharedElectricity(w http.ResponseWriter, r *http.Request, id int64) {
	result, err := h.billing.RunSharedElectricity(r.Context(), id, actorFromContext(r))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	metrics.AddBillsCreated(string(billing.TypeSharedElectricity), result.SharedElectricityBills)
	respondJSON(w, http.StatusOK, result)
}

func (h *PeriodHandler) handleBills(w http.ResponseWriter, r *http.Request, id int64) {
	bills, err := h.billing.ListByPeriod(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	rows := make([]map[string]any, 0, len(bills))
	for _, bill := range bills {
		rows = append(rows, map[string]any{
			"bill_id":     bill.ID,
			"target_kind": string(bill.Target.Kind),
			"target_id":   bill.Target.ID,
			"bill_type":   string(bill.Type),
			"amount":      bill.Amount.StringFixed(2),
			"created_at":  bill.CreatedAt.Format(time.RFC3339),
		})
	}
	respondJSON(w, http.StatusOK, rows)
}

func (h *PeriodHandler) handleStatement(w http.ResponseWriter, r *http.Request, id int64, format string) {
	start := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveStatementExport(format, result, time.Since(start))
	}()

	p, err := h.periods.GetByID(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	bills, err := h.billing.ListByPeriod(r.Context(), id)
	if err != nil {
		result = metrics.ResultError
		respondServiceError(w, err)
		return
	}
	labeler := h.targetLabeler(r.Context())

	var data []byte
	var contentType string
	switch format {
	case "pdf":
		data, err = billinginterfaces.BuildPeriodStatementPDF(p, bills, labeler)
		contentType = "application/pdf"
	default:
		data, err = billinginterfaces.BuildPeriodStatementXLSX(p, bills, labeler)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	if err != nil {
		result = metrics.ResultError
		http.Error(w, "export error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *PeriodHandler) targetLabeler(ctx context.Context) billinginterfaces.TargetLabeler {
	if h.accounts == nil {
		return nil
	}
	return func(target billing.BillTarget) string {
		if target.Kind != billing.TargetAccount {
			return ""
		}
		return h.accounts.Name(ctx, target.ID)
	}
}

func periodResponse(p *period.ServicePeriod) map[string]any {
	resp := map[string]any{
		"period_id":     p.ID,
		"name":          p.Name,
		"start_date":    p.StartDate.Format(dateLayout),
		"end_date":      p.EndDate.Format(dateLayout),
		"status":        string(p.Status),
		"period_months": p.PeriodMonths,
	}
	if p.YearBudget != nil {
		resp["year_budget"] = p.YearBudget.StringFixed(2)
	}
	if p.ConservationYearBudget != nil {
		resp["conservation_year_budget"] = p.ConservationYearBudget.StringFixed(2)
	}
	if p.Electricity != nil {
		resp["electricity"] = map[string]string{
			"start":      p.Electricity.Start.String(),
			"end":        p.Electricity.End.String(),
			"multiplier": p.Electricity.Multiplier.String(),
			"rate":       p.Electricity.Rate.String(),
			"loss_ratio": p.Electricity.LossRatio.String(),
		}
	}
	return resp
}

func decimalString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// actorFromContext resolves the caller's Telegram id for audit attribution.
// Unauthenticated callers yield nil.
func actorFromContext(r *http.Request) *int64 {
	telegramID := auth.TelegramIDFromContext(r.Context())
	if telegramID == 0 {
		return nil
	}
	return &telegramID
}
