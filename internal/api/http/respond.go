package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"

	admission "community-ledger/internal/admission/domain"
	"community-ledger/internal/allocation"
	billing "community-ledger/internal/billing/domain"
	masterdata "community-ledger/internal/masterdata/domain"
	period "community-ledger/internal/period/domain"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondServiceError maps domain errors onto HTTP statuses: validation
// failures to 400, missing resources to 404, lost resolution races to 409.
func respondServiceError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	switch {
	case errors.Is(err, period.ErrPeriodNotFound),
		errors.Is(err, admission.ErrRequestNotFound),
		errors.Is(err, masterdata.ErrUserNotFound),
		errors.Is(err, masterdata.ErrAccountNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, admission.ErrAlreadyResolved):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, period.ErrPeriodClosed),
		errors.Is(err, period.ErrStartNotFirstOfMonth),
		errors.Is(err, period.ErrMonthsOutOfRange),
		errors.Is(err, billing.ErrNoElectricityData),
		errors.Is(err, allocation.ErrNegativeReading),
		errors.Is(err, allocation.ErrEndBeforeStart),
		errors.Is(err, allocation.ErrNonPositiveFactor),
		errors.Is(err, allocation.ErrNegativeLoss),
		errors.Is(err, allocation.ErrNegativeTotal):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
