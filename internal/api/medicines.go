package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/ledger"
)

// medicineView decorates a medicine with its derived status for rendering.
type medicineView struct {
	domain.Medicine
	StockStatus  domain.StockStatus `json:"stock_status"`
	ExpiringSoon bool               `json:"expiring_soon"`
}

func viewOf(med domain.Medicine, asOf time.Time) medicineView {
	return medicineView{
		Medicine:     med,
		StockStatus:  med.StockStatus(),
		ExpiringSoon: med.ExpiringSoon(asOf),
	}
}

func viewsOf(medicines []domain.Medicine) []medicineView {
	asOf := time.Now()
	views := make([]medicineView, len(medicines))
	for i, med := range medicines {
		views[i] = viewOf(med, asOf)
	}
	return views
}

func (h *Handler) addMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	var in ledger.MedicineInput
	if err := decodeJSON(r, &in); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	med, err := h.ledger.Add(r.Context(), pharmacyIDFromContext(r), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, viewOf(*med, time.Now()))
}

func (h *Handler) listMedicines(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	medicines, err := h.ledger.List(r.Context(), pharmacyIDFromContext(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewsOf(medicines))
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	var upd ledger.MedicineUpdate
	if err := decodeJSON(r, &upd); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	med, err := h.ledger.Update(r.Context(), pharmacyIDFromContext(r), chi.URLParam(r, "id"), upd)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewOf(*med, time.Now()))
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	if err := h.ledger.Delete(r.Context(), pharmacyIDFromContext(r), chi.URLParam(r, "id")); err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listLowStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	medicines, err := h.ledger.ListLowStock(r.Context(), pharmacyIDFromContext(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewsOf(medicines))
}

func (h *Handler) listExpiring(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	days, _ := strconv.Atoi(r.URL.Query().Get("days"))
	medicines, err := h.ledger.ListExpiring(r.Context(), pharmacyIDFromContext(r), time.Now(), days)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewsOf(medicines))
}
