package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/restock"
)

// Pharmacy-side restock handlers.

func (h *Handler) draftRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	items, err := h.builder.DraftFromLowStock(r.Context(), pharmacyIDFromContext(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"line_items": items})
}

type draftLineItem struct {
	MedicineID        string `json:"medicine_id"`
	RequestedQuantity string `json:"requested_quantity"`
}

type normalizeDraftRequest struct {
	LineItems []draftLineItem `json:"line_items"`
}

// normalizeDraft resolves caller-edited line items against the ledger and
// clamps quantities to the minimum of 1. Medicines that are not low stock
// may be included.
func (h *Handler) normalizeDraft(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	var req normalizeDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	pharmacyID := pharmacyIDFromContext(r)
	items := make([]domain.RequestLineItem, 0, len(req.LineItems))
	for _, li := range req.LineItems {
		med, err := h.ledger.Get(r.Context(), pharmacyID, li.MedicineID)
		if err != nil {
			h.respondServiceError(w, err)
			return
		}
		items = append(items, domain.RequestLineItem{
			MedicineID:        med.ID,
			MedicineName:      med.Name,
			CurrentQuantity:   med.Quantity,
			Threshold:         med.Threshold,
			RequestedQuantity: restock.ClampQuantity(li.RequestedQuantity),
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"line_items": items})
}

type submitRequest struct {
	Medicines           []domain.RequestLineItem `json:"medicines"`
	Priority            domain.Priority          `json:"priority"`
	DeliveryTimeline    string                   `json:"delivery_timeline"`
	SpecialInstructions string                   `json:"special_instructions"`
}

func (h *Handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.builder.Submit(r.Context(), pharmacyIDFromContext(r), req.Medicines, req.Priority, req.DeliveryTimeline, req.SpecialInstructions)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) listOwnRequests(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	requests, err := h.manager.ListByPharmacy(r.Context(), pharmacyIDFromContext(r))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	requests = restock.Filter(requests,
		domain.Status(r.URL.Query().Get("status")),
		domain.Priority(r.URL.Query().Get("priority")))
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) getOwnRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	req, err := h.manager.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if req.PharmacyID != pharmacyIDFromContext(r) {
		respondError(w, http.StatusForbidden, "request does not belong to your pharmacy")
		return
	}
	respondJSON(w, http.StatusOK, req)
}
