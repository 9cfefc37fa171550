package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"pharmtrack/m/domain"
	"pharmtrack/m/internal/restock"
)

// Warehouse-side handlers.

func (h *Handler) listAllRequests(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleWarehouse) {
		return
	}
	requests, err := h.manager.ListAll(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	requests = restock.Filter(requests,
		domain.Status(r.URL.Query().Get("status")),
		domain.Priority(r.URL.Query().Get("priority")))
	respondJSON(w, http.StatusOK, requests)
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleWarehouse) {
		return
	}
	req, err := h.manager.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

type advanceRequestBody struct {
	Status domain.Status `json:"status"`
}

func (h *Handler) advanceRequest(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleWarehouse) {
		return
	}
	var body advanceRequestBody
	if err := decodeJSON(r, &body); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	req, err := h.manager.Advance(r.Context(), chi.URLParam(r, "id"), body.Status)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, req)
}

func (h *Handler) systemWideLowStock(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleWarehouse) {
		return
	}
	medicines, err := h.reports.SystemWideLowStock(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, viewsOf(medicines))
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleWarehouse) {
		return
	}
	ov, err := h.reports.Overview(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ov)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RoleWarehouse) {
		return
	}
	byStatus, err := h.reports.CountsByStatus(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	byPriority, err := h.reports.CountsByPriority(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"by_status":   byStatus,
		"by_priority": byPriority,
	})
}
