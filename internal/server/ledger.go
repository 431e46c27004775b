package server

import (
	"net/http"

	"github.com/vanshika/affiliatedesk/internal/service"
)

func (h *APIHandlers) listCommissions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.ListCommissions(r.Context(), service.ListCommissionsParams{
		Page:        parseInt(query.Get("page"), 1),
		PageSize:    parseInt(query.Get("pageSize"), 50),
		AffiliateID: query.Get("affiliateId"),
		Status:      query.Get("status"),
		EventType:   query.Get("eventType"),
		Tier:        query.Get("tier"),
		From:        query.Get("from"),
		To:          query.Get("to"),
		SortField:   query.Get("sortField"),
		SortOrder:   query.Get("sortOrder"),
	})
	if err != nil {
		h.fail(w, r, err, "failed to list commissions")
		return
	}
	resp := listCommissionsResponse{
		Items:      make([]commissionResponse, 0, len(result.Items)),
		Pagination: newPaginationResponse(result.Pagination),
	}
	for _, c := range result.Items {
		resp.Items = append(resp.Items, newCommissionResponse(c))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) listPayouts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.ListPayouts(r.Context(), service.ListPayoutsParams{
		Page:        parseInt(query.Get("page"), 1),
		PageSize:    parseInt(query.Get("pageSize"), 50),
		AffiliateID: query.Get("affiliateId"),
		Status:      query.Get("status"),
		SortField:   query.Get("sortField"),
		SortOrder:   query.Get("sortOrder"),
	})
	if err != nil {
		h.fail(w, r, err, "failed to list payouts")
		return
	}
	resp := listPayoutsResponse{
		Items:      make([]payoutResponse, 0, len(result.Items)),
		Pagination: newPaginationResponse(result.Pagination),
	}
	for _, p := range result.Items {
		resp.Items = append(resp.Items, newPayoutResponse(p))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) listAttributions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := h.service.ListAttributions(r.Context(), service.ListAttributionsParams{
		Page:        parseInt(query.Get("page"), 1),
		PageSize:    parseInt(query.Get("pageSize"), 50),
		AffiliateID: query.Get("affiliateId"),
		UserID:      query.Get("userId"),
		Source:      query.Get("source"),
		ActiveOnly:  parseBool(query.Get("active")),
	})
	if err != nil {
		h.fail(w, r, err, "failed to list attributions")
		return
	}
	resp := listAttributionsResponse{
		Items:      make([]attributionResponse, 0, len(result.Items)),
		Pagination: newPaginationResponse(result.Pagination),
	}
	for _, a := range result.Items {
		resp.Items = append(resp.Items, newAttributionResponse(a))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) linkAttribution(w http.ResponseWriter, r *http.Request) {
	var payload service.AttributionInput
	if err := decodeJSON(w, r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a, err := h.service.LinkAttribution(r.Context(), payload)
	if err != nil {
		h.fail(w, r, err, "failed to link attribution")
		return
	}
	respondJSON(w, http.StatusCreated, newAttributionResponse(a))
}
