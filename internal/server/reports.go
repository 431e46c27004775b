package server

import (
	"net/http"
	"net/url"

	"github.com/vanshika/affiliatedesk/internal/service"
)

const cacheHeader = "X-Report-Cache"

func reportParams(query url.Values) service.ReportParams {
	return service.ReportParams{
		Search:    query.Get("search"),
		Status:    query.Get("status"),
		Role:      query.Get("role"),
		ParentID:  query.Get("parentId"),
		From:      query.Get("from"),
		To:        query.Get("to"),
		SortField: query.Get("sortField"),
		SortOrder: query.Get("sortOrder"),
		Refresh:   parseBool(query.Get("refresh")),
	}
}

func (h *APIHandlers) incomeReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.IncomeReport(r.Context(), reportParams(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err, "failed to build income report")
		return
	}
	w.Header().Set(cacheHeader, cacheState(result.Cached))
	respondJSON(w, http.StatusOK, reportResponse{
		Report:   result.Report,
		Currency: h.currency,
		Cached:   result.Cached,
	})
}

func (h *APIHandlers) computeReport(w http.ResponseWriter, r *http.Request) {
	var snapshot service.SnapshotInput
	if err := decodeJSON(w, r, &snapshot); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	report, err := h.service.ComputeReport(r.Context(), snapshot, reportParams(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err, "failed to compute income report")
		return
	}
	respondJSON(w, http.StatusOK, reportResponse{Report: report, Currency: h.currency})
}

func (h *APIHandlers) affiliateIncome(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.AffiliateIncome(r.Context(), r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err, "failed to compute affiliate income")
		return
	}
	respondJSON(w, http.StatusOK, affiliateIncomeResponse{
		Affiliate:       newAffiliateResponse(view.Affiliate),
		Income:          view.Income,
		Rollup:          view.Rollup,
		MonthlyTrend:    view.Trend,
		Inconsistencies: view.Inconsistencies,
		Currency:        h.currency,
	})
}

func cacheState(cached bool) string {
	if cached {
		return "hit"
	}
	return "miss"
}
