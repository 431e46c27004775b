package server

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/vanshika/affiliatedesk/internal/money"
)

func wantsJSON(r *http.Request) bool {
	return strings.EqualFold(r.URL.Query().Get("format"), "json")
}

func (h *APIHandlers) exportIncomes(w http.ResponseWriter, r *http.Request) {
	incomes, err := h.service.ExportIncomes(r.Context(), reportParams(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err, "failed to export incomes")
		return
	}
	if wantsJSON(r) {
		respondJSON(w, http.StatusOK, incomes)
		return
	}

	rows := [][]string{{
		"affiliateId", "parentAffiliateId", "role", "status",
		"directSubscriptionIncome", "directTransactionIncome", "refundAmount", "totalIncome",
		"paidOut", "pending", "available", "reversed", "transferred", "commissionCount",
	}}
	for _, inc := range incomes {
		rows = append(rows, []string{
			inc.AffiliateID,
			inc.ParentAffiliateID,
			string(inc.Role),
			string(inc.Status),
			money.Format(inc.DirectSubscriptionIncome, h.currency),
			money.Format(inc.DirectTransactionIncome, h.currency),
			money.Format(inc.RefundAmount, h.currency),
			money.Format(inc.TotalIncome, h.currency),
			money.Format(inc.PaidOut, h.currency),
			money.Format(inc.Pending, h.currency),
			money.Format(inc.Available, h.currency),
			money.Format(inc.Reversed, h.currency),
			money.Format(inc.Transferred, h.currency),
			strconv.Itoa(inc.CommissionCount),
		})
	}
	h.writeCSV(w, r, "affiliate-incomes.csv", rows)
}

func (h *APIHandlers) exportCommissions(w http.ResponseWriter, r *http.Request) {
	commissions, err := h.service.ExportCommissions(r.Context(), reportParams(r.URL.Query()))
	if err != nil {
		h.fail(w, r, err, "failed to export commissions")
		return
	}
	if wantsJSON(r) {
		out := make([]commissionResponse, 0, len(commissions))
		for _, c := range commissions {
			out = append(out, newCommissionResponse(c))
		}
		respondJSON(w, http.StatusOK, out)
		return
	}

	rows := [][]string{{"id", "affiliateId", "eventType", "tier", "status", "amount", "createdAt"}}
	for _, c := range commissions {
		rows = append(rows, []string{
			c.ID,
			c.AffiliateID,
			string(c.EventType),
			string(c.Tier),
			string(c.Status),
			money.Format(c.AmountCents, h.currency),
			formatTime(c.CreatedAt),
		})
	}
	h.writeCSV(w, r, "commissions.csv", rows)
}

func (h *APIHandlers) writeCSV(w http.ResponseWriter, r *http.Request, filename string, rows [][]string) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		h.logger.Error("failed to write csv export", "error", err, "file", filename, "request_id", requestIDFrom(r.Context()))
	}
}
