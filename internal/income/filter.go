package income

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

// Filter is the dashboard's search/status/date-range state. It is a value:
// callers build one per request and pass it to the pure helpers below.
type Filter struct {
	Search      string
	Status      domain.AffiliateStatus
	Role        domain.HierarchyRole
	ParentID    string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortField   string
	SortOrder   string
}

// WindowCommissions keeps commissions created within [CreatedFrom, CreatedTo].
func (f Filter) WindowCommissions(commissions []domain.Commission) []domain.Commission {
	if f.CreatedFrom == nil && f.CreatedTo == nil {
		return commissions
	}
	out := make([]domain.Commission, 0, len(commissions))
	for _, c := range commissions {
		if f.CreatedFrom != nil && c.CreatedAt.Before(*f.CreatedFrom) {
			continue
		}
		if f.CreatedTo != nil && c.CreatedAt.After(*f.CreatedTo) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// WindowKey identifies the ledger window the filter selects.
func (f Filter) WindowKey() string {
	return fmt.Sprintf("%s_%s", formatBound(f.CreatedFrom), formatBound(f.CreatedTo))
}

// Apply returns the incomes matching the filter, sorted as requested. The
// input slice is not modified.
func (f Filter) Apply(incomes []domain.AffiliateIncome) []domain.AffiliateIncome {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]domain.AffiliateIncome, 0, len(incomes))
	for _, inc := range incomes {
		if f.Status != "" && inc.Status != f.Status {
			continue
		}
		if f.Role != "" && inc.Role != f.Role {
			continue
		}
		if f.ParentID != "" && inc.ParentAffiliateID != f.ParentID && inc.AffiliateID != f.ParentID {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(inc.AffiliateID), search) &&
			!strings.Contains(strings.ToLower(inc.ParentAffiliateID), search) {
			continue
		}
		out = append(out, inc)
	}

	key, desc := sortKey(f.SortField, f.SortOrder)
	sort.SliceStable(out, func(i, j int) bool {
		if key != nil {
			if a, b := key(out[i]), key(out[j]); a != b {
				if desc {
					return a > b
				}
				return a < b
			}
		} else if desc {
			return out[i].AffiliateID > out[j].AffiliateID
		}
		return out[i].AffiliateID < out[j].AffiliateID
	})
	return out
}

func sortKey(field, order string) (func(domain.AffiliateIncome) int64, bool) {
	desc := !strings.EqualFold(order, "ASC")
	switch strings.ToLower(field) {
	case "paidout":
		return func(i domain.AffiliateIncome) int64 { return i.PaidOut }, desc
	case "pending":
		return func(i domain.AffiliateIncome) int64 { return i.Pending }, desc
	case "available":
		return func(i domain.AffiliateIncome) int64 { return i.Available }, desc
	case "refundamount":
		return func(i domain.AffiliateIncome) int64 { return i.RefundAmount }, desc
	case "commissioncount":
		return func(i domain.AffiliateIncome) int64 { return int64(i.CommissionCount) }, desc
	case "affiliateid":
		return nil, strings.EqualFold(order, "DESC")
	default:
		return func(i domain.AffiliateIncome) int64 { return i.TotalIncome }, desc
	}
}

func formatBound(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
