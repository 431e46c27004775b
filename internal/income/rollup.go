package income

import (
	"sort"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

const monthKeyLayout = "2006-01"

// Rollup combines a main affiliate's income with its children's.
func Rollup(parent domain.AffiliateIncome, children []domain.AffiliateIncome) domain.HierarchyRollup {
	out := domain.HierarchyRollup{
		ParentAffiliateID: parent.AffiliateID,
		ChildAffiliateIDs: make([]string, 0, len(children)),
		ParentTotal:       parent.TotalIncome,
	}
	for _, child := range children {
		out.ChildAffiliateIDs = append(out.ChildAffiliateIDs, child.AffiliateID)
		out.ChildrenTotal += child.TotalIncome
	}
	out.TotalWithSubs = out.ParentTotal + out.ChildrenTotal
	return out
}

// Rollups builds one rollup per main affiliate in h, ordered by parent id.
func Rollups(h Hierarchy, incomes []domain.AffiliateIncome) []domain.HierarchyRollup {
	byID := make(map[string]domain.AffiliateIncome, len(incomes))
	for _, inc := range incomes {
		byID[inc.AffiliateID] = inc
	}

	out := make([]domain.HierarchyRollup, 0, len(h.Main))
	for _, main := range h.Main {
		parent, ok := byID[main.ID]
		if !ok {
			parent = domain.AffiliateIncome{AffiliateID: main.ID}
		}
		children := h.Children(main.ID)
		childIncomes := make([]domain.AffiliateIncome, 0, len(children))
		for _, child := range children {
			if inc, ok := byID[child.ID]; ok {
				childIncomes = append(childIncomes, inc)
			}
		}
		out = append(out, Rollup(parent, childIncomes))
	}
	return out
}

// TopPerformers ranks incomes by TotalIncome descending, breaking ties by
// affiliate id ascending, and keeps at most n entries.
func TopPerformers(incomes []domain.AffiliateIncome, n int) []domain.AffiliateIncome {
	if n <= 0 || len(incomes) == 0 {
		return []domain.AffiliateIncome{}
	}
	ranked := make([]domain.AffiliateIncome, len(incomes))
	copy(ranked, incomes)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].TotalIncome != ranked[j].TotalIncome {
			return ranked[i].TotalIncome > ranked[j].TotalIncome
		}
		return ranked[i].AffiliateID < ranked[j].AffiliateID
	})
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// MonthKey buckets t into its UTC calendar month.
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthKeyLayout)
}

// TrailingMonths lists the month keys of the months ending with now's month, oldest first.
func TrailingMonths(now time.Time, months int) []string {
	if months <= 0 {
		return nil
	}
	now = now.UTC()
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	keys := make([]string, 0, months)
	for i := months - 1; i >= 0; i-- {
		keys = append(keys, current.AddDate(0, -i, 0).Format(monthKeyLayout))
	}
	return keys
}

// MonthlyTrend sums commission amounts per UTC month over the trailing window.
// Every month of the window is present; reversed rows and rows outside the
// window are left out.
func MonthlyTrend(commissions []domain.Commission, now time.Time, months int) map[string]int64 {
	keys := TrailingMonths(now, months)
	trend := make(map[string]int64, len(keys))
	for _, k := range keys {
		trend[k] = 0
	}
	for _, c := range commissions {
		if c.Status == domain.CommissionReversed {
			continue
		}
		key := MonthKey(c.CreatedAt)
		if _, ok := trend[key]; ok {
			trend[key] += c.AmountCents
		}
	}
	return trend
}
