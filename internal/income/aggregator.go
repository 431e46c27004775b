package income

import (
	"fmt"
	"sort"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

// Aggregate folds every ledger row that belongs to affiliateID into an income
// summary. Tier breakdowns follow the row's tier marker as written.
func Aggregate(affiliateID string, commissions []domain.Commission, payouts []domain.Payout) domain.AffiliateIncome {
	inc := domain.AffiliateIncome{AffiliateID: affiliateID}
	for _, c := range commissions {
		if c.AffiliateID == affiliateID {
			foldCommission(&inc, c)
		}
	}
	for _, p := range payouts {
		if p.AffiliateID == affiliateID {
			foldPayout(&inc, p)
		}
	}
	finalize(&inc)
	return inc
}

// AggregateAll computes an income summary for every affiliate accepted into h
// in one pass over each ledger. Rows for affiliates outside the hierarchy and
// tier markers that contradict the affiliate's role are reported rather than
// counted silently. The result is ordered by affiliate id.
func AggregateAll(h Hierarchy, commissions []domain.Commission, payouts []domain.Payout) ([]domain.AffiliateIncome, []Inconsistency) {
	accepted := h.Accepted()
	byID := make(map[string]*domain.AffiliateIncome, len(accepted))
	incomes := make([]domain.AffiliateIncome, len(accepted))
	for i, a := range accepted {
		incomes[i] = domain.AffiliateIncome{
			AffiliateID:       a.ID,
			ParentAffiliateID: a.ParentID(),
			Role:              a.Role(),
			Status:            a.Status,
		}
		byID[a.ID] = &incomes[i]
	}

	var issues []Inconsistency
	unknownCommissions := make(map[string]int)
	unknownPayouts := make(map[string]int)
	tierMismatches := make(map[string]int)

	for _, c := range commissions {
		inc, ok := byID[c.AffiliateID]
		if !ok {
			unknownCommissions[c.AffiliateID]++
			continue
		}
		if tierContradictsRole(c.Tier, inc.Role) {
			tierMismatches[c.AffiliateID]++
			c.Tier = domain.TierDirect
		}
		foldCommission(inc, c)
	}
	for _, p := range payouts {
		inc, ok := byID[p.AffiliateID]
		if !ok {
			unknownPayouts[p.AffiliateID]++
			continue
		}
		foldPayout(inc, p)
	}

	for i := range incomes {
		finalize(&incomes[i])
	}

	for _, id := range sortedKeys(unknownCommissions) {
		issues = append(issues, Inconsistency{
			Kind:        KindUnknownAffiliate,
			AffiliateID: id,
			Reference:   "commissions",
			Message:     fmt.Sprintf("%d commission rows reference an affiliate outside the resolved hierarchy", unknownCommissions[id]),
		})
	}
	for _, id := range sortedKeys(unknownPayouts) {
		issues = append(issues, Inconsistency{
			Kind:        KindUnknownAffiliate,
			AffiliateID: id,
			Reference:   "payouts",
			Message:     fmt.Sprintf("%d payout rows reference an affiliate outside the resolved hierarchy", unknownPayouts[id]),
		})
	}
	for _, id := range sortedKeys(tierMismatches) {
		issues = append(issues, Inconsistency{
			Kind:        KindTierMismatch,
			AffiliateID: id,
			Reference:   "commissions",
			Message:     fmt.Sprintf("%d commission rows carry a tier marker that does not match the affiliate's role; counted as direct", tierMismatches[id]),
		})
	}

	return incomes, issues
}

func foldCommission(inc *domain.AffiliateIncome, c domain.Commission) {
	inc.CommissionCount++
	amount := c.AmountCents

	switch c.Status {
	case domain.CommissionReversed:
		inc.Reversed += amount
		return
	case domain.CommissionPaid:
		inc.PaidOut += amount
	case domain.CommissionPending:
		inc.Pending += amount
	case domain.CommissionAvailable:
		inc.Available += amount
	}

	switch c.EventType {
	case domain.EventSubscription:
		inc.DirectSubscriptionIncome += amount
		switch c.Tier {
		case domain.TierParent:
			inc.ParentSubscriptionIncome += amount
		case domain.TierSub:
			inc.SubSubscriptionIncome += amount
		}
	case domain.EventTransaction:
		inc.DirectTransactionIncome += amount
		switch c.Tier {
		case domain.TierParent:
			inc.ParentTransactionIncome += amount
		case domain.TierSub:
			inc.SubTransactionIncome += amount
		}
	case domain.EventRefund:
		inc.RefundAmount -= amount
	}
}

func foldPayout(inc *domain.AffiliateIncome, p domain.Payout) {
	inc.PayoutCount++
	switch p.Status {
	case domain.PayoutSent:
		inc.Transferred += p.AmountCents
	case domain.PayoutCreated:
		inc.PayoutsInFlight += p.AmountCents
	case domain.PayoutFailed:
		inc.FailedPayouts += p.AmountCents
	}
}

func finalize(inc *domain.AffiliateIncome) {
	inc.TotalIncome = inc.DirectSubscriptionIncome + inc.DirectTransactionIncome - inc.RefundAmount
}

// PARENT rows only make sense on a main affiliate's ledger and SUB rows only on
// a sub-affiliate's.
func tierContradictsRole(tier domain.CommissionTier, role domain.HierarchyRole) bool {
	switch tier {
	case domain.TierParent:
		return role != domain.RoleMain
	case domain.TierSub:
		return role != domain.RoleSub
	default:
		return false
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
