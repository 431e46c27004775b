package income

import (
	"fmt"
	"sort"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

// InconsistencyKind classifies a record that was excluded from, or adjusted
// during, the income computation.
type InconsistencyKind string

const (
	KindOrphanedParent     InconsistencyKind = "ORPHANED_PARENT"
	KindNestedParent       InconsistencyKind = "NESTED_PARENT"
	KindSelfParent         InconsistencyKind = "SELF_PARENT"
	KindDuplicateAffiliate InconsistencyKind = "DUPLICATE_AFFILIATE"
	KindUnknownAffiliate   InconsistencyKind = "UNKNOWN_AFFILIATE"
	KindTierMismatch       InconsistencyKind = "TIER_MISMATCH"
)

// Inconsistency is reported alongside the computed figures so an operator can
// chase the data problem instead of it being silently reclassified.
type Inconsistency struct {
	Kind        InconsistencyKind `json:"kind"`
	AffiliateID string            `json:"affiliateId"`
	Reference   string            `json:"reference,omitempty"`
	Message     string            `json:"message"`
}

// Hierarchy is the two-level partition of an affiliate set.
type Hierarchy struct {
	Main         []domain.Affiliate
	SubsByParent map[string][]domain.Affiliate
	Rejected     []Inconsistency

	accepted map[string]domain.Affiliate
}

// ResolveHierarchy partitions affiliates into main affiliates and children
// grouped by parent. Every input affiliate ends up in exactly one of Main, a
// single parent's child list, or Rejected.
//
// Sub-affiliates are rejected when their parent is absent from the set, is
// itself a sub-affiliate, or is the affiliate itself. Repeated ids keep the
// first occurrence.
func ResolveHierarchy(affiliates []domain.Affiliate) Hierarchy {
	h := Hierarchy{
		SubsByParent: make(map[string][]domain.Affiliate),
		accepted:     make(map[string]domain.Affiliate, len(affiliates)),
	}

	byID := make(map[string]domain.Affiliate, len(affiliates))
	unique := make([]domain.Affiliate, 0, len(affiliates))
	for _, a := range affiliates {
		if _, seen := byID[a.ID]; seen {
			h.Rejected = append(h.Rejected, Inconsistency{
				Kind:        KindDuplicateAffiliate,
				AffiliateID: a.ID,
				Message:     "affiliate id appears more than once; first occurrence kept",
			})
			continue
		}
		byID[a.ID] = a
		unique = append(unique, a)
	}

	for _, a := range unique {
		if a.IsMain() {
			h.Main = append(h.Main, a)
			h.accepted[a.ID] = a
			continue
		}

		parentID := a.ParentID()
		parent, ok := byID[parentID]
		switch {
		case parentID == a.ID:
			h.Rejected = append(h.Rejected, Inconsistency{
				Kind:        KindSelfParent,
				AffiliateID: a.ID,
				Reference:   parentID,
				Message:     "affiliate declares itself as parent",
			})
		case !ok:
			h.Rejected = append(h.Rejected, Inconsistency{
				Kind:        KindOrphanedParent,
				AffiliateID: a.ID,
				Reference:   parentID,
				Message:     fmt.Sprintf("parent affiliate %q is not in the fetched set", parentID),
			})
		case !parent.IsMain():
			h.Rejected = append(h.Rejected, Inconsistency{
				Kind:        KindNestedParent,
				AffiliateID: a.ID,
				Reference:   parentID,
				Message:     fmt.Sprintf("parent affiliate %q is itself a sub-affiliate; hierarchy depth is capped at 2", parentID),
			})
		default:
			h.SubsByParent[parentID] = append(h.SubsByParent[parentID], a)
			h.accepted[a.ID] = a
		}
	}

	sortAffiliates(h.Main)
	for parentID := range h.SubsByParent {
		sortAffiliates(h.SubsByParent[parentID])
	}
	return h
}

// Lookup returns an accepted affiliate by id.
func (h Hierarchy) Lookup(id string) (domain.Affiliate, bool) {
	a, ok := h.accepted[id]
	return a, ok
}

// Children returns the sub-affiliates attached to parentID.
func (h Hierarchy) Children(parentID string) []domain.Affiliate {
	return h.SubsByParent[parentID]
}

// Accepted returns all affiliates that made it into the hierarchy, ordered by id.
func (h Hierarchy) Accepted() []domain.Affiliate {
	out := make([]domain.Affiliate, 0, len(h.accepted))
	for _, a := range h.accepted {
		out = append(out, a)
	}
	sortAffiliates(out)
	return out
}

// RejectedFor returns the rejection recorded for id, if any.
func (h Hierarchy) RejectedFor(id string) (Inconsistency, bool) {
	for _, r := range h.Rejected {
		if r.AffiliateID == id && r.Kind != KindDuplicateAffiliate {
			return r, true
		}
	}
	return Inconsistency{}, false
}

func sortAffiliates(list []domain.Affiliate) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
