package domain

import "time"

// AffiliateStatus captures whether an affiliate may currently earn commission.
type AffiliateStatus string

const (
	AffiliateStatusActive    AffiliateStatus = "ACTIVE"
	AffiliateStatusSuspended AffiliateStatus = "SUSPENDED"
)

// Valid reports whether the status is one of the known values.
func (s AffiliateStatus) Valid() bool {
	switch s {
	case AffiliateStatusActive, AffiliateStatusSuspended:
		return true
	default:
		return false
	}
}

// HierarchyRole tells whether an affiliate sits at the top of the hierarchy or below a parent.
type HierarchyRole string

const (
	RoleMain HierarchyRole = "MAIN"
	RoleSub  HierarchyRole = "SUB"
)

// Affiliate wraps a marketplace user that is allowed to earn referral commission.
// A nil ParentAffiliateID marks a main affiliate.
type Affiliate struct {
	ID                string
	UserID            string
	Status            AffiliateStatus
	ParentAffiliateID *string
	ReferralCode      string
	PromoCodes        []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsMain reports whether the affiliate has no declared parent.
func (a Affiliate) IsMain() bool {
	return a.ParentAffiliateID == nil || *a.ParentAffiliateID == ""
}

// ParentID returns the declared parent id or an empty string.
func (a Affiliate) ParentID() string {
	if a.ParentAffiliateID == nil {
		return ""
	}
	return *a.ParentAffiliateID
}

// Role derives the hierarchy role from the declared parent.
func (a Affiliate) Role() HierarchyRole {
	if a.IsMain() {
		return RoleMain
	}
	return RoleSub
}
