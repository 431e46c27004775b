package domain

import "time"

// CommissionStatus tracks a commission through PENDING -> AVAILABLE -> PAID, or REVERSED.
type CommissionStatus string

const (
	CommissionPending   CommissionStatus = "PENDING"
	CommissionAvailable CommissionStatus = "AVAILABLE"
	CommissionPaid      CommissionStatus = "PAID"
	CommissionReversed  CommissionStatus = "REVERSED"
)

func (s CommissionStatus) Valid() bool {
	switch s {
	case CommissionPending, CommissionAvailable, CommissionPaid, CommissionReversed:
		return true
	default:
		return false
	}
}

// CommissionStatuses lists every status in lifecycle order.
var CommissionStatuses = []CommissionStatus{CommissionPending, CommissionAvailable, CommissionPaid, CommissionReversed}

// CanAdvanceTo reports whether a commission may move from s to next. Moves
// only go forward; PAID and REVERSED are final.
func (s CommissionStatus) CanAdvanceTo(next CommissionStatus) bool {
	switch s {
	case CommissionPending:
		return next == CommissionAvailable || next == CommissionPaid || next == CommissionReversed
	case CommissionAvailable:
		return next == CommissionPaid || next == CommissionReversed
	default:
		return false
	}
}

// EventType is the billing event a commission was attributed to.
type EventType string

const (
	EventSubscription EventType = "SUBSCRIPTION"
	EventTransaction  EventType = "TRANSACTION"
	EventRefund       EventType = "REFUND"
)

func (e EventType) Valid() bool {
	switch e {
	case EventSubscription, EventTransaction, EventRefund:
		return true
	default:
		return false
	}
}

// CommissionTier is the marker the billing pipeline writes to tell how the
// commission reached this affiliate's ledger.
//
// PARENT rows sit on a main affiliate's ledger and were earned because one of
// its sub-affiliates referred the purchase. SUB rows sit on a sub-affiliate's
// ledger and were earned through the parent relationship tier.
type CommissionTier string

const (
	TierDirect CommissionTier = "DIRECT"
	TierParent CommissionTier = "PARENT"
	TierSub    CommissionTier = "SUB"
)

func (t CommissionTier) Valid() bool {
	switch t {
	case TierDirect, TierParent, TierSub:
		return true
	default:
		return false
	}
}

// Commission is an immutable ledger entry; only Status moves.
type Commission struct {
	ID          string
	AffiliateID string
	AmountCents int64
	Status      CommissionStatus
	EventType   EventType
	Tier        CommissionTier
	CreatedAt   time.Time
}

// PayoutStatus tracks a funds transfer created by the payout batch job.
type PayoutStatus string

const (
	PayoutCreated PayoutStatus = "CREATED"
	PayoutSent    PayoutStatus = "SENT"
	PayoutFailed  PayoutStatus = "FAILED"
)

func (s PayoutStatus) Valid() bool {
	switch s {
	case PayoutCreated, PayoutSent, PayoutFailed:
		return true
	default:
		return false
	}
}

// Payout records funds sent to an affiliate for a settlement period.
type Payout struct {
	ID                  string
	AffiliateID         string
	AmountCents         int64
	Status              PayoutStatus
	PeriodStart         time.Time
	PeriodEnd           time.Time
	ExternalTransferRef string
}

type AttributionType string

const (
	AttributionUserSignup     AttributionType = "USER_SIGNUP"
	AttributionBusinessSignup AttributionType = "BUSINESS_SIGNUP"
)

func (t AttributionType) Valid() bool {
	return t == AttributionUserSignup || t == AttributionBusinessSignup
}

type AttributionSource string

const (
	SourceReferralLink AttributionSource = "REFERRAL_LINK"
	SourcePromoCode    AttributionSource = "PROMO_CODE"
	SourceManual       AttributionSource = "MANUAL"
)

func (s AttributionSource) Valid() bool {
	switch s {
	case SourceReferralLink, SourcePromoCode, SourceManual:
		return true
	default:
		return false
	}
}

// Attribution links a referred user to the affiliate credited for them.
type Attribution struct {
	ID          string
	UserID      string
	AffiliateID string
	Type        AttributionType
	Source      AttributionSource
	CreatedAt   time.Time
	EndsAt      time.Time
}

// IsActive reports whether the attribution window is still open at now.
func (a Attribution) IsActive(now time.Time) bool {
	return a.EndsAt.After(now)
}
