package service

import (
	"fmt"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/income"
)

// AffiliateInput is the inbound affiliate record accepted by ingestion and the
// compute endpoint. A null, absent or blank parentAffiliateId marks a main
// affiliate.
type AffiliateInput struct {
	ID                string     `json:"id"`
	UserID            string     `json:"userId"`
	Status            string     `json:"status"`
	ParentAffiliateID *string    `json:"parentAffiliateId"`
	ReferralCode      string     `json:"referralCode,omitempty"`
	PromoCodes        []string   `json:"promoCodes,omitempty"`
	CreatedAt         *time.Time `json:"createdAt,omitempty"`
	UpdatedAt         *time.Time `json:"updatedAt,omitempty"`
}

// CommissionInput carries one commission ledger row. AmountCents is a pointer
// so an absent amount is reported instead of read as zero.
type CommissionInput struct {
	ID          string     `json:"id"`
	AffiliateID string     `json:"affiliateId"`
	AmountCents *int64     `json:"amountCents"`
	Status      string     `json:"status"`
	EventType   string     `json:"eventType"`
	Tier        string     `json:"tier,omitempty"`
	CreatedAt   *time.Time `json:"createdAt"`
}

// PayoutInput carries one payout ledger row.
type PayoutInput struct {
	ID                  string     `json:"id"`
	AffiliateID         string     `json:"affiliateId"`
	AmountCents         *int64     `json:"amountCents"`
	Status              string     `json:"status"`
	PeriodStart         *time.Time `json:"periodStart"`
	PeriodEnd           *time.Time `json:"periodEnd"`
	ExternalTransferRef string     `json:"externalTransferRef,omitempty"`
}

// AttributionInput links a referred user to an affiliate.
type AttributionInput struct {
	ID          string     `json:"id,omitempty"`
	UserID      string     `json:"userId"`
	AffiliateID string     `json:"affiliateId"`
	Type        string     `json:"type"`
	Source      string     `json:"source"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	EndsAt      *time.Time `json:"endsAt,omitempty"`
}

// SnapshotInput is the flat ledger snapshot a report is computed from.
type SnapshotInput struct {
	Commissions []CommissionInput `json:"commissions"`
	Payouts     []PayoutInput     `json:"payouts"`
	Affiliates  []AffiliateInput  `json:"affiliates"`
}

// ToDomain parses the snapshot into typed entities. Every missing or malformed
// field is reported; nothing is defaulted to zero.
func (s SnapshotInput) ToDomain() (income.Input, error) {
	var errs domain.ValidationErrors
	in := income.Input{
		Commissions: make([]domain.Commission, 0, len(s.Commissions)),
		Payouts:     make([]domain.Payout, 0, len(s.Payouts)),
		Affiliates:  make([]domain.Affiliate, 0, len(s.Affiliates)),
	}
	for i, a := range s.Affiliates {
		in.Affiliates = append(in.Affiliates, a.toDomain(fmt.Sprintf("affiliates[%d]", i), &errs))
	}
	for i, c := range s.Commissions {
		in.Commissions = append(in.Commissions, c.toDomain(fmt.Sprintf("commissions[%d]", i), &errs))
	}
	for i, p := range s.Payouts {
		in.Payouts = append(in.Payouts, p.toDomain(fmt.Sprintf("payouts[%d]", i), &errs))
	}
	if err := errs.Err(); err != nil {
		return income.Input{}, err
	}
	if err := in.Validate(); err != nil {
		return income.Input{}, err
	}
	return in, nil
}

// ToDomain parses a single affiliate.
func (in AffiliateInput) ToDomain() (domain.Affiliate, error) {
	var errs domain.ValidationErrors
	a := in.toDomain("affiliate", &errs)
	return a, errs.Err()
}

// ToDomain parses a single commission row.
func (in CommissionInput) ToDomain() (domain.Commission, error) {
	var errs domain.ValidationErrors
	c := in.toDomain("commission", &errs)
	return c, errs.Err()
}

// ToDomain parses a single payout row.
func (in PayoutInput) ToDomain() (domain.Payout, error) {
	var errs domain.ValidationErrors
	p := in.toDomain("payout", &errs)
	return p, errs.Err()
}

func (in AffiliateInput) toDomain(path string, errs *domain.ValidationErrors) domain.Affiliate {
	a := domain.Affiliate{
		ID:           sanitizeString(in.ID),
		UserID:       sanitizeString(in.UserID),
		Status:       domain.AffiliateStatus(normalizeEnum(in.Status)),
		ReferralCode: normalizeCode(in.ReferralCode),
		PromoCodes:   normalizeCodes(in.PromoCodes),
	}
	if a.ID == "" {
		errs.Add(path+".id", "is required")
	}
	if !a.Status.Valid() {
		errs.Add(path+".status", "must be ACTIVE or SUSPENDED, got %q", in.Status)
	}
	if in.ParentAffiliateID != nil {
		if parent := sanitizeString(*in.ParentAffiliateID); parent != "" {
			a.ParentAffiliateID = &parent
		}
	}
	if in.CreatedAt != nil {
		a.CreatedAt = in.CreatedAt.UTC()
	}
	if in.UpdatedAt != nil {
		a.UpdatedAt = in.UpdatedAt.UTC()
	}
	return a
}

func (in CommissionInput) toDomain(path string, errs *domain.ValidationErrors) domain.Commission {
	c := domain.Commission{
		ID:          sanitizeString(in.ID),
		AffiliateID: sanitizeString(in.AffiliateID),
		Status:      domain.CommissionStatus(normalizeEnum(in.Status)),
		EventType:   domain.EventType(normalizeEnum(in.EventType)),
		Tier:        domain.CommissionTier(normalizeEnum(in.Tier)),
	}
	if c.Tier == "" {
		c.Tier = domain.TierDirect
	}
	if c.ID == "" {
		errs.Add(path+".id", "is required")
	}
	if c.AffiliateID == "" {
		errs.Add(path+".affiliateId", "is required")
	}
	if in.AmountCents == nil {
		errs.Add(path+".amountCents", "is required")
	} else {
		c.AmountCents = *in.AmountCents
	}
	if !c.Status.Valid() {
		errs.Add(path+".status", "must be one of PENDING, AVAILABLE, PAID, REVERSED, got %q", in.Status)
	}
	if !c.EventType.Valid() {
		errs.Add(path+".eventType", "must be one of SUBSCRIPTION, TRANSACTION, REFUND, got %q", in.EventType)
	}
	if !c.Tier.Valid() {
		errs.Add(path+".tier", "must be one of DIRECT, PARENT, SUB, got %q", in.Tier)
	}
	if in.CreatedAt == nil {
		errs.Add(path+".createdAt", "is required")
	} else {
		c.CreatedAt = in.CreatedAt.UTC()
	}
	return c
}

func (in PayoutInput) toDomain(path string, errs *domain.ValidationErrors) domain.Payout {
	p := domain.Payout{
		ID:                  sanitizeString(in.ID),
		AffiliateID:         sanitizeString(in.AffiliateID),
		Status:              domain.PayoutStatus(normalizeEnum(in.Status)),
		ExternalTransferRef: sanitizeString(in.ExternalTransferRef),
	}
	if p.ID == "" {
		errs.Add(path+".id", "is required")
	}
	if p.AffiliateID == "" {
		errs.Add(path+".affiliateId", "is required")
	}
	if in.AmountCents == nil {
		errs.Add(path+".amountCents", "is required")
	} else {
		p.AmountCents = *in.AmountCents
	}
	if !p.Status.Valid() {
		errs.Add(path+".status", "must be one of CREATED, SENT, FAILED, got %q", in.Status)
	}
	if in.PeriodStart == nil {
		errs.Add(path+".periodStart", "is required")
	} else {
		p.PeriodStart = in.PeriodStart.UTC()
	}
	if in.PeriodEnd == nil {
		errs.Add(path+".periodEnd", "is required")
	} else {
		p.PeriodEnd = in.PeriodEnd.UTC()
	}
	return p
}

// NewAffiliateInput renders a domain affiliate in wire form.
func NewAffiliateInput(a domain.Affiliate) AffiliateInput {
	out := AffiliateInput{
		ID:           a.ID,
		UserID:       a.UserID,
		Status:       string(a.Status),
		ReferralCode: a.ReferralCode,
		PromoCodes:   a.PromoCodes,
	}
	if !a.IsMain() {
		parent := a.ParentID()
		out.ParentAffiliateID = &parent
	}
	if !a.CreatedAt.IsZero() {
		created := a.CreatedAt.UTC()
		out.CreatedAt = &created
	}
	if !a.UpdatedAt.IsZero() {
		updated := a.UpdatedAt.UTC()
		out.UpdatedAt = &updated
	}
	return out
}

// NewCommissionInput renders a domain commission in wire form.
func NewCommissionInput(c domain.Commission) CommissionInput {
	amount := c.AmountCents
	created := c.CreatedAt.UTC()
	return CommissionInput{
		ID:          c.ID,
		AffiliateID: c.AffiliateID,
		AmountCents: &amount,
		Status:      string(c.Status),
		EventType:   string(c.EventType),
		Tier:        string(c.Tier),
		CreatedAt:   &created,
	}
}

// NewPayoutInput renders a domain payout in wire form.
func NewPayoutInput(p domain.Payout) PayoutInput {
	amount := p.AmountCents
	start, end := p.PeriodStart.UTC(), p.PeriodEnd.UTC()
	return PayoutInput{
		ID:                  p.ID,
		AffiliateID:         p.AffiliateID,
		AmountCents:         &amount,
		Status:              string(p.Status),
		PeriodStart:         &start,
		PeriodEnd:           &end,
		ExternalTransferRef: p.ExternalTransferRef,
	}
}

// NewAttributionInput renders a domain attribution in wire form.
func NewAttributionInput(a domain.Attribution) AttributionInput {
	created, ends := a.CreatedAt.UTC(), a.EndsAt.UTC()
	return AttributionInput{
		ID:          a.ID,
		UserID:      a.UserID,
		AffiliateID: a.AffiliateID,
		Type:        string(a.Type),
		Source:      string(a.Source),
		CreatedAt:   &created,
		EndsAt:      &ends,
	}
}
