package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/repository"
)

// CommissionsPage represents paginated commission rows with metadata.
type CommissionsPage struct {
	Items      []domain.Commission
	Pagination PaginationMeta
}

// PayoutsPage represents paginated payouts with metadata.
type PayoutsPage struct {
	Items      []domain.Payout
	Pagination PaginationMeta
}

// AttributionsPage represents paginated attributions with metadata.
type AttributionsPage struct {
	Items      []domain.Attribution
	Pagination PaginationMeta
}

// ListCommissionsParams defines filters for listing commissions.
type ListCommissionsParams struct {
	Page        int
	PageSize    int
	AffiliateID string
	Status      string
	EventType   string
	Tier        string
	From        string
	To          string
	SortField   string
	SortOrder   string
}

// ListPayoutsParams defines filters for listing payouts.
type ListPayoutsParams struct {
	Page        int
	PageSize    int
	AffiliateID string
	Status      string
	SortField   string
	SortOrder   string
}

// ListAttributionsParams defines filters for listing attributions. ActiveOnly
// keeps attributions whose window is still open.
type ListAttributionsParams struct {
	Page        int
	PageSize    int
	AffiliateID string
	UserID      string
	Source      string
	ActiveOnly  bool
}

// ListCommissions retrieves paginated commission rows.
func (s *AffiliateService) ListCommissions(ctx context.Context, params ListCommissionsParams) (CommissionsPage, error) {
	var errs domain.ValidationErrors
	from := parseBound(&errs, "from", params.From, false)
	to := parseBound(&errs, "to", params.To, true)
	if err := errs.Err(); err != nil {
		return CommissionsPage{}, err
	}
	page, pageSize := normalizePagination(params.Page, params.PageSize)

	result, err := s.ledger.ListCommissions(ctx, ledger.ListCommissionsOptions{
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
		AffiliateID: sanitizeString(params.AffiliateID),
		Status:      normalizeEnum(params.Status),
		EventType:   normalizeEnum(params.EventType),
		Tier:        normalizeEnum(params.Tier),
		From:        from,
		To:          to,
		SortField:   params.SortField,
		SortOrder:   params.SortOrder,
	})
	if err != nil {
		return CommissionsPage{}, err
	}
	return CommissionsPage{Items: result.Items, Pagination: buildPaginationMeta(page, pageSize, result.Total)}, nil
}

// ListPayouts retrieves paginated payouts.
func (s *AffiliateService) ListPayouts(ctx context.Context, params ListPayoutsParams) (PayoutsPage, error) {
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	result, err := s.ledger.ListPayouts(ctx, ledger.ListPayoutsOptions{
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
		AffiliateID: sanitizeString(params.AffiliateID),
		Status:      normalizeEnum(params.Status),
		SortField:   params.SortField,
		SortOrder:   params.SortOrder,
	})
	if err != nil {
		return PayoutsPage{}, err
	}
	return PayoutsPage{Items: result.Items, Pagination: buildPaginationMeta(page, pageSize, result.Total)}, nil
}

// ListAttributions retrieves paginated attributions.
func (s *AffiliateService) ListAttributions(ctx context.Context, params ListAttributionsParams) (AttributionsPage, error) {
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	opts := ledger.ListAttributionsOptions{
		Offset:      (page - 1) * pageSize,
		Limit:       pageSize,
		AffiliateID: sanitizeString(params.AffiliateID),
		UserID:      sanitizeString(params.UserID),
		Source:      normalizeEnum(params.Source),
	}
	if params.ActiveOnly {
		now := s.nowFn().UTC()
		opts.ActiveAt = &now
	}
	result, err := s.ledger.ListAttributions(ctx, opts)
	if err != nil {
		return AttributionsPage{}, err
	}
	return AttributionsPage{Items: result.Items, Pagination: buildPaginationMeta(page, pageSize, result.Total)}, nil
}

// LinkAttribution records a manual admin attribution. The affiliate may be
// given by id or by one of its referral or promo codes; the window defaults
// to DefaultAttributionWindow from now.
func (s *AffiliateService) LinkAttribution(ctx context.Context, input AttributionInput) (domain.Attribution, error) {
	var errs domain.ValidationErrors
	a := domain.Attribution{
		ID:          sanitizeString(input.ID),
		UserID:      sanitizeString(input.UserID),
		AffiliateID: sanitizeString(input.AffiliateID),
		Type:        domain.AttributionType(normalizeEnum(input.Type)),
		Source:      domain.AttributionSource(normalizeEnum(input.Source)),
	}
	if a.Source == "" {
		a.Source = domain.SourceManual
	}
	if a.UserID == "" {
		errs.Add("userId", "is required")
	}
	if a.AffiliateID == "" {
		errs.Add("affiliateId", "is required")
	}
	if !a.Type.Valid() {
		errs.Add("type", "must be USER_SIGNUP or BUSINESS_SIGNUP, got %q", input.Type)
	}
	if !a.Source.Valid() {
		errs.Add("source", "must be one of REFERRAL_LINK, PROMO_CODE, MANUAL, got %q", input.Source)
	}
	if err := errs.Err(); err != nil {
		return domain.Attribution{}, err
	}

	affiliate, err := s.resolveAffiliate(ctx, a.AffiliateID)
	if err != nil {
		return domain.Attribution{}, err
	}
	if affiliate.Status != domain.AffiliateStatusActive {
		return domain.Attribution{}, domain.ValidationErrors{{Field: "affiliateId", Message: "affiliate is suspended"}}
	}
	a.AffiliateID = affiliate.ID

	now := s.nowFn().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = now
	if input.CreatedAt != nil {
		a.CreatedAt = input.CreatedAt.UTC()
	}
	a.EndsAt = a.CreatedAt.Add(s.attributionWindow)
	if input.EndsAt != nil {
		a.EndsAt = input.EndsAt.UTC()
	}
	if !a.EndsAt.After(a.CreatedAt) {
		return domain.Attribution{}, domain.ValidationErrors{{Field: "endsAt", Message: "must be after createdAt"}}
	}

	if err := s.ledger.CreateAttribution(ctx, a); err != nil {
		return domain.Attribution{}, err
	}
	s.logger.Info("attribution linked", "attribution_id", a.ID, "user_id", a.UserID, "affiliate_id", a.AffiliateID)
	return a, nil
}

func (s *AffiliateService) resolveAffiliate(ctx context.Context, ref string) (domain.Affiliate, error) {
	a, err := s.affiliates.GetAffiliate(ctx, ref)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, repository.ErrAffiliateNotFound) {
		return domain.Affiliate{}, err
	}
	return s.affiliates.FindByCode(ctx, normalizeCode(ref))
}

// UpsertCommission validates and stores a commission row from a bulk import.
func (s *AffiliateService) UpsertCommission(ctx context.Context, input CommissionInput) error {
	c, err := input.ToDomain()
	if err != nil {
		return err
	}
	if err := s.ledger.UpsertCommission(ctx, c); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpsertPayout validates and stores a payout from a bulk import.
func (s *AffiliateService) UpsertPayout(ctx context.Context, input PayoutInput) error {
	p, err := input.ToDomain()
	if err != nil {
		return err
	}
	if p.AmountCents < 0 {
		return domain.ValidationErrors{{Field: "payout.amountCents", Message: "must not be negative"}}
	}
	if err := s.ledger.UpsertPayout(ctx, p); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// ImportAttribution stores an attribution from a bulk import as given.
func (s *AffiliateService) ImportAttribution(ctx context.Context, input AttributionInput) error {
	var errs domain.ValidationErrors
	a := domain.Attribution{
		ID:          sanitizeString(input.ID),
		UserID:      sanitizeString(input.UserID),
		AffiliateID: sanitizeString(input.AffiliateID),
		Type:        domain.AttributionType(normalizeEnum(input.Type)),
		Source:      domain.AttributionSource(normalizeEnum(input.Source)),
	}
	if a.ID == "" {
		errs.Add("attribution.id", "is required")
	}
	if a.UserID == "" || a.AffiliateID == "" {
		errs.Add("attribution", "userId and affiliateId are required")
	}
	if !a.Type.Valid() {
		errs.Add("attribution.type", "unknown type %q", input.Type)
	}
	if !a.Source.Valid() {
		errs.Add("attribution.source", "unknown source %q", input.Source)
	}
	if input.CreatedAt == nil || input.EndsAt == nil {
		errs.Add("attribution", "createdAt and endsAt are required")
	} else {
		a.CreatedAt, a.EndsAt = input.CreatedAt.UTC(), input.EndsAt.UTC()
	}
	if err := errs.Err(); err != nil {
		return err
	}
	return s.ledger.UpsertAttribution(ctx, a)
}

// ExportCommissions returns every commission in the requested window.
func (s *AffiliateService) ExportCommissions(ctx context.Context, params ReportParams) ([]domain.Commission, error) {
	filter, err := params.Filter()
	if err != nil {
		return nil, err
	}
	return s.ledger.Commissions(ctx, ledger.CommissionQuery{From: filter.CreatedFrom, To: filter.CreatedTo})
}
