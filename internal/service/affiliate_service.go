package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/income"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/logging"
	"github.com/vanshika/affiliatedesk/internal/metrics"
	"github.com/vanshika/affiliatedesk/internal/referral"
	"github.com/vanshika/affiliatedesk/internal/repository"
)

// AffiliateStore is the hierarchy storage contract required by the service.
type AffiliateStore interface {
	UpsertAffiliate(ctx context.Context, a domain.Affiliate) error
	GetAffiliate(ctx context.Context, id string) (domain.Affiliate, error)
	FindByCode(ctx context.Context, code string) (domain.Affiliate, error)
	ListAffiliates(ctx context.Context, opts repository.ListAffiliatesOptions) (domain.AffiliateListResult, error)
	ListChildren(ctx context.Context, parentID string) ([]domain.Affiliate, error)
	AllAffiliates(ctx context.Context) ([]domain.Affiliate, error)
	UpdateReferralCode(ctx context.Context, id, code string, at time.Time) error
	SetStatus(ctx context.Context, id string, status domain.AffiliateStatus, at time.Time) (domain.Affiliate, error)
}

// LedgerStore is the commission, payout and attribution storage contract.
type LedgerStore interface {
	Commissions(ctx context.Context, q ledger.CommissionQuery) ([]domain.Commission, error)
	ListCommissions(ctx context.Context, opts ledger.ListCommissionsOptions) (domain.CommissionListResult, error)
	UpsertCommission(ctx context.Context, c domain.Commission) error
	Payouts(ctx context.Context, q ledger.PayoutQuery) ([]domain.Payout, error)
	ListPayouts(ctx context.Context, opts ledger.ListPayoutsOptions) (domain.PayoutListResult, error)
	UpsertPayout(ctx context.Context, p domain.Payout) error
	ListAttributions(ctx context.Context, opts ledger.ListAttributionsOptions) (domain.AttributionListResult, error)
	CreateAttribution(ctx context.Context, a domain.Attribution) error
	UpsertAttribution(ctx context.Context, a domain.Attribution) error
}

// ReportCache stores computed reports between dashboard loads.
type ReportCache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Put(ctx context.Context, key string, value any) error
	Invalidate(ctx context.Context) error
}

// DefaultAttributionWindow is how long a manual attribution stays active.
const DefaultAttributionWindow = 90 * 24 * time.Hour

// AffiliateService orchestrates the hierarchy store, the ledger and the
// income calculations behind the admin dashboard.
type AffiliateService struct {
	affiliates AffiliateStore
	ledger     LedgerStore
	cache      ReportCache
	metrics    *metrics.Metrics
	logger     *slog.Logger
	nowFn      func() time.Time

	topN              int
	trendMonths       int
	attributionWindow time.Duration
}

// PaginationMeta captures pagination metadata returned to API clients.
type PaginationMeta struct {
	Page       int
	PageSize   int
	TotalItems int64
	TotalPages int
}

// AffiliatesPage represents paginated affiliates with metadata.
type AffiliatesPage struct {
	Items      []domain.Affiliate
	Pagination PaginationMeta
}

// ListAffiliatesParams defines filters for listing affiliates.
type ListAffiliatesParams struct {
	Page      int
	PageSize  int
	Search    string
	Status    string
	Role      string
	ParentID  string
	SortField string
	SortOrder string
}

// AffiliateDetail is an affiliate with its direct sub-affiliates.
type AffiliateDetail struct {
	Affiliate domain.Affiliate
	Children  []domain.Affiliate
}

// NewAffiliateService wires the service to its stores.
func NewAffiliateService(affiliates AffiliateStore, ledgerStore LedgerStore) *AffiliateService {
	return &AffiliateService{
		affiliates:        affiliates,
		ledger:            ledgerStore,
		logger:            logging.Discard(),
		nowFn:             time.Now,
		topN:              income.DefaultTopN,
		trendMonths:       income.DefaultTrendMonths,
		attributionWindow: DefaultAttributionWindow,
	}
}

// WithClock overrides the time provider (used primarily in tests).
func (s *AffiliateService) WithClock(nowFn func() time.Time) {
	if nowFn != nil {
		s.nowFn = nowFn
	}
}

// WithCache enables report caching.
func (s *AffiliateService) WithCache(cache ReportCache) {
	s.cache = cache
}

func (s *AffiliateService) WithMetrics(m *metrics.Metrics) {
	s.metrics = m
}

func (s *AffiliateService) WithLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// WithReportDefaults sets the top performer count and trend length used when
// a request does not ask for its own.
func (s *AffiliateService) WithReportDefaults(topN, trendMonths int) {
	if topN > 0 {
		s.topN = topN
	}
	if trendMonths > 0 {
		s.trendMonths = trendMonths
	}
}

// ListAffiliates retrieves paginated affiliates matching provided filters.
func (s *AffiliateService) ListAffiliates(ctx context.Context, params ListAffiliatesParams) (AffiliatesPage, error) {
	page, pageSize := normalizePagination(params.Page, params.PageSize)
	offset := (page - 1) * pageSize

	result, err := s.affiliates.ListAffiliates(ctx, repository.ListAffiliatesOptions{
		Offset:    offset,
		Limit:     pageSize,
		Search:    sanitizeString(params.Search),
		Status:    normalizeEnum(params.Status),
		Role:      normalizeEnum(params.Role),
		ParentID:  sanitizeString(params.ParentID),
		SortField: params.SortField,
		SortOrder: params.SortOrder,
	})
	if err != nil {
		return AffiliatesPage{}, err
	}
	return AffiliatesPage{
		Items:      result.Items,
		Pagination: buildPaginationMeta(page, pageSize, result.Total),
	}, nil
}

// GetAffiliate returns an affiliate together with its sub-affiliates.
func (s *AffiliateService) GetAffiliate(ctx context.Context, id string) (AffiliateDetail, error) {
	a, err := s.affiliates.GetAffiliate(ctx, sanitizeString(id))
	if err != nil {
		return AffiliateDetail{}, err
	}
	children, err := s.affiliates.ListChildren(ctx, a.ID)
	if err != nil {
		return AffiliateDetail{}, err
	}
	return AffiliateDetail{Affiliate: a, Children: children}, nil
}

// UpsertAffiliate validates and stores an affiliate record.
func (s *AffiliateService) UpsertAffiliate(ctx context.Context, input AffiliateInput) error {
	a, err := input.ToDomain()
	if err != nil {
		return err
	}
	now := s.nowFn().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}
	if err := s.affiliates.UpsertAffiliate(ctx, a); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// UpdateReferralCode replaces an affiliate's referral code. A blank code asks
// for a freshly generated one. The format is checked before the store is hit.
func (s *AffiliateService) UpdateReferralCode(ctx context.Context, id, code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		code = referral.Generate()
	}
	normalized, err := referral.Normalize(code)
	if err != nil {
		return "", err
	}
	if err := s.affiliates.UpdateReferralCode(ctx, sanitizeString(id), normalized, s.nowFn().UTC()); err != nil {
		return "", err
	}
	s.logger.Info("referral code updated", "affiliate_id", id)
	s.invalidate(ctx)
	return normalized, nil
}

// Suspend stops an affiliate from earning new commission.
func (s *AffiliateService) Suspend(ctx context.Context, id string) (domain.Affiliate, error) {
	return s.setStatus(ctx, id, domain.AffiliateStatusSuspended)
}

// Activate re-enables a suspended affiliate.
func (s *AffiliateService) Activate(ctx context.Context, id string) (domain.Affiliate, error) {
	return s.setStatus(ctx, id, domain.AffiliateStatusActive)
}

func (s *AffiliateService) setStatus(ctx context.Context, id string, status domain.AffiliateStatus) (domain.Affiliate, error) {
	a, err := s.affiliates.SetStatus(ctx, sanitizeString(id), status, s.nowFn().UTC())
	if err != nil {
		return domain.Affiliate{}, err
	}
	s.logger.Info("affiliate status changed", "affiliate_id", a.ID, "status", a.Status)
	s.invalidate(ctx)
	return a, nil
}

func (s *AffiliateService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", "error", err)
	}
}

// IsNotFound reports whether err means the requested record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, repository.ErrAffiliateNotFound) || errors.Is(err, ledger.ErrNotFound)
}

func normalizePagination(page, pageSize int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}

func buildPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(pageSize)))
		if total > 0 && totalPages == 0 {
			totalPages = 1
		}
	}
	return PaginationMeta{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
