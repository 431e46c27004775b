package service

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/repository"
)

var fixedNow = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

func timePtr(t time.Time) *time.Time { return &t }

type stubAffiliates struct {
	mu          sync.Mutex
	byID        map[string]domain.Affiliate
	order       []string
	codeErr     error
	codeUpdates int
	listOpts    repository.ListAffiliatesOptions
	allCalls    int
}

func newStubAffiliates(affiliates ...domain.Affiliate) *stubAffiliates {
	s := &stubAffiliates{byID: map[string]domain.Affiliate{}}
	for _, a := range affiliates {
		s.put(a)
	}
	return s
}

func (s *stubAffiliates) put(a domain.Affiliate) {
	if _, ok := s.byID[a.ID]; !ok {
		s.order = append(s.order, a.ID)
	}
	s.byID[a.ID] = a
}

func (s *stubAffiliates) UpsertAffiliate(_ context.Context, a domain.Affiliate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(a)
	return nil
}

func (s *stubAffiliates) GetAffiliate(_ context.Context, id string) (domain.Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return domain.Affiliate{}, repository.ErrAffiliateNotFound
	}
	return a, nil
}

func (s *stubAffiliates) FindByCode(_ context.Context, code string) (domain.Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		a := s.byID[id]
		if a.ReferralCode == code || slices.Contains(a.PromoCodes, code) {
			return a, nil
		}
	}
	return domain.Affiliate{}, repository.ErrAffiliateNotFound
}

func (s *stubAffiliates) ListAffiliates(_ context.Context, opts repository.ListAffiliatesOptions) (domain.AffiliateListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listOpts = opts
	items := make([]domain.Affiliate, 0, len(s.order))
	for _, id := range s.order {
		items = append(items, s.byID[id])
	}
	total := int64(len(items))
	if opts.Offset < len(items) {
		items = items[opts.Offset:]
	} else {
		items = nil
	}
	if len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return domain.AffiliateListResult{Items: items, Total: total}, nil
}

func (s *stubAffiliates) ListChildren(_ context.Context, parentID string) ([]domain.Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Affiliate
	for _, id := range s.order {
		if a := s.byID[id]; a.ParentID() == parentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubAffiliates) AllAffiliates(context.Context) ([]domain.Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allCalls++
	out := make([]domain.Affiliate, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *stubAffiliates) UpdateReferralCode(_ context.Context, id, code string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeUpdates++
	if s.codeErr != nil {
		return s.codeErr
	}
	a, ok := s.byID[id]
	if !ok {
		return repository.ErrAffiliateNotFound
	}
	a.ReferralCode = code
	a.UpdatedAt = at
	s.byID[id] = a
	return nil
}

func (s *stubAffiliates) SetStatus(_ context.Context, id string, status domain.AffiliateStatus, at time.Time) (domain.Affiliate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return domain.Affiliate{}, repository.ErrAffiliateNotFound
	}
	a.Status = status
	a.UpdatedAt = at
	s.byID[id] = a
	return a, nil
}

type stubLedger struct {
	mu           sync.Mutex
	commissions  []domain.Commission
	payouts      []domain.Payout
	attributions []domain.Attribution
	createErr    error
	commissionQ  []ledger.CommissionQuery
	listOpts     ledger.ListCommissionsOptions
	attrOpts     ledger.ListAttributionsOptions
}

func inScope(ids []string, id string) bool {
	return len(ids) == 0 || slices.Contains(ids, id)
}

func (s *stubLedger) Commissions(_ context.Context, q ledger.CommissionQuery) ([]domain.Commission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commissionQ = append(s.commissionQ, q)
	var out []domain.Commission
	for _, c := range s.commissions {
		if !inScope(q.AffiliateIDs, c.AffiliateID) {
			continue
		}
		if q.From != nil && c.CreatedAt.Before(*q.From) {
			continue
		}
		if q.To != nil && c.CreatedAt.After(*q.To) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *stubLedger) ListCommissions(_ context.Context, opts ledger.ListCommissionsOptions) (domain.CommissionListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listOpts = opts
	return domain.CommissionListResult{Items: s.commissions, Total: int64(len(s.commissions))}, nil
}

func (s *stubLedger) UpsertCommission(_ context.Context, c domain.Commission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commissions = append(s.commissions, c)
	return nil
}

func (s *stubLedger) Payouts(_ context.Context, q ledger.PayoutQuery) ([]domain.Payout, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Payout
	for _, p := range s.payouts {
		if inScope(q.AffiliateIDs, p.AffiliateID) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubLedger) ListPayouts(_ context.Context, _ ledger.ListPayoutsOptions) (domain.PayoutListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.PayoutListResult{Items: s.payouts, Total: int64(len(s.payouts))}, nil
}

func (s *stubLedger) UpsertPayout(_ context.Context, p domain.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payouts = append(s.payouts, p)
	return nil
}

func (s *stubLedger) ListAttributions(_ context.Context, opts ledger.ListAttributionsOptions) (domain.AttributionListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrOpts = opts
	return domain.AttributionListResult{Items: s.attributions, Total: int64(len(s.attributions))}, nil
}

func (s *stubLedger) CreateAttribution(_ context.Context, a domain.Attribution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.attributions = append(s.attributions, a)
	return nil
}

func (s *stubLedger) UpsertAttribution(ctx context.Context, a domain.Attribution) error {
	return s.CreateAttribution(ctx, a)
}

func parentChildAffiliates() []domain.Affiliate {
	return []domain.Affiliate{
		{ID: "P", UserID: "u-p", Status: domain.AffiliateStatusActive, ReferralCode: "PARENT0001", PromoCodes: []string{"SPRING25"}},
		{ID: "C", UserID: "u-c", Status: domain.AffiliateStatusActive, ParentAffiliateID: strPtr("P"), ReferralCode: "CHILD00001"},
	}
}

func parentChildLedger() *stubLedger {
	at := fixedNow.Add(-24 * time.Hour)
	return &stubLedger{
		commissions: []domain.Commission{
			{ID: "c1", AffiliateID: "P", AmountCents: 500, Status: domain.CommissionAvailable, EventType: domain.EventSubscription, Tier: domain.TierDirect, CreatedAt: at},
			{ID: "c2", AffiliateID: "P", AmountCents: 300, Status: domain.CommissionPaid, EventType: domain.EventTransaction, Tier: domain.TierParent, CreatedAt: at},
			{ID: "c3", AffiliateID: "P", AmountCents: -100, Status: domain.CommissionAvailable, EventType: domain.EventRefund, Tier: domain.TierDirect, CreatedAt: at},
			{ID: "c4", AffiliateID: "C", AmountCents: 200, Status: domain.CommissionPending, EventType: domain.EventSubscription, Tier: domain.TierSub, CreatedAt: at},
		},
		payouts: []domain.Payout{
			{ID: "p1", AffiliateID: "P", AmountCents: 300, Status: domain.PayoutSent, PeriodStart: at.AddDate(0, -1, 0), PeriodEnd: at},
		},
	}
}

func newTestService(affiliates *stubAffiliates, ledgerStore *stubLedger) *AffiliateService {
	svc := NewAffiliateService(affiliates, ledgerStore)
	svc.WithClock(func() time.Time { return fixedNow })
	return svc
}
