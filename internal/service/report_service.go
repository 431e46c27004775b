package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/income"
	"github.com/vanshika/affiliatedesk/internal/ledger"
)

// ReportParams is the dashboard query: filter state, date window and whether
// to bypass the cache.
type ReportParams struct {
	Search    string
	Status    string
	Role      string
	ParentID  string
	From      string
	To        string
	SortField string
	SortOrder string
	Refresh   bool
}

// Filter parses the params into an income.Filter. A date-only To bound
// covers the whole day.
func (p ReportParams) Filter() (income.Filter, error) {
	var errs domain.ValidationErrors
	f := income.Filter{
		Search:    sanitizeString(p.Search),
		Status:    domain.AffiliateStatus(normalizeEnum(p.Status)),
		Role:      domain.HierarchyRole(normalizeEnum(p.Role)),
		ParentID:  sanitizeString(p.ParentID),
		SortField: strings.TrimSpace(p.SortField),
		SortOrder: strings.TrimSpace(p.SortOrder),
	}
	if f.Status != "" && !f.Status.Valid() {
		errs.Add("status", "must be ACTIVE or SUSPENDED, got %q", p.Status)
	}
	if f.Role != "" && f.Role != domain.RoleMain && f.Role != domain.RoleSub {
		errs.Add("role", "must be MAIN or SUB, got %q", p.Role)
	}
	f.CreatedFrom = parseBound(&errs, "from", p.From, false)
	f.CreatedTo = parseBound(&errs, "to", p.To, true)
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedTo.Before(*f.CreatedFrom) {
		errs.Add("to", "must not be before from")
	}
	if err := errs.Err(); err != nil {
		return income.Filter{}, err
	}
	return f, nil
}

// ReportResult is a report plus whether it was served from the cache.
type ReportResult struct {
	Report income.Report
	Cached bool
}

// AffiliateIncomeView is the single-affiliate drill-down.
type AffiliateIncomeView struct {
	Affiliate       domain.Affiliate
	Income          domain.AffiliateIncome
	Rollup          *domain.HierarchyRollup
	Trend           map[string]int64
	Inconsistencies []income.Inconsistency
}

// IncomeReport serves the full dashboard report. Reports are cached per date
// window; the search, status, role and sort state is applied afterwards.
func (s *AffiliateService) IncomeReport(ctx context.Context, params ReportParams) (ReportResult, error) {
	filter, err := params.Filter()
	if err != nil {
		return ReportResult{}, err
	}
	started := time.Now()
	key := "income:" + filter.WindowKey()

	if s.cache != nil && !params.Refresh {
		var cached income.Report
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("report cache read failed", "key", key, "error", err)
		}
		if hit {
			s.metrics.ObserveReport(false, time.Since(started))
			cached.AffiliateIncomes = filter.Apply(cached.AffiliateIncomes)
			return ReportResult{Report: cached, Cached: true}, nil
		}
	}

	in, err := s.snapshot(ctx, filter)
	if err != nil {
		return ReportResult{}, err
	}
	report := s.build(in)
	s.reportIssues(report.Inconsistencies)
	if s.cache != nil {
		if err := s.cache.Put(ctx, key, report); err != nil {
			s.logger.Warn("report cache write failed", "key", key, "error", err)
		}
	}
	s.metrics.ObserveReport(true, time.Since(started))
	s.logger.Debug("income report computed",
		"affiliates", len(report.AffiliateIncomes),
		"inconsistencies", len(report.Inconsistencies),
		"elapsed", time.Since(started))

	report.AffiliateIncomes = filter.Apply(report.AffiliateIncomes)
	return ReportResult{Report: report}, nil
}

// ComputeReport runs the report over a caller-supplied snapshot. It touches
// no store and no cache.
func (s *AffiliateService) ComputeReport(ctx context.Context, snapshot SnapshotInput, params ReportParams) (income.Report, error) {
	filter, err := params.Filter()
	if err != nil {
		return income.Report{}, err
	}
	in, err := snapshot.ToDomain()
	if err != nil {
		return income.Report{}, err
	}
	in.Commissions = filter.WindowCommissions(in.Commissions)
	report := s.build(in)
	s.reportIssues(report.Inconsistencies)
	report.AffiliateIncomes = filter.Apply(report.AffiliateIncomes)
	return report, nil
}

// AffiliateIncome computes one affiliate's income and, for a main affiliate,
// the rollup over its sub-affiliates.
func (s *AffiliateService) AffiliateIncome(ctx context.Context, id string) (AffiliateIncomeView, error) {
	id = sanitizeString(id)
	affiliate, err := s.affiliates.GetAffiliate(ctx, id)
	if err != nil {
		return AffiliateIncomeView{}, err
	}
	all, err := s.affiliates.AllAffiliates(ctx)
	if err != nil {
		return AffiliateIncomeView{}, fmt.Errorf("load affiliates: %w", err)
	}

	scope := []string{affiliate.ID}
	for _, a := range all {
		if a.ParentID() == affiliate.ID {
			scope = append(scope, a.ID)
		}
	}

	in := income.Input{Affiliates: all}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.ledger.Commissions(gctx, ledger.CommissionQuery{AffiliateIDs: scope})
		in.Commissions = rows
		return err
	})
	g.Go(func() error {
		rows, err := s.ledger.Payouts(gctx, ledger.PayoutQuery{AffiliateIDs: scope})
		in.Payouts = rows
		return err
	})
	if err := g.Wait(); err != nil {
		return AffiliateIncomeView{}, fmt.Errorf("load ledger for %s: %w", affiliate.ID, err)
	}

	report := s.build(in)
	view := AffiliateIncomeView{
		Affiliate: affiliate,
		Income:    domain.AffiliateIncome{AffiliateID: affiliate.ID, Role: affiliate.Role(), Status: affiliate.Status},
	}
	for _, inc := range report.AffiliateIncomes {
		if inc.AffiliateID == affiliate.ID {
			view.Income = inc
			break
		}
	}
	for i := range report.Rollups {
		if report.Rollups[i].ParentAffiliateID == affiliate.ID {
			rollup := report.Rollups[i]
			view.Rollup = &rollup
			break
		}
	}
	for _, issue := range report.Inconsistencies {
		if issue.AffiliateID == affiliate.ID {
			view.Inconsistencies = append(view.Inconsistencies, issue)
		}
	}

	s.reportIssues(view.Inconsistencies)

	own := make([]domain.Commission, 0, len(in.Commissions))
	for _, c := range in.Commissions {
		if c.AffiliateID == affiliate.ID {
			own = append(own, c)
		}
	}
	view.Trend = income.MonthlyTrend(own, s.nowFn(), s.trendMonths)
	return view, nil
}

// ExportIncomes returns every affiliate income matching params, unpaged.
func (s *AffiliateService) ExportIncomes(ctx context.Context, params ReportParams) ([]domain.AffiliateIncome, error) {
	res, err := s.IncomeReport(ctx, params)
	if err != nil {
		return nil, err
	}
	return res.Report.AffiliateIncomes, nil
}

// snapshot loads the hierarchy and both ledgers concurrently. The date
// window is pushed down to the commission query.
func (s *AffiliateService) snapshot(ctx context.Context, filter income.Filter) (income.Input, error) {
	var in income.Input
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.affiliates.AllAffiliates(gctx)
		if err != nil {
			return fmt.Errorf("load affiliates: %w", err)
		}
		in.Affiliates = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.ledger.Commissions(gctx, ledger.CommissionQuery{From: filter.CreatedFrom, To: filter.CreatedTo})
		if err != nil {
			return fmt.Errorf("load commissions: %w", err)
		}
		in.Commissions = rows
		return nil
	})
	g.Go(func() error {
		rows, err := s.ledger.Payouts(gctx, ledger.PayoutQuery{})
		if err != nil {
			return fmt.Errorf("load payouts: %w", err)
		}
		in.Payouts = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return income.Input{}, err
	}
	return in, nil
}

func (s *AffiliateService) build(in income.Input) income.Report {
	return income.BuildReport(in, income.Options{
		TopN:        s.topN,
		TrendMonths: s.trendMonths,
		Now:         s.nowFn(),
	})
}

// reportIssues logs and counts inconsistencies found by a fresh computation.
// Cache hits and single-affiliate views over the shared hierarchy must not
// call it for the whole report.
func (s *AffiliateService) reportIssues(issues []income.Inconsistency) {
	for _, issue := range issues {
		s.metrics.ObserveInconsistency(string(issue.Kind))
		s.logger.Warn("ledger inconsistency",
			"kind", issue.Kind,
			"affiliate_id", issue.AffiliateID,
			"reference", issue.Reference,
			"message", issue.Message)
	}
}

func parseBound(errs *domain.ValidationErrors, field, value string, end bool) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		t = t.UTC()
		return &t
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		errs.Add(field, "must be RFC3339 or YYYY-MM-DD, got %q", value)
		return nil
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t
}
