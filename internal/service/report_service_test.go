package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vanshika/affiliatedesk/internal/cache"
	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/income"
)

func incomeByID(t *testing.T, incomes []domain.AffiliateIncome, id string) domain.AffiliateIncome {
	t.Helper()
	for _, inc := range incomes {
		if inc.AffiliateID == id {
			return inc
		}
	}
	t.Fatalf("no income for %s", id)
	return domain.AffiliateIncome{}
}

func TestIncomeReportComputesAndCaches(t *testing.T) {
	affiliates := newStubAffiliates(parentChildAffiliates()...)
	svc := newTestService(affiliates, parentChildLedger())
	svc.WithCache(cache.NewReportCache(cache.NewMemoryStore(), time.Minute))
	ctx := context.Background()

	first, err := svc.IncomeReport(ctx, ReportParams{})
	if err != nil {
		t.Fatalf("IncomeReport returned error: %v", err)
	}
	if first.Cached {
		t.Fatalf("first report must be computed")
	}
	p := incomeByID(t, first.Report.AffiliateIncomes, "P")
	if p.TotalIncome != 700 || p.Transferred != 300 {
		t.Fatalf("unexpected parent income: %+v", p)
	}
	if first.Report.Rollups[0].TotalWithSubs != 900 {
		t.Fatalf("expected rollup 900, got %+v", first.Report.Rollups[0])
	}

	second, err := svc.IncomeReport(ctx, ReportParams{Status: "active", Role: "sub"})
	if err != nil {
		t.Fatalf("IncomeReport returned error: %v", err)
	}
	if !second.Cached {
		t.Fatalf("second report for the same window must come from cache")
	}
	if len(second.Report.AffiliateIncomes) != 1 || second.Report.AffiliateIncomes[0].AffiliateID != "C" {
		t.Fatalf("filter not applied to cached report: %+v", second.Report.AffiliateIncomes)
	}
	if affiliates.allCalls != 1 {
		t.Fatalf("expected one snapshot load, got %d", affiliates.allCalls)
	}

	third, err := svc.IncomeReport(ctx, ReportParams{Refresh: true})
	if err != nil || third.Cached {
		t.Fatalf("refresh must bypass cache: %v", err)
	}
}

func TestIncomeReportPushesWindowToLedger(t *testing.T) {
	ledgerStore := parentChildLedger()
	svc := newTestService(newStubAffiliates(parentChildAffiliates()...), ledgerStore)

	res, err := svc.IncomeReport(context.Background(), ReportParams{From: "2025-04-01"})
	if err != nil {
		t.Fatalf("IncomeReport returned error: %v", err)
	}
	if res.Report.Totals.TotalIncome != 0 {
		t.Fatalf("expected empty window, got %+v", res.Report.Totals)
	}
	q := ledgerStore.commissionQ[0]
	if q.From == nil || !q.From.Equal(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("window not pushed down: %+v", q)
	}
}

func TestIncomeReportRejectsBadParams(t *testing.T) {
	svc := newTestService(newStubAffiliates(), &stubLedger{})
	_, err := svc.IncomeReport(context.Background(), ReportParams{Role: "owner", From: "yesterday"})
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) != 2 {
		t.Fatalf("expected two validation errors, got %v", err)
	}
}

func TestReportParamsDateOnlyToCoversDay(t *testing.T) {
	f, err := ReportParams{From: "2025-03-01", To: "2025-03-31"}.Filter()
	if err != nil {
		t.Fatalf("Filter returned error: %v", err)
	}
	last := time.Date(2025, time.March, 31, 23, 0, 0, 0, time.UTC)
	kept := f.WindowCommissions([]domain.Commission{{ID: "x", CreatedAt: last}})
	if len(kept) != 1 {
		t.Fatalf("expected commission on the last day to be kept")
	}
}

func TestComputeReportFromSnapshot(t *testing.T) {
	svc := newTestService(newStubAffiliates(), &stubLedger{})
	at := fixedNow.Add(-time.Hour)
	snapshot := SnapshotInput{
		Affiliates: []AffiliateInput{
			{ID: "P", Status: "ACTIVE"},
			{ID: "C", Status: "ACTIVE", ParentAffiliateID: strPtr("P")},
		},
		Commissions: []CommissionInput{
			{ID: "c1", AffiliateID: "P", AmountCents: int64Ptr(500), Status: "AVAILABLE", EventType: "SUBSCRIPTION", CreatedAt: &at},
			{ID: "c2", AffiliateID: "P", AmountCents: int64Ptr(300), Status: "PAID", EventType: "TRANSACTION", CreatedAt: &at},
			{ID: "c3", AffiliateID: "P", AmountCents: int64Ptr(-100), Status: "AVAILABLE", EventType: "REFUND", CreatedAt: &at},
			{ID: "c4", AffiliateID: "C", AmountCents: int64Ptr(200), Status: "PENDING", EventType: "SUBSCRIPTION", CreatedAt: &at},
		},
	}

	report, err := svc.ComputeReport(context.Background(), snapshot, ReportParams{})
	if err != nil {
		t.Fatalf("ComputeReport returned error: %v", err)
	}
	if got := incomeByID(t, report.AffiliateIncomes, "P").TotalIncome; got != 700 {
		t.Fatalf("expected P=700, got %d", got)
	}
	if got := incomeByID(t, report.AffiliateIncomes, "C").TotalIncome; got != 200 {
		t.Fatalf("expected C=200, got %d", got)
	}
	if report.Rollups[0].TotalWithSubs != 900 {
		t.Fatalf("expected 900, got %d", report.Rollups[0].TotalWithSubs)
	}
}

func TestSnapshotToDomainReportsEveryProblem(t *testing.T) {
	snapshot := SnapshotInput{
		Commissions: []CommissionInput{
			{ID: "c1", AffiliateID: "P", Status: "paid", EventType: "bonus"},
		},
		Payouts: []PayoutInput{{ID: "p1", AffiliateID: "P", AmountCents: int64Ptr(10), Status: "SENT"}},
	}
	_, err := snapshot.ToDomain()
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected validation errors, got %v", err)
	}
	want := map[string]bool{
		"commissions[0].amountCents": false,
		"commissions[0].eventType":   false,
		"commissions[0].createdAt":   false,
		"payouts[0].periodStart":     false,
		"payouts[0].periodEnd":       false,
	}
	for _, fe := range verrs {
		if _, ok := want[fe.Field]; ok {
			want[fe.Field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Fatalf("missing error for %s in %v", field, verrs)
		}
	}
}

func TestCommissionInputDefaultsTier(t *testing.T) {
	c, err := CommissionInput{
		ID: "c1", AffiliateID: "A", AmountCents: int64Ptr(0), Status: "pending", EventType: "transaction", CreatedAt: timePtr(fixedNow),
	}.ToDomain()
	if err != nil {
		t.Fatalf("ToDomain returned error: %v", err)
	}
	if c.Tier != domain.TierDirect || c.Status != domain.CommissionPending {
		t.Fatalf("unexpected commission: %+v", c)
	}
}

func TestAffiliateIncomeView(t *testing.T) {
	svc := newTestService(newStubAffiliates(parentChildAffiliates()...), parentChildLedger())

	view, err := svc.AffiliateIncome(context.Background(), "P")
	if err != nil {
		t.Fatalf("AffiliateIncome returned error: %v", err)
	}
	if view.Income.TotalIncome != 700 {
		t.Fatalf("expected 700, got %d", view.Income.TotalIncome)
	}
	if view.Rollup == nil || view.Rollup.TotalWithSubs != 900 {
		t.Fatalf("expected rollup of 900, got %+v", view.Rollup)
	}
	if len(view.Trend) != income.DefaultTrendMonths || view.Trend["2025-03"] != 700 {
		t.Fatalf("unexpected trend: %v", view.Trend)
	}

	sub, err := svc.AffiliateIncome(context.Background(), "C")
	if err != nil {
		t.Fatalf("AffiliateIncome returned error: %v", err)
	}
	if sub.Rollup != nil || sub.Income.TotalIncome != 200 {
		t.Fatalf("unexpected sub view: %+v", sub)
	}
}

func TestInconsistenciesLoggedOncePerComputation(t *testing.T) {
	var buf bytes.Buffer
	affiliates := append(parentChildAffiliates(),
		domain.Affiliate{ID: "X", UserID: "u-x", Status: domain.AffiliateStatusActive, ParentAffiliateID: strPtr("GONE")})
	svc := newTestService(newStubAffiliates(affiliates...), parentChildLedger())
	svc.WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	svc.WithCache(cache.NewReportCache(cache.NewMemoryStore(), time.Minute))
	ctx := context.Background()
	warnings := func() int { return strings.Count(buf.String(), "ledger inconsistency") }

	if _, err := svc.AffiliateIncome(ctx, "P"); err != nil {
		t.Fatalf("AffiliateIncome returned error: %v", err)
	}
	if got := warnings(); got != 0 {
		t.Fatalf("drill-down into P should not report unrelated issues, got %d", got)
	}

	view, err := svc.AffiliateIncome(ctx, "X")
	if err != nil {
		t.Fatalf("AffiliateIncome returned error: %v", err)
	}
	if len(view.Inconsistencies) != 1 || warnings() != 1 {
		t.Fatalf("expected X's own issue once, got %d issues and %d warnings", len(view.Inconsistencies), warnings())
	}

	for i := 0; i < 2; i++ {
		if _, err := svc.IncomeReport(ctx, ReportParams{}); err != nil {
			t.Fatalf("IncomeReport returned error: %v", err)
		}
	}
	if got := warnings(); got != 2 {
		t.Fatalf("cache hit must not report again, got %d warnings", got)
	}
}
