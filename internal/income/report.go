package income

import (
	"fmt"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

const (
	DefaultTopN        = 10
	DefaultTrendMonths = 12
)

// Input is the flat ledger snapshot a report is computed from.
type Input struct {
	Commissions []domain.Commission
	Payouts     []domain.Payout
	Affiliates  []domain.Affiliate
}

// Options tunes report presentation. Now anchors the trailing trend window.
type Options struct {
	TopN        int
	TrendMonths int
	Now         time.Time
}

func (o Options) withDefaults() Options {
	if o.TopN <= 0 {
		o.TopN = DefaultTopN
	}
	if o.TrendMonths <= 0 {
		o.TrendMonths = DefaultTrendMonths
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	o.Now = o.Now.UTC()
	return o
}

// Totals sums the headline figures across every affiliate in the report.
type Totals struct {
	Affiliates   int   `json:"affiliates"`
	TotalIncome  int64 `json:"totalIncome"`
	RefundAmount int64 `json:"refundAmount"`
	PaidOut      int64 `json:"paidOut"`
	Pending      int64 `json:"pending"`
	Available    int64 `json:"available"`
	Transferred  int64 `json:"transferred"`
}

// Report is the output shared by every income dashboard panel.
type Report struct {
	AffiliateIncomes []domain.AffiliateIncome `json:"affiliateIncomes"`
	TopPerformers    []domain.AffiliateIncome `json:"topPerformers"`
	Rollups          []domain.HierarchyRollup `json:"rollups"`
	MonthlyTrend     map[string]int64         `json:"monthlyTrend"`
	Totals           Totals                   `json:"totals"`
	Inconsistencies  []Inconsistency          `json:"inconsistencies"`
	GeneratedAt      time.Time                `json:"generatedAt"`
}

// BuildReport resolves the hierarchy, aggregates the ledger and derives the
// presentation views. It is a pure function of its arguments.
func BuildReport(in Input, opts Options) Report {
	opts = opts.withDefaults()

	h := ResolveHierarchy(in.Affiliates)
	incomes, issues := AggregateAll(h, in.Commissions, in.Payouts)

	trendRows := make([]domain.Commission, 0, len(in.Commissions))
	for _, c := range in.Commissions {
		if _, ok := h.Lookup(c.AffiliateID); ok {
			trendRows = append(trendRows, c)
		}
	}

	inconsistencies := make([]Inconsistency, 0, len(h.Rejected)+len(issues))
	inconsistencies = append(inconsistencies, h.Rejected...)
	inconsistencies = append(inconsistencies, issues...)

	return Report{
		AffiliateIncomes: incomes,
		TopPerformers:    TopPerformers(incomes, opts.TopN),
		Rollups:          Rollups(h, incomes),
		MonthlyTrend:     MonthlyTrend(trendRows, opts.Now, opts.TrendMonths),
		Totals:           sumTotals(incomes),
		Inconsistencies:  inconsistencies,
		GeneratedAt:      opts.Now,
	}
}

func sumTotals(incomes []domain.AffiliateIncome) Totals {
	t := Totals{Affiliates: len(incomes)}
	for _, inc := range incomes {
		t.TotalIncome += inc.TotalIncome
		t.RefundAmount += inc.RefundAmount
		t.PaidOut += inc.PaidOut
		t.Pending += inc.Pending
		t.Available += inc.Available
		t.Transferred += inc.Transferred
	}
	return t
}

// Validate checks the snapshot for values the aggregation cannot interpret.
// It returns domain.ValidationErrors listing every problem found.
func (in Input) Validate() error {
	var errs domain.ValidationErrors

	for i, a := range in.Affiliates {
		field := func(name string) string { return indexed("affiliates", i, name) }
		if a.ID == "" {
			errs.Add(field("id"), "is required")
		}
		if !a.Status.Valid() {
			errs.Add(field("status"), "unknown status %q", a.Status)
		}
		if a.ParentAffiliateID != nil && *a.ParentAffiliateID == "" {
			errs.Add(field("parentAffiliateId"), "must be null or a non-empty id")
		}
	}

	for i, c := range in.Commissions {
		field := func(name string) string { return indexed("commissions", i, name) }
		if c.AffiliateID == "" {
			errs.Add(field("affiliateId"), "is required")
		}
		if !c.Status.Valid() {
			errs.Add(field("status"), "unknown status %q", c.Status)
		}
		if !c.EventType.Valid() {
			errs.Add(field("eventType"), "unknown event type %q", c.EventType)
		}
		if !c.Tier.Valid() {
			errs.Add(field("tier"), "unknown tier %q", c.Tier)
		}
		if c.EventType == domain.EventRefund && c.AmountCents > 0 {
			errs.Add(field("amountCents"), "refund amounts must be zero or negative")
		}
		if c.CreatedAt.IsZero() {
			errs.Add(field("createdAt"), "is required")
		}
	}

	for i, p := range in.Payouts {
		field := func(name string) string { return indexed("payouts", i, name) }
		if p.AffiliateID == "" {
			errs.Add(field("affiliateId"), "is required")
		}
		if !p.Status.Valid() {
			errs.Add(field("status"), "unknown status %q", p.Status)
		}
		if p.AmountCents < 0 {
			errs.Add(field("amountCents"), "must not be negative")
		}
		if !p.PeriodStart.IsZero() && !p.PeriodEnd.IsZero() && p.PeriodEnd.Before(p.PeriodStart) {
			errs.Add(field("periodEnd"), "must not be before periodStart")
		}
	}

	return errs.Err()
}

func indexed(collection string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", collection, i, field)
}
