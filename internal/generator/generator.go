package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/service"
)

// Dataset is a full ledger snapshot in wire form.
type Dataset struct {
	Affiliates   []service.AffiliateInput   `json:"affiliates"`
	Commissions  []service.CommissionInput  `json:"commissions"`
	Payouts      []service.PayoutInput      `json:"payouts"`
	Attributions []service.AttributionInput `json:"attributions"`
}

// Snapshot returns the part of the dataset a report is computed from.
func (d Dataset) Snapshot() service.SnapshotInput {
	return service.SnapshotInput{
		Affiliates:  d.Affiliates,
		Commissions: d.Commissions,
		Payouts:     d.Payouts,
	}
}

// Generator produces a two-level affiliate hierarchy and its ledger.
type Generator struct {
	cfg     Config
	rand    *rand.Rand
	entropy *ulid.MonotonicEntropy
}

// New returns a configured Generator instance. Output is fully determined by
// Seed and Now.
func New(cfg Config) *Generator {
	def := DefaultConfig()
	if cfg.NumMainAffiliates <= 0 {
		cfg.NumMainAffiliates = def.NumMainAffiliates
	}
	if cfg.MaxSubsPerMain < 0 {
		cfg.MaxSubsPerMain = def.MaxSubsPerMain
	}
	if cfg.CommissionsPerAffiliate <= 0 {
		cfg.CommissionsPerAffiliate = def.CommissionsPerAffiliate
	}
	if cfg.Months <= 0 {
		cfg.Months = def.Months
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	cfg.Now = cfg.Now.UTC()

	rnd := rand.New(rand.NewSource(cfg.Seed))
	return &Generator{
		cfg:     cfg,
		rand:    rnd,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(cfg.Seed+1)), 0),
	}
}

// Generate synthesises the dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (Dataset, error) {
	var ds Dataset
	parentOf := map[string]string{}
	var affiliateIDs []string

	for i := 0; i < g.cfg.NumMainAffiliates; i++ {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		mainID := fmt.Sprintf("AFF-%05d", i+1)
		ds.Affiliates = append(ds.Affiliates, g.affiliate(mainID, nil, i%2 == 0))
		affiliateIDs = append(affiliateIDs, mainID)

		subs := 0
		if g.cfg.MaxSubsPerMain > 0 {
			subs = g.rand.Intn(g.cfg.MaxSubsPerMain + 1)
		}
		for j := 0; j < subs; j++ {
			subID := fmt.Sprintf("%s-S%02d", mainID, j+1)
			parent := mainID
			ds.Affiliates = append(ds.Affiliates, g.affiliate(subID, &parent, false))
			affiliateIDs = append(affiliateIDs, subID)
			parentOf[subID] = mainID
		}

		if g.chance(g.cfg.InconsistentChance) {
			orphanID := fmt.Sprintf("%s-X01", mainID)
			missing := fmt.Sprintf("AFF-GONE-%05d", i+1)
			ds.Affiliates = append(ds.Affiliates, g.affiliate(orphanID, &missing, false))
		}
	}

	for _, id := range affiliateIDs {
		if err := ctx.Err(); err != nil {
			return Dataset{}, err
		}
		parent, isSub := parentOf[id]
		for k := 0; k < g.cfg.CommissionsPerAffiliate; k++ {
			c := g.commission(id, isSub)
			ds.Commissions = append(ds.Commissions, service.NewCommissionInput(c))

			if isSub && c.EventType != domain.EventRefund && g.chance(g.cfg.ParentShareChance) {
				share := c
				share.ID = g.id()
				share.AffiliateID = parent
				share.Tier = domain.TierParent
				share.AmountCents = max(c.AmountCents/5, 1)
				ds.Commissions = append(ds.Commissions, service.NewCommissionInput(share))
			}
		}
		ds.Attributions = append(ds.Attributions, g.attributions(id)...)
	}

	ds.Payouts = g.payouts(ds.Commissions)
	return ds, nil
}

func (g *Generator) affiliate(id string, parent *string, withPromo bool) service.AffiliateInput {
	created := g.cfg.Now.AddDate(0, -g.cfg.Months, 0).Add(-time.Duration(g.rand.Intn(90*24)) * time.Hour)
	a := domain.Affiliate{
		ID:                id,
		UserID:            "USR-" + id,
		Status:            domain.AffiliateStatusActive,
		ParentAffiliateID: parent,
		ReferralCode:      fmt.Sprintf("REF%010d", g.rand.Int63n(1e10)),
		CreatedAt:         created,
		UpdatedAt:         created,
	}
	if g.chance(0.05) {
		a.Status = domain.AffiliateStatusSuspended
	}
	if withPromo {
		a.PromoCodes = []string{fmt.Sprintf("PROMO%06d", g.rand.Intn(1e6))}
	}
	return service.NewAffiliateInput(a)
}

func (g *Generator) commission(affiliateID string, isSub bool) domain.Commission {
	age := time.Duration(g.rand.Int63n(int64(time.Duration(g.cfg.Months*30*24) * time.Hour)))
	created := g.cfg.Now.Add(-age).Truncate(time.Second)

	c := domain.Commission{
		ID:          g.id(),
		AffiliateID: affiliateID,
		EventType:   domain.EventSubscription,
		Tier:        domain.TierDirect,
		CreatedAt:   created,
	}
	switch r := g.rand.Float64(); {
	case r < g.cfg.RefundChance:
		c.EventType = domain.EventRefund
	case r < 0.4:
		c.EventType = domain.EventTransaction
	}
	if isSub && c.EventType != domain.EventRefund && g.chance(0.3) {
		c.Tier = domain.TierSub
	}

	switch c.EventType {
	case domain.EventSubscription:
		c.AmountCents = int64(500 + g.rand.Intn(4500))
	case domain.EventTransaction:
		c.AmountCents = int64(50 + g.rand.Intn(1950))
	case domain.EventRefund:
		c.AmountCents = -int64(50 + g.rand.Intn(1500))
	}

	switch {
	case g.chance(g.cfg.ReversedChance):
		c.Status = domain.CommissionReversed
	case age > 60*24*time.Hour:
		c.Status = domain.CommissionPaid
	case age > 30*24*time.Hour:
		c.Status = domain.CommissionAvailable
	default:
		c.Status = domain.CommissionPending
	}
	return c
}

// payouts settles each affiliate's PAID commissions once per calendar month.
func (g *Generator) payouts(commissions []service.CommissionInput) []service.PayoutInput {
	type key struct {
		affiliate string
		month     string
	}
	sums := map[key]int64{}
	var order []key
	for _, c := range commissions {
		if c.Status != string(domain.CommissionPaid) || c.AmountCents == nil {
			continue
		}
		k := key{affiliate: c.AffiliateID, month: c.CreatedAt.Format("2006-01")}
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += *c.AmountCents
	}

	out := make([]service.PayoutInput, 0, len(order))
	for _, k := range order {
		if sums[k] <= 0 {
			continue
		}
		start, _ := time.Parse("2006-01", k.month)
		p := domain.Payout{
			ID:          g.id(),
			AffiliateID: k.affiliate,
			AmountCents: sums[k],
			Status:      domain.PayoutSent,
			PeriodStart: start,
			PeriodEnd:   start.AddDate(0, 1, 0).Add(-time.Second),
		}
		switch r := g.rand.Float64(); {
		case r < 0.04:
			p.Status = domain.PayoutFailed
		case r < 0.1:
			p.Status = domain.PayoutCreated
		default:
			p.ExternalTransferRef = "tr_" + g.id()
		}
		out = append(out, service.NewPayoutInput(p))
	}
	return out
}

func (g *Generator) attributions(affiliateID string) []service.AttributionInput {
	n := g.rand.Intn(4)
	out := make([]service.AttributionInput, 0, n)
	for i := 0; i < n; i++ {
		created := g.cfg.Now.Add(-time.Duration(g.rand.Intn(180*24)) * time.Hour).Truncate(time.Second)
		a := domain.Attribution{
			ID:          g.id(),
			UserID:      fmt.Sprintf("USR-REF-%s-%d", affiliateID, i+1),
			AffiliateID: affiliateID,
			Type:        domain.AttributionUserSignup,
			Source:      domain.SourceReferralLink,
			CreatedAt:   created,
			EndsAt:      created.Add(service.DefaultAttributionWindow),
		}
		if g.chance(0.2) {
			a.Type = domain.AttributionBusinessSignup
		}
		if g.chance(0.3) {
			a.Source = domain.SourcePromoCode
		}
		out = append(out, service.NewAttributionInput(a))
	}
	return out
}

func (g *Generator) id() string {
	return ulid.MustNew(ulid.Timestamp(g.cfg.Now), g.entropy).String()
}

func (g *Generator) chance(p float64) bool {
	return p > 0 && g.rand.Float64() < p
}
