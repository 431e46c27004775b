package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

// PayoutQuery narrows a full payout snapshot by affiliate and period end.
type PayoutQuery struct {
	AffiliateIDs []string
	From         *time.Time
	To           *time.Time
}

// ListPayoutsOptions defines filters and pagination for payout listing.
type ListPayoutsOptions struct {
	Offset      int
	Limit       int
	AffiliateID string
	Status      string
	SortField   string
	SortOrder   string
}

const payoutColumns = `id, affiliate_id, amount_cents, status, period_start, period_end, external_transfer_ref`

var payoutSortColumns = map[string]string{
	"periodend":   "period_end",
	"periodstart": "period_start",
	"amount":      "amount_cents",
	"amountcents": "amount_cents",
	"status":      "status",
	"affiliateid": "affiliate_id",
}

// Payouts returns every payout matching q.
func (s *Store) Payouts(ctx context.Context, q PayoutQuery) ([]domain.Payout, error) {
	var w where
	w.addIn("affiliate_id", q.AffiliateIDs)
	if q.From != nil {
		w.add("period_end >= ?", q.From.UTC())
	}
	if q.To != nil {
		w.add("period_end <= ?", q.To.UTC())
	}

	sql := fmt.Sprintf("SELECT %s FROM affiliate_payouts %s ORDER BY period_end ASC, id ASC", payoutColumns, w.String())
	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query payouts: %w", err)
	}
	defer rows.Close()

	var out []domain.Payout
	for rows.Next() {
		p, err := scanPayout(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payout: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payouts: %w", err)
	}
	return out, nil
}

// ListPayouts returns one page of payouts plus the unpaged total.
func (s *Store) ListPayouts(ctx context.Context, opts ListPayoutsOptions) (domain.PayoutListResult, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	var w where
	if opts.AffiliateID != "" {
		w.add("affiliate_id = ?", opts.AffiliateID)
	}
	if opts.Status != "" {
		w.add("status = ?", opts.Status)
	}
	filter := w.String()
	order := orderBy(payoutSortColumns, opts.SortField, opts.SortOrder, "period_end")
	page := w.page(limit, offset)

	sql := fmt.Sprintf("SELECT %s, count(*) OVER() AS total FROM affiliate_payouts %s %s %s", payoutColumns, filter, order, page)
	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return domain.PayoutListResult{}, fmt.Errorf("list payouts: %w", err)
	}
	defer rows.Close()

	result := domain.PayoutListResult{Items: []domain.Payout{}}
	for rows.Next() {
		var (
			p      domain.Payout
			status string
		)
		if err := rows.Scan(&p.ID, &p.AffiliateID, &p.AmountCents, &status, &p.PeriodStart, &p.PeriodEnd, &p.ExternalTransferRef, &result.Total); err != nil {
			return domain.PayoutListResult{}, fmt.Errorf("scan payout: %w", err)
		}
		p.Status = domain.PayoutStatus(status)
		result.Items = append(result.Items, p)
	}
	if err := rows.Err(); err != nil {
		return domain.PayoutListResult{}, fmt.Errorf("iterate payouts: %w", err)
	}
	return result, nil
}

// UpsertPayout inserts a payout or refreshes its status and transfer reference.
func (s *Store) UpsertPayout(ctx context.Context, p domain.Payout) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO affiliate_payouts (id, affiliate_id, amount_cents, status, period_start, period_end, external_transfer_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		  SET status = EXCLUDED.status,
		      external_transfer_ref = EXCLUDED.external_transfer_ref`,
		p.ID, p.AffiliateID, p.AmountCents, string(p.Status), p.PeriodStart.UTC(), p.PeriodEnd.UTC(), p.ExternalTransferRef,
	)
	if err != nil {
		return fmt.Errorf("upsert payout %s: %w", p.ID, err)
	}
	return nil
}

func scanPayout(row pgx.Row) (domain.Payout, error) {
	var (
		p      domain.Payout
		status string
	)
	if err := row.Scan(&p.ID, &p.AffiliateID, &p.AmountCents, &status, &p.PeriodStart, &p.PeriodEnd, &p.ExternalTransferRef); err != nil {
		return domain.Payout{}, err
	}
	p.Status = domain.PayoutStatus(status)
	return p, nil
}
