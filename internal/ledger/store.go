package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

var (
	ErrNotFound             = errors.New("ledger record not found")
	ErrDuplicateAttribution = errors.New("user already attributed for this signup type")
)

// Querier is the slice of pgx used by Store; *pgxpool.Pool and pgx.Tx satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the Postgres-backed ledger.
type Store struct {
	db Querier
}

func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// EnsureSchema creates the ledger tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure ledger schema: %w", err)
		}
	}
	return nil
}

// Ping runs a trivial statement to check the connection.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("ping ledger: %w", err)
	}
	return nil
}

// CommissionQuery narrows a full commission snapshot. Zero values mean no filter.
type CommissionQuery struct {
	AffiliateIDs []string
	From         *time.Time
	To           *time.Time
}

// ListCommissionsOptions defines filters and pagination for commission listing.
type ListCommissionsOptions struct {
	Offset      int
	Limit       int
	AffiliateID string
	Status      string
	EventType   string
	Tier        string
	From        *time.Time
	To          *time.Time
	SortField   string
	SortOrder   string
}

const commissionColumns = `id, affiliate_id, amount_cents, status, event_type, tier, created_at`

var commissionSortColumns = map[string]string{
	"createdat":   "created_at",
	"amount":      "amount_cents",
	"amountcents": "amount_cents",
	"status":      "status",
	"affiliateid": "affiliate_id",
	"eventtype":   "event_type",
}

// Commissions returns every commission matching q, oldest first.
func (s *Store) Commissions(ctx context.Context, q CommissionQuery) ([]domain.Commission, error) {
	var w where
	w.addIn("affiliate_id", q.AffiliateIDs)
	if q.From != nil {
		w.add("created_at >= ?", q.From.UTC())
	}
	if q.To != nil {
		w.add("created_at <= ?", q.To.UTC())
	}

	sql := fmt.Sprintf("SELECT %s FROM affiliate_commissions %s ORDER BY created_at ASC, id ASC", commissionColumns, w.String())
	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return nil, fmt.Errorf("query commissions: %w", err)
	}
	defer rows.Close()

	var out []domain.Commission
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan commission: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate commissions: %w", err)
	}
	return out, nil
}

// ListCommissions returns one page of commissions plus the unpaged total.
func (s *Store) ListCommissions(ctx context.Context, opts ListCommissionsOptions) (domain.CommissionListResult, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	var w where
	if opts.AffiliateID != "" {
		w.add("affiliate_id = ?", opts.AffiliateID)
	}
	if opts.Status != "" {
		w.add("status = ?", opts.Status)
	}
	if opts.EventType != "" {
		w.add("event_type = ?", opts.EventType)
	}
	if opts.Tier != "" {
		w.add("tier = ?", opts.Tier)
	}
	if opts.From != nil {
		w.add("created_at >= ?", opts.From.UTC())
	}
	if opts.To != nil {
		w.add("created_at <= ?", opts.To.UTC())
	}
	filter := w.String()
	order := orderBy(commissionSortColumns, opts.SortField, opts.SortOrder, "created_at")
	page := w.page(limit, offset)

	sql := fmt.Sprintf("SELECT %s, count(*) OVER() AS total FROM affiliate_commissions %s %s %s", commissionColumns, filter, order, page)
	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return domain.CommissionListResult{}, fmt.Errorf("list commissions: %w", err)
	}
	defer rows.Close()

	result := domain.CommissionListResult{Items: []domain.Commission{}}
	for rows.Next() {
		var (
			c                       domain.Commission
			status, event, tierName string
		)
		if err := rows.Scan(&c.ID, &c.AffiliateID, &c.AmountCents, &status, &event, &tierName, &c.CreatedAt, &result.Total); err != nil {
			return domain.CommissionListResult{}, fmt.Errorf("scan commission: %w", err)
		}
		c.Status, c.EventType, c.Tier = domain.CommissionStatus(status), domain.EventType(event), domain.CommissionTier(tierName)
		result.Items = append(result.Items, c)
	}
	if err := rows.Err(); err != nil {
		return domain.CommissionListResult{}, fmt.Errorf("iterate commissions: %w", err)
	}
	return result, nil
}

// commissionTransitions restricts status updates to the forward moves
// allowed by domain.CommissionStatus.CanAdvanceTo.
var commissionTransitions = transitionPredicate("affiliate_commissions.status", "EXCLUDED.status")

func transitionPredicate(current, next string) string {
	var clauses []string
	for _, from := range domain.CommissionStatuses {
		var targets []string
		for _, to := range domain.CommissionStatuses {
			if from.CanAdvanceTo(to) {
				targets = append(targets, "'"+string(to)+"'")
			}
		}
		if len(targets) == 0 {
			continue
		}
		clauses = append(clauses, fmt.Sprintf("(%s = '%s' AND %s IN (%s))", current, from, next, strings.Join(targets, ", ")))
	}
	return "(" + strings.Join(clauses, " OR ") + ")"
}

// UpsertCommission inserts a commission or advances its status. Amounts are
// immutable, and backward or repeated status moves are ignored.
func (s *Store) UpsertCommission(ctx context.Context, c domain.Commission) error {
	tier := c.Tier
	if tier == "" {
		tier = domain.TierDirect
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO affiliate_commissions (id, affiliate_id, amount_cents, status, event_type, tier, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		  SET status = EXCLUDED.status
		  WHERE `+commissionTransitions,
		c.ID, c.AffiliateID, c.AmountCents, string(c.Status), string(c.EventType), string(tier), c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert commission %s: %w", c.ID, err)
	}
	return nil
}

func scanCommission(row pgx.Row) (domain.Commission, error) {
	var (
		c                       domain.Commission
		status, event, tierName string
	)
	if err := row.Scan(&c.ID, &c.AffiliateID, &c.AmountCents, &status, &event, &tierName, &c.CreatedAt); err != nil {
		return domain.Commission{}, err
	}
	c.Status = domain.CommissionStatus(status)
	c.EventType = domain.EventType(event)
	c.Tier = domain.CommissionTier(tierName)
	return c, nil
}
