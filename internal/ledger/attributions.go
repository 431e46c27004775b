package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

// ListAttributionsOptions filters attribution listing. ActiveAt, when set,
// keeps only attributions whose window ends after it.
type ListAttributionsOptions struct {
	Offset      int
	Limit       int
	AffiliateID string
	UserID      string
	Source      string
	ActiveAt    *time.Time
}

const attributionColumns = `id, user_id, affiliate_id, type, source, created_at, ends_at`

const uniqueViolation = "23505"

// ListAttributions returns one page of attributions, newest first.
func (s *Store) ListAttributions(ctx context.Context, opts ListAttributionsOptions) (domain.AttributionListResult, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)

	var w where
	if opts.AffiliateID != "" {
		w.add("affiliate_id = ?", opts.AffiliateID)
	}
	if opts.UserID != "" {
		w.add("user_id = ?", opts.UserID)
	}
	if opts.Source != "" {
		w.add("source = ?", opts.Source)
	}
	if opts.ActiveAt != nil {
		w.add("ends_at > ?", opts.ActiveAt.UTC())
	}
	filter := w.String()
	page := w.page(limit, offset)

	sql := fmt.Sprintf("SELECT %s, count(*) OVER() AS total FROM affiliate_attributions %s ORDER BY created_at DESC, id ASC %s", attributionColumns, filter, page)
	rows, err := s.db.Query(ctx, sql, w.args...)
	if err != nil {
		return domain.AttributionListResult{}, fmt.Errorf("list attributions: %w", err)
	}
	defer rows.Close()

	result := domain.AttributionListResult{Items: []domain.Attribution{}}
	for rows.Next() {
		var (
			a            domain.Attribution
			kind, source string
		)
		if err := rows.Scan(&a.ID, &a.UserID, &a.AffiliateID, &kind, &source, &a.CreatedAt, &a.EndsAt, &result.Total); err != nil {
			return domain.AttributionListResult{}, fmt.Errorf("scan attribution: %w", err)
		}
		a.Type, a.Source = domain.AttributionType(kind), domain.AttributionSource(source)
		result.Items = append(result.Items, a)
	}
	if err := rows.Err(); err != nil {
		return domain.AttributionListResult{}, fmt.Errorf("iterate attributions: %w", err)
	}
	return result, nil
}

// GetAttribution loads one attribution by id.
func (s *Store) GetAttribution(ctx context.Context, id string) (domain.Attribution, error) {
	var (
		a            domain.Attribution
		kind, source string
	)
	err := s.db.QueryRow(ctx, "SELECT "+attributionColumns+" FROM affiliate_attributions WHERE id = $1", id).
		Scan(&a.ID, &a.UserID, &a.AffiliateID, &kind, &source, &a.CreatedAt, &a.EndsAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attribution{}, ErrNotFound
	}
	if err != nil {
		return domain.Attribution{}, fmt.Errorf("get attribution %s: %w", id, err)
	}
	a.Type, a.Source = domain.AttributionType(kind), domain.AttributionSource(source)
	return a, nil
}

// CreateAttribution inserts a new attribution. A user can be attributed once
// per signup type.
func (s *Store) CreateAttribution(ctx context.Context, a domain.Attribution) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO affiliate_attributions (id, user_id, affiliate_id, type, source, created_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		a.ID, a.UserID, a.AffiliateID, string(a.Type), string(a.Source), a.CreatedAt.UTC(), a.EndsAt.UTC(),
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrDuplicateAttribution
	}
	if err != nil {
		return fmt.Errorf("create attribution for user %s: %w", a.UserID, err)
	}
	return nil
}

// UpsertAttribution writes an attribution from a bulk import, replacing any
// earlier record with the same id.
func (s *Store) UpsertAttribution(ctx context.Context, a domain.Attribution) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO affiliate_attributions (id, user_id, affiliate_id, type, source, created_at, ends_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		  SET affiliate_id = EXCLUDED.affiliate_id,
		      source = EXCLUDED.source,
		      ends_at = EXCLUDED.ends_at`,
		a.ID, a.UserID, a.AffiliateID, string(a.Type), string(a.Source), a.CreatedAt.UTC(), a.EndsAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert attribution %s: %w", a.ID, err)
	}
	return nil
}
