package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/graph"
)

var (
	ErrAffiliateNotFound = errors.New("affiliate not found")
	ErrReferralCodeTaken = errors.New("referral code already in use")
)

// ListAffiliatesOptions defines filters and pagination for affiliate listing.
type ListAffiliatesOptions struct {
	Offset    int
	Limit     int
	Search    string
	Status    string
	Role      string
	ParentID  string
	SortField string
	SortOrder string
}

// Repository keeps the affiliate hierarchy in the graph store.
type Repository struct {
	client graph.Client
}

// New instantiates a Repository backed by the supplied graph client.
func New(client graph.Client) *Repository {
	return &Repository{client: client}
}

// EnsureSchema creates the uniqueness constraints the repository relies on.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := r.client.ExecuteWrite(ctx, stmt, nil); err != nil {
			return fmt.Errorf("ensure graph schema: %w", err)
		}
	}
	return nil
}

// UpsertAffiliate writes the affiliate node and refreshes its parent and
// promo-code edges. The declared parent id is always stored on the node, even
// when the parent node does not exist yet, so inconsistent hierarchies stay
// visible to the report.
func (r *Repository) UpsertAffiliate(ctx context.Context, a domain.Affiliate) error {
	if a.ID == "" {
		return errors.New("affiliate id is required")
	}

	params := map[string]any{
		"affiliateId": a.ID,
		"parentId":    a.ParentID(),
		"props":       affiliateProperties(a),
		"promoCodes":  nonEmpty(a.PromoCodes),
	}

	if _, err := r.client.ExecuteWrite(ctx, upsertAffiliateCypher, params); err != nil {
		return fmt.Errorf("upsert affiliate %s: %w", a.ID, err)
	}
	return nil
}

// GetAffiliate returns one affiliate by id.
func (r *Repository) GetAffiliate(ctx context.Context, id string) (domain.Affiliate, error) {
	res, err := r.client.ExecuteRead(ctx, getAffiliateCypher, map[string]any{"affiliateId": id})
	if err != nil {
		return domain.Affiliate{}, fmt.Errorf("get affiliate %s: %w", id, err)
	}
	record, ok := res.First()
	if !ok {
		return domain.Affiliate{}, ErrAffiliateNotFound
	}
	return decodeAffiliate(record), nil
}

// FindByCode resolves a referral code or promo code to its affiliate.
func (r *Repository) FindByCode(ctx context.Context, code string) (domain.Affiliate, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return domain.Affiliate{}, ErrAffiliateNotFound
	}
	res, err := r.client.ExecuteRead(ctx, findByCodeCypher, map[string]any{"code": code})
	if err != nil {
		return domain.Affiliate{}, fmt.Errorf("find affiliate by code: %w", err)
	}
	record, ok := res.First()
	if !ok {
		return domain.Affiliate{}, ErrAffiliateNotFound
	}
	return decodeAffiliate(record), nil
}

// ListAffiliates returns paginated affiliates matching the provided filters.
func (r *Repository) ListAffiliates(ctx context.Context, opts ListAffiliatesOptions) (domain.AffiliateListResult, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	params := map[string]any{
		"search":   strings.ToLower(strings.TrimSpace(opts.Search)),
		"status":   strings.ToUpper(strings.TrimSpace(opts.Status)),
		"role":     strings.ToUpper(strings.TrimSpace(opts.Role)),
		"parentId": strings.TrimSpace(opts.ParentID),
		"skip":     offset,
		"limit":    limit,
	}

	query := fmt.Sprintf(listAffiliatesCypherTemplate, affiliateFilterClause, affiliateOrderClause(opts.SortField, opts.SortOrder))
	res, err := r.client.ExecuteRead(ctx, query, params)
	if err != nil {
		return domain.AffiliateListResult{}, fmt.Errorf("list affiliates query: %w", err)
	}

	items := make([]domain.Affiliate, 0, len(res.Records))
	for _, record := range res.Records {
		items = append(items, decodeAffiliate(record))
	}

	countRes, err := r.client.ExecuteRead(ctx, fmt.Sprintf(countAffiliatesCypherTemplate, affiliateFilterClause), params)
	if err != nil {
		return domain.AffiliateListResult{}, fmt.Errorf("count affiliates query: %w", err)
	}
	var total int64
	if record, ok := countRes.First(); ok {
		total = toInt64(record["total"])
	}

	return domain.AffiliateListResult{Items: items, Total: total}, nil
}

// ListChildren returns the affiliates that declare parentID as their parent.
func (r *Repository) ListChildren(ctx context.Context, parentID string) ([]domain.Affiliate, error) {
	res, err := r.client.ExecuteRead(ctx, listChildrenCypher, map[string]any{"parentId": parentID})
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", parentID, err)
	}
	children := make([]domain.Affiliate, 0, len(res.Records))
	for _, record := range res.Records {
		children = append(children, decodeAffiliate(record))
	}
	return children, nil
}

// AllAffiliates returns every affiliate node; the report resolves the
// hierarchy from the declared parent ids.
func (r *Repository) AllAffiliates(ctx context.Context) ([]domain.Affiliate, error) {
	res, err := r.client.ExecuteRead(ctx, allAffiliatesCypher, nil)
	if err != nil {
		return nil, fmt.Errorf("all affiliates query: %w", err)
	}
	out := make([]domain.Affiliate, 0, len(res.Records))
	for _, record := range res.Records {
		out = append(out, decodeAffiliate(record))
	}
	return out, nil
}

// UpdateReferralCode sets a new referral code unless another affiliate
// already holds it.
func (r *Repository) UpdateReferralCode(ctx context.Context, id, code string, at time.Time) error {
	res, err := r.client.ExecuteWrite(ctx, updateReferralCodeCypher, map[string]any{
		"affiliateId": id,
		"code":        code,
		"updatedAt":   formatTime(at),
	})
	if err != nil {
		return fmt.Errorf("update referral code for %s: %w", id, err)
	}
	record, ok := res.First()
	if !ok {
		return ErrAffiliateNotFound
	}
	if toInt64(record["taken"]) > 0 {
		return ErrReferralCodeTaken
	}
	return nil
}

// SetStatus changes an affiliate's status and returns the updated node.
func (r *Repository) SetStatus(ctx context.Context, id string, status domain.AffiliateStatus, at time.Time) (domain.Affiliate, error) {
	if !status.Valid() {
		return domain.Affiliate{}, fmt.Errorf("unknown affiliate status %q", status)
	}
	res, err := r.client.ExecuteWrite(ctx, setStatusCypher, map[string]any{
		"affiliateId": id,
		"status":      string(status),
		"updatedAt":   formatTime(at),
	})
	if err != nil {
		return domain.Affiliate{}, fmt.Errorf("set status for %s: %w", id, err)
	}
	record, ok := res.First()
	if !ok {
		return domain.Affiliate{}, ErrAffiliateNotFound
	}
	return decodeAffiliate(record), nil
}

func affiliateProperties(a domain.Affiliate) map[string]any {
	props := map[string]any{
		"userId":    a.UserID,
		"status":    string(a.Status),
		"updatedAt": formatTime(a.UpdatedAt),
	}
	if parent := a.ParentID(); parent != "" {
		props["parentAffiliateId"] = parent
	} else {
		props["parentAffiliateId"] = nil
	}
	if a.ReferralCode != "" {
		props["referralCode"] = a.ReferralCode
	}
	if !a.CreatedAt.IsZero() {
		props["createdAt"] = formatTime(a.CreatedAt)
	}
	return props
}

func affiliateOrderClause(field, order string) string {
	dir := "ASC"
	if strings.EqualFold(order, "DESC") {
		dir = "DESC"
	}
	switch strings.ToLower(field) {
	case "createdat":
		return fmt.Sprintf("datetime(a.createdAt) %s", dir)
	case "updatedat":
		return fmt.Sprintf("datetime(a.updatedAt) %s", dir)
	case "status":
		return fmt.Sprintf("a.status %s, a.affiliateId ASC", dir)
	case "referralcode":
		return fmt.Sprintf("a.referralCode %s", dir)
	default:
		return fmt.Sprintf("a.affiliateId %s", dir)
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToUpper(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
