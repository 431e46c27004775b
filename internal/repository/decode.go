package repository

import (
	"fmt"
	"time"

	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/graph"
)

func decodeAffiliate(record graph.Record) domain.Affiliate {
	a := domain.Affiliate{
		ID:           toString(record["affiliateId"]),
		UserID:       toString(record["userId"]),
		Status:       domain.AffiliateStatus(toString(record["status"])),
		ReferralCode: toString(record["referralCode"]),
		PromoCodes:   toStringSlice(record["promoCodes"]),
	}
	if parent := toString(record["parentAffiliateId"]); parent != "" {
		a.ParentAffiliateID = &parent
	}
	if created := toTimePtr(record["createdAt"]); created != nil {
		a.CreatedAt = *created
	}
	if updated := toTimePtr(record["updatedAt"]); updated != nil {
		a.UpdatedAt = *updated
	}
	return a
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func toString(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return ""
	}
}

func toInt64(val any) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func toStringSlice(val any) []string {
	switch v := val.(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := toString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func toTimePtr(val any) *time.Time {
	switch v := val.(type) {
	case time.Time:
		return &v
	case string:
		if v == "" {
			return nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return &parsed
		}
	}
	return nil
}
