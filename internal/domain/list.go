package domain

// AffiliateListResult captures a page of affiliates and the unpaged total.
type AffiliateListResult struct {
	Items []Affiliate
	Total int64
}

// CommissionListResult captures a page of commission ledger rows.
type CommissionListResult struct {
	Items []Commission
	Total int64
}

// PayoutListResult captures a page of payout ledger rows.
type PayoutListResult struct {
	Items []Payout
	Total int64
}

// AttributionListResult captures a page of attribution records.
type AttributionListResult struct {
	Items []Attribution
	Total int64
}
