package domain

// AffiliateIncome is the per-affiliate view model recomputed from the ledger on
// every dashboard load. All amounts are integer cents.
type AffiliateIncome struct {
	AffiliateID       string          `json:"affiliateId"`
	ParentAffiliateID string          `json:"parentAffiliateId,omitempty"`
	Role              HierarchyRole   `json:"role"`
	Status            AffiliateStatus `json:"status"`

	DirectSubscriptionIncome int64 `json:"directSubscriptionIncome"`
	DirectTransactionIncome  int64 `json:"directTransactionIncome"`
	RefundAmount             int64 `json:"refundAmount"`

	// Tier breakdowns of the direct figures above.
	ParentSubscriptionIncome int64 `json:"parentSubscriptionIncome"`
	ParentTransactionIncome  int64 `json:"parentTransactionIncome"`
	SubSubscriptionIncome    int64 `json:"subSubscriptionIncome"`
	SubTransactionIncome     int64 `json:"subTransactionIncome"`

	PaidOut   int64 `json:"paidOut"`
	Pending   int64 `json:"pending"`
	Available int64 `json:"available"`
	Reversed  int64 `json:"reversed"`

	TotalIncome int64 `json:"totalIncome"`

	Transferred     int64 `json:"transferred"`
	PayoutsInFlight int64 `json:"payoutsInFlight"`
	FailedPayouts   int64 `json:"failedPayouts"`

	CommissionCount int `json:"commissionCount"`
	PayoutCount     int `json:"payoutCount"`
}

// HierarchyRollup combines a main affiliate's income with its sub-affiliates'.
type HierarchyRollup struct {
	ParentAffiliateID string   `json:"parentAffiliateId"`
	ChildAffiliateIDs []string `json:"childAffiliateIds"`
	ParentTotal       int64    `json:"parentTotal"`
	ChildrenTotal     int64    `json:"childrenTotal"`
	TotalWithSubs     int64    `json:"totalWithSubs"`
}
