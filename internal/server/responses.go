package server

import (
	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/income"
	"github.com/vanshika/affiliatedesk/internal/service"
)

type referralCodeRequest struct {
	Code string `json:"code"`
}

type referralCodeResponse struct {
	AffiliateID  string `json:"affiliateId"`
	ReferralCode string `json:"referralCode"`
}

type validationResponse struct {
	Error  string                  `json:"error"`
	Fields domain.ValidationErrors `json:"fields"`
}

type paginationResponse struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

func newPaginationResponse(meta service.PaginationMeta) paginationResponse {
	return paginationResponse{
		Page:       meta.Page,
		PageSize:   meta.PageSize,
		TotalItems: meta.TotalItems,
		TotalPages: meta.TotalPages,
	}
}

type affiliateResponse struct {
	ID                string   `json:"id"`
	UserID            string   `json:"userId"`
	Status            string   `json:"status"`
	Role              string   `json:"role"`
	ParentAffiliateID *string  `json:"parentAffiliateId"`
	ReferralCode      string   `json:"referralCode"`
	PromoCodes        []string `json:"promoCodes"`
	CreatedAt         string   `json:"createdAt"`
	UpdatedAt         string   `json:"updatedAt"`
}

func newAffiliateResponse(a domain.Affiliate) affiliateResponse {
	resp := affiliateResponse{
		ID:           a.ID,
		UserID:       a.UserID,
		Status:       string(a.Status),
		Role:         string(a.Role()),
		ReferralCode: a.ReferralCode,
		PromoCodes:   a.PromoCodes,
		CreatedAt:    formatTime(a.CreatedAt),
		UpdatedAt:    formatTime(a.UpdatedAt),
	}
	if resp.PromoCodes == nil {
		resp.PromoCodes = []string{}
	}
	if !a.IsMain() {
		parent := a.ParentID()
		resp.ParentAffiliateID = &parent
	}
	return resp
}

type affiliateDetailResponse struct {
	affiliateResponse
	Children []affiliateResponse `json:"children"`
}

type listAffiliatesResponse struct {
	Items      []affiliateResponse `json:"items"`
	Pagination paginationResponse  `json:"pagination"`
}

type commissionResponse struct {
	ID          string `json:"id"`
	AffiliateID string `json:"affiliateId"`
	AmountCents int64  `json:"amountCents"`
	Status      string `json:"status"`
	EventType   string `json:"eventType"`
	Tier        string `json:"tier"`
	CreatedAt   string `json:"createdAt"`
}

func newCommissionResponse(c domain.Commission) commissionResponse {
	return commissionResponse{
		ID:          c.ID,
		AffiliateID: c.AffiliateID,
		AmountCents: c.AmountCents,
		Status:      string(c.Status),
		EventType:   string(c.EventType),
		Tier:        string(c.Tier),
		CreatedAt:   formatTime(c.CreatedAt),
	}
}

type listCommissionsResponse struct {
	Items      []commissionResponse `json:"items"`
	Pagination paginationResponse   `json:"pagination"`
}

type payoutResponse struct {
	ID                  string `json:"id"`
	AffiliateID         string `json:"affiliateId"`
	AmountCents         int64  `json:"amountCents"`
	Status              string `json:"status"`
	PeriodStart         string `json:"periodStart"`
	PeriodEnd           string `json:"periodEnd"`
	ExternalTransferRef string `json:"externalTransferRef,omitempty"`
}

func newPayoutResponse(p domain.Payout) payoutResponse {
	return payoutResponse{
		ID:                  p.ID,
		AffiliateID:         p.AffiliateID,
		AmountCents:         p.AmountCents,
		Status:              string(p.Status),
		PeriodStart:         formatTime(p.PeriodStart),
		PeriodEnd:           formatTime(p.PeriodEnd),
		ExternalTransferRef: p.ExternalTransferRef,
	}
}

type listPayoutsResponse struct {
	Items      []payoutResponse   `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}

type attributionResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	AffiliateID string `json:"affiliateId"`
	Type        string `json:"type"`
	Source      string `json:"source"`
	CreatedAt   string `json:"createdAt"`
	EndsAt      string `json:"endsAt"`
}

func newAttributionResponse(a domain.Attribution) attributionResponse {
	return attributionResponse{
		ID:          a.ID,
		UserID:      a.UserID,
		AffiliateID: a.AffiliateID,
		Type:        string(a.Type),
		Source:      string(a.Source),
		CreatedAt:   formatTime(a.CreatedAt),
		EndsAt:      formatTime(a.EndsAt),
	}
}

type listAttributionsResponse struct {
	Items      []attributionResponse `json:"items"`
	Pagination paginationResponse    `json:"pagination"`
}

type reportResponse struct {
	income.Report
	Currency string `json:"currency"`
	Cached   bool   `json:"cached"`
}

type affiliateIncomeResponse struct {
	Affiliate       affiliateResponse       `json:"affiliate"`
	Income          domain.AffiliateIncome  `json:"income"`
	Rollup          *domain.HierarchyRollup `json:"rollup,omitempty"`
	MonthlyTrend    map[string]int64        `json:"monthlyTrend"`
	Inconsistencies []income.Inconsistency  `json:"inconsistencies"`
	Currency        string                  `json:"currency"`
}
