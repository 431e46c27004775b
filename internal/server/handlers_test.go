package server

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/vanshika/affiliatedesk/internal/auth"
	"github.com/vanshika/affiliatedesk/internal/domain"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/logging"
	"github.com/vanshika/affiliatedesk/internal/metrics"
	"github.com/vanshika/affiliatedesk/internal/repository"
	"github.com/vanshika/affiliatedesk/internal/service"
)

var testNow = time.Date(2025, time.March, 14, 10, 0, 0, 0, time.UTC)

type apiStubAffiliates struct {
	affiliates []domain.Affiliate
	codeErr    error
}

func (a *apiStubAffiliates) UpsertAffiliate(context.Context, domain.Affiliate) error { return nil }

func (a *apiStubAffiliates) GetAffiliate(_ context.Context, id string) (domain.Affiliate, error) {
	for _, af := range a.affiliates {
		if af.ID == id {
			return af, nil
		}
	}
	return domain.Affiliate{}, repository.ErrAffiliateNotFound
}

func (a *apiStubAffiliates) FindByCode(context.Context, string) (domain.Affiliate, error) {
	return domain.Affiliate{}, repository.ErrAffiliateNotFound
}

func (a *apiStubAffiliates) ListAffiliates(context.Context, repository.ListAffiliatesOptions) (domain.AffiliateListResult, error) {
	return domain.AffiliateListResult{Items: a.affiliates, Total: int64(len(a.affiliates))}, nil
}

func (a *apiStubAffiliates) ListChildren(_ context.Context, parentID string) ([]domain.Affiliate, error) {
	var out []domain.Affiliate
	for _, af := range a.affiliates {
		if af.ParentID() == parentID {
			out = append(out, af)
		}
	}
	return out, nil
}

func (a *apiStubAffiliates) AllAffiliates(context.Context) ([]domain.Affiliate, error) {
	return a.affiliates, nil
}

func (a *apiStubAffiliates) UpdateReferralCode(context.Context, string, string, time.Time) error {
	return a.codeErr
}

func (a *apiStubAffiliates) SetStatus(ctx context.Context, id string, status domain.AffiliateStatus, _ time.Time) (domain.Affiliate, error) {
	af, err := a.GetAffiliate(ctx, id)
	af.Status = status
	return af, err
}

type apiStubLedger struct {
	commissions []domain.Commission
	payouts     []domain.Payout
}

func (l *apiStubLedger) Commissions(context.Context, ledger.CommissionQuery) ([]domain.Commission, error) {
	return l.commissions, nil
}

func (l *apiStubLedger) ListCommissions(context.Context, ledger.ListCommissionsOptions) (domain.CommissionListResult, error) {
	return domain.CommissionListResult{Items: l.commissions, Total: int64(len(l.commissions))}, nil
}

func (l *apiStubLedger) UpsertCommission(context.Context, domain.Commission) error { return nil }

func (l *apiStubLedger) Payouts(context.Context, ledger.PayoutQuery) ([]domain.Payout, error) {
	return l.payouts, nil
}

func (l *apiStubLedger) ListPayouts(context.Context, ledger.ListPayoutsOptions) (domain.PayoutListResult, error) {
	return domain.PayoutListResult{Items: l.payouts, Total: int64(len(l.payouts))}, nil
}

func (l *apiStubLedger) UpsertPayout(context.Context, domain.Payout) error { return nil }

func (l *apiStubLedger) ListAttributions(context.Context, ledger.ListAttributionsOptions) (domain.AttributionListResult, error) {
	return domain.AttributionListResult{}, nil
}

func (l *apiStubLedger) CreateAttribution(context.Context, domain.Attribution) error { return nil }

func (l *apiStubLedger) UpsertAttribution(context.Context, domain.Attribution) error { return nil }

func fixtureStores() (*apiStubAffiliates, *apiStubLedger) {
	parent := "P"
	at := testNow.Add(-time.Hour)
	affiliates := &apiStubAffiliates{affiliates: []domain.Affiliate{
		{ID: "P", UserID: "u-p", Status: domain.AffiliateStatusActive, ReferralCode: "PARENT0001"},
		{ID: "C", UserID: "u-c", Status: domain.AffiliateStatusActive, ParentAffiliateID: &parent},
	}}
	ledgerStore := &apiStubLedger{commissions: []domain.Commission{
		{ID: "c1", AffiliateID: "P", AmountCents: 500, Status: domain.CommissionAvailable, EventType: domain.EventSubscription, Tier: domain.TierDirect, CreatedAt: at},
		{ID: "c2", AffiliateID: "P", AmountCents: 300, Status: domain.CommissionPaid, EventType: domain.EventTransaction, Tier: domain.TierDirect, CreatedAt: at},
		{ID: "c3", AffiliateID: "P", AmountCents: -100, Status: domain.CommissionAvailable, EventType: domain.EventRefund, Tier: domain.TierDirect, CreatedAt: at},
		{ID: "c4", AffiliateID: "C", AmountCents: 200, Status: domain.CommissionPending, EventType: domain.EventSubscription, Tier: domain.TierSub, CreatedAt: at},
	}}
	return affiliates, ledgerStore
}

func newTestRouter(t *testing.T, deps RouterDependencies, affiliates *apiStubAffiliates, ledgerStore *apiStubLedger) http.Handler {
	t.Helper()
	svc := service.NewAffiliateService(affiliates, ledgerStore)
	svc.WithClock(func() time.Time { return testNow })
	deps.API = NewAPIHandlers(logging.Discard(), svc, "EUR")
	return NewRouter(logging.Discard(), deps)
}

func serve(h http.Handler, method, target string, body io.Reader, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestGetAffiliateWithChildren(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	router := newTestRouter(t, RouterDependencies{}, affiliates, ledgerStore)

	rec := serve(router, http.MethodGet, "/affiliates/P", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload affiliateDetailResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ID != "P" || payload.Role != "MAIN" || len(payload.Children) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected a generated request id")
	}

	rec = serve(router, http.MethodGet, "/affiliates/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdateReferralCodeStatuses(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	router := newTestRouter(t, RouterDependencies{}, affiliates, ledgerStore)

	rec := serve(router, http.MethodPut, "/affiliates/P/referral-code", strings.NewReader(`{"code":"abc"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed code, got %d", rec.Code)
	}

	rec = serve(router, http.MethodPut, "/affiliates/P/referral-code", strings.NewReader(`{"code":"spring2025"}`))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload referralCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.ReferralCode != "SPRING2025" {
		t.Fatalf("expected normalized code, got %q", payload.ReferralCode)
	}

	affiliates.codeErr = repository.ErrReferralCodeTaken
	rec = serve(router, http.MethodPut, "/affiliates/P/referral-code", strings.NewReader(`{"code":"SPRING2025"}`))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	rec = serve(router, http.MethodPut, "/affiliates/P/referral-code", strings.NewReader(`{"referral":"X"}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestIncomeReportEndpoint(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	router := newTestRouter(t, RouterDependencies{}, affiliates, ledgerStore)

	rec := serve(router, http.MethodGet, "/reports/income?role=main", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get(cacheHeader) != "miss" {
		t.Fatalf("expected cache miss header, got %q", rec.Header().Get(cacheHeader))
	}
	var payload reportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.AffiliateIncomes) != 1 || payload.AffiliateIncomes[0].TotalIncome != 700 {
		t.Fatalf("unexpected incomes: %+v", payload.AffiliateIncomes)
	}
	if payload.Totals.TotalIncome != 900 || payload.Rollups[0].TotalWithSubs != 900 {
		t.Fatalf("unexpected totals: %+v / %+v", payload.Totals, payload.Rollups)
	}
	if payload.Currency != "EUR" {
		t.Fatalf("expected currency EUR, got %q", payload.Currency)
	}

	rec = serve(router, http.MethodGet, "/reports/income?from=last-week", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for a bad date, got %d", rec.Code)
	}
}

func TestComputeReportValidation(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	router := newTestRouter(t, RouterDependencies{}, affiliates, ledgerStore)

	body := `{"affiliates":[{"id":"P","status":"ACTIVE","parentAffiliateId":null}],
		"commissions":[{"id":"c1","affiliateId":"P","status":"PAID","eventType":"SUBSCRIPTION","createdAt":"2025-03-01T00:00:00Z"}],
		"payouts":[]}`
	rec := serve(router, http.MethodPost, "/reports/income/compute", strings.NewReader(body))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload validationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(payload.Fields) != 1 || payload.Fields[0].Field != "commissions[0].amountCents" {
		t.Fatalf("unexpected field errors: %+v", payload.Fields)
	}

	body = strings.Replace(body, `"status":"PAID"`, `"amountCents":1200,"status":"PAID"`, 1)
	rec = serve(router, http.MethodPost, "/reports/income/compute", strings.NewReader(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAdminAuth(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	verifier := auth.NewVerifier("s3cret", "affiliatedesk", "admin")
	router := newTestRouter(t, RouterDependencies{Auth: verifier}, affiliates, ledgerStore)

	if rec := serve(router, http.MethodGet, "/affiliates", nil); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	viewer, err := verifier.Sign("ops-1", "viewer", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := serve(router, http.MethodGet, "/affiliates", nil, "Authorization", "Bearer "+viewer); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	admin, err := verifier.Sign("ops-2", "admin", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if rec := serve(router, http.MethodGet, "/affiliates", nil, "Authorization", "Bearer "+admin); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}

	if rec := serve(router, http.MethodGet, "/healthz", nil); rec.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", rec.Code)
	}
}

func TestExportIncomesCSV(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	router := newTestRouter(t, RouterDependencies{}, affiliates, ledgerStore)

	rec := serve(router, http.MethodGet, "/export/incomes?format=csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("expected text/csv content type, got %s", ct)
	}

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d", len(records))
	}
	if records[1][0] != "P" || records[1][7] != "€7.00" {
		t.Fatalf("unexpected first row: %v", records[1])
	}
}

func TestHealthzReportsDegradedComponents(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	probes := Probes{
		"graph":  func(context.Context) error { return nil },
		"ledger": func(context.Context) error { return errors.New("connection refused") },
	}
	router := newTestRouter(t, RouterDependencies{Health: probes}, affiliates, ledgerStore)

	rec := serve(router, http.MethodGet, "/healthz", nil, requestIDHeader, "req-123")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var payload healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.Components["graph"] != "ok" || payload.Components["ledger"] != "connection refused" {
		t.Fatalf("unexpected components: %+v", payload.Components)
	}
	if rec.Header().Get(requestIDHeader) != "req-123" {
		t.Fatalf("request id not propagated")
	}
}

func TestMetricsRecordRoutePattern(t *testing.T) {
	affiliates, ledgerStore := fixtureStores()
	m := metrics.New()
	router := newTestRouter(t, RouterDependencies{Metrics: m, MetricsEnabled: true}, affiliates, ledgerStore)

	serve(router, http.MethodGet, "/affiliates/C", nil)
	rec := serve(router, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `route="GET /affiliates/{id}"`) {
		t.Fatalf("expected route pattern label in metrics output")
	}
}
