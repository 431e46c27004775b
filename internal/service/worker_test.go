package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vanshika/affiliatedesk/internal/domain"
)

func TestIngestAffiliatesWritesMainsFirst(t *testing.T) {
	affiliates := newStubAffiliates()
	svc := newTestService(affiliates, &stubLedger{})
	ingestor := NewBulkIngestor(svc, 3)

	inputs := []AffiliateInput{
		{ID: "C1", Status: "ACTIVE", ParentAffiliateID: strPtr("P1")},
		{ID: "C2", Status: "ACTIVE", ParentAffiliateID: strPtr("P2")},
		{ID: "P1", Status: "ACTIVE"},
		{ID: "P2", Status: "ACTIVE", ParentAffiliateID: strPtr(" ")},
	}
	if err := ingestor.IngestAffiliates(context.Background(), inputs); err != nil {
		t.Fatalf("IngestAffiliates returned error: %v", err)
	}
	if len(affiliates.order) != 4 {
		t.Fatalf("expected 4 affiliates, got %d", len(affiliates.order))
	}
	for i, id := range affiliates.order[:2] {
		if !affiliates.byID[id].IsMain() {
			t.Fatalf("position %d holds sub-affiliate %s before mains were written", i, id)
		}
	}
}

func TestIngestCommissionsCollectsErrors(t *testing.T) {
	ledgerStore := &stubLedger{}
	svc := newTestService(newStubAffiliates(), ledgerStore)
	ingestor := NewBulkIngestor(svc, 2)

	rows := []CommissionInput{
		{ID: "c1", AffiliateID: "P", AmountCents: int64Ptr(100), Status: "PAID", EventType: "SUBSCRIPTION", CreatedAt: timePtr(fixedNow)},
		{ID: "c2", AffiliateID: "P", Status: "PAID", EventType: "SUBSCRIPTION", CreatedAt: timePtr(fixedNow)},
		{ID: "c3", AffiliateID: "P", AmountCents: int64Ptr(100), Status: "LOST", EventType: "SUBSCRIPTION", CreatedAt: timePtr(fixedNow)},
	}
	err := ingestor.IngestCommissions(context.Background(), rows)

	var taskErr *TaskError
	if !errors.As(err, &taskErr) {
		t.Fatalf("expected TaskError, got %v", err)
	}
	if len(taskErr.Errors) != 2 {
		t.Fatalf("expected 2 failures, got %d: %v", len(taskErr.Errors), taskErr)
	}
	var verrs domain.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("validation errors should be reachable through TaskError")
	}
	if len(ledgerStore.commissions) != 1 {
		t.Fatalf("expected the valid row to be stored, got %d", len(ledgerStore.commissions))
	}
}

func TestIngestCommissionsReportsCancellation(t *testing.T) {
	ledgerStore := &stubLedger{}
	svc := newTestService(newStubAffiliates(), ledgerStore)
	ingestor := NewBulkIngestor(svc, 4)

	rows := make([]CommissionInput, 1000)
	for i := range rows {
		rows[i] = CommissionInput{
			ID:          fmt.Sprintf("c%d", i),
			AffiliateID: "P",
			AmountCents: int64Ptr(100),
			Status:      "PAID",
			EventType:   "SUBSCRIPTION",
			CreatedAt:   timePtr(fixedNow),
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ingestor.IngestCommissions(ctx, rows)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
