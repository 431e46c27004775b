package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// TaskError collects the per-record failures of one ingestion batch.
type TaskError struct {
	Errors []error
}

func (e *TaskError) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d errors:", len(e.Errors))
	for _, err := range e.Errors {
		b.WriteString(" " + err.Error() + ";")
	}
	return b.String()
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e *TaskError) Unwrap() []error {
	return e.Errors
}

func (e *TaskError) append(err error) {
	if err == nil {
		return
	}
	e.Errors = append(e.Errors, err)
}

func (e *TaskError) asError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// BulkIngestor loads ledger snapshots into the stores using worker pools.
type BulkIngestor struct {
	service *AffiliateService
	workers int
}

// NewBulkIngestor creates a new BulkIngestor instance with the provided concurrency.
func NewBulkIngestor(service *AffiliateService, workers int) *BulkIngestor {
	if workers <= 0 {
		workers = 4
	}
	return &BulkIngestor{
		service: service,
		workers: workers,
	}
}

// IngestAffiliates writes main affiliates before sub-affiliates so parent
// edges find their target node.
func (bi *BulkIngestor) IngestAffiliates(ctx context.Context, affiliates []AffiliateInput) error {
	var mains, subs []AffiliateInput
	for _, a := range affiliates {
		if a.ParentAffiliateID == nil || sanitizeString(*a.ParentAffiliateID) == "" {
			mains = append(mains, a)
		} else {
			subs = append(subs, a)
		}
	}
	for _, batch := range [][]AffiliateInput{mains, subs} {
		err := bi.run(ctx, len(batch), func(idx int) error {
			return bi.observe("affiliate", bi.service.UpsertAffiliate(ctx, batch[idx]))
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// IngestCommissions processes commission rows concurrently.
func (bi *BulkIngestor) IngestCommissions(ctx context.Context, rows []CommissionInput) error {
	return bi.run(ctx, len(rows), func(idx int) error {
		return bi.observe("commission", bi.service.UpsertCommission(ctx, rows[idx]))
	})
}

// IngestPayouts processes payout rows concurrently.
func (bi *BulkIngestor) IngestPayouts(ctx context.Context, rows []PayoutInput) error {
	return bi.run(ctx, len(rows), func(idx int) error {
		return bi.observe("payout", bi.service.UpsertPayout(ctx, rows[idx]))
	})
}

// IngestAttributions processes attribution records concurrently.
func (bi *BulkIngestor) IngestAttributions(ctx context.Context, rows []AttributionInput) error {
	return bi.run(ctx, len(rows), func(idx int) error {
		return bi.observe("attribution", bi.service.ImportAttribution(ctx, rows[idx]))
	})
}

func (bi *BulkIngestor) observe(kind string, err error) error {
	bi.service.metrics.ObserveIngest(kind, err == nil)
	if err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

func (bi *BulkIngestor) run(ctx context.Context, total int, workerFn func(idx int) error) error {
	if total == 0 {
		return nil
	}
	indexCh := make(chan int)
	errCh := make(chan error, total)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for idx := range indexCh {
			if err := workerFn(idx); err != nil {
				errCh <- err
			}
		}
	}

	for i := 0; i < bi.workers; i++ {
		wg.Add(1)
		go worker()
	}

Loop:
	for i := 0; i < total; i++ {
		select {
		case indexCh <- i:
		case <-ctx.Done():
			break Loop
		}
	}
	close(indexCh)
	wg.Wait()
	close(errCh)

	var taskErr TaskError
	for err := range errCh {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			continue
		}
		taskErr.append(err)
	}
	// Rows left undispatched after a cancel make the batch incomplete.
	if err := ctx.Err(); err != nil {
		return errors.Join(err, taskErr.asError())
	}
	return taskErr.asError()
}
