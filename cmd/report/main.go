package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/vanshika/affiliatedesk/internal/config"
	"github.com/vanshika/affiliatedesk/internal/generator"
	"github.com/vanshika/affiliatedesk/internal/graph"
	"github.com/vanshika/affiliatedesk/internal/income"
	"github.com/vanshika/affiliatedesk/internal/ledger"
	"github.com/vanshika/affiliatedesk/internal/logging"
	"github.com/vanshika/affiliatedesk/internal/money"
	"github.com/vanshika/affiliatedesk/internal/repository"
	"github.com/vanshika/affiliatedesk/internal/service"
)

func main() {
	var (
		datasetDir = flag.String("dataset-dir", "", "Compute from a snapshot directory instead of the live stores")
		from       = flag.String("from", "", "Only count commissions created on or after this date (YYYY-MM-DD or RFC3339)")
		to         = flag.String("to", "", "Only count commissions created on or before this date")
		top        = flag.Int("top", 0, "Number of top performers (defaults to REPORT_TOP_N)")
		months     = flag.Int("months", 0, "Trend length in months (defaults to REPORT_TREND_MONTHS)")
		asJSON     = flag.Bool("json", false, "Print the full report as JSON")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(logging.NewWithWriter(cfg.Logging, os.Stderr), "report")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	params := service.ReportParams{From: *from, To: *to, Refresh: true}
	topN, trendMonths := cfg.Report.TopN, cfg.Report.TrendMonths
	if *top > 0 {
		topN = *top
	}
	if *months > 0 {
		trendMonths = *months
	}

	var report income.Report
	if *datasetDir != "" {
		dataset, err := generator.ReadDataset(*datasetDir)
		if err != nil {
			logger.Error("failed to load dataset", "error", err, "dir", *datasetDir)
			os.Exit(1)
		}
		svc := service.NewAffiliateService(nil, nil)
		svc.WithLogger(logger)
		svc.WithReportDefaults(topN, trendMonths)
		report, err = svc.ComputeReport(ctx, dataset.Snapshot(), params)
		if err != nil {
			logger.Error("failed to compute report", "error", err)
			os.Exit(1)
		}
	} else {
		report, err = liveReport(ctx, cfg, params, topN, trendMonths)
		if err != nil {
			logger.Error("failed to compute report", "error", err)
			os.Exit(1)
		}
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Error("failed to encode report", "error", err)
			os.Exit(1)
		}
		return
	}
	printReport(os.Stdout, report, cfg.Report.Currency, trendMonths)
}

func liveReport(ctx context.Context, cfg config.Config, params service.ReportParams, topN, trendMonths int) (income.Report, error) {
	logger := logging.Discard()
	graphClient, err := graph.NewNeo4jClient(ctx, graph.OptionsFromConfig(cfg.Graph))
	if err != nil {
		return income.Report{}, err
	}
	defer graphClient.Close(context.Background())

	pool, err := ledger.NewPool(ctx, cfg.Ledger, logger)
	if err != nil {
		return income.Report{}, err
	}
	defer pool.Close()

	svc := service.NewAffiliateService(repository.New(graphClient), ledger.NewStore(pool))
	svc.WithReportDefaults(topN, trendMonths)
	res, err := svc.IncomeReport(ctx, params)
	if err != nil {
		return income.Report{}, err
	}
	return res.Report, nil
}

func printReport(w io.Writer, report income.Report, currency string, trendMonths int) {
	t := report.Totals
	fmt.Fprintf(w, "Affiliates: %d   Income: %s   Refunds: %s   Paid out: %s   Pending: %s   Available: %s\n\n",
		t.Affiliates,
		money.Format(t.TotalIncome, currency),
		money.Format(t.RefundAmount, currency),
		money.Format(t.PaidOut, currency),
		money.Format(t.Pending, currency),
		money.Format(t.Available, currency))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "RANK\tAFFILIATE\tROLE\tINCOME\tPAID\tPENDING\t")
	for i, inc := range report.TopPerformers {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", i+1, inc.AffiliateID, inc.Role,
			money.Format(inc.TotalIncome, currency),
			money.Format(inc.PaidOut, currency),
			money.Format(inc.Pending, currency))
	}
	tw.Flush()

	fmt.Fprintln(w, "\nMonthly trend")
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	for _, month := range income.TrailingMonths(report.GeneratedAt, trendMonths) {
		fmt.Fprintf(tw, "%s\t%s\t\n", month, money.Format(report.MonthlyTrend[month], currency))
	}
	tw.Flush()

	if len(report.Inconsistencies) > 0 {
		fmt.Fprintf(w, "\n%d inconsistencies\n", len(report.Inconsistencies))
		for _, issue := range report.Inconsistencies {
			fmt.Fprintf(w, "  %-20s %-16s %s\n", issue.Kind, issue.AffiliateID, issue.Message)
		}
	}
}
