package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/vanshika/affiliatedesk/internal/generator"
)

func main() {
	cfg := generator.DefaultConfig()
	var (
		mains          = flag.Int("mains", cfg.NumMainAffiliates, "number of main affiliates to generate")
		maxSubs        = flag.Int("max-subs", cfg.MaxSubsPerMain, "maximum sub-affiliates per main affiliate")
		commissions    = flag.Int("commissions", cfg.CommissionsPerAffiliate, "commission rows per affiliate")
		months         = flag.Int("months", cfg.Months, "months of history to spread commissions over")
		refundChance   = flag.Float64("refund-chance", cfg.RefundChance, "probability that a commission is a refund")
		reversedChance = flag.Float64("reversed-chance", cfg.ReversedChance, "probability that a commission is reversed")
		parentChance   = flag.Float64("parent-share-chance", cfg.ParentShareChance, "probability that a sub-affiliate sale also pays the parent")
		brokenChance   = flag.Float64("inconsistent-chance", cfg.InconsistentChance, "probability of adding an orphaned sub-affiliate per main")
		seed           = flag.Int64("seed", cfg.Seed, "random seed for deterministic generation")
		outputDir      = flag.String("output-dir", "seed-data", "directory to write the dataset files")
		writeStdout    = flag.Bool("stdout", false, "write the snapshot to stdout instead of files")
	)
	flag.Parse()

	genCfg := generator.Config{
		NumMainAffiliates:       *mains,
		MaxSubsPerMain:          *maxSubs,
		CommissionsPerAffiliate: *commissions,
		Months:                  *months,
		RefundChance:            clampProbability(*refundChance),
		ReversedChance:          clampProbability(*reversedChance),
		ParentShareChance:       clampProbability(*parentChance),
		InconsistentChance:      clampProbability(*brokenChance),
		Seed:                    *seed,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dataset, err := generator.New(genCfg).Generate(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}

	if *writeStdout {
		if err := json.NewEncoder(os.Stdout).Encode(dataset.Snapshot()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to write dataset to stdout: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := generator.WriteDataset(dataset, *outputDir); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write dataset: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stdout, "Generated %d affiliates, %d commissions, %d payouts and %d attributions into %s\n",
		len(dataset.Affiliates), len(dataset.Commissions), len(dataset.Payouts), len(dataset.Attributions), *outputDir)
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
