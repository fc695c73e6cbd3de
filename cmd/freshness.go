package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stock-fundamentals/internal/dto"

	"github.com/spf13/cobra"
)

var freshnessTickers []string

var freshnessCmd = &cobra.Command{
	Use:   "freshness",
	Short: "Report data age per ticker without fetching anything",
	Run:   runFreshness,
}

func init() {
	freshnessCmd.Flags().StringSliceVar(&freshnessTickers, "tickers", []string{"AAPL", "MSFT", "GOOGL", "TSLA"}, "tickers to report on")
}

func runFreshness(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer appDep.Close()

	report := appDep.services.Freshness.Report(ctx, freshnessTickers)

	fmt.Printf("freshness report for %d tickers\n", report.TotalTickers)
	if len(report.NeverFetched) > 0 {
		fmt.Printf("  never fetched: %v\n", report.NeverFetched)
	}
	printAgeBucket("fresh (<30d)", report.Fresh)
	printAgeBucket("stale (30-180d)", report.Stale)
	printAgeBucket("very old (>180d)", report.VeryOld)
}

func printAgeBucket(label string, ages []dto.TickerAge) {
	if len(ages) == 0 {
		return
	}
	fmt.Printf("  %s:\n", label)
	for _, age := range ages {
		fmt.Printf("    %-8s %d days\n", age.Ticker, age.DaysOld)
	}
}
