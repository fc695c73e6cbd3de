package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/service"
	"stock-fundamentals/pkg/timeout"

	"github.com/spf13/cobra"
)

var (
	syncTickers      []string
	syncTimeoutMin   int
	syncTxMode       string
	syncForceRefresh bool
	syncMinRefresh   int
	syncForceDays    int
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one fundamentals sync pass over the given tickers",
	Run:   runSync,
}

func init() {
	syncCmd.Flags().StringSliceVar(&syncTickers, "tickers", []string{"AAPL", "MSFT", "GOOGL", "TSLA"}, "tickers to process")
	syncCmd.Flags().IntVar(&syncTimeoutMin, "timeout", 0, "total execution budget in minutes, 0 for unlimited")
	syncCmd.Flags().StringVar(&syncTxMode, "transaction-mode", string(dto.TransactionModeIndividual), "persistence mode: all-or-nothing or individual")
	syncCmd.Flags().BoolVar(&syncForceRefresh, "force-refresh", false, "fetch all tickers regardless of freshness")
	syncCmd.Flags().IntVar(&syncMinRefresh, "min-refresh-days", 0, "override the configured minimum refresh window")
	syncCmd.Flags().IntVar(&syncForceDays, "force-refresh-days", 0, "override the configured forced staleness threshold")
}

func runSync(cmd *cobra.Command, args []string) {
	mode := dto.TransactionMode(syncTxMode)
	if !mode.Valid() {
		fmt.Fprintf(os.Stderr, "invalid --transaction-mode %q: use %q or %q\n",
			syncTxMode, dto.TransactionModeAllOrNothing, dto.TransactionModeIndividual)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer appDep.Close()

	if syncMinRefresh > 0 || syncForceDays > 0 {
		minDays := appDep.cfg.Freshness.MinRefreshDays
		forceDays := appDep.cfg.Freshness.ForceRefreshDays
		if syncMinRefresh > 0 {
			minDays = syncMinRefresh
		}
		if syncForceDays > 0 {
			forceDays = syncForceDays
		}
		appDep.services.Freshness.SetPolicy(minDays, forceDays)
	}

	var guard *timeout.Guard
	if syncTimeoutMin > 0 {
		guard = timeout.NewGuard(syncTimeoutMin, appDep.log)
		guard.Start()
		defer guard.Stop()
	}

	summary, err := appDep.services.SyncService.Run(ctx, syncTickers, service.SyncOptions{
		ForceRefresh:    syncForceRefresh,
		TransactionMode: mode,
		Guard:           guard,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "sync failed: %v\n", err)
		os.Exit(1)
	}

	printSummary(summary)
	if len(summary.FailedTickers) > 0 {
		os.Exit(1)
	}
}

func printSummary(s *dto.SyncSummary) {
	fmt.Printf("session %s finished in %s\n", s.SessionID, s.Duration.Round(time.Millisecond))
	if f := s.Freshness; f != nil {
		fmt.Printf("  data age:  %d never fetched, %d fresh, %d stale, %d very old\n",
			len(f.NeverFetched), len(f.Fresh), len(f.Stale), len(f.VeryOld))
	}
	fmt.Printf("  fetched:   %d (of %d requested, %d skipped as fresh)\n",
		len(s.Fetch.Successful), s.Fetch.TotalRequested, len(s.Fetch.Skipped))
	fmt.Printf("  API calls: %d\n", s.Fetch.APICallsMade)
	if s.PersistSkipped {
		fmt.Println("  persisted: skipped (time budget exhausted, data remains staged)")
	} else if s.Persist != nil {
		fmt.Printf("  persisted: %d ok, %d failed\n", len(s.Persist.Successes), len(s.Persist.Failures))
	}
	if len(s.FailedTickers) > 0 {
		fmt.Printf("  failed:    %v\n", s.FailedTickers)
	}
}
