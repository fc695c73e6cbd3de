package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stock-fundamentals/internal/dto"
	"stock-fundamentals/internal/service"

	"github.com/spf13/cobra"
)

var (
	scheduleTickers []string
	scheduleTxMode  string
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the sync pipeline on the configured cron schedule until interrupted",
	Run:   runSchedule,
}

func init() {
	scheduleCmd.Flags().StringSliceVar(&scheduleTickers, "tickers", []string{"AAPL", "MSFT", "GOOGL", "TSLA"}, "tickers to process on each run")
	scheduleCmd.Flags().StringVar(&scheduleTxMode, "transaction-mode", string(dto.TransactionModeIndividual), "persistence mode: all-or-nothing or individual")
}

func runSchedule(cmd *cobra.Command, args []string) {
	mode := dto.TransactionMode(scheduleTxMode)
	if !mode.Valid() {
		fmt.Fprintf(os.Stderr, "invalid --transaction-mode %q: use %q or %q\n",
			scheduleTxMode, dto.TransactionModeAllOrNothing, dto.TransactionModeIndividual)
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

	err = appDep.services.SchedulerService.Start(ctx, scheduleTickers, service.SyncOptions{
		TransactionMode: mode,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduler failed: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()
	<-appDep.services.SchedulerService.Stop().Done()
}
