package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"orderlife/application/sweep"
	"orderlife/cmd"
	"orderlife/config"
	"orderlife/pkg/logger"
)

const usage = `Usage: sweeper <command> [flags]

Commands:
  cancel-expired              Cancel unpaid orders past their auto-cancel deadline
  expire-no-received          Expire paid orders past their receipt deadline
  sync-sku-sales-real-total   Republish per-SKU sold counters

Common flags:
  -config <path>              Path to config file
`

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sweeper failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}
	command := os.Args[1]

	flags := flag.NewFlagSet(command, flag.ExitOnError)
	configPath := flags.String("config", "", "Path to config file")
	dryRun := flags.Bool("dry-run", false, "Report what would happen without mutating anything")
	batchSize := flags.Int("batch-size", 0, "Orders per batch (0 = config default)")
	limit := flags.Int("limit", 0, "Max orders to process (0 = unlimited)")
	if err := flags.Parse(os.Args[2:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.Init(&cfg.Log, cfg.App.Env); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	rt, err := cmd.BuildRuntime(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var report *sweep.Report
	switch command {
	case "cancel-expired":
		size := *batchSize
		if size == 0 {
			size = cfg.Sweep.Cancel.BatchSize
		}
		report, err = rt.CancelExpired.Run(ctx, sweep.CancelOptions{
			DryRun:    *dryRun,
			BatchSize: size,
			Limit:     *limit,
			Rate:      rate.Limit(cfg.Sweep.Cancel.Rate),
			Burst:     cfg.Sweep.Cancel.Burst,
		})
	case "expire-no-received":
		report, err = rt.ExpireUnreceived.Run(ctx)
	case "sync-sku-sales-real-total":
		report, err = rt.SyncRealSales.Run(ctx)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	printReport(report)

	// A dry run never fails the process; a live run fails only when at
	// least one order could not be processed.
	if !report.DryRun && report.Failed() {
		os.Exit(2)
	}
	return nil
}

func printReport(r *sweep.Report) {
	if r.DryRun {
		fmt.Printf("dry run: %d orders eligible\n", r.Eligible)
		for _, serial := range r.Preview {
			fmt.Printf("  would process %s\n", serial)
		}
		return
	}

	fmt.Printf("processed %d: %d succeeded, %d failed\n",
		r.Processed, r.Succeeded, len(r.Failures))
	for _, f := range r.Failures {
		logger.Warn("order failed",
			zap.String("order_id", f.OrderID),
			zap.String("serial", f.Serial),
			zap.Error(f.Err))
	}
}
