package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lmoreira/genretag/models"
	"github.com/lmoreira/genretag/pipeline"
)

var (
	scanBatchSize   int
	scanConcurrency int
	scanMinRatings  int
	scanMaxRetries  int
	scanBaseURL     string
	scanMetricsAddr string
)

var scanCmd = &cobra.Command{
	Use:   "scan <folder>",
	Short: "Classify every unscanned book in a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanBatchSize, "batch-size", 0, "Files per batch (progress granularity)")
	scanCmd.Flags().IntVar(&scanConcurrency, "concurrency", 0, "Maximum concurrent catalog requests")
	scanCmd.Flags().IntVar(&scanMinRatings, "min-ratings", 0, "Ratings threshold for a detail lookup")
	scanCmd.Flags().IntVar(&scanMaxRetries, "max-retries", -1, "Retry attempts per page")
	scanCmd.Flags().StringVar(&scanBaseURL, "base-url", "", "Catalog base URL")
	scanCmd.Flags().StringVar(&scanMetricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
}

func runScan(cmd *cobra.Command, args []string) error {
	dir := args[0]
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%q is not a folder", dir)
	}

	if scanBatchSize > 0 {
		cfg.BatchSize = scanBatchSize
	}
	if scanConcurrency > 0 {
		cfg.FetchConcurrency = scanConcurrency
	}
	if scanMinRatings > 0 {
		cfg.MinRatings = scanMinRatings
	}
	if scanMaxRetries >= 0 {
		cfg.MaxRetries = scanMaxRetries
	}
	if scanBaseURL != "" {
		cfg.BaseURL = scanBaseURL
	}
	if scanMetricsAddr != "" {
		cfg.MetricsAddr = scanMetricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Title cleanup stays an injected collaborator; without one the raw
	// filename is sanitized and used directly.
	p, err := pipeline.New(cfg, nil)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing in-flight items")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(p.Fetcher().Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	report, runErr := p.ProcessFolder(ctx, dir)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	if report != nil {
		printScanSummary(dir, report)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func printScanSummary(dir string, report *models.ScanReport) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Printf("Scan of %s\n", dir)
	fmt.Printf("  Files found:      %d\n", report.TotalFiles)
	fmt.Printf("  Already scanned:  %d\n", report.Skipped)
	fmt.Printf("  Genres found:     %d\n", report.GenresFound)
	fmt.Printf("  Unpopular:        %d\n", report.Unpopular)
	fmt.Printf("  Unknown:          %d\n", report.Unknown)
	if report.CacheHits > 0 {
		fmt.Printf("  Cache hits:       %d\n", report.CacheHits)
	}
	if report.BlockEpisodes > 0 {
		fmt.Printf("  Throttle pauses:  %d  (unknown results may be throttle artifacts)\n", report.BlockEpisodes)
	}
	if len(report.FailedFiles) > 0 {
		fmt.Printf("  Write failures:   %d\n", len(report.FailedFiles))
	}
	fmt.Printf("  Duration:         %v\n", report.EndTime.Sub(report.StartTime).Round(time.Millisecond))
	fmt.Println(separator)
}
