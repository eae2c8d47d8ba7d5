package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lmoreira/genretag/report"
	"github.com/lmoreira/genretag/store"
)

var (
	reportFormat string
	reportOutput string
	reportTop    int
)

var reportCmd = &cobra.Command{
	Use:   "report <folder>",
	Short: "Summarize recorded classifications for a folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "Export format: csv, json, or dual")
	reportCmd.Flags().StringVar(&reportOutput, "output", "", "Export file path")
	reportCmd.Flags().IntVar(&reportTop, "top", 0, "Limit the genre listing to the N most common")
}

func runReport(cmd *cobra.Command, args []string) error {
	st := store.New(args[0])
	summary, err := report.Collect(st, cfg.Extension)
	if err != nil {
		return err
	}

	fmt.Printf("%s\n", args[0])
	fmt.Printf("  Scanned:    %d\n", len(summary.Rows))
	fmt.Printf("  Unscanned:  %d\n", summary.Unscanned)
	fmt.Printf("  Unpopular:  %d\n", summary.Unpopular)
	fmt.Printf("  Unknown:    %d\n", summary.Unknown)

	genres := summary.SortedGenres()
	if reportTop > 0 && len(genres) > reportTop {
		genres = genres[:reportTop]
	}
	if len(genres) > 0 {
		fmt.Println("  Genres:")
		for _, genre := range genres {
			fmt.Printf("    %-24s %d\n", genre, summary.GenreCounts[genre])
		}
	}

	if reportOutput != "" {
		format := reportFormat
		if format == "" {
			format = "csv"
		}
		if err := report.Export(format, reportOutput, summary.Rows); err != nil {
			return err
		}
		fmt.Printf("  Exported to %s (%s)\n", reportOutput, format)
	}
	return nil
}
