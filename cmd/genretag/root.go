package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lmoreira/genretag/config"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "genretag",
	Short: "Classify e-book folders against a book catalog",
	Long: `genretag looks up every e-book in a folder on a book-metadata site and
records the result as a sidecar .txt next to each file: a genre list,
"unpopular" for books below the ratings threshold, or "unknown" when no
usable match exists. The report and sort commands work over the recorded
sidecars.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			loaded.Verbose = true
		}
		cfg = loaded

		logger, level := newLogger(cfg.Verbose)
		slog.SetDefault(logger)
		slog.SetLogLoggerLevel(level.Level())
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default genretag.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(sortCmd)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
