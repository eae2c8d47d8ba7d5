package main

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/lmoreira/genretag/report"
	"github.com/lmoreira/genretag/store"
)

var (
	sortGenre  string
	sortStatus string
	sortDest   string
	sortDelete bool
)

var sortCmd = &cobra.Command{
	Use:   "sort <folder>",
	Short: "Move or delete book/sidecar pairs by classification",
	Long: `sort selects books whose recorded classification matches --genre or
--status and relocates each (book, sidecar) pair into the destination
folder, or deletes both files when --delete is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runSort,
}

func init() {
	sortCmd.Flags().StringVar(&sortGenre, "genre", "", "Select books tagged with this genre")
	sortCmd.Flags().StringVar(&sortStatus, "status", "", "Select books by status: unpopular or unknown")
	sortCmd.Flags().StringVar(&sortDest, "dest", "", "Destination folder (default <folder>/<genre or status>)")
	sortCmd.Flags().BoolVar(&sortDelete, "delete", false, "Delete the selected pairs instead of moving them")
	sortCmd.MarkFlagsOneRequired("genre", "status")
	sortCmd.MarkFlagsMutuallyExclusive("genre", "status")
}

func runSort(cmd *cobra.Command, args []string) error {
	if sortStatus != "" && sortStatus != "unpopular" && sortStatus != "unknown" {
		return fmt.Errorf("status must be unpopular or unknown")
	}

	dir := args[0]
	st := store.New(dir)
	summary, err := report.Collect(st, cfg.Extension)
	if err != nil {
		return err
	}

	var selected []string
	for _, row := range summary.Rows {
		switch {
		case sortGenre != "" && slices.Contains(row.Genres, sortGenre):
			selected = append(selected, row.Filename)
		case sortStatus != "" && row.Status == sortStatus:
			selected = append(selected, row.Filename)
		}
	}
	if len(selected) == 0 {
		fmt.Println("No matching books.")
		return nil
	}

	if sortDelete {
		deleted := 0
		for _, file := range selected {
			if err := st.DeletePair(file); err != nil {
				return err
			}
			deleted++
		}
		fmt.Printf("Deleted %d book/sidecar pairs.\n", deleted)
		return nil
	}

	dest := sortDest
	if dest == "" {
		name := sortGenre
		if name == "" {
			name = sortStatus
		}
		dest = filepath.Join(dir, name)
	}
	moved := 0
	for _, file := range selected {
		if err := st.MovePair(file, dest); err != nil {
			return err
		}
		moved++
	}
	fmt.Printf("Moved %d book/sidecar pairs to %s.\n", moved, dest)
	return nil
}
