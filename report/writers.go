// Package report summarizes and exports recorded classifications.
package report

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lmoreira/genretag/models"
	"github.com/lmoreira/genretag/store"
)

// Row pairs one book file with its recorded outcome.
type Row struct {
	Filename string   `json:"filename"`
	Status   string   `json:"status"`
	Genres   []string `json:"genres,omitempty"`
}

// Summary aggregates a folder's sidecars.
type Summary struct {
	Rows        []Row
	GenreCounts map[string]int
	Unpopular   int
	Unknown     int
	Unscanned   int
}

// Collect reads every book's sidecar in the store's folder and aggregates
// genre counts. Books without a sidecar are counted as unscanned.
func Collect(st *store.Store, extension string) (*Summary, error) {
	files, err := st.ListBooks(extension)
	if err != nil {
		return nil, err
	}

	summary := &Summary{GenreCounts: make(map[string]int)}
	for _, file := range files {
		if !st.Has(file) {
			summary.Unscanned++
			continue
		}
		outcome, err := st.Read(file)
		if err != nil {
			return nil, err
		}

		row := Row{Filename: file}
		switch outcome.Kind {
		case models.OutcomeUnpopular:
			row.Status = "unpopular"
			summary.Unpopular++
		case models.OutcomeGenres:
			row.Status = "genres"
			row.Genres = outcome.Genres
			for _, genre := range outcome.Genres {
				summary.GenreCounts[genre]++
			}
		default:
			row.Status = "unknown"
			summary.Unknown++
		}
		summary.Rows = append(summary.Rows, row)
	}
	return summary, nil
}

// SortedGenres returns genre names ordered by descending count, ties
// alphabetical.
func (s *Summary) SortedGenres() []string {
	genres := make([]string, 0, len(s.GenreCounts))
	for genre := range s.GenreCounts {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool {
		if s.GenreCounts[genres[i]] != s.GenreCounts[genres[j]] {
			return s.GenreCounts[genres[i]] > s.GenreCounts[genres[j]]
		}
		return genres[i] < genres[j]
	})
	return genres
}

// WriteCSV exports the inventory rows as CSV.
func WriteCSV(filename string, rows []Row) error {
	if err := ensureDir(filename); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"filename", "status", "genres"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		record := []string{row.Filename, row.Status, strings.Join(row.Genres, "; ")}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv records: %w", err)
	}
	return nil
}

// WriteJSON exports the inventory rows as newline-delimited JSON.
func WriteJSON(filename string, rows []Row) error {
	if err := ensureDir(filename); err != nil {
		return err
	}

	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}
	defer f.Close()

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	for _, row := range rows {
		if err := encoder.Encode(row); err != nil {
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := buffer.Flush(); err != nil {
		return fmt.Errorf("flush json writer: %w", err)
	}
	return nil
}

// Export writes rows in the requested format: csv, json, or both.
func Export(format, filename string, rows []Row) error {
	switch format {
	case "csv":
		return WriteCSV(filename, rows)
	case "json":
		return WriteJSON(filename, rows)
	case "dual":
		if err := WriteCSV(filename, rows); err != nil {
			return err
		}
		jsonName := strings.TrimSuffix(filename, filepath.Ext(filename)) + ".json"
		return WriteJSON(jsonName, rows)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
