// Package store reads and writes the sidecar files holding classification
// outcomes. Each book file gets exactly one sidecar named after it with the
// extension swapped to .txt; the sidecar holds the literal token "unknown"
// or "unpopular", or a comma-separated genre list in site display order.
package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lmoreira/genretag/models"
)

// Store manages sidecars inside one folder. Filenames are unique keys, so
// concurrent writers for different books need no coordination.
type Store struct {
	dir string
}

// New builds a store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the folder this store operates on.
func (s *Store) Dir() string { return s.dir }

// SidecarPath returns the sidecar path for a book filename.
func (s *Store) SidecarPath(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	return filepath.Join(s.dir, base+".txt")
}

// Has reports whether a book already has a recorded outcome.
func (s *Store) Has(filename string) bool {
	_, err := os.Stat(s.SidecarPath(filename))
	return err == nil
}

// Write records the outcome for a book, replacing any previous sidecar.
func (s *Store) Write(filename string, outcome models.Outcome) error {
	path := s.SidecarPath(filename)
	if err := os.WriteFile(path, []byte(outcome.String()+"\n"), 0o644); err != nil {
		return fmt.Errorf("write sidecar %q: %w", path, err)
	}
	return nil
}

// Read loads a recorded outcome. Unrecognized content is treated as a genre
// list, matching what scans write.
func (s *Store) Read(filename string) (models.Outcome, error) {
	path := s.SidecarPath(filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Outcome{}, fmt.Errorf("read sidecar %q: %w", path, err)
	}
	return ParseOutcome(string(data)), nil
}

// ParseOutcome decodes sidecar content back into an outcome.
func ParseOutcome(content string) models.Outcome {
	content = strings.TrimSpace(content)
	switch content {
	case "", "unknown":
		return models.Unknown()
	case "unpopular":
		return models.Unpopular()
	}

	parts := strings.Split(content, ",")
	genres := make([]string, 0, len(parts))
	for _, part := range parts {
		if genre := strings.TrimSpace(part); genre != "" {
			genres = append(genres, genre)
		}
	}
	if len(genres) == 0 {
		return models.Unknown()
	}
	return models.Genres(genres)
}

// ListBooks returns the base names of all book files with the given
// extension, in directory order.
func (s *Store) ListBooks(extension string) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list folder %q: %w", s.dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), extension) {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// MovePair relocates a book and its sidecar into destDir as a unit. The
// destination folder is created when missing. A missing sidecar moves the
// book alone.
func (s *Store) MovePair(filename, destDir string) error {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create destination %q: %w", destDir, err)
	}

	src := filepath.Join(s.dir, filename)
	if err := os.Rename(src, filepath.Join(destDir, filename)); err != nil {
		return fmt.Errorf("move %q: %w", filename, err)
	}

	sidecar := s.SidecarPath(filename)
	if _, err := os.Stat(sidecar); err == nil {
		if err := os.Rename(sidecar, filepath.Join(destDir, filepath.Base(sidecar))); err != nil {
			return fmt.Errorf("move sidecar for %q: %w", filename, err)
		}
	}
	return nil
}

// DeletePair removes a book and its sidecar. A missing sidecar is not an
// error.
func (s *Store) DeletePair(filename string) error {
	if err := os.Remove(filepath.Join(s.dir, filename)); err != nil {
		return fmt.Errorf("delete %q: %w", filename, err)
	}
	if err := os.Remove(s.SidecarPath(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete sidecar for %q: %w", filename, err)
	}
	return nil
}
