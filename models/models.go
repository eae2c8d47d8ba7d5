// Package models defines the data structures shared across the scan pipeline.
package models

import (
	"strings"
	"time"
)

// WorkItem is one book file's unit of pipeline work. It is created when a
// batch starts and owned by a single worker until its outcome is recorded.
type WorkItem struct {
	// Filename is the book file's base name, including extension.
	Filename string
	// Title is the normalized, search-ready title derived from Filename.
	Title string
}

// SearchResult is the first result row of a catalog search page.
type SearchResult struct {
	BookURL      string
	RatingsCount int
}

// BookRecord holds the fields extracted from a catalog detail page. Genres
// preserve the site's display order with duplicates removed.
type BookRecord struct {
	URL    string
	Genres []string
}

// OutcomeKind tags the terminal classification of a WorkItem.
type OutcomeKind int

const (
	// OutcomeUnknown covers "no match" and every failure-mapped result.
	OutcomeUnknown OutcomeKind = iota
	// OutcomeUnpopular marks books below the ratings threshold.
	OutcomeUnpopular
	// OutcomeGenres marks books with a non-empty extracted genre list.
	OutcomeGenres
)

// Outcome is the terminal classification written to the result store.
type Outcome struct {
	Kind   OutcomeKind
	Genres []string
}

// Unknown returns the unknown outcome.
func Unknown() Outcome { return Outcome{Kind: OutcomeUnknown} }

// Unpopular returns the unpopular outcome.
func Unpopular() Outcome { return Outcome{Kind: OutcomeUnpopular} }

// Genres returns a genre outcome. The caller guarantees a non-empty list.
func Genres(genres []string) Outcome {
	return Outcome{Kind: OutcomeGenres, Genres: genres}
}

// String renders the outcome in the sidecar format: the literal tokens
// "unknown" and "unpopular", or the comma-joined genre list.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeUnpopular:
		return "unpopular"
	case OutcomeGenres:
		return strings.Join(o.Genres, ", ")
	default:
		return "unknown"
	}
}

// ScanReport summarizes one folder run.
type ScanReport struct {
	StartTime     time.Time
	EndTime       time.Time
	TotalFiles    int
	Skipped       int
	GenresFound   int
	Unpopular     int
	Unknown       int
	CacheHits     int
	BlockEpisodes int
	FailedFiles   []string
}

// Processed returns the number of files that reached a terminal outcome in
// this run.
func (r *ScanReport) Processed() int {
	return r.GenresFound + r.Unpopular + r.Unknown
}
