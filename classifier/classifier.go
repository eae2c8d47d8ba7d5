// Package classifier turns parsed catalog signals into terminal outcomes.
package classifier

import "github.com/lmoreira/genretag/models"

// Classifier applies the popularity threshold to parse results. Both
// methods are pure; the per-item state machine lives in the caller.
type Classifier struct {
	// MinRatings is inclusive: a book rated exactly at the threshold
	// proceeds to the detail fetch.
	MinRatings int
}

// New builds a classifier with the given ratings threshold.
func New(minRatings int) Classifier {
	return Classifier{MinRatings: minRatings}
}

// AfterSearch decides the next step from a search result. When done is
// true, outcome is terminal and no detail fetch may be issued.
func (c Classifier) AfterSearch(res *models.SearchResult) (outcome models.Outcome, done bool) {
	if res == nil {
		return models.Unknown(), true
	}
	if res.RatingsCount < c.MinRatings {
		return models.Unpopular(), true
	}
	return models.Outcome{}, false
}

// AfterDetail produces the terminal outcome from a detail record. A record
// with no genres degrades to unknown; a Genres outcome is never empty.
func (c Classifier) AfterDetail(rec *models.BookRecord) models.Outcome {
	if rec == nil || len(rec.Genres) == 0 {
		return models.Unknown()
	}
	return models.Genres(rec.Genres)
}
