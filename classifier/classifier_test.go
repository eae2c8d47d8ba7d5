package classifier

import (
	"testing"

	"github.com/lmoreira/genretag/models"
)

func TestAfterSearchThreshold(t *testing.T) {
	c := New(500)

	tests := []struct {
		name     string
		ratings  int
		wantKind models.OutcomeKind
		wantDone bool
	}{
		{name: "well below threshold", ratings: 12, wantKind: models.OutcomeUnpopular, wantDone: true},
		{name: "one below threshold", ratings: 499, wantKind: models.OutcomeUnpopular, wantDone: true},
		{name: "exactly at threshold proceeds", ratings: 500, wantDone: false},
		{name: "above threshold proceeds", ratings: 52000, wantDone: false},
		{name: "zero ratings", ratings: 0, wantKind: models.OutcomeUnpopular, wantDone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, done := c.AfterSearch(&models.SearchResult{BookURL: "u", RatingsCount: tt.ratings})
			if done != tt.wantDone {
				t.Fatalf("done = %v, want %v", done, tt.wantDone)
			}
			if done && outcome.Kind != tt.wantKind {
				t.Fatalf("kind = %v, want %v", outcome.Kind, tt.wantKind)
			}
		})
	}
}

func TestAfterSearchNoResult(t *testing.T) {
	outcome, done := New(500).AfterSearch(nil)
	if !done || outcome.Kind != models.OutcomeUnknown {
		t.Fatalf("nil result should be terminal unknown, got done=%v kind=%v", done, outcome.Kind)
	}
}

func TestAfterDetail(t *testing.T) {
	c := New(500)

	outcome := c.AfterDetail(&models.BookRecord{URL: "u", Genres: []string{"Fantasy", "Romance"}})
	if outcome.Kind != models.OutcomeGenres {
		t.Fatalf("kind = %v, want genres", outcome.Kind)
	}
	if len(outcome.Genres) != 2 || outcome.Genres[0] != "Fantasy" {
		t.Fatalf("genres = %v", outcome.Genres)
	}

	if got := c.AfterDetail(&models.BookRecord{URL: "u"}); got.Kind != models.OutcomeUnknown {
		t.Fatalf("empty genre list must degrade to unknown, got %v", got.Kind)
	}
	if got := c.AfterDetail(nil); got.Kind != models.OutcomeUnknown {
		t.Fatalf("nil record must degrade to unknown, got %v", got.Kind)
	}
}
