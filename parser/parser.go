// Package parser extracts structured fields from catalog search and detail
// pages. Both entry points are pure functions over the raw page content and
// never require a well-formed document; they pull what they need out of node
// subtrees and ignore the rest.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/lmoreira/genretag/models"
)

var (
	// ErrNoMatch indicates a search page with no result rows.
	ErrNoMatch = errors.New("parser: no search results")
	// ErrStructureChanged indicates a detail page missing the metadata
	// section the genre list hangs off. Distinct from a present-but-empty
	// genre list, which points at the book rather than at markup drift.
	ErrStructureChanged = errors.New("parser: page structure changed")
)

const (
	searchRowSelector     = `tr[itemtype="http://schema.org/Book"]`
	bookLinkSelector      = "a.bookTitle"
	miniRatingSelector    = "span.minirating"
	metadataSelector      = "div.BookPageMetadataSection"
	genreButtonSelector   = "span.BookPageMetadataSection__genreButton"
	genreLabelSelector    = "span.Button__labelItem"
	metadataFallbackMatch = "BookPageMetadataSection"
)

// ParseSearchPage extracts the first result row from a search page. A page
// without result rows returns ErrNoMatch. A row whose ratings text is
// missing or unreadable reports zero ratings so the caller routes the book
// to unpopular instead of failing.
func ParseSearchPage(content string, baseURL string) (*models.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	row := doc.Find(searchRowSelector).First()
	if row.Length() == 0 {
		return nil, ErrNoMatch
	}

	href, ok := row.Find(bookLinkSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		// A result row without a usable book link cannot be followed.
		return nil, ErrNoMatch
	}

	return &models.SearchResult{
		BookURL:      absoluteURL(baseURL, href),
		RatingsCount: ratingsCount(row),
	}, nil
}

// ratingsCount pulls the numeric ratings count out of the row's minirating
// text, e.g. "4.08 avg rating — 52,345 ratings". Missing or malformed text
// counts as zero.
func ratingsCount(row *goquery.Selection) int {
	text := strings.TrimSpace(row.Find(miniRatingSelector).First().Text())
	if text == "" {
		return 0
	}

	// The count follows the final dash; locale formatting varies between
	// em dash and hyphen.
	if idx := strings.LastIndex(text, "—"); idx >= 0 {
		text = text[idx+len("—"):]
	} else if idx := strings.LastIndex(text, " - "); idx >= 0 {
		text = text[idx+3:]
	}

	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 {
		return 0
	}

	raw := strings.NewReplacer(",", "", ".", "", " ", "").Replace(fields[0])
	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

// ParseDetailPage extracts the genre list from a book detail page. The page
// must contain the metadata section; when that anchor is gone the markup has
// drifted and ErrStructureChanged is returned so the failure is
// distinguishable from a book that simply has no genre tags.
func ParseDetailPage(content string, pageURL string) (*models.BookRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	if doc.Find(metadataSelector).Length() == 0 && !strings.Contains(content, metadataFallbackMatch) {
		return nil, ErrStructureChanged
	}

	seen := make(map[string]struct{})
	var genres []string
	doc.Find(genreButtonSelector).Each(func(_ int, button *goquery.Selection) {
		label := strings.TrimSpace(button.Find(genreLabelSelector).First().Text())
		if label == "" {
			return
		}
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		genres = append(genres, label)
	})

	return &models.BookRecord{URL: pageURL, Genres: genres}, nil
}

func absoluteURL(base, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	base = strings.TrimSuffix(base, "/")
	if !strings.HasPrefix(href, "/") {
		href = "/" + href
	}
	return base + href
}
