// Package normalizer turns raw book filenames into search-ready titles.
//
// The expensive cleanup step (a language-model call in the full system) is
// consumed as an injected function; when it fails the raw base name is used
// so a flaky collaborator never stops a scan.
package normalizer

import (
	"context"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
)

// CleanFunc rewrites a raw base name (no extension) into "title author"
// form. Implementations may call out to external services.
type CleanFunc func(ctx context.Context, name string) (string, error)

// Normalizer produces normalized titles for work items.
type Normalizer struct {
	clean CleanFunc
}

// New builds a Normalizer. A nil clean function skips the cleanup step and
// relies on sanitation alone.
func New(clean CleanFunc) *Normalizer {
	return &Normalizer{clean: clean}
}

// Normalize derives the search title for a book filename. The extension is
// stripped, the injected cleaner is applied when present, and the result is
// sanitized for use as a query string.
func (n *Normalizer) Normalize(ctx context.Context, filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	title := base
	if n.clean != nil {
		cleaned, err := n.clean(ctx, base)
		if err != nil {
			slog.Warn("title cleanup failed, using raw filename",
				slog.String("file", filename),
				slog.Any("error", err),
			)
		} else if strings.TrimSpace(cleaned) != "" {
			title = cleaned
		}
	}

	return Sanitize(title)
}

var (
	punctRe   = regexp.MustCompile(`[!"#$%&'()*+,/:;<=>?@\[\\\]^_` + "`" + `{|}~]`)
	bracketRe = regexp.MustCompile(`[\[\](){}]`)
	spaceRe   = regexp.MustCompile(`\s+`)
)

// Sanitize strips punctuation and separator noise that hurts catalog search
// relevance. Periods survive so initials keep working.
func Sanitize(s string) string {
	s = punctRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "’", "")
	s = bracketRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, " - ", " ")
	s = strings.ReplaceAll(s, "- ", " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
