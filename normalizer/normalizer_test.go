package normalizer

import (
	"context"
	"errors"
	"testing"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "punctuation stripped", in: "A Christmas Carol (NOVEL, 2012, v. 1  IN GREEK)", want: "A Christmas Carol NOVEL 2012 v. 1 IN GREEK"},
		{name: "author separator collapsed", in: "a to Z of Girlfriends, The - Natasha West", want: "a to Z of Girlfriends The Natasha West"},
		{name: "periods survive", in: "J.R.R. Tolkien", want: "J.R.R. Tolkien"},
		{name: "brackets removed", in: "[retail] {v5} Dune", want: "retail v5 Dune"},
		{name: "apostrophes removed", in: "The Handmaid's Tale", want: "The Handmaids Tale"},
		{name: "whitespace collapsed", in: "  Wide   Sargasso\tSea ", want: "Wide Sargasso Sea"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Sanitize(tt.in); got != tt.want {
				t.Fatalf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizeUsesCleaner(t *testing.T) {
	n := New(func(ctx context.Context, name string) (string, error) {
		if name != "Gatsby, The Great - FITZGERALD, F. SCOTT" {
			t.Fatalf("cleaner got %q without extension stripped", name)
		}
		return "The Great Gatsby F. Scott Fitzgerald", nil
	})

	got := n.Normalize(context.Background(), "Gatsby, The Great - FITZGERALD, F. SCOTT.epub")
	if got != "The Great Gatsby F. Scott Fitzgerald" {
		t.Fatalf("Normalize = %q", got)
	}
}

func TestNormalizeFallsBackOnCleanerError(t *testing.T) {
	n := New(func(ctx context.Context, name string) (string, error) {
		return "", errors.New("model unavailable")
	})

	if got := n.Normalize(context.Background(), "Obscure Zine #4.epub"); got != "Obscure Zine 4" {
		t.Fatalf("Normalize = %q, want raw name sanitized", got)
	}
}

func TestNormalizeFallsBackOnEmptyCleanerOutput(t *testing.T) {
	n := New(func(ctx context.Context, name string) (string, error) {
		return "   ", nil
	})

	if got := n.Normalize(context.Background(), "dune.epub"); got != "dune" {
		t.Fatalf("Normalize = %q, want %q", got, "dune")
	}
}

func TestNormalizeWithoutCleaner(t *testing.T) {
	n := New(nil)
	if got := n.Normalize(context.Background(), "The Left Hand of Darkness.epub"); got != "The Left Hand of Darkness" {
		t.Fatalf("Normalize = %q", got)
	}
}
