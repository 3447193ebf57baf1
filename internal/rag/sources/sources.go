// Package sources turns per-chunk source metadata into a deduplicated citation list.
package sources

import (
	"net/url"
	"strings"

	"rag-answer-service/internal/models"
)

const (
	// PlaceholderTitle marks chunks with no usable title. They contribute no citation.
	PlaceholderTitle = "Reference"

	syntheticBase = "https://rag.istock.local/"
)

var validPrefixes = []string{"http://", "https://", "data:"}

// Deduplicate returns one Source per distinct normalized title, in first-seen order.
func Deduplicate(chunks []models.ContextChunk) []models.Source {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]models.Source, 0, len(chunks))

	for _, c := range chunks {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			title = PlaceholderTitle
		}

		key := dedupeKey(title, c.SourceURI)
		if _, dup := seen[key]; dup {
			continue
		}
		if title == PlaceholderTitle {
			continue
		}
		seen[key] = struct{}{}

		out = append(out, models.Source{
			URI:   validURI(c.SourceURI, title),
			Title: title,
		})
	}

	return out
}

func dedupeKey(title, uri string) string {
	if title != PlaceholderTitle {
		return strings.ToLower(title)
	}
	if uri != "" {
		return uri
	}
	return "unknown"
}

// validURI keeps http, https and data URIs; anything else is replaced by a
// deterministic URI derived from the title.
func validURI(uri, title string) string {
	for _, p := range validPrefixes {
		if strings.HasPrefix(uri, p) {
			return uri
		}
	}
	return SyntheticURI(title)
}

// SyntheticURI builds the internal citation URI for a title.
func SyntheticURI(title string) string {
	return syntheticBase + strings.ReplaceAll(url.QueryEscape(title), "+", "%20")
}
