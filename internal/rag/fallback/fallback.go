// Package fallback assembles a readable answer straight from retrieved passages
// when no model produced a usable synthesis.
package fallback

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// NoContextMessage is returned when retrieval produced nothing to work with.
const NoContextMessage = "Unable to generate answer. Please try rephrasing your question."

const (
	maxChunks          = 5
	maxSentences       = 20
	maxFirstChunkSents = 10
	minSentenceLen     = 30
	maxSentenceLen     = 500
	minAnswerLen       = 100
	chunkSeparator     = "\n\n---\n\n"
	sentenceJoin       = ". "
	truncationMarker   = "..."
)

var (
	boilerplate = []*regexp.Regexp{
		regexp.MustCompile(`(?s)Appearance:.*?behaviour\.`),
		regexp.MustCompile(`(?s)Natural functions:.*?milk\.`),
		regexp.MustCompile(`(?s)Discharges:.*?discharge\.`),
		regexp.MustCompile(`(?s)Swellings:.*?appearances\.`),
		regexp.MustCompile(`DISEASE DIAGNOSIS`),
		regexp.MustCompile(`CATEGORIES OF DISEASES`),
		regexp.MustCompile(`CONTROL OF DISEASES`),
	}

	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)
)

// Format builds the extractive answer. The query is accepted for future
// query-aware selection and does not influence the output today.
func Format(query string, contexts []string) string {
	if len(contexts) == 0 {
		return NoContextMessage
	}

	n := len(contexts)
	if n > maxChunks {
		n = maxChunks
	}
	cleaned := Clean(strings.Join(contexts[:n], chunkSeparator))

	var kept []string
	for _, s := range splitSentences(cleaned) {
		if l := utf8.RuneCountInString(s); l >= minSentenceLen && l < maxSentenceLen {
			kept = append(kept, s)
		}
	}

	answer := joinLimited(kept, maxSentences)
	if utf8.RuneCountInString(answer) >= minAnswerLen {
		return answer
	}

	var first []string
	for _, s := range splitSentences(contexts[0]) {
		if utf8.RuneCountInString(s) > minSentenceLen {
			first = append(first, s)
		}
	}
	if len(first) == 0 {
		// No sentence qualified; return the passage itself.
		return strings.TrimSpace(contexts[0])
	}
	return joinLimited(first, maxFirstChunkSents)
}

// Clean strips known boilerplate sections and normalizes blank lines.
func Clean(text string) string {
	for _, re := range boilerplate {
		text = re.ReplaceAllString(text, "")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = excessBlankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func splitSentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinLimited(sentences []string, limit int) string {
	if len(sentences) <= limit {
		return strings.TrimSpace(strings.Join(sentences, sentenceJoin))
	}
	return strings.TrimSpace(strings.Join(sentences[:limit], sentenceJoin)) + truncationMarker
}
