// Package normalize flattens retrieval payloads of varying shape into ordered context chunks.
package normalize

import (
	"strings"

	"rag-answer-service/internal/models"
	"rag-answer-service/internal/rag/lookup"
)

// Result is the flattened retrieval response.
type Result struct {
	Chunks []models.ContextChunk
	// Scores holds the scores of the kept chunks that carried one, in chunk order.
	Scores []float64
	// BackendConfidence is the payload level confidence, if the backend sent one.
	BackendConfidence *float64
}

// Texts returns the chunk texts in order.
func (r Result) Texts() []string {
	out := make([]string, len(r.Chunks))
	for i, c := range r.Chunks {
		out[i] = c.Text
	}
	return out
}

var (
	// listFields are tried in order; the first yielding a non-empty list wins.
	listFields = []string{"contexts", "ragContexts", "contextChunks"}

	textAliases = lookup.Paths(
		"text",
		"content",
		"contextText",
		"ragContext.text",
		"ragContext.content",
	)

	chunkScoreAliases = lookup.Paths("score", "_score")

	// maxChunkScores bounds how many per-chunk scores feed the confidence average.
	maxChunkScores = 5

	SourceURIAliases = lookup.Paths(
		"sourceUri",
		"uri",
		"source.uri",
		"metadata.sourceUri",
		"metadata.source",
		"ragContext.sourceUri",
		"ragContext.uri",
	)

	TitleAliases = lookup.Paths(
		"sourceDisplayName",
		"sourceTitle",
		"title",
		"source.title",
		"metadata.title",
		"ragContext.title",
		"ragContext.sourceTitle",
	)
)

// Normalize converts an opaque retrieval response into chunks plus scores.
// A nil or unrecognized payload yields an empty Result.
func Normalize(raw map[string]interface{}) Result {
	var res Result
	if raw == nil {
		return res
	}

	if c, ok := lookup.FirstFloat(raw, lookup.Paths("confidence")); ok {
		res.BackendConfidence = &c
	}

	items, container := chunkList(raw)
	parallel := parallelScores(raw, container)

	for i, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			if s, isStr := item.(string); isStr {
				obj = map[string]interface{}{"text": s}
			} else {
				continue
			}
		}

		text := strings.TrimSpace(lookup.FirstString(obj, textAliases))
		if text == "" {
			continue
		}

		chunk := models.ContextChunk{
			Text:      text,
			SourceURI: strings.TrimSpace(lookup.FirstString(obj, SourceURIAliases)),
			Title:     lookup.FirstString(obj, TitleAliases),
		}

		if score, ok := scoreAt(parallel, i, obj); ok {
			s := clampUnit(score)
			chunk.Score = &s
			if parallel != nil || len(res.Scores) < maxChunkScores {
				res.Scores = append(res.Scores, s)
			}
		}

		res.Chunks = append(res.Chunks, chunk)
	}

	return res
}

// chunkList finds the chunk array and returns the object that held it, which may
// carry a nested scores array.
func chunkList(raw map[string]interface{}) ([]interface{}, map[string]interface{}) {
	for _, field := range listFields {
		v, ok := raw[field]
		if !ok || v == nil {
			continue
		}

		switch t := v.(type) {
		case []interface{}:
			if len(t) > 0 {
				return t, raw
			}
		case map[string]interface{}:
			switch nested := t[field].(type) {
			case []interface{}:
				if len(nested) > 0 {
					return nested, t
				}
				continue
			case map[string]interface{}:
				return []interface{}{nested}, t
			}
			return []interface{}{t}, raw
		}
	}
	return nil, raw
}

// parallelScores resolves a score array aligned with the chunk list, in priority
// order: top-level scores, nested <container>.scores, top-level similarityScores.
func parallelScores(raw, container map[string]interface{}) []interface{} {
	if s, ok := raw["scores"].([]interface{}); ok && len(s) > 0 {
		return s
	}
	if container != nil {
		if s, ok := container["scores"].([]interface{}); ok && len(s) > 0 {
			return s
		}
	}
	if s, ok := raw["similarityScores"].([]interface{}); ok && len(s) > 0 {
		return s
	}
	return nil
}

func scoreAt(parallel []interface{}, i int, obj map[string]interface{}) (float64, bool) {
	if parallel != nil {
		if i < len(parallel) {
			return lookup.ToFloat(parallel[i])
		}
		return 0, false
	}
	return lookup.FirstFloat(obj, chunkScoreAliases)
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
