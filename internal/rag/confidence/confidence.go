// Package confidence derives a bounded answer confidence from retrieval scores
// and the shape of the answer text.
package confidence

import (
	"math"
	"strings"
)

const (
	Base  = 0.8
	Floor = 0.7
	Cap   = 0.95

	// Boost is the minimum confidence for long answers that look synthesized.
	Boost = 0.85

	highQualityThreshold = 0.5
	boostMinLength       = 200
)

// Input carries the signals the scorer looks at.
type Input struct {
	ChunkCount        int
	Scores            []float64
	AnswerText        string
	BackendConfidence *float64
}

// Score returns 0 when no chunks were retrieved, otherwise a value in [Floor, Cap].
//
// The markdown boost is a heuristic: long extractive answers that happen to
// contain bullets or asterisks are treated as synthesized too.
func Score(in Input) float64 {
	if in.ChunkCount == 0 {
		return 0
	}

	c := Base
	switch {
	case len(in.Scores) > 0:
		c = clamp(fromScores(in.Scores))
	case in.BackendConfidence != nil:
		c = clamp(*in.BackendConfidence)
	}

	if looksSynthesized(in.AnswerText) {
		c = math.Min(math.Max(c, Boost), Cap)
	}

	return c
}

func fromScores(scores []float64) float64 {
	maxScore := scores[0]
	var sum float64
	high := 0
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
		sum += s
		if s > highQualityThreshold {
			high++
		}
	}
	avg := sum / float64(len(scores))
	return maxScore*0.6 + avg*0.3 + math.Min(float64(high)/5, 0.1)
}

func looksSynthesized(text string) bool {
	if len(text) <= boostMinLength {
		return false
	}
	if strings.Contains(text, "Table 3.") || strings.Contains(text, "Chapter") || strings.HasPrefix(text, "Table") {
		return false
	}
	return strings.Contains(text, "•") || strings.Contains(text, "*")
}

func clamp(v float64) float64 {
	return math.Min(math.Max(v, Floor), Cap)
}
