package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &m))
	return m
}

func TestNormalize_PayloadShapes(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantTexts []string
	}{
		{
			name:      "top level contexts array",
			body:      `{"contexts":[{"text":"alpha"},{"text":"beta"}]}`,
			wantTexts: []string{"alpha", "beta"},
		},
		{
			name:      "vertex nested contexts.contexts",
			body:      `{"contexts":{"contexts":[{"text":"nested one"},{"text":"nested two"}]}}`,
			wantTexts: []string{"nested one", "nested two"},
		},
		{
			name:      "ragContexts alias",
			body:      `{"ragContexts":[{"content":"from content"}]}`,
			wantTexts: []string{"from content"},
		},
		{
			name:      "contextChunks alias",
			body:      `{"contextChunks":[{"contextText":"from contextText"}]}`,
			wantTexts: []string{"from contextText"},
		},
		{
			name:      "nested contexts.contexts single object",
			body:      `{"contexts":{"contexts":{"text":"nested single chunk"}}}`,
			wantTexts: []string{"nested single chunk"},
		},
		{
			name:      "nested ragContexts single object",
			body:      `{"ragContexts":{"ragContexts":{"text":"nested rag chunk"}}}`,
			wantTexts: []string{"nested rag chunk"},
		},
		{
			name:      "single object wrapped",
			body:      `{"contexts":{"text":"lonely chunk"}}`,
			wantTexts: []string{"lonely chunk"},
		},
		{
			name:      "empty contexts falls through to next alias",
			body:      `{"contexts":[],"ragContexts":[{"text":"second alias"}]}`,
			wantTexts: []string{"second alias"},
		},
		{
			name:      "ragContext nested text and content",
			body:      `{"contexts":[{"ragContext":{"text":"rt"}},{"ragContext":{"content":"rc"}}]}`,
			wantTexts: []string{"rt", "rc"},
		},
		{
			name:      "blank texts dropped and trimmed",
			body:      `{"contexts":[{"text":"   "},{"text":"  keep me  "},{"title":"no text"}]}`,
			wantTexts: []string{"keep me"},
		},
		{
			name:      "text wins over content",
			body:      `{"contexts":[{"text":"t","content":"c"}]}`,
			wantTexts: []string{"t"},
		},
		{
			name:      "unrecognized payload",
			body:      `{"answer":"nope"}`,
			wantTexts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(decode(t, tt.body))
			assert.Equal(t, len(tt.wantTexts), len(res.Chunks))
			if len(tt.wantTexts) > 0 {
				assert.Equal(t, tt.wantTexts, res.Texts())
			}
		})
	}
}

func TestNormalize_ScorePriority(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []float64
	}{
		{
			name: "top level scores beat per chunk",
			body: `{"contexts":[{"text":"a","score":0.1},{"text":"b","score":0.2}],"scores":[0.9,0.8]}`,
			want: []float64{0.9, 0.8},
		},
		{
			name: "nested contexts.scores",
			body: `{"contexts":{"contexts":[{"text":"a"},{"text":"b"}],"scores":[0.7,0.6]}}`,
			want: []float64{0.7, 0.6},
		},
		{
			name: "similarityScores",
			body: `{"contexts":[{"text":"a"}],"similarityScores":[0.55]}`,
			want: []float64{0.55},
		},
		{
			name: "per chunk score and _score",
			body: `{"contexts":[{"text":"a","score":0.4},{"text":"b","_score":0.3},{"text":"c"}]}`,
			want: []float64{0.4, 0.3},
		},
		{
			name: "parallel scores follow dropped chunks",
			body: `{"contexts":[{"text":""},{"text":"b"}],"scores":[0.9,0.2]}`,
			want: []float64{0.2},
		},
		{
			name: "per chunk scores capped at five",
			body: `{"contexts":[{"text":"a","score":0.9},{"text":"b","score":0.8},{"text":"c","score":0.7},{"text":"d","score":0.6},{"text":"e","score":0.5},{"text":"f","score":0.1},{"text":"g","score":0.1}]}`,
			want: []float64{0.9, 0.8, 0.7, 0.6, 0.5},
		},
		{
			name: "parallel scores are not capped",
			body: `{"contexts":[{"text":"a"},{"text":"b"},{"text":"c"},{"text":"d"},{"text":"e"},{"text":"f"}],"scores":[0.9,0.8,0.7,0.6,0.5,0.4]}`,
			want: []float64{0.9, 0.8, 0.7, 0.6, 0.5, 0.4},
		},
		{
			name: "scores clamped to unit interval",
			body: `{"contexts":[{"text":"a","score":1.7},{"text":"b","score":-0.2}]}`,
			want: []float64{1, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Normalize(decode(t, tt.body))
			assert.InDeltaSlice(t, tt.want, res.Scores, 1e-9)
		})
	}
}

func TestNormalize_SourceMetadata(t *testing.T) {
	res := Normalize(decode(t, `{"contexts":[
		{"text":"a","sourceUri":"https://x/a.pdf","sourceDisplayName":"A Guide"},
		{"text":"b","source":{"uri":"gs://bucket/b.pdf","title":"B Guide"}},
		{"text":"c","metadata":{"source":"https://x/c","title":"C Guide"}},
		{"text":"d","ragContext":{"uri":"https://x/d","sourceTitle":"D Guide"}}
	]}`))

	require.Len(t, res.Chunks, 4)
	assert.Equal(t, "https://x/a.pdf", res.Chunks[0].SourceURI)
	assert.Equal(t, "A Guide", res.Chunks[0].Title)
	assert.Equal(t, "gs://bucket/b.pdf", res.Chunks[1].SourceURI)
	assert.Equal(t, "B Guide", res.Chunks[1].Title)
	assert.Equal(t, "https://x/c", res.Chunks[2].SourceURI)
	assert.Equal(t, "C Guide", res.Chunks[2].Title)
	assert.Equal(t, "https://x/d", res.Chunks[3].SourceURI)
	assert.Equal(t, "D Guide", res.Chunks[3].Title)
}

func TestNormalize_BackendConfidence(t *testing.T) {
	res := Normalize(decode(t, `{"contexts":[{"text":"a"}],"confidence":0.42}`))
	require.NotNil(t, res.BackendConfidence)
	assert.InDelta(t, 0.42, *res.BackendConfidence, 1e-9)

	assert.Nil(t, Normalize(nil).BackendConfidence)
}
