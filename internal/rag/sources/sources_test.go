package sources

import (
	"strings"
	"testing"

	"rag-answer-service/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduplicate_CaseAndWhitespaceInsensitive(t *testing.T) {
	chunks := []models.ContextChunk{
		{Text: "a", Title: "Cattle Diseases Handbook", SourceURI: "https://docs/a.pdf"},
		{Text: "b", Title: "  cattle diseases handbook ", SourceURI: "https://docs/b.pdf"},
		{Text: "c", Title: "CATTLE DISEASES HANDBOOK", SourceURI: "https://docs/c.pdf"},
	}

	got := Deduplicate(chunks)
	require.Len(t, got, 1)
	assert.Equal(t, "Cattle Diseases Handbook", got[0].Title)
	assert.Equal(t, "https://docs/a.pdf", got[0].URI)
}

func TestDeduplicate_PlaceholderAndEmptyTitlesDropped(t *testing.T) {
	chunks := []models.ContextChunk{
		{Text: "a", Title: "Reference", SourceURI: "https://docs/a.pdf"},
		{Text: "b", Title: "", SourceURI: "https://docs/b.pdf"},
		{Text: "c", Title: "   "},
	}

	assert.Empty(t, Deduplicate(chunks))
}

func TestDeduplicate_URIValidation(t *testing.T) {
	chunks := []models.ContextChunk{
		{Title: "Http Doc", SourceURI: "http://example.org/x"},
		{Title: "Data Doc", SourceURI: "data:text/plain,hi"},
		{Title: "Bucket Doc", SourceURI: "gs://bucket/file.pdf"},
		{Title: "No Uri Doc"},
	}

	want := []models.Source{
		{URI: "http://example.org/x", Title: "Http Doc"},
		{URI: "data:text/plain,hi", Title: "Data Doc"},
		{URI: "https://rag.istock.local/Bucket%20Doc", Title: "Bucket Doc"},
		{URI: "https://rag.istock.local/No%20Uri%20Doc", Title: "No Uri Doc"},
	}

	if diff := cmp.Diff(want, Deduplicate(chunks)); diff != "" {
		t.Errorf("Deduplicate() mismatch (-want +got):\n%s", diff)
	}
}

func TestDeduplicate_PreservesFirstSeenOrder(t *testing.T) {
	chunks := []models.ContextChunk{
		{Title: "Zeta", SourceURI: "https://z"},
		{Title: "Alpha", SourceURI: "https://a"},
		{Title: "zeta", SourceURI: "https://z2"},
		{Title: "Mid", SourceURI: "https://m"},
	}

	got := Deduplicate(chunks)
	titles := make([]string, len(got))
	for i, s := range got {
		titles[i] = s.Title
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, titles)
}

func TestDeduplicate_NoDuplicateNormalizedTitles(t *testing.T) {
	var chunks []models.ContextChunk
	for _, title := range []string{"A", "a", " A", "B", "b ", "Reference", "C", "c", ""} {
		chunks = append(chunks, models.ContextChunk{Title: title})
	}

	seen := map[string]bool{}
	for _, s := range Deduplicate(chunks) {
		key := strings.ToLower(strings.TrimSpace(s.Title))
		assert.False(t, seen[key], "duplicate title %q", s.Title)
		seen[key] = true
	}
	assert.Len(t, seen, 3)
}

func TestSyntheticURI_EncodesReservedCharacters(t *testing.T) {
	assert.Equal(t, "https://rag.istock.local/Foot%20%26%20Mouth%2FFMD", SyntheticURI("Foot & Mouth/FMD"))
}
