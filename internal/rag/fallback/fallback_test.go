package fallback

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat_NoContexts(t *testing.T) {
	assert.Equal(t, NoContextMessage, Format("anything", nil))
	assert.Equal(t, NoContextMessage, Format("anything", []string{}))
}

func TestFormat_MultiSentenceAnswer(t *testing.T) {
	contexts := []string{
		"Foot and mouth disease is a highly contagious viral infection of cattle. It spreads through direct contact and contaminated feed. Short one.",
		"Anthrax is a bacterial disease that often causes sudden death in cattle. Vaccination each year is the main method of prevention!",
	}

	got := Format("What are common cattle diseases?", contexts)

	assert.Contains(t, got, "Foot and mouth disease is a highly contagious viral infection of cattle")
	assert.Contains(t, got, "Anthrax is a bacterial disease that often causes sudden death in cattle")
	assert.NotContains(t, got, "Short one")
	assert.Greater(t, strings.Count(got, ". "), 1)
}

func TestFormat_StripsBoilerplate(t *testing.T) {
	text := "DISEASE DIAGNOSIS\r\n\r\n\r\n\r\nAppearance: dull coat,\nodd behaviour. " +
		"Mastitis is an inflammation of the udder that reduces milk yield considerably. " +
		"Natural functions: reduced milk. Swellings: various appearances. " +
		"Clean milking equipment and good hygiene help to control the spread of mastitis."

	got := Format("mastitis", []string{text})

	assert.NotContains(t, got, "DISEASE DIAGNOSIS")
	assert.NotContains(t, got, "Appearance:")
	assert.NotContains(t, got, "Natural functions:")
	assert.NotContains(t, got, "Swellings:")
	assert.Contains(t, got, "Mastitis is an inflammation of the udder")
}

func TestFormat_LimitsSentencesAndMarksTruncation(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&sb, "Sentence number %02d describes a livestock condition in detail. ", i)
	}

	got := Format("q", []string{sb.String()})

	require.True(t, strings.HasSuffix(got, "..."))
	assert.Contains(t, got, "Sentence number 19")
	assert.NotContains(t, got, "Sentence number 20")
}

func TestFormat_OnlyFirstFiveChunks(t *testing.T) {
	var contexts []string
	for i := 0; i < 7; i++ {
		contexts = append(contexts, fmt.Sprintf("Chunk %d carries a sentence that is certainly long enough to keep. ", i))
	}

	got := Format("q", contexts)
	assert.Contains(t, got, "Chunk 4")
	assert.NotContains(t, got, "Chunk 5")
}

func TestFormat_ShortResultFallsBackToFirstChunk(t *testing.T) {
	// Every sentence is over the long-sentence cap, so the main pass keeps nothing.
	long := strings.Repeat("word ", 120)
	contexts := []string{long + ". " + long, "tiny. also tiny."}

	got := Format("q", contexts)
	assert.NotEmpty(t, got)
	assert.True(t, strings.HasPrefix(got, "word word"))
}

func TestFormat_FirstChunkWithoutSentencesReturnsPassage(t *testing.T) {
	got := Format("q", []string{"  brief note  "})
	assert.Equal(t, "brief note", got)
}

func TestClean_CollapsesBlankLines(t *testing.T) {
	assert.Equal(t, "a\n\nb", Clean("a\r\n\r\n\r\n\r\nb"))
}
