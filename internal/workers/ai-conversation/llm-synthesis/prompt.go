// internal/workers/ai-conversation/llm-synthesis/prompt.go
package llmsynthesis

import (
	"fmt"
	"regexp"
	"strings"
)

const systemInstruction = `You are a helpful assistant that provides accurate information about livestock health based on veterinary documents.

When answering questions about diseases or conditions:
- Organize your answer by categories (e.g., Bacterial Diseases, Viral Diseases, Other Conditions)
- List each disease with a brief, clear description
- Use simple, professional language appropriate for farmers
- Do NOT include disclaimers, legal text, document metadata, or formatting instructions
- Focus on providing a comprehensive, well-structured list of the requested information
- For questions asking "what are common X" or "list X", provide a clear, organized list format`

const contextSeparator = "\n\n---\n\n"

var listQuestion = regexp.MustCompile(`(?i)^(what are|list|name|tell me about|common|types of|kinds of)`)

// IsListQuestion reports whether the question asks for an enumerated answer.
func IsListQuestion(question string) bool {
	return listQuestion.MatchString(strings.TrimSpace(question))
}

// BuildPrompt returns the system instruction and the user prompt for a question.
// At most maxChunks passages are included.
func BuildPrompt(question string, contexts []string, callerContext string, maxChunks int) (string, string) {
	if maxChunks > 0 && len(contexts) > maxChunks {
		contexts = contexts[:maxChunks]
	}
	combined := strings.Join(contexts, contextSeparator)

	var parts []string
	if IsListQuestion(question) {
		parts = append(parts, fmt.Sprintf("Based on the following context from veterinary documents, provide a comprehensive, well-organized list answering: %s", question))
	} else {
		parts = append(parts, fmt.Sprintf("Based on the following context from veterinary documents, answer this question: %s", question))
	}

	if c := strings.TrimSpace(callerContext); c != "" {
		parts = append(parts, "\nAdditional context from the user:\n"+c)
	}

	parts = append(parts, "\nContext:\n"+combined)

	if IsListQuestion(question) {
		parts = append(parts, "\nFormat your answer as a clear list with categories where appropriate. Include ALL relevant items from the context. Do not truncate or shorten your answer - provide complete information.")
	} else {
		parts = append(parts, "\nProvide a clear, well-organized, and COMPLETE answer with specific examples from the context. Do not truncate or shorten your answer - include all relevant information.")
	}

	return systemInstruction, strings.Join(parts, "\n")
}
