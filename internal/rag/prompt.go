package rag

import (
	"fmt"
	"strings"

	"repochat/internal/store"
)

const systemPromptTemplate = `You are a helpful AI assistant that answers questions about a GitHub repository.
Use the following context from the repository to answer the user's question.
If the context doesn't contain relevant information, say so.

Repository Context:
%s`

const chunkSeparator = "\n\n---\n\n"

// BuildSystemPrompt renders the fixed instruction template around the
// retrieved chunks, joined in descending relevance order.
func BuildSystemPrompt(chunks []ScoredChunk) string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Chunk.Text
	}
	return fmt.Sprintf(systemPromptTemplate, strings.Join(texts, chunkSeparator))
}

// BuildHistory renders prior messages, oldest first, one line per turn.
func BuildHistory(messages []store.Message) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		speaker := "Assistant"
		if m.Role == "user" {
			speaker = "Human"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", speaker, m.Content))
	}
	return strings.Join(lines, "\n")
}

// BuildUserPrompt appends the new question to the rendered history. The
// question must not already appear in the history.
func BuildUserPrompt(history, question string) string {
	if history == "" {
		return question
	}
	return fmt.Sprintf("%s\nHuman: %s", history, question)
}
