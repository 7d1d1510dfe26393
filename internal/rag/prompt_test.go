package rag

import (
	"strings"
	"testing"

	"repochat/internal/store"
)

func TestBuildSystemPromptJoinsChunks(t *testing.T) {
	chunks := []ScoredChunk{
		{Chunk: store.Chunk{Text: "most relevant"}},
		{Chunk: store.Chunk{Text: "less relevant"}},
	}

	prompt := BuildSystemPrompt(chunks)

	if !strings.Contains(prompt, "most relevant\n\n---\n\nless relevant") {
		t.Errorf("chunks not joined with separator in relevance order:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Repository Context:") {
		t.Errorf("missing context header:\n%s", prompt)
	}
	if strings.Index(prompt, "most relevant") > strings.Index(prompt, "less relevant") {
		t.Error("chunks out of relevance order")
	}
}

func TestBuildHistoryRendersRoles(t *testing.T) {
	messages := []store.Message{
		{Role: "user", Content: "what is this repo?"},
		{Role: "assistant", Content: "it is a parser"},
	}

	history := BuildHistory(messages)

	want := "Human: what is this repo?\nAssistant: it is a parser"
	if history != want {
		t.Errorf("history = %q, want %q", history, want)
	}
}

func TestBuildUserPromptWithHistory(t *testing.T) {
	got := BuildUserPrompt("Human: hi\nAssistant: hello", "what next?")
	want := "Human: hi\nAssistant: hello\nHuman: what next?"
	if got != want {
		t.Errorf("user prompt = %q, want %q", got, want)
	}
}

func TestBuildUserPromptWithoutHistory(t *testing.T) {
	if got := BuildUserPrompt("", "first question"); got != "first question" {
		t.Errorf("user prompt = %q, want bare question", got)
	}
}
