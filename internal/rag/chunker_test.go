package rag

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplitTextSmallCorpusSingleChunk(t *testing.T) {
	corpus := "Repository: a/b\nDescription: x\nLanguage: none\n\nFile Structure:\n"

	chunks := SplitText(corpus, 1000, 200)

	if len(chunks) != 1 {
		t.Fatalf("expected exactly 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != corpus {
		t.Errorf("chunk should equal the whole corpus, got %q", chunks[0])
	}
}

func TestSplitTextEmpty(t *testing.T) {
	if chunks := SplitText("", 1000, 200); chunks != nil {
		t.Errorf("expected no chunks for empty input, got %d", len(chunks))
	}
}

func TestSplitTextDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)

	first := SplitText(text, 1000, 200)
	second := SplitText(text, 1000, 200)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitTextRespectsSizeAndOverlap(t *testing.T) {
	text := strings.Repeat("Some sentence with several words in it. ", 300)

	chunks := SplitText(text, 1000, 200)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if len(c) > 1000 {
			t.Errorf("chunk %d exceeds size limit: %d chars", i, len(c))
		}
	}
	// Consecutive chunks overlap: each chunk starts with the tail of the
	// previous one.
	for i := 1; i < len(chunks); i++ {
		overlap := 200
		if len(chunks[i]) < overlap {
			overlap = len(chunks[i])
		}
		if !strings.HasSuffix(chunks[i-1], chunks[i][:overlap]) {
			t.Errorf("chunk %d does not overlap with its predecessor", i)
		}
	}
}

func TestSplitTextCoversWholeCorpus(t *testing.T) {
	// Numbered words make every chunk's position in the corpus unambiguous.
	var sb strings.Builder
	for i := 0; i < 1000; i++ {
		fmt.Fprintf(&sb, "word%04d ", i)
	}
	text := sb.String()

	chunks := SplitText(text, 1000, 200)

	covered := 0
	for i, c := range chunks {
		start := strings.Index(text, c)
		if start < 0 {
			t.Fatalf("chunk %d is not a substring of the corpus", i)
		}
		if start > covered {
			t.Fatalf("gap before chunk %d: chunk starts at %d, covered up to %d", i, start, covered)
		}
		if start+len(c) > covered {
			covered = start + len(c)
		}
	}
	if covered != len(text) {
		t.Errorf("chunks cover %d of %d corpus characters", covered, len(text))
	}
}

func TestSplitTextPrefersParagraphBoundary(t *testing.T) {
	para := strings.Repeat("word ", 150) // 750 chars
	text := para + "\n\n" + para + "\n\n" + para

	chunks := SplitText(text, 1000, 0)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("first chunk should end at a paragraph boundary, ends with %q", chunks[0][len(chunks[0])-10:])
	}
}
