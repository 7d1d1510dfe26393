package rag

import "strings"

// boundarySeparators are tried in order when closing a chunk window:
// paragraph break first, then sentence end, then line break, then word break.
var boundarySeparators = []string{"\n\n", ". ", "\n", " "}

// SplitText splits text into an ordered sequence of overlapping chunks of at
// most size characters, preferring natural boundaries over hard cuts. The
// union of the chunks covers the whole input and repeated runs over the same
// input produce identical output.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		size = 1000
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	if len(text) == 0 {
		return nil
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}

		cut := findBoundary(text, start, end)
		chunks = append(chunks, text[start:cut])

		next := cut - overlap
		if next <= start {
			// Boundary landed too close to the window start; give up the
			// overlap for this step so the walk always advances.
			next = cut
		}
		start = next
	}
	return chunks
}

// findBoundary picks a cut position in (start, end] at the latest natural
// boundary in the window, provided it keeps the chunk at least half full.
// Falls back to a hard cut at end.
func findBoundary(text string, start, end int) int {
	window := text[start:end]
	minCut := len(window) / 2
	for _, sep := range boundarySeparators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := idx + len(sep)
		if cut > minCut {
			return start + cut
		}
	}
	return end
}
