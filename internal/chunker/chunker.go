// Package chunker splits large texts into translatable chunks while
// preserving sentence and paragraph integrity, and threads a carry-context
// string (the preceding chunk's source text) through the resulting plan so
// backends can maintain continuity across chunk boundaries.
package chunker

import (
	"strings"
	"unicode"

	"github.com/valpere/ensembletran/internal/ensemble"
)

const (
	// DefaultMaxChars is the default chunk size bound.
	DefaultMaxChars = 3000

	// DefaultContextWords is the default number of words extracted by
	// ExtractContext for a short sliding-window summary.
	DefaultContextWords = 25
)

// sentenceEnders are the runes that may terminate a sentence for chunking
// purposes: Western period/bang/question, Arabic comma and question mark,
// and bare newlines.
var sentenceEnders = map[rune]bool{
	'.': true, '!': true, '?': true,
	'،': true, '؟': true,
	'\n': true,
}

// Plan splits text into an ordered ChunkPlan. Each chunk after the first
// carries the preceding chunk's original (untranslated) text as
// CarryContext. overlapChars is accepted for configuration-surface
// compatibility but is advisory only — this implementation never re-splits
// past the boundary to honor it, per the carry-context approach.
func Plan(text string, maxChars, overlapChars int) []ensemble.Chunk {
	_ = overlapChars
	texts := Chunk(text, maxChars)

	plan := make([]ensemble.Chunk, 0, len(texts))
	var prev string
	for i, t := range texts {
		c := ensemble.Chunk{Index: i, Text: t}
		if i > 0 {
			c.CarryContext = prev
		}
		plan = append(plan, c)
		prev = t
	}
	return plan
}

// Chunk splits text into pieces each no longer than maxChars unicode code
// points. Splits are attempted (in order of preference) at:
//  1. Paragraph boundaries (\n\n or \r\n\r\n)
//  2. Sentence-ending punctuation, including the Arabic comma and question mark
//  3. Whitespace (word boundary)
//  4. Hard cut at maxChars if no suitable boundary is found
//
// If text fits entirely within maxChars, a single-element slice is returned.
// If maxChars ≤ 0 it is treated as unlimited (returns the whole text).
func Chunk(text string, maxChars int) []string {
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{text}
	}

	var chunks []string
	remaining := text

	for len([]rune(remaining)) > maxChars {
		split := findSplit(remaining, maxChars)
		chunk := strings.TrimSpace(remaining[:split])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		remaining = strings.TrimSpace(remaining[split:])
	}

	if strings.TrimSpace(remaining) != "" {
		chunks = append(chunks, strings.TrimSpace(remaining))
	}

	return chunks
}

// findSplit returns the byte index within text at which to split, aiming for
// at most maxChars runes. It searches backwards from maxChars for the best
// split boundary.
func findSplit(text string, maxChars int) int {
	runes := []rune(text)
	if len(runes) <= maxChars {
		return len(text)
	}

	candidate := string(runes[:maxChars])
	candidateRunes := []rune(candidate)

	// 1. Paragraph boundary — search backwards in candidate.
	if idx := lastIndex(candidate, "\n\n"); idx > 0 {
		return idx + 2 // include the blank line in the consumed part
	}
	if idx := lastIndex(candidate, "\r\n\r\n"); idx > 0 {
		return idx + 4
	}

	// 2. Sentence-ending punctuation (Western or Arabic) or bare newline.
	for i := len(candidateRunes) - 1; i > 0; i-- {
		r := candidateRunes[i]
		if !sentenceEnders[r] {
			continue
		}
		if r == '\n' {
			return len(string(candidateRunes[:i+1]))
		}
		if i+1 == len(candidateRunes) || unicode.IsSpace(candidateRunes[i+1]) {
			return len(string(candidateRunes[:i+1]))
		}
	}

	// 3. Whitespace word boundary.
	for i := len(candidateRunes) - 1; i > 0; i-- {
		if unicode.IsSpace(candidateRunes[i]) {
			return len(string(candidateRunes[:i]))
		}
	}

	// 4. Hard cut.
	return len(candidate)
}

// lastIndex returns the last byte index of substr within s, or -1 if not found.
func lastIndex(s, substr string) int {
	idx := -1
	start := 0
	for {
		i := strings.Index(s[start:], substr)
		if i == -1 {
			break
		}
		idx = start + i
		start = idx + 1
	}
	return idx
}

// ExtractContext returns the last wordCount words of text, joined by a
// single space. Unlike CarryContext (the full preceding chunk), this is a
// short last-words summary; neither the orchestrator nor the backends call
// it.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
