// Package chunker splits large texts into translatable chunks while
// preserving sentence and paragraph integrity. It also extracts a
// sliding-window context snippet (last N words) for use with LLM
// translators to maintain continuity across chunk boundaries.
//
// Chunk and ChunkSTEM/ChunkParagraphs implement the Semantic Chunker
// described by spec §4.3, grounded on original_source/core/chunker.py's
// SmartChunker: STEM-aware mode never splits a protected region, and
// ChunkParagraphs carries a pending overlap context from a flushed chunk
// into the next chunk's OverlapCharCount rather than duplicating the text
// itself. ChunkSTEM records no overlap: its chunks have OverlapCharCount 0.
package chunker

import (
	"strings"
	"unicode"

	"github.com/valpere/peretran/internal/region"
)

const (
	// DefaultContextWords is the default number of words extracted by
	// ExtractContext for use as a sliding-window context.
	DefaultContextWords = 25
)

// SplitText splits text into pieces each no longer than maxChars unicode
// code points. Splits are attempted (in order of preference) at:
//  1. Paragraph boundaries (\n\n or \r\n\r\n)
//  2. Sentence-ending punctuation (. ! ?)
//  3. Whitespace (word boundary)
//  4. Hard cut at maxChars if no suitable boundary is found
//
// If text fits entirely within maxChars, a single-element slice is returned.
// If maxChars ≤ 0 it is treated as unlimited (returns the whole text).
func SplitText(text string, maxChars int) []string {
	if maxChars <= 0 || len([]rune(text)) <= maxChars {
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

	// Work with the candidate prefix (runes[:maxChars]).
	// Convert back to byte offset for the split boundary.
	candidate := string(runes[:maxChars])

	// 1. Paragraph boundary — search backwards in candidate.
	if idx := lastIndex(candidate, "\n\n"); idx > 0 {
		return idx + 2 // include the blank line in the consumed part
	}
	if idx := lastIndex(candidate, "\r\n\r\n"); idx > 0 {
		return idx + 4
	}

	// 2. Sentence-ending punctuation followed by a space.
	for i := len([]rune(candidate)) - 1; i > 0; i-- {
		r := []rune(candidate)[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len([]rune(candidate)) {
			next := []rune(candidate)[i+1]
			if unicode.IsSpace(next) {
				byteOffset := len(string([]rune(candidate)[:i+1]))
				return byteOffset
			}
		}
	}

	// 3. Whitespace word boundary.
	for i := len([]rune(candidate)) - 1; i > 0; i-- {
		if unicode.IsSpace([]rune(candidate)[i]) {
			byteOffset := len(string([]rune(candidate)[:i]))
			return byteOffset
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

// ExtractContext returns the last wordCount words of text, joined by a single
// space. It is intended for use as a sliding-window context snippet passed to
// LLM translators so they can maintain narrative continuity across chunks.
// If text has fewer words than wordCount, the entire text is returned.
// If wordCount ≤ 0, DefaultContextWords is used.
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

// Chunk is a dispatchable unit of text per spec §3's Chunk data model: a
// monotonic id, the payload, reference-only neighbor context, and the
// overlap byte count the merger needs to excise duplication at stitch time.
type Chunk struct {
	ID               int
	Text             string
	ContextBefore    string
	ContextAfter     string
	OverlapCharCount int
	FormulaCount     int
	CodeCount        int
}

// ChunkSTEM splits text into Chunks that never split a protected region,
// per spec §4.3's STEM-aware algorithm. regions must be sorted by Start
// (region.Detector.Detect already returns them that way). maxChars bounds
// the proposed chunk size; contextWindow bounds how much neighboring text
// is captured as ContextBefore/ContextAfter.
func ChunkSTEM(text string, maxChars, contextWindow int, regions []region.Region) []Chunk {
	if maxChars <= 0 {
		maxChars = 2000
	}
	if contextWindow <= 0 {
		contextWindow = 200
	}

	var chunks []Chunk
	id := 1
	pos := 0
	pendingOverlap := 0

	for pos < len(text) {
		proposedEnd := pos + maxChars
		if proposedEnd > len(text) {
			proposedEnd = len(text)
		}

		splitPoint := findSafeSplitPoint(text, pos, proposedEnd, regions)

		chunkText := strings.TrimSpace(text[pos:splitPoint])
		if chunkText != "" {
			contextBefore := ""
			if pos > 0 {
				start := pos - contextWindow
				if start < 0 {
					start = 0
				}
				contextBefore = text[start:pos]
			}
			contextAfter := ""
			if splitPoint < len(text) {
				end := splitPoint + contextWindow
				if end > len(text) {
					end = len(text)
				}
				contextAfter = text[splitPoint:end]
			}

			formulaCount, codeCount := countRegionsIn(regions, pos, splitPoint)

			chunks = append(chunks, Chunk{
				ID:               id,
				Text:             chunkText,
				ContextBefore:    contextBefore,
				ContextAfter:     contextAfter,
				OverlapCharCount: pendingOverlap,
				FormulaCount:     formulaCount,
				CodeCount:        codeCount,
			})
			id++
			pendingOverlap = 0
		}

		if splitPoint == pos {
			// Degenerate input: force one character of progress so the
			// loop is guaranteed to terminate (spec §4.3 step 4).
			pos++
		} else {
			pos = splitPoint
		}
	}

	return chunks
}

// findSafeSplitPoint implements spec §4.3 step 2-3: a protected region
// overlapping (pos, proposedEnd) forces the split before the region (if it
// starts after pos) or after it (if the chunk already starts inside it,
// even when that exceeds maxChars); otherwise prefer a paragraph boundary,
// then a sentence boundary, else the proposed end.
func findSafeSplitPoint(text string, pos, proposedEnd int, regions []region.Region) int {
	minSplit := pos
	for _, r := range regions {
		if r.End <= pos || r.Start >= proposedEnd {
			continue // no interaction with this window
		}
		if r.Start > pos && r.Start < proposedEnd {
			return r.Start
		}
		// Region begins at or before pos and extends past it: must
		// include the whole region even if it exceeds proposedEnd.
		if r.End > proposedEnd {
			return r.End
		}
		minSplit = r.End
	}

	window := text[pos:proposedEnd]
	if idx := lastParagraphBreak(window); idx > 0 && pos+idx >= minSplit {
		return pos + idx
	}
	if idx := lastSentenceBreak(window); idx > 0 && pos+idx >= minSplit {
		return pos + idx
	}
	return proposedEnd
}

func lastParagraphBreak(window string) int {
	idx := lastIndex(window, "\n\n")
	if idx < 0 {
		return -1
	}
	return idx + 2
}

func lastSentenceBreak(window string) int {
	runes := []rune(window)
	for i := len(runes) - 1; i > 0; i-- {
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return len(string(runes[:i+1]))
		}
	}
	return -1
}

func countRegionsIn(regions []region.Region, start, end int) (formulas, code int) {
	for _, r := range regions {
		if r.Start < start || r.End > end {
			continue
		}
		switch r.Kind {
		case region.FormulaInline, region.FormulaBlock, region.Chemical:
			formulas++
		case region.CodeInline, region.CodeBlock:
			code++
		}
	}
	return formulas, code
}

// ChunkParagraphs implements spec §4.3's non-STEM mode: split by
// paragraphs, flush the accumulator before it would exceed maxChars, and
// fall back to sentence-level then hard-cut splitting for an oversized
// paragraph. Grounded on SmartChunker.create_chunks.
func ChunkParagraphs(text string, maxChars, contextWindow int) []Chunk {
	if maxChars <= 0 {
		maxChars = 2000
	}
	if contextWindow <= 0 {
		contextWindow = 200
	}

	paragraphs := splitParagraphs(text)
	var chunks []Chunk
	id := 1
	var current []string
	currentLen := 0
	pendingOverlap := 0

	flush := func(startIdx, endIdx int) {
		if len(current) == 0 {
			return
		}
		contextBefore := ""
		if startIdx > 0 {
			contextBefore = lastN(paragraphs[startIdx-1], contextWindow)
		}
		contextAfter := ""
		if endIdx < len(paragraphs) {
			contextAfter = firstN(paragraphs[endIdx], contextWindow)
		}
		chunks = append(chunks, Chunk{
			ID:               id,
			Text:             strings.Join(current, "\n\n"),
			ContextBefore:    contextBefore,
			ContextAfter:     contextAfter,
			OverlapCharCount: pendingOverlap,
		})
		id++
		last := current[len(current)-1]
		pendingOverlap = len(last)
		current = nil
		currentLen = 0
	}

	for i, para := range paragraphs {
		paraLen := len(para)

		if paraLen > maxChars {
			flush(i-len(current), i)
			for _, sent := range splitSentences(para) {
				for _, piece := range SplitText(sent, maxChars) {
					chunks = append(chunks, Chunk{ID: id, Text: piece})
					id++
				}
			}
			continue
		}

		if currentLen+paraLen > maxChars && len(current) > 0 {
			flush(i-len(current), i)
			current = []string{para}
			currentLen = paraLen
		} else {
			current = append(current, para)
			currentLen += paraLen
		}
	}
	flush(len(paragraphs)-len(current), len(paragraphs))

	return chunks
}

func splitParagraphs(text string) []string {
	var paras []string
	for _, block := range strings.Split(text, "\n\n") {
		for _, sub := range strings.Split(block, "\n\t") {
			if t := strings.TrimSpace(sub); t != "" {
				paras = append(paras, t)
			}
		}
	}
	return paras
}

func splitSentences(text string) []string {
	var sentences []string
	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			sentences = append(sentences, strings.TrimSpace(string(runes[start:i+1])))
			start = i + 1
		}
	}
	if start < len(runes) {
		if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
			sentences = append(sentences, rest)
		}
	}
	if len(sentences) == 0 && strings.TrimSpace(text) != "" {
		sentences = []string{strings.TrimSpace(text)}
	}
	return sentences
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
