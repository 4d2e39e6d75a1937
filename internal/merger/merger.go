// Package merger stitches per-chunk translations back into one document,
// detecting and removing the overlap the chunker deliberately introduced
// at chunk boundaries (spec §4.10).
//
// Grounded on original_source/core/merger.py's SmartMerger: four-tier cut
// priority (recorded overlap metadata, exact word/char match, fuzzy longest
// common substring, punctuation-aware separator fallback), plus its
// post_process cleanup. The teacher's internal/postprocess.Clean supplies
// the regex-phase style these cleanups are written in.
package merger

import (
	"regexp"
	"sort"
	"strings"
)

// ExpansionFactors estimates how much longer a translation runs relative to
// its source, per language pair, so a chunk's recorded OverlapCharCount
// (measured in source characters) can be projected onto translated text.
// Grounded on merger.py's VIETNAMESE_EXPANSION_FACTOR; other pairs default
// to 1.0 until measured (an Open Question resolved the en->vi value, see
// DESIGN.md).
var ExpansionFactors = map[string]float64{
	"en-vi": 1.2,
}

func expansionFactor(sourceLang, targetLang string) float64 {
	if f, ok := ExpansionFactors[sourceLang+"-"+targetLang]; ok {
		return f
	}
	return 1.0
}

// ChunkTranslation is the minimal view of a translated chunk the merger
// needs; translatorcore.Result and chunker.Chunk both carry enough fields
// to build one.
type ChunkTranslation struct {
	ChunkID          int
	Translated       string
	OverlapCharCount int
}

// Merge stitches translated chunks into one document, sorted by ChunkID.
func Merge(chunks []ChunkTranslation, sourceLang, targetLang string) string {
	if len(chunks) == 0 {
		return ""
	}

	sorted := make([]ChunkTranslation, len(chunks))
	copy(sorted, chunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ChunkID < sorted[j].ChunkID })

	factor := expansionFactor(sourceLang, targetLang)
	merged := strings.TrimSpace(sorted[0].Translated)

	for i := 1; i < len(sorted); i++ {
		current := strings.TrimSpace(sorted[i].Translated)
		if current == "" {
			continue
		}

		overlap := 0

		if sorted[i].OverlapCharCount > 0 {
			estimated := int(float64(sorted[i].OverlapCharCount) * factor)
			half := len(current) / 2
			if estimated > half {
				estimated = half
			}
			overlap = estimated
		}

		if overlap == 0 {
			overlap = findOverlap(merged, current, 20)
		}

		if overlap == 0 {
			overlap = findOverlapFuzzy(merged, current, 30)
		}

		if overlap > 20 && overlap <= len(current) {
			merged = merged + current[overlap:]
		} else {
			merged = joinWithSeparator(merged, current)
		}
	}

	return PostProcess(merged)
}

// findOverlap looks for an exact match between the tail of text1 and the
// head of text2, word-level first (up to 50 words), falling back to
// character-level (up to 500 chars), matching merger.py's find_overlap.
func findOverlap(text1, text2 string, minOverlap int) int {
	words1 := strings.Fields(text1)
	words2 := strings.Fields(text2)

	maxWords := len(words1)
	if len(words2) < maxWords {
		maxWords = len(words2)
	}
	if maxWords > 50 {
		maxWords = 50
	}

	for i := maxWords; i > 1; i-- {
		if wordsEqual(words1[len(words1)-i:], words2[:i]) {
			return len(strings.Join(words2[:i], " "))
		}
	}

	maxCheck := len(text1)
	if len(text2) < maxCheck {
		maxCheck = len(text2)
	}
	if maxCheck > 500 {
		maxCheck = 500
	}

	for i := maxCheck; i > minOverlap; i-- {
		if text1[len(text1)-i:] == text2[:i] {
			return i
		}
	}

	return 0
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// findOverlapFuzzy finds the longest common substring between the tail of
// text1 and the head of text2 (each capped at 500 chars) and, if it is at
// least minMatchSize long, returns how many characters of text2 it covers
// from the start. Grounded on merger.py's find_overlap_fuzzy
// (SequenceMatcher.find_longest_match), reimplemented as a plain DP since
// RE2/Go has no SequenceMatcher equivalent.
func findOverlapFuzzy(text1, text2 string, minMatchSize int) int {
	end1 := text1
	if len(end1) > 500 {
		end1 = end1[len(end1)-500:]
	}
	start2 := text2
	if len(start2) > 500 {
		start2 = start2[:500]
	}

	size, _, bEnd := longestCommonSubstring(end1, start2)
	if size >= minMatchSize {
		return bEnd
	}
	return 0
}

// longestCommonSubstring returns the match size and the [start,end) byte
// range within b of the longest common substring of a and b.
func longestCommonSubstring(a, b string) (size, bStart, bEnd int) {
	if a == "" || b == "" {
		return 0, 0, 0
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	best, bestEnd := 0, 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
					bestEnd = j
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}

	return best, bestEnd - best, bestEnd
}

var sentenceEndRunes = "." + "!" + "?" + "。" + "！" + "？"

// joinWithSeparator joins two segments with no detected overlap, matching
// merger.py's fallback: a paragraph break after clear sentence punctuation
// followed by a capitalized start, otherwise a single space.
func joinWithSeparator(merged, current string) string {
	if merged == "" {
		return current
	}
	if current == "" {
		return merged
	}

	mergedRunes := []rune(merged)
	lastRune := mergedRunes[len(mergedRunes)-1]
	firstRune := []rune(current)[0]

	if strings.ContainsRune(sentenceEndRunes, lastRune) && isUpperRune(firstRune) {
		return merged + "\n\n" + current
	}
	return merged + " " + current
}

func isUpperRune(r rune) bool {
	return r >= 'A' && r <= 'Z' || (r > 127 && strings.ToLower(string(r)) != string(r))
}

var (
	duplicateSpaceRe  = regexp.MustCompile(` +`)
	extraBlankLinesRe = regexp.MustCompile(`\n\s*\n\s*\n+`)
	chunkMarkerRe     = regexp.MustCompile(`\[CHUNK \d+\]`)
	boundaryMarkerRe  = regexp.MustCompile(`---START---|---END---`)
	doubledQuoteRe    = regexp.MustCompile(`"\s*"`)
)

// PostProcess cleans up a merged document: collapses duplicate whitespace
// and blank lines, strips leftover chunk/boundary markers, and fixes
// doubled quotes left by adjacent chunk boundaries. Grounded on
// merger.py's post_process.
func PostProcess(text string) string {
	text = duplicateSpaceRe.ReplaceAllString(text, " ")
	text = extraBlankLinesRe.ReplaceAllString(text, "\n\n")
	text = chunkMarkerRe.ReplaceAllString(text, "")
	text = boundaryMarkerRe.ReplaceAllString(text, "")
	text = doubledQuoteRe.ReplaceAllString(text, `"`)
	return strings.TrimSpace(text)
}
