package writer

import (
	"regexp"
	"strings"
)

// Heading detection patterns, grounded on incremental_builder.py's
// CHAPTER_PATTERNS / SECTION_PATTERNS (FIX-005 smart formatting).
var chapterPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(CHAPTER|CHƯƠNG|PHẦN)\s+(\d+|[IVXLCDM]+)`),
	regexp.MustCompile(`(?i)^CHƯƠNG\s+\d+\s*[:：\-–—]`),
	regexp.MustCompile(`(?i)^CHAPTER\s+\d+\s*[:：\-–—]`),
}

var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d+\.)+\d*\s+\w`),
	regexp.MustCompile(`(?i)^(SECTION|PHẦN|MỤC)\s+\d+`),
	regexp.MustCompile(`^[IVXLCDM]+\.\s+\w`),
}

func isChapterHeading(text string) bool {
	text = strings.TrimSpace(text)
	for _, re := range chapterPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

func isSectionHeading(text string) bool {
	text = strings.TrimSpace(text)
	for _, re := range sectionPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// paragraphLevel classifies a paragraph as a chapter heading (1), section
// heading (2), or body text (0), for format-specific styling.
func paragraphLevel(text string) int {
	switch {
	case isChapterHeading(text):
		return 1
	case isSectionHeading(text):
		return 2
	default:
		return 0
	}
}

var blankLineSplitRe = regexp.MustCompile(`\n\s*\n`)

// splitParagraphs splits merged batch text on blank lines, trimming each
// paragraph and dropping empties, grounded on incremental_builder.py's
// _add_formatted_text paragraph splitting.
func splitParagraphs(text string) []string {
	parts := blankLineSplitRe.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
