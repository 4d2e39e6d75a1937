package region

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	fencedBacktickRe = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)\n(.*?)```")
	fencedTildeRe     = regexp.MustCompile("(?s)~~~([A-Za-z0-9_+-]*)\n(.*?)~~~")
	inlineBacktickRe  = regexp.MustCompile("`([^`\n]+)`")

	camelCaseRe   = regexp.MustCompile(`^[a-z][a-zA-Z0-9]*[A-Z][a-zA-Z0-9]*$`)
	snakeCaseRe   = regexp.MustCompile(`^[a-z0-9]+(_[a-z0-9]+){2,}$`)
	allCapsConstRe = regexp.MustCompile(`^[A-Z][A-Z0-9_]{2,}$`)
	funcCallRe    = regexp.MustCompile(`\b[a-zA-Z_][a-zA-Z0-9_]*\([^)]*\)`)
	comparisonOpRe = regexp.MustCompile(`[a-zA-Z0-9_]\s*(==|!=|->|=>)\s*[a-zA-Z0-9_]`)
)

var abbreviations = map[string]bool{
	"e.g.": true, "i.e.": true, "etc.": true, "vs.": true,
	"Dr.": true, "Mr.": true, "Mrs.": true, "Ms.": true,
	"a.m.": true, "p.m.": true, "U.S.": true, "U.K.": true, "Ph.D.": true,
}

func detectFencedCode(text string) []Region {
	var out []Region
	for _, m := range fencedBacktickRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Region{Start: m[0], End: m[1], Kind: CodeBlock, Language: text[m[2]:m[3]], priority: 0})
	}
	for _, m := range fencedTildeRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, Region{Start: m[0], End: m[1], Kind: CodeBlock, Language: text[m[2]:m[3]], priority: 0})
	}
	return out
}

// detectIndentedCode finds runs of >=2 consecutive lines each indented by
// four spaces or a tab, then applies a block-level heuristic before
// accepting the run as a protected region.
func detectIndentedCode(text string) []Region {
	lines := strings.Split(text, "\n")
	offsets := make([]int, len(lines)+1)
	pos := 0
	for i, l := range lines {
		offsets[i] = pos
		pos += len(l) + 1
	}
	offsets[len(lines)] = pos

	var out []Region
	i := 0
	for i < len(lines) {
		if !isIndented(lines[i]) {
			i++
			continue
		}
		j := i
		for j < len(lines) && (isIndented(lines[j]) || strings.TrimSpace(lines[j]) == "") {
			j++
		}
		for j > i && strings.TrimSpace(lines[j-1]) == "" {
			j--
		}
		if j-i >= 2 && looksLikeCodeBlock(lines[i:j]) {
			out = append(out, Region{Start: offsets[i], End: offsets[j] - 1, Kind: CodeBlock, priority: 2})
		}
		i = j + 1
	}
	return out
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, "    ") || strings.HasPrefix(line, "\t")
}

func looksLikeCodeBlock(lines []string) bool {
	nonEmpty := 0
	indicators := 0
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		nonEmpty++
		if strings.ContainsAny(l, "{}[]();") || comparisonOpRe.MatchString(l) {
			indicators++
		}
	}
	if nonEmpty == 0 {
		return false
	}
	return float64(indicators)/float64(nonEmpty) > 0.3
}

func detectInlineCode(text string, excluded []Region) []Region {
	var out []Region
	for _, m := range inlineBacktickRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if overlapsAny(start, end, excluded) {
			continue
		}
		content := text[m[2]:m[3]]
		if looksLikeInlineCode(content) {
			out = append(out, Region{Start: start, End: end, Kind: CodeInline, priority: 1})
		}
	}
	return out
}

func overlapsAny(start, end int, regions []Region) bool {
	for _, r := range regions {
		if start < r.End && r.Start < end {
			return true
		}
	}
	return false
}

// looksLikeInlineCode applies the heuristic from spec §4.1: high symbol
// density, camelCase, snake_case with >=2 underscores, ALL_CAPS constants,
// function-call syntax, arrow/comparison operators, dot access — excluding
// a hard list of English abbreviations.
func looksLikeInlineCode(content string) bool {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return false
	}
	if abbreviations[trimmed] {
		return false
	}
	if len(trimmed) < 2 {
		return false
	}

	symbolCount := 0
	for _, r := range trimmed {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			symbolCount++
		}
	}
	density := float64(symbolCount) / float64(len([]rune(trimmed)))

	switch {
	case density > 0.3:
		return true
	case camelCaseRe.MatchString(trimmed):
		return true
	case snakeCaseRe.MatchString(trimmed):
		return true
	case allCapsConstRe.MatchString(trimmed):
		return true
	case funcCallRe.MatchString(trimmed):
		return true
	case strings.Contains(trimmed, "->") || strings.Contains(trimmed, "=>"):
		return true
	case comparisonOpRe.MatchString(trimmed):
		return true
	case strings.Count(trimmed, ".") >= 1 && !strings.Contains(trimmed, " ") && len(trimmed) > 3:
		return true
	default:
		return false
	}
}

func detectCode(text string) []Region {
	fenced := detectFencedCode(text)
	indented := detectIndentedCode(text)
	inline := detectInlineCode(text, append(append([]Region{}, fenced...), indented...))

	var out []Region
	out = append(out, fenced...)
	out = append(out, inline...)
	out = append(out, indented...)
	return out
}
