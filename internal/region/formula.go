package region

import (
	"regexp"
	"strings"
)

// latexEnvironments lists the math environments recognized with priority
// over inline/display dollar forms, per spec §4.1. Grounded on
// original_source/core/stem/formula_detector.py's LATEX_ENVIRONMENTS.
var latexEnvironments = []string{
	"equation", "align", "gather", "multline", "split", "eqnarray",
	"array", "matrix", "pmatrix", "bmatrix", "vmatrix", "Vmatrix",
	"cases", "alignat", "flalign",
}

var (
	parenFormulaRe = regexp.MustCompile(`\\\((?s:.*?)\\\)`)
	bracketFormulaRe = regexp.MustCompile(`\\\[(?s:.*?)\\\]`)
	unicodeMathRunRe = regexp.MustCompile(`[∀∃∈∉⊂⊆∪∩∑∏∫√∞≤≥≠≈±×÷∂∇∆]{3,}`)
)

// detectEnvironments finds \begin{NAME}...\end{NAME} blocks for every known
// environment name (with or without a trailing *). RE2 has no backreference
// support, so the matching \end is found by literal search rather than by a
// backreference group.
func detectEnvironments(text string) []Region {
	var out []Region
	for _, name := range latexEnvironments {
		for _, star := range []string{"", "*"} {
			envName := name + star
			begin := "\\begin{" + envName + "}"
			end := "\\end{" + envName + "}"
			searchFrom := 0
			for {
				bi := indexFrom(text, begin, searchFrom)
				if bi < 0 {
					break
				}
				ei := indexFrom(text, end, bi+len(begin))
				if ei < 0 {
					// Unterminated environment: don't claim a region, per
					// the detector's "never fail, just skip" contract.
					searchFrom = bi + len(begin)
					continue
				}
				out = append(out, Region{
					Start:       bi,
					End:         ei + len(end),
					Kind:        FormulaBlock,
					Environment: envName,
					priority:    0,
				})
				searchFrom = ei + len(end)
			}
		}
	}
	return out
}

func indexFrom(s, substr string, from int) int {
	if from > len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i < 0 {
		return -1
	}
	return i + from
}

// detectDisplayDollar finds $$...$$ blocks by manual scanning rather than a
// backtracking regex: spec §9 notes the naive alternation pattern
// backtracks catastrophically on long formulas; a purpose-built scanner
// (no alternation, no lookaround) sidesteps the problem entirely.
func detectDisplayDollar(text string) []Region {
	var out []Region
	i := 0
	for {
		start := indexFrom(text, "$$", i)
		if start < 0 {
			break
		}
		end := indexFrom(text, "$$", start+2)
		if end < 0 {
			break
		}
		out = append(out, Region{Start: start, End: end + 2, Kind: FormulaBlock, priority: 1})
		i = end + 2
	}
	return out
}

// detectInlineDollar finds single $...$ spans that do not belong to a
// display ($$...$$) region, by scanning the text with those spans masked
// out first.
func detectInlineDollar(text string, displays []Region) []Region {
	masked := []byte(text)
	for _, d := range displays {
		for i := d.Start; i < d.End; i++ {
			masked[i] = 0
		}
	}
	var out []Region
	i := 0
	for i < len(masked) {
		if masked[i] != '$' {
			i++
			continue
		}
		end := -1
		for j := i + 1; j < len(masked); j++ {
			if masked[j] == '$' {
				end = j
				break
			}
			if masked[j] == '\n' {
				break // inline math doesn't span a hard newline
			}
		}
		if end < 0 || end == i+1 {
			i++
			continue
		}
		out = append(out, Region{Start: i, End: end + 1, Kind: FormulaInline, priority: 2})
		i = end + 1
	}
	return out
}

func detectFormulas(text string) []Region {
	envs := detectEnvironments(text)
	displays := detectDisplayDollar(text)
	inlines := detectInlineDollar(text, displays)
	parens := parenFormulaRe.FindAllStringIndex(text, -1)
	brackets := bracketFormulaRe.FindAllStringIndex(text, -1)

	var out []Region
	out = append(out, envs...)
	out = append(out, displays...)
	out = append(out, inlines...)
	for _, m := range parens {
		out = append(out, Region{Start: m[0], End: m[1], Kind: FormulaInline, priority: 2})
	}
	for _, m := range brackets {
		out = append(out, Region{Start: m[0], End: m[1], Kind: FormulaBlock, priority: 1})
	}

	for _, m := range unicodeMathRunRe.FindAllStringIndex(text, -1) {
		out = append(out, Region{Start: m[0], End: m[1], Kind: FormulaInline, priority: 2})
	}

	return out
}
