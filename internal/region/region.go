// Package region detects protected regions (formulas, code, chemical
// formulas) within source text: substrings that must survive translation
// byte-for-byte and must never be split across a chunk boundary.
package region

// Kind tags the category of a protected region.
type Kind int

const (
	FormulaInline Kind = iota
	FormulaBlock
	CodeInline
	CodeBlock
	Chemical
)

func (k Kind) String() string {
	switch k {
	case FormulaInline:
		return "FORMULA_INLINE"
	case FormulaBlock:
		return "FORMULA_BLOCK"
	case CodeInline:
		return "CODE_INLINE"
	case CodeBlock:
		return "CODE_BLOCK"
	case Chemical:
		return "CHEMICAL"
	default:
		return "UNKNOWN"
	}
}

// Region is a half-open interval [Start, End) in a text, tagged with a kind
// and optional kind-specific metadata (Environment for LaTeX, Language for
// fenced code).
type Region struct {
	Start       int
	End         int
	Kind        Kind
	Environment string // LaTeX environment name, if any
	Language    string // fenced-code language tag, if any

	priority int // lower sorts first; used only during overlap resolution
}

// Content returns the region's exact substring of text.
func (r Region) Content(text string) string {
	return text[r.Start:r.End]
}

func (r Region) overlaps(o Region) bool {
	return r.Start < o.End && o.Start < r.End
}

// resolveOverlaps sorts candidates by priority (environment > display math >
// inline math; fenced > inline > indented code) and greedily accepts
// non-overlapping regions, per spec §4.1.
func resolveOverlaps(candidates []Region) []Region {
	sorted := make([]Region, len(candidates))
	copy(sorted, candidates)
	// stable insertion sort by (priority asc, start asc) — candidate counts
	// are small (a handful of protected regions per chunk-sized text).
	for i := 1; i < len(sorted); i++ {
		j := i
		for j > 0 && less(sorted[j], sorted[j-1]) {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
			j--
		}
	}

	var accepted []Region
	for _, cand := range sorted {
		ok := true
		for _, a := range accepted {
			if cand.overlaps(a) {
				ok = false
				break
			}
		}
		if ok {
			accepted = append(accepted, cand)
		}
	}

	// Final output is sorted by position, not priority.
	for i := 1; i < len(accepted); i++ {
		j := i
		for j > 0 && accepted[j].Start < accepted[j-1].Start {
			accepted[j], accepted[j-1] = accepted[j-1], accepted[j]
			j--
		}
	}
	return accepted
}

func less(a, b Region) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.Start < b.Start
}
