// Package placeholder substitutes protected regions with stable sentinel
// tokens before translation and restores them afterward. Grounded on
// original_source/core/stem/placeholder_manager.py; the sentinel format and
// preservation-rate formula are carried over exactly.
package placeholder

import (
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/valpere/peretran/internal/region"
)

const (
	prefix = "⟪STEM"
	suffix = "⟫"
)

// Entry is the payload behind one sentinel: the original content and its
// kind-specific metadata.
type Entry struct {
	Content     string
	Kind        region.Kind
	Environment string
	Language    string
}

// Map is an ordered mapping from sentinel to original content. Ordering is
// not semantically significant (restore is a simple string replace per
// sentinel) but is kept deterministic for debugging/reproducibility.
type Map struct {
	order   []string
	entries map[string]Entry
}

func newMap() *Map {
	return &Map{entries: make(map[string]Entry)}
}

func (m *Map) put(sentinel string, e Entry) {
	if _, exists := m.entries[sentinel]; !exists {
		m.order = append(m.order, sentinel)
	}
	m.entries[sentinel] = e
}

// Len returns the number of distinct sentinels.
func (m *Map) Len() int { return len(m.order) }

// Sentinels returns the sentinels in insertion order.
func (m *Map) Sentinels() []string { return append([]string(nil), m.order...) }

func (m *Map) Get(sentinel string) (Entry, bool) {
	e, ok := m.entries[sentinel]
	return e, ok
}

// Result is the outcome of a Protect call.
type Result struct {
	Text         string
	Map          *Map
	FormulaCount int
	CodeCount    int
}

// Protect replaces every region in regions with a stable sentinel, working
// from the last region to the first so that earlier offsets stay valid
// after each splice (spec §4.2, grounded on placeholder_manager.py's
// descending-sort replacement loop).
func Protect(text string, regions []region.Region) Result {
	sorted := append([]region.Region(nil), regions...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start > sorted[j].Start })

	out := newMap()
	result := text
	formulaCount, codeCount := 0, 0

	for _, r := range sorted {
		content := r.Content(text)
		sentinel := sentinelFor(r, content)
		out.put(sentinel, Entry{
			Content:     content,
			Kind:        r.Kind,
			Environment: r.Environment,
			Language:    r.Language,
		})
		result = result[:r.Start] + sentinel + result[r.End:]

		switch r.Kind {
		case region.FormulaInline, region.FormulaBlock, region.Chemical:
			formulaCount++
		case region.CodeInline, region.CodeBlock:
			codeCount++
		}
	}

	return Result{Text: result, Map: out, FormulaCount: formulaCount, CodeCount: codeCount}
}

func sentinelFor(r region.Region, content string) string {
	sum := md5.Sum([]byte(content))
	hash := hex.EncodeToString(sum[:])[:8]

	var kindTag, subkindTag string
	switch r.Kind {
	case region.FormulaInline:
		kindTag, subkindTag = "FORMULA", "INLINE"
	case region.FormulaBlock:
		kindTag = "FORMULA"
		if r.Environment != "" {
			subkindTag = strings.ToUpper(r.Environment)
		} else {
			subkindTag = "BLOCK"
		}
	case region.CodeInline:
		kindTag, subkindTag = "CODE", "INLINE"
	case region.CodeBlock:
		kindTag = "CODE"
		if r.Language != "" {
			subkindTag = strings.ToUpper(r.Language)
		} else {
			subkindTag = "BLOCK"
		}
	case region.Chemical:
		kindTag, subkindTag = "CHEMICAL", "FORMULA"
	default:
		kindTag, subkindTag = "UNKNOWN", "UNKNOWN"
	}

	return prefix + "_" + kindTag + "_" + subkindTag + "_" + hash + suffix
}

// RestoreResult is the outcome of a Restore call, including preservation
// accounting per spec §4.2.
type RestoreResult struct {
	Text              string
	ResidualSentinels []string // sentinels that survived translation unreplaced
	MissingCount      int      // entries whose sentinel never appeared in the translated text
	PreservationRate  float64
}

// Restore performs a literal string replacement of every sentinel by its
// original content, then reports residual sentinels and the preservation
// rate: (restored_formulas + restored_code) / (total_formulas + total_code),
// defaulting to 1.0 when there was no protected content to begin with.
func Restore(translated string, m *Map) RestoreResult {
	restored := translated
	missing := 0

	for _, sentinel := range m.Sentinels() {
		entry, _ := m.Get(sentinel)
		if !strings.Contains(restored, sentinel) {
			missing++
			continue
		}
		restored = strings.ReplaceAll(restored, sentinel, entry.Content)
	}

	var residual []string
	for _, sentinel := range m.Sentinels() {
		if strings.Contains(restored, sentinel) {
			residual = append(residual, sentinel)
		}
	}

	total := m.Len()
	var rate float64
	if total == 0 {
		rate = 1.0
	} else {
		preserved := total - missing
		rate = float64(preserved) / float64(total)
	}

	return RestoreResult{
		Text:              restored,
		ResidualSentinels: residual,
		MissingCount:      missing,
		PreservationRate:  rate,
	}
}

// ContainsSentinelLiteral reports whether text already contains the raw
// sentinel prefix, a potential collision with the placeholder scheme (spec
// §9 open question). Callers may choose to warn or extend the sentinel
// with a per-job nonce; this package takes no action on its own.
func ContainsSentinelLiteral(text string) bool {
	return strings.Contains(text, prefix+"_")
}
