package region

// Detector locates protected regions in text. It is stateless and safe for
// concurrent use; spec §9 calls for per-job instantiation rather than a
// process-wide singleton, so callers construct one per job via New.
type Detector struct {
	IncludeChemical bool
}

func New() *Detector {
	return &Detector{IncludeChemical: true}
}

// Detect returns a sorted, non-overlapping list of protected regions in
// text. The detector never fails: on any uncertain input it simply omits
// the ambiguous span rather than returning an error, per spec §4.1.
func (d *Detector) Detect(text string) []Region {
	var candidates []Region
	candidates = append(candidates, detectFormulas(text)...)
	candidates = append(candidates, detectCode(text)...)
	if d.IncludeChemical {
		candidates = append(candidates, detectChemical(text)...)
	}
	return resolveOverlaps(candidates)
}

// HasRegions reports whether text contains any protected region.
func (d *Detector) HasRegions(text string) bool {
	return len(d.Detect(text)) > 0
}

// CountByKind tallies detected regions by kind, useful for STEM-heaviness
// decisions in the chunker.
func CountByKind(regions []Region) map[Kind]int {
	counts := make(map[Kind]int)
	for _, r := range regions {
		counts[r.Kind]++
	}
	return counts
}
