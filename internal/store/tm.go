package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// TMSegment is one entry in the fuzzy-searchable Translation Memory (spec
// §3/§4.4), grounded on original_source/core/translation_memory.py's
// TMSegment dataclass.
type TMSegment struct {
	ID           string
	SourceText   string
	TargetText   string
	SourceLang   string
	TargetLang   string
	Domain       string
	QualityScore float64
	UseCount     int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TMMatch pairs a segment with its similarity to a query.
type TMMatch struct {
	Segment    TMSegment
	Similarity float64
}

func segmentHash(sourceLang, targetLang, sourceText string) string {
	sum := sha256.Sum256([]byte(sourceLang + ":" + targetLang + ":" + sourceText))
	return hex.EncodeToString(sum[:])
}

// AddSegment inserts a new TM segment or, if one with the same (source_lang,
// target_lang, source_text) hash already exists, updates its target,
// quality, and timestamps and increments use_count — it never creates a
// duplicate, per spec §4.4's update semantics.
func (s *Store) AddSegment(ctx context.Context, sourceText, targetText, sourceLang, targetLang, domain string, quality float64) error {
	hash := segmentHash(sourceLang, targetLang, normalizeText(sourceText))
	now := time.Now()

	var existingID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM tm_segments WHERE source_hash = ?`, hash).Scan(&existingID)
	switch {
	case err == sql.ErrNoRows:
		id := fmt.Sprintf("tm_%d", now.UnixNano())
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tm_segments (id, source_hash, source_text, target_text, source_lang, target_lang, domain, quality_score, use_count, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			id, hash, normalizeText(sourceText), targetText, sourceLang, targetLang, domain, quality, now, now)
		return err
	case err != nil:
		return err
	default:
		_, err := s.db.ExecContext(ctx,
			`UPDATE tm_segments SET target_text = ?, domain = ?, quality_score = ?, use_count = use_count + 1, updated_at = ? WHERE id = ?`,
			targetText, domain, quality, now, existingID)
		return err
	}
}

// GetExactMatch returns the segment whose content hash matches text exactly,
// incrementing its use counter. The returned TMMatch carries Similarity = 1.
func (s *Store) GetExactMatch(ctx context.Context, sourceText, sourceLang, targetLang string) (*TMMatch, error) {
	hash := segmentHash(sourceLang, targetLang, normalizeText(sourceText))

	var seg TMSegment
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source_text, target_text, source_lang, target_lang, domain, quality_score, use_count, created_at, updated_at
		 FROM tm_segments WHERE source_hash = ?`, hash).Scan(
		&seg.ID, &seg.SourceText, &seg.TargetText, &seg.SourceLang, &seg.TargetLang,
		&seg.Domain, &seg.QualityScore, &seg.UseCount, &seg.CreatedAt, &seg.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `UPDATE tm_segments SET use_count = use_count + 1, updated_at = ? WHERE id = ?`, time.Now(), seg.ID)
	if err != nil {
		return nil, err
	}
	seg.UseCount++

	return &TMMatch{Segment: seg, Similarity: 1.0}, nil
}

// CountSegments returns the number of fuzzy-searchable Translation Memory
// segments currently stored.
func (s *Store) CountSegments(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tm_segments`).Scan(&n)
	return n, err
}

// stopWords excludes common function words from FTS keyword extraction, per
// translation_memory.py's _extract_keywords.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"in": true, "on": true, "at": true, "to": true, "for": true, "of": true,
	"with": true, "is": true, "are": true, "was": true, "were": true,
	"be": true, "been": true, "this": true, "that": true, "it": true,
}

func extractKeywords(text string, limit int) []string {
	fields := strings.Fields(strings.ToLower(text))
	seen := make(map[string]bool)
	var keywords []string
	for _, f := range fields {
		f = strings.Trim(f, ".,!?;:\"'()[]{}")
		if len(f) <= 2 || stopWords[f] || seen[f] {
			continue
		}
		seen[f] = true
		keywords = append(keywords, f)
		if len(keywords) >= limit {
			break
		}
	}
	return keywords
}

// GetFuzzyMatches retrieves up to 3*k FTS candidates using the top-5
// non-stop keywords OR'd together, rescores each with the weighted
// composite similarity (0.4 levenshtein + 0.3 bigram-Jaccard + 0.3
// word-Jaccard), keeps those at or above threshold, and returns the top k
// sorted descending by similarity. Grounded on translation_memory.py's
// get_fuzzy_matches/_calculate_similarity.
func (s *Store) GetFuzzyMatches(ctx context.Context, sourceText, sourceLang, targetLang string, threshold float64, k int, domain string) ([]TMMatch, error) {
	if k <= 0 {
		k = 5
	}
	normalized := normalizeText(sourceText)
	keywords := extractKeywords(normalized, 5)
	if len(keywords) == 0 {
		return nil, nil
	}

	ftsQuery := strings.Join(keywords, " OR ")
	query := `
		SELECT t.id, t.source_text, t.target_text, t.source_lang, t.target_lang, t.domain, t.quality_score, t.use_count, t.created_at, t.updated_at
		FROM tm_segments_fts f
		JOIN tm_segments t ON t.rowid = f.rowid
		WHERE f.source_text MATCH ? AND t.source_lang = ? AND t.target_lang = ?`
	args := []interface{}{ftsQuery, sourceLang, targetLang}
	if domain != "" {
		query += ` AND t.domain = ?`
		args = append(args, domain)
	}
	query += ` LIMIT ?`
	args = append(args, k*3)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []TMSegment
	for rows.Next() {
		var seg TMSegment
		if err := rows.Scan(&seg.ID, &seg.SourceText, &seg.TargetText, &seg.SourceLang, &seg.TargetLang,
			&seg.Domain, &seg.QualityScore, &seg.UseCount, &seg.CreatedAt, &seg.UpdatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var matches []TMMatch
	for _, seg := range candidates {
		sim := compositeSimilarity(normalized, seg.SourceText)
		if sim >= threshold {
			matches = append(matches, TMMatch{Segment: seg, Similarity: sim})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// compositeSimilarity implements spec §4.4's weighted composite:
// 0.4*(1 - levenshtein/maxlen) + 0.3*bigram-Jaccard + 0.3*word-Jaccard.
func compositeSimilarity(a, b string) float64 {
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	levScore := 1.0
	if maxLen > 0 {
		levScore = 1.0 - float64(levenshtein(a, b))/float64(maxLen)
	}

	return 0.4*levScore + 0.3*bigramJaccard(a, b) + 0.3*wordJaccard(a, b)
}

func bigramJaccard(a, b string) float64 {
	bigrams := func(s string) map[string]bool {
		runes := []rune(s)
		set := make(map[string]bool)
		for i := 0; i+1 < len(runes); i++ {
			set[string(runes[i:i+2])] = true
		}
		return set
	}
	return jaccard(bigrams(a), bigrams(b))
}

func wordJaccard(a, b string) float64 {
	words := func(s string) map[string]bool {
		set := make(map[string]bool)
		for _, w := range strings.Fields(strings.ToLower(s)) {
			set[w] = true
		}
		return set
	}
	return jaccard(words(a), words(b))
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if b[k] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
