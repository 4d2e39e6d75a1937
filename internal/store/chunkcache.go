package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
)

// ChunkCacheKey computes the content-address hash(source_text, src, tgt,
// mode, domain) used by the exact Chunk Cache tier (spec §4.4). mode
// distinguishes STEM-aware from plain chunking, since the same source text
// chunked differently is not guaranteed to translate identically.
func ChunkCacheKey(sourceText, sourceLang, targetLang, mode, domain string) string {
	sum := sha256.Sum256([]byte(sourceLang + "\x00" + targetLang + "\x00" + mode + "\x00" + domain + "\x00" + normalizeText(sourceText)))
	return hex.EncodeToString(sum[:])
}

// GetChunkCache performs a side-effect-free exact lookup.
func (s *Store) GetChunkCache(ctx context.Context, key string) (string, bool, error) {
	var target string
	err := s.db.QueryRowContext(ctx, `SELECT target_text FROM chunk_cache WHERE cache_key = ?`, key).Scan(&target)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return target, true, nil
}

// PutChunkCache writes an entry unconditionally; callers are responsible
// for only calling this when the translation's quality score meets the
// spec's ≥0.7 threshold for chunk-cache admission.
func (s *Store) PutChunkCache(ctx context.Context, key, targetText string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO chunk_cache (cache_key, target_text) VALUES (?, ?)`,
		key, targetText)
	return err
}

// CountChunkCache returns the number of content-addressed entries currently
// held in the exact Chunk Cache tier.
func (s *Store) CountChunkCache(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunk_cache`).Scan(&n)
	return n, err
}

// ClearChunkCache removes every entry from the Chunk Cache tier.
func (s *Store) ClearChunkCache(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM chunk_cache`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
