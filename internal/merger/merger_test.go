package merger

import "testing"

func TestMerge_UsesRecordedOverlapCharCount(t *testing.T) {
	chunks := []ChunkTranslation{
		{ChunkID: 0, Translated: "Hello there world. The weather is nice today."},
		{ChunkID: 1, Translated: "eather is nice today. Let us go out and play.", OverlapCharCount: 21},
	}
	got := Merge(chunks, "en", "en")
	if got != "Hello there world. The weather is nice today. Let us go out and play." {
		t.Errorf("unexpected merge result: %q", got)
	}
}

func TestMerge_ExactWordOverlapFallback(t *testing.T) {
	chunks := []ChunkTranslation{
		{ChunkID: 0, Translated: "The quick brown fox jumps over the lazy dog"},
		{ChunkID: 1, Translated: "jumps over the lazy dog and runs away fast"},
	}
	got := Merge(chunks, "en", "en")
	if got != "The quick brown fox jumps over the lazy dog and runs away fast" {
		t.Errorf("unexpected merge result: %q", got)
	}
}

func TestMerge_NoOverlapUsesSeparator(t *testing.T) {
	chunks := []ChunkTranslation{
		{ChunkID: 0, Translated: "This sentence ends cleanly."},
		{ChunkID: 1, Translated: "Unrelated second sentence begins here."},
	}
	got := Merge(chunks, "en", "en")
	if got != "This sentence ends cleanly.\n\nUnrelated second sentence begins here." {
		t.Errorf("expected paragraph-break separator, got %q", got)
	}
}

func TestMerge_EmptyChunkSkipped(t *testing.T) {
	chunks := []ChunkTranslation{
		{ChunkID: 0, Translated: "First part."},
		{ChunkID: 1, Translated: ""},
		{ChunkID: 2, Translated: "Second part."},
	}
	got := Merge(chunks, "en", "en")
	if got != "First part.\n\nSecond part." {
		t.Errorf("expected empty chunk to be skipped, got %q", got)
	}
}

func TestMerge_UnsortedChunkIDsAreOrdered(t *testing.T) {
	chunks := []ChunkTranslation{
		{ChunkID: 1, Translated: "Second."},
		{ChunkID: 0, Translated: "First."},
	}
	got := Merge(chunks, "en", "en")
	if got != "First.\n\nSecond." {
		t.Errorf("expected chunks reordered by ChunkID, got %q", got)
	}
}

func TestPostProcess_StripsMarkersAndWhitespace(t *testing.T) {
	input := "[CHUNK 1]  Hello   world.\n\n\n\nBye---START---now---END---\"\"done"
	got := PostProcess(input)
	if got != "Hello world.\n\nByenow\"done" {
		t.Errorf("unexpected post-process result: %q", got)
	}
}

func TestFindOverlapFuzzy_DetectsNearMatch(t *testing.T) {
	text1 := "the cat sat on the mat and looked around the room quietly"
	text2 := "sat on the mat and looked around the room loudly before leaving"
	got := findOverlapFuzzy(text1, text2, 20)
	if got == 0 {
		t.Error("expected a fuzzy overlap to be found")
	}
}

func TestMerge_Empty(t *testing.T) {
	if got := Merge(nil, "en", "vi"); got != "" {
		t.Errorf("expected empty string for no chunks, got %q", got)
	}
}
