package placeholder_test

import (
	"strings"
	"testing"

	"github.com/valpere/peretran/internal/placeholder"
	"github.com/valpere/peretran/internal/region"
)

func TestProtect_NoRegions(t *testing.T) {
	text := "Hello, world!"
	result := placeholder.Protect(text, nil)
	if result.Text != text {
		t.Errorf("expected unchanged text, got %q", result.Text)
	}
	if result.Map.Len() != 0 {
		t.Errorf("expected 0 sentinels, got %d", result.Map.Len())
	}
}

func TestProtect_FormulaAndCode(t *testing.T) {
	text := "The equation $E=mc^2$ is proved by `verify()`."
	regions := region.New().Detect(text)
	result := placeholder.Protect(text, regions)

	if result.Map.Len() != 2 {
		t.Fatalf("expected 2 sentinels, got %d: %+v", result.Map.Len(), result.Map.Sentinels())
	}
	if strings.Contains(result.Text, "$E=mc^2$") {
		t.Errorf("formula content still present in %q", result.Text)
	}
	if strings.Contains(result.Text, "`verify()`") {
		t.Errorf("code content still present in %q", result.Text)
	}
	for _, sentinel := range result.Map.Sentinels() {
		if !strings.HasPrefix(sentinel, "⟪STEM_") || !strings.HasSuffix(sentinel, "⟫") {
			t.Errorf("sentinel %q does not match expected format", sentinel)
		}
	}
}

func TestProtectRestore_RoundTrip(t *testing.T) {
	original := "Consider \\begin{equation}\nx = y + 1\n\\end{equation} and `code.Run()` together."
	regions := region.New().Detect(original)
	protectResult := placeholder.Protect(original, regions)

	// Simulate a translator that passes sentinels through untouched.
	restoreResult := placeholder.Restore(protectResult.Text, protectResult.Map)
	if restoreResult.Text != original {
		t.Errorf("round-trip failed:\n  original: %q\n  restored: %q", original, restoreResult.Text)
	}
	if restoreResult.MissingCount != 0 {
		t.Errorf("expected no missing sentinels, got %d", restoreResult.MissingCount)
	}
	if restoreResult.PreservationRate != 1.0 {
		t.Errorf("expected preservation rate 1.0, got %f", restoreResult.PreservationRate)
	}
}

func TestRestore_MissingSentinelLowersPreservationRate(t *testing.T) {
	original := "Formula $a+b=c$ here."
	regions := region.New().Detect(original)
	protectResult := placeholder.Protect(original, regions)

	// Simulate a translator dropping the sentinel entirely.
	droppedTranslation := "Formula here."
	restoreResult := placeholder.Restore(droppedTranslation, protectResult.Map)

	if restoreResult.MissingCount != 1 {
		t.Errorf("expected 1 missing sentinel, got %d", restoreResult.MissingCount)
	}
	if restoreResult.PreservationRate != 0.0 {
		t.Errorf("expected preservation rate 0.0, got %f", restoreResult.PreservationRate)
	}
}

func TestRestore_NoProtectedContentDefaultsToFullPreservation(t *testing.T) {
	m := placeholder.Protect("plain text", nil).Map
	restoreResult := placeholder.Restore("plain text translated", m)
	if restoreResult.PreservationRate != 1.0 {
		t.Errorf("expected 1.0 for empty map, got %f", restoreResult.PreservationRate)
	}
}

func TestContainsSentinelLiteral(t *testing.T) {
	if placeholder.ContainsSentinelLiteral("no sentinels here") {
		t.Error("expected false for plain text")
	}
	if !placeholder.ContainsSentinelLiteral("oops ⟪STEM_FORMULA_INLINE_deadbeef⟫ literal") {
		t.Error("expected true when sentinel prefix is present")
	}
}

func TestSentinelTagging_EnvironmentAndLanguage(t *testing.T) {
	text := "\\begin{align}\nx=y\n\\end{align}\nand ```python\nprint(1)\n```"
	regions := region.New().Detect(text)
	result := placeholder.Protect(text, regions)

	var sawAlign, sawPython bool
	for _, sentinel := range result.Map.Sentinels() {
		if strings.Contains(sentinel, "ALIGN") {
			sawAlign = true
		}
		if strings.Contains(sentinel, "PYTHON") {
			sawPython = true
		}
	}
	if !sawAlign {
		t.Errorf("expected an ALIGN-tagged sentinel, got %v", result.Map.Sentinels())
	}
	if !sawPython {
		t.Errorf("expected a PYTHON-tagged sentinel, got %v", result.Map.Sentinels())
	}
}
