package region

import "testing"

func TestDetectFormulaDollar(t *testing.T) {
	text := "The equation $E=mc^2$ is famous."
	regions := New().Detect(text)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d: %+v", len(regions), regions)
	}
	if got := regions[0].Content(text); got != "$E=mc^2$" {
		t.Errorf("content = %q, want %q", got, "$E=mc^2$")
	}
	if regions[0].Kind != FormulaInline {
		t.Errorf("kind = %v, want FormulaInline", regions[0].Kind)
	}
}

func TestDetectDisplayDollarNotSplitByInline(t *testing.T) {
	text := "Consider $$x^2 + y^2 = z^2$$ carefully."
	regions := New().Detect(text)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d: %+v", len(regions), regions)
	}
	if regions[0].Kind != FormulaBlock {
		t.Errorf("kind = %v, want FormulaBlock", regions[0].Kind)
	}
}

func TestDetectLatexEnvironment(t *testing.T) {
	text := "Before\n\\begin{equation}\nx = y\n\\end{equation}\nAfter"
	regions := New().Detect(text)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d: %+v", len(regions), regions)
	}
	if regions[0].Environment != "equation" {
		t.Errorf("environment = %q, want equation", regions[0].Environment)
	}
}

func TestDetectFencedCode(t *testing.T) {
	text := "Text before\n```go\nfunc main() {}\n```\nText after"
	regions := New().Detect(text)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d: %+v", len(regions), regions)
	}
	if regions[0].Kind != CodeBlock {
		t.Errorf("kind = %v, want CodeBlock", regions[0].Kind)
	}
	if regions[0].Language != "go" {
		t.Errorf("language = %q, want go", regions[0].Language)
	}
}

func TestDetectInlineCodeExcludesAbbreviations(t *testing.T) {
	text := "e.g. this is not code, but `myFunc()` is."
	regions := New().Detect(text)
	if len(regions) != 1 {
		t.Fatalf("expected 1 region, got %d: %+v", len(regions), regions)
	}
	if got := regions[0].Content(text); got != "`myFunc()`" {
		t.Errorf("content = %q", got)
	}
}

func TestDetectNeverFailsOnAmbiguousInput(t *testing.T) {
	inputs := []string{"", "$", "$$", "\\begin{equation}", "```", "plain text with no markers"}
	for _, in := range inputs {
		regions := New().Detect(in)
		_ = regions // must not panic
	}
}

func TestOverlapResolutionPrefersEnvironmentOverDollar(t *testing.T) {
	text := "\\begin{align}\n$a=b$\n\\end{align}"
	regions := New().Detect(text)
	if len(regions) != 1 {
		t.Fatalf("expected the environment to absorb the inline dollar span, got %+v", regions)
	}
	if regions[0].Kind != FormulaBlock || regions[0].Environment != "align" {
		t.Errorf("expected align environment region, got %+v", regions[0])
	}
}
