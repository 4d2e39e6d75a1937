package writer

import (
	"fmt"
	"os"

	docx "github.com/fumiama/go-docx"
)

// DocxBuilder accumulates batches as staged text (see writer.go's package
// doc) and builds one real DOCX with heading-aware styling at MergeAll
// time, grounded on incremental_builder.py's IncrementalDocxBuilder
// (FIX-005 smart formatting: chapter/section heading detection).
type DocxBuilder struct {
	base base
}

func (b *DocxBuilder) Format() Format  { return FormatDOCX }
func (b *DocxBuilder) BatchCount() int { return b.base.BatchCount() }
func (b *DocxBuilder) Cleanup() error  { return b.base.Cleanup() }

func (b *DocxBuilder) AddBatch(batchIdx int, results []BatchResult) (string, error) {
	path, err := stageBatch(&b.base, batchIdx, results)
	if err != nil {
		return "", fmt.Errorf("docx batch %d: %w", batchIdx, err)
	}
	return path, nil
}

func (b *DocxBuilder) MergeAll() (string, error) {
	defer b.base.Cleanup()

	content, err := readAllBatches(&b.base)
	if err != nil {
		return "", fmt.Errorf("merge docx batches: %w", err)
	}

	doc := docx.New().WithDefaultTheme()

	for _, para := range splitParagraphs(content) {
		p := doc.AddParagraph()
		run := p.AddText(para)
		switch paragraphLevel(para) {
		case 1:
			run.Size("36").Bold()
		case 2:
			run.Size("28").Bold()
		default:
			run.Size("22")
		}
	}

	f, err := os.Create(b.base.outputPath)
	if err != nil {
		return "", fmt.Errorf("create final docx: %w", err)
	}
	defer f.Close()

	if _, err := doc.WriteTo(f); err != nil {
		return "", fmt.Errorf("write final docx: %w", err)
	}

	if err := b.base.Cleanup(); err != nil {
		return "", err
	}
	return b.base.outputPath, nil
}
