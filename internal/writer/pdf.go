package writer

import (
	"fmt"
	"os"

	"github.com/jung-kurt/gofpdf"
)

// PdfBuilder accumulates batches as staged text and builds one real PDF
// with heading-aware styling at MergeAll time, grounded on
// incremental_pdf_builder.py's IncrementalPdfBuilder.
type PdfBuilder struct {
	base base
}

func (b *PdfBuilder) Format() Format  { return FormatPDF }
func (b *PdfBuilder) BatchCount() int { return b.base.BatchCount() }
func (b *PdfBuilder) Cleanup() error  { return b.base.Cleanup() }

func (b *PdfBuilder) AddBatch(batchIdx int, results []BatchResult) (string, error) {
	path, err := stageBatch(&b.base, batchIdx, results)
	if err != nil {
		return "", fmt.Errorf("pdf batch %d: %w", batchIdx, err)
	}
	return path, nil
}

func (b *PdfBuilder) MergeAll() (string, error) {
	defer b.base.Cleanup()

	if len(b.base.batchFiles) == 0 {
		return "", fmt.Errorf("no batch files to merge")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)

	for _, batchFile := range b.base.batchFiles {
		content, err := os.ReadFile(batchFile)
		if err != nil {
			return "", fmt.Errorf("read pdf batch %s: %w", batchFile, err)
		}

		pdf.AddPage()
		for _, para := range splitParagraphs(string(content)) {
			switch paragraphLevel(para) {
			case 1:
				pdf.SetFont("Arial", "B", 18)
			case 2:
				pdf.SetFont("Arial", "B", 14)
			default:
				pdf.SetFont("Arial", "", 11)
			}
			pdf.MultiCell(0, 7, para, "", "", false)
			pdf.Ln(4)
		}
	}

	if err := pdf.OutputFileAndClose(b.base.outputPath); err != nil {
		return "", fmt.Errorf("write final pdf: %w", err)
	}

	if err := b.base.Cleanup(); err != nil {
		return "", err
	}
	return b.base.outputPath, nil
}
