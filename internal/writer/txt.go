package writer

import (
	"fmt"
	"os"
	"strings"
)

// TxtBuilder streams translated batches straight to a plain text file,
// grounded on incremental_txt_builder.py's IncrementalTxtBuilder.
type TxtBuilder struct {
	base base
}

func (b *TxtBuilder) Format() Format  { return FormatTXT }
func (b *TxtBuilder) BatchCount() int { return b.base.BatchCount() }
func (b *TxtBuilder) Cleanup() error  { return b.base.Cleanup() }

func (b *TxtBuilder) AddBatch(batchIdx int, results []BatchResult) (string, error) {
	path, err := stageBatch(&b.base, batchIdx, results)
	if err != nil {
		return "", fmt.Errorf("txt batch %d: %w", batchIdx, err)
	}
	if err := verifyTxt(path); err != nil {
		return "", err
	}
	return path, nil
}

func (b *TxtBuilder) MergeAll() (string, error) {
	defer b.base.Cleanup()

	content, err := readAllBatches(&b.base)
	if err != nil {
		return "", fmt.Errorf("merge txt batches: %w", err)
	}
	if err := os.WriteFile(b.base.outputPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write final txt: %w", err)
	}
	if err := verifyTxt(b.base.outputPath); err != nil {
		return "", err
	}
	if err := b.base.Cleanup(); err != nil {
		return "", err
	}
	return b.base.outputPath, nil
}

// verifyTxt rejects empty or unreadable text files, grounded on
// incremental_txt_builder.py's _verify_txt.
func verifyTxt(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("verify txt %s: %w", path, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return fmt.Errorf("txt file has no content: %s", path)
	}
	return nil
}
