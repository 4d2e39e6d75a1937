/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/peretran/internal/chunker"
	"github.com/valpere/peretran/internal/detector"
	"github.com/valpere/peretran/internal/dispatcher"
	"github.com/valpere/peretran/internal/markdown"
	"github.com/valpere/peretran/internal/merger"
	"github.com/valpere/peretran/internal/orchestrator"
	"github.com/valpere/peretran/internal/region"
	"github.com/valpere/peretran/internal/store"
	"github.com/valpere/peretran/internal/translator"
	"github.com/valpere/peretran/internal/translatorcore"
	"github.com/valpere/peretran/internal/validator"
	"github.com/valpere/peretran/internal/writer"
)

var (
	batchServices     []string
	batchDBPath       string
	batchChunkSize    int
	batchGroupSize    int
	batchConcurrency  int
	batchPlaceholders bool
)

// batchCmd translates a document the same way translateCmd does, but
// writes output progressively batch-by-batch through internal/writer
// instead of holding the fully merged document in memory before the
// single final write, per the streaming batch writer design (the
// original's incremental_builder.py/incremental_pdf_builder.py).
var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Translate a document with streaming, batch-by-batch output",
	Long: `Like translate, but groups chunks into batches and streams each
batch's merged text into the output builder as soon as it is ready,
instead of accumulating the whole translated document in memory. Useful
for very large documents being rendered to DOCX or PDF.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if inputFile == outputFile {
			return fmt.Errorf("input file and output file cannot be the same")
		}

		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return fmt.Errorf("failed to read input file: %w", err)
		}
		text := string(raw)
		if ext := strings.ToLower(filepath.Ext(inputFile)); ext == ".md" || ext == ".markdown" {
			text = markdown.ToPlainText(raw)
		}

		ctx := context.Background()

		if sourceLang == "auto" || sourceLang == "" {
			det := detector.New()
			if detected, ok := det.DetectISO(text); ok {
				sourceLang = detected
			} else {
				sourceLang = "en"
			}
		}

		dbFile := batchDBPath
		if dbFile == "" {
			dbFile = filepath.Join(os.TempDir(), "peretran-nocache.db")
		}
		db, err := store.New(dbFile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		var regions []region.Region
		if batchPlaceholders {
			regions = region.New().Detect(text)
		}

		effectiveMax := batchChunkSize
		if effectiveMax <= 0 {
			effectiveMax = 2000
		}
		chunks := chunker.ChunkSTEM(text, effectiveMax, 200, regions)
		fmt.Fprintf(os.Stderr, "Translating %d chunks in batches of %d\n", len(chunks), batchGroupSize)

		serviceList, err := buildServices(batchServices, ollamaURL, openrouterKey, systranKey, mymemoryEmail, ollamaModels, openrouterModels)
		if err != nil {
			return err
		}
		provider := &multiServiceProvider{
			services: serviceList,
			store:    db,
			orchCfg: orchestrator.OrchestratorConfig{
				Timeout:     30 * time.Second,
				MinServices: 1,
				MaxAttempts: 3,
			},
		}

		cfg := translator.ServiceConfig{Credentials: credentials, ProjectID: projectID}
		core := translatorcore.New(db, validator.New(), provider, cfg, nil)
		coreReq := translatorcore.Request{
			SourceLang:    sourceLang,
			TargetLang:    targetLang,
			UseChunkCache: true,
			UseTM:         true,
		}

		disp := dispatcher.New(dispatcher.Config{MaxConcurrency: batchConcurrency},
			func(ctx context.Context, c chunker.Chunk) (translatorcore.Result, error) {
				return core.TranslateChunk(ctx, c, coreReq)
			})

		format := writer.FormatTXT
		switch strings.ToLower(filepath.Ext(outputFile)) {
		case ".docx":
			format = writer.FormatDOCX
		case ".pdf":
			format = writer.FormatPDF
		}
		b, err := writer.New(outputFile, format)
		if err != nil {
			return fmt.Errorf("failed to create output writer: %w", err)
		}
		defer b.Cleanup()

		groupSize := batchGroupSize
		if groupSize <= 0 {
			groupSize = 10
		}

		var failed int
		for start := 0; start < len(chunks); start += groupSize {
			end := start + groupSize
			if end > len(chunks) {
				end = len(chunks)
			}
			group := chunks[start:end]

			results, stats := disp.Run(ctx, group)
			fmt.Fprintf(os.Stderr, "Batch %d: %d/%d succeeded\n", start/groupSize, stats.Succeeded, stats.Total)

			translations := make([]merger.ChunkTranslation, 0, len(group))
			for _, r := range results {
				if r.Status != dispatcher.StatusCompleted {
					failed++
					fmt.Fprintf(os.Stderr, "Chunk %d failed: %v\n", r.Item.ID, r.Err)
					continue
				}
				translations = append(translations, merger.ChunkTranslation{
					ChunkID:          r.Item.ID,
					Translated:       r.Result.TranslatedText,
					OverlapCharCount: r.Result.OverlapCharCount,
				})
			}
			if len(translations) == 0 {
				continue
			}

			merged := merger.Merge(translations, sourceLang, targetLang)
			batchResults := []writer.BatchResult{{ChunkID: start, Translated: merged}}
			if _, err := b.AddBatch(start/groupSize, batchResults); err != nil {
				return fmt.Errorf("failed to stage batch %d: %w", start/groupSize, err)
			}
		}

		if failed > 0 {
			fmt.Fprintf(os.Stderr, "%d of %d chunks failed to translate\n", failed, len(chunks))
		}

		if dir := filepath.Dir(outputFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}

		finalPath, err := b.MergeAll()
		if err != nil {
			return fmt.Errorf("failed to write final output: %w", err)
		}

		fmt.Printf("Wrote streamed translation to %s\n", finalPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringSliceVar(&batchServices, "services", []string{"google"}, "Translation services to use (comma-separated)")
	batchCmd.Flags().StringVar(&batchDBPath, "db", "./data/peretran.db", "Database path for translation memory")
	batchCmd.Flags().IntVar(&batchChunkSize, "chunk-size", 2000, "Max characters per chunk")
	batchCmd.Flags().IntVar(&batchGroupSize, "batch-size", 10, "Chunks per streamed output batch")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 4, "Max chunks translated concurrently per batch")
	batchCmd.Flags().BoolVar(&batchPlaceholders, "placeholder", false, "Protect math/code/chemical-formula regions with placeholders")
}
