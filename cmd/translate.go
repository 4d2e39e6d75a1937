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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
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

// inputFile, outputFile, sourceLang, targetLang, credentials, and projectID
// are declared in root.go as persistent flags shared across subcommands.
var (
	services     []string
	useArbiter   bool
	arbiterModel string
	arbiterURL   string

	ollamaURL        string
	ollamaModels     []string
	openrouterKey    string
	openrouterModels []string

	systranKey    string
	mymemoryEmail string

	dbPath     string
	noCache    bool
	maxRetries int

	useRefine    bool
	refinerModel string
	refinerURL   string

	fuzzyThreshold float64
	usePlaceholder bool
	chunkSize      int
	useGlossary    bool
	domain         string
	maxConcurrency int
	resumeJob      string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a document through the chunked pipeline",
	Long: `Translate a document using multiple services in parallel per chunk,
with translation-memory and chunk-cache lookups, quality validation,
bounded-concurrency dispatch with retry, checkpointing, and overlap-aware
merging of the translated chunks.

Available services:
  - google       Google Translate (requires credentials)
  - systran     Systran Translate (requires API key)
  - mymemory    MyMemory (free, 5000 chars/day)
  - ollama      Ollama LLM (self-hosted)
  - openrouter  OpenRouter LLM (requires API key)

Use multiple services: --services google,ollama,openrouter

Two-pass translation:
  --refine      Enable Stage 2 literary refinement pass

Pipeline options:
  --fuzzy-threshold  Translation-memory fuzzy match threshold (0 to disable)
  --placeholder      Protect math/code/chemical-formula regions during translation
  --chunk-size       Split large texts into chunks of N characters
  --glossary         Load terminology glossary from database
  --domain           Quality validator weighting profile (finance/literature/medical/technology/default)
  --concurrency      Max chunks translated concurrently (default 4)
  --resume           Resume a previously checkpointed job by ID`,
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
				fmt.Fprintf(os.Stderr, "Detected source language: %s\n", sourceLang)
			} else {
				sourceLang = "en"
			}
		}

		dbFile := dbPath
		if dbFile == "" {
			dbFile = filepath.Join(os.TempDir(), "peretran-nocache.db")
		}
		db, err := store.New(dbFile)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if !noCache {
			if cached, found, cacheErr := db.GetCachedTranslation(ctx, text, sourceLang, targetLang); cacheErr == nil && found {
				fmt.Fprintf(os.Stderr, "Using cached translation\n")
				return writeOutput(outputFile, cached, sourceLang, targetLang, true)
			}
			if fuzzyThreshold > 0 {
				if cached, found, cacheErr := db.FuzzyGetCachedTranslation(ctx, text, sourceLang, targetLang, fuzzyThreshold); cacheErr == nil && found {
					fmt.Fprintf(os.Stderr, "Using fuzzy-matched cached translation\n")
					return writeOutput(outputFile, cached, sourceLang, targetLang, true)
				}
			}
		}

		var glossaryTerms map[string]string
		if useGlossary {
			glossaryTerms, err = db.GetGlossaryTerms(ctx, sourceLang, targetLang)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load glossary: %v\n", err)
			} else if len(glossaryTerms) > 0 {
				fmt.Fprintf(os.Stderr, "Loaded %d glossary terms\n", len(glossaryTerms))
			}
		}

		jobID := resumeJob
		var checkpoint *store.CheckpointState
		if jobID != "" {
			checkpoint, err = db.LoadCheckpoint(ctx, jobID)
			if err != nil {
				return fmt.Errorf("failed to load checkpoint %s: %w", jobID, err)
			}
			if checkpoint == nil {
				return fmt.Errorf("no checkpoint found for job %s", jobID)
			}
			fmt.Fprintf(os.Stderr, "Resuming job %s (%.0f%% complete)\n", jobID, checkpoint.CompletionPercentage())
		} else {
			jobID = uuid.New().String()
		}

		effectiveMax := chunkSize
		if effectiveMax <= 0 {
			effectiveMax = len(text) + 1
		}

		var regions []region.Region
		if usePlaceholder {
			regions = region.New().Detect(text)
		}

		chunks := chunker.ChunkSTEM(text, effectiveMax, 200, regions)
		if len(chunks) > 1 {
			fmt.Fprintf(os.Stderr, "Splitting into %d chunks (max %d chars each)\n", len(chunks), effectiveMax)
		}

		if checkpoint == nil {
			checkpoint = &store.CheckpointState{
				JobID:             jobID,
				InputFile:         inputFile,
				OutputFile:        outputFile,
				TotalChunks:       len(chunks),
				CompletedChunkIDs: map[int]bool{},
				ResultsData:       map[int]json.RawMessage{},
			}
		}

		serviceList, err := buildServices(services, ollamaURL, openrouterKey, systranKey, mymemoryEmail, ollamaModels, openrouterModels)
		if err != nil {
			return err
		}

		provider := &multiServiceProvider{
			services: serviceList,
			store:    db,
			orchCfg: orchestrator.OrchestratorConfig{
				Timeout:     30 * time.Second,
				MinServices: 1,
				MaxAttempts: maxRetries,
			},
			useArbiter:   useArbiter,
			arbiterModel: arbiterModel,
			arbiterURL:   arbiterURL,
			useRefine:    useRefine,
			refinerModel: refinerModel,
			refinerURL:   refinerURL,
		}

		cfg := translator.ServiceConfig{Credentials: credentials, ProjectID: projectID}
		core := translatorcore.New(db, validator.New(), provider, cfg, nil)

		coreReq := translatorcore.Request{
			SourceLang:      sourceLang,
			TargetLang:      targetLang,
			Domain:          domain,
			Glossary:        glossaryTerms,
			UseChunkCache:   !noCache,
			UseTM:           !noCache,
			FuzzyThreshold:  fuzzyThreshold,
			IncludeChemical: usePlaceholder,
		}

		pending := make([]chunker.Chunk, 0, len(chunks))
		for _, c := range chunks {
			if checkpoint.CompletedChunkIDs[c.ID] {
				continue
			}
			pending = append(pending, c)
		}

		disp := dispatcher.New(dispatcher.Config{MaxConcurrency: maxConcurrency},
			func(ctx context.Context, c chunker.Chunk) (translatorcore.Result, error) {
				return core.TranslateChunk(ctx, c, coreReq)
			})

		results, stats := disp.Run(ctx, pending)
		fmt.Fprintf(os.Stderr, "Dispatch complete: %d/%d succeeded, %d retried\n", stats.Succeeded, stats.Total, stats.Retried)

		translations := make([]merger.ChunkTranslation, 0, len(chunks))
		for id, raw := range checkpoint.ResultsData {
			if !checkpoint.CompletedChunkIDs[id] {
				continue
			}
			var translated string
			if err := json.Unmarshal(raw, &translated); err != nil {
				continue
			}
			translations = append(translations, merger.ChunkTranslation{ChunkID: id, Translated: translated})
		}

		var failed int
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
			checkpoint.CompletedChunkIDs[r.Item.ID] = true
			if raw, marshalErr := json.Marshal(r.Result.TranslatedText); marshalErr == nil {
				checkpoint.ResultsData[r.Item.ID] = raw
			}
		}

		if err := db.SaveCheckpoint(ctx, checkpoint); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save checkpoint: %v\n", err)
		}

		if failed > 0 {
			return fmt.Errorf("%d of %d chunks failed to translate; rerun with --resume %s to retry the rest", failed, len(chunks), jobID)
		}

		finalText := merger.Merge(translations, sourceLang, targetLang)

		if err := writeTranslatedOutput(outputFile, finalText); err != nil {
			return err
		}

		if !noCache {
			if err := db.SaveToMemory(ctx, text, sourceLang, targetLang, finalText, finalText, provider.Name()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save to translation memory: %v\n", err)
			}
		}
		if err := db.DeleteCheckpoint(ctx, jobID); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to clean up checkpoint: %v\n", err)
		}

		fmt.Printf("Successfully translated %s to %s (job %s)\n", sourceLang, targetLang, jobID)
		return nil
	},
}

// writeTranslatedOutput dispatches to internal/writer for docx/pdf output,
// otherwise writes plain text directly.
func writeTranslatedOutput(outputFile, text string) error {
	if dir := filepath.Dir(outputFile); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

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

	if _, err := b.AddBatch(0, []writer.BatchResult{{ChunkID: 0, Translated: text}}); err != nil {
		return fmt.Errorf("failed to stage output: %w", err)
	}
	if _, err := b.MergeAll(); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// writeOutput writes the translated text to outputFile and prints a
// summary; used by the whole-document cache fast path.
func writeOutput(outputFile, text, sourceLang, targetLang string, fromCache bool) error {
	if err := writeTranslatedOutput(outputFile, text); err != nil {
		return err
	}
	if fromCache {
		fmt.Printf("Successfully translated %s to %s (from cache)\n", sourceLang, targetLang)
	} else {
		fmt.Printf("Successfully translated %s to %s\n", sourceLang, targetLang)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(translateCmd)

	translateCmd.Flags().StringSliceVar(&services, "services", []string{"google"}, "Translation services to use (comma-separated)")
	translateCmd.Flags().BoolVar(&useArbiter, "arbiter", false, "Use LLM arbiter to select best translation")
	translateCmd.Flags().StringVar(&arbiterModel, "arbiter-model", "llama3.2", "Arbiter model name")
	translateCmd.Flags().StringVar(&arbiterURL, "arbiter-url", "http://localhost:11434", "Arbiter Ollama URL")

	translateCmd.Flags().BoolVar(&useRefine, "refine", false, "Enable Stage 2 literary refinement (two-pass translation)")
	translateCmd.Flags().StringVar(&refinerModel, "refiner-model", "llama3.2", "Refiner model name")
	translateCmd.Flags().StringVar(&refinerURL, "refiner-url", "http://localhost:11434", "Refiner Ollama URL")

	translateCmd.Flags().StringVar(&ollamaURL, "ollama-url", "http://localhost:11434", "Ollama base URL")
	translateCmd.Flags().StringSliceVar(&ollamaModels, "ollama-models", nil, "Ollama models to rotate (default list used if empty)")
	translateCmd.Flags().StringVar(&openrouterKey, "openrouter-key", "", "OpenRouter API key")
	translateCmd.Flags().StringSliceVar(&openrouterModels, "openrouter-models", nil, "OpenRouter models to rotate (default list used if empty)")
	translateCmd.Flags().StringVar(&systranKey, "systran-key", "", "Systran API key")
	translateCmd.Flags().StringVar(&mymemoryEmail, "mymemory-email", "", "MyMemory email (for higher limits)")

	translateCmd.Flags().StringVar(&dbPath, "db", "./data/peretran.db", "Database path for translation memory")
	translateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable translation memory cache")
	translateCmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Total attempts per service including the first (1 = no retries)")

	translateCmd.Flags().Float64Var(&fuzzyThreshold, "fuzzy-threshold", 0, "Fuzzy cache similarity threshold (0 to disable, e.g. 0.85)")
	translateCmd.Flags().BoolVar(&usePlaceholder, "placeholder", false, "Protect math/code/chemical-formula regions with placeholders during translation")
	translateCmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Split input into chunks of N characters (0 = no chunking)")
	translateCmd.Flags().BoolVar(&useGlossary, "glossary", false, "Load terminology glossary from database for LLM services")
	translateCmd.Flags().StringVar(&domain, "domain", "default", "Quality validator domain profile (finance/literature/medical/technology/default)")
	translateCmd.Flags().IntVar(&maxConcurrency, "concurrency", 4, "Max chunks translated concurrently")
	translateCmd.Flags().StringVar(&resumeJob, "resume", "", "Resume a previously checkpointed job by ID")
}
