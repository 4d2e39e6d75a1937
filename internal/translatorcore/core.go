// Package translatorcore orchestrates a single chunk's journey from raw
// text to validated, cached translation: translation-memory lookup (exact,
// then fuzzy), chunk-cache lookup, prompt construction, provider dispatch,
// placeholder restoration and quality validation, then cache/TM write-back.
//
// Grounded on original_source/core/translator.py's translate_chunk
// sequence and the teacher's cmd/translate.go + internal/translator/
// openrouter.go (buildOpenRouterSystemPrompt, ---START---/---END--- style
// markers folded into Instructions), generalized from "per-service
// fan-out" to "one chunk through TM, cache, provider, validator".
package translatorcore

import (
	"context"
	"fmt"

	"github.com/valpere/peretran/internal/chunker"
	"github.com/valpere/peretran/internal/pipelineerr"
	"github.com/valpere/peretran/internal/placeholder"
	"github.com/valpere/peretran/internal/region"
	"github.com/valpere/peretran/internal/store"
	"github.com/valpere/peretran/internal/translator"
	"github.com/valpere/peretran/internal/validator"
)

// MinCacheQuality is the default quality floor below which a translation is
// not written to the chunk cache or translation memory (spec §4.7 step 7).
const MinCacheQuality = 0.7

// MinRetryQuality is the floor below which a result is considered a retry
// candidate rather than an accepted-but-uncached translation (spec §4.7
// step 6). Scores in [MinRetryQuality, MinCacheQuality) are returned as
// final results; they are simply never written back to the cache/TM.
const MinRetryQuality = 0.5

// Request carries the per-job parameters a Core needs to translate one
// chunk; it is shared across every chunk in a job and does not vary per
// call.
type Request struct {
	SourceLang string
	TargetLang string
	Domain     string
	Mode       string // cache-key namespace, e.g. "stem" vs "plain"

	Glossary map[string]string

	UseChunkCache   bool
	UseTM           bool
	FuzzyThreshold  float64
	MinCacheQuality float64

	IncludeChemical bool
}

func (r Request) withDefaults() Request {
	if r.Mode == "" {
		r.Mode = "default"
	}
	if r.Domain == "" {
		r.Domain = "default"
	}
	if r.FuzzyThreshold <= 0 {
		r.FuzzyThreshold = 0.75
	}
	if r.MinCacheQuality <= 0 {
		r.MinCacheQuality = MinCacheQuality
	}
	return r
}

// Result is one chunk's outcome, matching spec §3's Translation Result.
type Result struct {
	ChunkID          int
	SourceText       string
	TranslatedText   string
	Quality          validator.QualityResult
	FromChunkCache   bool
	FromExactTM      bool
	FuzzyTMHintUsed  bool
	ServiceName      string
	OverlapCharCount int
	FormulaCount     int
	CodeCount        int
	MissingSentinels []string
	PreservationRate float64
}

// Core wires the lookup cache, quality validator and a translation
// provider into the single-chunk contract described above.
type Core struct {
	Store     *store.Store
	Validator *validator.Validator
	Service   translator.TranslationService
	SvcConfig translator.ServiceConfig
	Detector  *region.Detector
}

// New constructs a Core. det may be nil, in which case region.New()'s
// default detector (chemical-formula detection enabled) is used.
func New(st *store.Store, val *validator.Validator, svc translator.TranslationService, cfg translator.ServiceConfig, det *region.Detector) *Core {
	if det == nil {
		det = region.New()
	}
	return &Core{Store: st, Validator: val, Service: svc, SvcConfig: cfg, Detector: det}
}

// TranslateChunk runs one chunk through the lookup-then-prompt-then-
// provider-then-validate sequence. Lookups are consulted in the priority
// order spec §4.4 documents: exact TM match first (auto-accept), fuzzy TM
// match second (a prompt hint, not a substitute for translation), chunk
// cache third, and only then the provider. A low-quality result is
// returned as a *pipelineerr.Error tagged KindLowQuality so a
// dispatcher.Dispatcher retries it (picking a fresh provider model on the
// next attempt); that only happens below MinRetryQuality — scores between
// MinRetryQuality and MinCacheQuality are accepted as final but skip the
// cache/TM write-back.
func (c *Core) TranslateChunk(ctx context.Context, chunk chunker.Chunk, req Request) (Result, error) {
	req = req.withDefaults()

	regions := c.Detector.Detect(chunk.Text)
	protected := placeholder.Protect(chunk.Text, regions)

	key := store.ChunkCacheKey(chunk.Text, req.SourceLang, req.TargetLang, req.Mode, req.Domain)

	var fuzzyHint string
	var fromExactTM bool
	var exactTranslated string

	if req.UseTM {
		exact, err := c.Store.GetExactMatch(ctx, protected.Text, req.SourceLang, req.TargetLang)
		if err != nil {
			return Result{}, pipelineerr.Wrap(pipelineerr.KindCheckpointWrite, "translation memory exact lookup failed", err)
		}
		if exact != nil {
			fromExactTM = true
			exactTranslated = exact.Segment.TargetText
		} else {
			matches, err := c.Store.GetFuzzyMatches(ctx, protected.Text, req.SourceLang, req.TargetLang, req.FuzzyThreshold, 3, req.Domain)
			if err == nil && len(matches) > 0 {
				fuzzyHint = fmt.Sprintf("A similar segment was previously translated as %q — stay consistent with its terminology and phrasing where applicable.", matches[0].Segment.TargetText)
			}
		}
	}

	if !fromExactTM && req.UseChunkCache {
		cached, hit, err := c.Store.GetChunkCache(ctx, key)
		if err != nil {
			return Result{}, pipelineerr.Wrap(pipelineerr.KindCheckpointWrite, "chunk cache lookup failed", err)
		}
		if hit {
			return Result{
				ChunkID:          chunk.ID,
				SourceText:       chunk.Text,
				TranslatedText:   cached,
				FromChunkCache:   true,
				OverlapCharCount: chunk.OverlapCharCount,
				FormulaCount:     chunk.FormulaCount,
				CodeCount:        chunk.CodeCount,
				PreservationRate: 1.0,
			}, nil
		}
	}

	var translatedText, serviceName string

	if fromExactTM {
		translatedText = exactTranslated
		serviceName = "translation_memory"
	} else {
		instructions := placeholderInstructions(protected)
		if fuzzyHint != "" {
			instructions = instructions + " " + fuzzyHint
		}

		svcReq := translator.TranslateRequest{
			Text:            protected.Text,
			SourceLang:      req.SourceLang,
			TargetLang:      req.TargetLang,
			PreviousContext: chunk.ContextBefore,
			GlossaryTerms:   req.Glossary,
			Instructions:    instructions,
		}

		svcResult, err := c.Service.Translate(ctx, c.SvcConfig, svcReq)
		if err != nil {
			return Result{}, pipelineerr.Wrap(pipelineerr.KindTransport, "provider translate failed", err)
		}
		translatedText = svcResult.TranslatedText
		serviceName = svcResult.ServiceName
	}

	restored := placeholder.Restore(translatedText, protected.Map)

	quality := c.Validator.Validate(chunk.Text, restored.Text, req.Domain, req.TargetLang, req.Glossary)
	if restored.MissingCount > 0 {
		quality.Warnings = append(quality.Warnings, fmt.Sprintf("%d protected region(s) lost in translation", restored.MissingCount))
	}

	result := Result{
		ChunkID:          chunk.ID,
		SourceText:       chunk.Text,
		TranslatedText:   restored.Text,
		Quality:          quality,
		FromExactTM:      fromExactTM,
		FuzzyTMHintUsed:  fuzzyHint != "",
		ServiceName:      serviceName,
		OverlapCharCount: chunk.OverlapCharCount,
		FormulaCount:     chunk.FormulaCount,
		CodeCount:        chunk.CodeCount,
		MissingSentinels: restored.ResidualSentinels,
		PreservationRate: restored.PreservationRate,
	}

	if quality.QualityScore < MinRetryQuality {
		return result, pipelineerr.New(pipelineerr.KindLowQuality,
			fmt.Sprintf("quality score %.2f below retry floor %.2f", quality.QualityScore, MinRetryQuality))
	}

	if !fromExactTM && quality.QualityScore >= req.MinCacheQuality {
		if req.UseChunkCache {
			if err := c.Store.PutChunkCache(ctx, key, restored.Text); err != nil {
				return result, pipelineerr.Wrap(pipelineerr.KindCheckpointWrite, "chunk cache write failed", err)
			}
		}
		if req.UseTM {
			if err := c.Store.AddSegment(ctx, protected.Text, translatedText, req.SourceLang, req.TargetLang, req.Domain, quality.QualityScore); err != nil {
				return result, pipelineerr.Wrap(pipelineerr.KindCheckpointWrite, "translation memory write failed", err)
			}
		}
	}

	return result, nil
}

// placeholderInstructions tells the provider to leave protected-region
// sentinels untouched, only when the chunk actually contains any.
func placeholderInstructions(p placeholder.Result) string {
	if p.Map.Len() == 0 {
		return ""
	}
	return "The text contains placeholder tokens of the form ⟪STEM_..._xxxxxxxx⟫. " +
		"Copy each one verbatim into your translation, unchanged and in a grammatically natural position. Do not translate or alter them."
}
