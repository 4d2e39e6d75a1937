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

	"github.com/valpere/peretran/internal/arbiter"
	"github.com/valpere/peretran/internal/orchestrator"
	"github.com/valpere/peretran/internal/refiner"
	"github.com/valpere/peretran/internal/store"
	"github.com/valpere/peretran/internal/translator"
)

// stage1CacheService identifies the fan-out-plus-arbiter stage in the
// stage1_cache table, independent of which underlying service the
// arbiter ends up selecting for a given call.
const stage1CacheService = "multi"

// multiServiceProvider adapts the fan-out-then-arbiter-then-refiner pipeline
// (stage 1 parallel translation, optional LLM arbiter selection, optional
// stage 2 literary refinement) behind the single-provider
// translator.TranslationService interface, so it can be dispatched as one
// "service" by internal/translatorcore and internal/dispatcher. Grounded on
// the teacher's original cmd/translate.go RunE body, which ran this same
// sequence inline per chunk before the pipeline was generalized around
// internal/translatorcore.
type multiServiceProvider struct {
	services []translator.TranslationService
	orchCfg  orchestrator.OrchestratorConfig

	// store, when non-nil, caches the pre-refinement draft produced by the
	// fan-out+arbiter stage in stage1_cache, so a retried or resumed chunk
	// does not re-run every configured service just to reach the refiner
	// again. Refinement (which depends on --refiner-model/--refiner-url, not
	// on which services were fanned out to) still always runs fresh.
	store *store.Store

	useArbiter   bool
	arbiterModel string
	arbiterURL   string

	useRefine    bool
	refinerModel string
	refinerURL   string
}

func (p *multiServiceProvider) Name() string { return "multi" }

func (p *multiServiceProvider) Translate(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (*translator.ServiceResult, error) {
	draftText, selectedService, confidence, err := p.draft(ctx, cfg, req)
	if err != nil {
		return nil, err
	}

	finalText := draftText
	if p.useRefine {
		ref := refiner.NewOllamaRefiner(p.refinerModel, p.refinerURL)
		refined, err := ref.Refine(ctx, req.SourceLang, req.TargetLang, req.Text, draftText)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Refiner failed: %v, using draft\n", err)
		} else {
			finalText = refined
		}
	}

	return &translator.ServiceResult{
		ServiceName:    selectedService,
		TranslatedText: finalText,
		Confidence:     confidence,
	}, nil
}

// draft returns the fan-out+arbiter stage's composite translation, serving
// it from stage1_cache when a prior call already produced one for this
// exact (text, language pair) rather than re-querying every service.
func (p *multiServiceProvider) draft(ctx context.Context, cfg translator.ServiceConfig, req translator.TranslateRequest) (text, serviceName string, confidence float64, err error) {
	if p.store != nil {
		if cached, hit, cacheErr := p.store.GetStage1Draft(ctx, req.Text, req.SourceLang, req.TargetLang, stage1CacheService); cacheErr == nil && hit {
			return cached, stage1CacheService, 1.0, nil
		}
	}

	orch := orchestrator.New(p.services, p.orchCfg)
	result := orch.Execute(ctx, cfg, req)
	if result.Succeeded == 0 {
		if len(result.Errors) > 0 {
			return "", "", 0, fmt.Errorf("all translation services failed: %w", result.Errors[0])
		}
		return "", "", 0, fmt.Errorf("all translation services failed")
	}

	draftText := result.Results[0].TranslatedText
	selectedService := result.Results[0].ServiceName
	draftConfidence := result.Results[0].Confidence

	if p.useArbiter && len(result.Results) > 1 {
		arb := arbiter.NewOllamaArbiter(p.arbiterModel, p.arbiterURL)
		evalResult, evalErr := arb.Evaluate(ctx, req.Text, req.SourceLang, req.TargetLang, result.Results)
		if evalErr != nil {
			fmt.Fprintf(os.Stderr, "Arbiter failed: %v, using first result\n", evalErr)
		} else {
			draftText = evalResult.CompositeText
			selectedService = evalResult.SelectedService
			fmt.Fprintf(os.Stderr, "Arbiter selected: %s\n", evalResult.SelectedService)
		}
	}

	if p.store != nil {
		if saveErr := p.store.SaveToStage1Cache(ctx, req.Text, req.SourceLang, req.TargetLang, draftText, stage1CacheService); saveErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save stage1 draft: %v\n", saveErr)
		}
	}

	return draftText, selectedService, draftConfidence, nil
}

func (p *multiServiceProvider) IsAvailable(ctx context.Context) error {
	if len(p.services) == 0 {
		return fmt.Errorf("no translation services configured")
	}
	return nil
}

func (p *multiServiceProvider) SupportedLanguages(ctx context.Context) ([]string, error) {
	if len(p.services) == 0 {
		return nil, fmt.Errorf("no translation services configured")
	}
	return p.services[0].SupportedLanguages(ctx)
}
