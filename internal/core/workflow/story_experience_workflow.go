// Copyright 2025 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package workflow defines the high-level business logic orchestrations,
// combining various commands into coherent pipelines. This file implements
// the story experience pipeline: validation, guarded text generation,
// concurrent asset generation with placeholder fallback, assembly, durable
// persistence, and review handoff.
package workflow

import (
	goctx "context"
	"errors"
	"fmt"
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/commands"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/guard"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// Dependencies collects the external collaborators the pipeline generates
// against. Production wiring fills it from ServiceClients; tests substitute
// fakes for any subset.
type Dependencies struct {
	TextBackend     cloud.TextGenerator
	ImageBackend    cloud.ImageGenerator
	AudioBackend    cloud.SpeechSynthesizer
	AssetStore      cloud.AssetStore
	Writer          commands.ExperienceWriter
	ReviewPublisher cloud.ReviewPublisher
}

// StoryExperienceWorkflow orchestrates one full story generation run. It is
// structured as a Chain of Responsibility whose commands communicate through
// a shared context, with the narration and illustration steps fanned out
// concurrently between chunking and assembly.
type StoryExperienceWorkflow struct {
	cor.BaseCommand
	config          *cloud.Config
	deps            Dependencies
	contentGuard    *guard.Guard
	storyTemplate   *template.Template
	sceneTemplate   *template.Template
	textPolicy      cloud.RetryPolicy
	imagePolicy     cloud.RetryPolicy
	audioPolicy     cloud.RetryPolicy
	numberOfWorkers int
	chain           cor.Chain
}

// Execute runs the entire pipeline by invoking the underlying chain.
func (w *StoryExperienceWorkflow) Execute(context cor.Context) {
	w.chain.Execute(context)
}

// initializeChain builds the command sequence. Each command reads its input
// from the context and leaves its output for the next one.
func (w *StoryExperienceWorkflow) initializeChain() {
	out := cor.NewBaseChain(w.GetName())

	// Normalize raw input (JSON from Pub/Sub or a typed request from the
	// API) into a GenerationRequest.
	out.AddCommand(commands.NewStoryRequestReader("read-generation-request"))

	// Reject out-of-bounds requests before any backend spend and mint the
	// session ID that names this run's assets.
	out.AddCommand(commands.NewRequestValidator("validate-generation-request"))

	// First guardrail checkpoint: the raw prompt. A block here costs zero
	// backend calls.
	out.AddCommand(commands.NewContentGuardCheck("guard-prompt", w.contentGuard, commands.CheckpointPrompt))

	// Generate the story text. This is the only step whose failure is fatal
	// after validation, because narrative text has no safe placeholder.
	out.AddCommand(commands.NewStoryCreator("create-story-draft", w.deps.TextBackend, w.storyTemplate, w.textPolicy))

	// Second guardrail checkpoint: the generated draft. A blocked draft is
	// discarded whole.
	out.AddCommand(commands.NewContentGuardCheck("guard-story-draft", w.contentGuard, commands.CheckpointDraft))

	// Deterministically split the accepted draft into one chunk per scene.
	out.AddCommand(commands.NewSceneChunker("chunk-story-scenes"))

	// Fan out: narration and illustration have no dependency on each other,
	// so they run concurrently and both settle (real bytes or placeholder)
	// before the chain continues.
	narration := commands.NewNarrationCreator("create-narration", w.deps.AudioBackend, w.audioPolicy)
	illustration := commands.NewSceneIllustrator("illustrate-scenes", w.deps.ImageBackend, w.sceneTemplate, w.imagePolicy, w.numberOfWorkers)
	out.AddCommand(commands.NewAssetFanOut("generate-assets", narration, illustration))

	// Upload every asset, falling back to local paths when the store is
	// unavailable.
	out.AddCommand(commands.NewAssetSaver("save-assets", w.deps.AssetStore, w.config.Storage.LocalFallbackDir))

	// Gather everything into the final experience record.
	out.AddCommand(commands.NewExperienceAssembler("assemble-experience"))

	// Durable insert; failure is absorbed and recorded on the experience.
	out.AddCommand(commands.NewExperiencePersist("persist-experience", w.deps.Writer))

	// Hand flagged or degraded runs to the review queue and close out.
	out.AddCommand(commands.NewReviewNotifier("notify-review", w.deps.ReviewPublisher))

	w.chain = out
}

// Run executes the pipeline for one request and maps the chain outcome onto
// the public error taxonomy. Callers receive either a complete experience
// (possibly degraded, never partial) or a single typed error.
func (w *StoryExperienceWorkflow) Run(ctx goctx.Context, request *model.GenerationRequest) (*model.StoryExperience, error) {
	return w.run(ctx, request)
}

// RunRaw executes the pipeline for a raw JSON payload, the form the Pub/Sub
// listener delivers.
func (w *StoryExperienceWorkflow) RunRaw(ctx goctx.Context, payload string) (*model.StoryExperience, error) {
	return w.run(ctx, payload)
}

func (w *StoryExperienceWorkflow) run(ctx goctx.Context, input interface{}) (*model.StoryExperience, error) {
	chainCtx := cor.NewBaseContext()
	defer chainCtx.Close()
	chainCtx.SetContext(ctx)
	chainCtx.Add(cor.CtxIn, input)

	w.Execute(chainCtx)

	if chainCtx.HasErrors() {
		chainCtx.SetStage(model.StageFailed)
		return nil, classifyRunError(chainCtx.GetErrors())
	}

	experience, ok := chainCtx.Get(commands.GetExperienceParamName()).(*model.StoryExperience)
	if !ok {
		return nil, fmt.Errorf("pipeline completed without producing an experience")
	}
	return experience, nil
}

// classifyRunError picks the most specific taxonomy error out of the chain's
// error map, preferring the fatal categories callers branch on.
func classifyRunError(errs map[string]error) error {
	var fallback error
	for _, err := range errs {
		var validation *model.ValidationError
		if errors.As(err, &validation) {
			return validation
		}
		var violation *model.GuardrailViolation
		if errors.As(err, &violation) {
			return violation
		}
		var upstream *model.UpstreamUnavailable
		if errors.As(err, &upstream) {
			return upstream
		}
		fallback = err
	}
	return fmt.Errorf("pipeline failed: %w", fallback)
}

// Budget returns the computable worst-case wall-clock ceiling for one run:
// the text policy's ceiling plus the slower of the narration ceiling and the
// illustration ceiling across worker batches at the maximum scene count.
func (w *StoryExperienceWorkflow) Budget() time.Duration {
	batches := (model.MaxScenes + w.numberOfWorkers - 1) / w.numberOfWorkers
	imageCeiling := w.imagePolicy.MaxDuration() * time.Duration(batches)
	audioCeiling := w.audioPolicy.MaxDuration()

	assetCeiling := audioCeiling
	if imageCeiling > assetCeiling {
		assetCeiling = imageCeiling
	}
	return w.textPolicy.MaxDuration() + assetCeiling
}

// NewStoryExperienceWorkflow builds a pipeline from explicit dependencies.
// Tests use this constructor directly with fakes.
func NewStoryExperienceWorkflow(config *cloud.Config, deps Dependencies) *StoryExperienceWorkflow {
	storyTemplate, err := template.New("story-template").Parse(config.PromptTemplates.StoryPrompt)
	if err != nil {
		panic(err)
	}
	sceneTemplate, err := template.New("scene-template").Parse(config.PromptTemplates.ScenePrompt)
	if err != nil {
		panic(err)
	}

	workers := config.Application.ThreadPoolSize
	if workers < 1 {
		workers = 1
	}

	pipeline := &StoryExperienceWorkflow{
		BaseCommand:     *cor.NewBaseCommand("story-experience-pipeline"),
		config:          config,
		deps:            deps,
		contentGuard:    guard.NewGuard(config.Guardrails),
		storyTemplate:   storyTemplate,
		sceneTemplate:   sceneTemplate,
		textPolicy:      config.Backends[cloud.BackendText].Retry.Policy(),
		imagePolicy:     config.Backends[cloud.BackendImage].Retry.Policy(),
		audioPolicy:     config.Backends[cloud.BackendAudio].Retry.Policy(),
		numberOfWorkers: workers,
	}
	pipeline.initializeChain()
	return pipeline
}

// NewStoryExperiencePipeline is the production constructor, wiring the
// pipeline to the initialized service clients.
func NewStoryExperiencePipeline(config *cloud.Config, serviceClients *cloud.ServiceClients) *StoryExperienceWorkflow {
	return NewStoryExperienceWorkflow(config, Dependencies{
		TextBackend:  serviceClients.TextBackend,
		ImageBackend: serviceClients.ImageBackend,
		AudioBackend: serviceClients.AudioBackend,
		AssetStore:   serviceClients.AssetStore,
		Writer: cloud.NewBigQueryExperienceWriter(
			serviceClients.BigQueryClient,
			config.BigQueryDataSource.DatasetName,
			config.BigQueryDataSource.ExperienceTable),
		ReviewPublisher: serviceClients.ReviewPublisher,
	})
}
