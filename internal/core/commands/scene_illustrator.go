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

// This file defines the command that produces one illustration per scene
// chunk. Scenes are processed by a bounded worker pool so a single run never
// opens more concurrent image calls than the configured pool size.
//
// Image failure is never fatal. When the backend is disabled or a scene
// exhausts its retry policy, the worker substitutes the deterministic
// placeholder for that scene and records a degradation note. The output
// slice is re-ordered by scene index, so callers always receive exactly one
// asset per scene in story order regardless of completion order.
package commands

import (
	"bytes"
	goctx "context"
	"fmt"
	"log/slog"
	"sync"
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// GetVisualAssetsParamName returns the canonical context key for the ordered
// visual asset slice.
func GetVisualAssetsParamName() string {
	return "__VISUAL_ASSETS__"
}

// SceneIllustrator is the command that generates scene illustrations through
// a worker pool.
type SceneIllustrator struct {
	cor.BaseCommand
	generator       cloud.ImageGenerator // The rate-limited image backend adapter.
	promptTemplate  *template.Template   // The Go template for the per-scene prompt.
	policy          cloud.RetryPolicy    // The image backend's retry policy.
	numberOfWorkers int                  // The worker pool size.
}

// NewSceneIllustrator is the constructor for the SceneIllustrator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - generator: The image backend adapter.
//   - promptTemplate: A parsed Go template for the scene prompt.
//   - policy: The retry policy for the image backend.
//   - numberOfWorkers: The size of the worker pool.
func NewSceneIllustrator(
	name string,
	generator cloud.ImageGenerator,
	promptTemplate *template.Template,
	policy cloud.RetryPolicy,
	numberOfWorkers int) *SceneIllustrator {
	if numberOfWorkers < 1 {
		numberOfWorkers = 1
	}
	return &SceneIllustrator{
		BaseCommand:     *cor.NewBaseCommand(name),
		generator:       generator,
		promptTemplate:  promptTemplate,
		policy:          policy,
		numberOfWorkers: numberOfWorkers,
	}
}

// IsExecutable requires the scene chunks and the originating request.
func (s *SceneIllustrator) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(s.GetInputParam()) != nil &&
		context.Get(GetGenerationRequestParamName()) != nil
}

// sceneJob carries everything one worker needs to illustrate a scene.
type sceneJob struct {
	ctx    goctx.Context
	chunk  *model.SceneChunk
	theme  string
	prompt string
	err    error
}

// sceneResult pairs a finished asset with an optional degradation note.
type sceneResult struct {
	asset       *model.VisualAsset
	degradation string
}

// Execute fans the scene chunks out across the worker pool and collects the
// assets back into scene order.
func (s *SceneIllustrator) Execute(context cor.Context) {
	chunks := context.Get(s.GetInputParam()).([]*model.SceneChunk)
	request := context.Get(GetGenerationRequestParamName()).(*model.GenerationRequest)

	var wg sync.WaitGroup
	jobs := make(chan *sceneJob, len(chunks))
	results := make(chan *sceneResult, len(chunks))

	for w := 0; w < s.numberOfWorkers; w++ {
		wg.Add(1)
		go s.sceneWorker(jobs, results, &wg)
	}

	for _, chunk := range chunks {
		job := &sceneJob{ctx: context.GetContext(), chunk: chunk, theme: request.Theme}
		job.prompt, job.err = s.renderPrompt(request.Theme, chunk)
		jobs <- job
	}
	close(jobs)

	wg.Wait()
	close(results)

	// Workers finish in arbitrary order; restore story order by index.
	assets := make([]*model.VisualAsset, len(chunks))
	summary := guardrailSummary(context)
	for r := range results {
		assets[r.asset.SceneIndex] = r.asset
		if r.degradation != "" {
			summary.Degradations = append(summary.Degradations, r.degradation)
		}
	}

	s.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetVisualAssetsParamName(), assets)
	context.Add(s.GetOutputParam(), assets)
}

// renderPrompt builds the image prompt for one chunk from the configured
// template.
func (s *SceneIllustrator) renderPrompt(theme string, chunk *model.SceneChunk) (string, error) {
	vocabulary := map[string]interface{}{
		"SEQUENCE":   fmt.Sprintf("%d", chunk.Index+1),
		"THEME":      theme,
		"CAPTION":    chunk.Caption,
		"SCENE_TEXT": chunk.Text(),
	}
	var doc bytes.Buffer
	if err := s.promptTemplate.Execute(&doc, vocabulary); err != nil {
		return "", err
	}
	return doc.String(), nil
}

// sceneWorker drains the jobs channel, generating or substituting one asset
// per scene.
func (s *SceneIllustrator) sceneWorker(jobs <-chan *sceneJob, results chan<- *sceneResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for j := range jobs {
		start := time.Now()

		var data []byte
		err := j.err
		if err == nil {
			data, err = cloud.Call(j.ctx, cloud.BackendImage, s.policy, func(ctx goctx.Context) ([]byte, error) {
				return s.generator.GenerateImage(ctx, j.prompt)
			})
		}

		asset := &model.VisualAsset{
			SceneIndex: j.chunk.Index,
			Caption:    j.chunk.Caption,
			Latency:    time.Since(start),
		}
		result := &sceneResult{asset: asset}

		if err != nil {
			placeholder, phErr := PlaceholderImage(j.theme, j.chunk.Caption)
			if phErr != nil {
				// PNG encoding of an in-memory image does not fail in
				// practice; surface loudly if it ever does.
				slog.Error("placeholder image generation failed", "scene", j.chunk.Index, "error", phErr)
			}
			asset.Bytes = placeholder
			asset.IsPlaceholder = true
			asset.Latency = time.Since(start)
			result.degradation = fmt.Sprintf("scene %d image replaced with placeholder: %v", j.chunk.Index, err)
			slog.Warn("scene illustration degraded to placeholder", "scene", j.chunk.Index, "error", err)
		} else {
			asset.Bytes = data
		}

		results <- result
	}
}
