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

// This file defines the command that generates the story text. It renders
// the configured prompt template with the request and every non-empty
// listener profile field, then calls the text backend through the retrying
// caller. Text is the one asset with no safe placeholder, so exhausting the
// retry policy here is fatal to the run and surfaces as UpstreamUnavailable.
package commands

import (
	"bytes"
	goctx "context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// GetStoryDraftParamName returns the canonical context key for the accepted
// story draft.
func GetStoryDraftParamName() string {
	return "__STORY_DRAFT__"
}

// StoryCreator is the command that produces the immutable StoryDraft.
type StoryCreator struct {
	cor.BaseCommand
	generator      cloud.TextGenerator // The rate-limited text backend adapter.
	promptTemplate *template.Template  // The Go template for the story prompt.
	policy         cloud.RetryPolicy   // The text backend's retry policy.
}

// NewStoryCreator is the constructor for the StoryCreator command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - generator: The text backend adapter.
//   - promptTemplate: A parsed Go template for the story prompt.
//   - policy: The retry policy for the text backend.
func NewStoryCreator(
	name string,
	generator cloud.TextGenerator,
	promptTemplate *template.Template,
	policy cloud.RetryPolicy) *StoryCreator {
	return &StoryCreator{
		BaseCommand:    *cor.NewBaseCommand(name),
		generator:      generator,
		promptTemplate: promptTemplate,
		policy:         policy,
	}
}

// GenerateParams builds the template vocabulary from the request. Every
// non-empty profile field is included so its effect on the prompt is
// deterministic and observable.
func (c *StoryCreator) GenerateParams(request *model.GenerationRequest) map[string]interface{} {
	params := make(map[string]interface{})
	params["PROMPT"] = request.Prompt
	params["THEME"] = request.Theme
	params["TARGET_LENGTH"] = fmt.Sprintf("%d", request.TargetLength)
	params["NUM_SCENES"] = fmt.Sprintf("%d", request.NumScenes)
	params["MOOD"] = request.Profile.Mood
	params["ROUTINE"] = request.Profile.Routine
	params["FAVORITE_CHARACTERS"] = strings.Join(request.Profile.FavoriteCharacters, ", ")
	params["CALMING_ELEMENTS"] = strings.Join(request.Profile.CalmingElements, ", ")
	return params
}

// Execute renders the prompt and drives the text backend to an accepted
// draft or a fatal failure.
func (c *StoryCreator) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*model.GenerationRequest)

	var buffer bytes.Buffer
	if err := c.promptTemplate.Execute(&buffer, c.GenerateParams(request)); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("failed to execute story prompt template: %w", err))
		return
	}
	prompt := buffer.String()

	attempts := 0
	start := time.Now()
	text, err := cloud.Call(context.GetContext(), cloud.BackendText, c.policy, func(ctx goctx.Context) (string, error) {
		attempts++
		return c.generator.GenerateText(ctx, prompt)
	})
	latency := time.Since(start)

	if err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.UpstreamUnavailable{Backend: cloud.BackendText, Err: err})
		return
	}

	draft := &model.StoryDraft{
		Text:      text,
		WordCount: len(strings.Fields(text)),
		Latency:   latency,
		Attempts:  attempts,
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.SetStage(model.StageTextGenerated)
	context.Add(GetStoryDraftParamName(), draft)
	context.Add(c.GetOutputParam(), draft)
}
