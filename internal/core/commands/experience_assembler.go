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

// This file defines the command that folds everything a run produced into
// the final StoryExperience. By the time it executes, every asset has
// settled (real or placeholder) and carries a storage reference, so assembly
// is a pure gather step with no I/O.
package commands

import (
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// GetExperienceParamName returns the canonical context key for the assembled
// story experience.
func GetExperienceParamName() string {
	return "__STORY_EXPERIENCE__"
}

// ExperienceAssembler is the command that builds the final StoryExperience.
type ExperienceAssembler struct {
	cor.BaseCommand
}

// NewExperienceAssembler is the constructor for the ExperienceAssembler
// command.
func NewExperienceAssembler(name string) *ExperienceAssembler {
	return &ExperienceAssembler{BaseCommand: *cor.NewBaseCommand(name)}
}

// IsExecutable requires every artifact of the run to be present.
func (c *ExperienceAssembler) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(GetSessionIDParamName()) != nil &&
		context.Get(GetGenerationRequestParamName()) != nil &&
		context.Get(GetStoryDraftParamName()) != nil &&
		context.Get(GetVisualAssetsParamName()) != nil &&
		context.Get(GetAudioAssetParamName()) != nil
}

// Execute gathers the run's artifacts into one experience record.
func (c *ExperienceAssembler) Execute(context cor.Context) {
	request := context.Get(GetGenerationRequestParamName()).(*model.GenerationRequest)
	draft := context.Get(GetStoryDraftParamName()).(*model.StoryDraft)

	experience := &model.StoryExperience{
		SessionID:    context.Get(GetSessionIDParamName()).(string),
		Theme:        request.Theme,
		StoryText:    draft.Text,
		WordCount:    draft.WordCount,
		VisualAssets: context.Get(GetVisualAssetsParamName()).([]*model.VisualAsset),
		AudioAsset:   context.Get(GetAudioAssetParamName()).(*model.AudioAsset),
		Guardrails:   *guardrailSummary(context),
		CreatedAt:    time.Now().UTC(),
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetExperienceParamName(), experience)
	context.Add(c.GetOutputParam(), experience)
}
