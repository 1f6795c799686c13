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

// This file defines the command that synthesizes the narration track for an
// accepted story draft. Narration failure is never fatal: when the speech
// backend exhausts its retry policy, the run continues with a silent WAV
// placeholder sized to the story's word count and a degradation note.
package commands

import (
	goctx "context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// GetAudioAssetParamName returns the canonical context key for the narration
// asset.
func GetAudioAssetParamName() string {
	return "__AUDIO_ASSET__"
}

// NarrationCreator is the command that produces the story's narration track.
type NarrationCreator struct {
	cor.BaseCommand
	synthesizer cloud.SpeechSynthesizer // The rate-limited speech backend adapter.
	policy      cloud.RetryPolicy       // The audio backend's retry policy.
}

// NewNarrationCreator is the constructor for the NarrationCreator command.
func NewNarrationCreator(name string, synthesizer cloud.SpeechSynthesizer, policy cloud.RetryPolicy) *NarrationCreator {
	return &NarrationCreator{
		BaseCommand: *cor.NewBaseCommand(name),
		synthesizer: synthesizer,
		policy:      policy,
	}
}

// IsExecutable requires the story draft and the originating request.
func (c *NarrationCreator) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(GetStoryDraftParamName()) != nil &&
		context.Get(GetGenerationRequestParamName()) != nil
}

// Execute drives the speech backend to a narration asset, falling back to
// deterministic silence on exhaustion.
func (c *NarrationCreator) Execute(context cor.Context) {
	draft := context.Get(GetStoryDraftParamName()).(*model.StoryDraft)
	request := context.Get(GetGenerationRequestParamName()).(*model.GenerationRequest)

	start := time.Now()
	data, err := cloud.Call(context.GetContext(), cloud.BackendAudio, c.policy, func(ctx goctx.Context) ([]byte, error) {
		return c.synthesizer.Synthesize(ctx, draft.Text, request.Voice)
	})

	asset := &model.AudioAsset{Latency: time.Since(start)}

	if err != nil {
		silence, duration := SilentNarration(draft.Text)
		asset.Bytes = silence
		asset.Duration = duration
		asset.IsPlaceholder = true
		asset.Latency = time.Since(start)

		summary := guardrailSummary(context)
		summary.Degradations = append(summary.Degradations,
			fmt.Sprintf("narration replaced with silent placeholder: %v", err))
		slog.Warn("narration degraded to silent placeholder", "error", err)
	} else {
		asset.Bytes = data
		asset.Duration = EstimateAudioDuration(len(data))
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetAudioAssetParamName(), asset)
	context.Add(c.GetOutputParam(), asset)
}
