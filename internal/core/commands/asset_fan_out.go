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

// This file defines the fan-out command that runs narration synthesis and
// scene illustration concurrently. Audio and images have no data dependency
// on each other, only on the accepted draft, so overlapping them cuts the
// asset stage down to the slower of the two branches.
//
// A chain Context is not safe for concurrent mutation, so each branch runs
// against its own child context seeded with the read-only pipeline state.
// After both branches settle, their outputs, degradation notes, and any
// errors are merged back into the parent context.
package commands

import (
	"sync"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// AssetFanOut is the command that executes the narration and illustration
// branches concurrently.
type AssetFanOut struct {
	cor.BaseCommand
	narration    cor.Command // The narration branch.
	illustration cor.Command // The illustration branch.
}

// NewAssetFanOut is the constructor for the AssetFanOut command.
func NewAssetFanOut(name string, narration cor.Command, illustration cor.Command) *AssetFanOut {
	return &AssetFanOut{
		BaseCommand:  *cor.NewBaseCommand(name),
		narration:    narration,
		illustration: illustration,
	}
}

// IsExecutable requires the scene chunks flowing in plus the shared draft
// and request state both branches read.
func (c *AssetFanOut) IsExecutable(context cor.Context) bool {
	return context != nil &&
		context.Get(c.GetInputParam()) != nil &&
		context.Get(GetStoryDraftParamName()) != nil &&
		context.Get(GetGenerationRequestParamName()) != nil
}

// Execute runs both branches to completion and merges their results.
func (c *AssetFanOut) Execute(context cor.Context) {
	branches := []cor.Command{c.narration, c.illustration}
	children := make([]cor.Context, len(branches))

	var wg sync.WaitGroup
	for i, branch := range branches {
		children[i] = c.childContext(context)
		wg.Add(1)
		go func(branch cor.Command, child cor.Context) {
			defer wg.Done()
			branch.Execute(child)
		}(branch, children[i])
	}
	wg.Wait()

	summary := guardrailSummary(context)
	failed := false
	for _, child := range children {
		if audio := child.Get(GetAudioAssetParamName()); audio != nil {
			context.Add(GetAudioAssetParamName(), audio)
		}
		if visuals := child.Get(GetVisualAssetsParamName()); visuals != nil {
			context.Add(GetVisualAssetsParamName(), visuals)
		}
		if branchSummary := child.Get(GetGuardrailSummaryParamName()); branchSummary != nil {
			summary.Degradations = append(summary.Degradations,
				branchSummary.(*model.GuardrailSummary).Degradations...)
		}
		for key, err := range child.GetErrors() {
			context.AddError(key, err)
			failed = true
		}
	}

	if failed {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.SetStage(model.StageAssetsGenerated)
	context.Add(c.GetOutputParam(), context.Get(GetVisualAssetsParamName()))
}

// childContext builds an isolated context for one branch, copying the
// read-only pipeline state and wiring each branch's expected input.
func (c *AssetFanOut) childContext(parent cor.Context) cor.Context {
	child := cor.NewBaseContext()
	child.SetContext(parent.GetContext())
	child.Add(GetGenerationRequestParamName(), parent.Get(GetGenerationRequestParamName()))
	child.Add(GetStoryDraftParamName(), parent.Get(GetStoryDraftParamName()))
	child.Add(GetSceneChunksParamName(), parent.Get(GetSceneChunksParamName()))
	child.Add(cor.CtxIn, parent.Get(cor.CtxIn))
	return child
}
