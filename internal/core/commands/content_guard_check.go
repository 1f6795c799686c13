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

// This file defines the guardrail checkpoint command. The pipeline runs it
// twice with the same guard instance: once against the raw request prompt,
// before any backend spend, and once against the generated story draft. A
// block verdict at either checkpoint records a GuardrailViolation and halts
// the chain; a blocked draft is discarded whole, never edited. Flag reasons
// accumulate across both checkpoints into the run's guardrail summary.
package commands

import (
	"log/slog"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/guard"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// Guard checkpoints, named for where in the pipeline the check runs.
const (
	CheckpointPrompt = "prompt"
	CheckpointDraft  = "draft"
)

// GetGuardrailSummaryParamName returns the canonical context key for the
// accumulated guardrail summary.
func GetGuardrailSummaryParamName() string {
	return "__GUARDRAIL_SUMMARY__"
}

// ContentGuardCheck is the command that evaluates one guard checkpoint.
type ContentGuardCheck struct {
	cor.BaseCommand
	guard      *guard.Guard // The rule engine shared by both checkpoints.
	checkpoint string       // Which text this instance evaluates.
}

// NewContentGuardCheck is the constructor for the ContentGuardCheck command.
//
// Inputs:
//   - name: A string name for this command instance.
//   - g: The guard rule engine built from configuration.
//   - checkpoint: CheckpointPrompt or CheckpointDraft.
func NewContentGuardCheck(name string, g *guard.Guard, checkpoint string) *ContentGuardCheck {
	return &ContentGuardCheck{BaseCommand: *cor.NewBaseCommand(name), guard: g, checkpoint: checkpoint}
}

// Execute evaluates the checkpoint's text and merges the verdict into the
// run's guardrail summary.
func (c *ContentGuardCheck) Execute(context cor.Context) {
	request := context.Get(GetGenerationRequestParamName()).(*model.GenerationRequest)

	text := request.Prompt
	if c.checkpoint == CheckpointDraft {
		draft := context.Get(c.GetInputParam()).(*model.StoryDraft)
		text = draft.Text
	}

	// Mode validity was established by the request validator.
	mode, _ := guard.ParseMode(request.GuardrailMode)
	verdict := c.guard.Evaluate(text, mode)

	summary := guardrailSummary(context)
	if verdict.Flagged() {
		summary.Flagged = true
	}
	summary.Reasons = append(summary.Reasons, verdict.Reasons...)

	if verdict.Blocked() {
		slog.Warn("guardrail blocked content",
			"checkpoint", c.checkpoint,
			"mode", mode.String(),
			"reasons", verdict.Reasons)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), &model.GuardrailViolation{Checkpoint: c.checkpoint, Reasons: verdict.Reasons})
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	if c.checkpoint == CheckpointDraft {
		context.SetStage(model.StageGuardrailPassed)
	}

	// Pass the checkpoint's input through unchanged for the next command.
	context.Add(c.GetOutputParam(), context.Get(c.GetInputParam()))
}

// guardrailSummary returns the run's shared summary, creating and
// registering it on first use.
func guardrailSummary(context cor.Context) *model.GuardrailSummary {
	if existing := context.Get(GetGuardrailSummaryParamName()); existing != nil {
		return existing.(*model.GuardrailSummary)
	}
	summary := &model.GuardrailSummary{}
	context.Add(GetGuardrailSummaryParamName(), summary)
	return summary
}
