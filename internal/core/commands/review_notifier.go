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

// This file defines the final pipeline command. It hands flagged or degraded
// runs to the review queue (fire-and-forget, so the publish never delays the
// response) and marks the run Completed.
package commands

import (
	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// ReviewNotifier is the command that publishes review events for flagged or
// degraded experiences.
type ReviewNotifier struct {
	cor.BaseCommand
	publisher cloud.ReviewPublisher // Nil when no review topic is configured.
}

// NewReviewNotifier is the constructor for the ReviewNotifier command.
func NewReviewNotifier(name string, publisher cloud.ReviewPublisher) *ReviewNotifier {
	return &ReviewNotifier{BaseCommand: *cor.NewBaseCommand(name), publisher: publisher}
}

// Execute publishes a review event when warranted and closes out the run.
func (c *ReviewNotifier) Execute(context cor.Context) {
	experience := context.Get(c.GetInputParam()).(*model.StoryExperience)

	if c.publisher != nil && (experience.Guardrails.Flagged || experience.Degraded()) {
		c.publisher.PublishReview(context.GetContext(), cloud.ReviewEvent{
			SessionID:    experience.SessionID,
			Reasons:      experience.Guardrails.Reasons,
			Degradations: experience.Guardrails.Degradations,
		})
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.SetStage(model.StageCompleted)
	context.Add(c.GetOutputParam(), experience)
}
