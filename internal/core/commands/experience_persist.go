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

// This file defines the command that writes the assembled experience to the
// durable store. Persistence failure is explicitly non-fatal: the caller
// already holds a complete, usable experience, so a failed insert is logged,
// recorded on the experience, and the run still completes.
package commands

import (
	goctx "context"
	"log/slog"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// ExperienceWriter is the durable-store collaborator. The BigQuery inserter
// satisfies it in production; tests substitute a fake.
type ExperienceWriter interface {
	WriteExperience(ctx goctx.Context, experience *model.StoryExperience) error
}

// ExperiencePersist is the command that durably stores the experience row.
type ExperiencePersist struct {
	cor.BaseCommand
	writer ExperienceWriter
}

// NewExperiencePersist is the constructor for the ExperiencePersist command.
func NewExperiencePersist(name string, writer ExperienceWriter) *ExperiencePersist {
	return &ExperiencePersist{BaseCommand: *cor.NewBaseCommand(name), writer: writer}
}

// Execute attempts the insert and records the outcome without ever failing
// the run.
func (c *ExperiencePersist) Execute(context cor.Context) {
	experience := context.Get(c.GetInputParam()).(*model.StoryExperience)

	if err := c.writer.WriteExperience(context.GetContext(), experience); err != nil {
		failure := &model.PersistenceFailure{Op: "insert experience " + experience.SessionID, Err: err}
		slog.Warn("experience persistence failed", "session_id", experience.SessionID, "error", failure)
		c.GetErrorCounter().Add(context.GetContext(), 1)
		experience.Persisted = false
	} else {
		c.GetSuccessCounter().Add(context.GetContext(), 1)
		experience.Persisted = true
		context.SetStage(model.StagePersisted)
	}

	context.Add(c.GetOutputParam(), experience)
}
