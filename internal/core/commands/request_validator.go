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

// This file defines the command that validates a GenerationRequest before
// any backend call is spent on it. Out-of-bounds requests are rejected here
// with a typed ValidationError so they surface as client errors, never as
// pipeline failures. Validation also mints the session identifier that names
// every asset produced by this run.
package commands

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/guard"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// GetSessionIDParamName returns the canonical context key for the session
// identifier assigned to a validated run.
func GetSessionIDParamName() string {
	return "__SESSION_ID__"
}

// RequestValidator is the command that enforces request bounds and assigns
// the run's session ID.
type RequestValidator struct {
	cor.BaseCommand
}

// NewRequestValidator is the constructor for the RequestValidator command.
func NewRequestValidator(name string) *RequestValidator {
	return &RequestValidator{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute checks every bound, applies defaults for optional fields, and
// records the Validated stage on success.
func (c *RequestValidator) Execute(context cor.Context) {
	request := context.Get(c.GetInputParam()).(*model.GenerationRequest)

	if err := ValidateRequest(request); err != nil {
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), err)
		return
	}

	if request.Voice == "" {
		request.Voice = model.DefaultVoice
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetSessionIDParamName(), uuid.NewString())
	context.SetStage(model.StageValidated)
	context.Add(c.GetOutputParam(), request)
}

// ValidateRequest checks a request against the model bounds and returns a
// *model.ValidationError naming the first offending field. It is exported so
// the HTTP handler can reject bad payloads before starting a pipeline run.
func ValidateRequest(request *model.GenerationRequest) error {
	if strings.TrimSpace(request.Prompt) == "" {
		return &model.ValidationError{Field: "prompt", Reason: "must not be empty"}
	}
	if request.NumScenes < model.MinScenes || request.NumScenes > model.MaxScenes {
		return &model.ValidationError{Field: "num_scenes", Reason: "must be between 1 and 8"}
	}
	if request.TargetLength < model.MinTargetWords || request.TargetLength > model.MaxTargetWords {
		return &model.ValidationError{Field: "target_length", Reason: "must be between 50 and 2000 words"}
	}
	if _, err := guard.ParseMode(request.GuardrailMode); err != nil {
		return &model.ValidationError{Field: "guardrail_mode", Reason: err.Error()}
	}
	return nil
}
