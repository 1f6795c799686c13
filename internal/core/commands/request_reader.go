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

// Package commands provides the concrete implementations of the Chain of
// Responsibility (COR) pattern's Command interface. This file defines the
// entry command of the story pipeline.
//
// The pipeline is started from two directions: the HTTP handler, which has
// already bound the request body into a typed GenerationRequest, and the
// Pub/Sub listener, which delivers the raw message payload as a JSON string.
// This command normalizes both shapes into a single *model.GenerationRequest
// stored under a well-known context key, so every downstream command reads
// one type regardless of how the run was triggered.
package commands

import (
	"encoding/json"
	"fmt"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// GetGenerationRequestParamName returns the canonical context key for the
// typed generation request. Using a function for this ensures consistency
// across the commands that read it.
func GetGenerationRequestParamName() string {
	return "__GENERATION_REQUEST__"
}

// StoryRequestReader is the command that turns raw pipeline input into a
// typed GenerationRequest.
type StoryRequestReader struct {
	cor.BaseCommand
}

// NewStoryRequestReader is the constructor for the StoryRequestReader command.
func NewStoryRequestReader(name string) *StoryRequestReader {
	return &StoryRequestReader{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute parses JSON string input or passes through an already-typed
// request, then publishes the result under the shared request key.
func (c *StoryRequestReader) Execute(context cor.Context) {
	var request *model.GenerationRequest

	switch in := context.Get(c.GetInputParam()).(type) {
	case *model.GenerationRequest:
		request = in
	case string:
		request = &model.GenerationRequest{}
		if err := json.Unmarshal([]byte(in), request); err != nil {
			c.GetErrorCounter().Add(context.GetContext(), 1)
			context.AddError(c.GetName(), fmt.Errorf("%w: %v", model.ErrInvalidPayload, err))
			return
		}
	default:
		c.GetErrorCounter().Add(context.GetContext(), 1)
		context.AddError(c.GetName(), fmt.Errorf("%w: unsupported input type %T", model.ErrInvalidPayload, in))
		return
	}

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetGenerationRequestParamName(), request)
	context.Add(c.GetOutputParam(), request)
}
