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

// Package main contains the logic for setting up and starting the Pub/Sub
// message listeners. The story request listener lets batch producers queue
// generation requests without going through the HTTP surface.
package main

import (
	"context"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/workflow"
)

// SetupListeners configures and starts the background Pub/Sub listeners.
// Each message on the StoryRequests subscription carries a JSON
// GenerationRequest payload and triggers a full pipeline run.
func SetupListeners(config *cloud.Config, cloudClients *cloud.ServiceClients, storyWorkflow *workflow.StoryExperienceWorkflow, ctx context.Context) {
	listener, ok := cloudClients.PubSubListeners["StoryRequests"]
	if !ok {
		return
	}
	listener.SetCommand(storyWorkflow)
	listener.Listen(ctx)
}
