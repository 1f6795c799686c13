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

// Package test provides utility functions and mock data to support the
// application's test suite: a consistent test environment, test-specific
// configuration, and sample request payloads for workflows and services.
package test

import (
	"log"
	"os"
	"testing"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// StateManager acts as a simple in-memory cache for the application
// configuration during test runs, so the TOML files are loaded once per
// suite.
type StateManager struct {
	config *cloud.Config
}

var state = &StateManager{}

// HandleErr fails the test when err is not nil. A convenience to reduce
// boilerplate error checking in tests.
func HandleErr(err error, t *testing.T) {
	if err != nil {
		t.Errorf("Error reading config file: %v", err)
	}
}

// SetupOS points the configuration loader at the test configuration files
// (configs/.env.toml overridden by configs/.env.test.toml).
func SetupOS() (err error) {
	err = os.Setenv(cloud.EnvConfigFilePrefix, "configs")
	if err != nil {
		return err
	}
	err = os.Setenv(cloud.EnvConfigRuntime, "test")
	return err
}

// GetConfig is a singleton accessor for the file-based test configuration.
// Tests that talk to live services use this; unit tests prefer
// NewTestConfig, which needs no files.
func GetConfig() *cloud.Config {
	if state.config == nil {
		err := SetupOS()
		if err != nil {
			log.Fatalf("failed to setup environment for test: %v\n", err)
		}
		config := cloud.NewConfig()
		cloud.LoadConfig(&config)
		state.config = config
	}
	return state.config
}

// NewTestConfig builds an in-memory configuration with fast retry policies
// so pipeline unit tests run in milliseconds without touching the
// filesystem.
func NewTestConfig(t *testing.T) *cloud.Config {
	config := cloud.NewConfig()
	config.Application.Name = "story-weaver"
	config.Application.ThreadPoolSize = 2
	config.Storage.AssetBucket = "story-weaver-assets-test"
	config.Storage.LocalFallbackDir = t.TempDir()
	config.BigQueryDataSource.DatasetName = "story_ds"
	config.BigQueryDataSource.ExperienceTable = "experiences"
	config.PromptTemplates.StoryPrompt = "Write a {{.TARGET_LENGTH}} word bedtime story about {{.PROMPT}}." +
		" Theme: {{.THEME}}. Mood: {{.MOOD}}. Routine: {{.ROUTINE}}." +
		" Characters: {{.FAVORITE_CHARACTERS}}. Calming elements: {{.CALMING_ELEMENTS}}."
	config.PromptTemplates.ScenePrompt = "Illustrate scene {{.SEQUENCE}} in the {{.THEME}} theme: {{.CAPTION}}\n{{.SCENE_TEXT}}"

	retry := cloud.RetryConfig{
		MaxAttempts:      3,
		BaseBackoffMs:    1,
		Multiplier:       2.0,
		Jitter:           0,
		AttemptTimeoutMs: 250,
	}
	config.Backends[cloud.BackendText] = cloud.GenerativeBackend{Model: "test-text", Enabled: true, RateLimit: 100, Retry: retry}
	config.Backends[cloud.BackendImage] = cloud.GenerativeBackend{Model: "test-image", Enabled: true, RateLimit: 100, Retry: retry}
	config.Backends[cloud.BackendAudio] = cloud.GenerativeBackend{Model: "test-audio", Enabled: true, RateLimit: 100, Retry: retry}
	return config
}

// GetTestRequest returns a well-formed generation request used across the
// pipeline tests.
func GetTestRequest() *model.GenerationRequest {
	return &model.GenerationRequest{
		Prompt:       "a hedgehog who collects moonbeams",
		Theme:        "lantern-light",
		TargetLength: 300,
		NumScenes:    2,
		Voice:        model.DefaultVoice,
		Profile: model.ListenerProfile{
			Mood:            "wound up",
			Routine:         "brushing teeth and one glass of water",
			CalmingElements: []string{"rain on a roof"},
		},
		GuardrailMode: "bedtime-safety",
	}
}

// GetTestRequestJSON returns the Pub/Sub message payload form of a valid
// generation request.
func GetTestRequestJSON() string {
	return `{
  "prompt": "a hedgehog who collects moonbeams",
  "theme": "lantern-light",
  "target_length": 300,
  "num_scenes": 2,
  "voice": "warm-narrator",
  "profile": { "mood": "wound up", "calming_elements": ["rain on a roof"] },
  "guardrail_mode": "bedtime-safety"
}`
}

// GetTestStory returns a deterministic multi-paragraph story used as the
// fake text backend's output.
func GetTestStory() string {
	return "The hedgehog tucked a moonbeam into his satchel and smiled.\n\n" +
		"Down by the pond, the rain tapped a slow rhythm on the lily pads.\n\n" +
		"He yawned once, curled into his leaf nest, and let the light hum him to sleep."
}
