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

// Package cloud defines the data structures for application configuration,
// loaded from TOML files. It provides a structured way to manage settings
// for the generative backends, retry policies, storage, Pub/Sub topics,
// BigQuery persistence, guardrail rules, and prompt templates.
//
// Structs:
//   - RetryConfig: The TOML shape of one backend's retry policy.
//   - GenerativeBackend: Model selection plus rate limit and retry policy for one backend.
//   - Storage: Asset bucket and local fallback settings.
//   - BigQueryDataSource: Dataset and table names for experience persistence.
//   - TopicSubscription / Topic: Pub/Sub wiring for request intake and review handoff.
//   - PromptTemplates: The Go templates used to build backend prompts.
//   - Config: The top-level struct aggregating everything above.
//
// Functions:
//   - NewConfig: Constructor that initializes the Config maps.
package cloud

import (
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/guard"
	"google.golang.org/genai"
)

// DefaultSafetySettings defines the content safety thresholds handed to the
// text model. The pipeline applies its own guardrail on top, so the backend
// filter is left permissive to keep blocking decisions in one place where
// they are deterministic and testable.
var DefaultSafetySettings = []*genai.SafetySetting{
	{
		Category:  genai.HarmCategoryDangerousContent,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHarassment,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategoryHateSpeech,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
	{
		Category:  genai.HarmCategorySexuallyExplicit,
		Threshold: genai.HarmBlockThresholdBlockNone,
	},
}

// RetryConfig is the TOML representation of a RetryPolicy. Durations are in
// milliseconds so the files stay plain numbers.
type RetryConfig struct {
	MaxAttempts      int     `toml:"max_attempts"`       // Total attempts, first try included.
	BaseBackoffMs    int     `toml:"base_backoff_ms"`    // Delay after the first failure.
	Multiplier       float64 `toml:"multiplier"`         // Exponential growth factor.
	Jitter           float64 `toml:"jitter"`             // Fraction of each delay randomized upward.
	AttemptTimeoutMs int     `toml:"attempt_timeout_ms"` // Per-attempt deadline.
}

// Policy converts the TOML shape into the runtime RetryPolicy value.
func (r RetryConfig) Policy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    r.MaxAttempts,
		BaseBackoff:    time.Duration(r.BaseBackoffMs) * time.Millisecond,
		Multiplier:     r.Multiplier,
		Jitter:         r.Jitter,
		AttemptTimeout: time.Duration(r.AttemptTimeoutMs) * time.Millisecond,
	}
}

// GenerativeBackend configures one of the three generative backends (text,
// image, audio). Each carries its own model name, generation parameters,
// rate limit, and retry policy, because the backends differ by an order of
// magnitude in latency and quota.
type GenerativeBackend struct {
	Model              string      `toml:"model"`               // The backend model name (e.g., "gemini-2.0-flash").
	Enabled            bool        `toml:"enabled"`             // When false the adapter returns ErrBackendDisabled.
	SystemInstructions string      `toml:"system_instructions"` // System prompt for text generation.
	Temperature        float32     `toml:"temperature"`         // Sampling temperature.
	TopP               float32     `toml:"top_p"`               // Nucleus sampling parameter.
	MaxTokens          int32       `toml:"max_tokens"`          // Output token ceiling.
	RateLimit          int         `toml:"rate_limit"`          // Requests per second allowed against the backend.
	Voices             map[string]string `toml:"voices"`        // Logical voice name to prebuilt voice mapping (audio backend only).
	Retry              RetryConfig `toml:"retry"`               // The backend's retry policy.
}

// Storage holds the asset store settings. When an upload fails, bytes are
// written under LocalFallbackDir instead so the pipeline can still return a
// usable reference.
type Storage struct {
	AssetBucket      string `toml:"asset_bucket"`       // The GCS bucket holding generated assets.
	LocalFallbackDir string `toml:"local_fallback_dir"` // Directory for fallback copies when GCS is unreachable.
}

// BigQueryDataSource names the dataset and table the persistence collaborator
// writes experiences to.
type BigQueryDataSource struct {
	DatasetName     string `toml:"dataset"`          // The BigQuery dataset.
	ExperienceTable string `toml:"experience_table"` // The table holding StoryExperience rows.
}

// TopicSubscription configures one Pub/Sub subscription the server listens on.
type TopicSubscription struct {
	Name             string `toml:"name"`               // The subscription ID.
	TimeoutInSeconds int    `toml:"timeout_in_seconds"` // Ack deadline guidance for the listener.
}

// Topic configures one Pub/Sub topic the server publishes to.
type Topic struct {
	Name string `toml:"name"` // The topic ID.
}

// PromptTemplates holds the Go text templates used to build backend prompts.
type PromptTemplates struct {
	StoryPrompt string `toml:"story"` // Template for the story generation prompt.
	ScenePrompt string `toml:"scene"` // Template for the per-scene image prompt.
}

// Config is the root configuration for the application, loaded from TOML
// files by LoadConfig.
type Config struct {
	// Application holds general application settings.
	Application struct {
		Name                      string `toml:"name"`                         // The name of the application.
		GoogleProjectId           string `toml:"google_project_id"`            // The Google Cloud project ID.
		GoogleLocation            string `toml:"location"`                     // The Google Cloud location.
		ThreadPoolSize            int    `toml:"thread_pool_size"`             // The worker pool size for per-scene image generation.
		SignerServiceAccountEmail string `toml:"signer_service_account_email"` // The service account email used for signing GCS URLs.
	} `toml:"application"`
	Storage            Storage                      `toml:"storage"`               // Asset store configuration.
	BigQueryDataSource BigQueryDataSource           `toml:"big_query_data_source"` // Persistence configuration.
	PromptTemplates    PromptTemplates              `toml:"prompt_templates"`      // Prompt templates.
	Guardrails         guard.RuleConfig             `toml:"guardrails"`            // Guardrail term lists and thresholds.
	TopicSubscriptions map[string]TopicSubscription `toml:"topic_subscriptions"`   // Subscriptions keyed by logical name (e.g., "StoryRequests").
	Topics             map[string]Topic             `toml:"topics"`                // Publish topics keyed by logical name (e.g., "ReviewQueue").
	Backends           map[string]GenerativeBackend `toml:"backends"`              // Generative backends keyed by logical name ("text", "image", "audio").
}

// NewConfig creates a new, initialized Config instance. The maps must be
// initialized before the TOML loader populates them.
//
// Outputs:
//   - *Config: A pointer to a new Config struct with its map fields initialized.
func NewConfig() *Config {
	cfg := &Config{
		TopicSubscriptions: make(map[string]TopicSubscription),
		Topics:             make(map[string]Topic),
		Backends:           make(map[string]GenerativeBackend),
	}
	cfg.Guardrails = guard.DefaultRuleConfig()
	return cfg
}
