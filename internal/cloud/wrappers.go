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

// Package cloud provides components for interacting with external services.
// This file defines the three backend interfaces the pipeline generates
// against (text, image, speech) and their genai-backed implementations.
//
// The implementations use the Decorator pattern: each wraps the shared genai
// model handle and adds a token-bucket rate limiter so the application never
// exceeds backend quota. The limiter blocks on the request context rather
// than sleeping, and no adapter retries anything. Retry discipline belongs
// exclusively to the RetryingCaller in retry.go; an adapter returns every
// failure immediately so the caller's policy stays the single source of truth
// for attempt counts and latency ceilings.
package cloud

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// TextGenerator produces story text from a fully rendered prompt.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ImageGenerator produces a single image from a scene prompt. A disabled
// backend returns model.ErrBackendDisabled for every call.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt string) ([]byte, error)
}

// SpeechSynthesizer turns story text into narration audio using a prebuilt
// voice.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice string) ([]byte, error)
}

// QuotaAwareTextModel is the genai-backed TextGenerator. It carries the
// generation config assembled from the backend's TOML section and a rate
// limiter sized to the backend quota.
type QuotaAwareTextModel struct {
	GenerateConfig *genai.GenerateContentConfig // Generation parameters for every call.
	ModelName      string                       // The backend model to invoke.
	ModelHandle    *genai.Models                // The shared genai model surface.
	Limiter        *rate.Limiter                // Token bucket guarding backend quota.
}

// NewQuotaAwareTextModel is the constructor for QuotaAwareTextModel.
//
// Inputs:
//   - cfg: The text backend configuration section.
//   - models: The shared genai model handle from the service clients.
//
// Outputs:
//   - *QuotaAwareTextModel: A pointer to the newly created adapter.
func NewQuotaAwareTextModel(cfg GenerativeBackend, models *genai.Models) *QuotaAwareTextModel {
	generateConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](cfg.Temperature),
		TopP:            genai.Ptr[float32](cfg.TopP),
		MaxOutputTokens: cfg.MaxTokens,
		SafetySettings:  DefaultSafetySettings,
	}
	if cfg.SystemInstructions != "" {
		generateConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: cfg.SystemInstructions}},
		}
	}
	return &QuotaAwareTextModel{
		GenerateConfig: generateConfig,
		ModelName:      cfg.Model,
		ModelHandle:    models,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimit),
	}
}

// GenerateText makes a single generation call. Wait blocks until the limiter
// grants a token or the context is canceled, so throttling shows up to the
// retry layer as ordinary context errors rather than hidden sleeps.
func (q *QuotaAwareTextModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	if err := q.Limiter.Wait(ctx); err != nil {
		return "", err
	}
	resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, genai.Text(prompt), q.GenerateConfig)
	if err != nil {
		return "", err
	}
	return ResponseText(resp)
}

// QuotaAwareImageModel is the genai-backed ImageGenerator.
type QuotaAwareImageModel struct {
	ModelName   string        // The image model to invoke (e.g., an Imagen model).
	ModelHandle *genai.Models // The shared genai model surface.
	Limiter     *rate.Limiter // Token bucket guarding backend quota.
	Enabled     bool          // Mirrors the backend's enabled flag.
}

// NewQuotaAwareImageModel is the constructor for QuotaAwareImageModel.
func NewQuotaAwareImageModel(cfg GenerativeBackend, models *genai.Models) *QuotaAwareImageModel {
	limit := cfg.RateLimit
	if limit < 1 {
		limit = 1
	}
	return &QuotaAwareImageModel{
		ModelName:   cfg.Model,
		ModelHandle: models,
		Limiter:     rate.NewLimiter(rate.Limit(limit), limit),
		Enabled:     cfg.Enabled,
	}
}

// GenerateImage makes a single image synthesis call and returns the raw bytes
// of the first generated image.
func (q *QuotaAwareImageModel) GenerateImage(ctx context.Context, prompt string) ([]byte, error) {
	if !q.Enabled {
		return nil, model.ErrBackendDisabled
	}
	if err := q.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := q.ModelHandle.GenerateImages(ctx, q.ModelName, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GeneratedImages) == 0 || resp.GeneratedImages[0].Image == nil {
		return nil, fmt.Errorf("image model returned no images")
	}
	return resp.GeneratedImages[0].Image.ImageBytes, nil
}

// QuotaAwareSpeechModel is the genai-backed SpeechSynthesizer. It maps the
// request's logical voice name onto a prebuilt voice from configuration.
type QuotaAwareSpeechModel struct {
	ModelName   string            // The TTS-capable model to invoke.
	ModelHandle *genai.Models     // The shared genai model surface.
	Limiter     *rate.Limiter     // Token bucket guarding backend quota.
	Voices      map[string]string // Logical voice name to prebuilt voice mapping.
}

// NewQuotaAwareSpeechModel is the constructor for QuotaAwareSpeechModel.
func NewQuotaAwareSpeechModel(cfg GenerativeBackend, models *genai.Models) *QuotaAwareSpeechModel {
	limit := cfg.RateLimit
	if limit < 1 {
		limit = 1
	}
	return &QuotaAwareSpeechModel{
		ModelName:   cfg.Model,
		ModelHandle: models,
		Limiter:     rate.NewLimiter(rate.Limit(limit), limit),
		Voices:      cfg.Voices,
	}
}

// voiceName resolves a logical voice identifier to the backend's prebuilt
// voice, falling back to the default voice mapping when unknown.
func (q *QuotaAwareSpeechModel) voiceName(voice string) string {
	if name, ok := q.Voices[voice]; ok {
		return name
	}
	if name, ok := q.Voices[model.DefaultVoice]; ok {
		return name
	}
	return voice
}

// Synthesize makes a single text-to-speech call and returns the raw PCM
// bytes from the response.
func (q *QuotaAwareSpeechModel) Synthesize(ctx context.Context, text string, voice string) ([]byte, error) {
	if err := q.Limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := q.ModelHandle.GenerateContent(ctx, q.ModelName, genai.Text(text), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{VoiceName: q.voiceName(voice)},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return ResponseAudio(resp)
}
