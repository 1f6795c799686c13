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

// Package model defines the core data structures for the application.
// This file contains the generated assets and the final StoryExperience
// record. The experience struct carries BigQuery tags because it doubles as
// the row type for the persistence collaborator; raw asset bytes are excluded
// from the row and only the stored or fallback references travel with it.
package model

import "time"

// Pipeline stages, recorded in the chain context as the run progresses.
// Failed is terminal and reachable from any stage.
const (
	StageValidated       = "Validated"
	StageTextGenerated   = "TextGenerated"
	StageGuardrailPassed = "GuardrailPassed"
	StageAssetsGenerated = "AssetsGenerated"
	StagePersisted       = "Persisted"
	StageCompleted       = "Completed"
	StageFailed          = "Failed"
)

// VisualAsset is one generated (or placeholder) scene illustration.
type VisualAsset struct {
	SceneIndex    int           `json:"scene_index" bigquery:"scene_index"`       // The zero-based scene this image belongs to.
	Caption       string        `json:"caption" bigquery:"caption"`               // The caption derived from the scene chunk. Never empty.
	StoredURL     string        `json:"stored_url" bigquery:"stored_url"`         // The asset store reference, when the upload succeeded.
	LocalPath     string        `json:"local_path" bigquery:"local_path"`         // The fallback path used when the asset store was unavailable.
	IsPlaceholder bool          `json:"is_placeholder" bigquery:"is_placeholder"` // True when the image backend failed or was disabled.
	Latency       time.Duration `json:"latency" bigquery:"-"`                     // Time spent obtaining the bytes, retries included.
	Bytes         []byte        `json:"-" bigquery:"-"`                           // The raw image bytes. Cleared after upload.
}

// Location returns the usable reference for this asset: the stored URL when
// the upload succeeded, the local fallback path otherwise.
func (v *VisualAsset) Location() string {
	if v.StoredURL != "" {
		return v.StoredURL
	}
	return v.LocalPath
}

// AudioAsset is the single narration track for a story experience.
type AudioAsset struct {
	StoredURL     string        `json:"stored_url" bigquery:"stored_url"`         // The asset store reference, when the upload succeeded.
	LocalPath     string        `json:"local_path" bigquery:"local_path"`         // The fallback path used when the asset store was unavailable.
	IsPlaceholder bool          `json:"is_placeholder" bigquery:"is_placeholder"` // True when synthesis failed and silence was substituted.
	Duration      time.Duration `json:"duration" bigquery:"-"`                    // Estimated playback length.
	Latency       time.Duration `json:"latency" bigquery:"-"`                     // Time spent obtaining the bytes, retries included.
	Bytes         []byte        `json:"-" bigquery:"-"`                           // The raw audio bytes. Cleared after upload.
}

// Location returns the usable reference for this asset.
func (a *AudioAsset) Location() string {
	if a.StoredURL != "" {
		return a.StoredURL
	}
	return a.LocalPath
}

// GuardrailSummary aggregates the verdicts from both guard checkpoints plus
// any degradation events, so the caller and the review queue see one record
// of everything that was flagged or substituted.
type GuardrailSummary struct {
	Flagged      bool     `json:"flagged" bigquery:"flagged"`           // True if either checkpoint raised a flag.
	Reasons      []string `json:"reasons" bigquery:"reasons"`           // Flag reasons, in checkpoint order.
	Degradations []string `json:"degradations" bigquery:"degradations"` // Human-readable notes for every placeholder substitution and store fallback.
}

// StoryExperience is the assembled result of a pipeline run and the row shape
// handed to the persistence collaborator.
type StoryExperience struct {
	SessionID    string           `json:"session_id" bigquery:"session_id"`   // Unique identifier for this run.
	Theme        string           `json:"theme" bigquery:"theme"`             // The requested theme.
	StoryText    string           `json:"story_text" bigquery:"story_text"`   // The accepted story draft text.
	WordCount    int              `json:"word_count" bigquery:"word_count"`   // Word count of StoryText.
	VisualAssets []*VisualAsset   `json:"visual_assets" bigquery:"visuals"`   // Exactly NumScenes assets, ascending scene index.
	AudioAsset   *AudioAsset      `json:"audio_asset" bigquery:"audio"`       // The narration track.
	Guardrails   GuardrailSummary `json:"guardrails" bigquery:"guardrails"`   // The combined guardrail and degradation record.
	Persisted    bool             `json:"persisted" bigquery:"-"`             // True when the durable insert succeeded.
	CreatedAt    time.Time        `json:"created_at" bigquery:"created_at"`   // When the experience was assembled.
}

// Degraded reports whether any asset in the experience is a placeholder.
func (e *StoryExperience) Degraded() bool {
	if e.AudioAsset != nil && e.AudioAsset.IsPlaceholder {
		return true
	}
	for _, v := range e.VisualAssets {
		if v.IsPlaceholder {
			return true
		}
	}
	return false
}
