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
// This file contains the inbound request types. A GenerationRequest is the
// single unit of work the pipeline accepts: it describes the story to write,
// how many illustrated scenes to produce, which narration voice to use, and
// which guardrail policy to apply. Once a request passes validation it is
// treated as immutable for the remainder of the pipeline run.
package model

// Bounds enforced on every GenerationRequest before any backend call is made.
const (
	MinScenes      = 1
	MaxScenes      = 8
	MinTargetWords = 50
	MaxTargetWords = 2000
)

// DefaultVoice is the narration voice used when a request does not name one.
// It is a logical identifier resolved to a concrete prebuilt voice by the
// audio backend configuration.
const DefaultVoice = "warm-narrator"

// ListenerProfile carries the optional personalization fields supplied with a
// request. Every non-empty field is folded into the story prompt, so the
// effect of each one is observable in the generated text.
type ListenerProfile struct {
	Mood               string   `json:"mood,omitempty"`                // The listener's current mood (e.g., "wound up", "cozy").
	Routine            string   `json:"routine,omitempty"`             // A bedtime routine to weave into the story.
	FavoriteCharacters []string `json:"favorite_characters,omitempty"` // Characters the story should include.
	CalmingElements    []string `json:"calming_elements,omitempty"`    // Imagery known to settle the listener (e.g., "rain on a roof").
}

// GenerationRequest is the validated input to the story experience pipeline.
type GenerationRequest struct {
	Prompt        string          `json:"prompt"`         // The short free-text idea the story grows from.
	Theme         string          `json:"theme"`          // The visual/narrative theme (e.g., "lantern-light", "starfield").
	TargetLength  int             `json:"target_length"`  // The target story length in words.
	NumScenes     int             `json:"num_scenes"`     // The number of illustrated scenes to produce.
	Voice         string          `json:"voice"`          // The narration voice identifier. Empty selects DefaultVoice.
	Profile       ListenerProfile `json:"profile"`        // Optional personalization fields.
	GuardrailMode string          `json:"guardrail_mode"` // The guardrail policy variant (e.g., "bedtime-safety").
}
