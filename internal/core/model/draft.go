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
// This file holds the intermediate artifacts of a single pipeline run: the
// story draft produced by the text backend and the scene chunks derived from
// it. Both are transient. A draft that fails the guardrail checkpoint is
// discarded whole, never edited, and chunks live only long enough to drive
// asset generation.
package model

import "time"

// StoryDraft is the output of the text generation stage. It is never mutated
// after creation.
type StoryDraft struct {
	Text      string        `json:"text"`       // The full generated story text.
	WordCount int           `json:"word_count"` // The number of words in Text.
	Latency   time.Duration `json:"latency"`    // Wall-clock time spent generating the draft, retries included.
	Attempts  int           `json:"attempts"`   // How many backend attempts the draft took.
}

// SceneChunk is one contiguous group of story paragraphs assigned to a single
// visual scene. Chunk boundaries are deterministic for a given draft and
// scene count.
type SceneChunk struct {
	Index      int      `json:"index"`      // Zero-based scene position.
	Paragraphs []string `json:"paragraphs"` // The paragraphs belonging to this scene, in story order.
	Caption    string   `json:"caption"`    // A short summary of the chunk, used for overlays and alt text.
}

// Text joins the chunk's paragraphs back into a single block, which is what
// the image prompt builder works from.
func (c *SceneChunk) Text() string {
	out := ""
	for i, p := range c.Paragraphs {
		if i > 0 {
			out += "\n\n"
		}
		out += p
	}
	return out
}
