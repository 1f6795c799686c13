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

// This file defines the scene chunker: the pure functions that split an
// accepted story draft into exactly numScenes chunks, and the command that
// wraps them for the chain.
//
// Chunking is deterministic. Paragraphs are distributed evenly with any
// remainder given to the front chunks, so uneven splits lean toward the
// start of the story. When the draft has fewer paragraphs than scenes, the
// extra chunks reuse the last available paragraph, which guarantees every
// scene has non-empty source text for caption derivation.
package commands

import (
	"strings"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// CaptionBudget is the maximum caption length in runes. Captions truncated
// to the budget get an ellipsis appended.
const CaptionBudget = 120

// GetSceneChunksParamName returns the canonical context key for the derived
// scene chunks.
func GetSceneChunksParamName() string {
	return "__SCENE_CHUNKS__"
}

// SplitParagraphs breaks story text into paragraphs on blank lines. Empty
// paragraphs are dropped and surrounding whitespace is trimmed.
func SplitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(normalized, "\n\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ChunkStory splits story text into exactly numScenes chunks. Requests with
// numScenes outside the model bounds never reach this function; it returns
// nil only for a non-positive scene count.
func ChunkStory(text string, numScenes int) []*model.SceneChunk {
	if numScenes <= 0 {
		return nil
	}

	paragraphs := SplitParagraphs(text)
	if len(paragraphs) == 0 {
		paragraphs = []string{strings.TrimSpace(text)}
	}

	chunks := make([]*model.SceneChunk, 0, numScenes)
	base := len(paragraphs) / numScenes
	remainder := len(paragraphs) % numScenes

	cursor := 0
	for i := 0; i < numScenes; i++ {
		size := base
		if i < remainder {
			size++
		}

		var assigned []string
		if size == 0 {
			// More scenes than paragraphs: reuse the last paragraph seen so
			// every chunk has source text.
			last := paragraphs[len(paragraphs)-1]
			if cursor > 0 {
				last = paragraphs[cursor-1]
			}
			assigned = []string{last}
		} else {
			assigned = paragraphs[cursor : cursor+size]
			cursor += size
		}

		chunks = append(chunks, &model.SceneChunk{
			Index:      i,
			Paragraphs: assigned,
			Caption:    DeriveCaption(strings.Join(assigned, "\n\n")),
		})
	}
	return chunks
}

// DeriveCaption returns the first sentence of the chunk text, or the first
// CaptionBudget runes with an ellipsis when no sentence boundary falls
// within the budget.
func DeriveCaption(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)

	for i, r := range runes {
		if i >= CaptionBudget {
			break
		}
		if r == '.' || r == '!' || r == '?' {
			if i+1 == len(runes) || runes[i+1] == ' ' {
				return string(runes[:i+1])
			}
		}
	}

	if len(runes) <= CaptionBudget {
		return flat
	}
	return strings.TrimSpace(string(runes[:CaptionBudget])) + "…"
}

// SceneChunker is the command that derives scene chunks from the accepted
// story draft.
type SceneChunker struct {
	cor.BaseCommand
}

// NewSceneChunker is the constructor for the SceneChunker command.
func NewSceneChunker(name string) *SceneChunker {
	return &SceneChunker{BaseCommand: *cor.NewBaseCommand(name)}
}

// Execute chunks the draft for the request's scene count and publishes the
// chunk slice under the shared key.
func (c *SceneChunker) Execute(context cor.Context) {
	draft := context.Get(c.GetInputParam()).(*model.StoryDraft)
	request := context.Get(GetGenerationRequestParamName()).(*model.GenerationRequest)

	chunks := ChunkStory(draft.Text, request.NumScenes)

	c.GetSuccessCounter().Add(context.GetContext(), 1)
	context.Add(GetSceneChunksParamName(), chunks)
	context.Add(c.GetOutputParam(), chunks)
}
