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

// Package commands_test contains unit tests for the scene chunker. The
// chunker is pure, so these tests exercise the distribution and caption
// rules directly without any chain machinery.
package commands_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/commands"
)

// storyWithParagraphs builds a draft with the given number of numbered
// paragraphs so tests can assert exactly which paragraph landed where.
func storyWithParagraphs(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("Paragraph %d of the quiet story.", i+1)
	}
	return strings.Join(parts, "\n\n")
}

// TestChunkStoryEvenDistribution verifies that paragraphs divide evenly when
// the counts align.
func TestChunkStoryEvenDistribution(t *testing.T) {
	chunks := commands.ChunkStory(storyWithParagraphs(6), 3)

	require.Len(t, chunks, 3)
	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Len(t, chunk.Paragraphs, 2)
	}
	assert.Equal(t, "Paragraph 1 of the quiet story.", chunks[0].Paragraphs[0])
	assert.Equal(t, "Paragraph 6 of the quiet story.", chunks[2].Paragraphs[1])
}

// TestChunkStoryRemainderGoesToFront verifies the tie-break rule: when
// paragraphs do not divide evenly, the front chunks receive the extras.
func TestChunkStoryRemainderGoesToFront(t *testing.T) {
	chunks := commands.ChunkStory(storyWithParagraphs(7), 3)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0].Paragraphs, 3)
	assert.Len(t, chunks[1].Paragraphs, 2)
	assert.Len(t, chunks[2].Paragraphs, 2)

	// Order is preserved across the boundary.
	assert.Equal(t, "Paragraph 3 of the quiet story.", chunks[0].Paragraphs[2])
	assert.Equal(t, "Paragraph 4 of the quiet story.", chunks[1].Paragraphs[0])
}

// TestChunkStoryFewerParagraphsThanScenes verifies that extra chunks reuse
// the last available paragraph rather than being empty.
func TestChunkStoryFewerParagraphsThanScenes(t *testing.T) {
	chunks := commands.ChunkStory(storyWithParagraphs(2), 5)

	require.Len(t, chunks, 5)
	assert.Equal(t, []string{"Paragraph 1 of the quiet story."}, chunks[0].Paragraphs)
	assert.Equal(t, []string{"Paragraph 2 of the quiet story."}, chunks[1].Paragraphs)
	for _, chunk := range chunks[2:] {
		assert.Equal(t, []string{"Paragraph 2 of the quiet story."}, chunk.Paragraphs)
		assert.NotEmpty(t, chunk.Caption)
	}
}

// TestChunkStoryDeterministic verifies that the same draft and scene count
// always chunk identically.
func TestChunkStoryDeterministic(t *testing.T) {
	story := storyWithParagraphs(9)
	first := commands.ChunkStory(story, 4)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, commands.ChunkStory(story, 4))
	}
}

// TestChunkStoryInvalidSceneCount verifies the guard for a non-positive
// scene count, which valid requests can never produce.
func TestChunkStoryInvalidSceneCount(t *testing.T) {
	assert.Nil(t, commands.ChunkStory(storyWithParagraphs(3), 0))
	assert.Nil(t, commands.ChunkStory(storyWithParagraphs(3), -1))
}

// TestSplitParagraphs verifies blank-line splitting with trimming and empty
// paragraph removal.
func TestSplitParagraphs(t *testing.T) {
	text := "First paragraph.\n\n\n\n  Second paragraph.  \r\n\r\nThird paragraph."
	paragraphs := commands.SplitParagraphs(text)

	require.Len(t, paragraphs, 3)
	assert.Equal(t, "Second paragraph.", paragraphs[1])
}

// TestDeriveCaptionFirstSentence verifies that a sentence boundary inside
// the budget wins over truncation.
func TestDeriveCaptionFirstSentence(t *testing.T) {
	caption := commands.DeriveCaption("The lantern dimmed softly. Everyone in the burrow yawned.")
	assert.Equal(t, "The lantern dimmed softly.", caption)
}

// TestDeriveCaptionTruncatesAtBudget verifies the ellipsis rule when no
// sentence boundary falls within the budget.
func TestDeriveCaptionTruncatesAtBudget(t *testing.T) {
	long := strings.Repeat("soft wind ", 40)
	caption := commands.DeriveCaption(long)

	assert.True(t, strings.HasSuffix(caption, "…"))
	assert.LessOrEqual(t, len([]rune(strings.TrimSuffix(caption, "…"))), commands.CaptionBudget)
}

// TestDeriveCaptionShortTextUntouched verifies that text under the budget
// with no sentence boundary is returned whole, without an ellipsis.
func TestDeriveCaptionShortTextUntouched(t *testing.T) {
	caption := commands.DeriveCaption("a hush over the meadow")
	assert.Equal(t, "a hush over the meadow", caption)
}

// TestDeriveCaptionIgnoresInteriorPunctuation verifies that a period inside
// a word (like a decimal) does not end the sentence.
func TestDeriveCaptionIgnoresInteriorPunctuation(t *testing.T) {
	caption := commands.DeriveCaption("The 2.5 second pause helped. Then sleep came.")
	assert.Equal(t, "The 2.5 second pause helped.", caption)
}
