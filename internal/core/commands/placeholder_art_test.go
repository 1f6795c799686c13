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

// This file tests the deterministic placeholder assets. Placeholders have to
// be byte-identical for identical inputs, decodable by the standard image
// tooling, and correctly sized for the story they stand in for.
package commands_test

import (
	"bytes"
	"encoding/binary"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/zeebo/assert"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/commands"
)

// TestPlaceholderImageDecodes verifies the placeholder is a valid PNG at the
// expected dimensions.
func TestPlaceholderImageDecodes(t *testing.T) {
	data, err := commands.PlaceholderImage("starfield", "The lantern dimmed softly.")
	assert.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
	assert.Equal(t, commands.PlaceholderImageSize, img.Bounds().Dx())
	assert.Equal(t, commands.PlaceholderImageSize, img.Bounds().Dy())
}

// TestPlaceholderImageDeterministic verifies identical inputs yield
// byte-identical output and different inputs diverge.
func TestPlaceholderImageDeterministic(t *testing.T) {
	first, err := commands.PlaceholderImage("starfield", "A hush settled in.")
	assert.NoError(t, err)
	second, err := commands.PlaceholderImage("starfield", "A hush settled in.")
	assert.NoError(t, err)
	assert.True(t, bytes.Equal(first, second))

	other, err := commands.PlaceholderImage("lantern-light", "A hush settled in.")
	assert.NoError(t, err)
	assert.False(t, bytes.Equal(first, other))
}

// TestSilentNarrationHeader verifies the WAV header fields: PCM format,
// mono, 24 kHz, 16-bit, and a data chunk matching the declared length.
func TestSilentNarrationHeader(t *testing.T) {
	data, _ := commands.SilentNarration("a very short story")

	assert.Equal(t, "RIFF", string(data[0:4]))
	assert.Equal(t, "WAVE", string(data[8:12]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[20:22]))  // PCM
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(data[22:24]))  // mono
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(data[24:28]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(data[34:36]))

	dataLen := binary.LittleEndian.Uint32(data[40:44])
	assert.Equal(t, int(dataLen), len(data)-44)
}

// TestSilentNarrationDurationFloor verifies that tiny stories still get the
// five second minimum.
func TestSilentNarrationDurationFloor(t *testing.T) {
	_, duration := commands.SilentNarration("hello")
	assert.Equal(t, 5*time.Second, duration)
}

// TestSilentNarrationDurationScalesWithWords verifies the reading-pace
// scaling for longer stories.
func TestSilentNarrationDurationScalesWithWords(t *testing.T) {
	story := strings.TrimSpace(strings.Repeat("word ", 250))
	_, duration := commands.SilentNarration(story)

	// 250 words at 2.5 words per second.
	assert.Equal(t, 100*time.Second, duration)
}

// TestEstimateAudioDuration verifies the PCM length conversion at the
// backend's output shape.
func TestEstimateAudioDuration(t *testing.T) {
	// One second of 24 kHz mono 16-bit PCM.
	assert.Equal(t, time.Second, commands.EstimateAudioDuration(48000))
}
