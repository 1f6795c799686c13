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

// This file generates the deterministic placeholder assets substituted when
// a generative backend is disabled or exhausts its retry policy. The same
// theme and caption always produce byte-identical output, so degraded runs
// are reproducible and testable.
//
// Placeholder images are a vertical two-stop gradient seeded by an FNV-1a
// hash of theme and caption, with the caption drawn near the bottom edge.
// Placeholder narration is a silent WAV sized to the story's word count at a
// gentle reading pace.
package commands

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"image"
	"image/color"
	"image/png"
	"strings"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// PlaceholderImageSize is the edge length in pixels of every placeholder
// image.
const PlaceholderImageSize = 1024

// Silent narration parameters: 24 kHz mono 16-bit PCM, the same shape the
// speech backend returns, at a pace of 2.5 words per second with a floor of
// five seconds.
const (
	placeholderSampleRate  = 24000
	placeholderWordsPerSec = 2.5
	placeholderMinDuration = 5 * time.Second
)

// PlaceholderImage renders the deterministic fallback illustration for a
// scene and returns it as encoded PNG bytes.
func PlaceholderImage(theme string, caption string) ([]byte, error) {
	seed := placeholderSeed(theme, caption)

	// Two muted color stops derived from the seed. Channels are kept in a
	// low range so placeholders read as calm night-sky gradients.
	top := color.RGBA{
		R: uint8(16 + seed&0x3F),
		G: uint8(16 + (seed>>8)&0x3F),
		B: uint8(48 + (seed>>16)&0x5F),
		A: 255,
	}
	bottom := color.RGBA{
		R: uint8(8 + (seed>>6)&0x1F),
		G: uint8(8 + (seed>>14)&0x1F),
		B: uint8(24 + (seed>>22)&0x3F),
		A: 255,
	}

	img := image.NewRGBA(image.Rect(0, 0, PlaceholderImageSize, PlaceholderImageSize))
	for y := 0; y < PlaceholderImageSize; y++ {
		row := color.RGBA{
			R: lerp(top.R, bottom.R, y, PlaceholderImageSize),
			G: lerp(top.G, bottom.G, y, PlaceholderImageSize),
			B: lerp(top.B, bottom.B, y, PlaceholderImageSize),
			A: 255,
		}
		for x := 0; x < PlaceholderImageSize; x++ {
			img.SetRGBA(x, y, row)
		}
	}

	drawCaption(img, caption)

	var buffer bytes.Buffer
	if err := png.Encode(&buffer, img); err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

// placeholderSeed hashes theme and caption with FNV-1a so the same inputs
// always pick the same gradient.
func placeholderSeed(theme string, caption string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(theme))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(caption))
	return h.Sum32()
}

// lerp interpolates one color channel across the image height.
func lerp(from uint8, to uint8, step int, total int) uint8 {
	return uint8(int(from) + (int(to)-int(from))*step/total)
}

// drawCaption draws the caption centered near the bottom edge using the
// fixed-width basicfont face.
func drawCaption(img *image.RGBA, caption string) {
	if caption == "" {
		return
	}

	face := basicfont.Face7x13
	// Trim to the glyphs that fit the image width, leaving a small margin.
	maxGlyphs := (PlaceholderImageSize - 2*face.Advance) / face.Advance
	runes := []rune(caption)
	if len(runes) > maxGlyphs {
		runes = runes[:maxGlyphs]
	}
	text := string(runes)

	width := len(runes) * face.Advance
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.RGBA{R: 232, G: 232, B: 240, A: 255}),
		Face: face,
		Dot: fixed.P(
			(PlaceholderImageSize-width)/2,
			PlaceholderImageSize-3*face.Height,
		),
	}
	drawer.DrawString(text)
}

// SilentNarration builds the silent WAV fallback for a story and returns the
// encoded bytes with the clip duration.
func SilentNarration(storyText string) ([]byte, time.Duration) {
	words := len(strings.Fields(storyText))
	duration := time.Duration(float64(words) / placeholderWordsPerSec * float64(time.Second))
	if duration < placeholderMinDuration {
		duration = placeholderMinDuration
	}

	samples := int(duration.Seconds() * placeholderSampleRate)
	dataLen := samples * 2 // 16-bit mono

	var buffer bytes.Buffer
	buffer.WriteString("RIFF")
	_ = binary.Write(&buffer, binary.LittleEndian, uint32(36+dataLen))
	buffer.WriteString("WAVE")
	buffer.WriteString("fmt ")
	_ = binary.Write(&buffer, binary.LittleEndian, uint32(16))                       // fmt chunk size
	_ = binary.Write(&buffer, binary.LittleEndian, uint16(1))                        // PCM
	_ = binary.Write(&buffer, binary.LittleEndian, uint16(1))                        // mono
	_ = binary.Write(&buffer, binary.LittleEndian, uint32(placeholderSampleRate))    // sample rate
	_ = binary.Write(&buffer, binary.LittleEndian, uint32(placeholderSampleRate*2))  // byte rate
	_ = binary.Write(&buffer, binary.LittleEndian, uint16(2))                        // block align
	_ = binary.Write(&buffer, binary.LittleEndian, uint16(16))                       // bits per sample
	buffer.WriteString("data")
	_ = binary.Write(&buffer, binary.LittleEndian, uint32(dataLen))
	buffer.Write(make([]byte, dataLen))

	return buffer.Bytes(), duration
}

// EstimateAudioDuration derives playback length from raw PCM byte length at
// the backend's 24 kHz mono 16-bit output shape.
func EstimateAudioDuration(pcmBytes int) time.Duration {
	return time.Duration(float64(pcmBytes) / float64(placeholderSampleRate*2) * float64(time.Second))
}
