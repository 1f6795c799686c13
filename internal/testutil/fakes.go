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

// This file provides in-memory fakes for the pipeline's external
// collaborators. All fakes are safe for concurrent use, since the asset
// stage calls the image and store fakes from multiple workers at once.
package test

import (
	"context"
	"sync"

	"github.com/jaycherian/gcp-go-story-weaver/internal/cloud"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
)

// FakeTextGenerator returns a canned story, optionally failing a number of
// leading attempts to exercise the retry path.
type FakeTextGenerator struct {
	mu        sync.Mutex
	Story     string // The text returned on success. Empty selects GetTestStory().
	Err       error  // When set, every call fails with this error.
	FailFirst int    // Number of leading calls that fail with model.ErrRateLimited.
	Calls     int    // Total calls observed.
}

func (f *FakeTextGenerator) GenerateText(_ context.Context, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return "", f.Err
	}
	if f.Calls <= f.FailFirst {
		return "", model.ErrRateLimited
	}
	if f.Story == "" {
		return GetTestStory(), nil
	}
	return f.Story, nil
}

// FakeImageGenerator returns tiny fixed PNG-tagged bytes per call, or fails
// every call when configured.
type FakeImageGenerator struct {
	mu       sync.Mutex
	Disabled bool   // When true, every call returns model.ErrBackendDisabled.
	Err      error  // When set, every call fails with this error.
	Bytes    []byte // The bytes returned on success. Empty selects a PNG-magic stub.
	Calls    int    // Total calls observed.
}

func (f *FakeImageGenerator) GenerateImage(_ context.Context, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Disabled {
		return nil, model.ErrBackendDisabled
	}
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Bytes) == 0 {
		return []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, nil
	}
	return f.Bytes, nil
}

// FakeSpeechSynthesizer returns fixed PCM bytes, or fails every call when
// configured.
type FakeSpeechSynthesizer struct {
	mu    sync.Mutex
	Err   error  // When set, every call fails with this error.
	Bytes []byte // The bytes returned on success. Empty selects one second of silence.
	Calls int    // Total calls observed.
}

func (f *FakeSpeechSynthesizer) Synthesize(_ context.Context, _ string, _ string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	if len(f.Bytes) == 0 {
		return make([]byte, 48000), nil
	}
	return f.Bytes, nil
}

// FakeAssetStore records uploads in memory and can be switched into a
// failing mode to exercise the local fallback path.
type FakeAssetStore struct {
	mu      sync.Mutex
	Fail    bool              // When true, every upload fails.
	Uploads map[string][]byte // Object name to uploaded bytes.
}

func (f *FakeAssetStore) Upload(_ context.Context, objectName string, data []byte, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return "", context.DeadlineExceeded
	}
	if f.Uploads == nil {
		f.Uploads = make(map[string][]byte)
	}
	f.Uploads[objectName] = data
	return cloud.StorageURLPrefix + "story-weaver-assets-test/" + objectName, nil
}

// FakeExperienceWriter records persisted experiences and can simulate a
// durable-store outage.
type FakeExperienceWriter struct {
	mu   sync.Mutex
	Fail bool // When true, every write fails.
	Rows []*model.StoryExperience
}

func (f *FakeExperienceWriter) WriteExperience(_ context.Context, experience *model.StoryExperience) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail {
		return context.DeadlineExceeded
	}
	f.Rows = append(f.Rows, experience)
	return nil
}

// FakeReviewPublisher records review events for assertion.
type FakeReviewPublisher struct {
	mu     sync.Mutex
	Events []cloud.ReviewEvent
}

func (f *FakeReviewPublisher) PublishReview(_ context.Context, event cloud.ReviewEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, event)
}
