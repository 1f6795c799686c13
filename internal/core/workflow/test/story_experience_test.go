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

// Package workflow_test contains tests for the story experience pipeline.
// The pipeline runs against in-memory fakes, so these tests cover the whole
// orchestration: validation, both guard checkpoints, retry behavior, the
// placeholder fallbacks, storage fallback, and non-fatal persistence.
package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/workflow"
	test "github.com/jaycherian/gcp-go-story-weaver/internal/testutil"
)

// harness bundles a pipeline with the fakes behind it so tests can assert on
// backend interactions.
type harness struct {
	pipeline  *workflow.StoryExperienceWorkflow
	text      *test.FakeTextGenerator
	image     *test.FakeImageGenerator
	audio     *test.FakeSpeechSynthesizer
	store     *test.FakeAssetStore
	writer    *test.FakeExperienceWriter
	publisher *test.FakeReviewPublisher
}

func newHarness(t *testing.T) *harness {
	h := &harness{
		text:      &test.FakeTextGenerator{},
		image:     &test.FakeImageGenerator{},
		audio:     &test.FakeSpeechSynthesizer{},
		store:     &test.FakeAssetStore{},
		writer:    &test.FakeExperienceWriter{},
		publisher: &test.FakeReviewPublisher{},
	}
	h.pipeline = workflow.NewStoryExperienceWorkflow(test.NewTestConfig(t), workflow.Dependencies{
		TextBackend:     h.text,
		ImageBackend:    h.image,
		AudioBackend:    h.audio,
		AssetStore:      h.store,
		Writer:          h.writer,
		ReviewPublisher: h.publisher,
	})
	return h
}

// TestPipelineHealthyPath runs a valid request with every backend healthy
// and verifies the complete, non-degraded experience.
func TestPipelineHealthyPath(t *testing.T) {
	h := newHarness(t)

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	require.NoError(t, err)
	require.NotNil(t, experience)

	assert.NotEmpty(t, experience.SessionID)
	assert.Equal(t, "lantern-light", experience.Theme)
	assert.Equal(t, test.GetTestStory(), experience.StoryText)
	assert.False(t, experience.Degraded())
	assert.True(t, experience.Persisted)

	// Exactly numScenes visuals in ascending scene order, all stored.
	require.Len(t, experience.VisualAssets, 2)
	for i, visual := range experience.VisualAssets {
		assert.Equal(t, i, visual.SceneIndex)
		assert.False(t, visual.IsPlaceholder)
		assert.NotEmpty(t, visual.Caption)
		assert.Contains(t, visual.StoredURL, experience.SessionID)
	}

	require.NotNil(t, experience.AudioAsset)
	assert.False(t, experience.AudioAsset.IsPlaceholder)
	assert.NotEmpty(t, experience.AudioAsset.StoredURL)

	require.Len(t, h.writer.Rows, 1)
	assert.Empty(t, h.publisher.Events)
}

// TestPipelineBlocksBannedPromptBeforeBackendSpend verifies that a banned
// term in the prompt halts the run at the first checkpoint without a single
// backend call.
func TestPipelineBlocksBannedPromptBeforeBackendSpend(t *testing.T) {
	h := newHarness(t)
	request := test.GetTestRequest()
	request.Prompt = "a pirate with a knife"

	experience, err := h.pipeline.Run(context.Background(), request)
	assert.Nil(t, experience)

	var violation *model.GuardrailViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "prompt", violation.Checkpoint)
	assert.NotEmpty(t, violation.Reasons)

	assert.Zero(t, h.text.Calls)
	assert.Zero(t, h.image.Calls)
	assert.Zero(t, h.audio.Calls)
	assert.Empty(t, h.writer.Rows)
}

// TestPipelineBlocksUnsafeDraft verifies the second checkpoint: a draft
// containing a banned term is discarded whole and the run fails even though
// the prompt itself was clean.
func TestPipelineBlocksUnsafeDraft(t *testing.T) {
	h := newHarness(t)
	h.text.Story = "The night was calm.\n\nThen the fox found an old knife by the river."

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	assert.Nil(t, experience)

	var violation *model.GuardrailViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "draft", violation.Checkpoint)

	// Text was generated once; no asset backend was touched.
	assert.Equal(t, 1, h.text.Calls)
	assert.Zero(t, h.image.Calls)
	assert.Zero(t, h.audio.Calls)
}

// TestPipelineRecoversFromTransientTextFailures verifies the retry path:
// two rate-limited attempts followed by success still yields a clean run.
func TestPipelineRecoversFromTransientTextFailures(t *testing.T) {
	h := newHarness(t)
	h.text.FailFirst = 2

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, h.text.Calls)
	assert.False(t, experience.Degraded())
}

// TestPipelineTextExhaustionIsFatal verifies that a text backend that never
// recovers fails the run with UpstreamUnavailable after the policy's
// attempts are spent.
func TestPipelineTextExhaustionIsFatal(t *testing.T) {
	h := newHarness(t)
	h.text.Err = model.ErrRateLimited

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	assert.Nil(t, experience)

	var upstream *model.UpstreamUnavailable
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "text", upstream.Backend)
	assert.Equal(t, 3, h.text.Calls)
	assert.Empty(t, h.writer.Rows)
}

// TestPipelineDisabledImageBackendYieldsPlaceholders verifies the degraded
// success path: every scene gets a deterministic placeholder, captions are
// preserved, narration stays real, and the run is handed to review.
func TestPipelineDisabledImageBackendYieldsPlaceholders(t *testing.T) {
	h := newHarness(t)
	h.image.Disabled = true

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	require.NoError(t, err)
	require.NotNil(t, experience)

	assert.True(t, experience.Degraded())
	require.Len(t, experience.VisualAssets, 2)
	for i, visual := range experience.VisualAssets {
		assert.Equal(t, i, visual.SceneIndex)
		assert.True(t, visual.IsPlaceholder)
		assert.NotEmpty(t, visual.Caption)
		assert.NotEmpty(t, visual.StoredURL)
	}
	assert.False(t, experience.AudioAsset.IsPlaceholder)

	// A disabled backend is non-retryable: one refusal per scene.
	assert.Equal(t, 2, h.image.Calls)
	assert.NotEmpty(t, experience.Guardrails.Degradations)

	require.Len(t, h.publisher.Events, 1)
	assert.Equal(t, experience.SessionID, h.publisher.Events[0].SessionID)
}

// TestPipelineSilentNarrationFallback verifies that an exhausted speech
// backend degrades to the silent placeholder instead of failing the run.
func TestPipelineSilentNarrationFallback(t *testing.T) {
	h := newHarness(t)
	h.audio.Err = model.ErrRateLimited

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	require.NoError(t, err)

	require.NotNil(t, experience.AudioAsset)
	assert.True(t, experience.AudioAsset.IsPlaceholder)
	assert.NotEmpty(t, experience.AudioAsset.StoredURL)
	assert.True(t, experience.AudioAsset.Duration.Seconds() >= 5)
	assert.True(t, experience.Degraded())
	assert.Equal(t, 3, h.audio.Calls)
}

// TestPipelineStoreOutageFallsBackToLocalPaths verifies that asset-store
// failure is absorbed: every asset gets a local fallback path and the run
// still completes and persists.
func TestPipelineStoreOutageFallsBackToLocalPaths(t *testing.T) {
	h := newHarness(t)
	h.store.Fail = true

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	require.NoError(t, err)

	for _, visual := range experience.VisualAssets {
		assert.Empty(t, visual.StoredURL)
		assert.NotEmpty(t, visual.LocalPath)
		assert.NotEmpty(t, visual.Location())
	}
	assert.Empty(t, experience.AudioAsset.StoredURL)
	assert.NotEmpty(t, experience.AudioAsset.LocalPath)

	require.Len(t, h.writer.Rows, 1)
}

// TestPipelinePersistenceFailureIsNonFatal verifies that a durable-store
// outage never costs the caller their experience.
func TestPipelinePersistenceFailureIsNonFatal(t *testing.T) {
	h := newHarness(t)
	h.writer.Fail = true

	experience, err := h.pipeline.Run(context.Background(), test.GetTestRequest())
	require.NoError(t, err)
	assert.False(t, experience.Persisted)
}

// TestPipelineRejectsOutOfBoundsRequests verifies pre-pipeline validation
// for each bounded field.
func TestPipelineRejectsOutOfBoundsRequests(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.GenerationRequest)
		field  string
	}{
		{"empty prompt", func(r *model.GenerationRequest) { r.Prompt = "  " }, "prompt"},
		{"zero scenes", func(r *model.GenerationRequest) { r.NumScenes = 0 }, "num_scenes"},
		{"too many scenes", func(r *model.GenerationRequest) { r.NumScenes = 9 }, "num_scenes"},
		{"too short", func(r *model.GenerationRequest) { r.TargetLength = 10 }, "target_length"},
		{"too long", func(r *model.GenerationRequest) { r.TargetLength = 5000 }, "target_length"},
		{"unknown guardrail mode", func(r *model.GenerationRequest) { r.GuardrailMode = "mystery" }, "guardrail_mode"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			request := test.GetTestRequest()
			tc.mutate(request)

			experience, err := h.pipeline.Run(context.Background(), request)
			assert.Nil(t, experience)

			var validation *model.ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tc.field, validation.Field)
			assert.Zero(t, h.text.Calls)
		})
	}
}

// TestPipelineAcceptsJSONInput verifies the Pub/Sub entry path: a raw JSON
// payload runs the same pipeline as a typed request.
func TestPipelineAcceptsJSONInput(t *testing.T) {
	h := newHarness(t)

	chain := h.pipeline
	experience, err := runWithJSON(chain, test.GetTestRequestJSON())
	require.NoError(t, err)
	assert.Len(t, experience.VisualAssets, 2)
}

// TestPipelineRejectsMalformedJSON verifies that a garbage payload fails
// before validation with the invalid-payload sentinel.
func TestPipelineRejectsMalformedJSON(t *testing.T) {
	h := newHarness(t)

	_, err := runWithJSON(h.pipeline, "{not json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidPayload))
}

// TestPipelineBudgetIsBounded verifies the worst-case ceiling is computable
// and positive.
func TestPipelineBudgetIsBounded(t *testing.T) {
	h := newHarness(t)
	assert.Greater(t, h.pipeline.Budget().Milliseconds(), int64(0))
}

// runWithJSON drives the pipeline the way the Pub/Sub listener does, with a
// string payload instead of a typed request.
func runWithJSON(pipeline *workflow.StoryExperienceWorkflow, payload string) (*model.StoryExperience, error) {
	return pipeline.RunRaw(context.Background(), payload)
}
