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
// This file implements the handoff to the out-of-band moderation queue.
// Flagged verdicts and placeholder substitutions are published to a Pub/Sub
// topic for human review. The publish is fire-and-forget: the pipeline never
// waits on the result and a publish failure is only logged, preserving the
// non-fatal contract of the review collaborator.
package cloud

import (
	"context"
	"encoding/json"
	"log/slog"

	"cloud.google.com/go/pubsub"
)

// ReviewEvent is the message shape placed on the review topic.
type ReviewEvent struct {
	SessionID    string   `json:"session_id"`   // The pipeline run the event belongs to.
	Reasons      []string `json:"reasons"`      // Guardrail flag reasons, if any.
	Degradations []string `json:"degradations"` // Placeholder and fallback notes, if any.
}

// ReviewPublisher is the publish contract the pipeline requires from the
// moderation collaborator.
type ReviewPublisher interface {
	// PublishReview hands an event to the review queue without awaiting the
	// outcome.
	PublishReview(ctx context.Context, event ReviewEvent)
}

// PubSubReviewPublisher publishes review events to a Pub/Sub topic.
type PubSubReviewPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubReviewPublisher is the constructor for PubSubReviewPublisher.
//
// Inputs:
//   - client: An authenticated *pubsub.Client.
//   - topicID: The string ID of the review topic.
//
// Outputs:
//   - *PubSubReviewPublisher: A pointer to the newly created publisher.
func NewPubSubReviewPublisher(client *pubsub.Client, topicID string) *PubSubReviewPublisher {
	return &PubSubReviewPublisher{topic: client.Topic(topicID)}
}

// PublishReview serializes the event and publishes it. The publish result is
// resolved on a background goroutine so the hot path never blocks on the
// broker; a failed publish loses only a review hint, never request data.
func (p *PubSubReviewPublisher) PublishReview(ctx context.Context, event ReviewEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to serialize review event", "session_id", event.SessionID, "error", err)
		return
	}
	result := p.topic.Publish(ctx, &pubsub.Message{Data: payload})
	go func() {
		if _, err := result.Get(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("review event publish failed", "session_id", event.SessionID, "error", err)
		}
	}()
}
