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
// This file initializes and holds all the client objects the application
// needs. It acts as a dependency injection container, producing a single
// shared ServiceClients struct that is passed throughout the application.
//
// Logic Flow:
//  1. NewCloudServiceClients is called at application startup with the loaded Config.
//  2. It initializes clients for Storage, Pub/Sub, GenAI, and BigQuery.
//  3. It builds the quota-aware backend adapters from the [backends] config
//     sections and a PubSubListener per configured subscription.
//  4. Everything is bundled into one ServiceClients struct used by the API
//     handlers, workflow, and services.
//
// Structs:
//   - ServiceClients: Container for all initialized service clients and
//     backend adapters.
//
// Functions:
//   - Close: Gracefully shuts down all client connections.
//   - NewCloudServiceClients: Factory creating and configuring all clients.
package cloud

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	credentials "cloud.google.com/go/iam/credentials/apiv1"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"google.golang.org/genai"
)

// Logical backend names used as keys in the [backends] configuration map.
const (
	BackendText  = "text"
	BackendImage = "image"
	BackendAudio = "audio"
)

// ServiceClients is the central container for every client that talks to an
// external service. Constructed once at startup and shared.
type ServiceClients struct {
	StorageClient   *storage.Client                   // Client for Google Cloud Storage.
	PubsubClient    *pubsub.Client                    // Client for Google Cloud Pub/Sub.
	GenAIClient     *genai.Client                     // Client for the generative backends (Vertex AI).
	BigQueryClient  *bigquery.Client                  // Client for Google Cloud BigQuery.
	IAMClient       *credentials.IamCredentialsClient // Client for IAM, used to sign GCS URLs.
	PubSubListeners map[string]*PubSubListener        // Active listeners keyed by logical name from the config.
	TextBackend     TextGenerator                     // The quota-aware story text adapter.
	ImageBackend    ImageGenerator                    // The quota-aware scene illustration adapter.
	AudioBackend    SpeechSynthesizer                 // The quota-aware narration adapter.
	AssetStore      AssetStore                        // The GCS-backed asset store.
	ReviewPublisher ReviewPublisher                   // The fire-and-forget moderation handoff.
}

// Close releases all client connections. Useful in tests and controlled
// shutdowns; in the server the root context normally manages lifecycles.
func (c *ServiceClients) Close() {
	_ = c.StorageClient.Close()
	_ = c.PubsubClient.Close()
	_ = c.BigQueryClient.Close()
}

// NewCloudServiceClients initializes every client and adapter the
// application requires.
//
// Inputs:
//   - ctx: The root context for the application.
//   - config: The loaded application configuration.
//
// Outputs:
//   - *ServiceClients: The fully initialized container.
//   - error: An error if any client fails to initialize or a required
//     backend section is missing.
func NewCloudServiceClients(ctx context.Context, config *Config) (cloud *ServiceClients, err error) {
	sc, err := storage.NewClient(ctx)
	if err != nil {
		return nil, err
	}

	pc, err := pubsub.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  config.Application.GoogleProjectId,
		Location: config.Application.GoogleLocation,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	bc, err := bigquery.NewClient(ctx, config.Application.GoogleProjectId)
	if err != nil {
		return nil, err
	}

	// One listener per configured subscription. Commands are attached later,
	// once the workflows are built.
	subscriptions := make(map[string]*PubSubListener)
	for subKey := range config.TopicSubscriptions {
		values := config.TopicSubscriptions[subKey]
		actual, err := NewPubSubListener(pc, values.Name, nil)
		if err != nil {
			return nil, err
		}
		subscriptions[subKey] = actual
	}

	textCfg, ok := config.Backends[BackendText]
	if !ok {
		return nil, fmt.Errorf("missing required backend configuration %q", BackendText)
	}
	imageCfg, ok := config.Backends[BackendImage]
	if !ok {
		return nil, fmt.Errorf("missing required backend configuration %q", BackendImage)
	}
	audioCfg, ok := config.Backends[BackendAudio]
	if !ok {
		return nil, fmt.Errorf("missing required backend configuration %q", BackendAudio)
	}

	var reviewPublisher ReviewPublisher
	if topic, ok := config.Topics["ReviewQueue"]; ok {
		reviewPublisher = NewPubSubReviewPublisher(pc, topic.Name)
	}

	cloud = &ServiceClients{
		StorageClient:   sc,
		PubsubClient:    pc,
		GenAIClient:     gc,
		BigQueryClient:  bc,
		PubSubListeners: subscriptions,
		TextBackend:     NewQuotaAwareTextModel(textCfg, gc.Models),
		ImageBackend:    NewQuotaAwareImageModel(imageCfg, gc.Models),
		AudioBackend:    NewQuotaAwareSpeechModel(audioCfg, gc.Models),
		AssetStore:      NewGCSAssetStore(sc, config.Storage.AssetBucket),
		ReviewPublisher: reviewPublisher,
	}

	return cloud, err
}
