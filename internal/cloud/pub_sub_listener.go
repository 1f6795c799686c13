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
// This file defines a generic, reusable Pub/Sub message listener used for
// queued generation requests. Receiving is abstracted away from processing:
// the listener hands each message body to an attached Command and acks only
// when the command's chain finishes without errors, so fatal pipeline
// failures lead to redelivery under the subscription's retry policy.
//
// Structs:
//   - PubSubListener: Binds a subscription to the command that processes its
//     messages.
//
// Functions:
//   - NewPubSubListener: Constructor for creating a new PubSubListener.
//   - SetCommand: Attaches a processing command to the listener.
//   - Listen: Starts the background process to receive and handle messages.
package cloud

import (
	"context"
	"log/slog"

	"cloud.google.com/go/pubsub"
	"github.com/jaycherian/gcp-go-story-weaver/internal/core/cor"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PubSubListener encapsulates a subscription and the command that processes
// its messages. Listeners have a life-cycle independent of individual API
// requests, so they live with the other cloud components.
type PubSubListener struct {
	client       *pubsub.Client       // The client for interacting with the Pub/Sub service.
	subscription *pubsub.Subscription // The subscription this listener pulls messages from.
	command      cor.Command          // The command executed for each message received.
}

// NewPubSubListener is the constructor for PubSubListener.
//
// Inputs:
//   - pubsubClient: An authenticated *pubsub.Client.
//   - subscriptionID: The string ID of the subscription.
//   - command: The command to execute per message. May be nil and attached
//     later with SetCommand once the workflow is assembled.
//
// Outputs:
//   - *PubSubListener: A pointer to the newly created listener.
//   - error: Reserved for future construction failures.
func NewPubSubListener(
	pubsubClient *pubsub.Client,
	subscriptionID string,
	command cor.Command,
) (cmd *PubSubListener, err error) {
	sub := pubsubClient.Subscription(subscriptionID)
	cmd = &PubSubListener{
		client:       pubsubClient,
		subscription: sub,
		command:      command,
	}
	return cmd, nil
}

// SetCommand attaches a command to the listener. The first attachment wins;
// later calls are ignored so an assembled workflow is not overwritten.
func (m *PubSubListener) SetCommand(command cor.Command) {
	if m.command == nil {
		m.command = command
	}
}

// Listen starts the asynchronous receive loop in a background goroutine.
// For every message, a fresh chain context is created with the message body
// as the initial input, the command executes, and the message is acked only
// on a clean run. Canceling ctx stops the loop.
func (m *PubSubListener) Listen(ctx context.Context) {
	slog.Info("listening for queued generation requests", "subscription", m.subscription.String())

	go func() {
		tracer := otel.Tracer("request-listener")

		err := m.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
			spanCtx, span := tracer.Start(ctx, "receive-generation-request")
			span.SetAttributes(attribute.Int("msg_bytes", len(msg.Data)))

			chainCtx := cor.NewBaseContext()
			chainCtx.SetContext(spanCtx)
			chainCtx.Add(cor.CtxIn, string(msg.Data))

			m.command.Execute(chainCtx)

			if !chainCtx.HasErrors() {
				span.SetStatus(codes.Ok, "success")
				msg.Ack()
			} else {
				span.SetStatus(codes.Error, "failed")
				for name, e := range chainCtx.GetErrors() {
					slog.Error("queued request failed", "command", name, "error", e)
				}
				// No ack: the message redelivers after its deadline per the
				// subscription's retry policy.
			}

			span.End()
		})

		if err != nil {
			slog.Error("listener receive loop exited", "error", err)
		}
	}()
}
