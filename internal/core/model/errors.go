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
// This file defines the pipeline error taxonomy. Three categories are fatal
// and abort the run (ValidationError, GuardrailViolation, UpstreamUnavailable);
// the rest are absorbed into the result as placeholder flags or degradation
// notes. Callers distinguish the categories with errors.As, so each fatal
// category is its own type carrying just enough detail for user messaging
// without leaking backend internals.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors surfaced by backend adapters. They let the retry layer and
// tests classify failures without depending on a concrete transport error.
var (
	// ErrRateLimited marks a quota or throttling rejection. Retryable.
	ErrRateLimited = errors.New("backend rate limited")
	// ErrUnauthorized marks a credential rejection. Not retryable.
	ErrUnauthorized = errors.New("backend rejected credentials")
	// ErrInvalidPayload marks a request the backend refused as malformed. Not retryable.
	ErrInvalidPayload = errors.New("backend rejected request payload")
	// ErrBackendDisabled is returned by an adapter whose backend is switched
	// off in configuration. Consumers fall straight to placeholder output.
	ErrBackendDisabled = errors.New("backend disabled by configuration")
)

// ValidationError reports a malformed or out-of-bounds request, rejected
// before any external call is made.
type ValidationError struct {
	Field  string // The request field that failed validation.
	Reason string // Why it was rejected.
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// GuardrailViolation reports content blocked at a guard checkpoint. It is
// fatal to the request regardless of which checkpoint raised it.
type GuardrailViolation struct {
	Checkpoint string   // "prompt" or "draft".
	Reasons    []string // The rule reasons that produced the block.
}

func (e *GuardrailViolation) Error() string {
	return fmt.Sprintf("content blocked at %s checkpoint: %s", e.Checkpoint, strings.Join(e.Reasons, "; "))
}

// UpstreamUnavailable reports that a required backend exhausted its retries.
// Only the text backend produces this: images and audio degrade to
// placeholders instead.
type UpstreamUnavailable struct {
	Backend string // The logical backend name (e.g., "text").
	Err     error  // The final classified failure.
}

func (e *UpstreamUnavailable) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Backend, e.Err)
}

func (e *UpstreamUnavailable) Unwrap() error { return e.Err }

// PersistenceFailure reports a failed durable write or asset upload. It is
// never returned to the caller as a request failure; it is logged and the
// fallback path is used instead.
type PersistenceFailure struct {
	Op  string // The operation that failed (e.g., "gcs upload", "bigquery insert").
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }
