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
// This file implements the single retry authority for every backend call the
// pipeline makes. All timeout, backoff, and error-classification logic lives
// here; the backend adapters themselves never retry, and neither do the
// commands that call them. Consolidating the policy in one place keeps the
// worst-case latency of a pipeline stage computable (see RetryPolicy.MaxDuration)
// and makes the classification rules testable without a live backend.
//
// Logic Flow:
//  1. Call runs the operation under a per-attempt timeout derived from the policy.
//  2. On failure the error is classified: timeouts, connection resets, and
//     rate limiting are retryable; credential and payload rejections are not.
//  3. Retryable failures back off exponentially (base * multiplier^attempt,
//     optionally jittered) and try again up to MaxAttempts.
//  4. Exhaustion or a non-retryable failure returns a *Failure carrying the
//     classification, the attempt count, and the last underlying error.
//
// Every attempt emits one structured log event and updates OTel counters so
// backend health is observable per logical backend name.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"syscall"
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"google.golang.org/genai"
)

// FailureKind is the classified cause of a backend call failure.
type FailureKind string

const (
	KindTimeout     FailureKind = "timeout"      // The attempt exceeded its deadline.
	KindConnection  FailureKind = "connection"   // The transport failed (refused, reset, truncated).
	KindRateLimited FailureKind = "rate_limited" // The backend is throttling.
	KindAuth        FailureKind = "auth"         // Credentials were rejected.
	KindValidation  FailureKind = "validation"   // The backend refused the payload as malformed.
	KindUnknown     FailureKind = "unknown"      // Anything else; treated as transient.
)

// Retryable reports whether another attempt may succeed for this kind of
// failure. Auth and validation failures are definitive after one attempt.
func (k FailureKind) Retryable() bool {
	return k != KindAuth && k != KindValidation
}

// Failure is the terminal error returned by Call once attempts are exhausted
// or a non-retryable error is hit.
type Failure struct {
	Kind     FailureKind // The classification of the last error.
	Attempts int         // How many attempts were made.
	Err      error       // The last underlying error.
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s after %d attempt(s): %v", f.Kind, f.Attempts, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// RetryPolicy is the configuration value governing one external call type.
// It is immutable at runtime; each backend gets its own policy from the
// [backends.*.retry] sections of the TOML configuration.
type RetryPolicy struct {
	MaxAttempts    int           // Total attempts, first try included. Minimum 1.
	BaseBackoff    time.Duration // Delay after the first failure.
	Multiplier     float64       // Exponential growth factor for subsequent delays.
	Jitter         float64       // Fraction of each delay randomized upward (0 disables).
	AttemptTimeout time.Duration // Deadline applied to every individual attempt.
}

// backoff returns the delay to wait after the given zero-based failed attempt.
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := float64(p.BaseBackoff)
	for i := 0; i < attempt; i++ {
		d *= p.Multiplier
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * rand.Float64()
	}
	return time.Duration(d)
}

// MaxDuration returns the worst-case wall-clock ceiling for a call under this
// policy: every attempt running to its timeout plus every backoff at full
// jitter. Orchestrators sum these ceilings to expose an end-to-end latency
// bound to callers.
func (p RetryPolicy) MaxDuration() time.Duration {
	total := time.Duration(p.MaxAttempts) * p.AttemptTimeout
	d := float64(p.BaseBackoff)
	for i := 0; i < p.MaxAttempts-1; i++ {
		total += time.Duration(d * (1 + p.Jitter))
		d *= p.Multiplier
	}
	return total
}

// Classify maps an arbitrary backend error onto a FailureKind. The rules
// cover the genai API error codes, standard net/syscall failures, and the
// model package sentinels used by adapters and test fakes.
func Classify(err error) FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, model.ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, model.ErrUnauthorized):
		return KindAuth
	case errors.Is(err, model.ErrInvalidPayload), errors.Is(err, model.ErrBackendDisabled):
		return KindValidation
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, io.ErrUnexpectedEOF):
		return KindConnection
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return KindRateLimited
		case 401, 403:
			return KindAuth
		case 400, 404, 422:
			return KindValidation
		case 408, 504:
			return KindTimeout
		case 502, 503:
			return KindConnection
		}
		return KindUnknown
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindConnection
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}

	return KindUnknown
}

// Meter instruments shared by every Call invocation. Counters are labeled by
// backend name so one set covers all call types.
var (
	callMeter           = otel.Meter("github.com/jaycherian/gcp-go-story-weaver")
	callAttemptCounter  metric.Int64Counter
	callOutcomeCounters map[bool]metric.Int64Counter
)

func init() {
	callAttemptCounter, _ = callMeter.Int64Counter("backend.call.attempts")
	success, _ := callMeter.Int64Counter("backend.call.success")
	failure, _ := callMeter.Int64Counter("backend.call.failure")
	callOutcomeCounters = map[bool]metric.Int64Counter{true: success, false: failure}
}

// Call executes op under the given policy and returns its result, retrying
// transient failures with exponential backoff. The name identifies the
// logical backend in logs and metrics. Cancellation of ctx is honored between
// attempts and propagated into every attempt's deadline, so an abandoned
// request never keeps retrying in the background.
//
// On permanent failure the returned error is a *Failure; callers decide
// whether that is fatal (text generation) or a fallback trigger (images,
// narration).
func Call[T any](ctx context.Context, name string, policy RetryPolicy, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &Failure{Kind: KindTimeout, Attempts: attempt, Err: err}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, policy.AttemptTimeout)
		start := time.Now()
		out, err := op(attemptCtx)
		cancel()
		latency := time.Since(start)

		callAttemptCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("backend", name)))

		if err == nil {
			callOutcomeCounters[true].Add(ctx, 1, metric.WithAttributes(attribute.String("backend", name)))
			slog.Info("backend call succeeded",
				"backend", name,
				"attempt", attempt+1,
				"latency", latency.String())
			return out, nil
		}

		kind := Classify(err)
		lastErr = err
		slog.Warn("backend call failed",
			"backend", name,
			"attempt", attempt+1,
			"kind", string(kind),
			"latency", latency.String(),
			"error", err)

		if !kind.Retryable() {
			callOutcomeCounters[false].Add(ctx, 1, metric.WithAttributes(attribute.String("backend", name)))
			return zero, &Failure{Kind: kind, Attempts: attempt + 1, Err: err}
		}

		if attempt < attempts-1 {
			select {
			case <-time.After(policy.backoff(attempt)):
			case <-ctx.Done():
				return zero, &Failure{Kind: KindTimeout, Attempts: attempt + 1, Err: ctx.Err()}
			}
		}
	}

	callOutcomeCounters[false].Add(ctx, 1, metric.WithAttributes(attribute.String("backend", name)))
	return zero, &Failure{Kind: Classify(lastErr), Attempts: attempts, Err: lastErr}
}
