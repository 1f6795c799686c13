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

package cloud

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/jaycherian/gcp-go-story-weaver/internal/core/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastPolicy keeps test retries in the millisecond range.
func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    attempts,
		BaseBackoff:    time.Millisecond,
		Multiplier:     2.0,
		AttemptTimeout: 50 * time.Millisecond,
	}
}

func TestCallSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	out, err := Call(context.Background(), "text", fastPolicy(3), func(_ context.Context) (string, error) {
		calls++
		return "once upon a time", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "once upon a time", out)
	assert.Equal(t, 1, calls)
}

func TestCallRecoversFromTransientFailure(t *testing.T) {
	calls := 0
	out, err := Call(context.Background(), "text", fastPolicy(3), func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", model.ErrRateLimited
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)
	assert.Equal(t, 3, calls)
}

func TestCallExhaustsAttemptsOnPermanentTimeout(t *testing.T) {
	policy := fastPolicy(4)
	policy.AttemptTimeout = 5 * time.Millisecond

	calls := 0
	_, err := Call(context.Background(), "image", policy, func(ctx context.Context) ([]byte, error) {
		calls++
		<-ctx.Done() // never completes within the attempt deadline
		return nil, ctx.Err()
	})
	require.Error(t, err)

	var failure *Failure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, KindTimeout, failure.Kind)
	assert.Equal(t, 4, failure.Attempts)
	assert.Equal(t, 4, calls)
}

func TestCallDoesNotRetryNonRetryableErrors(t *testing.T) {
	for _, sentinel := range []error{model.ErrUnauthorized, model.ErrInvalidPayload} {
		calls := 0
		_, err := Call(context.Background(), "audio", fastPolicy(5), func(_ context.Context) (string, error) {
			calls++
			return "", sentinel
		})
		require.Error(t, err)

		var failure *Failure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, 1, failure.Attempts, "non-retryable errors should stop after one attempt")
		assert.Equal(t, 1, calls)
		assert.False(t, failure.Kind.Retryable())
		assert.ErrorIs(t, err, sentinel)
	}
}

func TestCallHonorsCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(5 * time.Millisecond)
		cancel()
	}()

	policy := fastPolicy(10)
	policy.BaseBackoff = 100 * time.Millisecond
	_, err := Call(ctx, "text", policy, func(_ context.Context) (string, error) {
		calls++
		return "", syscall.ECONNRESET
	})
	require.Error(t, err)
	assert.Less(t, calls, 10, "cancellation should abandon remaining retries")
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"rate limited sentinel", model.ErrRateLimited, KindRateLimited},
		{"auth sentinel", model.ErrUnauthorized, KindAuth},
		{"payload sentinel", model.ErrInvalidPayload, KindValidation},
		{"connection refused", syscall.ECONNREFUSED, KindConnection},
		{"connection reset", syscall.ECONNRESET, KindConnection},
		{"wrapped reset", errors.Join(errors.New("dial"), syscall.ECONNRESET), KindConnection},
		{"unknown", errors.New("something odd"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.err))
		})
	}
}

func TestRetryPolicyMaxDuration(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:    3,
		BaseBackoff:    time.Second,
		Multiplier:     2.0,
		AttemptTimeout: 10 * time.Second,
	}
	// 3 attempts * 10s + backoffs of 1s and 2s.
	assert.Equal(t, 33*time.Second, policy.MaxDuration())

	jittered := policy
	jittered.Jitter = 0.5
	assert.Greater(t, jittered.MaxDuration(), policy.MaxDuration())
}
