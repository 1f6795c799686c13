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

// Package cor (Chain of Responsibility) provides the building blocks for
// composing workflows out of small, testable commands. This file defines the
// interfaces that govern every component of the pattern: the shared Context
// that carries state through a run, the Command unit of work, and the Chain
// that sequences commands and pipes data between them.
package cor

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// CtxIn and CtxOut are the keys used to pipe the primary data flow through a
// BaseChain.
const (
	// CtxIn is the default key for a command's primary input. The BaseChain
	// fills it with the previous command's output.
	CtxIn = "__IN__"
	// CtxOut is the default key where a command places its primary output.
	// The BaseChain moves the value to CtxIn before the next command runs.
	CtxOut = "__OUT__"
)

// Context is the shared state object passed through a chain of commands. It
// carries data, errors, the pipeline stage, and the request-scoped Go
// context for a single workflow execution.
type Context interface {
	// SetContext sets the standard Go context.Context, which carries
	// cancellation signals and OpenTelemetry trace information.
	SetContext(context context.Context)

	// GetContext retrieves the standard Go context.Context.
	GetContext() context.Context

	// Add stores a key-value pair. This is the primary way commands share
	// data. Returns the Context for fluent chaining.
	Add(key string, value interface{}) Context

	// AddError records an error from a command, keyed by the command name.
	// Recording an error halts a chain that is not configured to continue
	// on failure.
	AddError(key string, err error)

	// GetErrors returns all errors collected during the workflow.
	GetErrors() map[string]error

	// Get retrieves a value by its key, or nil when absent.
	Get(key string) interface{}

	// Remove deletes a key-value pair.
	Remove(key string)

	// HasErrors reports whether any errors have been recorded.
	HasErrors() bool

	// SetStage records how far the pipeline state machine has progressed.
	// Stages move strictly forward during a run; on failure the workflow
	// overwrites the stage with its terminal failed marker.
	SetStage(stage string)

	// GetStage returns the most recently recorded pipeline stage.
	GetStage() string

	// AddTempFile tracks a temporary file created during the workflow so it
	// can be cleaned up at the end.
	AddTempFile(file string)

	// GetTempFiles returns all tracked temporary file paths.
	GetTempFiles() []string

	// Close removes tracked temporary files. Defer it at workflow start.
	Close()
}

// Executable is any object with a core execution step that reads from and
// writes to a Context.
type Executable interface {
	Execute(context Context)
}

// Command is an atomic, thread-safe unit of work and the fundamental
// building block of a workflow.
type Command interface {
	Executable

	// GetName returns the command's unique name, used for logging and telemetry.
	GetName() string

	// GetInputParam returns the context key the command reads its primary
	// input from.
	GetInputParam() string

	// GetOutputParam returns the context key the command writes its primary
	// output to.
	GetOutputParam() string

	// IsExecutable is the precondition check run before Execute.
	IsExecutable(context Context) bool

	// GetTracer returns the OpenTelemetry tracer for this command.
	GetTracer() trace.Tracer

	// GetMeter returns the OpenTelemetry meter for creating metrics.
	GetMeter() metric.Meter

	// GetSuccessCounter returns the metric counter for successful executions.
	GetSuccessCounter() metric.Int64Counter

	// GetErrorCounter returns the metric counter for failed executions.
	GetErrorCounter() metric.Int64Counter
}

// Chain is a sequence of commands. A Chain is itself a Command, so chains
// nest (Composite pattern).
type Chain interface {
	Command

	// ContinueOnFailure configures whether the chain keeps executing after a
	// command records an error. The pipeline default is to halt, which is
	// what makes guardrail blocks and upstream exhaustion terminal.
	ContinueOnFailure(bool) Chain

	// AddCommand appends a command to the execution sequence.
	AddCommand(command Command) Chain
}
