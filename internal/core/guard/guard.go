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

// Package guard implements the content guardrail applied at two pipeline
// checkpoints: the raw prompt before any generation call, and the generated
// story draft before asset generation. Evaluation is deterministic and makes
// no network calls, so it runs synchronously in the hot path without a retry
// policy of its own.
//
// Modes form a closed set and dispatch through a table of pure rule
// functions built once at construction time. Each rule inspects the text and
// returns at most one finding; the guard merges findings into a single
// verdict, taking the most severe decision and accumulating every reason.
package guard

import "fmt"

// Mode selects which rule set is active for an evaluation.
type Mode int

const (
	// ModeBedtimeSafety enforces child-safe, calm content.
	ModeBedtimeSafety Mode = iota
	// ModeBrandCompliance enforces brand tone and vocabulary rules.
	ModeBrandCompliance
)

// String returns the wire name of the mode as it appears in requests.
func (m Mode) String() string {
	switch m {
	case ModeBedtimeSafety:
		return "bedtime-safety"
	case ModeBrandCompliance:
		return "brand-compliance"
	}
	return "unknown"
}

// ParseMode maps a request's guardrail_mode field onto a Mode. An empty
// string selects bedtime safety, the stricter default.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "bedtime-safety":
		return ModeBedtimeSafety, nil
	case "brand-compliance":
		return ModeBrandCompliance, nil
	}
	return ModeBedtimeSafety, fmt.Errorf("unknown guardrail mode %q", s)
}

// Decision is the outcome of one evaluation or one rule finding.
type Decision int

const (
	DecisionPass Decision = iota // No finding.
	DecisionFlag                 // Content may continue but is recorded for review.
	DecisionBlock                // Content terminates the pipeline.
)

// String returns a short lowercase label for logs and summaries.
func (d Decision) String() string {
	switch d {
	case DecisionFlag:
		return "flag"
	case DecisionBlock:
		return "block"
	}
	return "pass"
}

// Verdict is the merged outcome of every rule in the active mode.
type Verdict struct {
	Decision Decision // The most severe decision any rule produced.
	Reasons  []string // One reason per non-pass finding, in rule order.
}

// Blocked reports whether the verdict terminates the pipeline.
func (v Verdict) Blocked() bool { return v.Decision == DecisionBlock }

// Flagged reports whether the verdict carries review findings short of a block.
func (v Verdict) Flagged() bool { return v.Decision == DecisionFlag }

// rule is a pure function inspecting text. A pass returns (DecisionPass, "").
type rule func(text string) (Decision, string)

// Guard holds the rule tables for every mode. It is safe for concurrent use
// because rules are pure and the tables are never mutated after construction.
type Guard struct {
	rules map[Mode][]rule
}

// NewGuard builds the per-mode rule tables from the supplied rule
// configuration. The tables are fixed for the life of the guard.
func NewGuard(cfg RuleConfig) *Guard {
	return &Guard{rules: map[Mode][]rule{
		ModeBedtimeSafety:   bedtimeSafetyRules(cfg),
		ModeBrandCompliance: brandComplianceRules(cfg),
	}}
}

// Evaluate runs every rule for the mode against the text and merges the
// findings. The same (text, mode) pair always yields the same verdict.
func (g *Guard) Evaluate(text string, mode Mode) Verdict {
	verdict := Verdict{Decision: DecisionPass}
	for _, r := range g.rules[mode] {
		decision, reason := r(text)
		if decision == DecisionPass {
			continue
		}
		verdict.Reasons = append(verdict.Reasons, reason)
		if decision > verdict.Decision {
			verdict.Decision = decision
		}
	}
	return verdict
}
