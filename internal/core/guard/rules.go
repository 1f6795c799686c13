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

// Package guard implements the content guardrail. This file holds the rule
// configuration and the concrete rule builders for each mode. Term matching
// is case-insensitive and word-boundary aware so "scared" does not match
// "scarecrow" rules accidentally, and the heuristics (all-caps runs,
// exclamation density) operate on the raw text.
package guard

import (
	"fmt"
	"strings"
	"unicode"
)

// RuleConfig carries the tunable term lists and heuristic thresholds,
// normally populated from the [guardrails] section of the TOML configuration.
type RuleConfig struct {
	BlockTerms      []string `toml:"block_terms"`       // Terms that terminate the pipeline in bedtime-safety mode.
	FlagTerms       []string `toml:"flag_terms"`        // Terms recorded for review in bedtime-safety mode.
	BrandBlockTerms []string `toml:"brand_block_terms"` // Terms forbidden outright in brand-compliance mode.
	BrandFlagTerms  []string `toml:"brand_flag_terms"`  // Off-tone terms recorded for review in brand-compliance mode.
	MaxExclamations int      `toml:"max_exclamations"`  // Exclamation marks allowed before the tone is flagged.
	MaxAllCapsWords int      `toml:"max_all_caps_words"` // All-caps words allowed before shouting is flagged.
}

// DefaultRuleConfig returns the rule set used when the configuration omits
// the [guardrails] section. The lists are intentionally small; production
// deployments extend them in TOML.
func DefaultRuleConfig() RuleConfig {
	return RuleConfig{
		BlockTerms:      []string{"gun", "knife", "blood", "kill", "murder", "corpse"},
		FlagTerms:       []string{"scared", "nightmare", "monster", "dark forest", "alone"},
		BrandBlockTerms: []string{"lawsuit", "recall", "scandal"},
		BrandFlagTerms:  []string{"cheap", "discount", "competitor"},
		MaxExclamations: 3,
		MaxAllCapsWords: 2,
	}
}

// containsTerm reports whether text contains term as a whole word or phrase,
// ignoring case.
func containsTerm(text, term string) bool {
	lowered := strings.ToLower(text)
	term = strings.ToLower(term)
	for start := 0; ; {
		idx := strings.Index(lowered[start:], term)
		if idx < 0 {
			return false
		}
		idx += start
		end := idx + len(term)
		beforeOK := idx == 0 || !isWordRune(rune(lowered[idx-1]))
		afterOK := end == len(lowered) || !isWordRune(rune(lowered[end]))
		if beforeOK && afterOK {
			return true
		}
		start = idx + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// termRule builds one rule that matches any term from the list and yields the
// given decision.
func termRule(terms []string, decision Decision, label string) rule {
	return func(text string) (Decision, string) {
		for _, term := range terms {
			if containsTerm(text, term) {
				return decision, fmt.Sprintf("%s term %q present", label, term)
			}
		}
		return DecisionPass, ""
	}
}

// allCapsRule flags text shouting in all capitals beyond the allowed count.
// Single-letter words ("I", "A") do not count.
func allCapsRule(maxWords int) rule {
	return func(text string) (Decision, string) {
		count := 0
		for _, word := range strings.Fields(text) {
			word = strings.TrimFunc(word, func(r rune) bool { return !unicode.IsLetter(r) })
			if len(word) < 2 {
				continue
			}
			if word == strings.ToUpper(word) && word != strings.ToLower(word) {
				count++
			}
		}
		if count > maxWords {
			return DecisionFlag, fmt.Sprintf("%d all-caps words exceeds the calm-tone limit of %d", count, maxWords)
		}
		return DecisionPass, ""
	}
}

// exclamationRule flags overexcited punctuation.
func exclamationRule(maxMarks int) rule {
	return func(text string) (Decision, string) {
		count := strings.Count(text, "!")
		if count > maxMarks {
			return DecisionFlag, fmt.Sprintf("%d exclamation marks exceeds the tone limit of %d", count, maxMarks)
		}
		return DecisionPass, ""
	}
}

// bedtimeSafetyRules assembles the child-safety rule table: banned terms
// block, unsettling terms flag, and shouting or overexcited punctuation
// flags the tone.
func bedtimeSafetyRules(cfg RuleConfig) []rule {
	return []rule{
		termRule(cfg.BlockTerms, DecisionBlock, "banned"),
		termRule(cfg.FlagTerms, DecisionFlag, "unsettling"),
		allCapsRule(cfg.MaxAllCapsWords),
		exclamationRule(cfg.MaxExclamations),
	}
}

// brandComplianceRules assembles the brand-tone rule table.
func brandComplianceRules(cfg RuleConfig) []rule {
	return []rule{
		termRule(cfg.BrandBlockTerms, DecisionBlock, "forbidden"),
		termRule(cfg.BrandFlagTerms, DecisionFlag, "off-tone"),
		exclamationRule(cfg.MaxExclamations),
	}
}
