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

package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard() *Guard {
	return NewGuard(DefaultRuleConfig())
}

func TestEvaluatePassesCalmContent(t *testing.T) {
	g := newTestGuard()
	v := g.Evaluate("A sleepy fox curled up under soft lantern light.", ModeBedtimeSafety)
	assert.Equal(t, DecisionPass, v.Decision)
	assert.Empty(t, v.Reasons)
}

func TestEvaluateBlocksBannedTerms(t *testing.T) {
	g := newTestGuard()
	v := g.Evaluate("The pirate drew a knife and charged.", ModeBedtimeSafety)
	assert.True(t, v.Blocked())
	require.NotEmpty(t, v.Reasons)
	assert.Contains(t, v.Reasons[0], "knife")
}

func TestEvaluateMatchesWholeWordsOnly(t *testing.T) {
	g := newTestGuard()
	// "knife" inside "jackknifed" should not trip the banned-term rule,
	// and "scarecrow" should not match "scared".
	v := g.Evaluate("The friendly scarecrow waved as the wagon jackknifed gently into the hay.", ModeBedtimeSafety)
	assert.Equal(t, DecisionPass, v.Decision)
}

func TestEvaluateFlagsUnsettlingTerms(t *testing.T) {
	g := newTestGuard()
	v := g.Evaluate("The little owl felt scared of the tall shadows.", ModeBedtimeSafety)
	assert.True(t, v.Flagged())
	assert.False(t, v.Blocked())
}

func TestEvaluateFlagsShouting(t *testing.T) {
	g := newTestGuard()
	v := g.Evaluate("AND THEN EVERYONE SHOUTED VERY LOUDLY at bedtime.", ModeBedtimeSafety)
	assert.True(t, v.Flagged())
}

func TestEvaluateFlagsExcitedPunctuation(t *testing.T) {
	g := newTestGuard()
	v := g.Evaluate("Wow! And then! And then!! Amazing!", ModeBrandCompliance)
	assert.True(t, v.Flagged())
}

func TestEvaluateBlockOutranksFlag(t *testing.T) {
	g := newTestGuard()
	v := g.Evaluate("The scared child saw blood on the floor.", ModeBedtimeSafety)
	assert.True(t, v.Blocked())
	// Both findings are preserved in the reason list.
	assert.Len(t, v.Reasons, 2)
}

func TestEvaluateBrandModeUsesItsOwnTerms(t *testing.T) {
	g := newTestGuard()
	// A bedtime flag term is fine under brand compliance.
	v := g.Evaluate("Even a monster deserves a good night of sleep.", ModeBrandCompliance)
	assert.Equal(t, DecisionPass, v.Decision)

	v = g.Evaluate("Our rival faced a recall last spring.", ModeBrandCompliance)
	assert.True(t, v.Blocked())
}

func TestEvaluateIsDeterministic(t *testing.T) {
	g := newTestGuard()
	text := "The scared monster whispered in the dark forest!"
	first := g.Evaluate(text, ModeBedtimeSafety)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, g.Evaluate(text, ModeBedtimeSafety))
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeBedtimeSafety, m)

	m, err = ParseMode("brand-compliance")
	require.NoError(t, err)
	assert.Equal(t, ModeBrandCompliance, m)

	_, err = ParseMode("free-for-all")
	assert.Error(t, err)
}
