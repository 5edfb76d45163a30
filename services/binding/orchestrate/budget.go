// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrate

import (
	"fmt"
	"sync"
)

// TokenBudget tracks token consumption for one component's orchestration
// run.
//
// Description:
//
//	The budget check happens before a generator call with an estimated
//	token count; actual usage is recorded after the call completes. Each
//	orchestrator run owns its own budget, so concurrently processed
//	components never interfere.
//
//	A limit of 0 means unlimited (no enforcement).
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type TokenBudget struct {
	mu        sync.Mutex
	component string
	limit     int
	consumed  int
}

// NewTokenBudget creates a token budget for one component run.
//
// Inputs:
//   - component: The component name, used in summaries.
//   - limit: Maximum tokens allowed across all attempts. 0 means unlimited.
func NewTokenBudget(component string, limit int) *TokenBudget {
	return &TokenBudget{
		component: component,
		limit:     limit,
	}
}

// CanSpend checks whether the estimated token count fits the budget.
//
// Outputs:
//   - bool: True if the request fits within the remaining budget.
//   - int: Remaining tokens after this request would complete.
func (b *TokenBudget) CanSpend(estimated int) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit == 0 {
		return true, 0 // unlimited
	}

	remaining := b.limit - b.consumed
	if estimated > remaining {
		return false, remaining
	}
	return true, remaining - estimated
}

// Record records actual token consumption after a generator call.
func (b *TokenBudget) Record(actual int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consumed += actual
}

// Consumed returns the tokens consumed so far.
func (b *TokenBudget) Consumed() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.consumed
}

// Summary returns a human-readable budget state for logging.
func (b *TokenBudget) Summary() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.limit == 0 {
		return fmt.Sprintf("%s: %d tokens used (unlimited)", b.component, b.consumed)
	}
	return fmt.Sprintf("%s: %d/%d tokens used", b.component, b.consumed, b.limit)
}

// estimateTokens approximates the token count of a prompt. Four bytes per
// token overestimates slightly for code-heavy prompts, which is the safe
// direction for budget checks.
func estimateTokens(text string) int {
	return len(text)/4 + 1
}
