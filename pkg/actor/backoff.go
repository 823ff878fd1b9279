// AgentNet - Autonomous Agent Network Core
// Copyright (C) 2026 atproto-agent-network
//
// This file is part of AgentNet.
//
// AgentNet is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// AgentNet is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with AgentNet. If not, see <https://www.gnu.org/licenses/>.


package actor

import "strings"

// Category is the error-backoff bucket a cycle's errors fall into.
type Category string

const (
	CategoryTransient  Category = "transient"
	CategoryPersistent Category = "persistent"
	CategoryGame       Category = "game"
	CategoryUnknown    Category = "unknown"
	CategoryNone       Category = ""
)

// categoryPriority orders categories so RunCycle can pick a single one
// when a cycle produced errors in more than one phase: persistent wins
// over transient, which wins over game, which wins over unknown.
var categoryPriority = []Category{CategoryPersistent, CategoryTransient, CategoryGame, CategoryUnknown}

// Categorize buckets an error by phase and message content. Message
// content wins over phase, except the act-phase "game" rule.
func Categorize(phase string, err error) Category {
	if err == nil {
		return CategoryNone
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"), strings.Contains(msg, "too many requests"):
		return CategoryTransient
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "aborterror"):
		return CategoryTransient
	case strings.Contains(msg, "config"):
		return CategoryPersistent
	case phase == "act" && strings.Contains(msg, "game"):
		return CategoryGame
	default:
		return CategoryPersistent
	}
}

// pickCategory reduces the categories seen this cycle to the single
// highest-priority one.
func pickCategory(seen map[Category]bool) Category {
	for _, c := range categoryPriority {
		if seen[c] {
			return c
		}
	}
	return CategoryNone
}

// BackoffState tracks the current error category and how many
// consecutive cycles have produced that category.
type BackoffState struct {
	Category Category `json:"category"`
	Streak   int      `json:"streak"`
}

var (
	transientTiersSec  = []int{15, 30, 60}
	persistentTiersSec = []int{60, 120, 300}
)

// tierSeconds returns the saturating tiered interval in seconds for the
// given category and 1-based streak length.
func tierSeconds(category Category, streak int) int {
	switch category {
	case CategoryTransient:
		return saturate(transientTiersSec, streak)
	case CategoryPersistent:
		return saturate(persistentTiersSec, streak)
	case CategoryGame:
		return 15
	case CategoryUnknown:
		return 60
	default:
		return 0
	}
}

func saturate(tiers []int, streak int) int {
	idx := streak - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(tiers) {
		idx = len(tiers) - 1
	}
	return tiers[idx]
}

// Advance updates the backoff streak for this cycle's outcome and
// returns the resulting state plus the backoff-driven interval in
// seconds (0 if the cycle had no error, meaning the caller should use
// the configured loopIntervalMs instead).
func (b BackoffState) Advance(seenCategories map[Category]bool) (BackoffState, int) {
	category := pickCategory(seenCategories)
	if category == CategoryNone {
		return BackoffState{}, 0
	}
	streak := 1
	if b.Category == category {
		streak = b.Streak + 1
	}
	next := BackoffState{Category: category, Streak: streak}
	return next, tierSeconds(category, streak)
}
