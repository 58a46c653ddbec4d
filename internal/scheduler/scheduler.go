// Package scheduler defines the spaced-repetition boundary. The engine
// treats scheduling as a pure function from (current state, rating, step
// configuration) to a new state; the model behind it is a collaborator and
// can be swapped without touching the sync logic.
package scheduler

import (
	"time"

	"github.com/akuzmenko/decksync/internal/models"
)

// Steps is the per-deck scheduling configuration.
type Steps struct {
	// LearningSteps are the intra-day intervals a card walks through
	// before graduating to the review queue.
	LearningSteps []time.Duration

	// GraduateDays is the first review interval after graduating.
	GraduateDays int

	// EasyDays is the first review interval when a learning card is
	// rated Easy (skips the remaining steps).
	EasyDays int

	// MaxIntervalDays caps review intervals.
	MaxIntervalDays int
}

// DefaultSteps mirrors common flashcard defaults.
func DefaultSteps() Steps {
	return Steps{
		LearningSteps:   []time.Duration{time.Minute, 10 * time.Minute},
		GraduateDays:    1,
		EasyDays:        4,
		MaxIntervalDays: 36500,
	}
}

// Scheduler maps a review event to the card's next state. Implementations
// must be pure: same inputs, same output, no I/O.
type Scheduler interface {
	Next(state models.ReviewState, rating models.Rating, cfg Steps, now time.Time) models.ReviewState
}
