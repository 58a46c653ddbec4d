package scheduler

import (
	"math"
	"time"

	"github.com/akuzmenko/decksync/internal/models"
)

// SM2 is the built-in scheduler: an SM-2 flavored model carrying the
// difficulty/stability/retrievability fields so the stored state stays
// compatible with FSRS-style schedulers.
type SM2 struct{}

func NewSM2() *SM2 { return &SM2{} }

const (
	initialDifficulty = 5.0
	minDifficulty     = 1.0
	maxDifficulty     = 10.0
	decayFactor       = 0.9
)

func (s *SM2) Next(state models.ReviewState, rating models.Rating, cfg Steps, now time.Time) models.ReviewState {
	next := state
	next.Reps++

	if !state.Due.IsZero() {
		next.ElapsedDays = int(now.Sub(state.Due).Hours() / 24)
		if next.ElapsedDays < 0 {
			next.ElapsedDays = 0
		}
	}

	if next.Difficulty == 0 {
		next.Difficulty = initialDifficulty
	}
	next.Difficulty = clamp(next.Difficulty+difficultyDelta(rating), minDifficulty, maxDifficulty)

	switch state.State {
	case models.StateNew, models.StateLearning, models.StateRelearning:
		s.nextLearning(&next, rating, cfg, now)
	case models.StateReview:
		s.nextReview(&next, rating, cfg, now)
	}

	next.Retrievability = retrievability(next.Stability, next.ScheduledDays)
	return next
}

// nextLearning advances a card through the learning steps. Reps (minus
// lapses) double as the step index; Again restarts the walk.
func (s *SM2) nextLearning(next *models.ReviewState, rating models.Rating, cfg Steps, now time.Time) {
	switch rating {
	case models.RatingAgain:
		next.State = models.StateLearning
		next.Queue = models.QueueLearning
		next.ScheduledDays = 0
		next.Due = now.Add(firstStep(cfg))
	case models.RatingEasy:
		graduate(next, cfg.EasyDays, cfg, now)
	default:
		step := next.Reps - next.Lapses
		if step < len(cfg.LearningSteps) {
			next.State = models.StateLearning
			next.Queue = models.QueueLearning
			next.ScheduledDays = 0
			next.Due = now.Add(cfg.LearningSteps[step])
			return
		}
		graduate(next, cfg.GraduateDays, cfg, now)
	}
}

func (s *SM2) nextReview(next *models.ReviewState, rating models.Rating, cfg Steps, now time.Time) {
	switch rating {
	case models.RatingAgain:
		next.Lapses++
		next.State = models.StateRelearning
		next.Queue = models.QueueLearning
		next.Stability *= decayFactor
		next.ScheduledDays = 0
		next.Due = now.Add(firstStep(cfg))
	default:
		factor := map[models.Rating]float64{
			models.RatingHard: 1.2,
			models.RatingGood: 2.5,
			models.RatingEasy: 3.5,
		}[rating]

		interval := int(math.Ceil(next.Stability * factor))
		if interval < 1 {
			interval = 1
		}
		if interval > cfg.MaxIntervalDays {
			interval = cfg.MaxIntervalDays
		}

		next.State = models.StateReview
		next.Queue = models.QueueReview
		next.Stability = float64(interval)
		next.ScheduledDays = interval
		next.Due = now.AddDate(0, 0, interval)
	}
}

func graduate(next *models.ReviewState, days int, cfg Steps, now time.Time) {
	if days < 1 {
		days = 1
	}
	if days > cfg.MaxIntervalDays {
		days = cfg.MaxIntervalDays
	}
	next.State = models.StateReview
	next.Queue = models.QueueReview
	next.Stability = float64(days)
	next.ScheduledDays = days
	next.Due = now.AddDate(0, 0, days)
}

func firstStep(cfg Steps) time.Duration {
	if len(cfg.LearningSteps) == 0 {
		return time.Minute
	}
	return cfg.LearningSteps[0]
}

func difficultyDelta(rating models.Rating) float64 {
	switch rating {
	case models.RatingAgain:
		return 1.0
	case models.RatingHard:
		return 0.5
	case models.RatingEasy:
		return -0.5
	default:
		return 0
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

// retrievability estimates recall probability at the scheduled interval
// using the standard forgetting-curve shape.
func retrievability(stability float64, scheduledDays int) float64 {
	if stability <= 0 || scheduledDays <= 0 {
		return 1
	}
	return math.Exp(-float64(scheduledDays) / (stability * math.E))
}
