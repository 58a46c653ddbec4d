package scheduler

import (
	"testing"
	"time"

	"github.com/akuzmenko/decksync/internal/models"
	"github.com/stretchr/testify/assert"
)

var now = time.Unix(1700000000, 0).UTC()

func TestSM2_NewCardGoodWalksLearningSteps(t *testing.T) {
	s := NewSM2()
	cfg := DefaultSteps()

	state := models.ReviewState{State: models.StateNew, Queue: models.QueueNew}

	state = s.Next(state, models.RatingGood, cfg, now)
	assert.Equal(t, models.StateLearning, state.State)
	assert.Equal(t, models.QueueLearning, state.Queue)
	assert.Equal(t, 1, state.Reps)
	assert.Equal(t, now.Add(10*time.Minute), state.Due)

	// second Good graduates
	state = s.Next(state, models.RatingGood, cfg, now)
	assert.Equal(t, models.StateReview, state.State)
	assert.Equal(t, models.QueueReview, state.Queue)
	assert.Equal(t, cfg.GraduateDays, state.ScheduledDays)
	assert.Equal(t, now.AddDate(0, 0, cfg.GraduateDays), state.Due)
}

func TestSM2_EasySkipsSteps(t *testing.T) {
	s := NewSM2()
	cfg := DefaultSteps()

	state := s.Next(models.ReviewState{State: models.StateNew}, models.RatingEasy, cfg, now)

	assert.Equal(t, models.StateReview, state.State)
	assert.Equal(t, cfg.EasyDays, state.ScheduledDays)
}

func TestSM2_ReviewAgainLapses(t *testing.T) {
	s := NewSM2()
	cfg := DefaultSteps()

	state := models.ReviewState{
		State:     models.StateReview,
		Queue:     models.QueueReview,
		Stability: 10,
		Reps:      5,
	}
	next := s.Next(state, models.RatingAgain, cfg, now)

	assert.Equal(t, models.StateRelearning, next.State)
	assert.Equal(t, models.QueueLearning, next.Queue)
	assert.Equal(t, 1, next.Lapses)
	assert.Equal(t, 6, next.Reps)
	assert.Less(t, next.Stability, state.Stability)
	assert.Equal(t, 0, next.ScheduledDays)
}

func TestSM2_ReviewIntervalsGrow(t *testing.T) {
	s := NewSM2()
	cfg := DefaultSteps()

	state := models.ReviewState{State: models.StateReview, Stability: 4}

	hard := s.Next(state, models.RatingHard, cfg, now)
	good := s.Next(state, models.RatingGood, cfg, now)
	easy := s.Next(state, models.RatingEasy, cfg, now)

	assert.Less(t, hard.ScheduledDays, good.ScheduledDays)
	assert.Less(t, good.ScheduledDays, easy.ScheduledDays)
	assert.Greater(t, hard.ScheduledDays, 0)
}

func TestSM2_IntervalCapped(t *testing.T) {
	s := NewSM2()
	cfg := DefaultSteps()
	cfg.MaxIntervalDays = 30

	state := models.ReviewState{State: models.StateReview, Stability: 100}
	next := s.Next(state, models.RatingEasy, cfg, now)
	assert.Equal(t, 30, next.ScheduledDays)
}

func TestSM2_Pure(t *testing.T) {
	s := NewSM2()
	cfg := DefaultSteps()
	state := models.ReviewState{State: models.StateReview, Stability: 7, Reps: 3}

	a := s.Next(state, models.RatingGood, cfg, now)
	b := s.Next(state, models.RatingGood, cfg, now)
	assert.Equal(t, a, b)
}
