package models

import "time"

// CardState is the learning phase a card is in.
type CardState int

const (
	StateNew CardState = iota
	StateLearning
	StateReview
	StateRelearning
)

func (s CardState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateLearning:
		return "learning"
	case StateReview:
		return "review"
	case StateRelearning:
		return "relearning"
	default:
		return "unknown"
	}
}

// Queue classifies which study queue a card currently sits in. It is derived
// from the card's state and due date but persisted so queries can filter on
// it cheaply.
type Queue int

const (
	QueueNew Queue = iota
	QueueLearning
	QueueReview
)

// Rating is the user's answer grade for a single review.
//
//	1: Again (incorrect)
//	2: Hard
//	3: Good
//	4: Easy
type Rating int

const (
	RatingAgain Rating = iota + 1
	RatingHard
	RatingGood
	RatingEasy
)

// ReviewState holds a card's scheduling fields. The scheduler consumes and
// produces values of this type as a pure function; the engine only records
// the transition.
type ReviewState struct {
	State          CardState
	Difficulty     float64
	Stability      float64
	Retrievability float64
	ElapsedDays    int
	ScheduledDays  int
	Reps           int
	Lapses         int
	Due            time.Time
	Queue          Queue
}
