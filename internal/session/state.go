package session

import (
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// TimeLimit applies to every quiz session. It is not configurable.
const TimeLimit = 15 * time.Minute

// State is one visitor's progress through the quiz. CurrentIndex stays in
// [0, N]; N means the quiz is complete.
type State struct {
	Initialized  bool                  `json:"initialized"`
	CurrentIndex int                   `json:"current_index"`
	Answers      map[int64]quiz.Letter `json:"answers"`
	StartedAt    time.Time             `json:"started_at"`
	TimeLimit    time.Duration         `json:"time_limit"`
	Completed    bool                  `json:"completed"`
}

// Init resets the state to the first question with the clock starting at now.
func (s *State) Init(now time.Time) {
	s.Initialized = true
	s.CurrentIndex = 0
	s.Answers = map[int64]quiz.Letter{}
	s.StartedAt = now
	s.TimeLimit = TimeLimit
	s.Completed = false
}

func (s *State) Elapsed(now time.Time) time.Duration {
	return now.Sub(s.StartedAt)
}

// Remaining never goes below zero.
func (s *State) Remaining(now time.Time) time.Duration {
	r := s.TimeLimit - s.Elapsed(now)
	if r < 0 {
		return 0
	}
	return r
}

func (s *State) Expired(now time.Time) bool {
	return s.Elapsed(now) >= s.TimeLimit
}

// FormatRemaining renders d as H:MM:SS, dropping fractions of a second.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", secs/3600, (secs/60)%60, secs%60)
}
